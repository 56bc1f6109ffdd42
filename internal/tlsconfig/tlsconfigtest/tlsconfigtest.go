// Package tlsconfigtest generates a throwaway CA and the server and client
// certificates signed by it, for tests that need real mTLS.
package tlsconfigtest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Files are the paths of the generated PEM files.
type Files struct {
	Dir string

	CACert string

	ServerCert string
	ServerKey  string

	OperatorCert string
	OperatorKey  string

	ViewerCert string
	ViewerKey  string

	// UntrustedCert and UntrustedKey are an operator identity signed by a
	// different CA.
	UntrustedCert string
	UntrustedKey  string
}

type issuer struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
}

// Generate writes a fresh set of certificates into a temporary directory that
// is removed when t ends. The server certificate is valid for localhost and
// 127.0.0.1.
func Generate(t testing.TB) *Files {
	t.Helper()

	dir := t.TempDir()

	f := &Files{
		Dir:           dir,
		CACert:        filepath.Join(dir, "ca.crt"),
		ServerCert:    filepath.Join(dir, "server.crt"),
		ServerKey:     filepath.Join(dir, "server.key"),
		OperatorCert:  filepath.Join(dir, "client-operator.crt"),
		OperatorKey:   filepath.Join(dir, "client-operator.key"),
		ViewerCert:    filepath.Join(dir, "client-viewer.crt"),
		ViewerKey:     filepath.Join(dir, "client-viewer.key"),
		UntrustedCert: filepath.Join(dir, "untrusted.crt"),
		UntrustedKey:  filepath.Join(dir, "untrusted.key"),
	}

	ca := newCA(t, "bench test CA")
	writeCert(t, f.CACert, ca.cert.Raw)

	ca.issue(t, f.ServerCert, f.ServerKey, &x509.Certificate{
		Subject:     pkix.Name{CommonName: "localhost"},
		DNSNames:    []string{"localhost"},
		IPAddresses: []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})

	ca.issue(t, f.OperatorCert, f.OperatorKey, clientTemplate("alice", "operator"))
	ca.issue(t, f.ViewerCert, f.ViewerKey, clientTemplate("bob", "viewer"))

	other := newCA(t, "untrusted CA")
	other.issue(t, f.UntrustedCert, f.UntrustedKey, clientTemplate("mallory", "operator"))

	return f
}

func clientTemplate(cn, ou string) *x509.Certificate {
	return &x509.Certificate{
		Subject: pkix.Name{
			CommonName:         cn,
			OrganizationalUnit: []string{ou},
		},
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
}

func newCA(t testing.TB, cn string) *issuer {
	t.Helper()

	key := newKey(t)

	tmpl := &x509.Certificate{
		SerialNumber:          serialNumber(t),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create CA certificate: %v", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse CA certificate: %v", err)
	}

	return &issuer{cert: cert, key: key}
}

func (i *issuer) issue(
	t testing.TB,
	certPath, keyPath string,
	tmpl *x509.Certificate,
) {
	t.Helper()

	key := newKey(t)

	tmpl.SerialNumber = serialNumber(t)
	tmpl.NotBefore = time.Now().Add(-time.Hour)
	tmpl.NotAfter = time.Now().Add(24 * time.Hour)
	tmpl.KeyUsage = x509.KeyUsageDigitalSignature

	der, err := x509.CreateCertificate(rand.Reader, tmpl, i.cert, &key.PublicKey, i.key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}

	writeCert(t, certPath, der)

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}

	writePEM(t, keyPath, "PRIVATE KEY", keyDER, 0o600)
}

func serialNumber(t testing.TB) *big.Int {
	t.Helper()

	n, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		t.Fatalf("generate serial number: %v", err)
	}

	return n
}

func newKey(t testing.TB) *ecdsa.PrivateKey {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	return key
}

func writeCert(t testing.TB, path string, der []byte) {
	t.Helper()

	writePEM(t, path, "CERTIFICATE", der, 0o644)
}

func writePEM(
	t testing.TB,
	path, blockType string,
	der []byte,
	perm os.FileMode,
) {
	t.Helper()

	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})

	if err := os.WriteFile(path, data, perm); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
