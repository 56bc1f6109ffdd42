// Package tlsconfig builds the mutual TLS configuration shared by benchd and
// benchctl.
package tlsconfig

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

var ErrInvalidCACert = errors.New("no certificates found in CA file")

// Config locates the PEM files for one side of the connection.
type Config struct {
	CertPath   string
	KeyPath    string
	CACertPath string

	// ServerName is the name the client verifies the server certificate
	// against. Unused by servers.
	ServerName string

	// Server requires and verifies client certificates against the CA
	// rather than verifying the server against it.
	Server bool
}

// SetupTLS loads the key pair and CA and returns a TLS 1.3 config.
func SetupTLS(config *Config) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(config.CertPath, config.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	caCert, err := os.ReadFile(config.CACertPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate: %w", ErrInvalidCACert)
	}

	tlsConfig := &tls.Config{
		MinVersion:   tls.VersionTLS13,
		Certificates: []tls.Certificate{cert},
	}

	if config.Server {
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
		tlsConfig.ClientCAs = caCertPool
	} else {
		tlsConfig.RootCAs = caCertPool
		tlsConfig.ServerName = config.ServerName
	}

	return tlsConfig, nil
}
