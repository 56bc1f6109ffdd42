package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nixpig/benchworker/internal/tlsconfig/tlsconfigtest"
)

func validConfig(t *testing.T) *config {
	t.Helper()

	files := tlsconfigtest.Generate(t)

	return &config{
		host:        "localhost",
		port:        "8443",
		certPath:    files.ServerCert,
		keyPath:     files.ServerKey,
		caCertPath:  files.CACert,
		bufferSize:  1024,
		memoryLimit: 4096,
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	scenarios := map[string]struct {
		modify  func(c *config)
		wantErr string
	}{
		"Test valid config": {
			modify: func(c *config) {},
		},
		"Test port not a number": {
			modify:  func(c *config) { c.port = "https" },
			wantErr: "port string to number",
		},
		"Test port out of range": {
			modify:  func(c *config) { c.port = "70000" },
			wantErr: "valid range",
		},
		"Test zero buffer size": {
			modify:  func(c *config) { c.bufferSize = 0 },
			wantErr: "buffer-size",
		},
		"Test memory limit below buffer size": {
			modify:  func(c *config) { c.memoryLimit = 512 },
			wantErr: "memory-limit",
		},
		"Test empty cert path": {
			modify:  func(c *config) { c.certPath = "" },
			wantErr: "cert-path cannot be empty",
		},
		"Test missing key": {
			modify:  func(c *config) { c.keyPath = "/does/not/exist" },
			wantErr: "failed to stat key-path",
		},
		"Test missing CA": {
			modify:  func(c *config) { c.caCertPath = "/does/not/exist" },
			wantErr: "failed to stat ca-cert-path",
		},
	}

	for scenario, data := range scenarios {
		t.Run(scenario, func(t *testing.T) {
			t.Parallel()

			c := validConfig(t)
			data.modify(c)

			err := c.validate()

			if data.wantErr == "" && err != nil {
				t.Errorf("expected not to receive error: got '%v'", err)
			}

			if data.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), data.wantErr) {
					t.Errorf("expected error containing '%s': got '%v'", data.wantErr, err)
				}
			}
		})
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "benchd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	return path
}

func TestApplyConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("Test file values apply to unset flags", func(t *testing.T) {
		t.Parallel()

		cmd := rootCmd()
		if err := cmd.Flags().Parse([]string{"--port", "9000"}); err != nil {
			t.Fatalf("parse flags: %v", err)
		}

		path := writeConfigFile(t, "port: 7000\nhost: 0.0.0.0\ndebug: true\nbuffer-size: 2048\n")

		if err := applyConfigFile(path, cmd.Flags()); err != nil {
			t.Fatalf("expected not to receive error: got '%v'", err)
		}

		for name, want := range map[string]string{
			"port":        "9000",
			"host":        "0.0.0.0",
			"debug":       "true",
			"buffer-size": "2048",
		} {
			if got := cmd.Flags().Lookup(name).Value.String(); got != want {
				t.Errorf("expected %s: got '%s', want '%s'", name, got, want)
			}
		}
	})

	t.Run("Test unknown key", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "workers: 4\n")

		err := applyConfigFile(path, rootCmd().Flags())
		if err == nil || !strings.Contains(err.Error(), "unknown config key") {
			t.Errorf("expected unknown key error: got '%v'", err)
		}
	})

	t.Run("Test nested value", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "host:\n  name: localhost\n")

		err := applyConfigFile(path, rootCmd().Flags())
		if err == nil || !strings.Contains(err.Error(), "must be a scalar") {
			t.Errorf("expected scalar error: got '%v'", err)
		}
	})

	t.Run("Test invalid value", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "buffer-size: lots\n")

		if err := applyConfigFile(path, rootCmd().Flags()); err == nil {
			t.Errorf("expected to receive error")
		}
	})

	t.Run("Test missing file", func(t *testing.T) {
		t.Parallel()

		if err := applyConfigFile("/does/not/exist.yaml", rootCmd().Flags()); err == nil {
			t.Errorf("expected to receive error")
		}
	})
}
