package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type config struct {
	configPath string

	host       string
	port       string
	debug      bool
	certPath   string
	keyPath    string
	caCertPath string

	bufferSize  int
	memoryLimit int64
}

func (c *config) validate() error {
	port, err := strconv.Atoi(c.port)
	if err != nil {
		return fmt.Errorf("port string to number: %w", err)
	}

	if port < 0 || port > 65535 {
		return errors.New("port must be in valid range")
	}

	if c.bufferSize < 1 {
		return errors.New("buffer-size must be positive")
	}

	if c.memoryLimit < int64(c.bufferSize) {
		return errors.New("memory-limit must be at least buffer-size")
	}

	if c.certPath == "" {
		return errors.New("cert-path cannot be empty")
	}

	if _, err := os.Stat(c.certPath); err != nil {
		return fmt.Errorf("failed to stat cert-path: %w", err)
	}

	if c.keyPath == "" {
		return errors.New("key-path cannot be empty")
	}

	if _, err := os.Stat(c.keyPath); err != nil {
		return fmt.Errorf("failed to stat key-path: %w", err)
	}

	if c.caCertPath == "" {
		return errors.New("ca-cert-path cannot be empty")
	}

	if _, err := os.Stat(c.caCertPath); err != nil {
		return fmt.Errorf("failed to stat ca-cert-path: %w", err)
	}

	return nil
}

// applyConfigFile sets every flag named in the YAML file at path that wasn't
// given on the command line. Keys are flag names.
func applyConfigFile(path string, flags *pflag.FlagSet) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	for name, value := range values {
		f := flags.Lookup(name)
		if f == nil || name == "config" {
			return fmt.Errorf("unknown config key '%s'", name)
		}

		if f.Changed {
			continue
		}

		switch value.(type) {
		case map[string]any, []any, nil:
			return fmt.Errorf("config key '%s' must be a scalar", name)
		}

		if err := flags.Set(name, fmt.Sprint(value)); err != nil {
			return fmt.Errorf("config key '%s': %w", name, err)
		}
	}

	return nil
}
