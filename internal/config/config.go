// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keymgmt.
//
// go-keymgmt is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt"
)

// Config represents the complete tool configuration
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Generation GenerationConfig `yaml:"generation"`
	Algorithms AlgorithmsConfig `yaml:"algorithms"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GenerationConfig contains defaults applied when a generation request
// does not specify its own parameters
type GenerationConfig struct {
	Algorithm string    `yaml:"algorithm"`
	RSA       RSAConfig `yaml:"rsa"`
	EC        ECConfig  `yaml:"ec"`
	FFC       FFCConfig `yaml:"ffc"`
}

// RSAConfig contains RSA generation defaults
type RSAConfig struct {
	Bits   int `yaml:"bits"`
	Primes int `yaml:"primes"`
}

// ECConfig contains EC generation defaults
type ECConfig struct {
	Curve string `yaml:"curve"`
}

// FFCConfig contains DSA/DH domain parameter generation defaults
type FFCConfig struct {
	PBits int `yaml:"pbits"`
	QBits int `yaml:"qbits"`
}

// AlgorithmsConfig controls which algorithm families are registered
type AlgorithmsConfig struct {
	Enabled  []string `yaml:"enabled,omitempty"`
	Disabled []string `yaml:"disabled,omitempty"`
}

// DefaultConfig returns the configuration used when no file is supplied
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Generation: GenerationConfig{
			Algorithm: string(keymgmt.AlgorithmRSA),
			RSA:       RSAConfig{Bits: 2048, Primes: 2},
			EC:        ECConfig{Curve: "P-256"},
			FFC:       FFCConfig{PBits: 2048, QBits: 256},
		},
	}
}

// Load reads configuration from a YAML file and applies environment variable overrides
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		// #nosec G304 - Config file path is provided by admin/user
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	// Logging
	if level := os.Getenv("KEYMGMT_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("KEYMGMT_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	// Generation defaults
	if alg := os.Getenv("KEYMGMT_ALGORITHM"); alg != "" {
		cfg.Generation.Algorithm = alg
	}
	if bits := os.Getenv("KEYMGMT_RSA_BITS"); bits != "" {
		n, err := strconv.Atoi(bits)
		if err != nil {
			log.Printf("Warning: invalid KEYMGMT_RSA_BITS value %q, using default %d: %v",
				bits, cfg.Generation.RSA.Bits, err)
		} else {
			cfg.Generation.RSA.Bits = n
		}
	}
	if curve := os.Getenv("KEYMGMT_EC_CURVE"); curve != "" {
		cfg.Generation.EC.Curve = curve
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Generation.Algorithm != "" {
		if !validAlgorithm(c.Generation.Algorithm) {
			return fmt.Errorf("unknown algorithm: %s", c.Generation.Algorithm)
		}
	}
	if c.Generation.RSA.Bits != 0 && c.Generation.RSA.Bits < 512 {
		return fmt.Errorf("rsa bits must be at least 512: %d", c.Generation.RSA.Bits)
	}
	if c.Generation.RSA.Primes != 0 && (c.Generation.RSA.Primes < 2 || c.Generation.RSA.Primes > 10) {
		return fmt.Errorf("rsa primes must be between 2 and 10: %d", c.Generation.RSA.Primes)
	}

	for _, name := range c.Algorithms.Enabled {
		if !validAlgorithm(name) {
			return fmt.Errorf("unknown algorithm in enabled list: %s", name)
		}
	}
	for _, name := range c.Algorithms.Disabled {
		if !validAlgorithm(name) {
			return fmt.Errorf("unknown algorithm in disabled list: %s", name)
		}
	}

	return nil
}

// AlgorithmEnabled reports whether the named algorithm family should be
// registered. Disabled takes precedence over Enabled; an empty Enabled
// list means all algorithms are enabled.
func (c *Config) AlgorithmEnabled(alg keymgmt.Algorithm) bool {
	for _, name := range c.Algorithms.Disabled {
		if keymgmt.Algorithm(name) == alg {
			return false
		}
	}
	if len(c.Algorithms.Enabled) == 0 {
		return true
	}
	for _, name := range c.Algorithms.Enabled {
		if keymgmt.Algorithm(name) == alg {
			return true
		}
	}
	return false
}

func validAlgorithm(name string) bool {
	switch keymgmt.Algorithm(name) {
	case keymgmt.AlgorithmRSA, keymgmt.AlgorithmDSA, keymgmt.AlgorithmDH,
		keymgmt.AlgorithmEC, keymgmt.AlgorithmX25519, keymgmt.AlgorithmX448,
		keymgmt.AlgorithmED25519, keymgmt.AlgorithmED448:
		return true
	}
	return false
}
