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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "RSA", cfg.Generation.Algorithm)
	assert.Equal(t, 2048, cfg.Generation.RSA.Bits)
	assert.Equal(t, 2, cfg.Generation.RSA.Primes)
	assert.Equal(t, "P-256", cfg.Generation.EC.Curve)
	assert.Equal(t, 2048, cfg.Generation.FFC.PBits)
	assert.Equal(t, 256, cfg.Generation.FFC.QBits)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
generation:
  algorithm: EC
  ec:
    curve: P-384
algorithms:
  disabled:
    - DSA
    - DH
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "EC", cfg.Generation.Algorithm)
	assert.Equal(t, "P-384", cfg.Generation.EC.Curve)

	// Values not present in the file keep their defaults
	assert.Equal(t, 2048, cfg.Generation.RSA.Bits)

	assert.False(t, cfg.AlgorithmEnabled(keymgmt.AlgorithmDSA))
	assert.False(t, cfg.AlgorithmEnabled(keymgmt.AlgorithmDH))
	assert.True(t, cfg.AlgorithmEnabled(keymgmt.AlgorithmEC))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeConfig(t, "logging: [not a mapping")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KEYMGMT_LOG_LEVEL", "warn")
	t.Setenv("KEYMGMT_ALGORITHM", "ED25519")
	t.Setenv("KEYMGMT_RSA_BITS", "3072")
	t.Setenv("KEYMGMT_EC_CURVE", "P-521")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "ED25519", cfg.Generation.Algorithm)
	assert.Equal(t, 3072, cfg.Generation.RSA.Bits)
	assert.Equal(t, "P-521", cfg.Generation.EC.Curve)
}

func TestEnvOverrideInvalidBitsKeepsDefault(t *testing.T) {
	t.Setenv("KEYMGMT_RSA_BITS", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2048, cfg.Generation.RSA.Bits)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"unknown algorithm", func(c *Config) { c.Generation.Algorithm = "SPHINCS" }},
		{"rsa bits too small", func(c *Config) { c.Generation.RSA.Bits = 256 }},
		{"too many primes", func(c *Config) { c.Generation.RSA.Primes = 11 }},
		{"unknown enabled algorithm", func(c *Config) { c.Algorithms.Enabled = []string{"FOO"} }},
		{"unknown disabled algorithm", func(c *Config) { c.Algorithms.Disabled = []string{"BAR"} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAlgorithmEnabledPrecedence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Algorithms.Enabled = []string{"RSA", "EC"}
	cfg.Algorithms.Disabled = []string{"EC"}

	// Disabled wins over Enabled
	assert.True(t, cfg.AlgorithmEnabled(keymgmt.AlgorithmRSA))
	assert.False(t, cfg.AlgorithmEnabled(keymgmt.AlgorithmEC))

	// Not in a non-empty enabled list
	assert.False(t, cfg.AlgorithmEnabled(keymgmt.AlgorithmED448))
}
