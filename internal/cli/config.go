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

package cli

import (
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-keymgmt/internal/config"
	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt"
	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt/ec"
	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt/ecx"
	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt/eddsa"
	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt/ffc"
	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt/rsa"
	"github.com/jeremyhahn/go-keymgmt/pkg/logging"
	"github.com/jeremyhahn/go-keymgmt/pkg/metrics"
)

// Config holds global CLI configuration
type Config struct {
	// ConfigFile is the path to the configuration file
	ConfigFile string

	// OutputFormat controls output formatting (text, json, yaml)
	OutputFormat string

	// Verbose enables verbose logging
	Verbose bool

	// loaded is the parsed configuration file, populated on first use
	loaded *config.Config
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		OutputFormat: "text",
		Verbose:      false,
	}
}

// Load returns the file configuration, reading it on first call.
// When no config file is given the built-in defaults are used.
func (c *Config) Load() (*config.Config, error) {
	if c.loaded != nil {
		return c.loaded, nil
	}
	cfg, err := config.Load(c.ConfigFile)
	if err != nil {
		return nil, err
	}
	c.loaded = cfg
	return cfg, nil
}

// Logger creates a logger honoring the verbose flag and config log level
func (c *Config) Logger() *logging.Logger {
	debug := c.Verbose
	if cfg, err := c.Load(); err == nil && cfg.Logging.Level == "debug" {
		debug = true
	}
	return logging.NewLogger(debug)
}

// CreateRegistry builds a registry with every enabled algorithm family,
// each manager wrapped with operation metrics.
func (c *Config) CreateRegistry() (*keymgmt.Registry, error) {
	cfg, err := c.Load()
	if err != nil {
		return nil, err
	}

	managers := []keymgmt.KeyManager{
		rsa.NewManager(),
		ffc.NewDSA(),
		ffc.NewDH(),
		ec.NewManager(),
		ecx.NewX25519(),
		ecx.NewX448(),
		eddsa.NewED25519(),
		eddsa.NewED448(),
	}

	registry := keymgmt.NewRegistry()
	for _, km := range managers {
		if !cfg.AlgorithmEnabled(km.Algorithm()) {
			printVerbose("algorithm %s disabled by configuration", km.Algorithm())
			continue
		}
		if err := registry.Register(metrics.Instrument(km)); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", km.Algorithm(), err)
		}
	}
	return registry, nil
}

// ResolveAlgorithm looks up a key manager by case-insensitive name
func (c *Config) ResolveAlgorithm(registry *keymgmt.Registry, name string) (keymgmt.KeyManager, error) {
	if name == "" {
		cfg, err := c.Load()
		if err != nil {
			return nil, err
		}
		name = cfg.Generation.Algorithm
	}
	return registry.Get(keymgmt.Algorithm(strings.ToUpper(name)))
}

// ParseSelection converts a comma-separated list of subset names into a
// selection mask.
func ParseSelection(spec string) (keymgmt.Selection, error) {
	var sel keymgmt.Selection
	for _, name := range strings.Split(spec, ",") {
		switch strings.TrimSpace(name) {
		case "private-key":
			sel |= keymgmt.SelectPrivateKey
		case "public-key":
			sel |= keymgmt.SelectPublicKey
		case "domain-parameters":
			sel |= keymgmt.SelectDomainParameters
		case "other-parameters":
			sel |= keymgmt.SelectOtherParameters
		case "keypair":
			sel |= keymgmt.SelectKeypair
		case "all-parameters":
			sel |= keymgmt.SelectAllParameters
		case "all":
			sel |= keymgmt.SelectAll
		case "":
		default:
			return 0, fmt.Errorf("unknown selection: %s", name)
		}
	}
	if sel == 0 {
		return 0, fmt.Errorf("empty selection: %s", spec)
	}
	return sel, nil
}
