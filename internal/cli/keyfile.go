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
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt"
	"github.com/jeremyhahn/go-keymgmt/pkg/params"
)

// keyFile is the on-disk form of exported key parameters, as written by
// `generate -o yaml` or `-o json`. Values are rendered strings: decimal or
// 0x-prefixed hex for integers, hex for octet strings.
type keyFile struct {
	Algorithm string            `yaml:"algorithm" json:"algorithm"`
	Params    map[string]string `yaml:"params" json:"params"`
}

// loadKeyFile reads a key parameter file. YAML is a superset of JSON, so
// one decoder handles both output formats.
func loadKeyFile(path string) (*keyFile, error) {
	// #nosec G304 - key file path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	var kf keyFile
	if err := yaml.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("failed to parse key file: %w", err)
	}
	if kf.Algorithm == "" {
		return nil, fmt.Errorf("key file has no algorithm")
	}
	if len(kf.Params) == 0 {
		return nil, fmt.Errorf("key file has no params")
	}
	return &kf, nil
}

// inferSelection derives the selection covering the named parameters by
// probing each subset's import descriptors.
func inferSelection(km keymgmt.KeyManager, names map[string]string) keymgmt.Selection {
	var sel keymgmt.Selection
	for _, subset := range []keymgmt.Selection{
		keymgmt.SelectPublicKey,
		keymgmt.SelectPrivateKey,
		keymgmt.SelectDomainParameters,
		keymgmt.SelectOtherParameters,
	} {
		for _, d := range km.ImportTypes(subset) {
			if _, ok := names[d.Name]; ok {
				sel |= subset
				break
			}
		}
	}
	return sel
}

// parseKeyParams converts the file's rendered values back into typed
// parameters using the manager's import descriptors for the selection.
func parseKeyParams(km keymgmt.KeyManager, kf *keyFile, selection keymgmt.Selection) (params.Params, error) {
	accepted := km.ImportTypes(selection)

	ps := make(params.Params, 0, len(kf.Params))
	for name, raw := range kf.Params {
		d, ok := accepted.Find(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", keymgmt.ErrUnknownParam, name)
		}
		p, err := parseParamValue(d, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		ps = append(ps, p)
	}
	return ps, nil
}

func parseParamValue(d params.Descriptor, raw string) (params.Param, error) {
	switch d.Kind {
	case params.KindUnsignedInteger:
		v := new(big.Int)
		var ok bool
		if strings.HasPrefix(raw, "0x") {
			_, ok = v.SetString(strings.TrimPrefix(raw, "0x"), 16)
		} else {
			_, ok = v.SetString(raw, 10)
		}
		if !ok {
			return params.Param{}, fmt.Errorf("invalid integer value %q", raw)
		}
		return params.NewUint(d.Name, v), nil
	case params.KindOctetString:
		b, err := hex.DecodeString(raw)
		if err != nil {
			return params.Param{}, fmt.Errorf("invalid hex value: %w", err)
		}
		return params.NewOctets(d.Name, b), nil
	case params.KindUTF8String:
		return params.NewString(d.Name, raw), nil
	case params.KindInteger:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return params.Param{}, fmt.Errorf("invalid integer value %q", raw)
		}
		return params.NewInt(d.Name, v), nil
	default:
		return params.Param{}, fmt.Errorf("unknown parameter kind")
	}
}

// importKeyFile loads path and imports its parameters into a fresh key
// object. When selectionSpec is empty the selection is inferred from the
// parameter names present in the file.
func importKeyFile(registry *keymgmt.Registry, path, selectionSpec string) (keymgmt.KeyManager, keymgmt.Key, keymgmt.Selection, error) {
	kf, err := loadKeyFile(path)
	if err != nil {
		return nil, nil, 0, err
	}

	km, err := registry.Get(keymgmt.Algorithm(strings.ToUpper(kf.Algorithm)))
	if err != nil {
		return nil, nil, 0, err
	}

	var selection keymgmt.Selection
	if selectionSpec != "" {
		selection, err = ParseSelection(selectionSpec)
		if err != nil {
			return nil, nil, 0, err
		}
	} else {
		selection = inferSelection(km, kf.Params)
		if selection == 0 {
			return nil, nil, 0, fmt.Errorf("no importable parameters in %s", path)
		}
	}

	ps, err := parseKeyParams(km, kf, selection)
	if err != nil {
		return nil, nil, 0, err
	}

	key, err := km.New()
	if err != nil {
		return nil, nil, 0, err
	}
	if err := km.Import(key, selection, ps); err != nil {
		km.Free(key)
		return nil, nil, 0, err
	}
	return km, key, selection, nil
}
