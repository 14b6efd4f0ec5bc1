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
	"bytes"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt"
	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt/ec"
	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt/eddsa"
	"github.com/jeremyhahn/go-keymgmt/pkg/params"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		spec string
		want keymgmt.Selection
	}{
		{"private-key", keymgmt.SelectPrivateKey},
		{"public-key", keymgmt.SelectPublicKey},
		{"domain-parameters", keymgmt.SelectDomainParameters},
		{"other-parameters", keymgmt.SelectOtherParameters},
		{"keypair", keymgmt.SelectKeypair},
		{"all-parameters", keymgmt.SelectAllParameters},
		{"all", keymgmt.SelectAll},
		{"private-key,domain-parameters", keymgmt.SelectPrivateKey | keymgmt.SelectDomainParameters},
		{"public-key, keypair", keymgmt.SelectKeypair},
	}
	for _, tc := range tests {
		sel, err := ParseSelection(tc.spec)
		require.NoError(t, err, "spec %q", tc.spec)
		assert.Equal(t, tc.want, sel, "spec %q", tc.spec)
	}
}

func TestParseSelectionRejectsUnknown(t *testing.T) {
	_, err := ParseSelection("secret-key")
	assert.Error(t, err)

	_, err = ParseSelection("")
	assert.Error(t, err)

	_, err = ParseSelection(",,")
	assert.Error(t, err)
}

func TestCreateRegistryHonorsDisabledList(t *testing.T) {
	path := writeTempConfig(t, `
algorithms:
  disabled:
    - DSA
    - DH
`)
	c := &Config{ConfigFile: path, OutputFormat: "text"}

	registry, err := c.CreateRegistry()
	require.NoError(t, err)

	algs := registry.Algorithms()
	assert.Len(t, algs, 6)
	assert.NotContains(t, algs, keymgmt.AlgorithmDSA)
	assert.NotContains(t, algs, keymgmt.AlgorithmDH)
	assert.Contains(t, algs, keymgmt.AlgorithmRSA)
}

func TestResolveAlgorithm(t *testing.T) {
	c := &Config{OutputFormat: "text"}
	registry, err := c.CreateRegistry()
	require.NoError(t, err)

	km, err := c.ResolveAlgorithm(registry, "ed25519")
	require.NoError(t, err)
	assert.Equal(t, keymgmt.AlgorithmED25519, km.Algorithm())

	// Empty name falls back to the configured default
	km, err = c.ResolveAlgorithm(registry, "")
	require.NoError(t, err)
	assert.Equal(t, keymgmt.AlgorithmRSA, km.Algorithm())

	_, err = c.ResolveAlgorithm(registry, "SPHINCS")
	assert.ErrorIs(t, err, keymgmt.ErrAlgorithmNotFound)
}

func TestNewAlgorithmInfo(t *testing.T) {
	info := NewAlgorithmInfo(ec.NewManager())

	assert.Equal(t, "EC", info.Algorithm)
	assert.ElementsMatch(t, []string{"ECDSA", "ECDH"}, info.Operations)
	assert.Contains(t, info.Capabilities, "generate")
	assert.Contains(t, info.Capabilities, "import")
	assert.True(t, sortedStrings(info.Capabilities))
}

func sortedStrings(ss []string) bool {
	for i := 1; i < len(ss); i++ {
		if ss[i-1] > ss[i] {
			return false
		}
	}
	return true
}

func TestPrintKeyParamsText(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter("text", &buf)

	err := printer.PrintKeyParams("RSA", params.Params{
		params.NewUint("rsa-e", big.NewInt(65537)),
		params.NewOctets("rsa-n", []byte{0xde, 0xad}),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Algorithm: RSA")
	assert.Contains(t, out, "65537")
	assert.Contains(t, out, "dead")
}

func TestPrintKeyParamsJSON(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter("json", &buf)

	err := printer.PrintKeyParams("EC", params.Params{
		params.NewString("ec-curve-name", "P-256"),
	})
	require.NoError(t, err)

	var doc struct {
		Algorithm string            `json:"algorithm"`
		Params    map[string]string `json:"params"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "EC", doc.Algorithm)
	assert.Equal(t, "P-256", doc.Params["ec-curve-name"])
}

func TestPrintDescriptorTableJSONIncludesKind(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter("json", &buf)

	m := eddsa.NewED25519()
	err := printer.PrintDescriptorTable(DescriptorTable{
		Algorithm: string(m.Algorithm()),
		Gettable:  m.GettableParams(),
	})
	require.NoError(t, err)

	var doc struct {
		Gettable []struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		} `json:"gettable"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.NotEmpty(t, doc.Gettable)
	assert.Equal(t, "integer", doc.Gettable[0].Kind)
}

func TestRenderValue(t *testing.T) {
	assert.Equal(t, "65537", renderValue(big.NewInt(65537)))

	big257 := new(big.Int).Lsh(big.NewInt(1), 256)
	rendered, ok := renderValue(big257).(string)
	require.True(t, ok)
	assert.Contains(t, rendered, "0x1")

	assert.Equal(t, "cafe", renderValue([]byte{0xca, 0xfe}))
	assert.Equal(t, "P-256", renderValue("P-256"))
}

func TestKeyFileRoundTrip(t *testing.T) {
	km := eddsa.NewED25519()

	genCtx, err := km.NewGeneration(keymgmt.SelectKeypair)
	require.NoError(t, err)
	key, err := genCtx.Generate(nil)
	genCtx.Close()
	require.NoError(t, err)
	defer km.Free(key)

	// Write the key the way `generate -o yaml` does
	var exported params.Params
	require.NoError(t, km.Export(key, keymgmt.SelectKeypair, func(ps params.Params) error {
		exported = append(params.Params{}, ps...)
		return nil
	}))

	path := filepath.Join(t.TempDir(), "key.yaml")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, NewPrinter("yaml", f).PrintKeyParams("ED25519", exported))
	require.NoError(t, f.Close())

	registry := keymgmt.NewRegistry()
	require.NoError(t, registry.Register(km))

	km2, imported, selection, err := importKeyFile(registry, path, "")
	require.NoError(t, err)
	defer km2.Free(imported)

	// Both halves are in the file, so the inferred selection is the keypair
	assert.Equal(t, keymgmt.SelectKeypair, selection)

	equal, err := km2.Match(key, imported, keymgmt.SelectKeypair)
	require.NoError(t, err)
	assert.True(t, equal)
}

func TestLoadKeyFileRejectsMalformed(t *testing.T) {
	_, err := loadKeyFile(writeTempConfig(t, "algorithm: RSA\n"))
	assert.Error(t, err)

	_, err = loadKeyFile(writeTempConfig(t, "params:\n  n: \"1234\"\n"))
	assert.Error(t, err)

	_, err = loadKeyFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseParamValue(t *testing.T) {
	d := params.Descriptor{Name: "n", Kind: params.KindUnsignedInteger}
	p, err := parseParamValue(d, "65537")
	require.NoError(t, err)
	v, err := p.Uint()
	require.NoError(t, err)
	assert.Equal(t, int64(65537), v.Int64())

	p, err = parseParamValue(d, "0xff")
	require.NoError(t, err)
	v, err = p.Uint()
	require.NoError(t, err)
	assert.Equal(t, int64(255), v.Int64())

	_, err = parseParamValue(d, "not-a-number")
	assert.Error(t, err)

	d = params.Descriptor{Name: "pub", Kind: params.KindOctetString}
	p, err = parseParamValue(d, "cafe")
	require.NoError(t, err)
	b, err := p.Octets()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xca, 0xfe}, b)

	_, err = parseParamValue(d, "zz")
	assert.Error(t, err)
}

func TestPrinterUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter("xml", &buf)
	assert.Error(t, printer.PrintSuccess("done"))
}
