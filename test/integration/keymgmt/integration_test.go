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

//go:build integration

package keymgmt

import (
	"crypto"
	stded25519 "crypto/ed25519"
	"crypto/rand"
	stdrsa "crypto/rsa"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt"
	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt/ec"
	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt/ecx"
	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt/eddsa"
	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt/ffc"
	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt/rsa"
	"github.com/jeremyhahn/go-keymgmt/pkg/metrics"
	"github.com/jeremyhahn/go-keymgmt/pkg/params"
)

// newRegistry builds a registry with every algorithm family, each manager
// wrapped with metrics the way the CLI wires them.
func newRegistry(t *testing.T) *keymgmt.Registry {
	t.Helper()

	registry := keymgmt.NewRegistry()
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
	for _, km := range managers {
		require.NoError(t, registry.Register(metrics.Instrument(km)))
	}
	return registry
}

func generate(t *testing.T, km keymgmt.KeyManager, ps params.Params) keymgmt.Key {
	t.Helper()

	genCtx, err := km.NewGeneration(keymgmt.SelectKeypair)
	require.NoError(t, err)
	defer genCtx.Close()

	if ps != nil {
		require.NoError(t, genCtx.SetParams(ps))
	}
	key, err := genCtx.Generate(nil)
	require.NoError(t, err)
	return key
}

// TestRegistryServesAllFamiliesIntegration exercises generate and validate
// through the registry for every registered algorithm.
func TestRegistryServesAllFamiliesIntegration(t *testing.T) {
	registry := newRegistry(t)
	require.Len(t, registry.Algorithms(), 8)

	for _, alg := range registry.Algorithms() {
		if alg == keymgmt.AlgorithmDSA || alg == keymgmt.AlgorithmDH {
			// Finite-field domain generation is exercised separately
			continue
		}

		km, err := registry.Get(alg)
		require.NoError(t, err)

		key := generate(t, km, nil)
		assert.Equal(t, alg, key.Algorithm())
		require.NoError(t, km.Validate(key, keymgmt.SelectKeypair), "alg %s", alg)
		km.Free(key)
	}
}

// TestRSAExportInteropIntegration verifies that an exported RSA keypair
// reconstructs a working crypto/rsa signer.
func TestRSAExportInteropIntegration(t *testing.T) {
	registry := newRegistry(t)
	km, err := registry.Get(keymgmt.AlgorithmRSA)
	require.NoError(t, err)

	key := generate(t, km, params.Params{
		params.NewInt(rsa.GenParamBits, 2048),
	})
	defer km.Free(key)

	var exported params.Params
	require.NoError(t, km.Export(key, keymgmt.SelectKeypair, func(ps params.Params) error {
		exported = append(params.Params{}, ps...)
		return nil
	}))

	n, ok := exported.Get(rsa.ParamN)
	require.True(t, ok)
	nVal, err := n.Uint()
	require.NoError(t, err)

	e, ok := exported.Get(rsa.ParamE)
	require.True(t, ok)
	eVal, err := e.Uint()
	require.NoError(t, err)

	d, ok := exported.Get(rsa.ParamD)
	require.True(t, ok)
	dVal, err := d.Uint()
	require.NoError(t, err)

	signer := &stdrsa.PrivateKey{
		PublicKey: stdrsa.PublicKey{N: nVal, E: int(eVal.Int64())},
		D:         dVal,
	}
	signer.Precompute()

	digest := sha256.Sum256([]byte("keymgmt integration"))
	sig, err := stdrsa.SignPKCS1v15(rand.Reader, signer, crypto.SHA256, digest[:])
	require.NoError(t, err)
	require.NoError(t, stdrsa.VerifyPKCS1v15(&signer.PublicKey, crypto.SHA256, digest[:], sig))
}

// TestEd25519ExportInteropIntegration verifies that an exported seed drives
// the stdlib signer and verifies under the exported public key.
func TestEd25519ExportInteropIntegration(t *testing.T) {
	registry := newRegistry(t)
	km, err := registry.Get(keymgmt.AlgorithmED25519)
	require.NoError(t, err)

	key := generate(t, km, nil)
	defer km.Free(key)

	var exported params.Params
	require.NoError(t, km.Export(key, keymgmt.SelectKeypair, func(ps params.Params) error {
		exported = append(params.Params{}, ps...)
		return nil
	}))

	seed, ok := exported.Get(keymgmt.ParamPriv)
	require.True(t, ok)
	seedBytes, err := seed.Octets()
	require.NoError(t, err)

	pub, ok := exported.Get(keymgmt.ParamPub)
	require.True(t, ok)
	pubBytes, err := pub.Octets()
	require.NoError(t, err)

	msg := []byte("keymgmt integration")
	sig := stded25519.Sign(stded25519.NewKeyFromSeed(seedBytes), msg)
	assert.True(t, stded25519.Verify(stded25519.PublicKey(pubBytes), msg, sig))
}

// TestKeyTransferAcrossObjectsIntegration walks every keypair-bearing
// family through export, import into a fresh object, and match.
func TestKeyTransferAcrossObjectsIntegration(t *testing.T) {
	registry := newRegistry(t)

	for _, alg := range []keymgmt.Algorithm{
		keymgmt.AlgorithmRSA,
		keymgmt.AlgorithmEC,
		keymgmt.AlgorithmX25519,
		keymgmt.AlgorithmX448,
		keymgmt.AlgorithmED25519,
		keymgmt.AlgorithmED448,
	} {
		km, err := registry.Get(alg)
		require.NoError(t, err)

		var ps params.Params
		if alg == keymgmt.AlgorithmRSA {
			ps = params.Params{params.NewInt(rsa.GenParamBits, 1024)}
		}
		src := generate(t, km, ps)

		sel := keymgmt.SelectKeypair
		if alg == keymgmt.AlgorithmEC {
			sel |= keymgmt.SelectDomainParameters
		}

		var exported params.Params
		require.NoError(t, km.Export(src, sel, func(ps params.Params) error {
			exported = append(params.Params{}, ps...)
			return nil
		}))

		dst, err := km.New()
		require.NoError(t, err)

		require.NoError(t, km.Import(dst, sel, exported), "alg %s", alg)

		equal, err := km.Match(src, dst, keymgmt.SelectKeypair)
		require.NoError(t, err)
		assert.True(t, equal, "alg %s", alg)

		km.Free(src)
		km.Free(dst)
	}
}

// TestFFCSharedDomainIntegration generates DH domain parameters, then
// derives keypairs through a template and checks they share the domain.
func TestFFCSharedDomainIntegration(t *testing.T) {
	registry := newRegistry(t)
	km, err := registry.Get(keymgmt.AlgorithmDH)
	require.NoError(t, err)

	genCtx, err := km.NewGeneration(keymgmt.SelectDomainParameters)
	require.NoError(t, err)
	require.NoError(t, genCtx.SetParams(params.Params{
		params.NewInt(ffc.GenParamPBits, 1024),
		params.NewInt(ffc.GenParamQBits, 160),
	}))
	domain, err := genCtx.Generate(nil)
	genCtx.Close()
	require.NoError(t, err)
	defer km.Free(domain)

	keyCtx, err := km.NewGeneration(keymgmt.SelectKeypair)
	require.NoError(t, err)
	require.NoError(t, keyCtx.SetTemplate(domain))

	// A generation context is reusable across Generate calls
	a, err := keyCtx.Generate(nil)
	require.NoError(t, err)
	defer km.Free(a)
	b, err := keyCtx.Generate(nil)
	require.NoError(t, err)
	defer km.Free(b)
	keyCtx.Close()

	shared, err := km.Match(a, b, keymgmt.SelectDomainParameters)
	require.NoError(t, err)
	assert.True(t, shared)

	distinct, err := km.Match(a, b, keymgmt.SelectPublicKey)
	require.NoError(t, err)
	assert.False(t, distinct)

	require.NoError(t, km.Validate(a, keymgmt.SelectKeypair|keymgmt.SelectDomainParameters))
}
