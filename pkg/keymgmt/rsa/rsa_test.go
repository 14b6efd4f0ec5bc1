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

package rsa

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt"
	"github.com/jeremyhahn/go-keymgmt/pkg/params"
)

// foreignKey is a key object of another algorithm family.
type foreignKey struct{}

func (foreignKey) Algorithm() keymgmt.Algorithm { return keymgmt.AlgorithmEC }

// generateTestKey produces an RSA keypair of the given size.
func generateTestKey(t *testing.T, m *Manager, bits int) keymgmt.Key {
	t.Helper()

	genCtx, err := m.NewGeneration(keymgmt.SelectKeypair)
	require.NoError(t, err)
	defer genCtx.Close()

	require.NoError(t, genCtx.SetParams(params.Params{
		params.NewInt(GenParamBits, int64(bits)),
	}))

	key, err := genCtx.Generate(nil)
	require.NoError(t, err)
	return key
}

// exportAll exports the selected subsets into a retained parameter list.
func exportAll(t *testing.T, m *Manager, key keymgmt.Key, sel keymgmt.Selection) params.Params {
	t.Helper()

	var out params.Params
	err := m.Export(key, sel, func(ps params.Params) error {
		out = append(params.Params{}, ps...)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestGenerateModulusSize(t *testing.T) {
	m := NewManager()
	key := generateTestKey(t, m, 2048)
	defer m.Free(key)

	ps := params.Params{params.Request(keymgmt.ParamBits, params.KindInteger)}
	require.NoError(t, m.GetParams(key, ps))

	bits, err := ps[0].Int()
	require.NoError(t, err)
	assert.Equal(t, int64(2048), bits)

	require.NoError(t, m.Validate(key, keymgmt.SelectKeypair))
}

func TestGenerateSizeParams(t *testing.T) {
	m := NewManager()
	key := generateTestKey(t, m, 1024)
	defer m.Free(key)

	ps := params.Params{
		params.Request(keymgmt.ParamMaxSize, params.KindInteger),
		params.Request(keymgmt.ParamSecurityBits, params.KindInteger),
	}
	require.NoError(t, m.GetParams(key, ps))

	maxSize, err := ps[0].Int()
	require.NoError(t, err)
	assert.Equal(t, int64(128), maxSize)

	secBits, err := ps[1].Int()
	require.NoError(t, err)
	assert.Equal(t, int64(80), secBits)
}

func TestGenerateRejectsBadParams(t *testing.T) {
	m := NewManager()
	genCtx, err := m.NewGeneration(keymgmt.SelectKeypair)
	require.NoError(t, err)
	defer genCtx.Close()

	err = genCtx.SetParams(params.Params{params.NewInt(GenParamBits, 256)})
	assert.ErrorIs(t, err, keymgmt.ErrInvalidKey)

	err = genCtx.SetParams(params.Params{params.NewInt(GenParamPrimes, 1)})
	assert.ErrorIs(t, err, keymgmt.ErrInvalidKey)

	err = genCtx.SetParams(params.Params{params.NewInt(GenParamPrimes, 11)})
	assert.ErrorIs(t, err, keymgmt.ErrInvalidKey)

	// A failed SetParams leaves the staged configuration unchanged
	key, err := genCtx.Generate(nil)
	require.NoError(t, err)
	defer m.Free(key)
	require.NoError(t, m.Validate(key, keymgmt.SelectKeypair))
}

func TestGenerateIgnoresUnknownParams(t *testing.T) {
	m := NewManager()
	genCtx, err := m.NewGeneration(keymgmt.SelectKeypair)
	require.NoError(t, err)
	defer genCtx.Close()

	err = genCtx.SetParams(params.Params{
		params.NewInt("rsa-bogus", 1),
		params.NewInt(GenParamBits, 512),
	})
	assert.NoError(t, err)
}

func TestGenerateForeignTemplateFailsGenerate(t *testing.T) {
	m := NewManager()
	genCtx, err := m.NewGeneration(keymgmt.SelectKeypair)
	require.NoError(t, err)
	defer genCtx.Close()

	// The mismatch surfaces at generate time, not at set-template
	require.NoError(t, genCtx.SetTemplate(foreignKey{}))

	_, err = genCtx.Generate(nil)
	assert.ErrorIs(t, err, keymgmt.ErrTemplateAlgorithm)

	// Replacing the template clears the failure
	require.NoError(t, genCtx.SetTemplate(nil))
	key, err := genCtx.Generate(nil)
	require.NoError(t, err)
	m.Free(key)
}

func TestGenerateAfterClose(t *testing.T) {
	m := NewManager()
	genCtx, err := m.NewGeneration(keymgmt.SelectKeypair)
	require.NoError(t, err)

	genCtx.Close()

	_, err = genCtx.Generate(nil)
	assert.ErrorIs(t, err, keymgmt.ErrContextClosed)
	assert.ErrorIs(t, genCtx.SetParams(nil), keymgmt.ErrContextClosed)
	assert.ErrorIs(t, genCtx.SetTemplate(nil), keymgmt.ErrContextClosed)
}

func TestGenerateProgressCallback(t *testing.T) {
	m := NewManager()
	genCtx, err := m.NewGeneration(keymgmt.SelectKeypair)
	require.NoError(t, err)
	defer genCtx.Close()

	require.NoError(t, genCtx.SetParams(params.Params{
		params.NewInt(GenParamBits, 512),
	}))

	var calls int
	key, err := genCtx.Generate(func(stage, iteration int) { calls++ })
	require.NoError(t, err)
	defer m.Free(key)

	assert.Greater(t, calls, 0)
}

func TestNewGenerationRequiresKeyMaterial(t *testing.T) {
	m := NewManager()
	_, err := m.NewGeneration(keymgmt.SelectDomainParameters)
	assert.ErrorIs(t, err, keymgmt.ErrMissingSelection)
}

func TestImportExportRoundTrip(t *testing.T) {
	m := NewManager()
	src := generateTestKey(t, m, 512)
	defer m.Free(src)

	exported := exportAll(t, m, src, keymgmt.SelectKeypair)
	assert.True(t, exported.Has(ParamN))
	assert.True(t, exported.Has(ParamD))
	assert.True(t, exported.Has(FactorName(1)))
	assert.True(t, exported.Has(ExponentName(1)))
	assert.True(t, exported.Has(CoefficientName(1)))

	dst, err := m.New()
	require.NoError(t, err)
	defer m.Free(dst)

	require.NoError(t, m.Import(dst, keymgmt.SelectKeypair, exported))
	require.NoError(t, m.Validate(dst, keymgmt.SelectKeypair))

	equal, err := m.Match(src, dst, keymgmt.SelectKeypair)
	require.NoError(t, err)
	assert.True(t, equal)
}

func TestImportPublicOnly(t *testing.T) {
	m := NewManager()
	src := generateTestKey(t, m, 512)
	defer m.Free(src)

	exported := exportAll(t, m, src, keymgmt.SelectPublicKey)
	assert.False(t, exported.Has(ParamD))

	dst, err := m.New()
	require.NoError(t, err)
	defer m.Free(dst)

	require.NoError(t, m.Import(dst, keymgmt.SelectPublicKey, exported))
	assert.True(t, m.Has(dst, keymgmt.SelectPublicKey))
	assert.False(t, m.Has(dst, keymgmt.SelectPrivateKey))
	require.NoError(t, m.Validate(dst, keymgmt.SelectPublicKey))
}

func TestImportRejectsUnknownName(t *testing.T) {
	m := NewManager()
	src := generateTestKey(t, m, 512)
	defer m.Free(src)

	exported := exportAll(t, m, src, keymgmt.SelectPublicKey)

	dst, err := m.New()
	require.NoError(t, err)
	defer m.Free(dst)
	require.NoError(t, m.Import(dst, keymgmt.SelectPublicKey, exported))

	// A name outside the accepted types fails the whole call and leaves
	// the key unchanged
	before := exportAll(t, m, dst, keymgmt.SelectPublicKey)
	bad := append(params.Params{}, exported...)
	bad = append(bad, params.NewUint("rsa-bogus", big.NewInt(1)))

	err = m.Import(dst, keymgmt.SelectPublicKey, bad)
	assert.ErrorIs(t, err, keymgmt.ErrUnknownParam)

	after := exportAll(t, m, dst, keymgmt.SelectPublicKey)
	assert.Equal(t, before, after)
}

func TestImportPrivateNameRejectedForPublicSelection(t *testing.T) {
	m := NewManager()
	src := generateTestKey(t, m, 512)
	defer m.Free(src)

	exported := exportAll(t, m, src, keymgmt.SelectKeypair)

	dst, err := m.New()
	require.NoError(t, err)
	defer m.Free(dst)

	// d is not an accepted name when only the public subset is selected
	err = m.Import(dst, keymgmt.SelectPublicKey, exported)
	assert.ErrorIs(t, err, keymgmt.ErrUnknownParam)
}

func TestImportRequiresMandatoryFields(t *testing.T) {
	m := NewManager()
	dst, err := m.New()
	require.NoError(t, err)
	defer m.Free(dst)

	err = m.Import(dst, keymgmt.SelectPublicKey, params.Params{
		params.NewUint(ParamN, big.NewInt(12345)),
	})
	assert.ErrorIs(t, err, keymgmt.ErrComponentMissing)
}

func TestExportRejectsNonCoprimeFactors(t *testing.T) {
	m := NewManager()
	key, err := m.New()
	require.NoError(t, err)
	defer m.Free(key)

	// 3233 = 61*53, but 6 and 9 share a factor of 3, so the CRT
	// coefficient q^-1 mod p does not exist
	err = m.Import(key, keymgmt.SelectKeypair, params.Params{
		params.NewUint(ParamN, big.NewInt(3233)),
		params.NewUint(ParamE, big.NewInt(17)),
		params.NewUint(ParamD, big.NewInt(413)),
		params.NewUint(FactorName(1), big.NewInt(6)),
		params.NewUint(FactorName(2), big.NewInt(9)),
	})
	require.NoError(t, err)

	err = m.Export(key, keymgmt.SelectKeypair, func(params.Params) error {
		t.Fatal("consumer must not run for a corrupt CRT form")
		return nil
	})
	assert.ErrorIs(t, err, keymgmt.ErrInvalidKey)

	// The public half is unaffected
	exported := exportAll(t, m, key, keymgmt.SelectPublicKey)
	assert.True(t, exported.Has(ParamN))
}

func TestExportRejectsUnitFactor(t *testing.T) {
	m := NewManager()
	key, err := m.New()
	require.NoError(t, err)
	defer m.Free(key)

	err = m.Import(key, keymgmt.SelectKeypair, params.Params{
		params.NewUint(ParamN, big.NewInt(3233)),
		params.NewUint(ParamE, big.NewInt(17)),
		params.NewUint(ParamD, big.NewInt(413)),
		params.NewUint(FactorName(1), big.NewInt(1)),
		params.NewUint(FactorName(2), big.NewInt(53)),
	})
	require.NoError(t, err)

	err = m.Export(key, keymgmt.SelectKeypair, func(params.Params) error { return nil })
	assert.ErrorIs(t, err, keymgmt.ErrInvalidKey)
}

func TestExportWithoutFactorsOmitsCRTNames(t *testing.T) {
	m := NewManager()
	src := generateTestKey(t, m, 512)
	defer m.Free(src)

	full := exportAll(t, m, src, keymgmt.SelectKeypair)

	var bare params.Params
	for _, p := range full {
		switch p.Name {
		case ParamN, ParamE, ParamD:
			bare = append(bare, p)
		}
	}

	stripped, err := m.New()
	require.NoError(t, err)
	defer m.Free(stripped)
	require.NoError(t, m.Import(stripped, keymgmt.SelectKeypair, bare))

	exported := exportAll(t, m, stripped, keymgmt.SelectKeypair)
	assert.ElementsMatch(t, []string{ParamN, ParamE, ParamD}, exported.Names())
}

func TestSetParamsIgnoresUnknown(t *testing.T) {
	m := NewManager()
	key, err := m.New()
	require.NoError(t, err)
	defer m.Free(key)

	// RSA recognizes no settable names; unknown names are ignored
	require.NoError(t, m.SetParams(key, params.Params{
		params.NewInt("rsa-bogus", 1),
	}))
}

func TestGetParamsLeavesUnknownUnfilled(t *testing.T) {
	m := NewManager()
	key := generateTestKey(t, m, 512)
	defer m.Free(key)

	ps := params.Params{
		params.Request("rsa-bogus", params.KindInteger),
		params.Request(keymgmt.ParamBits, params.KindInteger),
	}
	require.NoError(t, m.GetParams(key, ps))
	assert.False(t, ps[0].IsSet())
	assert.True(t, ps[1].IsSet())
}

func TestGetParamsMandatoryFailsOnEmptyKey(t *testing.T) {
	m := NewManager()
	key, err := m.New()
	require.NoError(t, err)
	defer m.Free(key)

	ps := params.Params{params.Request(keymgmt.ParamBits, params.KindInteger)}
	err = m.GetParams(key, ps)
	assert.ErrorIs(t, err, keymgmt.ErrComponentMissing)
}

func TestValidateKeypairMismatch(t *testing.T) {
	m := NewManager()
	src := generateTestKey(t, m, 512)
	defer m.Free(src)

	exported := exportAll(t, m, src, keymgmt.SelectKeypair)

	// Corrupt d; drop the CRT components so the pairwise probe runs
	var tampered params.Params
	for _, p := range exported {
		switch p.Name {
		case ParamN, ParamE:
			tampered = append(tampered, p)
		case ParamD:
			v, err := p.Uint()
			require.NoError(t, err)
			v.Add(v, big.NewInt(2))
			tampered = append(tampered, params.NewUint(ParamD, v))
		}
	}

	dst, err := m.New()
	require.NoError(t, err)
	defer m.Free(dst)
	require.NoError(t, m.Import(dst, keymgmt.SelectKeypair, tampered))

	err = m.Validate(dst, keymgmt.SelectKeypair)
	assert.ErrorIs(t, err, keymgmt.ErrKeypairMismatch)
}

func TestValidateRejectsParameterSelections(t *testing.T) {
	m := NewManager()
	key := generateTestKey(t, m, 512)
	defer m.Free(key)

	err := m.Validate(key, keymgmt.SelectDomainParameters)
	assert.ErrorIs(t, err, keymgmt.ErrComponentMissing)
}

func TestHas(t *testing.T) {
	m := NewManager()
	empty, err := m.New()
	require.NoError(t, err)
	defer m.Free(empty)

	assert.False(t, m.Has(empty, keymgmt.SelectPublicKey))
	assert.False(t, m.Has(empty, 0))

	key := generateTestKey(t, m, 512)
	defer m.Free(key)

	assert.True(t, m.Has(key, keymgmt.SelectKeypair))
	assert.False(t, m.Has(key, keymgmt.SelectDomainParameters))
}

func TestMatchPublicOnly(t *testing.T) {
	m := NewManager()
	a := generateTestKey(t, m, 512)
	defer m.Free(a)
	b := generateTestKey(t, m, 512)
	defer m.Free(b)

	equal, err := m.Match(a, b, keymgmt.SelectPublicKey)
	require.NoError(t, err)
	assert.False(t, equal)

	equal, err = m.Match(a, a, keymgmt.SelectPublicKey)
	require.NoError(t, err)
	assert.True(t, equal)
}

func TestMatchPrivateComparesFactors(t *testing.T) {
	m := NewManager()
	src := generateTestKey(t, m, 512)
	defer m.Free(src)

	full := exportAll(t, m, src, keymgmt.SelectKeypair)

	var bare params.Params
	for _, p := range full {
		switch p.Name {
		case ParamN, ParamE, ParamD:
			bare = append(bare, p)
		}
	}

	stripped, err := m.New()
	require.NoError(t, err)
	defer m.Free(stripped)
	require.NoError(t, m.Import(stripped, keymgmt.SelectKeypair, bare))

	// Same public half, same d, but one side lost its factors
	equal, err := m.Match(src, stripped, keymgmt.SelectPublicKey)
	require.NoError(t, err)
	assert.True(t, equal)

	equal, err = m.Match(src, stripped, keymgmt.SelectKeypair)
	require.NoError(t, err)
	assert.False(t, equal)
}

func TestCopy(t *testing.T) {
	m := NewManager()
	src := generateTestKey(t, m, 512)
	defer m.Free(src)

	dst, err := m.New()
	require.NoError(t, err)
	defer m.Free(dst)

	require.NoError(t, m.Copy(dst, src, keymgmt.SelectKeypair))

	equal, err := m.Match(src, dst, keymgmt.SelectKeypair)
	require.NoError(t, err)
	assert.True(t, equal)
}

func TestCopySelfFails(t *testing.T) {
	m := NewManager()
	key := generateTestKey(t, m, 512)
	defer m.Free(key)

	err := m.Copy(key, key, keymgmt.SelectKeypair)
	assert.ErrorIs(t, err, keymgmt.ErrSelfCopy)
}

func TestWrongAlgorithmKeyRejected(t *testing.T) {
	m := NewManager()

	err := m.Validate(foreignKey{}, keymgmt.SelectPublicKey)
	assert.ErrorIs(t, err, keymgmt.ErrWrongAlgorithm)

	err = m.GetParams(foreignKey{}, nil)
	assert.ErrorIs(t, err, keymgmt.ErrWrongAlgorithm)

	err = m.GetParams(nil, nil)
	assert.ErrorIs(t, err, keymgmt.ErrKeyRequired)
}

func TestFreeNilIsNoop(t *testing.T) {
	m := NewManager()
	m.Free(nil)
}

func TestCapabilitiesSatisfyContract(t *testing.T) {
	assert.NoError(t, keymgmt.ValidateCapabilities(NewManager()))
}

func TestIndexedNames(t *testing.T) {
	assert.Equal(t, "rsa-factor1", FactorName(1))
	assert.Equal(t, "rsa-exponent2", ExponentName(2))
	assert.Equal(t, "rsa-coefficient9", CoefficientName(9))
}
