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

// Package rsa implements the key-management contract for the RSA family.
//
// Key material is exchanged through the canonical field names n, e, d,
// rsa-factor1..10, rsa-exponent1..10 and rsa-coefficient1..9. The numbered
// CRT names follow PKCS#1: factor1/factor2 are the primes p and q,
// exponent1/exponent2 are d mod p-1 and d mod q-1, and coefficient1 is
// q^-1 mod p. Multi-prime keys continue the numbering; the descriptor
// tables list the two-prime canonical set.
//
// RSA keys carry no domain or other parameters; those selections are
// always empty.
package rsa

import (
	"crypto/rand"
	stdrsa "crypto/rsa"
	"fmt"
	"math/big"

	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt"
	"github.com/jeremyhahn/go-keymgmt/pkg/params"
)

// RSA parameter names. These exact strings are the wire contract.
const (
	ParamN = "n"
	ParamE = "e"
	ParamD = "d"

	factorPrefix      = "rsa-factor"
	exponentPrefix    = "rsa-exponent"
	coefficientPrefix = "rsa-coefficient"

	maxFactors      = 10
	maxCoefficients = 9
)

// Generation parameter names.
const (
	// GenParamBits is the modulus size in bits (integer, default 2048).
	GenParamBits = keymgmt.ParamBits

	// GenParamPrimes is the number of primes (integer, default 2).
	GenParamPrimes = "primes"

	// GenParamE is the public exponent (unsigned integer, default 65537).
	GenParamE = ParamE
)

const (
	defaultBits   = 2048
	defaultPrimes = 2
	minBits       = 512
)

// FactorName returns the canonical name of the i-th prime factor (1-based).
func FactorName(i int) string {
	return fmt.Sprintf("%s%d", factorPrefix, i)
}

// ExponentName returns the canonical name of the i-th CRT exponent (1-based).
func ExponentName(i int) string {
	return fmt.Sprintf("%s%d", exponentPrefix, i)
}

// CoefficientName returns the canonical name of the i-th CRT coefficient
// (1-based).
func CoefficientName(i int) string {
	return fmt.Sprintf("%s%d", coefficientPrefix, i)
}

// key is the RSA key object. All fields are nil when the corresponding
// subset is absent; the private subset is present iff d is non-nil.
type key struct {
	n *big.Int
	e *big.Int
	d *big.Int

	// CRT components, in PKCS#1 numbering. May be empty for keys imported
	// with n/e/d only.
	factors      []*big.Int
	exponents    []*big.Int
	coefficients []*big.Int
}

// Algorithm implements keymgmt.Key.
func (k *key) Algorithm() keymgmt.Algorithm {
	return keymgmt.AlgorithmRSA
}

func (k *key) hasPublic() bool {
	return k.n != nil && k.e != nil
}

func (k *key) hasPrivate() bool {
	return k.d != nil && k.hasPublic()
}

func (k *key) wipe() {
	if k.d != nil {
		k.d.SetInt64(0)
		k.d = nil
	}
	for _, f := range k.factors {
		f.SetInt64(0)
	}
	for _, e := range k.exponents {
		e.SetInt64(0)
	}
	for _, c := range k.coefficients {
		c.SetInt64(0)
	}
	k.factors, k.exponents, k.coefficients = nil, nil, nil
	k.n, k.e = nil, nil
}

// Manager implements keymgmt.KeyManager for RSA.
type Manager struct{}

// NewManager creates the RSA key manager.
func NewManager() *Manager {
	return &Manager{}
}

// Algorithm implements keymgmt.KeyManager.
func (m *Manager) Algorithm() keymgmt.Algorithm {
	return keymgmt.AlgorithmRSA
}

// Capabilities implements keymgmt.KeyManager.
func (m *Manager) Capabilities() keymgmt.Capabilities {
	return keymgmt.Capabilities{
		Create:    true,
		Generate:  true,
		GetParams: true,
		SetParams: true,
		Import:    true,
		Export:    true,
		Copy:      true,
		Validate:  true,
		Match:     true,
	}
}

// New creates an empty RSA key object.
func (m *Manager) New() (keymgmt.Key, error) {
	return &key{}, nil
}

// Free releases a key object, wiping private material. Nil is a no-op.
func (m *Manager) Free(k keymgmt.Key) {
	rk, ok := k.(*key)
	if !ok || rk == nil {
		return
	}
	rk.wipe()
}

func (m *Manager) checked(k keymgmt.Key) (*key, error) {
	if k == nil {
		return nil, keymgmt.ErrKeyRequired
	}
	rk, ok := k.(*key)
	if !ok {
		return nil, keymgmt.ErrWrongAlgorithm
	}
	return rk, nil
}

var gettable = params.Descriptors{
	{Name: keymgmt.ParamBits, Kind: params.KindInteger, Gettable: true, Mandatory: true},
	{Name: keymgmt.ParamMaxSize, Kind: params.KindInteger, Gettable: true, Mandatory: true},
	{Name: keymgmt.ParamSecurityBits, Kind: params.KindInteger, Gettable: true, Mandatory: true},
	{Name: ParamN, Kind: params.KindUnsignedInteger, Gettable: true},
	{Name: ParamE, Kind: params.KindUnsignedInteger, Gettable: true},
	{Name: ParamD, Kind: params.KindUnsignedInteger, Gettable: true},
}

// RSA key objects expose no mutable attributes; the list is empty but
// present so set-params remains a supported (ignore-unknowns) operation.
var settable = params.Descriptors{}

var genSettable = params.Descriptors{
	{Name: GenParamBits, Kind: params.KindInteger, Settable: true},
	{Name: GenParamPrimes, Kind: params.KindInteger, Settable: true},
	{Name: GenParamE, Kind: params.KindUnsignedInteger, Settable: true},
}

// GettableParams implements keymgmt.KeyManager.
func (m *Manager) GettableParams() params.Descriptors {
	return gettable
}

// SettableParams implements keymgmt.KeyManager.
func (m *Manager) SettableParams() params.Descriptors {
	return settable
}

// GenSettableParams implements keymgmt.KeyManager.
func (m *Manager) GenSettableParams() params.Descriptors {
	return genSettable
}

// GetParams fills requested entries from the key. The size parameters are
// mandatory: requesting them from an empty key fails.
func (m *Manager) GetParams(k keymgmt.Key, ps params.Params) error {
	rk, err := m.checked(k)
	if err != nil {
		return err
	}
	for i := range ps {
		p := &ps[i]
		switch p.Name {
		case keymgmt.ParamBits, keymgmt.ParamMaxSize, keymgmt.ParamSecurityBits:
			if rk.n == nil {
				return fmt.Errorf("%w: %s requires a populated key", keymgmt.ErrComponentMissing, p.Name)
			}
			bits := rk.n.BitLen()
			var v int64
			switch p.Name {
			case keymgmt.ParamBits:
				v = int64(bits)
			case keymgmt.ParamMaxSize:
				v = int64((bits + 7) / 8)
			case keymgmt.ParamSecurityBits:
				v = int64(keymgmt.SecurityBits(bits))
			}
			if err := p.SetInt(v); err != nil {
				return err
			}
		case ParamN:
			if rk.n != nil {
				if err := p.SetUint(rk.n); err != nil {
					return err
				}
			}
		case ParamE:
			if rk.e != nil {
				if err := p.SetUint(rk.e); err != nil {
					return err
				}
			}
		case ParamD:
			if rk.d != nil {
				if err := p.SetUint(rk.d); err != nil {
					return err
				}
			}
		}
		// Unrecognized names are left unfilled.
	}
	return nil
}

// SetParams applies recognized entries to the key. RSA recognizes none, so
// every call succeeds and changes nothing; unknown names are ignored per
// the contract.
func (m *Manager) SetParams(k keymgmt.Key, ps params.Params) error {
	_, err := m.checked(k)
	return err
}

// Has implements keymgmt.KeyManager. RSA keys never hold domain or other
// parameters.
func (m *Manager) Has(k keymgmt.Key, selection keymgmt.Selection) bool {
	rk, err := m.checked(k)
	if err != nil {
		return false
	}
	if selection == 0 {
		return false
	}
	if selection.Includes(keymgmt.SelectPrivateKey) && !rk.hasPrivate() {
		return false
	}
	if selection.Includes(keymgmt.SelectPublicKey) && !rk.hasPublic() {
		return false
	}
	if selection.Intersects(keymgmt.SelectAllParameters) {
		return false
	}
	return true
}

// Validate checks structural validity of the selected subsets. Keypair
// validation defers to crypto/rsa when CRT factors are present and falls
// back to an encrypt/decrypt consistency probe for n/e/d-only keys.
func (m *Manager) Validate(k keymgmt.Key, selection keymgmt.Selection) error {
	rk, err := m.checked(k)
	if err != nil {
		return err
	}
	if selection == 0 {
		return keymgmt.ErrMissingSelection
	}
	if selection.Intersects(keymgmt.SelectAllParameters) {
		return fmt.Errorf("%w: RSA keys have no parameters", keymgmt.ErrComponentMissing)
	}
	if selection.Includes(keymgmt.SelectPublicKey) {
		if err := rk.validatePublic(); err != nil {
			return err
		}
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		if err := rk.validatePrivate(); err != nil {
			return err
		}
	}
	return nil
}

func (k *key) validatePublic() error {
	if !k.hasPublic() {
		return keymgmt.ErrComponentMissing
	}
	if k.n.BitLen() < minBits {
		return fmt.Errorf("%w: modulus below %d bits", keymgmt.ErrInvalidKey, minBits)
	}
	if k.n.Bit(0) == 0 {
		return fmt.Errorf("%w: even modulus", keymgmt.ErrInvalidKey)
	}
	if k.e.Cmp(big.NewInt(3)) < 0 || k.e.Bit(0) == 0 {
		return fmt.Errorf("%w: invalid public exponent", keymgmt.ErrInvalidKey)
	}
	return nil
}

func (k *key) validatePrivate() error {
	if !k.hasPrivate() {
		return keymgmt.ErrComponentMissing
	}
	if err := k.validatePublic(); err != nil {
		return err
	}
	if len(k.factors) >= 2 {
		priv, err := k.toStdlib()
		if err != nil {
			return err
		}
		if err := priv.Validate(); err != nil {
			return fmt.Errorf("%w: %v", keymgmt.ErrKeypairMismatch, err)
		}
		return nil
	}
	// No factors available. Probe pairwise consistency directly:
	// (m^e)^d mod n must round-trip.
	probe := big.NewInt(0x1234567)
	c := new(big.Int).Exp(probe, k.e, k.n)
	p := new(big.Int).Exp(c, k.d, k.n)
	if p.Cmp(probe) != 0 {
		return keymgmt.ErrKeypairMismatch
	}
	return nil
}

// toStdlib builds a crypto/rsa private key from the CRT components.
func (k *key) toStdlib() (*stdrsa.PrivateKey, error) {
	if len(k.factors) < 2 {
		return nil, fmt.Errorf("%w: CRT factors required", keymgmt.ErrComponentMissing)
	}
	priv := &stdrsa.PrivateKey{
		PublicKey: stdrsa.PublicKey{
			N: new(big.Int).Set(k.n),
			E: int(k.e.Int64()),
		},
		D:      new(big.Int).Set(k.d),
		Primes: make([]*big.Int, len(k.factors)),
	}
	for i, f := range k.factors {
		priv.Primes[i] = new(big.Int).Set(f)
	}
	return priv, nil
}

// Match reports structural equality of the selected subsets. A subset
// absent from both keys compares equal; present on only one side, unequal.
// The private subset compares d and the prime factor list; exponents and
// coefficients are derived from those and carry no extra information.
func (m *Manager) Match(k1, k2 keymgmt.Key, selection keymgmt.Selection) (bool, error) {
	rk1, err := m.checked(k1)
	if err != nil {
		return false, err
	}
	rk2, err := m.checked(k2)
	if err != nil {
		return false, err
	}
	if selection.Includes(keymgmt.SelectPublicKey) {
		if rk1.hasPublic() != rk2.hasPublic() {
			return false, nil
		}
		if rk1.hasPublic() && (rk1.n.Cmp(rk2.n) != 0 || rk1.e.Cmp(rk2.e) != 0) {
			return false, nil
		}
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		if rk1.hasPrivate() != rk2.hasPrivate() {
			return false, nil
		}
		if rk1.hasPrivate() {
			if rk1.d.Cmp(rk2.d) != 0 {
				return false, nil
			}
			if len(rk1.factors) != len(rk2.factors) {
				return false, nil
			}
			for i := range rk1.factors {
				if rk1.factors[i].Cmp(rk2.factors[i]) != 0 {
					return false, nil
				}
			}
		}
	}
	// Domain/other parameter selections are vacuously equal for RSA.
	return true, nil
}

func (m *Manager) importTypes(selection keymgmt.Selection) params.Descriptors {
	var ds params.Descriptors
	if selection.Intersects(keymgmt.SelectKeypair) {
		ds = append(ds,
			params.Descriptor{Name: ParamN, Kind: params.KindUnsignedInteger, Settable: true, Gettable: true},
			params.Descriptor{Name: ParamE, Kind: params.KindUnsignedInteger, Settable: true, Gettable: true},
		)
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		ds = append(ds, params.Descriptor{Name: ParamD, Kind: params.KindUnsignedInteger, Settable: true, Gettable: true})
		for i := 1; i <= maxFactors; i++ {
			ds = append(ds, params.Descriptor{Name: FactorName(i), Kind: params.KindUnsignedInteger, Settable: true, Gettable: true})
		}
		for i := 1; i <= maxFactors; i++ {
			ds = append(ds, params.Descriptor{Name: ExponentName(i), Kind: params.KindUnsignedInteger, Settable: true, Gettable: true})
		}
		for i := 1; i <= maxCoefficients; i++ {
			ds = append(ds, params.Descriptor{Name: CoefficientName(i), Kind: params.KindUnsignedInteger, Settable: true, Gettable: true})
		}
	}
	return ds
}

// ImportTypes implements keymgmt.KeyManager.
func (m *Manager) ImportTypes(selection keymgmt.Selection) params.Descriptors {
	return m.importTypes(selection)
}

// ExportTypes returns the canonical two-prime field set for the selection.
// The names Export actually produces depend on the key: multi-prime keys
// add numbered entries beyond this list, and keys imported with n/e/d only
// have no factors to export and supply just those three names.
func (m *Manager) ExportTypes(selection keymgmt.Selection) params.Descriptors {
	var ds params.Descriptors
	if selection.Intersects(keymgmt.SelectKeypair) {
		ds = append(ds,
			params.Descriptor{Name: ParamN, Kind: params.KindUnsignedInteger, Gettable: true},
			params.Descriptor{Name: ParamE, Kind: params.KindUnsignedInteger, Gettable: true},
		)
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		ds = append(ds,
			params.Descriptor{Name: ParamD, Kind: params.KindUnsignedInteger, Gettable: true},
			params.Descriptor{Name: FactorName(1), Kind: params.KindUnsignedInteger, Gettable: true},
			params.Descriptor{Name: FactorName(2), Kind: params.KindUnsignedInteger, Gettable: true},
			params.Descriptor{Name: ExponentName(1), Kind: params.KindUnsignedInteger, Gettable: true},
			params.Descriptor{Name: ExponentName(2), Kind: params.KindUnsignedInteger, Gettable: true},
			params.Descriptor{Name: CoefficientName(1), Kind: params.KindUnsignedInteger, Gettable: true},
		)
	}
	return ds
}

// Import populates the selected subsets from ps. The whole call fails on
// any name outside ImportTypes(selection) or any kind mismatch, and a
// failed call leaves the key unchanged.
func (m *Manager) Import(k keymgmt.Key, selection keymgmt.Selection, ps params.Params) error {
	rk, err := m.checked(k)
	if err != nil {
		return err
	}
	if !selection.Intersects(keymgmt.SelectKeypair) {
		return keymgmt.ErrMissingSelection
	}
	accepted := m.importTypes(selection)

	staged := &key{}
	factors := make(map[int]*big.Int)
	exponents := make(map[int]*big.Int)
	coefficients := make(map[int]*big.Int)

	for i := range ps {
		p := &ps[i]
		d, ok := accepted.Find(p.Name)
		if !ok {
			return fmt.Errorf("%w: %q", keymgmt.ErrUnknownParam, p.Name)
		}
		if p.Kind != d.Kind {
			return fmt.Errorf("%s: %w", p.Name, params.ErrTypeMismatch)
		}
		v, err := p.Uint()
		if err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}
		switch p.Name {
		case ParamN:
			staged.n = v
		case ParamE:
			staged.e = v
		case ParamD:
			staged.d = v
		default:
			var idx int
			switch {
			case parseIndexed(p.Name, factorPrefix, &idx):
				factors[idx] = v
			case parseIndexed(p.Name, exponentPrefix, &idx):
				exponents[idx] = v
			case parseIndexed(p.Name, coefficientPrefix, &idx):
				coefficients[idx] = v
			}
		}
	}

	if staged.n == nil || staged.e == nil {
		return fmt.Errorf("%w: n and e are required", keymgmt.ErrComponentMissing)
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		if staged.d == nil {
			return fmt.Errorf("%w: d is required for a private key import", keymgmt.ErrComponentMissing)
		}
		staged.factors = collectIndexed(factors)
		staged.exponents = collectIndexed(exponents)
		staged.coefficients = collectIndexed(coefficients)
		if len(staged.factors) == 1 {
			return fmt.Errorf("%w: a single prime factor is not a valid CRT form", keymgmt.ErrInvalidKey)
		}
	}

	// All entries parsed cleanly; commit.
	rk.n, rk.e, rk.d = staged.n, staged.e, staged.d
	rk.factors, rk.exponents, rk.coefficients = staged.factors, staged.exponents, staged.coefficients
	if !selection.Includes(keymgmt.SelectPrivateKey) {
		rk.d = nil
		rk.factors, rk.exponents, rk.coefficients = nil, nil, nil
	}
	return nil
}

// parseIndexed reports whether name is prefix followed by a positive
// decimal index, storing the index.
func parseIndexed(name, prefix string, idx *int) bool {
	if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
		return false
	}
	n := 0
	for _, c := range name[len(prefix):] {
		if c < '0' || c > '9' {
			return false
		}
		n = n*10 + int(c-'0')
	}
	if n < 1 {
		return false
	}
	*idx = n
	return true
}

// collectIndexed flattens a 1-based index map into a dense slice, stopping
// at the first gap.
func collectIndexed(m map[int]*big.Int) []*big.Int {
	var out []*big.Int
	for i := 1; ; i++ {
		v, ok := m[i]
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

// Export passes the selected subsets to consumer as a parameter array. The
// array is scoped to the call; consumer must copy retained values. Missing
// CRT exponents and coefficients are derived from the factors first; a key
// imported with n/e/d only exports just those names.
func (m *Manager) Export(k keymgmt.Key, selection keymgmt.Selection, consumer func(params.Params) error) error {
	rk, err := m.checked(k)
	if err != nil {
		return err
	}
	if !selection.Intersects(keymgmt.SelectKeypair) {
		return keymgmt.ErrMissingSelection
	}
	if selection.Includes(keymgmt.SelectPrivateKey) && !rk.hasPrivate() {
		return keymgmt.ErrComponentMissing
	}
	if selection.Includes(keymgmt.SelectPublicKey) && !rk.hasPublic() {
		return keymgmt.ErrComponentMissing
	}

	var ps params.Params
	ps = append(ps, params.NewUint(ParamN, rk.n), params.NewUint(ParamE, rk.e))
	if selection.Includes(keymgmt.SelectPrivateKey) {
		if err := rk.ensureCRT(); err != nil {
			return err
		}
		ps = append(ps, params.NewUint(ParamD, rk.d))
		for i, f := range rk.factors {
			ps = append(ps, params.NewUint(FactorName(i+1), f))
		}
		for i, e := range rk.exponents {
			ps = append(ps, params.NewUint(ExponentName(i+1), e))
		}
		for i, c := range rk.coefficients {
			ps = append(ps, params.NewUint(CoefficientName(i+1), c))
		}
	}
	return consumer(ps)
}

// ensureCRT derives CRT exponents and coefficients from the factors when
// they were not supplied at import time. Import admits factor lists it
// cannot verify cheaply, so derivation rejects factors that are too small
// or not pairwise coprime instead of producing a corrupt CRT form. The key
// is only updated when the whole derivation succeeds.
func (k *key) ensureCRT() error {
	if len(k.factors) < 2 {
		return nil
	}
	one := big.NewInt(1)
	for i, f := range k.factors {
		if f.Cmp(one) <= 0 {
			return fmt.Errorf("%w: %s must exceed 1", keymgmt.ErrInvalidKey, FactorName(i+1))
		}
	}
	exponents := k.exponents
	if len(exponents) < len(k.factors) {
		exponents = make([]*big.Int, len(k.factors))
		for i, f := range k.factors {
			pm1 := new(big.Int).Sub(f, one)
			exponents[i] = new(big.Int).Mod(k.d, pm1)
		}
	}
	coefficients := k.coefficients
	if len(coefficients) < len(k.factors)-1 {
		// coefficient1 = q^-1 mod p per PKCS#1; multi-prime
		// coefficients invert the product of the preceding primes.
		coefficients = make([]*big.Int, len(k.factors)-1)
		prod := new(big.Int).Set(k.factors[0])
		for i := 1; i < len(k.factors); i++ {
			var inv *big.Int
			if i == 1 {
				inv = new(big.Int).ModInverse(k.factors[1], k.factors[0])
			} else {
				inv = new(big.Int).ModInverse(prod, k.factors[i])
			}
			if inv == nil {
				return fmt.Errorf("%w: factors are not pairwise coprime", keymgmt.ErrInvalidKey)
			}
			coefficients[i-1] = inv
			prod.Mul(prod, k.factors[i])
		}
	}
	k.exponents, k.coefficients = exponents, coefficients
	return nil
}

// Copy overwrites dst's selected subsets with deep copies of src's.
func (m *Manager) Copy(dst, src keymgmt.Key, selection keymgmt.Selection) error {
	d, err := m.checked(dst)
	if err != nil {
		return err
	}
	s, err := m.checked(src)
	if err != nil {
		return err
	}
	if d == s {
		return keymgmt.ErrSelfCopy
	}
	if selection.Includes(keymgmt.SelectPublicKey) {
		d.n = copyInt(s.n)
		d.e = copyInt(s.e)
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		d.d = copyInt(s.d)
		d.factors = copyInts(s.factors)
		d.exponents = copyInts(s.exponents)
		d.coefficients = copyInts(s.coefficients)
	}
	return nil
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func copyInts(vs []*big.Int) []*big.Int {
	if vs == nil {
		return nil
	}
	out := make([]*big.Int, len(vs))
	for i, v := range vs {
		out[i] = new(big.Int).Set(v)
	}
	return out
}

// OperationName implements keymgmt.KeyManager. RSA keys are fetched under
// the same name for every sibling operation.
func (m *Manager) OperationName(op keymgmt.Operation) string {
	return ""
}

// genContext is the RSA generation context.
type genContext struct {
	keymgmt.GenState

	bits        int
	primes      int
	e           *big.Int
	template    *key
	badTemplate bool
}

// NewGeneration creates a generation context. The selection must request
// key material; RSA generation always produces a full keypair.
func (m *Manager) NewGeneration(selection keymgmt.Selection) (keymgmt.GenContext, error) {
	if !selection.Intersects(keymgmt.SelectKeypair) {
		return nil, keymgmt.ErrMissingSelection
	}
	return &genContext{
		GenState: keymgmt.NewGenState(selection),
		bits:     defaultBits,
		primes:   defaultPrimes,
	}, nil
}

// SetTemplate attaches a borrowed template. An RSA template contributes its
// public exponent. A later call replaces the earlier template. A template
// of a foreign family is accepted here but fails Generate deterministically.
func (g *genContext) SetTemplate(template keymgmt.Key) error {
	if err := g.Err(); err != nil {
		return err
	}
	g.template = nil
	g.badTemplate = false
	if template == nil {
		return nil
	}
	rk, ok := template.(*key)
	if !ok {
		g.badTemplate = true
		return nil
	}
	g.template = rk
	return nil
}

// SetParams applies generation parameters; unknown names are ignored.
func (g *genContext) SetParams(ps params.Params) error {
	if err := g.Err(); err != nil {
		return err
	}
	staged := *g
	for i := range ps {
		p := &ps[i]
		switch p.Name {
		case GenParamBits:
			v, err := p.Int()
			if err != nil {
				return err
			}
			if v < minBits {
				return fmt.Errorf("%w: bits below %d", keymgmt.ErrInvalidKey, minBits)
			}
			staged.bits = int(v)
		case GenParamPrimes:
			v, err := p.Int()
			if err != nil {
				return err
			}
			if v < 2 || v > int64(maxFactors) {
				return fmt.Errorf("%w: prime count out of range", keymgmt.ErrInvalidKey)
			}
			staged.primes = int(v)
		case GenParamE:
			v, err := p.Uint()
			if err != nil {
				return err
			}
			staged.e = v
		}
	}
	*g = staged
	return nil
}

// Generate produces a new RSA keypair. Each call yields an independent key;
// failure leaves the context reusable.
func (g *genContext) Generate(progress keymgmt.ProgressFunc) (keymgmt.Key, error) {
	if err := g.Err(); err != nil {
		return nil, err
	}
	if g.badTemplate {
		return nil, keymgmt.ErrTemplateAlgorithm
	}
	if progress != nil {
		progress(0, 0)
	}

	// crypto/rsa fixes e = 65537; honoring a different requested exponent
	// is out of scope for the stdlib-backed generator.
	if e := g.genExponent(); e != nil && e.Cmp(big.NewInt(65537)) != 0 {
		return nil, fmt.Errorf("%w: only public exponent 65537 is supported", keymgmt.ErrInvalidKey)
	}

	var priv *stdrsa.PrivateKey
	var err error
	if g.primes == 2 {
		priv, err = stdrsa.GenerateKey(rand.Reader, g.bits)
	} else {
		priv, err = stdrsa.GenerateMultiPrimeKey(rand.Reader, g.primes, g.bits)
	}
	if err != nil {
		return nil, fmt.Errorf("rsa generation failed: %w", err)
	}
	if progress != nil {
		for i := range priv.Primes {
			progress(1, i)
		}
		progress(2, 0)
	}

	k := &key{
		n:       new(big.Int).Set(priv.N),
		e:       big.NewInt(int64(priv.E)),
		d:       new(big.Int).Set(priv.D),
		factors: copyInts(priv.Primes),
	}
	if err := k.ensureCRT(); err != nil {
		return nil, fmt.Errorf("rsa generation failed: %w", err)
	}
	return k, nil
}

func (g *genContext) genExponent() *big.Int {
	if g.e != nil {
		return g.e
	}
	if g.template != nil && g.template.e != nil {
		return g.template.e
	}
	return nil
}
