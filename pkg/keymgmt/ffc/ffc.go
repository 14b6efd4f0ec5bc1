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

// Package ffc implements the key-management contract for the finite-field
// families DSA and DH. Both exchange key material through the canonical
// names pub and priv and domain parameters through p, q and g.
//
// The two families share one implementation parameterized by algorithm:
// DSA requires the subgroup order q, DH treats it as optional. Domain
// parameters are a first-class data subset: a generation context whose
// selection names only domain parameters produces a parameters-only key
// usable as a template for later keypair generation.
package ffc

import (
	"crypto/dsa"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt"
	"github.com/jeremyhahn/go-keymgmt/pkg/params"
)

// Generation parameter names.
const (
	// GenParamPBits is the prime modulus size in bits (integer,
	// default 2048).
	GenParamPBits = "pbits"

	// GenParamQBits is the subgroup order size in bits (integer,
	// default 256).
	GenParamQBits = "qbits"
)

const (
	defaultPBits = 2048
	defaultQBits = 256
)

// key is the finite-field key object for DSA and DH.
type key struct {
	alg keymgmt.Algorithm

	p, q, g   *big.Int
	pub, priv *big.Int
}

// Algorithm implements keymgmt.Key.
func (k *key) Algorithm() keymgmt.Algorithm {
	return k.alg
}

func (k *key) hasDomain() bool {
	if k.p == nil || k.g == nil {
		return false
	}
	if k.alg == keymgmt.AlgorithmDSA && k.q == nil {
		return false
	}
	return true
}

func (k *key) wipe() {
	if k.priv != nil {
		k.priv.SetInt64(0)
	}
	k.p, k.q, k.g, k.pub, k.priv = nil, nil, nil, nil, nil
}

// Manager implements keymgmt.KeyManager for one finite-field family.
type Manager struct {
	alg keymgmt.Algorithm
}

// NewDSA creates the DSA key manager.
func NewDSA() *Manager {
	return &Manager{alg: keymgmt.AlgorithmDSA}
}

// NewDH creates the DH key manager.
func NewDH() *Manager {
	return &Manager{alg: keymgmt.AlgorithmDH}
}

// Algorithm implements keymgmt.KeyManager.
func (m *Manager) Algorithm() keymgmt.Algorithm {
	return m.alg
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

// New creates an empty key object.
func (m *Manager) New() (keymgmt.Key, error) {
	return &key{alg: m.alg}, nil
}

// Free releases a key object, wiping the private scalar. Nil is a no-op.
func (m *Manager) Free(k keymgmt.Key) {
	fk, ok := k.(*key)
	if !ok || fk == nil {
		return
	}
	fk.wipe()
}

func (m *Manager) checked(k keymgmt.Key) (*key, error) {
	if k == nil {
		return nil, keymgmt.ErrKeyRequired
	}
	fk, ok := k.(*key)
	if !ok || fk.alg != m.alg {
		return nil, keymgmt.ErrWrongAlgorithm
	}
	return fk, nil
}

var gettable = params.Descriptors{
	{Name: keymgmt.ParamBits, Kind: params.KindInteger, Gettable: true, Mandatory: true},
	{Name: keymgmt.ParamMaxSize, Kind: params.KindInteger, Gettable: true, Mandatory: true},
	{Name: keymgmt.ParamSecurityBits, Kind: params.KindInteger, Gettable: true, Mandatory: true},
	{Name: keymgmt.ParamPub, Kind: params.KindUnsignedInteger, Gettable: true},
	{Name: keymgmt.ParamPriv, Kind: params.KindUnsignedInteger, Gettable: true},
	{Name: keymgmt.ParamP, Kind: params.KindUnsignedInteger, Gettable: true},
	{Name: keymgmt.ParamQ, Kind: params.KindUnsignedInteger, Gettable: true},
	{Name: keymgmt.ParamG, Kind: params.KindUnsignedInteger, Gettable: true},
}

var settable = params.Descriptors{}

var genSettable = params.Descriptors{
	{Name: GenParamPBits, Kind: params.KindInteger, Settable: true},
	{Name: GenParamQBits, Kind: params.KindInteger, Settable: true},
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

// GetParams fills requested entries from the key's current state.
func (m *Manager) GetParams(k keymgmt.Key, ps params.Params) error {
	fk, err := m.checked(k)
	if err != nil {
		return err
	}
	for i := range ps {
		p := &ps[i]
		switch p.Name {
		case keymgmt.ParamBits, keymgmt.ParamMaxSize, keymgmt.ParamSecurityBits:
			if fk.p == nil {
				return fmt.Errorf("%w: %s requires domain parameters", keymgmt.ErrComponentMissing, p.Name)
			}
			bits := fk.p.BitLen()
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
		case keymgmt.ParamPub:
			if fk.pub != nil {
				if err := p.SetUint(fk.pub); err != nil {
					return err
				}
			}
		case keymgmt.ParamPriv:
			if fk.priv != nil {
				if err := p.SetUint(fk.priv); err != nil {
					return err
				}
			}
		case keymgmt.ParamP:
			if fk.p != nil {
				if err := p.SetUint(fk.p); err != nil {
					return err
				}
			}
		case keymgmt.ParamQ:
			if fk.q != nil {
				if err := p.SetUint(fk.q); err != nil {
					return err
				}
			}
		case keymgmt.ParamG:
			if fk.g != nil {
				if err := p.SetUint(fk.g); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// SetParams applies recognized entries; the finite-field families expose
// no mutable attributes, so unknown names are ignored and nothing changes.
func (m *Manager) SetParams(k keymgmt.Key, ps params.Params) error {
	_, err := m.checked(k)
	return err
}

// Has implements keymgmt.KeyManager.
func (m *Manager) Has(k keymgmt.Key, selection keymgmt.Selection) bool {
	fk, err := m.checked(k)
	if err != nil {
		return false
	}
	if selection == 0 {
		return false
	}
	if selection.Includes(keymgmt.SelectPrivateKey) && fk.priv == nil {
		return false
	}
	if selection.Includes(keymgmt.SelectPublicKey) && fk.pub == nil {
		return false
	}
	if selection.Includes(keymgmt.SelectDomainParameters) && !fk.hasDomain() {
		return false
	}
	if selection.Includes(keymgmt.SelectOtherParameters) {
		return false
	}
	return true
}

// Validate checks structural validity of the selected subsets per FIPS
// 186-style rules, and pairwise consistency for the keypair combination.
func (m *Manager) Validate(k keymgmt.Key, selection keymgmt.Selection) error {
	fk, err := m.checked(k)
	if err != nil {
		return err
	}
	if selection == 0 {
		return keymgmt.ErrMissingSelection
	}
	if selection.Includes(keymgmt.SelectOtherParameters) {
		return fmt.Errorf("%w: no other parameters for %s", keymgmt.ErrComponentMissing, m.alg)
	}
	if selection.Includes(keymgmt.SelectDomainParameters) {
		if err := fk.validateDomain(); err != nil {
			return err
		}
	}
	if selection.Includes(keymgmt.SelectPublicKey) {
		if err := fk.validatePublic(); err != nil {
			return err
		}
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		if err := fk.validatePrivate(); err != nil {
			return err
		}
	}
	if selection.Includes(keymgmt.SelectKeypair) {
		if err := fk.validatePairwise(); err != nil {
			return err
		}
	}
	return nil
}

func (k *key) validateDomain() error {
	if !k.hasDomain() {
		return keymgmt.ErrComponentMissing
	}
	one := big.NewInt(1)
	if !k.p.ProbablyPrime(20) {
		return fmt.Errorf("%w: p is not prime", keymgmt.ErrInvalidKey)
	}
	if k.g.Cmp(one) <= 0 || k.g.Cmp(k.p) >= 0 {
		return fmt.Errorf("%w: generator out of range", keymgmt.ErrInvalidKey)
	}
	if k.q != nil {
		if !k.q.ProbablyPrime(20) {
			return fmt.Errorf("%w: q is not prime", keymgmt.ErrInvalidKey)
		}
		pm1 := new(big.Int).Sub(k.p, one)
		if new(big.Int).Mod(pm1, k.q).Sign() != 0 {
			return fmt.Errorf("%w: q does not divide p-1", keymgmt.ErrInvalidKey)
		}
		if new(big.Int).Exp(k.g, k.q, k.p).Cmp(one) != 0 {
			return fmt.Errorf("%w: generator not of order q", keymgmt.ErrInvalidKey)
		}
	}
	return nil
}

func (k *key) validatePublic() error {
	if k.pub == nil {
		return keymgmt.ErrComponentMissing
	}
	if err := k.validateDomain(); err != nil {
		return err
	}
	one := big.NewInt(1)
	pm1 := new(big.Int).Sub(k.p, one)
	if k.pub.Cmp(one) <= 0 || k.pub.Cmp(pm1) >= 0 {
		return fmt.Errorf("%w: public value out of range", keymgmt.ErrInvalidKey)
	}
	if k.q != nil && new(big.Int).Exp(k.pub, k.q, k.p).Cmp(one) != 0 {
		return fmt.Errorf("%w: public value not in the order-q subgroup", keymgmt.ErrInvalidKey)
	}
	return nil
}

func (k *key) validatePrivate() error {
	if k.priv == nil {
		return keymgmt.ErrComponentMissing
	}
	if err := k.validateDomain(); err != nil {
		return err
	}
	upper := k.q
	if upper == nil {
		upper = new(big.Int).Sub(k.p, big.NewInt(1))
	}
	if k.priv.Sign() <= 0 || k.priv.Cmp(upper) >= 0 {
		return fmt.Errorf("%w: private value out of range", keymgmt.ErrInvalidKey)
	}
	return nil
}

func (k *key) validatePairwise() error {
	if k.priv == nil || k.pub == nil {
		return keymgmt.ErrComponentMissing
	}
	derived := new(big.Int).Exp(k.g, k.priv, k.p)
	if derived.Cmp(k.pub) != 0 {
		return keymgmt.ErrKeypairMismatch
	}
	return nil
}

// Match reports structural equality of the selected subsets.
func (m *Manager) Match(k1, k2 keymgmt.Key, selection keymgmt.Selection) (bool, error) {
	fk1, err := m.checked(k1)
	if err != nil {
		return false, err
	}
	fk2, err := m.checked(k2)
	if err != nil {
		return false, err
	}
	if selection.Includes(keymgmt.SelectDomainParameters) {
		if !intEqual(fk1.p, fk2.p) || !intEqual(fk1.q, fk2.q) || !intEqual(fk1.g, fk2.g) {
			return false, nil
		}
	}
	if selection.Includes(keymgmt.SelectPublicKey) && !intEqual(fk1.pub, fk2.pub) {
		return false, nil
	}
	if selection.Includes(keymgmt.SelectPrivateKey) && !intEqual(fk1.priv, fk2.priv) {
		return false, nil
	}
	return true, nil
}

func intEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Cmp(b) == 0
}

func (m *Manager) importTypes(selection keymgmt.Selection) params.Descriptors {
	var ds params.Descriptors
	if selection.Includes(keymgmt.SelectDomainParameters) {
		ds = append(ds,
			params.Descriptor{Name: keymgmt.ParamP, Kind: params.KindUnsignedInteger, Settable: true, Gettable: true},
			params.Descriptor{Name: keymgmt.ParamQ, Kind: params.KindUnsignedInteger, Settable: true, Gettable: true},
			params.Descriptor{Name: keymgmt.ParamG, Kind: params.KindUnsignedInteger, Settable: true, Gettable: true},
		)
	}
	if selection.Includes(keymgmt.SelectPublicKey) {
		ds = append(ds, params.Descriptor{Name: keymgmt.ParamPub, Kind: params.KindUnsignedInteger, Settable: true, Gettable: true})
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		ds = append(ds, params.Descriptor{Name: keymgmt.ParamPriv, Kind: params.KindUnsignedInteger, Settable: true, Gettable: true})
	}
	return ds
}

// ImportTypes implements keymgmt.KeyManager.
func (m *Manager) ImportTypes(selection keymgmt.Selection) params.Descriptors {
	return m.importTypes(selection)
}

// ExportTypes implements keymgmt.KeyManager. The finite-field families
// export exactly the fields they import; for DH the q entry is supplied
// only when present.
func (m *Manager) ExportTypes(selection keymgmt.Selection) params.Descriptors {
	return m.importTypes(selection)
}

// Import populates the selected subsets from ps. Unknown names and kind
// mismatches fail the whole call, leaving the key unchanged.
func (m *Manager) Import(k keymgmt.Key, selection keymgmt.Selection, ps params.Params) error {
	fk, err := m.checked(k)
	if err != nil {
		return err
	}
	if selection == 0 {
		return keymgmt.ErrMissingSelection
	}
	accepted := m.importTypes(selection)

	staged := &key{alg: m.alg}
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
		case keymgmt.ParamP:
			staged.p = v
		case keymgmt.ParamQ:
			staged.q = v
		case keymgmt.ParamG:
			staged.g = v
		case keymgmt.ParamPub:
			staged.pub = v
		case keymgmt.ParamPriv:
			staged.priv = v
		}
	}

	if selection.Includes(keymgmt.SelectDomainParameters) && !staged.hasDomain() {
		return fmt.Errorf("%w: incomplete domain parameters", keymgmt.ErrComponentMissing)
	}
	if selection.Includes(keymgmt.SelectPublicKey) && staged.pub == nil {
		return fmt.Errorf("%w: pub is required", keymgmt.ErrComponentMissing)
	}
	if selection.Includes(keymgmt.SelectPrivateKey) && staged.priv == nil {
		return fmt.Errorf("%w: priv is required", keymgmt.ErrComponentMissing)
	}

	if selection.Includes(keymgmt.SelectDomainParameters) {
		fk.p, fk.q, fk.g = staged.p, staged.q, staged.g
	}
	if selection.Includes(keymgmt.SelectPublicKey) {
		fk.pub = staged.pub
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		fk.priv = staged.priv
	}
	return nil
}

// Export passes the selected subsets to consumer as a parameter array
// scoped to the call.
func (m *Manager) Export(k keymgmt.Key, selection keymgmt.Selection, consumer func(params.Params) error) error {
	fk, err := m.checked(k)
	if err != nil {
		return err
	}
	if selection == 0 {
		return keymgmt.ErrMissingSelection
	}
	var ps params.Params
	if selection.Includes(keymgmt.SelectDomainParameters) {
		if !fk.hasDomain() {
			return keymgmt.ErrComponentMissing
		}
		ps = append(ps, params.NewUint(keymgmt.ParamP, fk.p))
		if fk.q != nil {
			ps = append(ps, params.NewUint(keymgmt.ParamQ, fk.q))
		}
		ps = append(ps, params.NewUint(keymgmt.ParamG, fk.g))
	}
	if selection.Includes(keymgmt.SelectPublicKey) {
		if fk.pub == nil {
			return keymgmt.ErrComponentMissing
		}
		ps = append(ps, params.NewUint(keymgmt.ParamPub, fk.pub))
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		if fk.priv == nil {
			return keymgmt.ErrComponentMissing
		}
		ps = append(ps, params.NewUint(keymgmt.ParamPriv, fk.priv))
	}
	return consumer(ps)
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
	if selection.Includes(keymgmt.SelectDomainParameters) {
		d.p, d.q, d.g = copyInt(s.p), copyInt(s.q), copyInt(s.g)
	}
	if selection.Includes(keymgmt.SelectPublicKey) {
		d.pub = copyInt(s.pub)
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		d.priv = copyInt(s.priv)
	}
	return nil
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// OperationName implements keymgmt.KeyManager.
func (m *Manager) OperationName(op keymgmt.Operation) string {
	return ""
}

// genContext is the finite-field generation context.
type genContext struct {
	keymgmt.GenState

	alg         keymgmt.Algorithm
	pbits       int
	qbits       int
	template    *key
	badTemplate bool
}

// NewGeneration creates a generation context. A selection naming only
// domain parameters produces a parameters-only key.
func (m *Manager) NewGeneration(selection keymgmt.Selection) (keymgmt.GenContext, error) {
	if !selection.Intersects(keymgmt.SelectKeypair | keymgmt.SelectDomainParameters) {
		return nil, keymgmt.ErrMissingSelection
	}
	return &genContext{
		GenState: keymgmt.NewGenState(selection),
		alg:      m.alg,
		pbits:    defaultPBits,
		qbits:    defaultQBits,
	}, nil
}

// SetTemplate attaches a borrowed template supplying domain parameters.
// A later call replaces the earlier template; a foreign-family template
// fails Generate deterministically.
func (g *genContext) SetTemplate(template keymgmt.Key) error {
	if err := g.Err(); err != nil {
		return err
	}
	g.template = nil
	g.badTemplate = false
	if template == nil {
		return nil
	}
	fk, ok := template.(*key)
	if !ok || fk.alg != g.alg {
		g.badTemplate = true
		return nil
	}
	g.template = fk
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
		case GenParamPBits:
			v, err := p.Int()
			if err != nil {
				return err
			}
			staged.pbits = int(v)
		case GenParamQBits:
			v, err := p.Int()
			if err != nil {
				return err
			}
			staged.qbits = int(v)
		}
	}
	if _, err := parameterSizes(staged.pbits, staged.qbits); err != nil {
		return err
	}
	*g = staged
	return nil
}

// parameterSizes maps a pbits/qbits request to the sizes crypto/dsa can
// generate.
func parameterSizes(pbits, qbits int) (dsa.ParameterSizes, error) {
	switch {
	case pbits == 1024 && qbits == 160:
		return dsa.L1024N160, nil
	case pbits == 2048 && qbits == 224:
		return dsa.L2048N224, nil
	case pbits == 2048 && qbits == 256:
		return dsa.L2048N256, nil
	case pbits == 3072 && qbits == 256:
		return dsa.L3072N256, nil
	default:
		return 0, fmt.Errorf("%w: unsupported parameter sizes L%d/N%d", keymgmt.ErrInvalidKey, pbits, qbits)
	}
}

// Generate produces a new key per the context's selection: domain
// parameters from the template when attached, freshly generated otherwise,
// plus a keypair when the selection asks for one.
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

	k := &key{alg: g.alg}
	if g.template != nil && g.template.hasDomain() {
		k.p = copyInt(g.template.p)
		k.q = copyInt(g.template.q)
		k.g = copyInt(g.template.g)
	} else {
		sizes, err := parameterSizes(g.pbits, g.qbits)
		if err != nil {
			return nil, err
		}
		var dp dsa.Parameters
		if err := dsa.GenerateParameters(&dp, rand.Reader, sizes); err != nil {
			return nil, fmt.Errorf("%s parameter generation failed: %w", g.alg, err)
		}
		k.p, k.q, k.g = dp.P, dp.Q, dp.G
	}
	if progress != nil {
		progress(1, 0)
	}

	if !g.Selection().Intersects(keymgmt.SelectKeypair) {
		return k, nil
	}

	// Private scalar in [1, q-1], public value g^priv mod p. DSA and DH
	// keypairs are generated identically over the order-q subgroup. A DH
	// template without q falls back to the [1, p-2] range.
	order := k.q
	if order == nil {
		order = new(big.Int).Sub(k.p, big.NewInt(1))
	}
	priv, err := rand.Int(rand.Reader, new(big.Int).Sub(order, big.NewInt(1)))
	if err != nil {
		return nil, fmt.Errorf("%s key generation failed: %w", g.alg, err)
	}
	priv.Add(priv, big.NewInt(1))
	k.priv = priv
	k.pub = new(big.Int).Exp(k.g, k.priv, k.p)

	if progress != nil {
		progress(2, 0)
	}
	return k, nil
}
