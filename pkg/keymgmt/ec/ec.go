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

// Package ec implements the key-management contract for the EC family.
//
// The domain parameter subset is the named curve (curve-name), the public
// key is an uncompressed SEC1 point encoding (pub, octet string), the
// private key is a scalar (priv, unsigned integer), and the cofactor-ECDH
// flag (use-cofactor-flag / use-cofactor-ecdh) forms the other-parameters
// subset.
//
// Supported curves: P-224, P-256, P-384, P-521 and secp256k1.
package ec

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt"
	"github.com/jeremyhahn/go-keymgmt/pkg/params"
)

// Named curve identifiers accepted in curve-name.
const (
	CurveP224      = "P-224"
	CurveP256      = "P-256"
	CurveP384      = "P-384"
	CurveP521      = "P-521"
	CurveSecp256k1 = "secp256k1"
)

var curves = map[string]elliptic.Curve{
	CurveP224:      elliptic.P224(),
	CurveP256:      elliptic.P256(),
	CurveP384:      elliptic.P384(),
	CurveP521:      elliptic.P521(),
	CurveSecp256k1: btcec.S256(),
}

// CurveNames returns the supported curve names, sorted.
func CurveNames() []string {
	names := make([]string, 0, len(curves))
	for name := range curves {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// key is the EC key object.
type key struct {
	curveName string
	curve     elliptic.Curve

	x, y *big.Int // public point; nil when absent
	priv *big.Int // private scalar; nil when absent

	// cofactor flag; part of the other-parameters subset, present only
	// when explicitly set or imported.
	cofactorSet bool
	cofactor    int64
}

// Algorithm implements keymgmt.Key.
func (k *key) Algorithm() keymgmt.Algorithm {
	return keymgmt.AlgorithmEC
}

func (k *key) hasDomain() bool  { return k.curve != nil }
func (k *key) hasPublic() bool  { return k.x != nil && k.y != nil }
func (k *key) hasPrivate() bool { return k.priv != nil }

func (k *key) wipe() {
	if k.priv != nil {
		k.priv.SetInt64(0)
	}
	k.curve, k.curveName = nil, ""
	k.x, k.y, k.priv = nil, nil, nil
	k.cofactorSet = false
	k.cofactor = 0
}

// pubBytes returns the uncompressed SEC1 encoding of the public point.
func (k *key) pubBytes() []byte {
	byteLen := (k.curve.Params().BitSize + 7) / 8
	out := make([]byte, 1+2*byteLen)
	out[0] = 4
	k.x.FillBytes(out[1 : 1+byteLen])
	k.y.FillBytes(out[1+byteLen:])
	return out
}

// Manager implements keymgmt.KeyManager for EC.
type Manager struct{}

// NewManager creates the EC key manager.
func NewManager() *Manager {
	return &Manager{}
}

// Algorithm implements keymgmt.KeyManager.
func (m *Manager) Algorithm() keymgmt.Algorithm {
	return keymgmt.AlgorithmEC
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

// New creates an empty EC key object.
func (m *Manager) New() (keymgmt.Key, error) {
	return &key{}, nil
}

// Free releases a key object, wiping the private scalar. Nil is a no-op.
func (m *Manager) Free(k keymgmt.Key) {
	ek, ok := k.(*key)
	if !ok || ek == nil {
		return
	}
	ek.wipe()
}

func (m *Manager) checked(k keymgmt.Key) (*key, error) {
	if k == nil {
		return nil, keymgmt.ErrKeyRequired
	}
	ek, ok := k.(*key)
	if !ok {
		return nil, keymgmt.ErrWrongAlgorithm
	}
	return ek, nil
}

var gettable = params.Descriptors{
	{Name: keymgmt.ParamBits, Kind: params.KindInteger, Gettable: true, Mandatory: true},
	{Name: keymgmt.ParamMaxSize, Kind: params.KindInteger, Gettable: true, Mandatory: true},
	{Name: keymgmt.ParamSecurityBits, Kind: params.KindInteger, Gettable: true, Mandatory: true},
	{Name: keymgmt.ParamCurveName, Kind: params.KindUTF8String, Gettable: true},
	{Name: keymgmt.ParamPub, Kind: params.KindOctetString, Gettable: true},
	{Name: keymgmt.ParamPriv, Kind: params.KindUnsignedInteger, Gettable: true},
	{Name: keymgmt.ParamUseCofactorFlag, Kind: params.KindInteger, Gettable: true},
	{Name: keymgmt.ParamUseCofactorECDH, Kind: params.KindInteger, Gettable: true},
}

var settable = params.Descriptors{
	{Name: keymgmt.ParamUseCofactorFlag, Kind: params.KindInteger, Settable: true},
	{Name: keymgmt.ParamUseCofactorECDH, Kind: params.KindInteger, Settable: true},
}

var genSettable = params.Descriptors{
	{Name: keymgmt.ParamCurveName, Kind: params.KindUTF8String, Settable: true},
	{Name: keymgmt.ParamUseCofactorFlag, Kind: params.KindInteger, Settable: true},
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

// securityBits returns the strength of a curve of the given field size,
// capped at 256.
func securityBits(fieldBits int) int64 {
	s := fieldBits / 2
	if s > 256 {
		s = 256
	}
	return int64(s)
}

// GetParams fills requested entries from the key's current state.
func (m *Manager) GetParams(k keymgmt.Key, ps params.Params) error {
	ek, err := m.checked(k)
	if err != nil {
		return err
	}
	for i := range ps {
		p := &ps[i]
		switch p.Name {
		case keymgmt.ParamBits, keymgmt.ParamMaxSize, keymgmt.ParamSecurityBits:
			if ek.curve == nil {
				return fmt.Errorf("%w: %s requires a curve", keymgmt.ErrComponentMissing, p.Name)
			}
			bits := ek.curve.Params().BitSize
			var v int64
			switch p.Name {
			case keymgmt.ParamBits:
				v = int64(bits)
			case keymgmt.ParamMaxSize:
				// Worst-case DER-encoded ECDSA signature size.
				v = int64(2*((bits+7)/8) + 9)
			case keymgmt.ParamSecurityBits:
				v = securityBits(bits)
			}
			if err := p.SetInt(v); err != nil {
				return err
			}
		case keymgmt.ParamCurveName:
			if ek.curveName != "" {
				if err := p.SetText(ek.curveName); err != nil {
					return err
				}
			}
		case keymgmt.ParamPub:
			if ek.hasPublic() {
				if err := p.SetOctets(ek.pubBytes()); err != nil {
					return err
				}
			}
		case keymgmt.ParamPriv:
			if ek.priv != nil {
				if err := p.SetUint(ek.priv); err != nil {
					return err
				}
			}
		case keymgmt.ParamUseCofactorFlag, keymgmt.ParamUseCofactorECDH:
			if ek.cofactorSet {
				if err := p.SetInt(ek.cofactor); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// SetParams applies recognized entries; unknown names are ignored. The
// cofactor flag is the only mutable EC attribute.
func (m *Manager) SetParams(k keymgmt.Key, ps params.Params) error {
	ek, err := m.checked(k)
	if err != nil {
		return err
	}
	for i := range ps {
		p := &ps[i]
		switch p.Name {
		case keymgmt.ParamUseCofactorFlag, keymgmt.ParamUseCofactorECDH:
			v, err := p.Int()
			if err != nil {
				return err
			}
			if v != 0 && v != 1 {
				return fmt.Errorf("%w: cofactor flag must be 0 or 1", keymgmt.ErrInvalidKey)
			}
			ek.cofactorSet = true
			ek.cofactor = v
		}
	}
	return nil
}

// Has implements keymgmt.KeyManager. The other-parameters subset holds the
// cofactor flag and is present only once the flag has been set.
func (m *Manager) Has(k keymgmt.Key, selection keymgmt.Selection) bool {
	ek, err := m.checked(k)
	if err != nil {
		return false
	}
	if selection == 0 {
		return false
	}
	if selection.Includes(keymgmt.SelectPrivateKey) && !ek.hasPrivate() {
		return false
	}
	if selection.Includes(keymgmt.SelectPublicKey) && !ek.hasPublic() {
		return false
	}
	if selection.Includes(keymgmt.SelectDomainParameters) && !ek.hasDomain() {
		return false
	}
	if selection.Includes(keymgmt.SelectOtherParameters) && !ek.cofactorSet {
		return false
	}
	return true
}

// Validate checks the selected subsets: point on curve for the public key,
// scalar range for the private key, and scalar-times-base consistency for
// the keypair combination.
func (m *Manager) Validate(k keymgmt.Key, selection keymgmt.Selection) error {
	ek, err := m.checked(k)
	if err != nil {
		return err
	}
	if selection == 0 {
		return keymgmt.ErrMissingSelection
	}
	if selection.Intersects(keymgmt.SelectDomainParameters|keymgmt.SelectKeypair) && !ek.hasDomain() {
		return fmt.Errorf("%w: no curve", keymgmt.ErrComponentMissing)
	}
	if selection.Includes(keymgmt.SelectOtherParameters) && !ek.cofactorSet {
		return keymgmt.ErrComponentMissing
	}
	if selection.Includes(keymgmt.SelectPublicKey) {
		if !ek.hasPublic() {
			return keymgmt.ErrComponentMissing
		}
		if !ek.curve.IsOnCurve(ek.x, ek.y) {
			return fmt.Errorf("%w: public point not on %s", keymgmt.ErrInvalidKey, ek.curveName)
		}
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		if !ek.hasPrivate() {
			return keymgmt.ErrComponentMissing
		}
		n := ek.curve.Params().N
		if ek.priv.Sign() <= 0 || ek.priv.Cmp(n) >= 0 {
			return fmt.Errorf("%w: private scalar out of range", keymgmt.ErrInvalidKey)
		}
	}
	if selection.Includes(keymgmt.SelectKeypair) {
		x, y := ek.curve.ScalarBaseMult(ek.priv.Bytes())
		if x.Cmp(ek.x) != 0 || y.Cmp(ek.y) != 0 {
			return keymgmt.ErrKeypairMismatch
		}
	}
	return nil
}

// Match reports structural equality of the selected subsets.
func (m *Manager) Match(k1, k2 keymgmt.Key, selection keymgmt.Selection) (bool, error) {
	ek1, err := m.checked(k1)
	if err != nil {
		return false, err
	}
	ek2, err := m.checked(k2)
	if err != nil {
		return false, err
	}
	if selection.Includes(keymgmt.SelectDomainParameters) && ek1.curveName != ek2.curveName {
		return false, nil
	}
	if selection.Includes(keymgmt.SelectPublicKey) {
		if ek1.hasPublic() != ek2.hasPublic() {
			return false, nil
		}
		if ek1.hasPublic() && (ek1.x.Cmp(ek2.x) != 0 || ek1.y.Cmp(ek2.y) != 0) {
			return false, nil
		}
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		if ek1.hasPrivate() != ek2.hasPrivate() {
			return false, nil
		}
		if ek1.hasPrivate() && ek1.priv.Cmp(ek2.priv) != 0 {
			return false, nil
		}
	}
	if selection.Includes(keymgmt.SelectOtherParameters) {
		if ek1.cofactorSet != ek2.cofactorSet || ek1.cofactor != ek2.cofactor {
			return false, nil
		}
	}
	return true, nil
}

func (m *Manager) importTypes(selection keymgmt.Selection) params.Descriptors {
	var ds params.Descriptors
	if selection.Includes(keymgmt.SelectDomainParameters) {
		ds = append(ds, params.Descriptor{Name: keymgmt.ParamCurveName, Kind: params.KindUTF8String, Settable: true, Gettable: true})
	}
	if selection.Includes(keymgmt.SelectPublicKey) {
		ds = append(ds, params.Descriptor{Name: keymgmt.ParamPub, Kind: params.KindOctetString, Settable: true, Gettable: true})
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		ds = append(ds, params.Descriptor{Name: keymgmt.ParamPriv, Kind: params.KindUnsignedInteger, Settable: true, Gettable: true})
	}
	if selection.Includes(keymgmt.SelectOtherParameters) {
		ds = append(ds, params.Descriptor{Name: keymgmt.ParamUseCofactorFlag, Kind: params.KindInteger, Settable: true, Gettable: true})
	}
	return ds
}

// ImportTypes implements keymgmt.KeyManager.
func (m *Manager) ImportTypes(selection keymgmt.Selection) params.Descriptors {
	return m.importTypes(selection)
}

// ExportTypes implements keymgmt.KeyManager. EC exports exactly the fields
// it imports, except that the cofactor entry is supplied only when set.
func (m *Manager) ExportTypes(selection keymgmt.Selection) params.Descriptors {
	return m.importTypes(selection)
}

// Import populates the selected subsets from ps. A point that fails to
// decode onto the curve is a value error and fails the whole call.
func (m *Manager) Import(k keymgmt.Key, selection keymgmt.Selection, ps params.Params) error {
	ek, err := m.checked(k)
	if err != nil {
		return err
	}
	if selection == 0 {
		return keymgmt.ErrMissingSelection
	}
	accepted := m.importTypes(selection)

	staged := &key{}
	var pubEnc []byte
	for i := range ps {
		p := &ps[i]
		d, ok := accepted.Find(p.Name)
		if !ok {
			return fmt.Errorf("%w: %q", keymgmt.ErrUnknownParam, p.Name)
		}
		if p.Kind != d.Kind {
			return fmt.Errorf("%s: %w", p.Name, params.ErrTypeMismatch)
		}
		switch p.Name {
		case keymgmt.ParamCurveName:
			name, err := p.Text()
			if err != nil {
				return err
			}
			curve, ok := curves[name]
			if !ok {
				return fmt.Errorf("%w: unknown curve %q (supported: %v)", keymgmt.ErrInvalidKey, name, CurveNames())
			}
			staged.curveName = name
			staged.curve = curve
		case keymgmt.ParamPub:
			pubEnc, err = p.Octets()
			if err != nil {
				return err
			}
		case keymgmt.ParamPriv:
			staged.priv, err = p.Uint()
			if err != nil {
				return err
			}
		case keymgmt.ParamUseCofactorFlag:
			v, err := p.Int()
			if err != nil {
				return err
			}
			if v != 0 && v != 1 {
				return fmt.Errorf("%w: cofactor flag must be 0 or 1", keymgmt.ErrInvalidKey)
			}
			staged.cofactorSet = true
			staged.cofactor = v
		}
	}

	// Resolve the curve the point/scalar belong to: either imported in
	// this call or already held by the key.
	curve, curveName := staged.curve, staged.curveName
	if curve == nil {
		curve, curveName = ek.curve, ek.curveName
	}
	if selection.Includes(keymgmt.SelectDomainParameters) && staged.curve == nil {
		return fmt.Errorf("%w: curve-name is required", keymgmt.ErrComponentMissing)
	}
	if selection.Includes(keymgmt.SelectPublicKey) {
		if pubEnc == nil {
			return fmt.Errorf("%w: pub is required", keymgmt.ErrComponentMissing)
		}
		if curve == nil {
			return fmt.Errorf("%w: a curve is required to decode pub", keymgmt.ErrComponentMissing)
		}
		x, y := elliptic.Unmarshal(curve, pubEnc)
		if x == nil {
			return fmt.Errorf("%w: pub is not a valid point encoding for %s", keymgmt.ErrInvalidKey, curveName)
		}
		staged.x, staged.y = x, y
	}
	if selection.Includes(keymgmt.SelectPrivateKey) && staged.priv == nil {
		return fmt.Errorf("%w: priv is required", keymgmt.ErrComponentMissing)
	}

	if selection.Includes(keymgmt.SelectDomainParameters) {
		ek.curve, ek.curveName = staged.curve, staged.curveName
	}
	if selection.Includes(keymgmt.SelectPublicKey) {
		ek.x, ek.y = staged.x, staged.y
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		ek.priv = staged.priv
	}
	if selection.Includes(keymgmt.SelectOtherParameters) && staged.cofactorSet {
		ek.cofactorSet, ek.cofactor = true, staged.cofactor
	}
	return nil
}

// Export passes the selected subsets to consumer as a parameter array
// scoped to the call.
func (m *Manager) Export(k keymgmt.Key, selection keymgmt.Selection, consumer func(params.Params) error) error {
	ek, err := m.checked(k)
	if err != nil {
		return err
	}
	if selection == 0 {
		return keymgmt.ErrMissingSelection
	}
	var ps params.Params
	if selection.Includes(keymgmt.SelectDomainParameters) {
		if !ek.hasDomain() {
			return keymgmt.ErrComponentMissing
		}
		ps = append(ps, params.NewString(keymgmt.ParamCurveName, ek.curveName))
	}
	if selection.Includes(keymgmt.SelectPublicKey) {
		if !ek.hasPublic() {
			return keymgmt.ErrComponentMissing
		}
		ps = append(ps, params.NewOctets(keymgmt.ParamPub, ek.pubBytes()))
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		if !ek.hasPrivate() {
			return keymgmt.ErrComponentMissing
		}
		ps = append(ps, params.NewUint(keymgmt.ParamPriv, ek.priv))
	}
	if selection.Includes(keymgmt.SelectOtherParameters) && ek.cofactorSet {
		ps = append(ps, params.NewInt(keymgmt.ParamUseCofactorFlag, ek.cofactor))
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
		d.curve, d.curveName = s.curve, s.curveName
	}
	if selection.Includes(keymgmt.SelectPublicKey) {
		d.x, d.y = copyInt(s.x), copyInt(s.y)
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		d.priv = copyInt(s.priv)
	}
	if selection.Includes(keymgmt.SelectOtherParameters) {
		d.cofactorSet, d.cofactor = s.cofactorSet, s.cofactor
	}
	return nil
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// OperationName implements keymgmt.KeyManager. EC keys serve ECDSA
// signatures and ECDH key exchange.
func (m *Manager) OperationName(op keymgmt.Operation) string {
	switch op {
	case keymgmt.OperationSignature:
		return "ECDSA"
	case keymgmt.OperationKeyExchange:
		return "ECDH"
	default:
		return ""
	}
}

// genContext is the EC generation context.
type genContext struct {
	keymgmt.GenState

	curveName   string
	cofactorSet bool
	cofactor    int64
	template    *key
	badTemplate bool
}

// NewGeneration creates a generation context. A selection naming only
// domain parameters produces a curve-only key.
func (m *Manager) NewGeneration(selection keymgmt.Selection) (keymgmt.GenContext, error) {
	if !selection.Intersects(keymgmt.SelectKeypair | keymgmt.SelectDomainParameters) {
		return nil, keymgmt.ErrMissingSelection
	}
	return &genContext{
		GenState:  keymgmt.NewGenState(selection),
		curveName: CurveP256,
	}, nil
}

// SetTemplate attaches a borrowed template supplying the curve. A later
// call replaces the earlier template; a foreign-family template fails
// Generate deterministically.
func (g *genContext) SetTemplate(template keymgmt.Key) error {
	if err := g.Err(); err != nil {
		return err
	}
	g.template = nil
	g.badTemplate = false
	if template == nil {
		return nil
	}
	ek, ok := template.(*key)
	if !ok {
		g.badTemplate = true
		return nil
	}
	g.template = ek
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
		case keymgmt.ParamCurveName:
			name, err := p.Text()
			if err != nil {
				return err
			}
			if _, ok := curves[name]; !ok {
				return fmt.Errorf("%w: unknown curve %q (supported: %v)", keymgmt.ErrInvalidKey, name, CurveNames())
			}
			staged.curveName = name
		case keymgmt.ParamUseCofactorFlag:
			v, err := p.Int()
			if err != nil {
				return err
			}
			if v != 0 && v != 1 {
				return fmt.Errorf("%w: cofactor flag must be 0 or 1", keymgmt.ErrInvalidKey)
			}
			staged.cofactorSet = true
			staged.cofactor = v
		}
	}
	*g = staged
	return nil
}

// Generate produces a new EC key per the context's selection: the curve
// from the template when attached, the configured curve otherwise, plus a
// keypair when the selection asks for one.
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

	k := &key{curveName: g.curveName, curve: curves[g.curveName]}
	if g.template != nil && g.template.hasDomain() {
		k.curveName, k.curve = g.template.curveName, g.template.curve
	}
	if g.cofactorSet {
		k.cofactorSet, k.cofactor = true, g.cofactor
	}

	if !g.Selection().Intersects(keymgmt.SelectKeypair) {
		return k, nil
	}

	priv, err := ecdsa.GenerateKey(k.curve, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("ec generation failed: %w", err)
	}
	if progress != nil {
		progress(1, 0)
	}
	k.priv = priv.D
	k.x, k.y = priv.X, priv.Y
	return k, nil
}
