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

// Package eddsa implements the key-management contract for the Edwards
// curve signature families Ed25519 and Ed448. Key material is exchanged as
// octet strings under the canonical names pub and priv; priv is the RFC
// 8032 seed (32 bytes for Ed25519, 57 for Ed448). These families carry no
// domain or other parameters.
package eddsa

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/cloudflare/circl/sign/ed448"
	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt"
	"github.com/jeremyhahn/go-keymgmt/pkg/params"
)

// family holds the per-algorithm constants and primitives.
type family struct {
	alg          keymgmt.Algorithm
	seedSize     int
	pubSize      int
	sigSize      int
	bits         int
	securityBits int
	derive       func(seed []byte) []byte
	validatePub  func(pub []byte) error
}

var ed25519Family = &family{
	alg:          keymgmt.AlgorithmED25519,
	seedSize:     ed25519.SeedSize,
	pubSize:      ed25519.PublicKeySize,
	sigSize:      ed25519.SignatureSize,
	bits:         256,
	securityBits: 128,
	derive: func(seed []byte) []byte {
		pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
		return []byte(pub)
	},
	validatePub: func(pub []byte) error {
		// Reject encodings that do not decode to a curve point.
		if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
			return fmt.Errorf("%w: not a valid edwards25519 point", keymgmt.ErrInvalidKey)
		}
		return nil
	},
}

var ed448Family = &family{
	alg:          keymgmt.AlgorithmED448,
	seedSize:     ed448.SeedSize,
	pubSize:      ed448.PublicKeySize,
	sigSize:      ed448.SignatureSize,
	bits:         456,
	securityBits: 224,
	derive: func(seed []byte) []byte {
		pub := ed448.NewKeyFromSeed(seed).Public().(ed448.PublicKey)
		return []byte(pub)
	},
	validatePub: func(pub []byte) error {
		return nil
	},
}

// key is the EdDSA key object. pub and priv are nil when absent.
type key struct {
	fam  *family
	pub  []byte
	priv []byte // RFC 8032 seed
}

// Algorithm implements keymgmt.Key.
func (k *key) Algorithm() keymgmt.Algorithm {
	return k.fam.alg
}

func (k *key) wipe() {
	for i := range k.priv {
		k.priv[i] = 0
	}
	k.pub, k.priv = nil, nil
}

// Manager implements keymgmt.KeyManager for one Edwards family.
type Manager struct {
	fam *family
}

// NewED25519 creates the Ed25519 key manager.
func NewED25519() *Manager {
	return &Manager{fam: ed25519Family}
}

// NewED448 creates the Ed448 key manager.
func NewED448() *Manager {
	return &Manager{fam: ed448Family}
}

// Algorithm implements keymgmt.KeyManager.
func (m *Manager) Algorithm() keymgmt.Algorithm {
	return m.fam.alg
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
	return &key{fam: m.fam}, nil
}

// Free releases a key object, wiping the seed. Nil is a no-op.
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
	if !ok || ek.fam != m.fam {
		return nil, keymgmt.ErrWrongAlgorithm
	}
	return ek, nil
}

var gettable = params.Descriptors{
	{Name: keymgmt.ParamBits, Kind: params.KindInteger, Gettable: true, Mandatory: true},
	{Name: keymgmt.ParamMaxSize, Kind: params.KindInteger, Gettable: true, Mandatory: true},
	{Name: keymgmt.ParamSecurityBits, Kind: params.KindInteger, Gettable: true, Mandatory: true},
	{Name: keymgmt.ParamPub, Kind: params.KindOctetString, Gettable: true},
	{Name: keymgmt.ParamPriv, Kind: params.KindOctetString, Gettable: true},
}

var settable = params.Descriptors{}

var genSettable = params.Descriptors{}

// GettableParams implements keymgmt.KeyManager.
func (m *Manager) GettableParams() params.Descriptors {
	return gettable
}

// SettableParams implements keymgmt.KeyManager.
func (m *Manager) SettableParams() params.Descriptors {
	return settable
}

// GenSettableParams implements keymgmt.KeyManager. EdDSA generation has
// nothing to configure.
func (m *Manager) GenSettableParams() params.Descriptors {
	return genSettable
}

// GetParams fills requested entries from the key's current state.
// max-size is the signature size in bytes.
func (m *Manager) GetParams(k keymgmt.Key, ps params.Params) error {
	ek, err := m.checked(k)
	if err != nil {
		return err
	}
	for i := range ps {
		p := &ps[i]
		switch p.Name {
		case keymgmt.ParamBits, keymgmt.ParamMaxSize, keymgmt.ParamSecurityBits:
			if ek.pub == nil && ek.priv == nil {
				return fmt.Errorf("%w: %s requires a populated key", keymgmt.ErrComponentMissing, p.Name)
			}
			var v int64
			switch p.Name {
			case keymgmt.ParamBits:
				v = int64(m.fam.bits)
			case keymgmt.ParamMaxSize:
				v = int64(m.fam.sigSize)
			case keymgmt.ParamSecurityBits:
				v = int64(m.fam.securityBits)
			}
			if err := p.SetInt(v); err != nil {
				return err
			}
		case keymgmt.ParamPub:
			if ek.pub != nil {
				if err := p.SetOctets(ek.pub); err != nil {
					return err
				}
			}
		case keymgmt.ParamPriv:
			if ek.priv != nil {
				if err := p.SetOctets(ek.priv); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// SetParams applies recognized entries; EdDSA keys expose no mutable
// attributes, so unknown names are ignored and nothing changes.
func (m *Manager) SetParams(k keymgmt.Key, ps params.Params) error {
	_, err := m.checked(k)
	return err
}

// Has implements keymgmt.KeyManager. EdDSA keys never hold domain or other
// parameters.
func (m *Manager) Has(k keymgmt.Key, selection keymgmt.Selection) bool {
	ek, err := m.checked(k)
	if err != nil {
		return false
	}
	if selection == 0 {
		return false
	}
	if selection.Includes(keymgmt.SelectPrivateKey) && ek.priv == nil {
		return false
	}
	if selection.Includes(keymgmt.SelectPublicKey) && ek.pub == nil {
		return false
	}
	if selection.Intersects(keymgmt.SelectAllParameters) {
		return false
	}
	return true
}

// Validate checks sizes and point validity, and for the keypair
// combination re-derives the public key from the seed.
func (m *Manager) Validate(k keymgmt.Key, selection keymgmt.Selection) error {
	ek, err := m.checked(k)
	if err != nil {
		return err
	}
	if selection == 0 {
		return keymgmt.ErrMissingSelection
	}
	if selection.Intersects(keymgmt.SelectAllParameters) {
		return fmt.Errorf("%w: %s keys have no parameters", keymgmt.ErrComponentMissing, m.fam.alg)
	}
	if selection.Includes(keymgmt.SelectPublicKey) {
		if ek.pub == nil {
			return keymgmt.ErrComponentMissing
		}
		if len(ek.pub) != m.fam.pubSize {
			return fmt.Errorf("%w: public key must be %d bytes", keymgmt.ErrInvalidKey, m.fam.pubSize)
		}
		if err := m.fam.validatePub(ek.pub); err != nil {
			return err
		}
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		if ek.priv == nil {
			return keymgmt.ErrComponentMissing
		}
		if len(ek.priv) != m.fam.seedSize {
			return fmt.Errorf("%w: seed must be %d bytes", keymgmt.ErrInvalidKey, m.fam.seedSize)
		}
	}
	if selection.Includes(keymgmt.SelectKeypair) {
		if !bytes.Equal(m.fam.derive(ek.priv), ek.pub) {
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
	if selection.Includes(keymgmt.SelectPublicKey) && !bytesEqual(ek1.pub, ek2.pub) {
		return false, nil
	}
	if selection.Includes(keymgmt.SelectPrivateKey) && !bytesEqual(ek1.priv, ek2.priv) {
		return false, nil
	}
	return true, nil
}

func bytesEqual(a, b []byte) bool {
	if a == nil || b == nil {
		return (a == nil) == (b == nil)
	}
	return bytes.Equal(a, b)
}

func (m *Manager) importTypes(selection keymgmt.Selection) params.Descriptors {
	var ds params.Descriptors
	if selection.Includes(keymgmt.SelectPublicKey) {
		ds = append(ds, params.Descriptor{Name: keymgmt.ParamPub, Kind: params.KindOctetString, Settable: true, Gettable: true})
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		ds = append(ds, params.Descriptor{Name: keymgmt.ParamPriv, Kind: params.KindOctetString, Settable: true, Gettable: true})
	}
	return ds
}

// ImportTypes implements keymgmt.KeyManager.
func (m *Manager) ImportTypes(selection keymgmt.Selection) params.Descriptors {
	return m.importTypes(selection)
}

// ExportTypes implements keymgmt.KeyManager.
func (m *Manager) ExportTypes(selection keymgmt.Selection) params.Descriptors {
	return m.importTypes(selection)
}

// Import populates the selected subsets from ps. A private-only import
// derives and stores the matching public key.
func (m *Manager) Import(k keymgmt.Key, selection keymgmt.Selection, ps params.Params) error {
	ek, err := m.checked(k)
	if err != nil {
		return err
	}
	if !selection.Intersects(keymgmt.SelectKeypair) {
		return keymgmt.ErrMissingSelection
	}
	accepted := m.importTypes(selection)

	var pub, priv []byte
	for i := range ps {
		p := &ps[i]
		d, ok := accepted.Find(p.Name)
		if !ok {
			return fmt.Errorf("%w: %q", keymgmt.ErrUnknownParam, p.Name)
		}
		if p.Kind != d.Kind {
			return fmt.Errorf("%s: %w", p.Name, params.ErrTypeMismatch)
		}
		v, err := p.Octets()
		if err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}
		switch p.Name {
		case keymgmt.ParamPub:
			if len(v) != m.fam.pubSize {
				return fmt.Errorf("%w: pub must be %d bytes", keymgmt.ErrInvalidKey, m.fam.pubSize)
			}
			pub = v
		case keymgmt.ParamPriv:
			if len(v) != m.fam.seedSize {
				return fmt.Errorf("%w: priv must be %d bytes", keymgmt.ErrInvalidKey, m.fam.seedSize)
			}
			priv = v
		}
	}

	if selection.Includes(keymgmt.SelectPublicKey) && pub == nil {
		return fmt.Errorf("%w: pub is required", keymgmt.ErrComponentMissing)
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		if priv == nil {
			return fmt.Errorf("%w: priv is required", keymgmt.ErrComponentMissing)
		}
		if pub == nil {
			pub = m.fam.derive(priv)
		}
	}

	if selection.Includes(keymgmt.SelectPrivateKey) {
		ek.priv = priv
		ek.pub = pub
	} else {
		ek.pub = pub
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
	if !selection.Intersects(keymgmt.SelectKeypair) {
		return keymgmt.ErrMissingSelection
	}
	var ps params.Params
	if selection.Includes(keymgmt.SelectPublicKey) {
		if ek.pub == nil {
			return keymgmt.ErrComponentMissing
		}
		ps = append(ps, params.NewOctets(keymgmt.ParamPub, ek.pub))
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		if ek.priv == nil {
			return keymgmt.ErrComponentMissing
		}
		ps = append(ps, params.NewOctets(keymgmt.ParamPriv, ek.priv))
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
	if selection.Includes(keymgmt.SelectPublicKey) {
		d.pub = copyBytes(s.pub)
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		d.priv = copyBytes(s.priv)
	}
	return nil
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// OperationName implements keymgmt.KeyManager. Edwards keys sign under
// their own family name.
func (m *Manager) OperationName(op keymgmt.Operation) string {
	if op == keymgmt.OperationSignature {
		return string(m.fam.alg)
	}
	return ""
}

// genContext is the EdDSA generation context.
type genContext struct {
	keymgmt.GenState

	fam         *family
	badTemplate bool
}

// NewGeneration creates a generation context.
func (m *Manager) NewGeneration(selection keymgmt.Selection) (keymgmt.GenContext, error) {
	if !selection.Intersects(keymgmt.SelectKeypair) {
		return nil, keymgmt.ErrMissingSelection
	}
	return &genContext{
		GenState: keymgmt.NewGenState(selection),
		fam:      m.fam,
	}, nil
}

// SetTemplate attaches a borrowed template. EdDSA keys have no inheritable
// fields; a foreign-family template fails Generate.
func (g *genContext) SetTemplate(template keymgmt.Key) error {
	if err := g.Err(); err != nil {
		return err
	}
	g.badTemplate = false
	if template == nil {
		return nil
	}
	ek, ok := template.(*key)
	if !ok || ek.fam != g.fam {
		g.badTemplate = true
	}
	return nil
}

// SetParams applies generation parameters; EdDSA recognizes none.
func (g *genContext) SetParams(ps params.Params) error {
	return g.Err()
}

// Generate produces a new keypair from fresh randomness.
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

	seed := make([]byte, g.fam.seedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("%s generation failed: %w", g.fam.alg, err)
	}
	pub := g.fam.derive(seed)
	if progress != nil {
		progress(1, 0)
	}
	return &key{fam: g.fam, pub: pub, priv: seed}, nil
}
