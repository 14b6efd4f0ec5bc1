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

// Package ecx implements the key-management contract for the Montgomery
// curve families X25519 and X448. Key material is exchanged as fixed-size
// octet strings under the canonical names pub and priv (32 bytes for
// X25519, 56 for X448). These families carry no domain or other
// parameters.
package ecx

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/dh/x448"
	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt"
	"github.com/jeremyhahn/go-keymgmt/pkg/params"
	"golang.org/x/crypto/curve25519"
)

// family holds the per-algorithm constants and the scalar-mult primitive.
type family struct {
	alg          keymgmt.Algorithm
	keySize      int
	bits         int
	securityBits int
	derive       func(priv []byte) ([]byte, error)
}

var x25519Family = &family{
	alg:          keymgmt.AlgorithmX25519,
	keySize:      curve25519.ScalarSize,
	bits:         253,
	securityBits: 128,
	derive: func(priv []byte) ([]byte, error) {
		return curve25519.X25519(priv, curve25519.Basepoint)
	},
}

var x448Family = &family{
	alg:          keymgmt.AlgorithmX448,
	keySize:      x448.Size,
	bits:         448,
	securityBits: 224,
	derive: func(priv []byte) ([]byte, error) {
		var pub, secret x448.Key
		copy(secret[:], priv)
		x448.KeyGen(&pub, &secret)
		return pub[:], nil
	},
}

// key is the ECX key object. pub and priv are nil when absent.
type key struct {
	fam  *family
	pub  []byte
	priv []byte
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

// Manager implements keymgmt.KeyManager for one Montgomery family.
type Manager struct {
	fam *family
}

// NewX25519 creates the X25519 key manager.
func NewX25519() *Manager {
	return &Manager{fam: x25519Family}
}

// NewX448 creates the X448 key manager.
func NewX448() *Manager {
	return &Manager{fam: x448Family}
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

// Free releases a key object, wiping the private scalar. Nil is a no-op.
func (m *Manager) Free(k keymgmt.Key) {
	xk, ok := k.(*key)
	if !ok || xk == nil {
		return
	}
	xk.wipe()
}

func (m *Manager) checked(k keymgmt.Key) (*key, error) {
	if k == nil {
		return nil, keymgmt.ErrKeyRequired
	}
	xk, ok := k.(*key)
	if !ok || xk.fam != m.fam {
		return nil, keymgmt.ErrWrongAlgorithm
	}
	return xk, nil
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

// GenSettableParams implements keymgmt.KeyManager. ECX generation is fully
// determined by the family; there is nothing to configure.
func (m *Manager) GenSettableParams() params.Descriptors {
	return genSettable
}

// GetParams fills requested entries from the key's current state. The size
// parameters are constants of the family but still require a populated key.
func (m *Manager) GetParams(k keymgmt.Key, ps params.Params) error {
	xk, err := m.checked(k)
	if err != nil {
		return err
	}
	for i := range ps {
		p := &ps[i]
		switch p.Name {
		case keymgmt.ParamBits, keymgmt.ParamMaxSize, keymgmt.ParamSecurityBits:
			if xk.pub == nil && xk.priv == nil {
				return fmt.Errorf("%w: %s requires a populated key", keymgmt.ErrComponentMissing, p.Name)
			}
			var v int64
			switch p.Name {
			case keymgmt.ParamBits:
				v = int64(m.fam.bits)
			case keymgmt.ParamMaxSize:
				v = int64(m.fam.keySize)
			case keymgmt.ParamSecurityBits:
				v = int64(m.fam.securityBits)
			}
			if err := p.SetInt(v); err != nil {
				return err
			}
		case keymgmt.ParamPub:
			if xk.pub != nil {
				if err := p.SetOctets(xk.pub); err != nil {
					return err
				}
			}
		case keymgmt.ParamPriv:
			if xk.priv != nil {
				if err := p.SetOctets(xk.priv); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// SetParams applies recognized entries; ECX keys expose no mutable
// attributes, so unknown names are ignored and nothing changes.
func (m *Manager) SetParams(k keymgmt.Key, ps params.Params) error {
	_, err := m.checked(k)
	return err
}

// Has implements keymgmt.KeyManager. ECX keys never hold domain or other
// parameters.
func (m *Manager) Has(k keymgmt.Key, selection keymgmt.Selection) bool {
	xk, err := m.checked(k)
	if err != nil {
		return false
	}
	if selection == 0 {
		return false
	}
	if selection.Includes(keymgmt.SelectPrivateKey) && xk.priv == nil {
		return false
	}
	if selection.Includes(keymgmt.SelectPublicKey) && xk.pub == nil {
		return false
	}
	if selection.Intersects(keymgmt.SelectAllParameters) {
		return false
	}
	return true
}

// Validate checks sizes and, for the keypair combination, that the public
// key equals the scalar-mult of the base point by the private key.
func (m *Manager) Validate(k keymgmt.Key, selection keymgmt.Selection) error {
	xk, err := m.checked(k)
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
		if xk.pub == nil {
			return keymgmt.ErrComponentMissing
		}
		if len(xk.pub) != m.fam.keySize {
			return fmt.Errorf("%w: public key must be %d bytes", keymgmt.ErrInvalidKey, m.fam.keySize)
		}
		if allZero(xk.pub) {
			return fmt.Errorf("%w: all-zero public key", keymgmt.ErrInvalidKey)
		}
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		if xk.priv == nil {
			return keymgmt.ErrComponentMissing
		}
		if len(xk.priv) != m.fam.keySize && !(m.fam.alg == keymgmt.AlgorithmX25519 && len(xk.priv) == curve25519.ScalarSize) {
			return fmt.Errorf("%w: private key must be %d bytes", keymgmt.ErrInvalidKey, m.fam.keySize)
		}
	}
	if selection.Includes(keymgmt.SelectKeypair) {
		derived, err := m.fam.derive(xk.priv)
		if err != nil {
			return fmt.Errorf("%w: %v", keymgmt.ErrInvalidKey, err)
		}
		if !bytes.Equal(derived, xk.pub) {
			return keymgmt.ErrKeypairMismatch
		}
	}
	return nil
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// Match reports structural equality of the selected subsets.
func (m *Manager) Match(k1, k2 keymgmt.Key, selection keymgmt.Selection) (bool, error) {
	xk1, err := m.checked(k1)
	if err != nil {
		return false, err
	}
	xk2, err := m.checked(k2)
	if err != nil {
		return false, err
	}
	if selection.Includes(keymgmt.SelectPublicKey) && !bytesEqual(xk1.pub, xk2.pub) {
		return false, nil
	}
	if selection.Includes(keymgmt.SelectPrivateKey) && !bytesEqual(xk1.priv, xk2.priv) {
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
// derives and stores the matching public key, keeping the object usable by
// sibling operations.
func (m *Manager) Import(k keymgmt.Key, selection keymgmt.Selection, ps params.Params) error {
	xk, err := m.checked(k)
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
		if len(v) != m.fam.keySize {
			return fmt.Errorf("%w: %s must be %d bytes", keymgmt.ErrInvalidKey, p.Name, m.fam.keySize)
		}
		switch p.Name {
		case keymgmt.ParamPub:
			pub = v
		case keymgmt.ParamPriv:
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
			derived, err := m.fam.derive(priv)
			if err != nil {
				return fmt.Errorf("%w: %v", keymgmt.ErrInvalidKey, err)
			}
			pub = derived
		}
	}

	if selection.Includes(keymgmt.SelectPrivateKey) {
		xk.priv = priv
		xk.pub = pub
	} else {
		xk.pub = pub
	}
	return nil
}

// Export passes the selected subsets to consumer as a parameter array
// scoped to the call.
func (m *Manager) Export(k keymgmt.Key, selection keymgmt.Selection, consumer func(params.Params) error) error {
	xk, err := m.checked(k)
	if err != nil {
		return err
	}
	if !selection.Intersects(keymgmt.SelectKeypair) {
		return keymgmt.ErrMissingSelection
	}
	var ps params.Params
	if selection.Includes(keymgmt.SelectPublicKey) {
		if xk.pub == nil {
			return keymgmt.ErrComponentMissing
		}
		ps = append(ps, params.NewOctets(keymgmt.ParamPub, xk.pub))
	}
	if selection.Includes(keymgmt.SelectPrivateKey) {
		if xk.priv == nil {
			return keymgmt.ErrComponentMissing
		}
		ps = append(ps, params.NewOctets(keymgmt.ParamPriv, xk.priv))
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

// OperationName implements keymgmt.KeyManager. Montgomery keys serve key
// exchange under their own family name.
func (m *Manager) OperationName(op keymgmt.Operation) string {
	if op == keymgmt.OperationKeyExchange {
		return string(m.fam.alg)
	}
	return ""
}

// genContext is the ECX generation context.
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

// SetTemplate attaches a borrowed template. ECX keys have no inheritable
// fields; the template only participates in the family check that fails
// Generate on a mismatch.
func (g *genContext) SetTemplate(template keymgmt.Key) error {
	if err := g.Err(); err != nil {
		return err
	}
	g.badTemplate = false
	if template == nil {
		return nil
	}
	xk, ok := template.(*key)
	if !ok || xk.fam != g.fam {
		g.badTemplate = true
	}
	return nil
}

// SetParams applies generation parameters; ECX recognizes none, so every
// name is ignored.
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

	priv := make([]byte, g.fam.keySize)
	if _, err := rand.Read(priv); err != nil {
		return nil, fmt.Errorf("%s generation failed: %w", g.fam.alg, err)
	}
	pub, err := g.fam.derive(priv)
	if err != nil {
		return nil, fmt.Errorf("%s generation failed: %w", g.fam.alg, err)
	}
	if progress != nil {
		progress(1, 0)
	}
	return &key{fam: g.fam, pub: pub, priv: priv}, nil
}
