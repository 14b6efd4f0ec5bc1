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

// Package params implements the typed key/value protocol used to exchange
// key attributes and generation options between callers and key managers.
//
// A Param carries a name, a declared value kind, and optionally a value.
// A Params slice is the unit of exchange for a single get/set/import/export
// call. Callers requesting values build unfilled entries with Request and
// the key manager fills the ones it recognizes; entries it does not
// recognize are left unfilled, which is not an error.
package params

import "math/big"

// Kind identifies the declared value type of a parameter.
type Kind int

const (
	// KindUnsignedInteger is an arbitrary-precision unsigned integer,
	// carried as a *big.Int. Used for RSA/DSA/DH field elements.
	KindUnsignedInteger Kind = iota + 1

	// KindOctetString is a fixed-size byte string, carried as []byte.
	// Used for raw public keys and encoded EC points.
	KindOctetString

	// KindUTF8String is a UTF-8 string. Used for curve names.
	KindUTF8String

	// KindInteger is a native signed integer, carried as int64.
	// Used for bit counts, sizes, and flags.
	KindInteger
)

// String returns the protocol name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnsignedInteger:
		return "unsigned-integer"
	case KindOctetString:
		return "octet-string"
	case KindUTF8String:
		return "utf8-string"
	case KindInteger:
		return "integer"
	default:
		return "unknown"
	}
}

// Param is a single named, typed parameter. The zero value is not usable;
// construct with NewUint, NewOctets, NewString, NewInt, or Request.
type Param struct {
	// Name is the parameter's string key.
	Name string

	// Kind is the declared value type. A filled value always matches Kind.
	Kind Kind

	value any
}

// NewUint creates a filled unsigned-integer parameter. The value is copied.
func NewUint(name string, v *big.Int) Param {
	return Param{Name: name, Kind: KindUnsignedInteger, value: new(big.Int).Set(v)}
}

// NewOctets creates a filled octet-string parameter. The value is copied.
func NewOctets(name string, v []byte) Param {
	buf := make([]byte, len(v))
	copy(buf, v)
	return Param{Name: name, Kind: KindOctetString, value: buf}
}

// NewString creates a filled UTF-8 string parameter.
func NewString(name, v string) Param {
	return Param{Name: name, Kind: KindUTF8String, value: v}
}

// NewInt creates a filled native-integer parameter.
func NewInt(name string, v int64) Param {
	return Param{Name: name, Kind: KindInteger, value: v}
}

// Request creates an unfilled parameter of the given kind, to be filled by
// a get-params call. IsSet reports whether it was filled.
func Request(name string, kind Kind) Param {
	return Param{Name: name, Kind: kind}
}

// IsSet reports whether the parameter holds a value.
func (p *Param) IsSet() bool {
	return p.value != nil
}

// Uint returns the unsigned-integer value. The returned value is a copy.
func (p *Param) Uint() (*big.Int, error) {
	if p.Kind != KindUnsignedInteger {
		return nil, ErrTypeMismatch
	}
	if p.value == nil {
		return nil, ErrNotSet
	}
	return new(big.Int).Set(p.value.(*big.Int)), nil
}

// Octets returns the octet-string value. The returned slice is a copy.
func (p *Param) Octets() ([]byte, error) {
	if p.Kind != KindOctetString {
		return nil, ErrTypeMismatch
	}
	if p.value == nil {
		return nil, ErrNotSet
	}
	src := p.value.([]byte)
	buf := make([]byte, len(src))
	copy(buf, src)
	return buf, nil
}

// Text returns the UTF-8 string value.
func (p *Param) Text() (string, error) {
	if p.Kind != KindUTF8String {
		return "", ErrTypeMismatch
	}
	if p.value == nil {
		return "", ErrNotSet
	}
	return p.value.(string), nil
}

// Int returns the native-integer value.
func (p *Param) Int() (int64, error) {
	if p.Kind != KindInteger {
		return 0, ErrTypeMismatch
	}
	if p.value == nil {
		return 0, ErrNotSet
	}
	return p.value.(int64), nil
}

// SetUint fills the parameter with an unsigned-integer value.
// Fails with ErrTypeMismatch if the declared kind differs.
func (p *Param) SetUint(v *big.Int) error {
	if p.Kind != KindUnsignedInteger {
		return ErrTypeMismatch
	}
	p.value = new(big.Int).Set(v)
	return nil
}

// SetOctets fills the parameter with an octet-string value.
func (p *Param) SetOctets(v []byte) error {
	if p.Kind != KindOctetString {
		return ErrTypeMismatch
	}
	buf := make([]byte, len(v))
	copy(buf, v)
	p.value = buf
	return nil
}

// SetText fills the parameter with a UTF-8 string value.
func (p *Param) SetText(v string) error {
	if p.Kind != KindUTF8String {
		return ErrTypeMismatch
	}
	p.value = v
	return nil
}

// SetInt fills the parameter with a native-integer value.
func (p *Param) SetInt(v int64) error {
	if p.Kind != KindInteger {
		return ErrTypeMismatch
	}
	p.value = v
	return nil
}

// Value returns the raw value for rendering (a *big.Int, []byte, string,
// or int64), or nil when unfilled. Mutating a returned reference type
// mutates the parameter; callers that need isolation use the typed getters.
func (p *Param) Value() any {
	return p.value
}

// Params is an ordered sequence of parameters exchanged in one call.
type Params []Param

// Get returns a pointer to the first entry with the given name, so callers
// can fill or read it in place.
func (ps Params) Get(name string) (*Param, bool) {
	for i := range ps {
		if ps[i].Name == name {
			return &ps[i], true
		}
	}
	return nil, false
}

// Has reports whether an entry with the given name exists.
func (ps Params) Has(name string) bool {
	_, ok := ps.Get(name)
	return ok
}

// Names returns the entry names in order.
func (ps Params) Names() []string {
	names := make([]string, len(ps))
	for i := range ps {
		names[i] = ps[i].Name
	}
	return names
}
