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

package keymgmt

import "strings"

// Selection is a bitmask naming which data subsets of a key object an
// operation should act on. It is passed by value and never mutated by the
// operation it scopes.
type Selection uint32

const (
	// SelectPrivateKey selects the private key material.
	SelectPrivateKey Selection = 1 << iota

	// SelectPublicKey selects the public key material.
	SelectPublicKey

	// SelectDomainParameters selects shared domain parameters
	// (e.g., DSA/DH p, q, g or the EC curve).
	SelectDomainParameters

	// SelectOtherParameters selects auxiliary per-key parameters
	// (e.g., the EC cofactor-ECDH flag).
	SelectOtherParameters
)

const (
	// SelectKeypair selects both private and public key material.
	SelectKeypair = SelectPrivateKey | SelectPublicKey

	// SelectAllParameters selects domain and other parameters.
	SelectAllParameters = SelectDomainParameters | SelectOtherParameters

	// SelectAll selects every data subset.
	SelectAll = SelectKeypair | SelectAllParameters
)

// Includes reports whether every bit of sub is set in s.
func (s Selection) Includes(sub Selection) bool {
	return s&sub == sub
}

// Intersects reports whether s and other share any bit.
func (s Selection) Intersects(other Selection) bool {
	return s&other != 0
}

// String returns a pipe-separated list of the selected subsets.
func (s Selection) String() string {
	if s == 0 {
		return "none"
	}
	var parts []string
	if s.Includes(SelectPrivateKey) {
		parts = append(parts, "private-key")
	}
	if s.Includes(SelectPublicKey) {
		parts = append(parts, "public-key")
	}
	if s.Includes(SelectDomainParameters) {
		parts = append(parts, "domain-parameters")
	}
	if s.Includes(SelectOtherParameters) {
		parts = append(parts, "other-parameters")
	}
	return strings.Join(parts, "|")
}
