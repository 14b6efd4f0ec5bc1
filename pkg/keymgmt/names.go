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

// Parameter names shared across algorithm families. These exact strings are
// the wire contract between callers and key managers; family packages define
// their family-specific names alongside their descriptor tables.
const (
	// ParamBits is the key size in bits (native integer).
	ParamBits = "bits"

	// ParamMaxSize is the maximum size in bytes of a signature or
	// ciphertext produced with the key (native integer).
	ParamMaxSize = "max-size"

	// ParamSecurityBits is the key's security strength in bits
	// (native integer).
	ParamSecurityBits = "security-bits"

	// ParamPub is the raw public key (octet string for EC/ECX/EdDSA,
	// unsigned integer for DSA/DH).
	ParamPub = "pub"

	// ParamPriv is the raw private key (octet string for ECX/EdDSA,
	// unsigned integer for DSA/DH/EC).
	ParamPriv = "priv"

	// ParamP, ParamQ, ParamG are finite-field domain parameters
	// (unsigned integers).
	ParamP = "p"
	ParamQ = "q"
	ParamG = "g"

	// ParamCurveName is the named curve identifier (UTF-8 string).
	ParamCurveName = "curve-name"

	// ParamUseCofactorFlag enables cofactor mode on EC keys (integer,
	// 0 or 1).
	ParamUseCofactorFlag = "use-cofactor-flag"

	// ParamUseCofactorECDH is an alias of ParamUseCofactorFlag used by
	// key-exchange callers (integer, 0 or 1).
	ParamUseCofactorECDH = "use-cofactor-ecdh"
)

// SecurityBits returns the security strength in bits of a finite-field or
// RSA modulus of the given bit length, per the NIST SP 800-57 comparable
// strength table.
func SecurityBits(modulusBits int) int {
	switch {
	case modulusBits >= 15360:
		return 256
	case modulusBits >= 7680:
		return 192
	case modulusBits >= 3072:
		return 128
	case modulusBits >= 2048:
		return 112
	case modulusBits >= 1024:
		return 80
	default:
		return 0
	}
}
