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

// Package keymgmt defines the key-management contract between a caller and
// pluggable per-algorithm key managers: opaque key objects, selection masks
// scoping operations to data subsets, a typed parameter protocol (pkg/params),
// and a resumable generation context.
//
// A Key is owned exclusively by the manager that produced it. The same
// in-memory representation is shared by every operation of that manager:
// a key produced by New, Import, or a generation context is directly usable
// by any other operation without translation.
//
// Neither Key nor GenContext is safe for concurrent use; operations on
// distinct objects are independent.
package keymgmt

import "github.com/jeremyhahn/go-keymgmt/pkg/params"

// Algorithm identifies a key manager's algorithm family.
type Algorithm string

const (
	AlgorithmRSA     Algorithm = "RSA"
	AlgorithmDSA     Algorithm = "DSA"
	AlgorithmDH      Algorithm = "DH"
	AlgorithmEC      Algorithm = "EC"
	AlgorithmX25519  Algorithm = "X25519"
	AlgorithmX448    Algorithm = "X448"
	AlgorithmED25519 Algorithm = "ED25519"
	AlgorithmED448   Algorithm = "ED448"
)

// String returns the algorithm name.
func (a Algorithm) String() string {
	return string(a)
}

// Key is an opaque, manager-owned container for an asymmetric key's data
// subsets. Concrete key types are unexported by their family packages; the
// only portable view of a key's contents is through its manager's
// operations, always scoped by a Selection.
type Key interface {
	// Algorithm returns the key's algorithm family.
	Algorithm() Algorithm
}

// Operation identifies a sibling cryptographic operation kind for
// OperationName queries.
type Operation int

const (
	// OperationSignature is the digital signature operation.
	OperationSignature Operation = iota + 1

	// OperationKeyExchange is the shared-secret derivation operation.
	OperationKeyExchange

	// OperationAsymCipher is the asymmetric encryption operation.
	OperationAsymCipher
)

// ProgressFunc observes key-generation progress. It is invoked synchronously
// on the generating goroutine zero or more times with an
// implementation-defined stage and iteration counter. It cannot abort
// generation, and must not call back into the generation context.
type ProgressFunc func(stage, iteration int)

// Capabilities describes which operations a key manager supports. Absent
// operations are signaled here rather than by a runtime probe; calling an
// unsupported operation returns ErrNotSupported.
type Capabilities struct {
	// Create indicates New is supported.
	Create bool

	// Generate indicates NewGeneration/Generate are supported.
	Generate bool

	// GetParams indicates GetParams and GettableParams are supported.
	GetParams bool

	// SetParams indicates SetParams and SettableParams are supported.
	SetParams bool

	// Import indicates Import and ImportTypes are supported.
	Import bool

	// Export indicates Export and ExportTypes are supported.
	Export bool

	// Copy indicates object-to-object Copy is supported.
	Copy bool

	// Validate indicates Validate is supported.
	Validate bool

	// Match indicates Match is supported.
	Match bool
}

// KeyManager is the key-management contract for one algorithm family.
//
// Every implementation must support Free plus at least one of New and
// generation. Descriptor operations are co-required with their mutating
// operation: a manager whose Capabilities report GetParams must return a
// non-empty GettableParams list, and so on.
type KeyManager interface {
	// Algorithm returns the algorithm family this manager serves.
	Algorithm() Algorithm

	// Capabilities returns the operations this manager supports.
	Capabilities() Capabilities

	// New creates a new empty key object holding no data subsets.
	New() (Key, error)

	// Free releases a key object and wipes its private material.
	// Freeing a nil key is a safe no-op. Each object is freed exactly
	// once; a freed object must not be used again.
	Free(key Key)

	// GetParams fills each entry of ps whose name the manager recognizes
	// from the key's current state. Unrecognized or unavailable names are
	// left unfilled, except that failing to fill a requested parameter
	// marked Mandatory in GettableParams fails the call.
	GetParams(key Key, ps params.Params) error

	// GettableParams returns the static descriptor list GetParams serves.
	GettableParams() params.Descriptors

	// SetParams applies each entry of ps to the key. Unknown names are
	// ignored; a type-mismatched value for a known name fails the call
	// with no entries applied.
	SetParams(key Key, ps params.Params) error

	// SettableParams returns the static descriptor list SetParams accepts.
	SettableParams() params.Descriptors

	// Has reports whether every data subset named by selection is present
	// and non-empty in the key.
	Has(key Key, selection Selection) bool

	// Validate checks that the data subsets named by selection are
	// well-formed per algorithm rules. For SelectKeypair it additionally
	// checks that private and public parts are pairwise consistent.
	// Validating a subset the key does not hold fails.
	Validate(key Key, selection Selection) error

	// Match reports whether the data subsets named by selection are
	// structurally equal between two keys owned by this manager.
	Match(key1, key2 Key, selection Selection) (bool, error)

	// Import populates the key's data subsets named by selection from ps.
	// Every entry must appear in ImportTypes(selection) with a matching
	// kind; any unknown name or type mismatch fails the whole call,
	// leaving the key's prior state intact.
	Import(key Key, selection Selection, ps params.Params) error

	// ImportTypes returns the static descriptor list Import accepts for
	// the given selection.
	ImportTypes(selection Selection) params.Descriptors

	// Export builds a parameter array representing the key's data subsets
	// named by selection and passes it to consumer. The array is scoped to
	// the call: consumer must copy any values it retains.
	Export(key Key, selection Selection, consumer func(params.Params) error) error

	// ExportTypes returns the static descriptor list Export supplies for
	// the given selection.
	ExportTypes(selection Selection) params.Descriptors

	// Copy copies the data subsets named by selection from src into dst,
	// overwriting dst's corresponding subsets. dst and src must be
	// distinct objects of this manager; self-copy fails with ErrSelfCopy.
	Copy(dst, src Key, selection Selection) error

	// NewGeneration creates a generation context scoped to the given
	// selection of material to generate.
	NewGeneration(selection Selection) (GenContext, error)

	// GenSettableParams returns the static descriptor list accepted by
	// GenContext.SetParams, independent of any live context.
	GenSettableParams() params.Descriptors

	// OperationName returns the advisory algorithm name to use when
	// fetching the given sibling operation for keys of this family, or ""
	// meaning the caller should reuse the name it fetched this manager
	// under.
	OperationName(op Operation) string
}
