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

import "errors"

var (
	// ErrKeyRequired is returned when a nil key object is passed to an
	// operation that requires one.
	ErrKeyRequired = errors.New("keymgmt: key object required")

	// ErrWrongAlgorithm is returned when a key object belonging to a
	// different algorithm family is passed to a manager.
	ErrWrongAlgorithm = errors.New("keymgmt: key belongs to a different algorithm family")

	// ErrNotSupported is returned when the manager does not implement the
	// requested operation. Support is advertised through Capabilities.
	ErrNotSupported = errors.New("keymgmt: operation not supported")

	// ErrUnknownParam is returned by import/export when a parameter name
	// is outside the advertised types for the given selection. Unknown
	// names are silently skipped by get/set-params but rejected here.
	ErrUnknownParam = errors.New("keymgmt: parameter not accepted for this selection")

	// ErrComponentMissing is returned when validating or exporting a data
	// subset the key object does not hold.
	ErrComponentMissing = errors.New("keymgmt: selected key component not present")

	// ErrInvalidKey is returned when key material fails structural
	// validation per the algorithm's rules.
	ErrInvalidKey = errors.New("keymgmt: key material is invalid")

	// ErrKeypairMismatch is returned when keypair validation finds the
	// public key inconsistent with the private key.
	ErrKeypairMismatch = errors.New("keymgmt: public key does not match private key")

	// ErrSelfCopy is returned when Copy is called with dst == src.
	ErrSelfCopy = errors.New("keymgmt: cannot copy a key object onto itself")

	// ErrTemplateAlgorithm is returned by Generate when the attached
	// template belongs to a different algorithm family.
	ErrTemplateAlgorithm = errors.New("keymgmt: template algorithm family mismatch")

	// ErrContextClosed is returned when using a generation context after
	// Close.
	ErrContextClosed = errors.New("keymgmt: generation context is closed")

	// ErrMissingSelection is returned when an operation is called with an
	// empty selection that requires at least one subset.
	ErrMissingSelection = errors.New("keymgmt: selection names no key components")

	// ErrAlgorithmRegistered is returned when registering a manager for an
	// algorithm that already has one.
	ErrAlgorithmRegistered = errors.New("keymgmt: algorithm already registered")

	// ErrAlgorithmNotFound is returned when looking up an algorithm with
	// no registered manager.
	ErrAlgorithmNotFound = errors.New("keymgmt: no key manager registered for algorithm")

	// ErrInvalidCapabilities is returned when a manager's capability set
	// violates the contract: Free plus at least one of Create/Generate is
	// mandatory, and descriptor operations are co-required with their
	// mutating operation.
	ErrInvalidCapabilities = errors.New("keymgmt: capability set violates key management contract")
)
