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

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the key managers available to a caller, keyed by algorithm.
// It replaces the numeric-ID dispatch table of plugin ABIs with typed
// lookups, and enforces the contract's mandatory-operation constraints at
// registration time.
//
// Thread-safe.
type Registry struct {
	managers map[Algorithm]KeyManager
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		managers: make(map[Algorithm]KeyManager),
	}
}

// Register adds a key manager after validating its capability set.
// Registering a second manager for the same algorithm fails.
func (r *Registry) Register(km KeyManager) error {
	if km == nil {
		return fmt.Errorf("%w: nil manager", ErrInvalidCapabilities)
	}
	if err := ValidateCapabilities(km); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	alg := km.Algorithm()
	if _, exists := r.managers[alg]; exists {
		return fmt.Errorf("%w: %s", ErrAlgorithmRegistered, alg)
	}
	r.managers[alg] = km
	return nil
}

// Get returns the manager registered for the given algorithm.
func (r *Registry) Get(alg Algorithm) (KeyManager, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	km, ok := r.managers[alg]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAlgorithmNotFound, alg)
	}
	return km, nil
}

// Algorithms returns the registered algorithm names, sorted.
func (r *Registry) Algorithms() []Algorithm {
	r.mu.RLock()
	defer r.mu.RUnlock()

	algs := make([]Algorithm, 0, len(r.managers))
	for alg := range r.managers {
		algs = append(algs, alg)
	}
	sort.Slice(algs, func(i, j int) bool { return algs[i] < algs[j] })
	return algs
}

// ValidateCapabilities checks a manager's capability set against the
// contract: at least one of Create/Generate must be supported, and each
// descriptor operation must be present exactly when its mutating operation
// is (non-empty GettableParams iff GetParams, and so on).
func ValidateCapabilities(km KeyManager) error {
	caps := km.Capabilities()

	if !caps.Create && !caps.Generate {
		return fmt.Errorf("%w: neither create nor generate supported", ErrInvalidCapabilities)
	}
	if caps.GetParams != (len(km.GettableParams()) > 0) {
		return fmt.Errorf("%w: get-params and its descriptor list are co-required", ErrInvalidCapabilities)
	}
	if caps.SetParams && km.SettableParams() == nil {
		return fmt.Errorf("%w: set-params and its descriptor list are co-required", ErrInvalidCapabilities)
	}
	if caps.Generate && km.GenSettableParams() == nil {
		return fmt.Errorf("%w: generation requires a settable-params descriptor list", ErrInvalidCapabilities)
	}
	if caps.Import != (len(km.ImportTypes(SelectAll)) > 0) {
		return fmt.Errorf("%w: import and import-types are co-required", ErrInvalidCapabilities)
	}
	if caps.Export != (len(km.ExportTypes(SelectAll)) > 0) {
		return fmt.Errorf("%w: export and export-types are co-required", ErrInvalidCapabilities)
	}
	return nil
}
