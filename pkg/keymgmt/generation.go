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
	"github.com/google/uuid"
	"github.com/jeremyhahn/go-keymgmt/pkg/params"
)

// GenContext is transient state coordinating a key generation: the
// requested selection, an optional borrowed template key, and generation
// parameters. It is created by KeyManager.NewGeneration, configured by
// SetTemplate/SetParams, consumed by Generate, and released by Close.
type GenContext interface {
	// SetTemplate attaches a read-only template key supplying inherited
	// fields such as domain parameters. The template is borrowed: the
	// caller retains ownership and must keep it valid until the last
	// Generate call. A second SetTemplate replaces the first.
	//
	// The template's algorithm family is not checked here; a mismatched
	// template fails Generate deterministically.
	SetTemplate(template Key) error

	// SetParams applies generation parameters (key size, curve name).
	// Unknown parameter names are ignored; a type-mismatched value for a
	// known name fails the call.
	SetParams(ps params.Params) error

	// Generate synchronously produces a new key object consistent with
	// the context's selection, template, and parameters. It may be called
	// any number of times, each call producing an independent object; a
	// failed call leaves the context unchanged and reusable. The progress
	// callback may be nil.
	Generate(progress ProgressFunc) (Key, error)

	// Close releases the context. It affects neither previously generated
	// keys nor the borrowed template. Using the context after Close fails
	// with ErrContextClosed.
	Close()
}

// GenState carries the bookkeeping shared by the built-in generation
// contexts: a unique context ID for logging, the originally requested
// selection, and the closed flag. Family packages embed it.
type GenState struct {
	id        string
	selection Selection
	closed    bool
}

// NewGenState initializes generation bookkeeping for the given selection.
func NewGenState(selection Selection) GenState {
	return GenState{
		id:        uuid.NewString(),
		selection: selection,
	}
}

// ID returns the context's unique identifier.
func (g *GenState) ID() string {
	return g.id
}

// Selection returns the originally requested selection.
func (g *GenState) Selection() Selection {
	return g.selection
}

// Close marks the context closed.
func (g *GenState) Close() {
	g.closed = true
}

// Err returns ErrContextClosed once the context is closed, nil before.
func (g *GenState) Err() error {
	if g.closed {
		return ErrContextClosed
	}
	return nil
}
