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

package params

import "errors"

var (
	// ErrTypeMismatch is returned when a value of the wrong kind is read
	// from or written to a parameter.
	ErrTypeMismatch = errors.New("params: value kind mismatch")

	// ErrNotSet is returned when reading a parameter that holds no value.
	ErrNotSet = errors.New("params: parameter not set")
)
