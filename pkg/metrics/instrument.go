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

package metrics

import (
	"time"

	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt"
	"github.com/jeremyhahn/go-keymgmt/pkg/params"
)

// InstrumentedManager decorates a keymgmt.KeyManager with Prometheus
// instrumentation. Pure descriptor queries are passed through uncounted.
type InstrumentedManager struct {
	inner keymgmt.KeyManager
	alg   string
}

// Instrument wraps a key manager with operation counters and generation
// latency histograms.
func Instrument(km keymgmt.KeyManager) *InstrumentedManager {
	return &InstrumentedManager{
		inner: km,
		alg:   km.Algorithm().String(),
	}
}

// Algorithm implements keymgmt.KeyManager.
func (m *InstrumentedManager) Algorithm() keymgmt.Algorithm {
	return m.inner.Algorithm()
}

// Capabilities implements keymgmt.KeyManager.
func (m *InstrumentedManager) Capabilities() keymgmt.Capabilities {
	return m.inner.Capabilities()
}

// New implements keymgmt.KeyManager.
func (m *InstrumentedManager) New() (keymgmt.Key, error) {
	k, err := m.inner.New()
	RecordOperation(OpNew, m.alg, err)
	return k, err
}

// Free implements keymgmt.KeyManager.
func (m *InstrumentedManager) Free(k keymgmt.Key) {
	m.inner.Free(k)
}

// GetParams implements keymgmt.KeyManager.
func (m *InstrumentedManager) GetParams(k keymgmt.Key, ps params.Params) error {
	err := m.inner.GetParams(k, ps)
	RecordOperation(OpGetParams, m.alg, err)
	return err
}

// GettableParams implements keymgmt.KeyManager.
func (m *InstrumentedManager) GettableParams() params.Descriptors {
	return m.inner.GettableParams()
}

// SetParams implements keymgmt.KeyManager.
func (m *InstrumentedManager) SetParams(k keymgmt.Key, ps params.Params) error {
	err := m.inner.SetParams(k, ps)
	RecordOperation(OpSetParams, m.alg, err)
	return err
}

// SettableParams implements keymgmt.KeyManager.
func (m *InstrumentedManager) SettableParams() params.Descriptors {
	return m.inner.SettableParams()
}

// Has implements keymgmt.KeyManager.
func (m *InstrumentedManager) Has(k keymgmt.Key, selection keymgmt.Selection) bool {
	return m.inner.Has(k, selection)
}

// Validate implements keymgmt.KeyManager.
func (m *InstrumentedManager) Validate(k keymgmt.Key, selection keymgmt.Selection) error {
	err := m.inner.Validate(k, selection)
	RecordOperation(OpValidate, m.alg, err)
	return err
}

// Match implements keymgmt.KeyManager.
func (m *InstrumentedManager) Match(k1, k2 keymgmt.Key, selection keymgmt.Selection) (bool, error) {
	ok, err := m.inner.Match(k1, k2, selection)
	RecordOperation(OpMatch, m.alg, err)
	return ok, err
}

// Import implements keymgmt.KeyManager.
func (m *InstrumentedManager) Import(k keymgmt.Key, selection keymgmt.Selection, ps params.Params) error {
	err := m.inner.Import(k, selection, ps)
	RecordOperation(OpImport, m.alg, err)
	return err
}

// ImportTypes implements keymgmt.KeyManager.
func (m *InstrumentedManager) ImportTypes(selection keymgmt.Selection) params.Descriptors {
	return m.inner.ImportTypes(selection)
}

// Export implements keymgmt.KeyManager.
func (m *InstrumentedManager) Export(k keymgmt.Key, selection keymgmt.Selection, consumer func(params.Params) error) error {
	err := m.inner.Export(k, selection, consumer)
	RecordOperation(OpExport, m.alg, err)
	return err
}

// ExportTypes implements keymgmt.KeyManager.
func (m *InstrumentedManager) ExportTypes(selection keymgmt.Selection) params.Descriptors {
	return m.inner.ExportTypes(selection)
}

// Copy implements keymgmt.KeyManager.
func (m *InstrumentedManager) Copy(dst, src keymgmt.Key, selection keymgmt.Selection) error {
	err := m.inner.Copy(dst, src, selection)
	RecordOperation(OpCopy, m.alg, err)
	return err
}

// NewGeneration implements keymgmt.KeyManager, wrapping the returned
// context so each Generate call is counted and timed.
func (m *InstrumentedManager) NewGeneration(selection keymgmt.Selection) (keymgmt.GenContext, error) {
	ctx, err := m.inner.NewGeneration(selection)
	if err != nil {
		RecordOperation(OpGenerate, m.alg, err)
		return nil, err
	}
	return &instrumentedGenContext{inner: ctx, alg: m.alg}, nil
}

// GenSettableParams implements keymgmt.KeyManager.
func (m *InstrumentedManager) GenSettableParams() params.Descriptors {
	return m.inner.GenSettableParams()
}

// OperationName implements keymgmt.KeyManager.
func (m *InstrumentedManager) OperationName(op keymgmt.Operation) string {
	return m.inner.OperationName(op)
}

// instrumentedGenContext times and counts Generate calls.
type instrumentedGenContext struct {
	inner keymgmt.GenContext
	alg   string
}

func (g *instrumentedGenContext) SetTemplate(template keymgmt.Key) error {
	return g.inner.SetTemplate(template)
}

func (g *instrumentedGenContext) SetParams(ps params.Params) error {
	return g.inner.SetParams(ps)
}

func (g *instrumentedGenContext) Generate(progress keymgmt.ProgressFunc) (keymgmt.Key, error) {
	start := time.Now()
	k, err := g.inner.Generate(progress)
	RecordOperation(OpGenerate, g.alg, err)
	if err == nil {
		ObserveGeneration(g.alg, start)
	}
	return k, err
}

func (g *instrumentedGenContext) Close() {
	g.inner.Close()
}
