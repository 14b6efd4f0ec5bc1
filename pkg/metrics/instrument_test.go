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
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt"
	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt/eddsa"
	"github.com/jeremyhahn/go-keymgmt/pkg/params"
)

func TestInstrumentedManagerDelegates(t *testing.T) {
	m := Instrument(eddsa.NewED25519())

	assert.Equal(t, keymgmt.AlgorithmED25519, m.Algorithm())
	assert.True(t, m.Capabilities().Generate)
	assert.Equal(t, "ED25519", m.OperationName(keymgmt.OperationSignature))
	assert.NotEmpty(t, m.GettableParams())
	assert.NotNil(t, m.GenSettableParams())
}

func TestInstrumentedManagerCountsOperations(t *testing.T) {
	OperationsTotal.Reset()
	ErrorsTotal.Reset()
	GenerationDuration.Reset()

	m := Instrument(eddsa.NewED25519())

	genCtx, err := m.NewGeneration(keymgmt.SelectKeypair)
	require.NoError(t, err)
	defer genCtx.Close()

	key, err := genCtx.Generate(nil)
	require.NoError(t, err)
	defer m.Free(key)

	require.NoError(t, m.Validate(key, keymgmt.SelectKeypair))

	got := testutil.ToFloat64(OperationsTotal.WithLabelValues(OpGenerate, "ED25519", StatusSuccess))
	assert.Equal(t, float64(1), got)

	got = testutil.ToFloat64(OperationsTotal.WithLabelValues(OpValidate, "ED25519", StatusSuccess))
	assert.Equal(t, float64(1), got)

	assert.Equal(t, 1, testutil.CollectAndCount(GenerationDuration))
}

func TestInstrumentedManagerCountsErrors(t *testing.T) {
	OperationsTotal.Reset()
	ErrorsTotal.Reset()

	m := Instrument(eddsa.NewED25519())

	key, err := m.New()
	require.NoError(t, err)
	defer m.Free(key)

	// Empty key fails keypair validation
	err = m.Validate(key, keymgmt.SelectKeypair)
	require.Error(t, err)

	got := testutil.ToFloat64(OperationsTotal.WithLabelValues(OpValidate, "ED25519", StatusError))
	assert.Equal(t, float64(1), got)

	errGot := testutil.ToFloat64(ErrorsTotal.WithLabelValues(OpValidate, "ED25519"))
	assert.Equal(t, float64(1), errGot)
}

func TestInstrumentedManagerSatisfiesContract(t *testing.T) {
	var _ keymgmt.KeyManager = Instrument(eddsa.NewED25519())
	assert.NoError(t, keymgmt.ValidateCapabilities(Instrument(eddsa.NewED25519())))
}

func TestInstrumentedGenContextForwardsState(t *testing.T) {
	OperationsTotal.Reset()

	m := Instrument(eddsa.NewED25519())

	genCtx, err := m.NewGeneration(keymgmt.SelectKeypair)
	require.NoError(t, err)

	require.NoError(t, genCtx.SetParams(params.Params{}))
	require.NoError(t, genCtx.SetTemplate(nil))

	genCtx.Close()
	_, err = genCtx.Generate(nil)
	assert.ErrorIs(t, err, keymgmt.ErrContextClosed)

	// The failed Generate still counts, with error status
	got := testutil.ToFloat64(OperationsTotal.WithLabelValues(OpGenerate, "ED25519", StatusError))
	assert.Equal(t, float64(1), got)
}
