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

// Package metrics provides Prometheus instrumentation for key management
// operations: per-operation counters, generation latency histograms, and
// error counters labeled by algorithm family.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all keymgmt metrics.
	Namespace = "keymgmt"

	// Label names
	LabelOperation = "operation"
	LabelAlgorithm = "algorithm"
	LabelStatus    = "status"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Operation names
	OpNew       = "new"
	OpGetParams = "get_params"
	OpSetParams = "set_params"
	OpValidate  = "validate"
	OpMatch     = "match"
	OpImport    = "import"
	OpExport    = "export"
	OpCopy      = "copy"
	OpGenerate  = "generate"
)

var (
	// OperationsTotal counts key management operations by operation,
	// algorithm family, and status.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of key management operations by operation, algorithm, and status",
		},
		[]string{LabelOperation, LabelAlgorithm, LabelStatus},
	)

	// GenerationDuration tracks key generation latency in seconds.
	// Buckets span fast EdDSA keygen through slow finite-field parameter
	// generation.
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "generation_duration_seconds",
			Help:      "Duration of key generation in seconds",
			Buckets:   []float64{.0001, .001, .01, .1, .5, 1, 5, 15, 60, 300},
		},
		[]string{LabelAlgorithm},
	)

	// ErrorsTotal counts errors by operation and algorithm family.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of key management errors by operation and algorithm",
		},
		[]string{LabelOperation, LabelAlgorithm},
	)
)

// RecordOperation increments the operation counter, deriving the status
// label from err, and counts the error when non-nil.
func RecordOperation(operation, algorithm string, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
		ErrorsTotal.WithLabelValues(operation, algorithm).Inc()
	}
	OperationsTotal.WithLabelValues(operation, algorithm, status).Inc()
}

// ObserveGeneration records one key generation's latency.
func ObserveGeneration(algorithm string, start time.Time) {
	GenerationDuration.WithLabelValues(algorithm).Observe(time.Since(start).Seconds())
}
