// Copyright 2026 Chava Systems
//
// Prometheus instrumentation for discharge, store and retrieve

// Package metrics exposes Chava's Prometheus instrumentation: discharge,
// store and retrieve counters by outcome, and latency histograms for the
// KDF and AEAD paths, following the ecosystem-standard promauto
// registration idiom.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the counters and histograms a Chava process reports.
type Registry struct {
	DischargeTotal *prometheus.CounterVec
	StoreTotal     *prometheus.CounterVec
	RetrieveTotal  *prometheus.CounterVec

	KDFDuration      prometheus.Histogram
	StoreDuration    prometheus.Histogram
	RetrieveDuration prometheus.Histogram
}

// NewRegistry constructs and registers Chava's metrics against reg. Pass
// prometheus.NewRegistry() for an isolated registry in tests, or
// prometheus.DefaultRegisterer for a process-wide one.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		DischargeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chava",
			Name:      "discharge_total",
			Help:      "Discharge attempts by outcome (cleared, residual, conflict, cas_retry).",
		}, []string{"outcome"}),
		StoreTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chava",
			Name:      "store_total",
			Help:      "Store operations by outcome (ok, error).",
		}, []string{"outcome"}),
		RetrieveTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chava",
			Name:      "retrieve_total",
			Help:      "Retrieve operations by outcome (ok, not_found, cryptographic_failure, error).",
		}, []string{"outcome"}),
		KDFDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chava",
			Name:      "kdf_duration_seconds",
			Help:      "PBKDF2 key-derivation latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		StoreDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chava",
			Name:      "store_duration_seconds",
			Help:      "Time spent in Store, including seal and persistence.",
			Buckets:   prometheus.DefBuckets,
		}),
		RetrieveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chava",
			Name:      "retrieve_duration_seconds",
			Help:      "Time spent in Retrieve, including gated key release and open.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Handler returns the HTTP handler promhttp exposes metrics through.
func Handler() http.Handler {
	return promhttp.Handler()
}
