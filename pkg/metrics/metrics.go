// Package metrics provides Prometheus metrics for the Clover service.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Ramsey-B/clover/pkg/models"
)

var (
	// MergesTotal tracks merges by kind and result
	MergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "merge",
			Name:      "merges_total",
			Help:      "Total number of merges by kind and result",
		},
		[]string{"kind", "result"},
	)

	// MergeDuration tracks merge duration in seconds
	MergeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "merge",
			Name:      "duration_seconds",
			Help:      "Duration of merges in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"kind"},
	)

	// EdgesReparented tracks relationship edges handled by merges by outcome
	EdgesReparented = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "merge",
			Name:      "edges_total",
			Help:      "Relationship edges handled by merges by outcome",
		},
		[]string{"kind", "outcome"},
	)

	// SuggestionDecisions tracks review decisions by suggestion type
	SuggestionDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "suggestions",
			Name:      "decisions_total",
			Help:      "Suggestion review decisions by type and decision",
		},
		[]string{"type", "decision"},
	)

	// ScansTotal tracks cluster scans by kind
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "scan",
			Name:      "scans_total",
			Help:      "Total number of duplicate scans by kind",
		},
		[]string{"kind"},
	)

	// ClustersFound tracks clusters returned by scans
	ClustersFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "scan",
			Name:      "clusters_total",
			Help:      "Duplicate clusters returned by scans",
		},
		[]string{"kind"},
	)

	// ScanDuration tracks scan duration in seconds
	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Duration of duplicate scans in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)

	// ScanJobsRunning tracks background scans in flight
	ScanJobsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clover",
			Subsystem: "scan",
			Name:      "jobs_running",
			Help:      "Number of background scan jobs currently running",
		},
	)
)

// RecordScan records a completed scan
func RecordScan(kind models.EntityKind, clusters int, elapsed time.Duration) {
	ScansTotal.WithLabelValues(string(kind)).Inc()
	ClustersFound.WithLabelValues(string(kind)).Add(float64(clusters))
	ScanDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

// RecordMergeFailure records a merge that returned an error
func RecordMergeFailure(kind models.EntityKind) {
	MergesTotal.WithLabelValues(string(kind), "error").Inc()
}

// Observer records merges and suggestion decisions. It is registered with
// the merge engine and suggestion service like any other observer.
type Observer struct{}

// NewObserver creates a metrics observer
func NewObserver() *Observer {
	return &Observer{}
}

func (o *Observer) OnMerge(_ context.Context, event *models.MergeEvent) error {
	kind := string(event.Kind)
	result := "success"
	if event.Summary.PartialFailure {
		result = "partial"
	}
	MergesTotal.WithLabelValues(kind, result).Inc()
	EdgesReparented.WithLabelValues(kind, "moved").Add(float64(event.Summary.Edges.Moved))
	EdgesReparented.WithLabelValues(kind, "deduplicated").Add(float64(event.Summary.Edges.Deduplicated))
	EdgesReparented.WithLabelValues(kind, "failed").Add(float64(len(event.Summary.Edges.Failures)))
	return nil
}

func (o *Observer) OnSuggestionReviewed(_ context.Context, event *models.SuggestionEvent) error {
	SuggestionDecisions.WithLabelValues(string(event.Suggestion.Type), string(event.Suggestion.Status)).Inc()
	return nil
}
