// Package metrics holds the prometheus collectors for indexing and resolution.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UnitsIndexed counts every unit put into the index, by kind. Overwrites
	// count again.
	UnitsIndexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadpath_units_indexed_total",
			Help: "Number of units put into the index",
		},
		[]string{"kind"},
	)

	// SourceScanFailed counts sources and archive entries skipped while
	// scanning, by entry type.
	SourceScanFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadpath_source_scan_failed_total",
			Help: "Number of sources or source entries skipped because they could not be read",
		},
		[]string{"entry_type"},
	)

	// SourceScanDuration observes how long scanning one source took.
	SourceScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loadpath_source_scan_duration_seconds",
			Help:    "Time spent scanning a single source",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"entry_type"},
	)

	// OverridesApplied counts merged override units. The target label is
	// "existing" for replaced units and "new" for admitted ones.
	OverridesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadpath_overrides_applied_total",
			Help: "Number of override units merged into the index",
		},
		[]string{"target"},
	)

	// Resolutions counts resolution requests by outcome: "index", "fallback",
	// "cached", "not_found" or "error".
	Resolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadpath_resolutions_total",
			Help: "Number of resolution requests by outcome",
		},
		[]string{"outcome"},
	)
)

// WriteTextfile dumps the default registry in the text exposition format,
// replacing path atomically.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
