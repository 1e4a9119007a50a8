// Package telemetry holds the Prometheus collectors for the service.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors are usable before Register so packages can record into them
// from tests without touching the default registry.
var (
	PagesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nicheexplorer_search_pages_total",
			Help: "Search result pages fetched, by outcome.",
		},
		[]string{"outcome"},
	)

	VideosCollected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nicheexplorer_videos_collected_total",
			Help: "Distinct videos kept after deduplication.",
		},
	)

	KeyRotations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nicheexplorer_api_key_rotations_total",
			Help: "API key rotations, by reason.",
		},
		[]string{"reason"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nicheexplorer_cache_lookups_total",
			Help: "Cache lookups, by backend and result.",
		},
		[]string{"backend", "result"},
	)

	EmbedDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nicheexplorer_embed_duration_seconds",
			Help:    "Time spent embedding one collected set.",
			Buckets: prometheus.DefBuckets,
		},
	)

	ExploreDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nicheexplorer_explore_duration_seconds",
			Help:    "End-to-end explore duration, by stop reason.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"stop_reason"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nicheexplorer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by route, method and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			PagesFetched,
			VideosCollected,
			KeyRotations,
			CacheLookups,
			EmbedDuration,
			ExploreDuration,
			RequestDuration,
		)
	})
}
