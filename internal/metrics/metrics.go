// Package metrics holds the Prometheus collectors for the game server.
// Collectors are registered on the default registry via promauto and exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by method, route pattern and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semantle_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration measures handler latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "semantle_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	// GuessesTotal counts accepted guesses by mode, provider and outcome (scored/unscored/found).
	GuessesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semantle_guesses_total",
			Help: "Accepted guesses",
		},
		[]string{"mode", "provider", "outcome"},
	)

	// RejectedGuessesTotal counts guesses refused before scoring, by reason.
	RejectedGuessesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semantle_rejected_guesses_total",
			Help: "Guesses rejected as invalid input or unknown words",
		},
		[]string{"reason"},
	)

	// ProviderLatency measures raw similarity lookups against a provider.
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "semantle_provider_latency_seconds",
			Help:    "Latency of provider similarity lookups",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"provider"},
	)

	// ProviderErrors counts provider failures by kind (unknown_word, unavailable).
	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semantle_provider_errors_total",
			Help: "Provider lookups that failed",
		},
		[]string{"provider", "kind"},
	)

	// ScoreCacheLookups counts score cache lookups by result (hit/miss).
	ScoreCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semantle_score_cache_lookups_total",
			Help: "Score cache lookups",
		},
		[]string{"provider", "result"},
	)

	// ActiveSessions tracks sessions currently held in the store.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "semantle_active_sessions",
			Help: "Game sessions currently held in memory",
		},
	)
)
