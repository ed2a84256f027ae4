// Package metrics defines the Prometheus instruments for the Twitch client.
// They register on the default registry; host applications that expose
// /metrics get them for free.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API request metrics
var (
	// RequestsTotal counts API requests by endpoint and outcome status code.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twitch_api_requests_total",
			Help: "Total Twitch API requests by endpoint and status code",
		},
		[]string{"endpoint", "status"},
	)

	// RequestDuration tracks API call latency in seconds.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "twitch_api_request_duration_seconds",
			Help:    "Twitch API request duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"endpoint"},
	)

	// RequestRetriesTotal counts dispatches that were retried after a refresh.
	RequestRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "twitch_api_request_retries_total",
			Help: "Total API requests retried after a token refresh",
		},
	)
)

// Token lifecycle metrics
var (
	// TokenRefreshesTotal counts refresh attempts by grant and result.
	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twitch_token_refreshes_total",
			Help: "Total OAuth token refreshes by grant type and result",
		},
		[]string{"grant", "result"},
	)

	// TokenValidationsTotal counts validate endpoint calls by verdict.
	TokenValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twitch_token_validations_total",
			Help: "Total OAuth token validations by verdict (valid/invalid)",
		},
		[]string{"verdict"},
	)
)

// Circuit breaker metrics
var (
	// BreakerStateChanges counts breaker state transitions by new state.
	BreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twitch_api_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by new state",
		},
		[]string{"state"},
	)

	// BreakerState is the current breaker state (0=closed, 1=half-open, 2=open).
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "twitch_api_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)
