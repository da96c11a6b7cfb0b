package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_api_requests_total",
			Help: "Total number of calls made to the timeline entries API",
		},
		[]string{"operation", "outcome"},
	)

	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timeline_api_request_duration_seconds",
			Help:    "Duration of calls made to the timeline entries API",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	BreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_api_breaker_state_changes_total",
			Help: "Circuit breaker transitions of the timeline entries API client",
		},
		[]string{"breaker", "state"},
	)
)
