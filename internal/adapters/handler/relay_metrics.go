package handler

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	WebSocketConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_connection_attempts_total",
			Help: "Total number of dashboard WebSocket connection attempts by outcome",
		},
		[]string{"outcome"},
	)
)

// RegisterRelayMetrics registers the warning relay metrics
// connected reports the number of dashboards currently attached
func RegisterRelayMetrics(connected func() int) {
	prometheus.MustRegister(WebSocketConnectionsTotal)
	if connected != nil {
		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "websocket_connections",
				Help: "Current number of dashboard WebSocket connections",
			},
			func() float64 { return float64(connected()) },
		))
	}
}
