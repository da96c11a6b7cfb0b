package handler

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	JournalSavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_saves_total",
			Help: "Total number of journal week saves by outcome",
		},
		[]string{"outcome"},
	)

	JournalLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_loads_total",
			Help: "Total number of journal loads by outcome",
		},
		[]string{"outcome"},
	)

	DangerWarningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_danger_warnings_total",
			Help: "Total number of danger warnings raised per symptom",
		},
		[]string{"symptom_id"},
	)

	EntriesUpsertedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeline_entries_upserted_total",
			Help: "Total number of timeline entries written by the entries API",
		},
		[]string{"status"},
	)
)

// RegisterJournalMetrics registers the journal service metrics
// activeSessions reports the number of live journal sessions
func RegisterJournalMetrics(activeSessions func() int) {
	prometheus.MustRegister(JournalSavesTotal)
	prometheus.MustRegister(JournalLoadsTotal)
	prometheus.MustRegister(DangerWarningsTotal)
	if activeSessions != nil {
		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "journal_active_sessions",
				Help: "Current number of journal sessions held in memory",
			},
			func() float64 { return float64(activeSessions()) },
		))
	}
}

// RegisterEntriesMetrics registers the entries API metrics
func RegisterEntriesMetrics() {
	prometheus.MustRegister(EntriesUpsertedTotal)
}
