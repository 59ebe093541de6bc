package correlate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	referencesScoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventtrace_references_scored_total",
			Help: "Article references scored against an event description, by relevance.",
		},
		[]string{"relevant"},
	)
	changesPersistedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventtrace_changes_persisted_total",
			Help: "Change records written, by kind (revision or sentinel).",
		},
		[]string{"kind"},
	)
	correlationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventtrace_correlation_duration_seconds",
			Help:    "Duration of correlation runs by result.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"result"},
	)
)
