package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what the pipeline does per turn
type Metrics struct {
	Turns         *prometheus.CounterVec
	WebSearches   *prometheus.CounterVec
	MemoriesSaved *prometheus.CounterVec
	TurnDuration  prometheus.Histogram
}

// NewMetrics registers the pipeline collectors with reg. A nil reg gives
// unregistered collectors, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recall",
			Name:      "turns_total",
			Help:      "Turns handled, by outcome (ok, failed) and failing step.",
		}, []string{"outcome", "step"}),
		WebSearches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recall",
			Name:      "web_searches_total",
			Help:      "Web searches issued by the planner, by outcome (ok, degraded).",
		}, []string{"outcome"}),
		MemoriesSaved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recall",
			Name:      "memories_saved_total",
			Help:      "Memories persisted, by kind (message, name).",
		}, []string{"kind"}),
		TurnDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "recall",
			Name:      "turn_duration_seconds",
			Help:      "Wall time of a full turn.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
	}
}
