package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/neurolabhq/neurosim/internal/model"
)

var (
	simulationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neurosim_simulations_total",
			Help: "Total number of simulations that reached a terminal status.",
		},
		[]string{"status"},
	)

	simulationsRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "neurosim_simulations_running",
			Help: "Number of simulations currently executing.",
		},
	)

	simulationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "neurosim_simulation_duration_seconds",
			Help:    "Wall-clock duration from running transition to terminal status, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(simulationsTotal)
	prometheus.MustRegister(simulationsRunning)
	prometheus.MustRegister(simulationDuration)

	// Pre-initialize counter label combinations so they appear in /metrics
	// with value 0 from startup, rather than only after first observation.
	for _, status := range []string{model.StatusCompleted, model.StatusFailed, model.StatusCancelled} {
		simulationsTotal.WithLabelValues(status)
	}
}
