package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friday_worker_commands_total",
			Help: "Subscriber commands handled by the worker",
		},
		[]string{"command"},
	)

	summariesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "friday_worker_summaries_sent_total",
			Help: "Room summaries delivered to subscribers",
		},
	)

	workerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "friday_worker_errors_total",
			Help: "Errors raised while processing subscribers",
		},
		[]string{"stage"},
	)

	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "friday_worker_cycle_duration_seconds",
			Help:    "Duration of one polling cycle",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60},
		},
	)
)
