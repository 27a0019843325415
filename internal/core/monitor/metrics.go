package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tickTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "energy_monitor_ticks_total",
		Help: "Total number of completed monitor ticks",
	})

	tickErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "energy_monitor_tick_errors_total",
		Help: "Total number of ticks skipped because the state pull failed",
	})

	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "energy_monitor_tick_duration_seconds",
		Help:    "Monitor tick evaluation duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
	})

	relayCommands = promauto.NewCounter(prometheus.CounterOpts{
		Name: "energy_relay_commands_total",
		Help: "Total number of successful safety relay commands",
	})

	relayFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "energy_relay_failures_total",
		Help: "Total number of failed safety relay commands",
	})

	alertsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "energy_alerts_dispatched_total",
		Help: "Total number of dispatched alerts by kind",
	}, []string{"kind"})
)
