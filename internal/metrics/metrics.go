package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TimerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktimer_timer_transitions_total",
			Help: "Timer state transitions",
		},
		[]string{"transition"}, // started|stopped|aborted
	)

	SyncCustomers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktimer_sync_customers_total",
			Help: "Per-customer sync outcomes by mode",
		},
		[]string{"mode", "outcome"}, // full|incremental , ok|failed|skipped
	)

	SyncItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktimer_sync_items_total",
			Help: "Work items written to the mirror by mode",
		},
		[]string{"mode"},
	)

	SyncDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worktimer_sync_cycle_seconds",
			Help:    "Duration of sync cycles",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"mode"},
	)

	OutboxPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktimer_outbox_events_total",
			Help: "Outbox relay results",
		},
		[]string{"result"}, // published|failed
	)

	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worktimer_commands_total",
			Help: "Dispatched commands by name and result",
		},
		[]string{"command", "result"}, // ok|error
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		TimerTransitions,
		SyncCustomers,
		SyncItems,
		SyncDuration,
		OutboxPublished,
		CommandsTotal,
	)
}
