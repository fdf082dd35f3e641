package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mako",
		Subsystem: "engine",
		Name:      "commands_applied_total",
		Help:      "Commands applied to an order book, by kind.",
	}, []string{"kind"})

	commandsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mako",
		Subsystem: "engine",
		Name:      "commands_skipped_total",
		Help:      "Replayed commands skipped because their offset was already applied.",
	})

	commandsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mako",
		Subsystem: "engine",
		Name:      "commands_rejected_total",
		Help:      "Commands rejected by validation or balance checks.",
	})

	tradesMatched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mako",
		Subsystem: "engine",
		Name:      "trades_total",
		Help:      "Trades produced by matching.",
	})

	snapshotsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mako",
		Subsystem: "engine",
		Name:      "snapshots_total",
		Help:      "Recovery points persisted.",
	})
)
