package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FarmOperationsTotal tracks farm operations by outcome
	FarmOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dogepump_farm_operations_total",
			Help: "The total number of farm operations",
		},
		[]string{"operation", "status"}, // create_farm/stake/..., ok/error
	)

	// SweepDurationSeconds tracks how long the background sweeps take
	SweepDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dogepump_farm_sweep_duration_seconds",
			Help:    "Time taken by a background sweep pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sweep"}, // rewards, stats
	)

	// FarmAutoPausesTotal counts farms auto-paused by pool exhaustion
	FarmAutoPausesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dogepump_farm_auto_pauses_total",
		Help: "The total number of farms auto-paused because the reward pool ran dry",
	})

	// ActiveFarms tracks the number of farms currently active
	ActiveFarms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dogepump_farms_active",
		Help: "The number of farms currently in active status",
	})

	// TotalStakedAcrossFarms tracks the staked total over all active farms
	TotalStakedAcrossFarms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dogepump_farms_staked_total",
		Help: "Total staked amount across all active farms",
	})

	// WebsocketConnections tracks connected websocket clients
	WebsocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dogepump_websocket_connections",
		Help: "The number of websocket clients currently connected",
	})
)
