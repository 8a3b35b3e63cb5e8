// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PacketsForwardedTotal counts packets a node forwarded to a neighbor
	PacketsForwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dronegrid_packets_forwarded_total",
			Help: "Total number of packets forwarded to a neighbor",
		},
		[]string{"node", "type"},
	)

	// PacketsDroppedTotal counts packets a node could not deliver
	PacketsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dronegrid_packets_dropped_total",
			Help: "Total number of packets reported to the controller as dropped",
		},
		[]string{"node"},
	)

	// NacksEmittedTotal counts negative acknowledgments emitted by kind
	NacksEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dronegrid_nacks_emitted_total",
			Help: "Total number of NACKs a node emitted toward a predecessor",
		},
		[]string{"node", "kind"},
	)

	// FloodsHandledTotal counts flood requests processed
	FloodsHandledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dronegrid_floods_handled_total",
			Help: "Total number of flood requests processed",
		},
		[]string{"node", "outcome"},
	)

	// CacheEvictionsTotal counts fragment cache FIFO evictions
	CacheEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dronegrid_cache_evictions_total",
			Help: "Total number of fragments evicted from the retransmission cache",
		},
		[]string{"node"},
	)
)

// Flood handling outcomes for FloodsHandledTotal.
const (
	FloodOutcomeForwarded = "forwarded"
	FloodOutcomeDuplicate = "duplicate"
	FloodOutcomeDeadEnd   = "dead_end"
)
