package persistence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the persistence layer's health: how far local truth is
// ahead of server truth, and how remote syncs are going.
type Metrics struct {
	// OutboxDepth is the number of remote operations not yet
	// acknowledged by the server.
	OutboxDepth prometheus.Gauge

	// RemoteSync counts dispatch outcomes, labelled by operation kind
	// and result (ok, error).
	RemoteSync *prometheus.CounterVec
}

// NewMetrics registers the persistence metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OutboxDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gangway_outbox_depth",
			Help: "Pending remote operations awaiting server acknowledgement.",
		}),
		RemoteSync: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gangway_remote_sync_total",
			Help: "Remote sync dispatch outcomes.",
		}, []string{"kind", "result"}),
	}
}

// NopMetrics returns metrics bound to a throwaway registry.
func NopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
