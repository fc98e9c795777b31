// Package metrics holds the Prometheus collectors for the realtime core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OpenConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sociofy_open_connections",
			Help: "Live connections in the Open state on this node.",
		},
	)

	MessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sociofy_messages_sent_total",
			Help: "Messages durably persisted.",
		},
	)

	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sociofy_message_deliveries_total",
			Help: "Messages promoted to delivered, by path (live or drain).",
		},
		[]string{"path"},
	)

	OfflineEnqueued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sociofy_offline_enqueued_total",
			Help: "Messages parked in an offline queue.",
		},
	)

	Receipts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sociofy_receipts_total",
			Help: "Receipts pushed to senders, by kind.",
		},
		[]string{"kind"},
	)

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sociofy_notifications_total",
			Help: "Notifications created, by outcome (pushed or stored).",
		},
		[]string{"outcome"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sociofy_cache_lookups_total",
			Help: "Delivery cache reads, by entry kind and result.",
		},
		[]string{"kind", "result"},
	)

	PresenceSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sociofy_presence_swept_total",
			Help: "Users removed from presence after missing heartbeats.",
		},
	)
)

func init() {
	prometheus.MustRegister(OpenConnections)
	prometheus.MustRegister(MessagesSent)
	prometheus.MustRegister(Deliveries)
	prometheus.MustRegister(OfflineEnqueued)
	prometheus.MustRegister(Receipts)
	prometheus.MustRegister(Notifications)
	prometheus.MustRegister(CacheLookups)
	prometheus.MustRegister(PresenceSwept)
}

func Hit(kind string) {
	CacheLookups.WithLabelValues(kind, "hit").Inc()
}

func Miss(kind string) {
	CacheLookups.WithLabelValues(kind, "miss").Inc()
}
