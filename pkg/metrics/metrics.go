package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters and gauges exposed on /metrics. All are registered on the default
// registry so promhttp.Handler picks them up without extra wiring.
var (
	MessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_messages_total",
		Help: "Messages accepted and appended to the conversation log.",
	})

	GroupUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_group_updates_total",
		Help: "Group metadata updates that changed at least one field.",
	})

	BroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_broadcasts_total",
		Help: "Events fanned out to the subscriber set.",
	})

	BroadcastDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_broadcast_drops_total",
		Help: "Per-subscriber sends skipped because the subscriber was slow or closed.",
	})

	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatrelay_subscribers",
		Help: "Currently connected push-channel subscribers.",
	})

	StoreWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_store_write_failures_total",
		Help: "Document persistence attempts that returned an error.",
	})
)
