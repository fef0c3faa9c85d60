package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Publishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "realtime_publish_total", Help: "Events published to a room"},
		[]string{"event"},
	)
	Deliveries = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "realtime_delivered_total", Help: "Events queued to a connection"},
	)
	DroppedDeliveries = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "realtime_dropped_total", Help: "Events dropped for slow or closed connections"},
	)
	BroadcastFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "realtime_broadcast_failures_total", Help: "Publishes that failed after a committed write"},
	)
	Connections = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "realtime_connections", Help: "Live gateway connections"},
	)
	StoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "store_errors_total", Help: "Record store calls that failed"},
		[]string{"op"},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Calling it again
// is a no-op.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(Publishes, Deliveries, DroppedDeliveries, BroadcastFailures, Connections, StoreErrors)
	})
}
