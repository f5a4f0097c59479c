package packetsock

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "packetsock",
			Subsystem: "connections",
			Name:      "active",
			Help:      "Connections currently held in a registry.",
		},
	)
	acceptedConnections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "packetsock",
			Subsystem: "connections",
			Name:      "accepted_total",
			Help:      "Connections accepted by a hub.",
		},
	)
	framesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "packetsock",
			Subsystem: "frames",
			Name:      "received_total",
			Help:      "Complete frames extracted from receive buffers.",
		},
	)
	bytesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "packetsock",
			Subsystem: "frames",
			Name:      "received_bytes_total",
			Help:      "Raw bytes delivered by transports.",
		},
	)
	framesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "packetsock",
			Subsystem: "frames",
			Name:      "sent_total",
			Help:      "Frames written to transports.",
		},
	)
	bytesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "packetsock",
			Subsystem: "frames",
			Name:      "sent_bytes_total",
			Help:      "Frame bytes written to transports, prefixes included.",
		},
	)
	sendFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "packetsock",
			Subsystem: "frames",
			Name:      "send_failures_total",
			Help:      "Frames that could not be queued or written.",
		},
		[]string{"reason"},
	)
	dispatchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "packetsock",
			Subsystem: "dispatch",
			Name:      "errors_total",
			Help:      "Packets whose dispatch failed.",
		},
		[]string{"reason"},
	)
)

// RegisterMetrics registers the package collectors with the default
// Prometheus registerer. Safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			activeConnections,
			acceptedConnections,
			framesReceived,
			bytesReceived,
			framesSent,
			bytesSent,
			sendFailures,
			dispatchErrors,
		)
	})
}
