// Package metrics implements Prometheus metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame kinds for FramesSentTotal.
const (
	KindARPRequest = "arp_request"
	KindIPv4       = "ipv4"
)

// Resolution results for ResolutionsTotal.
const (
	ResultResolved  = "resolved"
	ResultTimeout   = "timeout"
	ResultTransport = "transport_error"
)

var (
	// FramesSentTotal counts frames handed to the transport by kind
	FramesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkprobe_frames_sent_total",
			Help: "Total number of frames transmitted",
		},
		[]string{"kind"},
	)

	// FramesReceivedTotal counts frames delivered by the transport
	FramesReceivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkprobe_frames_received_total",
			Help: "Total number of frames received",
		},
	)

	// FramesDiscardedTotal counts frames inspected and ignored by a state machine
	FramesDiscardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkprobe_frames_discarded_total",
			Help: "Total number of received frames discarded while waiting for a match",
		},
		[]string{"stage", "reason"},
	)

	// ResolutionsTotal counts finished ARP resolutions by outcome
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkprobe_resolutions_total",
			Help: "Total number of ARP resolutions by result",
		},
		[]string{"result"},
	)

	// ResolutionSeconds measures time from request sent to accepted reply
	ResolutionSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "linkprobe_resolution_seconds",
			Help:    "Latency of successful ARP resolutions in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // 100µs to ~3s
		},
	)

	// ResponderMatchesTotal counts ARP requests that targeted the local address
	ResponderMatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linkprobe_responder_matches_total",
			Help: "Total number of ARP requests matching the local address",
		},
	)
)

// WriteTextfile dumps the default registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
