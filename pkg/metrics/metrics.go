// Package metrics exposes Prometheus instrumentation for the RTSP
// transport. All hooks are optional: a nil *Metrics disables collection.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics for the receiver transport.
type Metrics struct {
	// Connection metrics
	ConnectionsAccepted prometheus.Counter
	ConnectionsActive   prometheus.Gauge

	// Encrypted frame metrics
	FramesDecrypted prometheus.Counter
	FramesSent      prometheus.Counter
	AuthFailures    prometheus.Counter

	// Request metrics
	RequestsParsed prometheus.Counter
	ParseErrors    prometheus.Counter
}

// New creates and registers all metrics on the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates all metrics and registers them on reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ConnectionsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "rtsp_connections_accepted_total",
			Help: "Total number of accepted RTSP connections",
		}),
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rtsp_connections_active",
			Help: "Current number of active RTSP connections",
		}),
		FramesDecrypted: factory.NewCounter(prometheus.CounterOpts{
			Name: "rtsp_frames_decrypted_total",
			Help: "Total number of encrypted frames decrypted and verified",
		}),
		FramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "rtsp_frames_sent_total",
			Help: "Total number of encrypted frames sent",
		}),
		AuthFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "rtsp_frame_auth_failures_total",
			Help: "Total number of frames failing AEAD authentication",
		}),
		RequestsParsed: factory.NewCounter(prometheus.CounterOpts{
			Name: "rtsp_requests_parsed_total",
			Help: "Total number of successfully parsed RTSP requests",
		}),
		ParseErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "rtsp_request_parse_errors_total",
			Help: "Total number of malformed RTSP requests",
		}),
	}
}
