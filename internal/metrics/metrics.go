// Package metrics exposes Prometheus instrumentation for the supervisor.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors updated by the supervisor and media
// server. A dedicated registry keeps tests isolated from the default
// global one.
type Metrics struct {
	registry *prometheus.Registry

	ActiveChannels prometheus.Gauge
	MediaServerUp  prometheus.Gauge

	ChannelStarts        *prometheus.CounterVec
	ChannelStartFailures *prometheus.CounterVec
	ChannelStops         *prometheus.CounterVec
	EncoderExits         *prometheus.CounterVec
}

// New creates the metric set on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ActiveChannels: factory.NewGauge(prometheus.GaugeOpts{
			Name: "streamdock_active_channels",
			Help: "Number of channels currently starting or running.",
		}),
		MediaServerUp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "streamdock_media_server_up",
			Help: "Whether the shared media server process is running.",
		}),
		ChannelStarts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "streamdock_channel_starts_total",
			Help: "Successful channel starts.",
		}, []string{"channel"}),
		ChannelStartFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "streamdock_channel_start_failures_total",
			Help: "Channel starts that failed, by reason.",
		}, []string{"channel", "reason"}),
		ChannelStops: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "streamdock_channel_stops_total",
			Help: "Operator-initiated channel stops.",
		}, []string{"channel"}),
		EncoderExits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "streamdock_encoder_exits_total",
			Help: "Encoder process exits, split by whether the stop was requested.",
		}, []string{"channel", "requested"}),
	}
}

// Handler returns the HTTP handler serving this metric set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
