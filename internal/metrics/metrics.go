// Package metrics exposes the device's loop counters to Prometheus.
package metrics

import (
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all device metrics. The tick loop writes the counters; the
// registry reads them on scrape.
type Metrics struct {
	// Loop counters
	FramesProcessed atomic.Uint64
	AlertsRaised    atomic.Uint64
	PublishErrors   atomic.Uint64

	// Scene state
	ObjectsInView atomic.Uint64

	// Connection state (0 = down, 1 = up)
	MQTTConnected atomic.Uint64

	achievedFPSMilli atomic.Uint64

	registry  *prometheus.Registry
	startTime time.Time
}

// New creates a Metrics instance with its own Prometheus registry
func New() *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "argus_frames_processed_total",
			Help: "Total frames generated and published",
		},
		func() float64 { return float64(m.FramesProcessed.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "argus_alerts_raised_total",
			Help: "Total alerts raised by the detection policy",
		},
		func() float64 { return float64(m.AlertsRaised.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "argus_publish_errors_total",
			Help: "Total failed publish attempts",
		},
		func() float64 { return float64(m.PublishErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "argus_objects_in_view",
			Help: "Objects detected in the most recent frame",
		},
		func() float64 { return float64(m.ObjectsInView.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "argus_mqtt_connected",
			Help: "Broker session state (0=down, 1=up)",
		},
		func() float64 { return float64(m.MQTTConnected.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "argus_achieved_fps",
			Help: "Measured tick rate of the capture loop",
		},
		func() float64 { return float64(m.achievedFPSMilli.Load()) / 1000 },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "argus_uptime_seconds",
			Help: "Seconds since the device started",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	))
}

// SetAchievedFPS records the loop's measured frame rate with millifps
// resolution
func (m *Metrics) SetAchievedFPS(fps float64) {
	m.achievedFPSMilli.Store(uint64(math.Round(fps * 1000)))
}

// SetConnected records the broker session state
func (m *Metrics) SetConnected(up bool) {
	if up {
		m.MQTTConnected.Store(1)
	} else {
		m.MQTTConnected.Store(0)
	}
}

// Handler returns the Prometheus scrape handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
