// Package metrics exposes viewer activity as prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	SourceJSON       = "json"
	SourceFile       = "file"
	SourceFileObject = "file_object"

	ResultOK         = "ok"
	ResultError      = "error"
	ResultSuperseded = "superseded"
)

type Collector struct {
	loadsTotal     *prometheus.CounterVec
	loadDuration   *prometheus.HistogramVec
	framesRendered prometheus.Counter
	renderErrors   prometheus.Counter
	activeSessions prometheus.Gauge
	wsClients      prometheus.Gauge
}

// NewCollector registers the viewer metrics on reg under namespace.
// A nil reg uses the prometheus default registerer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		loadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "loads_total",
				Help:      "Total number of document loads by source and result",
			},
			[]string{"source", "result"},
		),
		loadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "load_duration_seconds",
				Help:      "Document load duration in seconds, from request to started render loop",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"source"},
		),
		framesRendered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_rendered_total",
			Help:      "Total number of frames rendered",
		}),
		renderErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_errors_total",
			Help:      "Total number of frames that failed to render",
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live render sessions",
		}),
		wsClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Number of connected websocket clients",
		}),
	}
}

// All methods accept a nil receiver so callers can leave metrics unset.

func (c *Collector) RecordLoad(source, result string, duration time.Duration) {
	if c == nil {
		return
	}
	c.loadsTotal.WithLabelValues(source, result).Inc()
	if result == ResultOK {
		c.loadDuration.WithLabelValues(source).Observe(duration.Seconds())
	}
}

func (c *Collector) RecordFrame(err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.renderErrors.Inc()
		return
	}
	c.framesRendered.Inc()
}

func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.activeSessions.Inc()
}

func (c *Collector) SessionStopped() {
	if c == nil {
		return
	}
	c.activeSessions.Dec()
}

func (c *Collector) ClientConnected() {
	if c == nil {
		return
	}
	c.wsClients.Inc()
}

func (c *Collector) ClientDisconnected() {
	if c == nil {
		return
	}
	c.wsClients.Dec()
}
