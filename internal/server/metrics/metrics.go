// Package metrics exposes Prometheus instrumentation for claims and the
// entitlement flush loop, and the HTTP endpoint that serves it.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace   = "kitkeeper"
	maxLabelLen = 64
)

// sanitizeLabel keeps label values short and free of spaces.
func sanitizeLabel(s string) string {
	if s == "" {
		return "unknown"
	}
	s = strings.ReplaceAll(s, " ", "_")
	if len(s) > maxLabelLen {
		s = s[:maxLabelLen]
	}
	return s
}

type Metrics struct {
	registry *prometheus.Registry

	claims        *prometheus.CounterVec
	flushes       *prometheus.CounterVec
	flushDuration prometheus.Histogram
	flushRecords  prometheus.Gauge
}

// New builds the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		claims: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "claims_total",
				Help:      "Claim attempts by kit and outcome",
			},
			[]string{"kit", "outcome"},
		),
		flushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "flushes_total",
				Help:      "Entitlement flushes by result",
			},
			[]string{"result"},
		),
		flushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "flush_duration_seconds",
			Help:      "Time spent rewriting the entitlement tables",
			Buckets:   prometheus.DefBuckets,
		}),
		flushRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "flushed_rows",
			Help:      "Rows written by the last flush attempt",
		}),
	}
	m.registry.MustRegister(
		m.claims, m.flushes, m.flushDuration, m.flushRecords,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordClaim counts one claim outcome.
func (m *Metrics) RecordClaim(kit, outcome string) {
	m.claims.WithLabelValues(sanitizeLabel(kit), sanitizeLabel(outcome)).Inc()
}

// ObserveFlush records one flush attempt.
func (m *Metrics) ObserveFlush(took time.Duration, records int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.flushes.WithLabelValues(result).Inc()
	m.flushDuration.Observe(took.Seconds())
	m.flushRecords.Set(float64(records))
}

// TrackRecords exports fn as the number of entitlement records in memory.
func (m *Metrics) TrackRecords(fn func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "records",
		Help:      "Entitlement records held in memory",
	}, func() float64 { return float64(fn()) }))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
