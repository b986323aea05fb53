// Package metrics exposes relay activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	orchestration "github.com/koscakluka/ema-relay/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the relay.
type Metrics struct {
	registry *prometheus.Registry

	SessionsActive prometheus.Gauge
	SessionsTotal  *prometheus.CounterVec

	UtterancesTotal prometheus.Counter

	ProviderCallsTotal   *prometheus.CounterVec
	ProviderCallDuration *prometheus.HistogramVec

	AudioBytesTotal *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "ema_relay"
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of connected sessions",
		}),
		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of finished sessions",
		}, []string{"outcome"}),
		UtterancesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_total",
			Help:      "Total number of processed utterances",
		}),
		ProviderCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Total number of provider calls",
		}, []string{"provider", "op", "status"}),
		ProviderCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_duration_seconds",
			Help:      "Provider call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"provider", "op"}),
		AudioBytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_total",
			Help:      "Total audio bytes relayed",
		}, []string{"direction"}),
	}

	registry.MustRegister(
		m.SessionsActive,
		m.SessionsTotal,
		m.UtterancesTotal,
		m.ProviderCallsTotal,
		m.ProviderCallDuration,
		m.AudioBytesTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Observer returns an orchestration.Observer that labels each stage with
// the provider serving it.
func (m *Metrics) Observer(providers map[orchestration.Stage]string) orchestration.Observer {
	labels := make(map[orchestration.Stage]string, len(providers))
	for stage, provider := range providers {
		labels[stage] = provider
	}
	return &sessionObserver{metrics: m, providers: labels}
}

type sessionObserver struct {
	metrics   *Metrics
	providers map[orchestration.Stage]string
}

func (o *sessionObserver) SessionStarted() {
	o.metrics.SessionsActive.Inc()
}

func (o *sessionObserver) SessionEnded(outcome orchestration.Outcome) {
	o.metrics.SessionsActive.Dec()
	o.metrics.SessionsTotal.WithLabelValues(string(outcome)).Inc()
}

func (o *sessionObserver) UtteranceProcessed() {
	o.metrics.UtterancesTotal.Inc()
}

func (o *sessionObserver) StageCompleted(stage orchestration.Stage, elapsed time.Duration, ok bool) {
	provider := o.providers[stage]
	if provider == "" {
		provider = "unknown"
	}
	status := "ok"
	if !ok {
		status = "error"
	}

	o.metrics.ProviderCallsTotal.WithLabelValues(provider, string(stage), status).Inc()
	o.metrics.ProviderCallDuration.WithLabelValues(provider, string(stage)).Observe(elapsed.Seconds())
}

func (o *sessionObserver) AudioBytes(direction orchestration.Direction, n int) {
	if n <= 0 {
		return
	}
	o.metrics.AudioBytesTotal.WithLabelValues(string(direction)).Add(float64(n))
}
