package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "balloon_atlas"

// Metrics holds the Prometheus collectors for the HTTP surface and the pipeline.
// All recording methods are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests        *prometheus.CounterVec   // labels: method, route, status
	HTTPRequestDuration *prometheus.HistogramVec // labels: method, route
	HTTPInFlight        prometheus.Gauge

	CacheLookups *prometheus.CounterVec // labels: key, result={hit,miss}

	SliceFetches         *prometheus.CounterVec // labels: outcome={success,error}
	ObservationsIngested prometheus.Counter
	PipelineDuration     *prometheus.HistogramVec // labels: stage={ingest,enrich,insight,total}

	WeatherLookups *prometheus.CounterVec // labels: provider, outcome={success,error}
}

// NewMetrics creates all collectors on a private registry together with the
// standard Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "route"}),
		HTTPInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by key and result.",
		}, []string{"key", "result"}),
		SliceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_slice_fetches_total",
			Help:      "Balloon feed slice fetches by outcome.",
		}, []string{"outcome"}),
		ObservationsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_ingested_total",
			Help:      "Observations retained after normalization.",
		}),
		PipelineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		WeatherLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_lookups_total",
			Help:      "Per-location weather lookups by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPRequestDuration,
		m.HTTPInFlight,
		m.CacheLookups,
		m.SliceFetches,
		m.ObservationsIngested,
		m.PipelineDuration,
		m.WeatherLookups,
	)

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordCacheHit(key string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(key, "hit").Inc()
}

func (m *Metrics) RecordCacheMiss(key string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(key, "miss").Inc()
}

func (m *Metrics) RecordSliceFetch(err error, observations int) {
	if m == nil {
		return
	}
	if err != nil {
		m.SliceFetches.WithLabelValues("error").Inc()
		return
	}
	m.SliceFetches.WithLabelValues("success").Inc()
	m.ObservationsIngested.Add(float64(observations))
}

func (m *Metrics) RecordWeatherLookup(provider string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.WeatherLookups.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.PipelineDuration.WithLabelValues(stage).Observe(d.Seconds())
}
