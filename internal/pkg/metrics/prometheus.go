package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sp3dr4/wren/config"
)

// PrometheusRegistry implements the Registry interface using Prometheus metrics
type PrometheusRegistry struct {
	registry *prometheus.Registry
	config   config.MetricsConfig

	// HTTP Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business Metrics
	linksCreatedTotal       prometheus.Counter
	redirectsTotal          prometheus.Counter
	documentsRewrittenTotal prometheus.Counter
	cacheHitsTotal          prometheus.Counter
	cacheMissesTotal        prometheus.Counter
}

// NewPrometheusRegistry creates a new Prometheus metrics registry
func NewPrometheusRegistry(cfg config.MetricsConfig) (Registry, error) {
	registry := prometheus.NewRegistry()

	// Create HTTP metrics
	httpRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatusCode},
	)

	httpRequestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelPath, LabelStatusCode},
	)

	httpRequestsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// Create business metrics
	linksCreatedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "links_created_total",
			Help:      "Total number of link mappings created",
		},
	)

	redirectsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "redirects_total",
			Help:      "Total number of redirects served",
		},
	)

	documentsRewrittenTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "documents_rewritten_total",
			Help:      "Total number of documents rewritten",
		},
	)

	cacheHitsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "redirect_cache_hits_total",
			Help:      "Total number of redirect cache hits, positive or negative",
		},
	)

	cacheMissesTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "redirect_cache_misses_total",
			Help:      "Total number of redirect cache misses",
		},
	)

	// Register all metrics
	metricsCollectors := []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDuration,
		httpRequestsInFlight,
		linksCreatedTotal,
		redirectsTotal,
		documentsRewrittenTotal,
		cacheHitsTotal,
		cacheMissesTotal,
	}

	for _, collector := range metricsCollectors {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	// Register Go runtime metrics if enabled
	if cfg.CollectRuntime {
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	return &PrometheusRegistry{
		registry:                registry,
		config:                  cfg,
		httpRequestsTotal:       httpRequestsTotal,
		httpRequestDuration:     httpRequestDuration,
		httpRequestsInFlight:    httpRequestsInFlight,
		linksCreatedTotal:       linksCreatedTotal,
		redirectsTotal:          redirectsTotal,
		documentsRewrittenTotal: documentsRewrittenTotal,
		cacheHitsTotal:          cacheHitsTotal,
		cacheMissesTotal:        cacheMissesTotal,
	}, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration
func (p *PrometheusRegistry) RecordHTTPRequest(method, path, statusCode string, duration float64) {
	labels := prometheus.Labels{
		LabelMethod:     method,
		LabelPath:       path,
		LabelStatusCode: statusCode,
	}
	p.httpRequestsTotal.With(labels).Inc()
	p.httpRequestDuration.With(labels).Observe(duration)
}

// IncHTTPRequestsInFlight increments the in-flight HTTP requests counter
func (p *PrometheusRegistry) IncHTTPRequestsInFlight() {
	p.httpRequestsInFlight.Inc()
}

// DecHTTPRequestsInFlight decrements the in-flight HTTP requests counter
func (p *PrometheusRegistry) DecHTTPRequestsInFlight() {
	p.httpRequestsInFlight.Dec()
}

// IncLinksCreated increments the created link mappings counter
func (p *PrometheusRegistry) IncLinksCreated() {
	p.linksCreatedTotal.Inc()
}

// IncRedirects increments the served redirects counter
func (p *PrometheusRegistry) IncRedirects() {
	p.redirectsTotal.Inc()
}

// IncDocumentsRewritten increments the rewritten documents counter
func (p *PrometheusRegistry) IncDocumentsRewritten() {
	p.documentsRewrittenTotal.Inc()
}

// IncCacheHit increments the redirect cache hit counter
func (p *PrometheusRegistry) IncCacheHit() {
	p.cacheHitsTotal.Inc()
}

// IncCacheMiss increments the redirect cache miss counter
func (p *PrometheusRegistry) IncCacheMiss() {
	p.cacheMissesTotal.Inc()
}

// GetRegistry returns the underlying Prometheus registry
func (p *PrometheusRegistry) GetRegistry() *prometheus.Registry {
	return p.registry
}

// GetHandler returns an HTTP handler for the metrics endpoint
func (p *PrometheusRegistry) GetHandler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
