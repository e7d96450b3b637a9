// Package metrics exposes Prometheus metrics for editing sessions and exports.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Edit kinds and rejection reasons used as label values.
const (
	KindBoundary = "boundary"
	KindVariety  = "variety"

	ReasonOutsideParcel = "outside_parcel"
	ReasonMinVertices   = "min_vertices"
	ReasonNoGeometry    = "no_geometry"
	ReasonSaveFailed    = "save_failed"

	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Provider owns a private registry and the orchard collectors.
type Provider struct {
	reg *prometheus.Registry

	editsCommitted *prometheus.CounterVec
	editsRejected  *prometheus.CounterVec
	exports        *prometheus.CounterVec
	exportCache    *prometheus.CounterVec
	renderSeconds  prometheus.Histogram
	httpRequests   *prometheus.HistogramVec
	refreshes      *prometheus.CounterVec
}

// New builds a Provider with Go and process collectors registered.
func New() *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p := &Provider{
		reg: reg,
		editsCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchard_edits_committed_total",
			Help: "Geometry edits committed by editing sessions.",
		}, []string{"kind"}),
		editsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchard_edits_rejected_total",
			Help: "Geometry edits rejected or failed to persist.",
		}, []string{"reason"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchard_exports_total",
			Help: "Documents exported by format.",
		}, []string{"format"}),
		exportCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchard_export_cache_total",
			Help: "Export cache lookups by result.",
		}, []string{"result"}),
		renderSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "orchard_export_render_seconds",
			Help:    "Time spent rendering an export document.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}),
		httpRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orchard_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchard_satellite_refresh_total",
			Help: "Satellite refresh requests by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		p.editsCommitted,
		p.editsRejected,
		p.exports,
		p.exportCache,
		p.renderSeconds,
		p.httpRequests,
		p.refreshes,
	)
	return p
}

// Handler serves the registry in the Prometheus text format.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry, mainly for tests.
func (p *Provider) Registry() *prometheus.Registry { return p.reg }

// EditCommitted counts a committed edit of the given kind.
func (p *Provider) EditCommitted(kind string) {
	if p == nil {
		return
	}
	p.editsCommitted.WithLabelValues(kind).Inc()
}

// EditRejected counts a rejected or failed edit.
func (p *Provider) EditRejected(reason string) {
	if p == nil {
		return
	}
	p.editsRejected.WithLabelValues(reason).Inc()
}

// ExportRendered records a rendered document and its render time.
func (p *Provider) ExportRendered(format string, elapsed time.Duration) {
	if p == nil {
		return
	}
	p.exports.WithLabelValues(format).Inc()
	p.renderSeconds.Observe(elapsed.Seconds())
}

// CacheLookup counts an export cache hit or miss.
func (p *Provider) CacheLookup(hit bool) {
	if p == nil {
		return
	}
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	p.exportCache.WithLabelValues(result).Inc()
}

// SatelliteRefresh counts a refresh request; outcome is "sent" or "failed".
func (p *Provider) SatelliteRefresh(outcome string) {
	if p == nil {
		return
	}
	p.refreshes.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one HTTP request.
func (p *Provider) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if p == nil {
		return
	}
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
