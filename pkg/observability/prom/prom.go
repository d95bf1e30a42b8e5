// Package prom implements the observability hooks with Prometheus
// collectors.
package prom

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/sysmap/pkg/observability"
)

// Hooks records layout, cache and HTTP events as Prometheus metrics.
type Hooks struct {
	LayoutsTotal    *prometheus.CounterVec
	LayoutDuration  *prometheus.HistogramVec
	LayoutNodes     prometheus.Histogram
	LayoutCrossings *prometheus.HistogramVec
	RendersTotal    *prometheus.CounterVec
	RenderDuration  prometheus.Histogram
	CacheEvents     *prometheus.CounterVec
	CacheBytes      *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	HTTPInFlight    prometheus.Gauge
}

// New creates the collectors and registers them with reg. It panics if a
// collector is already registered, like prometheus.MustRegister.
func New(reg prometheus.Registerer) *Hooks {
	h := &Hooks{
		LayoutsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sysmap_layouts_total",
				Help: "Layout runs by algorithm and outcome",
			},
			[]string{"algorithm", "result"},
		),
		LayoutDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sysmap_layout_duration_seconds",
				Help:    "Wall time of layout runs, cache hits included",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"algorithm"},
		),
		LayoutNodes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sysmap_layout_nodes",
				Help:    "Node count of laid out graphs",
				Buckets: prometheus.ExponentialBuckets(4, 2, 10),
			},
		),
		LayoutCrossings: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sysmap_layout_crossings",
				Help:    "Edge crossings before and after refinement",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
			},
			[]string{"stage"},
		),
		RendersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sysmap_renders_total",
				Help: "Render runs by format and outcome",
			},
			[]string{"format", "result"},
		),
		RenderDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sysmap_render_duration_seconds",
				Help:    "Wall time of render runs",
				Buckets: prometheus.DefBuckets,
			},
		),
		CacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sysmap_cache_events_total",
				Help: "Cache lookups and writes by key type",
			},
			[]string{"key_type", "event"},
		),
		CacheBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sysmap_cache_written_bytes_total",
				Help: "Bytes written to the cache by key type",
			},
			[]string{"key_type"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sysmap_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sysmap_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sysmap_http_in_flight_requests",
				Help: "Requests currently being served",
			},
		),
	}
	reg.MustRegister(
		h.LayoutsTotal, h.LayoutDuration, h.LayoutNodes, h.LayoutCrossings,
		h.RendersTotal, h.RenderDuration,
		h.CacheEvents, h.CacheBytes,
		h.HTTPRequests, h.HTTPDuration, h.HTTPInFlight,
	)
	return h
}

// Install registers h as the layout, cache and HTTP hooks.
func (h *Hooks) Install() {
	observability.SetLayoutHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// OnLayoutStart is a no-op; completion carries everything recorded.
func (h *Hooks) OnLayoutStart(context.Context, string, int) {}

// OnLayoutComplete records one layout run.
func (h *Hooks) OnLayoutComplete(_ context.Context, ev observability.LayoutEvent) {
	res := result(ev.Err)
	if ev.Err == nil && ev.CacheHit {
		res = "cached"
	}
	h.LayoutsTotal.WithLabelValues(ev.Algorithm, res).Inc()
	h.LayoutDuration.WithLabelValues(ev.Algorithm).Observe(ev.Duration.Seconds())
	if ev.Err != nil || ev.CacheHit {
		return
	}
	h.LayoutNodes.Observe(float64(ev.Nodes))
	h.LayoutCrossings.WithLabelValues("before").Observe(float64(ev.CrossingsBefore))
	h.LayoutCrossings.WithLabelValues("after").Observe(float64(ev.CrossingsAfter))
}

// OnRenderStart is a no-op.
func (h *Hooks) OnRenderStart(context.Context, []string) {}

// OnRenderComplete records one render run.
func (h *Hooks) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	for _, f := range formats {
		h.RendersTotal.WithLabelValues(f, result(err)).Inc()
	}
	h.RenderDuration.Observe(d.Seconds())
}

// OnCacheHit counts a hit.
func (h *Hooks) OnCacheHit(_ context.Context, keyType string) {
	h.CacheEvents.WithLabelValues(keyType, "hit").Inc()
}

// OnCacheMiss counts a miss.
func (h *Hooks) OnCacheMiss(_ context.Context, keyType string) {
	h.CacheEvents.WithLabelValues(keyType, "miss").Inc()
}

// OnCacheSet counts a write and its size.
func (h *Hooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.CacheEvents.WithLabelValues(keyType, "set").Inc()
	h.CacheBytes.WithLabelValues(keyType).Add(float64(size))
}

// OnRequest tracks in-flight requests.
func (h *Hooks) OnRequest(context.Context, string, string) {
	h.HTTPInFlight.Inc()
}

// OnResponse records a finished request.
func (h *Hooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	h.HTTPInFlight.Dec()
	h.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	h.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.LayoutHooks = (*Hooks)(nil)
	_ observability.CacheHooks  = (*Hooks)(nil)
	_ observability.HTTPHooks   = (*Hooks)(nil)
)
