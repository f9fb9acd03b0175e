// Package metrics implements the observability hooks with Prometheus
// collectors on a private registry.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/mindmap/pkg/observability"
)

// Namespace prefixes every metric name.
const Namespace = "mindmap"

// Collector holds all Prometheus metrics for the application. It implements
// every hook interface of the observability package.
type Collector struct {
	registry *prometheus.Registry

	edits        *prometheus.CounterVec
	editDuration *prometheus.HistogramVec
	history      *prometheus.CounterVec
	nodes        prometheus.Gauge

	loads          *prometheus.CounterVec
	layoutDuration *prometheus.HistogramVec
	renders        *prometheus.CounterVec
	renderDuration prometheus.Histogram

	cache *prometheus.CounterVec
	bytes prometheus.Counter

	storage         *prometheus.CounterVec
	storageDuration *prometheus.HistogramVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	websockets   prometheus.Gauge
}

var (
	_ observability.EditHooks     = (*Collector)(nil)
	_ observability.PipelineHooks = (*Collector)(nil)
	_ observability.CacheHooks    = (*Collector)(nil)
	_ observability.StorageHooks  = (*Collector)(nil)
	_ observability.HTTPHooks     = (*Collector)(nil)
)

// New creates a collector with its own registry, so several collectors can
// coexist in tests.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "edits_total",
			Help:      "Total number of edit operations",
		}, []string{"op", "status"}),
		editDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "edit_duration_seconds",
			Help:      "Edit operation duration in seconds, layout included",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}, []string{"op"}),
		history: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "history_total",
			Help:      "Undo and redo requests",
		}, []string{"op", "applied"}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "document_nodes",
			Help:      "Number of nodes in the most recently edited document",
		}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "loads_total",
			Help:      "Documents loaded",
		}, []string{"source", "status"}),
		layoutDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "layout_duration_seconds",
			Help:      "Layout duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}, []string{"scope"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "renders_total",
			Help:      "Export runs",
		}, []string{"status"}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "render_duration_seconds",
			Help:      "Export duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_events_total",
			Help:      "Cache hits, misses and writes",
		}, []string{"key_type", "event"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the artifact cache",
		}),
		storage: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "storage_operations_total",
			Help:      "Document storage operations",
		}, []string{"backend", "op", "status"}),
		storageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "storage_operation_duration_seconds",
			Help:      "Document storage operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "op"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		websockets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "websocket_clients",
			Help:      "Connected change-feed clients",
		}),
	}

	c.registry.MustRegister(
		c.edits, c.editDuration, c.history, c.nodes,
		c.loads, c.layoutDuration, c.renders, c.renderDuration,
		c.cache, c.bytes,
		c.storage, c.storageDuration,
		c.httpRequests, c.httpDuration, c.websockets,
		collectors.NewGoCollector(),
	)
	return c
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Install registers c for every hook category.
func (c *Collector) Install() {
	observability.SetEditHooks(c)
	observability.SetPipelineHooks(c)
	observability.SetCacheHooks(c)
	observability.SetStorageHooks(c)
	observability.SetHTTPHooks(c)
}

func (c *Collector) OnEdit(_ context.Context, op string, nodeCount int, d time.Duration, err error) {
	c.edits.WithLabelValues(op, status(err)).Inc()
	c.editDuration.WithLabelValues(op).Observe(d.Seconds())
	if err == nil {
		c.nodes.Set(float64(nodeCount))
	}
}

func (c *Collector) OnHistory(_ context.Context, op string, ok bool) {
	c.history.WithLabelValues(op, strconv.FormatBool(ok)).Inc()
}

func (c *Collector) OnLoadComplete(_ context.Context, source string, nodeCount int, _ time.Duration, err error) {
	c.loads.WithLabelValues(source, status(err)).Inc()
	if err == nil {
		c.nodes.Set(float64(nodeCount))
	}
}

func (c *Collector) OnLayoutComplete(_ context.Context, scope string, _ int, d time.Duration, _ error) {
	c.layoutDuration.WithLabelValues(scope).Observe(d.Seconds())
}

func (c *Collector) OnRenderStart(context.Context, []string) {}

func (c *Collector) OnRenderComplete(_ context.Context, _ []string, d time.Duration, err error) {
	c.renders.WithLabelValues(status(err)).Inc()
	c.renderDuration.Observe(d.Seconds())
}

func (c *Collector) OnCacheHit(_ context.Context, keyType string) {
	c.cache.WithLabelValues(keyType, "hit").Inc()
}

func (c *Collector) OnCacheMiss(_ context.Context, keyType string) {
	c.cache.WithLabelValues(keyType, "miss").Inc()
}

func (c *Collector) OnCacheSet(_ context.Context, keyType string, size int) {
	c.cache.WithLabelValues(keyType, "set").Inc()
	c.bytes.Add(float64(size))
}

func (c *Collector) OnStorageOp(_ context.Context, backend, op string, d time.Duration, err error) {
	c.storage.WithLabelValues(backend, op, status(err)).Inc()
	c.storageDuration.WithLabelValues(backend, op).Observe(d.Seconds())
}

func (c *Collector) OnRequest(_ context.Context, method, route string, code int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) OnWebSocket(_ context.Context, delta int) {
	c.websockets.Add(float64(delta))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
