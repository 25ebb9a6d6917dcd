package metrics

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ettle/strcase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "userdash"

// Telemetry turns dashboard telemetry events into Prometheus series.
type Telemetry struct {
	registry *prometheus.Registry

	events        *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	cacheHits     *prometheus.CounterVec
	evicted       prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New registers the collectors on a private registry.
func New() *Telemetry {
	t := &Telemetry{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Dashboard telemetry events by name.",
		}, []string{"event"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_fetch_duration_seconds",
			Help:      "Producer run time per resource and outcome.",
			Buckets:   []float64{.05, .1, .25, .5, .75, 1, 2.5, 5, 10},
		}, []string{"resource", "status"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_hits_total",
			Help:      "Reads answered from a fresh cache entry.",
		}, []string{"resource"}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_evicted_total",
			Help:      "Cache entries removed by garbage collection.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	t.registry.MustRegister(
		t.events,
		t.fetchDuration,
		t.cacheHits,
		t.evicted,
		t.httpRequests,
		t.httpDuration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return t
}

// Registry exposes the underlying registry for tests and extra collectors.
func (t *Telemetry) Registry() *prometheus.Registry {
	return t.registry
}

// Record satisfies dashboard.Telemetry.
func (t *Telemetry) Record(_ context.Context, event string, payload map[string]any) {
	t.events.WithLabelValues(strcase.ToSnake(event)).Inc()

	switch event {
	case "query.fetch":
		resource, _ := payload["resource"].(string)
		status, _ := payload["status"].(string)
		t.fetchDuration.WithLabelValues(resource, status).Observe(millis(payload["duration_ms"]).Seconds())
	case "query.cache_hit":
		resource, _ := payload["resource"].(string)
		t.cacheHits.WithLabelValues(resource).Inc()
	case "query.evicted":
		if count, ok := payload["count"].(int); ok && count > 0 {
			t.evicted.Add(float64(count))
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{Registry: t.registry})
}

// Middleware counts requests and their latency.
func (t *Telemetry) Middleware(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(t.httpDuration,
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &codeRecorder{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(rec, r)
			t.httpRequests.WithLabelValues(r.Method, strconv.Itoa(rec.code)).Inc()
		}))
}

type codeRecorder struct {
	http.ResponseWriter
	code int
}

func (r *codeRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *codeRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *codeRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	r.code = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *codeRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func millis(v any) time.Duration {
	switch n := v.(type) {
	case int64:
		return time.Duration(n) * time.Millisecond
	case int:
		return time.Duration(n) * time.Millisecond
	case float64:
		return time.Duration(n * float64(time.Millisecond))
	default:
		return 0
	}
}
