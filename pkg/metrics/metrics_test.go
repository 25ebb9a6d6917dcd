package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordQueryEvents(t *testing.T) {
	sink := New()
	ctx := context.Background()

	sink.Record(ctx, "query.fetch", map[string]any{"resource": "users", "status": "success", "duration_ms": int64(120)})
	sink.Record(ctx, "query.fetch", map[string]any{"resource": "users", "status": "error", "duration_ms": int64(40)})
	sink.Record(ctx, "query.cache_hit", map[string]any{"resource": "sales"})
	sink.Record(ctx, "query.cache_hit", map[string]any{"resource": "sales"})
	sink.Record(ctx, "query.evicted", map[string]any{"count": 3})

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.events.WithLabelValues("query_fetch")))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.cacheHits.WithLabelValues("sales")))
	assert.Equal(t, 3.0, testutil.ToFloat64(sink.evicted))
	assert.Equal(t, 2, testutil.CollectAndCount(sink.fetchDuration))
}

func TestHandlerExposesSeries(t *testing.T) {
	sink := New()
	sink.Record(context.Background(), "dashboard.focus", map[string]any{"refetched": 1})

	rec := httptest.NewRecorder()
	sink.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `userdash_events_total{event="dashboard_focus"} 1`))
}

func TestMiddlewareCountsRequests(t *testing.T) {
	sink := New()
	handler := sink.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/queries/invoices", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/queries/invoices", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.httpRequests.WithLabelValues(http.MethodGet, "404")))
}
