package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHealthReady(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthReadyHandler(func(context.Context) error { return nil })(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	HealthReadyHandler(func(context.Context) error { return errors.New("redis down") })(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware("metrics-test"))
	r.Get("/api/conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/conversations/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/conversations/def", nil))

	got := testutil.ToFloat64(HttpRequestsTotal.WithLabelValues("metrics-test", http.MethodGet, "/api/conversations/{id}", "418"))
	assert.Equal(t, 2.0, got)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
