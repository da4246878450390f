package observability

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewObsRouter serves /metrics and the health probes.
func NewObsRouter(ready ...func(context.Context) error) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health/live", HealthLiveHandler)
	r.Get("/health/ready", HealthReadyHandler(ready...))
	return r
}
