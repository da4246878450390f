package devserver

import (
	"net/http"

	"github.com/SARVESHVARADKAR123/dmsync/internal/config"
	"github.com/SARVESHVARADKAR123/dmsync/internal/middleware"
	"github.com/SARVESHVARADKAR123/dmsync/internal/observability"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(observability.MetricsMiddleware(cfg.ServiceName))
	r.Use(middleware.Recovery())
	r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

	r.Get("/health/live", observability.HealthLiveHandler)
	r.Get("/health/ready", observability.HealthReadyHandler())

	r.Post("/api/dev/token", h.IssueToken)
	r.Get("/files/{id}", h.File)

	r.Group(func(p chi.Router) {
		p.Use(middleware.JWT(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience))

		convPath := "/api/conversations/{id}"
		p.Get(convPath, h.GetConversation)
		p.Get(convPath+"/messages", h.ListMessages)
		p.Post(convPath+"/messages", h.CreateMessage)
		p.Post(convPath+"/read", h.MarkRead)

		p.Post("/api/uploads/init", h.InitUpload)
		p.Put("/uploads/{id}", h.PutUpload)
		p.Post("/api/uploads/complete", h.CompleteUpload)
	})

	return otelhttp.NewHandler(r, cfg.ServiceName)
}
