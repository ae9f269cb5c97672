package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/Juzanki/smartbiz-hub/hub"
	"github.com/Juzanki/smartbiz-hub/webhook"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/rs/zerolog"
)

// Deps bundles everything the HTTP layer serves.
type Deps struct {
	Webhooks webhook.UseCase
	Rooms    *hub.Hub
	Presence Presence
	Metrics  http.Handler
	Log      zerolog.Logger
}

// Handlers sets up the API routes
func Handlers(ctx context.Context, deps Deps) *chi.Mux {
	logger := httplog.NewLogger("smartbiz-hub", httplog.Options{
		JSON: true,
	})

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	// The WebSocket upgrade lives outside the timeout middleware: live
	// connections are expected to outlast any request deadline.
	r.Method(http.MethodGet, "/ws/live/{stream_id}/{user_id}", serveLive(deps.Rooms, deps.Presence, deps.Log))

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		// Live stream rooms
		r.Get("/streams", getStreams(deps.Rooms).ServeHTTP)
		r.Get("/streams/{stream_id}", getStream(deps.Rooms, deps.Presence).ServeHTTP)
		r.Post("/streams/{stream_id}/events", postStreamEvent(deps.Rooms).ServeHTTP)
		r.Delete("/streams/{stream_id}", deleteStream(deps.Rooms).ServeHTTP)

		// Webhook endpoints
		r.Post("/endpoints", postEndpoint(deps.Webhooks).ServeHTTP)
		r.Get("/endpoints", getEndpoints(deps.Webhooks).ServeHTTP)
		r.Get("/endpoints/{id}", getEndpoint(deps.Webhooks).ServeHTTP)
		r.Put("/endpoints/{id}", putEndpoint(deps.Webhooks).ServeHTTP)
		r.Delete("/endpoints/{id}", deleteEndpoint(deps.Webhooks).ServeHTTP)
		r.Post("/endpoints/{id}/rotate-secret", rotateSecret(deps.Webhooks).ServeHTTP)
		r.Get("/endpoints/{id}/deliveries", getDeliveries(deps.Webhooks).ServeHTTP)

		// Event emission (webhook fan-out entry point)
		r.Post("/events", postEvent(deps.Webhooks).ServeHTTP)
	})

	return r
}
