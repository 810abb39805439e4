/**
 * @description
 * HTTP router setup for the assignment service diagnostics surface using go-chi/chi.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new Chi router and registers the health, metrics and queue routes.
func NewRouter(h *Handler, internalKey string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogger(&requestLogFormatter{log: h.log.WithField("component", "http")}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Internal-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Assignment service is healthy"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/internal/queue", func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalKey))
		r.Get("/status", h.handleQueueStatus)
		r.Post("/test-message", h.handleSendTestMessage)
	})

	return r
}
