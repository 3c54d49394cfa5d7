package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/appflows/booking-flow/internal/auth"
	"github.com/appflows/booking-flow/internal/booking"
)

type RouterConfig struct {
	Service *booking.Service
	Tokens  *auth.Tokens
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(MetricsMiddleware)

	// Health and metrics endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Account endpoints
	r.Post("/users", registerHandler(cfg.Service))
	r.Post("/sessions", sessionHandler(cfg.Service, cfg.Tokens))

	// Everything the booking flow touches requires a session
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Tokens))

		r.Get("/providers", listProvidersHandler(cfg.Service))
		r.Get("/providers/{id}/day-availability", dayAvailabilityHandler(cfg.Service))
		r.Post("/appointments", createAppointmentHandler(cfg.Service))
		r.Get("/profile", getProfileHandler(cfg.Service))
		r.Put("/profile", updateProfileHandler(cfg.Service))
	})

	return r
}
