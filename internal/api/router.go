package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clinicdesk/appointment-booking/internal/appointment"
	"github.com/clinicdesk/appointment-booking/internal/auth"
	"github.com/clinicdesk/appointment-booking/internal/doctor"
)

type RouterConfig struct {
	Booking   *appointment.BookingService
	Lifecycle *appointment.LifecycleService
	Store     doctor.AvailabilityStore
	Guard     auth.Guard
	Logger    *zap.Logger
	Limiter   *RateLimiter
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	if cfg.Limiter != nil {
		r.Use(cfg.Limiter.Middleware)
	}

	// Health endpoints
	if cfg.PgPool != nil && cfg.Redis != nil {
		health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
		r.Get("/health/live", health.Liveness)
		r.Get("/health/ready", health.Readiness)
	}

	// Public doctor listing
	r.Get("/doctors", listDoctorsHandler(cfg.Store))
	r.Get("/doctors/{id}", getDoctorHandler(cfg.Store))

	// Everything below requires a verified actor
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Guard))

		r.Patch("/doctors/{id}", updateDoctorHandler(cfg.Store))

		r.Post("/appointments", bookAppointmentHandler(cfg.Booking))
		r.Get("/appointments", listAppointmentsHandler(cfg.Lifecycle))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Lifecycle))
		r.Post("/appointments/{id}/cancel", transitionHandler(cfg.Lifecycle.Cancel))
		r.Post("/appointments/{id}/complete", transitionHandler(cfg.Lifecycle.Complete))
	})

	return r
}
