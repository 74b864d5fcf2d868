package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinical-encounters/internal/admission"
	"github.com/hackgods/clinical-encounters/internal/appointment"
	"github.com/hackgods/clinical-encounters/internal/auth"
	"github.com/hackgods/clinical-encounters/internal/clinical"
	"github.com/hackgods/clinical-encounters/internal/metrics"
	"github.com/hackgods/clinical-encounters/internal/notification"
)

type RouterConfig struct {
	Appointments  *appointment.Service
	Sweeper       *appointment.Sweeper
	Admissions    *admission.Service
	Clinical      *clinical.Service
	Notifications *notification.Service

	PgPool *pgxpool.Pool
	Redis  *redis.Client
	Log    zerolog.Logger

	// Auth is used unless DevAuth is set, in which case identities come from
	// X-User-ID / X-User-Role headers.
	Auth    auth.JWTConfig
	DevAuth bool

	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(RecoveryMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	h := &handlers{
		appointments:  cfg.Appointments,
		sweeper:       cfg.Sweeper,
		admissions:    cfg.Admissions,
		clinical:      cfg.Clinical,
		notifications: cfg.Notifications,
		log:           cfg.Log,
	}

	r.Group(func(r chi.Router) {
		if cfg.DevAuth {
			r.Use(auth.DevMiddleware)
		} else {
			r.Use(auth.JWTMiddleware(cfg.Auth))
		}

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", h.bookAppointment)
			r.Get("/", h.listAppointments)
			r.Get("/{id}", h.getAppointment)
			r.Post("/{id}/transition", h.transitionAppointment)
		})

		r.Route("/admissions", func(r chi.Router) {
			r.Post("/", h.createAdmission)
			r.Get("/", h.listAdmissions)
			r.Get("/{id}", h.getAdmission)
			r.Post("/{id}/bed", h.assignBed)
			r.Post("/{id}/discharge", h.discharge)
			r.Post("/{id}/vitals", h.recordVitals)
			r.Post("/{id}/diagnoses", h.addDiagnosis)
			r.Post("/{id}/prescriptions", h.createPrescription)
		})
		r.Post("/prescriptions/{id}/medications", h.addMedication)
		r.Post("/medications/{id}/administrations", h.recordAdministration)
		r.Get("/beds", h.listBeds)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.inbox)
			r.Get("/unread-count", h.unreadCount)
			r.Post("/{id}/read", h.markRead)
			r.Delete("/{id}", h.deleteNotification)
		})

		r.With(auth.RequireRoles(auth.RoleAdmin, auth.RoleSystem)).
			Post("/sweeps/missed-consultations", h.runSweep)
	})

	return r
}

type handlers struct {
	appointments  *appointment.Service
	sweeper       *appointment.Sweeper
	admissions    *admission.Service
	clinical      *clinical.Service
	notifications *notification.Service
	log           zerolog.Logger
}
