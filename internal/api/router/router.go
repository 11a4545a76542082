// Package router assembles the HTTP surface of the platform.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mediconnect/platform/internal/appointments"
	"github.com/mediconnect/platform/internal/diagnosis"
	"github.com/mediconnect/platform/internal/directory"
	httpmiddleware "github.com/mediconnect/platform/internal/http/middleware"
	"github.com/mediconnect/platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Auth               *directory.AuthService
	DirectoryHandler   *directory.Handler
	AppointmentHandler *appointments.Handler
	ChatHandler        *diagnosis.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// sessionVerifier adapts the directory auth service to the middleware's
// identity type.
type sessionVerifier struct {
	auth *directory.AuthService
}

func (v sessionVerifier) Verify(token string) (*httpmiddleware.Identity, error) {
	identity, err := v.auth.Verify(token)
	if err != nil {
		return nil, err
	}
	return &httpmiddleware.Identity{
		UserID: identity.UserID,
		Role:   string(identity.Role),
		Name:   identity.Name,
	}, nil
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	patient := string(directory.RolePatient)
	doctor := string(directory.RoleDoctor)
	admin := string(directory.RoleAdmin)

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		public.Post("/api/auth/login", cfg.DirectoryHandler.Login)
	})

	// Authenticated endpoints
	r.Group(func(authed chi.Router) {
		authed.Use(httpmiddleware.Session(sessionVerifier{auth: cfg.Auth}))

		authed.Get("/api/doctors", cfg.DirectoryHandler.ListDoctors)

		authed.Route("/api/appointments", func(ar chi.Router) {
			ar.Get("/", cfg.AppointmentHandler.ListMine)
			ar.Post("/undo", cfg.AppointmentHandler.Undo)
			ar.Get("/{id}", cfg.AppointmentHandler.Get)

			ar.With(httpmiddleware.RequireRole(patient)).Group(func(pr chi.Router) {
				pr.Post("/", cfg.AppointmentHandler.Request)
				pr.Post("/{id}/cancel", cfg.AppointmentHandler.Cancel)
				pr.Post("/{id}/accept-reschedule", cfg.AppointmentHandler.AcceptReschedule)
				pr.Post("/{id}/decline-reschedule", cfg.AppointmentHandler.DeclineReschedule)
			})

			ar.With(httpmiddleware.RequireRole(doctor)).Group(func(dr chi.Router) {
				dr.Post("/{id}/accept", cfg.AppointmentHandler.Accept)
				dr.Post("/{id}/decline", cfg.AppointmentHandler.Decline)
				dr.Post("/{id}/propose-reschedule", cfg.AppointmentHandler.ProposeReschedule)
				dr.Post("/{id}/doctor-cancel", cfg.AppointmentHandler.DoctorCancel)
				dr.Post("/{id}/complete", cfg.AppointmentHandler.Complete)
				dr.Post("/{id}/no-show", cfg.AppointmentHandler.NoShow)
			})
		})

		authed.Route("/api/patient/appointments", func(pr chi.Router) {
			pr.Use(httpmiddleware.RequireRole(patient))
			pr.Get("/upcoming", cfg.AppointmentHandler.Upcoming)
		})

		authed.Route("/api/doctor/appointments", func(dr chi.Router) {
			dr.Use(httpmiddleware.RequireRole(doctor))
			dr.Get("/pending", cfg.AppointmentHandler.Pending)
			dr.Get("/today", cfg.AppointmentHandler.TodaySchedule)
		})

		authed.Route("/api/admin", func(adm chi.Router) {
			adm.Use(httpmiddleware.RequireRole(admin))
			adm.Post("/appointments/{id}/status", cfg.AppointmentHandler.Override)
			adm.Get("/appointments/stats", cfg.AppointmentHandler.Stats)
			adm.Get("/users", cfg.DirectoryHandler.ListUsers)
			adm.Post("/users", cfg.DirectoryHandler.CreateUser)
			adm.Patch("/users/{id}/role", cfg.DirectoryHandler.SetRole)
			adm.Patch("/users/{id}/active", cfg.DirectoryHandler.SetActive)
		})

		if cfg.ChatHandler != nil {
			authed.Route("/api/chat", func(cr chi.Router) {
				cr.Post("/diagnose", cfg.ChatHandler.Diagnose)
				cr.Get("/history", cfg.ChatHandler.History)
				cr.Handle("/ws", cfg.ChatHandler.WebSocket())
			})
		}
	})

	return r
}
