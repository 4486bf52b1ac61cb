package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/availability"
	"github.com/wolfman30/clinic-scheduler/internal/doctors"
	"github.com/wolfman30/clinic-scheduler/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-scheduler/internal/http/middleware"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// Pinger is satisfied by *sql.DB and *pgxpool.Pool wrappers.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	CORSAllowedOrigins []string
	MetricsHandler     http.Handler
	DB                 Pinger

	// Voice assistant webhooks
	RetellWebhooks      *handlers.RetellWebhookHandler
	RetellWebhookSecret string
	WebhookRateLimiter  *httpmiddleware.RateLimiter

	// Admin API
	Auth           httpmiddleware.AuthConfig
	Doctors        *doctors.Handler
	Availability   *availability.Handler
	Appointments   *appointments.Handler
	AdminDashboard *handlers.AdminDashboardHandler
	AdminLive      *handlers.AdminLiveHandler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Public endpoints (webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.DB))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.RetellWebhooks != nil {
			public.Route("/webhooks/retell", func(wh chi.Router) {
				wh.Use(httpmiddleware.AllowMethods(http.MethodPost))
				if cfg.WebhookRateLimiter != nil {
					wh.Use(httpmiddleware.RateLimit(cfg.WebhookRateLimiter))
				}
				wh.Use(httpmiddleware.SharedSecret(httpmiddleware.RetellSecretHeader, cfg.RetellWebhookSecret))
				wh.HandleFunc("/appointment", cfg.RetellWebhooks.HandleAppointment)
				wh.HandleFunc("/cancel", cfg.RetellWebhooks.HandleCancel)
			})
		}
	})

	// Admin routes (JWT protected: Cognito RS256 or HMAC staff tokens)
	if cfg.Auth.Enabled() {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.StaffAuth(cfg.Auth))

			if cfg.AdminLive != nil {
				admin.Get("/live", cfg.AdminLive.Stream)
			}

			admin.Group(func(api chi.Router) {
				api.Use(middleware.Compress(5))

				if cfg.AdminDashboard != nil {
					api.Get("/overview", cfg.AdminDashboard.GetOverview)
				}
				if cfg.Doctors != nil {
					api.Get("/doctors", cfg.Doctors.List)
					api.Post("/doctors", cfg.Doctors.Create)
					api.Route("/doctors/{doctorID}", func(doc chi.Router) {
						doc.Get("/", cfg.Doctors.Get)
						doc.Put("/", cfg.Doctors.Update)
						doc.Delete("/", cfg.Doctors.Delete)
						doc.Post("/toggle-active", cfg.Doctors.ToggleActive)
						if cfg.Availability != nil {
							doc.Get("/rules", cfg.Availability.ListRules)
							doc.Post("/rules", cfg.Availability.CreateRule)
							doc.Get("/exceptions", cfg.Availability.ListExceptions)
							doc.Post("/exceptions", cfg.Availability.CreateException)
							doc.Get("/schedule", cfg.Availability.WeeklySchedule)
						}
						if cfg.Appointments != nil {
							doc.Get("/appointments", cfg.Appointments.Upcoming)
						}
					})
				}
				if cfg.Availability != nil {
					api.Put("/rules/{ruleID}", cfg.Availability.UpdateRule)
					api.Delete("/rules/{ruleID}", cfg.Availability.DeleteRule)
					api.Put("/exceptions/{exceptionID}", cfg.Availability.UpdateException)
					api.Delete("/exceptions/{exceptionID}", cfg.Availability.DeleteException)
				}
				if cfg.Appointments != nil {
					api.Get("/appointments", cfg.Appointments.List)
					api.Post("/appointments", cfg.Appointments.Create)
					api.Put("/appointments/{appointmentID}/status", cfg.Appointments.UpdateStatus)
					api.Delete("/appointments/{appointmentID}", cfg.Appointments.Delete)
				}
			})
		})
	} else if cfg.Logger != nil {
		cfg.Logger.Warn("admin API disabled: no ADMIN_JWT_SECRET or Cognito user pool configured")
	}

	return r
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "degraded", "database": "unreachable"})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": message})
}
