// Package router assembles the HTTP surface: public booking routes,
// the JWT-protected admin surface, and operational endpoints.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tipulhub/tipul-server/internal/booking"
	httpmiddleware "github.com/tipulhub/tipul-server/internal/http/middleware"
	"github.com/tipulhub/tipul-server/internal/payments"
	"github.com/tipulhub/tipul-server/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	BookingHandler  *booking.Handler
	PaymentsHandler *payments.Handler

	AdminJWTSecret     string
	CORSAllowedOrigins []string
	MetricsHandler     http.Handler

	// BookingRateLimit throttles the unauthenticated booking routes,
	// requests per second per client IP. Zero disables the limiter.
	BookingRateLimit float64
	BookingRateBurst int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

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

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Public booking routes. These carry no auth beyond the
	// confirmation-code handshake, so they get a rate limiter.
	if cfg.BookingHandler != nil {
		r.Route("/booking", func(pub chi.Router) {
			if cfg.BookingRateLimit > 0 {
				pub.Use(httpmiddleware.RateLimit(cfg.BookingRateLimit, cfg.BookingRateBurst))
			}
			pub.Get("/slots", cfg.BookingHandler.Slots)
			pub.Post("/appointments", cfg.BookingHandler.Create)
			pub.Route("/appointments/{code}", func(appt chi.Router) {
				appt.Post("/authenticate", cfg.BookingHandler.Authenticate)
				appt.Post("/reschedule", cfg.BookingHandler.Reschedule)
				appt.Post("/cancel", cfg.BookingHandler.Cancel)
				appt.Post("/resend", cfg.BookingHandler.Resend)
				appt.Get("/calendar.ics", cfg.BookingHandler.Calendar)
			})
		})
	}

	// Therapist-side routes, protected by the admin JWT. The token
	// subject scopes every handler to one therapist.
	if cfg.AdminJWTSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminJWTSecret))
			if cfg.BookingHandler != nil {
				admin.Post("/appointments", cfg.BookingHandler.AdminCreate)
				admin.Post("/appointments/{code}/complete", cfg.BookingHandler.AdminComplete)
				admin.Get("/practice/profile", cfg.BookingHandler.AdminGetProfile)
				admin.Put("/practice/profile", cfg.BookingHandler.AdminSetProfile)
			}
			if cfg.PaymentsHandler != nil {
				admin.Post("/payments/charge", cfg.PaymentsHandler.Charge)
				admin.Get("/payments/{id}/status", cfg.PaymentsHandler.Status)
				admin.Post("/payments/{id}/refund", cfg.PaymentsHandler.Refund)
				admin.Get("/payments/{id}/refunds", cfg.PaymentsHandler.Refunds)
			}
		})
	}

	return r
}
