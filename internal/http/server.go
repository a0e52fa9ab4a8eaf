package http

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"trainingclub/internal/core"
	clublog "trainingclub/internal/log"
	"trainingclub/internal/metrics"
	"trainingclub/internal/middleware/ratelimit"
	"trainingclub/internal/middleware/security"
	"trainingclub/internal/middleware/trace"
	"trainingclub/internal/services"
)

// Deps are the collaborators NewServer wires into the router.
type Deps struct {
	Services       *services.Services
	Location       *time.Location
	Auth           *Authenticator
	Metrics        *metrics.Metrics      // optional
	CheckInLimiter *ratelimit.Limiter    // optional
	Detector       *security.Detector    // optional
	Logger         *clublog.Logger       // optional
	AllowedOrigins []string
	Now            func() time.Time // optional, for tests
}

type Server struct {
	http.Server
	svc      *services.Services
	loc      *time.Location
	auth     *Authenticator
	detector *security.Detector
	log      *clublog.StructuredLogger
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer builds the JSON API router and returns a ready-to-run server.
func NewServer(addr string, d Deps) *Server {
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Auth == nil {
		d.Auth = NewAuthenticator("", "")
	}
	if d.Detector == nil {
		d.Detector = security.NewDetector()
	}
	if d.Logger == nil {
		d.Logger = clublog.New(clublog.DefaultConfig())
	}
	if d.Now == nil {
		loc := d.Location
		d.Now = func() time.Time { return time.Now().In(loc) }
	}

	s := &Server{
		svc:      d.Services,
		loc:      d.Location,
		auth:     d.Auth,
		detector: d.Detector,
		log:      clublog.NewStructuredLogger(d.Logger.WithComponent(clublog.ComponentHTTP)),
		now:      d.Now,
	}

	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(chimw.CleanPath)
	r.Use(trace.NewMiddleware(d.Detector.ExtractClientIP, d.Metrics, d.Logger).Middleware)
	r.Use(clublog.Middleware(d.Logger))
	r.Use(clublog.ComponentMiddleware(clublog.ComponentHTTP))
	r.Use(clublog.RequestIDMiddleware(trace.RequestIDFromRequest))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(d.Detector.Middleware)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", trace.HeaderRequestID},
		ExposedHeaders:   []string{trace.HeaderRequestID, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError().Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(d.Auth.Middleware)

		r.With(RequireRole(core.RoleMember)).Get("/me/attendance", s.handleMyAttendance)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(core.RoleTrainer))
			scan := r.With()
			if d.CheckInLimiter != nil {
				scan = r.With(d.CheckInLimiter.Middleware(d.Detector.ExtractClientIP, rateLimited))
			}
			scan.Post("/attendance/scan", s.handleScanCheckIn)
			r.Post("/attendance/manual", s.handleManualCheckIn)
			r.Get("/attendance/calendar", s.handleAttendanceCalendar)
			r.Get("/attendance/day", s.handleAttendanceDay)
			r.Get("/members/{id}/attendance", s.handleMemberAttendance)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(core.RoleAdmin))
			r.Get("/members", s.handleListMembers)
			r.Post("/members", s.handleCreateMember)
			r.Put("/members/role", s.handleAssignRole)
			r.Get("/members/{id}", s.handleGetMember)
			r.Put("/members/{id}", s.handleUpdateMember)
			r.Delete("/members/{id}", s.handleDeleteMember)
			r.Get("/members/{id}/checkin-code", s.handleCheckInCode)

			r.Get("/fees", s.handleFeeGrid)
			r.Post("/fees", s.handleSetFee)

			r.Get("/prices", s.handleListPrices)
			r.Post("/prices", s.handleAddPrice)
			r.Get("/prices/effective", s.handleEffectivePrice)

			r.Get("/payments", s.handlePaymentsReport)
			r.Post("/payments", s.handleCreatePayment)
			r.Delete("/payments/{id}", s.handleDeletePayment)
			r.Get("/balance", s.handleBalance)
			r.Get("/summary", s.handleSummary)
		})
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// recoverer turns a handler panic into a 500 envelope.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				slog.ErrorContext(r.Context(), "Handler panic",
					"component", clublog.ComponentHTTP,
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()))
				InternalServerError("internal error").Write(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	clublog.FromContext(r.Context()).WithComponent(clublog.ComponentRateLimit).
		WarnContext(r.Context(), "Check-in rate limit exceeded", clublog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "too many check-ins, try again later").Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Message("ok").Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.svc.Ping(ctx); err != nil {
		slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
		ErrorResponse(http.StatusServiceUnavailable, "storage unavailable").Write(w)
		return
	}
	NewJSONResponse().Message("ready").Write(w)
}
