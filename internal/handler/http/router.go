package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

// Pinger reports database reachability for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	Attendance AttendanceHandler
	Punch      PunchHandler
	Shift      ShiftHandler
}

func NewRouter(logger *slog.Logger, JWTService jwt.Service, db Pinger, handlers Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", healthz(db))

	r.Route("/api/v1", func(r chi.Router) {
		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			r.Get("/attendance", handlers.Attendance.List)
			r.Get("/punches", handlers.Punch.List)
			r.Get("/shifts/{id}/validate", handlers.Shift.Validate)

			// Owner or manager only
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireOperator)
				r.Route("/attendance/runs", func(r chi.Router) {
					r.Post("/live", handlers.Attendance.RunLive)
					r.Post("/backfill", handlers.Attendance.RunBackfill)
					r.Post("/date", handlers.Attendance.RunDate)
				})
				r.Post("/punches/pull", handlers.Punch.Pull)
			})
		})
	})
	return r
}

func healthz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			slog.Error("Health check failed", "error", err)
			response.InternalServerError(w, "database unreachable")
			return
		}
		response.Success(w, map[string]string{"status": "ok"})
	}
}

// NewLogger builds the ECS-formatted JSON logger used for requests and
// application logs.
func NewLogger(env string, level slog.Level, w io.Writer) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(env != "production")
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "hris-attendance-engine"),
		slog.String("env", env),
	)
}
