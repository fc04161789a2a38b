package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/middleware"
	"github.com/BuzzLyutic/taskflow-api/pkg/respond"
)

// Authenticator guards routes that need an identity.
type Authenticator interface {
	Require(next http.Handler) http.Handler
}

type RouterConfig struct {
	CORSOrigin   string
	MaxBodyBytes int64

	// Per-IP request budgets over RateWindow. Zero disables a limit.
	RateLimit     int
	AuthRateLimit int
	RateWindow    time.Duration
}

type Router struct {
	Config  RouterConfig
	Auth    *AuthHandler
	Tasks   *TaskHandler
	Profile *ProfileHandler
	Gate    Authenticator
	Metrics *middleware.Metrics
	Logger  *zap.Logger
	Now     func() time.Time
}

// Handler builds the HTTP surface.
func (rt Router) Handler() http.Handler {
	now := rt.Now
	if now == nil {
		now = time.Now
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if rt.Metrics != nil {
		r.Use(rt.Metrics.Middleware)
	}
	r.Use(middleware.RequestLogger(rt.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{rt.Config.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, http.StatusNotFound, "Route "+r.URL.RequestURI()+" not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, http.StatusMethodNotAllowed, "Method "+r.Method+" not allowed")
	})

	if rt.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimit(rt.Config.RateLimit, rt.Config.RateWindow, "Too many requests, please try again later."))
		if rt.Config.MaxBodyBytes > 0 {
			r.Use(chimw.RequestSize(rt.Config.MaxBodyBytes))
		}

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			respond.Success(w, r, http.StatusOK, respond.Fields{
				"message":   "TaskFlow API is running",
				"timestamp": now().UTC(),
			})
		})

		r.Route("/auth", func(r chi.Router) {
			r.Use(rateLimit(rt.Config.AuthRateLimit, rt.Config.RateWindow, "Too many login attempts, please try again later."))
			r.Post("/register", rt.Auth.Register)
			r.Post("/login", rt.Auth.Login)
			r.With(rt.Gate.Require).Get("/me", rt.Auth.Me)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Use(rt.Gate.Require)
			r.Get("/", rt.Tasks.List)
			r.Post("/", rt.Tasks.Create)
			r.Delete("/completed", rt.Tasks.DeleteCompleted)
			r.Get("/{id}", rt.Tasks.Get)
			r.Put("/{id}", rt.Tasks.Update)
			r.Patch("/{id}", rt.Tasks.Update)
			r.Delete("/{id}", rt.Tasks.Delete)
			r.Post("/{id}/advance", rt.Tasks.Advance)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Use(rt.Gate.Require)
			r.Get("/", rt.Profile.Get)
			r.Put("/", rt.Profile.Update)
			r.Put("/password", rt.Profile.ChangePassword)
		})
	})

	return r
}

func rateLimit(requests int, window time.Duration, message string) func(http.Handler) http.Handler {
	if requests <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respond.Error(w, r, http.StatusTooManyRequests, message)
		}),
	)
}
