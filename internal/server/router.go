// Package server assembles the chi router: global middleware, CORS, the
// health endpoints and the /api/v1 route tree.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ayush/task-manager/backend/internal/auth"
	"github.com/ayush/task-manager/backend/internal/httpx"
	"github.com/ayush/task-manager/backend/internal/middleware"
	"github.com/ayush/task-manager/backend/internal/tasks"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the handlers and collaborators the router wires together.
type Deps struct {
	Auth      *auth.Handler
	Tasks     *tasks.Handler
	Verifier  middleware.TokenVerifier
	Store     Pinger
	ClientURL string
	Log       *slog.Logger
}

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
	"http://localhost:5173",
	"http://127.0.0.1:5173",
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  originPolicy(d.ClientURL, log),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "Accept"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("API is running..."))
	})
	r.Get("/health", health(d.Store, log))

	requireAuth := middleware.RequireAuth(d.Verifier)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", d.Auth.Register)
			r.Post("/login", d.Auth.Login)
			r.With(requireAuth).Get("/me", d.Auth.Me)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", d.Tasks.List)
			r.Post("/", d.Tasks.Create)
			r.Put("/{id}", d.Tasks.Update)
			r.Delete("/{id}", d.Tasks.Delete)
		})
	})

	return r
}

func health(store Pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				log.WarnContext(ctx, "health check: store unreachable", "error", err)
				httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// originPolicy allows the local dev frontends and the configured client URL,
// plus any Vercel deployment or explicit localhost port.
func originPolicy(clientURL string, log *slog.Logger) func(*http.Request, string) bool {
	allowed := make(map[string]bool, len(defaultOrigins)+1)
	for _, o := range defaultOrigins {
		allowed[o] = true
	}
	if clientURL != "" {
		allowed[strings.TrimRight(clientURL, "/")] = true
	}

	return func(r *http.Request, origin string) bool {
		if allowed[origin] || isVercel(origin) || isLocalhost(origin) {
			return true
		}
		log.WarnContext(r.Context(), "CORS blocked origin", "origin", origin)
		return false
	}
}

func isVercel(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.HasSuffix(u.Hostname(), ".vercel.app")
}

func isLocalhost(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme != "http" || u.Path != "" || u.Port() == "" {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}
