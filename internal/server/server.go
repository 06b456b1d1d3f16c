// Package server assembles the HTTP surface: routing, security headers,
// request logging, and rate limits around the user, annotation, and
// suggestion handlers.
package server

import (
	"context"
	"log"
	"net/http"

	"github.com/framenote/framenote/internal/annotation"
	"github.com/framenote/framenote/internal/database"
	"github.com/framenote/framenote/internal/geoip"
	"github.com/framenote/framenote/internal/ratelimit"
	"github.com/framenote/framenote/internal/suggest"
	"github.com/framenote/framenote/internal/user"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	DB        database.DBTX
	Pinger    Pinger
	Storage   annotation.ObjectStorage
	JWTSecret string
	BaseURL   string
	Suggester suggest.Generator
	GeoIP     *geoip.Resolver
}

type Server struct {
	router            chi.Router
	pinger            Pinger
	userHandler       *user.Handler
	annotationHandler *annotation.Handler
	suggestHandler    *suggest.Handler
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(cfg.GeoIP))
	r.Use(securityHeaders(SecurityConfig{BaseURL: cfg.BaseURL}))

	s := &Server{router: r, pinger: cfg.Pinger}

	if cfg.DB != nil {
		jwtSecret := cfg.JWTSecret
		if jwtSecret == "" {
			log.Fatal("JWT_SECRET is required; set the environment variable")
		}

		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:8080"
		}

		s.userHandler = user.NewHandler(cfg.DB, jwtSecret)
		s.annotationHandler = annotation.NewHandler(cfg.DB, cfg.Storage, baseURL)
	}
	s.suggestHandler = suggest.NewHandler(cfg.Suggester)

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)

	if s.userHandler != nil {
		onboardLimiter := ratelimit.NewLimiter(0.5, 5)
		s.router.Route("/api/users", func(r chi.Router) {
			r.Use(onboardLimiter.Middleware)
			r.Post("/", s.userHandler.Create)
			r.Get("/{id}", s.userHandler.Get)
		})
	}

	if s.annotationHandler != nil {
		annotationLimiter := ratelimit.NewLimiter(5, 20)
		s.router.Route("/api/annotations", func(r chi.Router) {
			r.Use(annotationLimiter.Middleware)
			r.Get("/video/{videoId}", s.annotationHandler.ListByVideo)
			r.Delete("/video/{videoId}", s.annotationHandler.DeleteByVideo)
			r.Get("/video/{videoId}/export", s.annotationHandler.Export)
			r.Post("/", s.annotationHandler.Create)
			r.Patch("/{id}", s.annotationHandler.Update)
			r.Delete("/{id}", s.annotationHandler.Delete)
			r.Post("/import", s.annotationHandler.Import)

			r.Group(func(r chi.Router) {
				r.Use(s.userHandler.RequireSession)
				r.Post("/video/{videoId}/archive", s.annotationHandler.CreateArchive)
			})
		})
		s.router.Get("/api/archives/{token}", s.annotationHandler.GetArchive)
	}

	suggestLimiter := ratelimit.NewLimiter(0.2, 3)
	s.router.With(suggestLimiter.Middleware).Post("/api/suggestions", s.suggestHandler.Suggest)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","error":"database unreachable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
