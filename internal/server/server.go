package server

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/auth"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/database"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/feedapi"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/httputil"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/ratelimit"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/validate"
	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/webhook"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	DB            database.DBTX
	Pinger        Pinger
	Storage       feedapi.MediaStorage
	GeoResolver   feedapi.GeoResolver
	WebhookClient *webhook.Client
	JWTSecret     string
	BaseURL       string
	MediaOrigin   string
}

type Server struct {
	router      chi.Router
	pinger      Pinger
	authHandler *auth.Handler
	feedHandler *feedapi.Handler
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(slogMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(SecurityConfig{
		BaseURL:     cfg.BaseURL,
		MediaOrigin: cfg.MediaOrigin,
	}))

	s := &Server{router: r, pinger: cfg.Pinger}

	if cfg.DB != nil {
		if cfg.JWTSecret == "" {
			log.Fatal("JWT_SECRET is required; set the environment variable")
		}

		s.authHandler = auth.NewHandler(cfg.JWTSecret)
		s.feedHandler = feedapi.NewHandler(cfg.DB, cfg.Storage, cfg.JWTSecret)
		if cfg.GeoResolver != nil {
			s.feedHandler.SetGeoResolver(cfg.GeoResolver)
		}
		if cfg.WebhookClient != nil {
			s.feedHandler.SetWebhookClient(cfg.WebhookClient)
		}
	}

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/limits", s.handleLimits)

	if s.feedHandler == nil {
		return
	}

	feedLimiter := ratelimit.NewLimiter(10, 30)
	writeLimiter := ratelimit.NewLimiter(2, 10)

	s.router.Route("/api/reels", func(r chi.Router) {
		r.With(feedLimiter.Middleware).Get("/", s.feedHandler.ListReels)

		r.Route("/{id}", func(r chi.Router) {
			r.With(feedLimiter.Middleware).Get("/comments", s.feedHandler.ListComments)
			r.With(writeLimiter.Middleware).Post("/report", s.feedHandler.Report)
			r.With(writeLimiter.Middleware).Post("/view", s.feedHandler.RecordView)

			r.Group(func(r chi.Router) {
				r.Use(writeLimiter.Middleware)
				r.Use(s.authHandler.Middleware)
				r.Post("/like", s.feedHandler.ToggleLike)
				r.Post("/save", s.feedHandler.Save)
				r.Delete("/save", s.feedHandler.Unsave)
				r.Post("/comments", s.feedHandler.PostComment)
				r.Get("/analytics", s.feedHandler.Analytics)
			})
		})
	})
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

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, validate.FieldLimits())
}
