// Package api собирает HTTP-сервер: роутер chi, middleware и маршруты.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/orbit-points/internal/api/httpx"
	"serotonyl.ru/orbit-points/internal/api/middleware"
	"serotonyl.ru/orbit-points/internal/features/admin"
	"serotonyl.ru/orbit-points/internal/features/members"
	"serotonyl.ru/orbit-points/internal/features/rewards"
	"serotonyl.ru/orbit-points/internal/features/summary"
	"serotonyl.ru/orbit-points/internal/features/thankyou"
)

// Handlers — всё, что нужно роутеру.
type Handlers struct {
	Directory *members.Directory
	Limiter   *middleware.RateLimiter
	AdminAuth *admin.Auth

	Rewards  *rewards.Handler
	ThankYou *thankyou.Handler
	Summary  *summary.Handler
	Members  *members.Handler
	Admin    *admin.Handler

	// Health проверяет хранилище (ping БД). nil — всегда ok.
	Health func(ctx context.Context) error
}

// CallerID достаёт id пользователя, выставленный middleware.Identity.
func CallerID(r *http.Request) (int64, bool) {
	return middleware.UserID(r.Context())
}

// NewRouter создаёт роутер со всеми маршрутами.
func NewRouter(h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", health(h.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/admin", func(r chi.Router) {
			r.Use(h.AdminAuth.Middleware)
			r.Post("/awards", h.Admin.Award)
			r.Post("/decay/run", h.Admin.RunDecay)
			r.Put("/members/{id}", h.Members.Register)
			r.Delete("/cache/users", h.Members.PurgeCache)
			r.Delete("/cache/users/{id}", h.Members.EvictUser)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Identity(h.Directory))
			if h.Limiter != nil {
				r.Use(h.Limiter.Middleware)
			}
			r.Get("/rewards/config", h.Rewards.Config)
			r.Post("/actions/{action}", h.Rewards.Track)
			r.Get("/points/summary", h.Summary.Summary)
			r.Get("/points/credibility", h.Rewards.Credibility)
			r.Post("/thank-you", h.ThankYou.Send)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusNotFound, httpx.ErrorResponse{Error: "not found"})
	})
	return r
}

func health(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				log.WithError(err).Warn("Health-check не прошёл")
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Server — HTTP-сервер с graceful shutdown.
type Server struct {
	srv *http.Server
}

func NewServer(addr string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}}
}

// Start блокируется до остановки сервера.
func (s *Server) Start() error {
	log.WithField("addr", s.srv.Addr).Info("HTTP-сервер запущен")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ошибка HTTP-сервера: %w", err)
	}
	return nil
}

// Shutdown дожидается завершения активных запросов.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
