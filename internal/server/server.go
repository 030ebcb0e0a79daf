// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"geotrend/internal/config"
	"geotrend/internal/domain/article"
	"geotrend/internal/server/handlers"
)

// TrendingService is what the HTTP layer needs from the trending engine
type TrendingService interface {
	handlers.TrendingService
	handlers.Ingestor
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server; articles may be nil when no document store is configured
func NewServer(
	cfg config.ServerConfig,
	trendingCfg config.TrendingConfig,
	trending TrendingService,
	articles article.Finder,
	hub *handlers.TrendingHub,
) *Server {
	router := NewRouter(cfg, trendingCfg, trending, articles, hub)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// NewRouter builds the route tree
func NewRouter(
	cfg config.ServerConfig,
	trendingCfg config.TrendingConfig,
	trending TrendingService,
	articles article.Finder,
	hub *handlers.TrendingHub,
) *chi.Mux {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CorsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	trendingHandler := handlers.NewTrendingHandler(trending, articles, handlers.TrendingConfig{
		DefaultRadius: trendingCfg.DefaultRadius,
		MaxRadius:     trendingCfg.MaxRadius,
		DefaultLimit:  trendingCfg.DefaultLimit,
		MaxLimit:      trendingCfg.MaxLimit,
	})
	eventHandler := handlers.NewEventHandler(trending)

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Route("/v1", func(r chi.Router) {
			r.Route("/trending", func(r chi.Router) {
				r.Get("/nearby", trendingHandler.GetNearby)
				r.Get("/grid", trendingHandler.GetGrid)
			})

			r.Post("/events", eventHandler.PostEvent)
		})
	})

	router.Handle("/metrics", promhttp.Handler())

	if hub != nil {
		router.Get("/ws/trending", hub.ServeHTTP)
	}

	return router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
