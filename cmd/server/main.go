package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dennisdiepolder/activations/backend/internal/api"
	"github.com/dennisdiepolder/activations/backend/internal/cache"
	"github.com/dennisdiepolder/activations/backend/internal/config"
	"github.com/dennisdiepolder/activations/backend/internal/dashboard"
	"github.com/dennisdiepolder/activations/backend/internal/metrics"
	"github.com/dennisdiepolder/activations/backend/internal/storage"
	"github.com/dennisdiepolder/activations/backend/internal/ticker"
	"github.com/dennisdiepolder/activations/backend/internal/upstream"
	"github.com/dennisdiepolder/activations/backend/internal/websocket"
	"github.com/dennisdiepolder/activations/backend/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("upstream_mode", cfg.UpstreamMode).
		Dur("cache_ttl", cfg.CacheTTL).
		Dur("refresh_interval", cfg.RefreshInterval).
		Msg("starting activations backend server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source, err := upstream.New(ctx, cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create upstream source")
	}

	store, err := storage.NewStore(ctx, cfg.CacheTTL, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create cache store")
	}

	cached := cache.NewCachedSource(source, cfg.CacheTTL, log.Logger,
		cache.WithStore(store),
		cache.WithFetchTimeout(cfg.FetchTimeout),
	)
	service := dashboard.NewService(cached, log.Logger)

	hub := websocket.NewHub(log.Logger)
	go hub.Run(ctx)

	refresher := ticker.NewRefresher(service, hub, cfg.RefreshInterval, log.Logger)
	go refresher.Start(ctx)

	r := newRouter(cfg,
		api.NewDashboardHandler(service, log.Logger),
		websocket.NewHandler(hub, service, cfg, log.Logger),
		log.Logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Stops the hub and the refresher
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// newRouter mounts middleware and routes
func newRouter(cfg *config.Config, dash *api.DashboardHandler, ws http.Handler, logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Get().Middleware)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/health", healthHandler)
	r.Get("/metrics", metrics.Get().Handler())
	r.Get("/ws", ws.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/sheets", dash.GetSheets)
		r.Get("/dashboard", dash.GetDashboard)
		r.Post("/reload", dash.Reload)

		if cfg.SimURL != "" {
			admin := api.NewAdminHandler(cfg.SimURL, logger)
			r.Route("/admin/sim", func(r chi.Router) {
				r.Get("/status", admin.GetSimStatus)
				r.Post("/reseed", admin.ReseedSim)
			})
		}
	})

	return r
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"activations-backend"}`)
}
