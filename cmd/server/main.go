package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dialforge/campaign-api/internal/api"
	"github.com/dialforge/campaign-api/internal/auth"
	"github.com/dialforge/campaign-api/internal/cache"
	"github.com/dialforge/campaign-api/internal/config"
	"github.com/dialforge/campaign-api/internal/metrics"
	"github.com/dialforge/campaign-api/internal/storage"
	"github.com/dialforge/campaign-api/pkg/middleware"
)

const catalogCacheTTL = 5 * time.Minute

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Dur("session_window", cfg.SessionWindow).
		Str("log_level", cfg.LogLevel).
		Msg("starting campaign API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect storage
	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer store.Close()

	catalogCache := cache.NewCatalogCache(catalogCacheTTL)

	// Create handlers
	authHandler := api.NewAuthHandler(store, cfg.JWTSecret, cfg.TokenExpiry, log.Logger)
	campaignHandler := api.NewCampaignHandler(store, log.Logger)
	dashboardHandler := api.NewDashboardHandler(store, log.Logger)
	statsHandler := api.NewStatsHandler(store, cfg.SessionWindow, log.Logger)
	lookupHandler := api.NewLookupHandler(store, cfg.SessionWindow, log.Logger)
	exportHandler := api.NewExportHandler(store, log.Logger)
	catalogHandler := api.NewCatalogHandler(store, catalogCache, log.Logger)
	recordingsHandler := api.NewRecordingsHandler(cfg.RecordingServerURL, log.Logger)

	// Create router
	r := chi.NewRouter()

	// Add middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Public routes
	r.Get("/health", healthHandler)

	// Internal routes (no auth - scrape target for monitoring)
	r.Get("/internal/metrics", metrics.Get().Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(cfg.JWTSecret))

			r.Get("/campaigns", campaignHandler.List)
			r.Get("/categories", catalogHandler.ListCategories)
			r.Get("/voices", catalogHandler.ListVoices)
			r.Get("/voices/{voiceID}", catalogHandler.GetVoice)
			r.Get("/recordings/{recordingID}", recordingsHandler.Get)

			r.Route("/campaigns/{campaignID}", func(r chi.Router) {
				r.Get("/dashboard", dashboardHandler.ClientDashboard)
				r.Get("/transfer-metrics", statsHandler.TransferMetrics)
				r.Get("/category-timeseries", statsHandler.CategoryTimeseries)
				r.Post("/call-lookup", lookupHandler.Lookup)
				r.Get("/export", exportHandler.Export)

				// Staff-only views
				r.Group(func(r chi.Router) {
					r.Use(auth.RequireRoles("admin", "onboarding", "qa"))
					r.Get("/dashboard/admin", dashboardHandler.AdminDashboard)
				})
			})

			// Staff-only aggregate views and catalog writes
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRoles("admin", "onboarding", "qa"))
				r.Get("/stats/campaigns", statsHandler.AllCampaignsTransferStats)
				r.Get("/stats/voices", statsHandler.OverallVoiceStats)
			})
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRoles("admin"))
				r.Post("/voices", catalogHandler.CreateVoices)
				r.Delete("/voices", catalogHandler.DeleteVoices)
			})
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // exports can be slow on large campaigns
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
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
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"campaign-api"}`)
}
