package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/medtracker/config"
	"github.com/jwalitptl/medtracker/internal/bootstrap"
	documentHandler "github.com/jwalitptl/medtracker/internal/handler/document"
	extractionHandler "github.com/jwalitptl/medtracker/internal/handler/extraction"
	"github.com/jwalitptl/medtracker/internal/handler/health"
	progressHandler "github.com/jwalitptl/medtracker/internal/handler/progress"
	promHandler "github.com/jwalitptl/medtracker/internal/handler/prometheus"
	"github.com/jwalitptl/medtracker/internal/router"
	documentService "github.com/jwalitptl/medtracker/internal/service/document"
	extractionService "github.com/jwalitptl/medtracker/internal/service/extraction"
	progressService "github.com/jwalitptl/medtracker/internal/service/progress"
	"github.com/jwalitptl/medtracker/pkg/logger"
	"github.com/jwalitptl/medtracker/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(os.Getenv("MEDTRACKER_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.Init(cfg.Log.ToLoggerConfig())
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var m *metrics.Metrics
	var httpMetrics *promHandler.Handler
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics(cfg.Metrics.Namespace, reg)
		httpMetrics = promHandler.New(cfg.Metrics.Namespace, reg)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	// Store and broker
	infra, err := bootstrap.Open(startCtx, cfg, m, appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open document store")
	}
	defer infra.Close()

	// Extraction is optional; without a key every extract request fails on its own.
	var extractor extractionService.Extractor
	if cfg.Extraction.APIKey != "" {
		gemini, err := extractionService.NewGeminiExtractor(startCtx, cfg.Extraction.APIKey, cfg.Extraction.Model, m)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create extraction client")
		}
		extractor = gemini
	} else {
		log.Warn().Msg("GEMINI_API_KEY is not set; prescription extraction is disabled")
	}

	// Initialize services
	documentSvc := documentService.NewService(infra.Store, infra.Broker, m, appLogger)
	extractionSvc := extractionService.NewService(extractor, appLogger)
	progressSvc := progressService.NewService(documentSvc)

	// Setup router
	r := router.NewRouter(
		cfg.ToRouterConfig(),
		httpMetrics,
		health.NewHandler(documentSvc),
		documentHandler.NewHandler(documentSvc),
		extractionHandler.NewHandler(extractionSvc, cfg.Server.MaxUploadSize),
		progressHandler.NewHandler(progressSvc),
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("store", cfg.Store.Backend).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
