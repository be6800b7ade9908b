package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/medtracker/config"
	"github.com/jwalitptl/medtracker/internal/bootstrap"
	"github.com/jwalitptl/medtracker/internal/handler/health"
	promHandler "github.com/jwalitptl/medtracker/internal/handler/prometheus"
	"github.com/jwalitptl/medtracker/internal/model"
	"github.com/jwalitptl/medtracker/internal/notify"
	"github.com/jwalitptl/medtracker/internal/router"
	documentService "github.com/jwalitptl/medtracker/internal/service/document"
	"github.com/jwalitptl/medtracker/internal/worker"
	"github.com/jwalitptl/medtracker/pkg/logger"
	"github.com/jwalitptl/medtracker/pkg/messaging"
	"github.com/jwalitptl/medtracker/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("MEDTRACKER_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	appLogger := logger.Init(cfg.Log.ToLoggerConfig()).With().Str("service", "worker").Logger()
	gin.SetMode(gin.ReleaseMode)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(cfg.Metrics.Namespace, reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	infra, err := bootstrap.Open(ctx, cfg, m, appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open document store")
	}
	defer infra.Close()
	if !infra.Shared {
		appLogger.Warn().Msg("No Redis configured; save events from the API will not reach this worker")
	}

	docs := documentService.NewService(infra.Store, infra.Broker, m, appLogger)

	notifier, err := buildNotifier(cfg, infra.Broker, appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure notifiers")
	}
	permission, ok := model.ParsePermission(cfg.Worker.Permission)
	if !ok {
		log.Fatal().Str("permission", cfg.Worker.Permission).Msg("Invalid worker permission")
	}

	reminders := worker.NewReminderWorker(docs, infra.Broker, notifier, worker.ReminderConfig{Permission: permission}, appLogger, m)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := reminders.Start(ctx); err != nil {
			appLogger.Error().Err(err).Msg("Reminder worker stopped")
			cancel()
		}
	}()

	if cfg.Worker.Rollover.Enabled {
		loc, err := time.LoadLocation(cfg.Worker.Rollover.Timezone)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid rollover timezone")
		}
		rollover, err := worker.NewRolloverWorker(docs, worker.RolloverConfig{
			Schedule: cfg.Worker.Rollover.Schedule,
			Location: loc,
		}, appLogger, m)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create rollover worker")
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rollover.Start(ctx); err != nil {
				appLogger.Error().Err(err).Msg("Rollover worker stopped")
			}
		}()
	}

	// Health and metrics endpoints
	r := router.NewRouter(router.DefaultRouterConfig(), promHandler.New(cfg.Metrics.Namespace, reg), health.NewHandler(docs))
	r.Setup()
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Worker.MetricsPort),
		Handler: r.Engine(),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error().Err(err).Msg("Health check server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-ctx.Done():
	}
	appLogger.Info().Msg("Shutting down...")
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

func buildNotifier(cfg *config.Config, publisher messaging.Publisher, l zerolog.Logger) (notify.Notifier, error) {
	var notifiers []notify.Notifier
	for _, name := range cfg.Worker.Notifiers {
		switch name {
		case "log":
			notifiers = append(notifiers, notify.NewLogNotifier(l))
		case "broker":
			notifiers = append(notifiers, notify.NewBrokerNotifier(publisher, model.ChannelReminders))
		case "email":
			email, err := notify.NewEmailNotifier(cfg.Worker.Email.ToNotifierConfig())
			if err != nil {
				return nil, err
			}
			notifiers = append(notifiers, email)
		default:
			return nil, fmt.Errorf("unknown notifier %q", name)
		}
	}
	if len(notifiers) == 0 {
		l.Warn().Msg("No notifiers configured; reminders will fire silently")
	}
	return notify.Multi(notifiers...), nil
}
