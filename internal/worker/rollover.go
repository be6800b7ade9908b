package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/medtracker/internal/app"
	"github.com/jwalitptl/medtracker/pkg/metrics"
)

const DefaultRolloverSchedule = "0 0 * * *"

// DocumentStore is the document service surface the rollover needs.
type DocumentStore interface {
	DocumentSource
	Save(ctx context.Context, userID, data string) error
}

type RolloverConfig struct {
	Schedule string
	Location *time.Location
}

// RolloverWorker clears every taken flag on a cron schedule so each day starts with
// nothing marked. History is kept.
type RolloverWorker struct {
	docs     DocumentStore
	schedule string
	loc      *time.Location
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

func NewRolloverWorker(docs DocumentStore, cfg RolloverConfig, logger zerolog.Logger, m *metrics.Metrics) (*RolloverWorker, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultRolloverSchedule
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid rollover schedule %q: %w", cfg.Schedule, err)
	}
	return &RolloverWorker{
		docs:     docs,
		schedule: cfg.Schedule,
		loc:      cfg.Location,
		log:      logger.With().Str("component", "rollover_worker").Logger(),
		metrics:  m,
	}, nil
}

// Start runs the rollover on schedule until ctx is done.
func (w *RolloverWorker) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(w.loc))
	if _, err := c.AddFunc(w.schedule, func() {
		n, err := w.RunOnce(ctx)
		if err != nil {
			w.log.Error().Err(err).Msg("Rollover failed")
			return
		}
		w.log.Info().Int("documents", n).Msg("Rollover complete")
	}); err != nil {
		return fmt.Errorf("failed to schedule rollover: %w", err)
	}

	c.Start()
	w.log.Info().Str("schedule", w.schedule).Str("timezone", w.loc.String()).Msg("Rollover worker started")
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// RunOnce resets the taken flags of every user and returns how many documents changed.
// Users whose document cannot be loaded or saved are skipped.
func (w *RolloverWorker) RunOnce(ctx context.Context) (int, error) {
	users, err := w.docs.ListUsers(ctx)
	if err != nil {
		return 0, err
	}

	rolled := 0
	for _, userID := range users {
		changed, err := w.rollover(ctx, userID)
		if err != nil {
			w.log.Error().Err(err).Str("user_id", userID).Msg("Failed to roll over document")
			continue
		}
		if changed {
			rolled++
			w.metrics.DocumentRolled()
		}
	}
	return rolled, nil
}

func (w *RolloverWorker) rollover(ctx context.Context, userID string) (bool, error) {
	doc, err := w.docs.LoadDocument(ctx, userID)
	if err != nil {
		return false, err
	}
	st := app.FromDocument(doc)
	if !st.AnyTaken() {
		return false, nil
	}

	data, err := st.ResetTaken().Document().Encode()
	if err != nil {
		return false, err
	}
	if err := w.docs.Save(ctx, userID, data); err != nil {
		return false, err
	}
	return true, nil
}
