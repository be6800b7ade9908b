// Package worker runs the server-side background jobs: per-user reminder schedulers kept
// in sync with saved documents, and the daily rollover of taken flags.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/medtracker/internal/clock"
	"github.com/jwalitptl/medtracker/internal/model"
	"github.com/jwalitptl/medtracker/internal/notify"
	"github.com/jwalitptl/medtracker/pkg/messaging"
	"github.com/jwalitptl/medtracker/pkg/metrics"
)

// DocumentSource is the read side of the document service.
type DocumentSource interface {
	LoadDocument(ctx context.Context, userID string) (model.Document, error)
	ListUsers(ctx context.Context) ([]string, error)
}

// ReminderWorker keeps one notify.Scheduler per user. Schedulers are built from every
// stored document at start and refreshed whenever a save event arrives.
type ReminderWorker struct {
	docs       DocumentSource
	broker     messaging.Broker
	notifier   notify.Notifier
	permission model.Permission
	clock      clock.Clock
	log        zerolog.Logger
	metrics    *metrics.Metrics

	mu         sync.Mutex
	schedulers map[string]*notify.Scheduler
}

type ReminderConfig struct {
	Permission model.Permission
	Clock      clock.Clock
}

func NewReminderWorker(
	docs DocumentSource,
	broker messaging.Broker,
	notifier notify.Notifier,
	cfg ReminderConfig,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *ReminderWorker {
	c := cfg.Clock
	if c == nil {
		c = clock.Real()
	}
	return &ReminderWorker{
		docs:       docs,
		broker:     broker,
		notifier:   notifier,
		permission: cfg.Permission,
		clock:      c,
		log:        logger.With().Str("component", "reminder_worker").Logger(),
		metrics:    m,
		schedulers: make(map[string]*notify.Scheduler),
	}
}

// Start subscribes to save events, builds schedulers for every known user and then
// refreshes them until ctx is done. It stops every scheduler before returning.
func (w *ReminderWorker) Start(ctx context.Context) error {
	events, err := w.broker.Subscribe(ctx, model.ChannelDocumentSaved)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", model.ChannelDocumentSaved, err)
	}
	defer w.Stop()

	if err := w.Bootstrap(ctx); err != nil {
		w.log.Error().Err(err).Msg("Failed to bootstrap reminder schedulers")
	}

	w.log.Info().Str("permission", string(w.permission)).Msg("Reminder worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutting down reminder worker")
			return nil
		case msg, ok := <-events:
			if !ok {
				return nil
			}
			w.handle(ctx, msg)
		}
	}
}

func (w *ReminderWorker) handle(ctx context.Context, msg []byte) {
	var event model.DocumentSavedEvent
	if err := json.Unmarshal(msg, &event); err != nil || event.UserID == "" {
		w.log.Warn().Err(err).Msg("Ignoring malformed save event")
		return
	}
	if err := w.Refresh(ctx, event.UserID); err != nil {
		w.log.Error().Err(err).Str("user_id", event.UserID).Msg("Failed to refresh reminders")
	}
}

// Bootstrap refreshes the scheduler of every user in the store. One user's failure does
// not stop the others.
func (w *ReminderWorker) Bootstrap(ctx context.Context) error {
	users, err := w.docs.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, userID := range users {
		if err := w.Refresh(ctx, userID); err != nil {
			w.log.Error().Err(err).Str("user_id", userID).Msg("Failed to refresh reminders")
		}
	}
	w.log.Info().Int("users", len(users)).Msg("Reminder schedulers bootstrapped")
	return nil
}

// Refresh reloads a user's document and re-derives their reminder timers.
func (w *ReminderWorker) Refresh(ctx context.Context, userID string) error {
	doc, err := w.docs.LoadDocument(ctx, userID)
	if err != nil {
		return err
	}
	w.scheduler(userID).Sync(doc.Medications, w.permission)
	return nil
}

func (w *ReminderWorker) scheduler(userID string) *notify.Scheduler {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.schedulers[userID]
	if !ok {
		s = notify.NewScheduler(w.notifier,
			notify.WithOwner(userID),
			notify.WithClock(w.clock),
			notify.WithLogger(w.log.With().Str("user_id", userID).Logger()),
			notify.WithMetrics(w.metrics),
		)
		w.schedulers[userID] = s
	}
	return s
}

// Pending lists the armed reminders of a user.
func (w *ReminderWorker) Pending(userID string) []notify.Pending {
	w.mu.Lock()
	s, ok := w.schedulers[userID]
	w.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Pending()
}

// Stop cancels every armed reminder.
func (w *ReminderWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for userID, s := range w.schedulers {
		s.Stop()
		delete(w.schedulers, userID)
	}
}
