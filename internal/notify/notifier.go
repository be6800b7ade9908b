package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/medtracker/internal/model"
	"github.com/jwalitptl/medtracker/pkg/messaging"
)

// Notifier delivers a notification to some surface. Delivery is one-way: callers never
// retry.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

type NotifierFunc func(ctx context.Context, n model.Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n model.Notification) error {
	return f(ctx, n)
}

type multi []Notifier

// Multi fans a notification out to every notifier. All are attempted; failures are
// joined.
func Multi(notifiers ...Notifier) Notifier {
	return multi(notifiers)
}

func (m multi) Notify(ctx context.Context, n model.Notification) error {
	var errs []error
	for _, nt := range m {
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(l zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: l}
}

func (l *LogNotifier) Notify(_ context.Context, n model.Notification) error {
	l.log.Info().
		Str("user_id", n.UserID).
		Str("medication_id", n.MedicationID).
		Time("fire_at", n.FireAt).
		Msg(n.Body)
	return nil
}

// WriterNotifier prints notifications as plain lines, for terminals.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (w *WriterNotifier) Notify(_ context.Context, n model.Notification) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintf(w.w, "[%s] %s: %s\n", n.FireAt.Format("Mon 15:04"), n.Title, n.Body)
	return err
}

// BrokerNotifier publishes notifications on a message broker channel.
type BrokerNotifier struct {
	publisher messaging.Publisher
	channel   string
}

func NewBrokerNotifier(p messaging.Publisher, channel string) *BrokerNotifier {
	if channel == "" {
		channel = model.ChannelReminders
	}
	return &BrokerNotifier{publisher: p, channel: channel}
}

func (b *BrokerNotifier) Notify(ctx context.Context, n model.Notification) error {
	if err := b.publisher.Publish(ctx, b.channel, n); err != nil {
		return fmt.Errorf("failed to publish reminder: %w", err)
	}
	return nil
}
