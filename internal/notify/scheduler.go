// Package notify arms reminder timers for a medication list and emits notifications when
// they fire.
package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/medtracker/internal/clock"
	"github.com/jwalitptl/medtracker/internal/model"
	"github.com/jwalitptl/medtracker/internal/schedule"
	"github.com/jwalitptl/medtracker/pkg/metrics"
)

const defaultNotifyTimeout = 30 * time.Second

// Pending describes one armed reminder.
type Pending struct {
	MedicationID string    `json:"medicationId"`
	FireAt       time.Time `json:"fireAt"`
}

type task struct {
	fireAt time.Time
	timer  clock.Timer
}

// Scheduler owns the reminder timers of one user. Every Sync cancels all outstanding
// timers and re-derives them from the medication list; a fired timer re-arms the next
// occurrence of the same medication.
type Scheduler struct {
	owner         string
	clock         clock.Clock
	notifier      Notifier
	log           zerolog.Logger
	metrics       *metrics.Metrics
	notifyTimeout time.Duration

	mu    sync.Mutex
	gen   uint64
	meds  map[string]model.Medication
	tasks map[string]*task
}

type Option func(*Scheduler)

// WithOwner tags emitted notifications with a user id.
func WithOwner(userID string) Option {
	return func(s *Scheduler) { s.owner = userID }
}

func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func NewScheduler(n Notifier, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:         clock.Real(),
		notifier:      n,
		log:           zerolog.Nop(),
		notifyTimeout: defaultNotifyTimeout,
		meds:          make(map[string]model.Medication),
		tasks:         make(map[string]*task),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync replaces every armed timer with the schedule derived from meds. Nothing is armed
// unless perm is granted.
func (s *Scheduler) Sync(meds []model.Medication, perm model.Permission) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelAll()
	s.gen++
	s.meds = make(map[string]model.Medication, len(meds))

	if perm != model.PermissionGranted {
		return
	}

	now := s.clock.Now()
	for _, med := range meds {
		if !med.HasReminder() {
			continue
		}
		med.Reminder = med.Reminder.Clone()
		s.meds[med.ID] = med
		s.arm(med, now)
	}
}

// Stop cancels every armed timer.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelAll()
	s.gen++
	s.meds = make(map[string]model.Medication)
}

// Pending lists armed reminders, soonest first.
func (s *Scheduler) Pending() []Pending {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Pending, 0, len(s.tasks))
	for id, t := range s.tasks {
		out = append(out, Pending{MedicationID: id, FireAt: t.fireAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].MedicationID < out[j].MedicationID
		}
		return out[i].FireAt.Before(out[j].FireAt)
	})
	return out
}

// arm must be called with s.mu held.
func (s *Scheduler) arm(med model.Medication, now time.Time) {
	next, ok := schedule.NextFireTime(*med.Reminder, now)
	if !ok {
		return
	}
	delay := next.Sub(now)
	if delay <= 0 {
		return
	}

	id, gen := med.ID, s.gen
	timer := s.clock.AfterFunc(delay, func() { s.fire(id, gen, next) })
	s.tasks[id] = &task{fireAt: next, timer: timer}
	s.metrics.AddArmed(1)

	s.log.Debug().
		Str("user_id", s.owner).
		Str("medication_id", id).
		Time("fire_at", next).
		Msg("reminder armed")
}

func (s *Scheduler) fire(id string, gen uint64, at time.Time) {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if gen != s.gen || !ok || !t.fireAt.Equal(at) {
		s.mu.Unlock()
		return
	}
	delete(s.tasks, id)
	s.metrics.AddArmed(-1)

	med := s.meds[id]
	now := s.clock.Now()
	if now.Before(at) {
		now = at
	}
	s.arm(med, now)
	s.mu.Unlock()

	n := model.Notification{
		UserID:       s.owner,
		MedicationID: med.ID,
		Title:        model.NotificationTitle,
		Body:         Body(med),
		FireAt:       at,
	}
	s.metrics.ReminderFired()

	ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.metrics.NotifyFailed(fmt.Sprintf("%T", s.notifier))
		s.log.Warn().
			Err(err).
			Str("user_id", s.owner).
			Str("medication_id", med.ID).
			Msg("failed to deliver reminder")
	}
}

// cancelAll must be called with s.mu held.
func (s *Scheduler) cancelAll() {
	for id, t := range s.tasks {
		t.timer.Stop()
		delete(s.tasks, id)
		s.metrics.AddArmed(-1)
	}
}

// Body is the notification text for a medication.
func Body(med model.Medication) string {
	if med.Dosage == "" {
		return fmt.Sprintf("Time to take your %s.", med.Name)
	}
	return fmt.Sprintf("Time to take your %s (%s).", med.Name, med.Dosage)
}
