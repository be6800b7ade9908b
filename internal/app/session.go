package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/medtracker/internal/clock"
	"github.com/jwalitptl/medtracker/internal/model"
	"github.com/jwalitptl/medtracker/internal/notify"
)

const defaultSaveTimeout = 15 * time.Second

// Gateway loads and saves the opaque user document.
type Gateway interface {
	Load(ctx context.Context, userID string) (*string, error)
	Save(ctx context.Context, userID, data string) error
}

// Session owns one user's state. Every applied command re-syncs the reminder scheduler
// and schedules a debounced save; nothing is saved until the initial load succeeded.
type Session struct {
	userID      string
	gateway     Gateway
	clock       clock.Clock
	scheduler   *notify.Scheduler
	log         zerolog.Logger
	saveDelay   time.Duration
	saveTimeout time.Duration
	saver       *Debouncer

	mu         sync.Mutex
	state      State
	loaded     bool
	permission model.Permission
	err        error
}

type SessionOption func(*Session)

func WithSessionClock(c clock.Clock) SessionOption {
	return func(s *Session) { s.clock = c }
}

// WithScheduler attaches a reminder scheduler kept in sync with the medication list.
func WithScheduler(sch *notify.Scheduler) SessionOption {
	return func(s *Session) { s.scheduler = sch }
}

func WithSessionLogger(l zerolog.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

// WithPermission sets the initial notification permission.
func WithPermission(p model.Permission) SessionOption {
	return func(s *Session) { s.permission = p }
}

func WithSaveDelay(d time.Duration) SessionOption {
	return func(s *Session) { s.saveDelay = d }
}

func NewSession(userID string, gw Gateway, opts ...SessionOption) *Session {
	s := &Session{
		userID:      userID,
		gateway:     gw,
		clock:       clock.Real(),
		log:         zerolog.Nop(),
		saveDelay:   DefaultSaveDelay,
		saveTimeout: defaultSaveTimeout,
		state:       State{Medications: []model.Medication{}, History: []model.HistoryEntry{}},
		permission:  model.PermissionDefault,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.saver = NewDebouncer(s.clock, s.saveDelay, s.save)
	return s
}

func (s *Session) UserID() string { return s.userID }

// Open loads the stored document. On failure the session keeps an empty state and
// never saves, so a transient load error cannot overwrite the stored document.
func (s *Session) Open(ctx context.Context) error {
	data, err := s.gateway.Load(ctx, s.userID)
	if err != nil {
		s.setErr(err)
		return err
	}

	doc := model.Document{Medications: []model.Medication{}, History: []model.HistoryEntry{}}
	if data != nil {
		doc, err = model.DecodeDocument(*data)
		if err != nil {
			s.setErr(err)
			return err
		}
	}

	s.mu.Lock()
	s.state = FromDocument(doc)
	s.loaded = true
	s.err = nil
	s.mu.Unlock()

	s.log.Debug().
		Str("user_id", s.userID).
		Int("medications", len(doc.Medications)).
		Int("history", len(doc.History)).
		Msg("Document loaded")
	s.sync()
	return nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Err returns the last load or save failure. A later success clears it.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Apply runs a command against the current state and installs the result. A failing
// command leaves the state unchanged.
func (s *Session) Apply(cmd func(State) (State, error)) error {
	s.mu.Lock()
	next, err := cmd(s.state)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	loaded := s.loaded
	s.mu.Unlock()

	s.sync()
	if loaded {
		s.saver.Trigger()
	}
	return nil
}

// Update is Apply for commands that cannot fail.
func (s *Session) Update(cmd func(State) State) {
	_ = s.Apply(func(st State) (State, error) { return cmd(st), nil })
}

func (s *Session) Permission() model.Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission
}

// RequestPermission records the outcome of a permission prompt. A denied permission is
// final.
func (s *Session) RequestPermission(p model.Permission) model.Permission {
	s.mu.Lock()
	if s.permission != model.PermissionDenied {
		s.permission = p
	}
	p = s.permission
	s.mu.Unlock()

	s.sync()
	return p
}

func (s *Session) sync() {
	if s.scheduler == nil {
		return
	}
	s.mu.Lock()
	meds := s.state.clone().Medications
	perm := s.permission
	s.mu.Unlock()
	s.scheduler.Sync(meds, perm)
}

func (s *Session) save() {
	s.mu.Lock()
	doc := s.state.Document()
	s.mu.Unlock()

	data, err := doc.Encode()
	if err != nil {
		s.setErr(err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()
	if err := s.gateway.Save(ctx, s.userID, data); err != nil {
		s.log.Error().Err(err).Str("user_id", s.userID).Msg("Failed to save document")
		s.setErr(err)
		return
	}
	s.setErr(nil)
	s.log.Debug().Str("user_id", s.userID).Msg("Document saved")
}

// Flush saves a pending change immediately and returns the resulting error state.
func (s *Session) Flush() error {
	s.saver.Flush()
	return s.Err()
}

// Close flushes pending changes and stops the scheduler.
func (s *Session) Close() error {
	err := s.Flush()
	s.saver.Stop()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	return err
}
