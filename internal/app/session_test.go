package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medtracker/internal/clock"
	"github.com/jwalitptl/medtracker/internal/model"
	"github.com/jwalitptl/medtracker/internal/notify"
)

type fakeGateway struct {
	mu      sync.Mutex
	data    *string
	loadErr error
	saveErr error
	saves   []string
}

func (g *fakeGateway) Load(_ context.Context, _ string) (*string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loadErr != nil {
		return nil, g.loadErr
	}
	return g.data, nil
}

func (g *fakeGateway) Save(_ context.Context, _ string, data string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.saveErr != nil {
		return g.saveErr
	}
	g.saves = append(g.saves, data)
	g.data = &data
	return nil
}

func (g *fakeGateway) saveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.saves)
}

func (g *fakeGateway) setSaveErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saveErr = err
}

func stored(t *testing.T, doc model.Document) *string {
	t.Helper()
	data, err := doc.Encode()
	require.NoError(t, err)
	return &data
}

func newTestSession(t *testing.T, gw Gateway, opts ...SessionOption) (*Session, *clock.Manual) {
	t.Helper()
	c := clock.NewManual(morning)
	opts = append([]SessionOption{WithSessionClock(c)}, opts...)
	return NewSession("user-1", gw, opts...), c
}

func addAspirin(st State) State {
	return st.AddReviewed([]model.ParsedMedication{{Name: "Aspirin", Dosage: "81mg"}})
}

func TestSession_OpenLoadsDocument(t *testing.T) {
	gw := &fakeGateway{data: stored(t, model.Document{
		Medications: []model.Medication{{ID: "m1", Name: "Metformin"}},
	})}
	s, _ := newTestSession(t, gw)

	require.NoError(t, s.Open(context.Background()))

	assert.True(t, s.Loaded())
	require.Len(t, s.State().Medications, 1)
	assert.Equal(t, "Metformin", s.State().Medications[0].Name)
	assert.NotNil(t, s.State().History)
}

func TestSession_OpenWithNothingStored(t *testing.T) {
	s, _ := newTestSession(t, &fakeGateway{})

	require.NoError(t, s.Open(context.Background()))
	assert.Empty(t, s.State().Medications)
	assert.True(t, s.Loaded())
}

func TestSession_SavesAreDebounced(t *testing.T) {
	gw := &fakeGateway{}
	s, c := newTestSession(t, gw)
	require.NoError(t, s.Open(context.Background()))

	s.Update(addAspirin)
	c.Advance(200 * time.Millisecond)
	s.Update(addAspirin)
	c.Advance(200 * time.Millisecond)
	assert.Equal(t, 0, gw.saveCount())

	c.Advance(DefaultSaveDelay)
	require.Equal(t, 1, gw.saveCount())

	doc, err := model.DecodeDocument(gw.saves[0])
	require.NoError(t, err)
	assert.Len(t, doc.Medications, 2)
}

func TestSession_NeverSavesBeforeLoad(t *testing.T) {
	gw := &fakeGateway{loadErr: errors.New("connection refused")}
	s, c := newTestSession(t, gw)

	require.Error(t, s.Open(context.Background()))
	assert.Error(t, s.Err())
	assert.False(t, s.Loaded())

	s.Update(addAspirin)
	c.Advance(time.Second)
	assert.Error(t, s.Flush(), "load failure is still reported")
	assert.Equal(t, 0, gw.saveCount())
	assert.Len(t, s.State().Medications, 1)
}

func TestSession_SaveErrorClearedByNextSuccess(t *testing.T) {
	gw := &fakeGateway{}
	s, c := newTestSession(t, gw)
	require.NoError(t, s.Open(context.Background()))

	gw.setSaveErr(errors.New("Failed to save data"))
	s.Update(addAspirin)
	c.Advance(DefaultSaveDelay)
	require.Error(t, s.Err())

	c.Advance(time.Minute)
	assert.Equal(t, 0, gw.saveCount(), "failed saves are not retried")

	gw.setSaveErr(nil)
	s.Update(addAspirin)
	require.NoError(t, s.Flush())
	assert.NoError(t, s.Err())
	assert.Equal(t, 1, gw.saveCount())
}

func TestSession_ApplyErrorKeepsState(t *testing.T) {
	gw := &fakeGateway{}
	s, _ := newTestSession(t, gw)
	require.NoError(t, s.Open(context.Background()))

	err := s.Apply(func(st State) (State, error) { return st.ToggleTaken("missing", morning) })
	require.Error(t, err)
	assert.Empty(t, s.State().Medications)
	assert.NoError(t, s.Flush())
	assert.Equal(t, 0, gw.saveCount())
}

type countingNotifier struct {
	mu sync.Mutex
	n  int
}

func (c *countingNotifier) Notify(context.Context, model.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return nil
}

func TestSession_PermissionAndScheduler(t *testing.T) {
	c := clock.NewManual(morning)
	sch := notify.NewScheduler(&countingNotifier{}, notify.WithClock(c))
	gw := &fakeGateway{data: stored(t, model.Document{
		Medications: []model.Medication{{
			ID:       "m1",
			Name:     "Metformin",
			Reminder: &model.Reminder{Times: []string{"09:00"}, Frequency: model.FrequencyDaily},
		}},
	})}
	s := NewSession("user-1", gw, WithSessionClock(c), WithScheduler(sch))
	require.NoError(t, s.Open(context.Background()))
	assert.Empty(t, sch.Pending(), "default permission arms nothing")

	assert.Equal(t, model.PermissionGranted, s.RequestPermission(model.PermissionGranted))
	assert.Len(t, sch.Pending(), 1)

	require.NoError(t, s.Apply(func(st State) (State, error) { return st.SetReminder("m1", nil) }))
	assert.Empty(t, sch.Pending())

	s.RequestPermission(model.PermissionDenied)
	assert.Equal(t, model.PermissionDenied, s.RequestPermission(model.PermissionGranted))
	assert.Equal(t, model.PermissionDenied, s.Permission())

	require.NoError(t, s.Close())
	assert.Equal(t, 1, gw.saveCount())
}
