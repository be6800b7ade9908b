package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medtracker/internal/adherence"
	"github.com/jwalitptl/medtracker/internal/model"
	apperrors "github.com/jwalitptl/medtracker/pkg/errors"
)

type staticDocs struct {
	doc model.Document
	err error
}

func (s staticDocs) LoadDocument(context.Context, string) (model.Document, error) {
	return s.doc, s.err
}

// Monday, 19 October 2026.
var now = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

func fixture() model.Document {
	return model.Document{
		Medications: []model.Medication{
			{ID: "m1", Name: "Aspirin", Taken: true, Reminder: &model.Reminder{Times: []string{"08:00", "20:00"}, Frequency: model.FrequencyDaily}},
			{ID: "m2", Name: "Methotrexate", Reminder: &model.Reminder{Times: []string{"09:00"}, Frequency: model.FrequencySpecificDays, Days: []int{1}}},
			{ID: "m3", Name: "Vitamin D"},
		},
		History: []model.HistoryEntry{
			{ID: "h1", MedicationID: "m1", MedicationName: "Aspirin", TakenAt: time.Date(2026, 10, 19, 8, 5, 0, 0, time.UTC)},
		},
	}
}

func newService(doc model.Document) *Service {
	s := NewService(staticDocs{doc: doc})
	s.now = func() time.Time { return now }
	return s
}

func TestService_Report(t *testing.T) {
	s := newService(fixture())

	r, err := s.Report(context.Background(), "user-1", 0, 0, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2026, r.Year)
	assert.Equal(t, time.October, r.Month)
	assert.Equal(t, "2026-10-19", r.Today)
	assert.InDelta(t, 33.33, r.TodayProgress, 0.01)

	// October 2026 starts on a Thursday.
	require.Len(t, r.Calendar, 4+31)
	today := r.Calendar[4+18]
	assert.Equal(t, 19, today.Day)
	assert.True(t, today.IsToday)
	assert.Equal(t, adherence.StatusPartial, today.Status)
	assert.Equal(t, adherence.StatusNone, r.Calendar[4+17].Status)
}

func TestService_ReportOtherMonth(t *testing.T) {
	s := newService(fixture())

	r, err := s.Report(context.Background(), "user-1", 2028, time.February, time.UTC)
	require.NoError(t, err)
	assert.Len(t, r.Calendar, 2+29)

	_, err = s.Report(context.Background(), "user-1", 2028, 13, time.UTC)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
}

func TestService_Upcoming(t *testing.T) {
	s := newService(fixture())

	up, err := s.Upcoming(context.Background(), "user-1", time.UTC)
	require.NoError(t, err)
	require.Len(t, up, 2)

	assert.Equal(t, "m1", up[0].MedicationID)
	assert.Equal(t, time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC), up[0].FireAt)
	assert.Equal(t, "Daily at 08:00, 20:00", up[0].Schedule)

	assert.Equal(t, "m2", up[1].MedicationID)
	assert.Equal(t, time.Date(2026, 10, 26, 9, 0, 0, 0, time.UTC), up[1].FireAt)
}

func TestService_PropagatesLoadErrors(t *testing.T) {
	s := NewService(staticDocs{err: apperrors.BadRequest("User ID is required", nil)})

	_, err := s.Upcoming(context.Background(), "", time.UTC)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
	_, err = s.Report(context.Background(), "", 0, 0, time.UTC)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
}
