package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medtracker/internal/model"
	apperrors "github.com/jwalitptl/medtracker/pkg/errors"
)

var morning = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func seeded(t *testing.T) State {
	t.Helper()
	st := State{}.AddReviewed([]model.ParsedMedication{
		{Name: "Amoxicillin", Dosage: "500mg"},
		{Name: " Ibuprofen ", Dosage: "200mg"},
	})
	require.Len(t, st.Medications, 2)
	return st
}

func TestAddReviewed(t *testing.T) {
	st := seeded(t)

	assert.NotEmpty(t, st.Medications[0].ID)
	assert.NotEqual(t, st.Medications[0].ID, st.Medications[1].ID)
	assert.Equal(t, "Ibuprofen", st.Medications[1].Name)
	assert.False(t, st.Medications[0].Taken)
	assert.Nil(t, st.Medications[0].Reminder)
}

func TestAddManual_RequiresName(t *testing.T) {
	st := State{}

	_, _, err := st.AddManual(model.ParsedMedication{Name: "   "})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))

	next, med, err := st.AddManual(model.ParsedMedication{Name: "Vitamin D"})
	require.NoError(t, err)
	assert.Len(t, next.Medications, 1)
	assert.Equal(t, "Vitamin D", med.Name)
	assert.Empty(t, st.Medications, "receiver must not change")
}

func TestToggleTaken(t *testing.T) {
	st := seeded(t)
	id := st.Medications[0].ID

	taken, err := st.ToggleTaken(id, morning)
	require.NoError(t, err)
	assert.True(t, taken.Medications[0].Taken)
	require.Len(t, taken.History, 1)
	assert.Equal(t, id, taken.History[0].MedicationID)
	assert.Equal(t, "Amoxicillin", taken.History[0].MedicationName)
	assert.Equal(t, morning, taken.History[0].TakenAt)
	assert.Empty(t, st.History)

	untaken, err := taken.ToggleTaken(id, morning.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, untaken.Medications[0].Taken)
	assert.Empty(t, untaken.History)

	_, err = st.ToggleTaken("missing", morning)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
}

func TestToggleTaken_RemovesOnlyMostRecentEntry(t *testing.T) {
	st := seeded(t)
	id := st.Medications[0].ID

	st, _ = st.ToggleTaken(id, morning.Add(-24*time.Hour))
	st = st.ResetTaken()
	st, _ = st.ToggleTaken(id, morning)
	require.Len(t, st.History, 2)

	st, err := st.ToggleTaken(id, morning.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, st.History, 1)
	assert.Equal(t, morning.Add(-24*time.Hour), st.History[0].TakenAt)
}

func TestSetReminder(t *testing.T) {
	st := seeded(t)
	id := st.Medications[0].ID

	tests := []struct {
		name     string
		reminder *model.Reminder
		want     *model.Reminder
		wantErr  bool
	}{
		{
			name:     "drops blank times and normalizes",
			reminder: &model.Reminder{Times: []string{"8:00", " ", "20:30", "08:00"}, Frequency: model.FrequencyDaily, Days: []int{1}},
			want:     &model.Reminder{Times: []string{"08:00", "20:30"}, Frequency: model.FrequencyDaily},
		},
		{
			name:     "no times removes the reminder",
			reminder: &model.Reminder{Times: []string{"", " "}, Frequency: model.FrequencyDaily},
			want:     nil,
		},
		{
			name:     "nil removes the reminder",
			reminder: nil,
			want:     nil,
		},
		{
			name:     "specific days sorted and deduplicated",
			reminder: &model.Reminder{Times: []string{"09:15"}, Frequency: model.FrequencySpecificDays, Days: []int{5, 1, 5}},
			want:     &model.Reminder{Times: []string{"09:15"}, Frequency: model.FrequencySpecificDays, Days: []int{1, 5}},
		},
		{
			name:     "specific days without days",
			reminder: &model.Reminder{Times: []string{"09:15"}, Frequency: model.FrequencySpecificDays},
			wantErr:  true,
		},
		{
			name:     "malformed time",
			reminder: &model.Reminder{Times: []string{"25:00"}, Frequency: model.FrequencyDaily},
			wantErr:  true,
		},
		{
			name:     "weekday out of range",
			reminder: &model.Reminder{Times: []string{"09:15"}, Frequency: model.FrequencySpecificDays, Days: []int{7}},
			wantErr:  true,
		},
		{
			name:     "unknown frequency",
			reminder: &model.Reminder{Times: []string{"09:15"}, Frequency: "weekly"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := st.SetReminder(id, tt.reminder)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
				assert.Nil(t, next.Medications[0].Reminder)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, next.Medications[0].Reminder)
		})
	}
}

func TestSetReminder_DoesNotAlias(t *testing.T) {
	st := seeded(t)
	id := st.Medications[0].ID
	r := &model.Reminder{Times: []string{"08:00"}, Frequency: model.FrequencyDaily}

	next, err := st.SetReminder(id, r)
	require.NoError(t, err)
	r.Times[0] = "09:00"

	again := next.AddReviewed(nil)
	again.Medications[0].Reminder.Times[0] = "10:00"

	assert.Equal(t, []string{"08:00"}, next.Medications[0].Reminder.Times)
}

func TestBulkDelete_PrunesHistory(t *testing.T) {
	st := seeded(t)
	a, b := st.Medications[0].ID, st.Medications[1].ID
	st, _ = st.ToggleTaken(a, morning)
	st, _ = st.ToggleTaken(b, morning)

	next := st.BulkDelete([]string{a, "unknown"})

	require.Len(t, next.Medications, 1)
	assert.Equal(t, b, next.Medications[0].ID)
	require.Len(t, next.History, 1)
	assert.Equal(t, b, next.History[0].MedicationID)
	assert.Len(t, st.Medications, 2)
}

func TestBulkMarkTaken_Idempotent(t *testing.T) {
	st := seeded(t)
	ids := []string{st.Medications[0].ID, st.Medications[1].ID}

	once := st.BulkMarkTaken(ids, morning)
	twice := once.BulkMarkTaken(ids, morning.Add(time.Minute))

	assert.Len(t, once.History, 2)
	assert.Len(t, twice.History, 2)
	for _, m := range twice.Medications {
		assert.True(t, m.Taken)
	}
}

func TestClearHistoryAndResetTaken(t *testing.T) {
	st := seeded(t)
	id := st.Medications[0].ID
	st, _ = st.ToggleTaken(id, morning)
	assert.True(t, st.AnyTaken())
	assert.Equal(t, 1, st.DosesTaken(id))

	reset := st.ResetTaken()
	assert.False(t, reset.AnyTaken())
	assert.Len(t, reset.History, 1)

	cleared := st.ClearHistory()
	assert.Empty(t, cleared.History)
	assert.NotNil(t, cleared.History)
	assert.True(t, cleared.Medications[0].Taken)
	assert.Equal(t, 0, cleared.DosesTaken(id))
}

func TestFind(t *testing.T) {
	st := seeded(t)

	med, ok := st.Find(st.Medications[1].ID)
	assert.True(t, ok)
	assert.Equal(t, "Ibuprofen", med.Name)

	_, ok = st.Find("nope")
	assert.False(t, ok)
}

func TestDocumentRoundTrip(t *testing.T) {
	st := seeded(t)
	st, _ = st.ToggleTaken(st.Medications[0].ID, morning)

	doc := st.Document()
	doc.Medications[0].Name = "changed"

	assert.Equal(t, "Amoxicillin", st.Medications[0].Name)
	assert.Equal(t, st, FromDocument(st.Document()))
}

func TestGroupHistoryByDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	history := []model.HistoryEntry{
		{ID: "a", TakenAt: time.Date(2026, 10, 18, 14, 0, 0, 0, time.UTC)},
		{ID: "b", TakenAt: time.Date(2026, 10, 19, 2, 0, 0, 0, time.UTC)},
		{ID: "c", TakenAt: time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC)},
	}

	utc := GroupHistoryByDay(history, time.UTC)
	require.Len(t, utc, 2)
	assert.Equal(t, 19, utc[0].Date.Day())
	assert.Equal(t, []string{"c", "b"}, ids(utc[0].Entries))
	assert.Equal(t, []string{"a"}, ids(utc[1].Entries))

	// 02:00 UTC on the 19th is still the 18th in New York.
	local := GroupHistoryByDay(history, ny)
	require.Len(t, local, 2)
	assert.Equal(t, []string{"c"}, ids(local[0].Entries))
	assert.Equal(t, []string{"b", "a"}, ids(local[1].Entries))

	assert.Empty(t, GroupHistoryByDay(nil, time.UTC))
}

func ids(entries []model.HistoryEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
