package adherence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medtracker/internal/model"
)

var today = time.Date(2026, time.October, 19, 15, 0, 0, 0, time.UTC) // Monday

func daily(id string) model.Medication {
	return model.Medication{
		ID:       id,
		Name:     "med " + id,
		Reminder: &model.Reminder{Times: []string{"08:00"}, Frequency: model.FrequencyDaily, Days: []int{}},
	}
}

func onDays(id string, days ...int) model.Medication {
	return model.Medication{
		ID:       id,
		Reminder: &model.Reminder{Times: []string{"08:00"}, Frequency: model.FrequencySpecificDays, Days: days},
	}
}

func taken(id string, at time.Time) model.HistoryEntry {
	return model.HistoryEntry{ID: id + at.String(), MedicationID: id, TakenAt: at}
}

func TestIsScheduledOn(t *testing.T) {
	assert.False(t, IsScheduledOn(model.Medication{ID: "x"}, today))
	assert.True(t, IsScheduledOn(daily("a"), today))
	assert.True(t, IsScheduledOn(onDays("b", 1), today))
	assert.False(t, IsScheduledOn(onDays("b", 2, 3), today))
}

func TestDayStatus_DailyExample(t *testing.T) {
	meds := []model.Medication{daily("a")}
	history := []model.HistoryEntry{taken("a", today)}

	assert.Equal(t, StatusFull, DayStatus(today, meds, history))
	assert.Equal(t, StatusNone, DayStatus(today.AddDate(0, 0, 1), meds, history))
}

func TestDayStatus_UnscheduledIgnoresHistory(t *testing.T) {
	meds := []model.Medication{onDays("a", 3), {ID: "untracked"}}
	history := []model.HistoryEntry{taken("a", today), taken("untracked", today)}

	assert.Equal(t, StatusUnscheduled, DayStatus(today, meds, history))
	assert.Equal(t, StatusUnscheduled, DayStatus(today, nil, history))
}

func TestDayStatus_Monotonic(t *testing.T) {
	meds := []model.Medication{daily("a"), daily("b"), daily("c")}
	var history []model.HistoryEntry

	assert.Equal(t, StatusNone, DayStatus(today, meds, history))
	history = append(history, taken("a", today))
	assert.Equal(t, StatusPartial, DayStatus(today, meds, history))
	history = append(history, taken("b", today))
	assert.Equal(t, StatusPartial, DayStatus(today, meds, history))
	history = append(history, taken("c", today))
	assert.Equal(t, StatusFull, DayStatus(today, meds, history))
}

func TestDayStatus_CalendarDateNotWindow(t *testing.T) {
	meds := []model.Medication{daily("a")}
	lateYesterday := time.Date(2026, time.October, 18, 23, 59, 0, 0, time.UTC)
	history := []model.HistoryEntry{taken("a", lateYesterday)}

	assert.Equal(t, StatusNone, DayStatus(today, meds, history))
	assert.Equal(t, StatusFull, DayStatus(lateYesterday, meds, history))
}

func TestDayStatus_DuplicateDosesCountOnce(t *testing.T) {
	meds := []model.Medication{daily("a"), daily("b")}
	history := []model.HistoryEntry{taken("a", today), taken("a", today.Add(time.Hour))}

	assert.Equal(t, StatusPartial, DayStatus(today, meds, history))
}

func TestDayStatus_ComparesInDateLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	meds := []model.Medication{daily("a")}
	// 02:00 UTC on the 20th is still the 19th in UTC-5.
	history := []model.HistoryEntry{taken("a", time.Date(2026, time.October, 20, 2, 0, 0, 0, time.UTC))}

	localDay := time.Date(2026, time.October, 19, 12, 0, 0, 0, loc)
	assert.Equal(t, StatusFull, DayStatus(localDay, meds, history))
}

func TestRolling30Compliance_NothingScheduled(t *testing.T) {
	assert.Equal(t, 100, Rolling30Compliance(nil, nil, today))
	assert.Equal(t, 100, Rolling30Compliance([]model.Medication{{ID: "a"}}, nil, today))
}

func TestRolling30Compliance(t *testing.T) {
	meds := []model.Medication{daily("a")}
	var history []model.HistoryEntry
	for i := 0; i < 15; i++ {
		history = append(history, taken("a", today.AddDate(0, 0, -i)))
	}
	// Outside the window, must not count.
	history = append(history, taken("a", today.AddDate(0, 0, -30)))

	assert.Equal(t, 50, Rolling30Compliance(meds, history, today))
}

func TestRolling30Compliance_Rounds(t *testing.T) {
	meds := []model.Medication{daily("a"), daily("b"), daily("c")}
	history := []model.HistoryEntry{taken("a", today)}
	// 1 of 90.
	assert.Equal(t, 1, Rolling30Compliance(meds, history, today))

	for i := 0; i < 30; i++ {
		history = append(history, taken("b", today.AddDate(0, 0, -i)))
	}
	// 31 of 90 = 34.4
	assert.Equal(t, 34, Rolling30Compliance(meds, history, today))
}

func TestTodayProgress(t *testing.T) {
	assert.Zero(t, TodayProgress(nil))
	meds := []model.Medication{{ID: "a", Taken: true}, {ID: "b"}, {ID: "c"}, {ID: "d", Taken: true}}
	assert.InDelta(t, 50.0, TodayProgress(meds), 0.0001)
}

func TestMonthGrid(t *testing.T) {
	meds := []model.Medication{daily("a")}
	history := []model.HistoryEntry{taken("a", today)}

	// October 2026 starts on a Thursday.
	grid := MonthGrid(2026, time.October, time.UTC, today, StatusFor(meds, history))
	require.Len(t, grid, 4+31)
	for i := 0; i < 4; i++ {
		assert.True(t, grid[i].Blank)
	}

	first := grid[4]
	assert.Equal(t, 1, first.Day)
	assert.Equal(t, time.Thursday, first.Date.Weekday())
	assert.Equal(t, StatusNone, first.Status)

	cell := grid[4+18]
	assert.Equal(t, 19, cell.Day)
	assert.True(t, cell.IsToday)
	assert.Equal(t, StatusFull, cell.Status)

	assert.Equal(t, 31, grid[len(grid)-1].Day)
}

func TestMonthGrid_LeapFebruary(t *testing.T) {
	// February 2028 starts on a Tuesday and has 29 days.
	grid := MonthGrid(2028, time.February, time.UTC, today, func(time.Time) Status { return StatusUnscheduled })
	require.Len(t, grid, 2+29)
	assert.Equal(t, 29, grid[len(grid)-1].Day)
}
