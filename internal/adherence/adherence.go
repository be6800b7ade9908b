// Package adherence classifies days and computes compliance from a medication list and
// its dose history.
package adherence

import (
	"math"
	"time"

	"github.com/jwalitptl/medtracker/internal/model"
)

type Status string

const (
	StatusFull        Status = "full"
	StatusPartial     Status = "partial"
	StatusNone        Status = "none"
	StatusUnscheduled Status = "unscheduled"
)

// ComplianceWindowDays is the length of the rolling compliance window, today included.
const ComplianceWindowDays = 30

// IsScheduledOn reports whether med has a reminder that applies on date's weekday.
func IsScheduledOn(med model.Medication, date time.Time) bool {
	if med.Reminder == nil {
		return false
	}
	return med.Reminder.OccursOn(date.Weekday())
}

// SameDay compares calendar dates in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// counts returns how many medications are scheduled on date and how many of those have
// at least one history entry on the same calendar date.
func counts(date time.Time, meds []model.Medication, history []model.HistoryEntry) (scheduled, taken int) {
	ids := make(map[string]struct{})
	for _, med := range meds {
		if IsScheduledOn(med, date) {
			ids[med.ID] = struct{}{}
		}
	}
	if len(ids) == 0 {
		return 0, 0
	}

	seen := make(map[string]struct{})
	for _, h := range history {
		if _, ok := ids[h.MedicationID]; !ok {
			continue
		}
		if !SameDay(date, h.TakenAt) {
			continue
		}
		seen[h.MedicationID] = struct{}{}
	}
	return len(ids), len(seen)
}

// DayStatus classifies one calendar day.
func DayStatus(date time.Time, meds []model.Medication, history []model.HistoryEntry) Status {
	scheduled, taken := counts(date, meds, history)
	switch {
	case scheduled == 0:
		return StatusUnscheduled
	case taken == 0:
		return StatusNone
	case taken == scheduled:
		return StatusFull
	}
	return StatusPartial
}

// Rolling30Compliance returns the percentage of scheduled doses taken over the 30 days
// ending at today. With nothing scheduled the result is 100.
func Rolling30Compliance(meds []model.Medication, history []model.HistoryEntry, today time.Time) int {
	var totalScheduled, totalTaken int
	for i := 0; i < ComplianceWindowDays; i++ {
		date := today.AddDate(0, 0, -i)
		s, t := counts(date, meds, history)
		totalScheduled += s
		totalTaken += t
	}
	if totalScheduled == 0 {
		return 100
	}
	return int(math.Round(100 * float64(totalTaken) / float64(totalScheduled)))
}

// TodayProgress is the share of medications currently flagged as taken, in percent.
func TodayProgress(meds []model.Medication) float64 {
	if len(meds) == 0 {
		return 0
	}
	taken := 0
	for _, m := range meds {
		if m.Taken {
			taken++
		}
	}
	return float64(taken) / float64(len(meds)) * 100
}
