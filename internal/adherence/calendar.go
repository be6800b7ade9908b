package adherence

import (
	"time"

	"github.com/jwalitptl/medtracker/internal/model"
)

// Cell is one slot of a Sunday-first month grid. Blank cells pad the first week.
type Cell struct {
	Blank   bool      `json:"blank"`
	Day     int       `json:"day,omitempty"`
	Date    time.Time `json:"date,omitempty"`
	Status  Status    `json:"status,omitempty"`
	IsToday bool      `json:"isToday,omitempty"`
}

// StatusFunc classifies a date.
type StatusFunc func(date time.Time) Status

// MonthGrid lays out a month: one blank cell per weekday before the 1st, then one cell
// per day.
func MonthGrid(year int, month time.Month, loc *time.Location, today time.Time, status StatusFunc) []Cell {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	offset := int(first.Weekday())

	grid := make([]Cell, 0, offset+daysInMonth)
	for i := 0; i < offset; i++ {
		grid = append(grid, Cell{Blank: true})
	}
	for day := 1; day <= daysInMonth; day++ {
		date := time.Date(year, month, day, 0, 0, 0, 0, loc)
		grid = append(grid, Cell{
			Day:     day,
			Date:    date,
			Status:  status(date),
			IsToday: SameDay(date, today),
		})
	}
	return grid
}

// StatusFor binds DayStatus to a fixed medication list and history.
func StatusFor(meds []model.Medication, history []model.HistoryEntry) StatusFunc {
	return func(date time.Time) Status {
		return DayStatus(date, meds, history)
	}
}
