package model

import "time"

type Frequency string

const (
	FrequencyDaily        Frequency = "daily"
	FrequencySpecificDays Frequency = "specific_days"
)

// Reminder is a weekly recurrence rule. Days are weekday indices, 0=Sunday..6=Saturday,
// and only apply when Frequency is FrequencySpecificDays.
type Reminder struct {
	Times     []string  `json:"times" validate:"required,min=1,dive,clock"`
	Frequency Frequency `json:"frequency" validate:"required,oneof=daily specific_days"`
	Days      []int     `json:"days,omitempty" validate:"dive,weekday"`
}

// OccursOn reports whether the rule fires on the given weekday.
func (r Reminder) OccursOn(day time.Weekday) bool {
	switch r.Frequency {
	case FrequencyDaily:
		return true
	case FrequencySpecificDays:
		for _, d := range r.Days {
			if d == int(day) {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy so callers can replace a reminder without aliasing slices.
func (r *Reminder) Clone() *Reminder {
	if r == nil {
		return nil
	}
	out := &Reminder{Frequency: r.Frequency}
	out.Times = append([]string(nil), r.Times...)
	if r.Days != nil {
		out.Days = append([]int(nil), r.Days...)
	}
	return out
}

// ParsedMedication is a medication candidate, either extracted from a prescription or
// entered by hand, before it gets an id.
type ParsedMedication struct {
	Name          string   `json:"name" validate:"required"`
	Dosage        string   `json:"dosage"`
	Quantity      string   `json:"quantity"`
	Instructions  string   `json:"instructions"`
	TotalQuantity *float64 `json:"totalQuantity"`
}

type Medication struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Dosage        string    `json:"dosage"`
	Quantity      string    `json:"quantity"`
	Instructions  string    `json:"instructions"`
	TotalQuantity *float64  `json:"totalQuantity"`
	Taken         bool      `json:"taken"`
	Reminder      *Reminder `json:"reminder"`
}

func (m Medication) HasReminder() bool {
	return m.Reminder != nil && len(m.Reminder.Times) > 0
}
