// Package app holds the client-side application state and the session that keeps it in
// sync with the gateway and the reminder scheduler.
package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medtracker/internal/model"
	"github.com/jwalitptl/medtracker/internal/schedule"
	apperrors "github.com/jwalitptl/medtracker/pkg/errors"
	"github.com/jwalitptl/medtracker/pkg/validator"
)

// State is the whole user state. It is a value: commands return a new State and never
// modify the receiver's slices.
type State struct {
	Medications []model.Medication
	History     []model.HistoryEntry
}

var (
	validate = validator.New()
	newID    = uuid.NewString
)

func FromDocument(doc model.Document) State {
	return State{Medications: doc.Medications, History: doc.History}.clone()
}

func (s State) Document() model.Document {
	c := s.clone()
	return model.Document{Medications: c.Medications, History: c.History}
}

func (s State) clone() State {
	out := State{
		Medications: make([]model.Medication, len(s.Medications)),
		History:     make([]model.HistoryEntry, len(s.History)),
	}
	for i, m := range s.Medications {
		m.Reminder = m.Reminder.Clone()
		if m.TotalQuantity != nil {
			q := *m.TotalQuantity
			m.TotalQuantity = &q
		}
		out.Medications[i] = m
	}
	copy(out.History, s.History)
	return out
}

func (s State) index(id string) int {
	for i, m := range s.Medications {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (s State) Find(id string) (model.Medication, bool) {
	i := s.index(id)
	if i < 0 {
		return model.Medication{}, false
	}
	return s.clone().Medications[i], true
}

func unknown(id string) error {
	return apperrors.NotFound("medication", fmt.Errorf("no medication with id %q", id))
}

func fromParsed(p model.ParsedMedication) model.Medication {
	return model.Medication{
		ID:            newID(),
		Name:          strings.TrimSpace(p.Name),
		Dosage:        strings.TrimSpace(p.Dosage),
		Quantity:      strings.TrimSpace(p.Quantity),
		Instructions:  strings.TrimSpace(p.Instructions),
		TotalQuantity: p.TotalQuantity,
	}
}

// AddReviewed appends one medication per accepted candidate, untaken and without a
// reminder.
func (s State) AddReviewed(parsed []model.ParsedMedication) State {
	out := s.clone()
	for _, p := range parsed {
		out.Medications = append(out.Medications, fromParsed(p))
	}
	return out
}

// AddManual appends a hand-entered medication. The name is required.
func (s State) AddManual(p model.ParsedMedication) (State, model.Medication, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := validate.Validate(p); err != nil {
		return s, model.Medication{}, apperrors.BadRequest("Invalid medication", err)
	}
	med := fromParsed(p)
	out := s.clone()
	out.Medications = append(out.Medications, med)
	return out, med, nil
}

// ToggleTaken flips the taken flag. Marking taken records one history entry; unmarking
// removes the most recent entry for that medication.
func (s State) ToggleTaken(id string, now time.Time) (State, error) {
	i := s.index(id)
	if i < 0 {
		return s, unknown(id)
	}

	out := s.clone()
	med := &out.Medications[i]
	if !med.Taken {
		med.Taken = true
		out.History = append(out.History, newEntry(*med, now))
		return out, nil
	}

	med.Taken = false
	if j := latestEntry(out.History, id); j >= 0 {
		out.History = append(out.History[:j], out.History[j+1:]...)
	}
	return out, nil
}

func newEntry(med model.Medication, now time.Time) model.HistoryEntry {
	return model.HistoryEntry{
		ID:             newID(),
		MedicationID:   med.ID,
		MedicationName: med.Name,
		TakenAt:        now,
	}
}

func latestEntry(history []model.HistoryEntry, medID string) int {
	latest := -1
	for j, h := range history {
		if h.MedicationID != medID {
			continue
		}
		if latest < 0 || !h.TakenAt.Before(history[latest].TakenAt) {
			latest = j
		}
	}
	return latest
}

// SetReminder replaces a medication's reminder. Blank times are dropped and the rest
// normalized to HH:MM; a reminder left without times is removed. Days only apply to
// specific_days, which needs at least one.
func (s State) SetReminder(id string, r *model.Reminder) (State, error) {
	i := s.index(id)
	if i < 0 {
		return s, unknown(id)
	}

	normalized, err := normalizeReminder(r)
	if err != nil {
		return s, err
	}

	out := s.clone()
	out.Medications[i].Reminder = normalized
	return out, nil
}

func normalizeReminder(r *model.Reminder) (*model.Reminder, error) {
	if r == nil {
		return nil, nil
	}

	out := &model.Reminder{Frequency: r.Frequency}
	seen := make(map[string]bool)
	for _, t := range r.Times {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		c, err := schedule.ParseClock(t)
		if err != nil {
			return nil, apperrors.BadRequest("Invalid reminder", err)
		}
		if !seen[c.String()] {
			seen[c.String()] = true
			out.Times = append(out.Times, c.String())
		}
	}
	if len(out.Times) == 0 {
		return nil, nil
	}

	if r.Frequency == model.FrequencySpecificDays {
		days := make(map[int]bool)
		for _, d := range r.Days {
			if !days[d] {
				days[d] = true
				out.Days = append(out.Days, d)
			}
		}
		sort.Ints(out.Days)
		if len(out.Days) == 0 {
			return nil, apperrors.BadRequest("Invalid reminder", fmt.Errorf("pick at least one day for a specific-days reminder"))
		}
	}

	if err := validate.Validate(out); err != nil {
		return nil, apperrors.BadRequest("Invalid reminder", err)
	}
	return out, nil
}

// BulkDelete removes the medications and every history entry that refers to them.
func (s State) BulkDelete(ids []string) State {
	drop := toSet(ids)
	out := State{
		Medications: make([]model.Medication, 0, len(s.Medications)),
		History:     make([]model.HistoryEntry, 0, len(s.History)),
	}
	for _, m := range s.clone().Medications {
		if !drop[m.ID] {
			out.Medications = append(out.Medications, m)
		}
	}
	for _, h := range s.History {
		if !drop[h.MedicationID] {
			out.History = append(out.History, h)
		}
	}
	return out
}

// BulkMarkTaken marks the medications taken. Medications already taken are left alone,
// so repeating the command adds no history.
func (s State) BulkMarkTaken(ids []string, now time.Time) State {
	mark := toSet(ids)
	out := s.clone()
	for i := range out.Medications {
		med := &out.Medications[i]
		if !mark[med.ID] || med.Taken {
			continue
		}
		med.Taken = true
		out.History = append(out.History, newEntry(*med, now))
	}
	return out
}

func (s State) ClearHistory() State {
	out := s.clone()
	out.History = []model.HistoryEntry{}
	return out
}

// ResetTaken clears every taken flag, as at the start of a new day. History is kept.
func (s State) ResetTaken() State {
	out := s.clone()
	for i := range out.Medications {
		out.Medications[i].Taken = false
	}
	return out
}

// AnyTaken reports whether a ResetTaken would change anything.
func (s State) AnyTaken() bool {
	for _, m := range s.Medications {
		if m.Taken {
			return true
		}
	}
	return false
}

// DosesTaken counts the history entries recorded for a medication.
func (s State) DosesTaken(id string) int {
	n := 0
	for _, h := range s.History {
		if h.MedicationID == id {
			n++
		}
	}
	return n
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// DayGroup is the history of one calendar day.
type DayGroup struct {
	Date    time.Time
	Entries []model.HistoryEntry
}

// GroupHistoryByDay groups entries by calendar date in loc, newest day first and newest
// entry first within a day.
func GroupHistoryByDay(history []model.HistoryEntry, loc *time.Location) []DayGroup {
	sorted := append([]model.HistoryEntry(nil), history...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TakenAt.After(sorted[j].TakenAt) })

	var groups []DayGroup
	for _, h := range sorted {
		t := h.TakenAt.In(loc)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		if n := len(groups); n > 0 && groups[n-1].Date.Equal(day) {
			groups[n-1].Entries = append(groups[n-1].Entries, h)
			continue
		}
		groups = append(groups, DayGroup{Date: day, Entries: []model.HistoryEntry{h}})
	}
	return groups
}
