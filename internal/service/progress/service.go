package progress

import (
	"context"
	"sort"
	"time"

	"github.com/jwalitptl/medtracker/internal/adherence"
	"github.com/jwalitptl/medtracker/internal/model"
	"github.com/jwalitptl/medtracker/internal/schedule"
	apperrors "github.com/jwalitptl/medtracker/pkg/errors"
)

type documentLoader interface {
	LoadDocument(ctx context.Context, userID string) (model.Document, error)
}

// Report summarizes adherence for one month as seen from today.
type Report struct {
	Year          int              `json:"year"`
	Month         time.Month       `json:"month"`
	Compliance    int              `json:"compliance"`
	TodayProgress float64          `json:"todayProgress"`
	Today         string           `json:"today"`
	Calendar      []adherence.Cell `json:"calendar"`
}

// Upcoming is the next fire time of one medication's reminder.
type Upcoming struct {
	MedicationID string    `json:"medicationId"`
	Name         string    `json:"name"`
	Schedule     string    `json:"schedule"`
	FireAt       time.Time `json:"fireAt"`
}

type ProgressServicer interface {
	Report(ctx context.Context, userID string, year int, month time.Month, loc *time.Location) (*Report, error)
	Upcoming(ctx context.Context, userID string, loc *time.Location) ([]Upcoming, error)
}

type Service struct {
	docs documentLoader
	now  func() time.Time
}

func NewService(docs documentLoader) *Service {
	return &Service{docs: docs, now: time.Now}
}

// Report builds the calendar for year/month in loc. A zero year or month means the
// current one.
func (s *Service) Report(ctx context.Context, userID string, year int, month time.Month, loc *time.Location) (*Report, error) {
	if month < 0 || month > 12 {
		return nil, apperrors.BadRequest("Month must be between 1 and 12", nil)
	}
	doc, err := s.docs.LoadDocument(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := s.now().In(loc)
	if year == 0 {
		year = today.Year()
	}
	if month == 0 {
		month = today.Month()
	}

	return &Report{
		Year:          year,
		Month:         month,
		Compliance:    adherence.Rolling30Compliance(doc.Medications, doc.History, today),
		TodayProgress: adherence.TodayProgress(doc.Medications),
		Today:         today.Format("2006-01-02"),
		Calendar:      adherence.MonthGrid(year, month, loc, today, adherence.StatusFor(doc.Medications, doc.History)),
	}, nil
}

// Upcoming lists the next reminder of every medication that has one, soonest first.
func (s *Service) Upcoming(ctx context.Context, userID string, loc *time.Location) ([]Upcoming, error) {
	doc, err := s.docs.LoadDocument(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().In(loc)
	out := make([]Upcoming, 0, len(doc.Medications))
	for _, med := range doc.Medications {
		if !med.HasReminder() {
			continue
		}
		next, ok := schedule.NextFireTime(*med.Reminder, now)
		if !ok {
			continue
		}
		out = append(out, Upcoming{
			MedicationID: med.ID,
			Name:         med.Name,
			Schedule:     schedule.Describe(med.Reminder),
			FireAt:       next,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out, nil
}
