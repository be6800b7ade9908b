// Package schedule evaluates weekly reminder rules.
package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jwalitptl/medtracker/internal/model"
)

// lookaheadDays covers today plus the same weekday one week out, so a rule that only
// fires on today's weekday still resolves once today's slot has passed.
const lookaheadDays = 7

// Clock is a time of day with minute resolution.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the instant at this clock time on day's calendar date, in day's location.
func (c Clock) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, day.Location())
}

// ParseClock parses "HH:MM" (single-digit hours are accepted).
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(mm) != 2 || len(hh) == 0 || len(hh) > 2 {
		return Clock{}, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("invalid minute in %q", s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

// NextFireTime returns the earliest instant strictly after now at which the reminder
// fires, or false when it has no future occurrence in the lookahead window.
func NextFireTime(r model.Reminder, now time.Time) (time.Time, bool) {
	if len(r.Times) == 0 {
		return time.Time{}, false
	}

	clocks := make([]Clock, 0, len(r.Times))
	for _, t := range r.Times {
		c, err := ParseClock(t)
		if err != nil {
			continue
		}
		clocks = append(clocks, c)
	}

	var next time.Time
	for i := 0; i <= lookaheadDays; i++ {
		day := now.AddDate(0, 0, i)
		if !r.OccursOn(day.Weekday()) {
			continue
		}
		for _, c := range clocks {
			candidate := c.On(day)
			if !candidate.After(now) {
				continue
			}
			if next.IsZero() || candidate.Before(next) {
				next = candidate
			}
		}
	}

	if next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}

var weekdayShort = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// WeekdayName returns the three letter name of a weekday index.
func WeekdayName(d int) string {
	if d < 0 || d > 6 {
		return "?"
	}
	return weekdayShort[d]
}

// ParseWeekday accepts "sun".."sat", full English names, or "0".."6".
func ParseWeekday(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("weekday %d out of range", n)
		}
		return n, nil
	}
	for i, name := range weekdayShort {
		short := strings.ToLower(name)
		if s == short || s == strings.ToLower(time.Weekday(i).String()) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// Describe renders a reminder for display, e.g. "Daily at 08:00, 20:00".
func Describe(r *model.Reminder) string {
	if r == nil || len(r.Times) == 0 {
		return "No reminder set"
	}

	times := append([]string(nil), r.Times...)
	sort.Strings(times)
	at := strings.Join(times, ", ")

	switch r.Frequency {
	case model.FrequencyDaily:
		return "Daily at " + at
	case model.FrequencySpecificDays:
		if len(r.Days) == 0 {
			return "No reminder set"
		}
		days := append([]int(nil), r.Days...)
		sort.Ints(days)
		names := make([]string, len(days))
		for i, d := range days {
			names[i] = WeekdayName(d)
		}
		return strings.Join(names, ", ") + " at " + at
	}
	return "No reminder set"
}
