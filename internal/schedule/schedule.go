// Package schedule holds the calendar arithmetic behind booking decisions:
// wall-clock parsing, interval overlap, cancellation cutoffs, refund tiers
// and recurring-day expansion. Nothing here touches storage.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tutorbook/internal/api"
)

const (
	// CancellationWindow is the minimum notice before a lesson ends for it
	// to still be cancellable.
	CancellationWindow = 24 * time.Hour

	FullRefundNotice = 48 * time.Hour
	HalfRefundNotice = 24 * time.Hour

	DateLayout = "2006-01-02"
)

var (
	ErrInvalidClock   = api.NewError(api.ErrValidation, "time must be in HH:MM format")
	ErrInvalidWeekday = api.NewError(api.ErrValidation, "unknown weekday name")
	ErrInvalidDate    = api.NewError(api.ErrValidation, "date must be in YYYY-MM-DD format")
)

// Clock is a local wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	if len(s) != 5 || s[2] != ':' {
		return Clock{}, ErrInvalidClock
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || h < 0 || h > 23 {
		return Clock{}, ErrInvalidClock
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || m < 0 || m > 59 {
		return Clock{}, ErrInvalidClock
	}
	return Clock{Hour: h, Minute: m}, nil
}

func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// DurationHours returns end-start in hours; it is negative or zero when the
// range is invalid.
func DurationHours(start, end Clock) float64 {
	return float64(end.Minutes()-start.Minutes()) / 60
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Ranges that only touch at a boundary do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd Clock) bool {
	return aStart.Minutes() < bEnd.Minutes() && aEnd.Minutes() > bStart.Minutes()
}

func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// Day truncates t to midnight of its calendar day in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// At combines the calendar day of date with c in loc.
func At(date time.Time, c Clock, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour, c.Minute, 0, 0, loc)
}

// WithinCancellationWindow reports whether a lesson ending at end is too
// close to be cancelled at now.
func WithinCancellationWindow(now, end time.Time) bool {
	return end.Sub(now) < CancellationWindow
}

// HoursUntil returns the hours from now to t, negative once t has passed.
func HoursUntil(now, t time.Time) float64 {
	return t.Sub(now).Hours()
}

// IsExpired reports whether expiresAt lies strictly before now.
func IsExpired(now, expiresAt time.Time) bool {
	return expiresAt.Before(now)
}

// RefundPercent maps the notice given before a lesson to the refunded share.
func RefundPercent(notice time.Duration) int {
	switch {
	case notice >= FullRefundNotice:
		return 100
	case notice >= HalfRefundNotice:
		return 50
	default:
		return 0
	}
}

// Weekdays is a set of days of the week.
type Weekdays [7]bool

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekdays accepts weekday names in any case.
func ParseWeekdays(names []string) (Weekdays, error) {
	var set Weekdays
	for _, n := range names {
		d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return Weekdays{}, ErrInvalidWeekday
		}
		set[d] = true
	}
	return set, nil
}

func (w Weekdays) Has(d time.Weekday) bool {
	return w[d]
}

func (w Weekdays) Len() int {
	n := 0
	for _, ok := range w {
		if ok {
			n++
		}
	}
	return n
}

// Names returns the lowercase names of the set, Sunday first.
func (w Weekdays) Names() []string {
	names := make([]string, 0, w.Len())
	for d, ok := range w {
		if ok {
			names = append(names, strings.ToLower(time.Weekday(d).String()))
		}
	}
	return names
}

// RemainingMonthDays lists every day from start through the last day of
// start's month whose weekday is in days.
func RemainingMonthDays(start time.Time, days Weekdays) []time.Time {
	var out []time.Time
	month := start.Month()
	for d := start; d.Month() == month; d = d.AddDate(0, 0, 1) {
		if days.Has(d.Weekday()) {
			out = append(out, d)
		}
	}
	return out
}
