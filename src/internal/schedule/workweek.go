// Package schedule holds the pure calendar and hours arithmetic: working-day
// counting under the Sunday-Thursday work week, hour mapping for schedule
// cell values, sprint boundary derivation and completion percentages.
// Nothing in this package touches I/O.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/team-pulse/availability-service/src/internal/model"
)

const (
	// FullDayHours is the standard working day length.
	FullDayHours = 7.0
	HalfDayHours = 3.5
)

var (
	ErrUnknownDayValue    = errors.New("unrecognized day value")
	ErrNonPositiveMembers = errors.New("member count must be positive")
)

// HoursForValue maps a schedule cell value to hours. Unrecognized values are
// an error rather than silently counting as a worked day.
func HoursForValue(v model.DayValue) (float64, error) {
	switch v {
	case model.DayFull:
		return FullDayHours, nil
	case model.DayHalf:
		return HalfDayHours, nil
	case model.DayAbsent:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDayValue, string(v))
	}
}

// IsWorkingDay reports whether the date falls on a working day.
// The work week runs Sunday through Thursday; Friday and Saturday never count.
func IsWorkingDay(date time.Time) bool {
	wd := date.Weekday()
	return wd != time.Friday && wd != time.Saturday
}

// WorkingDays counts the working days in [start, end] inclusive.
// Returns 0 when end is before start.
func WorkingDays(start, end time.Time) int {
	start = DateOnly(start)
	end = DateOnly(end)
	if end.Before(start) {
		return 0
	}
	n := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsWorkingDay(d) {
			n++
		}
	}
	return n
}

// WorkingDates lists the working days in [start, end] inclusive, normalized
// to UTC midnight.
func WorkingDates(start, end time.Time) []time.Time {
	start = DateOnly(start)
	end = DateOnly(end)
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsWorkingDay(d) {
			dates = append(dates, d)
		}
	}
	return dates
}

// SprintPotential is the theoretical capacity for a period:
// members x working days x full day length.
func SprintPotential(memberCount int, start, end time.Time) (float64, error) {
	if memberCount <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrNonPositiveMembers, memberCount)
	}
	return float64(memberCount) * float64(WorkingDays(start, end)) * FullDayHours, nil
}

// PlannedHours sums the hours of the given entries. An explicit Hours
// override on an entry takes precedence over its Value mapping. Empty
// input sums to 0; the sum is associative under concatenation.
func PlannedHours(entries []model.ScheduleEntry) (float64, error) {
	total := 0.0
	for _, e := range entries {
		if e.Hours != nil {
			total += *e.Hours
			continue
		}
		h, err := HoursForValue(e.Value)
		if err != nil {
			return 0, fmt.Errorf("entry %s/%s: %w", e.MemberID, e.Date.Format(time.DateOnly), err)
		}
		total += h
	}
	return total, nil
}

// CompletionPercent is submitted / potential x 100, clamped to [0, 100].
// Zero or negative potential yields exactly 0, never NaN or Inf.
func CompletionPercent(submitted, potential float64) float64 {
	if potential <= 0 {
		return 0
	}
	pct := submitted / potential * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// DateOnly truncates t to its calendar date at UTC midnight.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Sunday starting the week containing t, at UTC midnight.
func WeekStart(t time.Time) time.Time {
	d := DateOnly(t)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// WeekEnd returns the Saturday ending the week containing t. The working part
// of the week ends the preceding Thursday.
func WeekEnd(t time.Time) time.Time {
	return WeekStart(t).AddDate(0, 0, 6)
}
