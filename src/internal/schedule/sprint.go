package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/team-pulse/availability-service/src/internal/model"
)

const (
	MinSprintWeeks = 1
	MaxSprintWeeks = 4
)

var ErrSprintLength = errors.New("sprint length must be between 1 and 4 weeks")

// ValidateSprintLength rejects sprint lengths outside [MinSprintWeeks, MaxSprintWeeks].
func ValidateSprintLength(weeks int) error {
	if weeks < MinSprintWeeks || weeks > MaxSprintWeeks {
		return fmt.Errorf("%w: got %d", ErrSprintLength, weeks)
	}
	return nil
}

// SprintWindow derives the boundaries of sprint `number` (1-based) for a team
// whose first sprint starts at ref and whose sprints are lengthWeeks long.
// This is the single source of truth for sprint boundaries; stored sprint
// rows are a cache of its output, recomputed on read.
func SprintWindow(ref time.Time, lengthWeeks, number int) (start, end time.Time, err error) {
	if err := ValidateSprintLength(lengthWeeks); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if number < 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("sprint number must be positive, got %d", number)
	}
	days := lengthWeeks * 7
	start = DateOnly(ref).AddDate(0, 0, (number-1)*days)
	end = start.AddDate(0, 0, days-1)
	return start, end, nil
}

// SprintForDate locates the sprint containing `at`. Dates before the
// reference start belong to sprint 1, so the function is total over time.
func SprintForDate(teamID string, ref time.Time, lengthWeeks int, at time.Time) (model.Sprint, error) {
	if err := ValidateSprintLength(lengthWeeks); err != nil {
		return model.Sprint{}, err
	}
	refDay := DateOnly(ref)
	atDay := DateOnly(at)

	number := 1
	if !atDay.Before(refDay) {
		elapsed := int(atDay.Sub(refDay).Hours() / 24)
		number = elapsed/(lengthWeeks*7) + 1
	}

	start, end, err := SprintWindow(refDay, lengthWeeks, number)
	if err != nil {
		return model.Sprint{}, err
	}
	return model.Sprint{TeamID: teamID, Number: number, StartDate: start, EndDate: end}, nil
}
