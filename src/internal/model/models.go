package model

import "time"

// DayValue is the raw value of a single schedule cell.
type DayValue string

const (
	DayFull   DayValue = "1"
	DayHalf   DayValue = "0.5"
	DayAbsent DayValue = "X"
)

// Valid reports whether v is one of the three recognized cell values.
func (v DayValue) Valid() bool {
	return v == DayFull || v == DayHalf || v == DayAbsent
}

type Team struct {
	TeamID            string       `json:"team_id"`
	TeamName          string       `json:"team_name"`
	Description       string       `json:"description,omitempty"`
	Color             string       `json:"color,omitempty"`
	SprintLengthWeeks int          `json:"sprint_length_weeks"`
	SprintStartRef    time.Time    `json:"sprint_start_ref"`
	Members           []TeamMember `json:"members,omitempty"`
}

type TeamMember struct {
	MemberID      string     `json:"member_id"`
	TeamID        string     `json:"team_id,omitempty"`
	MemberName    string     `json:"member_name"`
	LocalName     string     `json:"local_name,omitempty"`
	Role          string     `json:"role,omitempty"`
	IsManager     bool       `json:"is_manager"`
	IsCritical    bool       `json:"is_critical"`
	InactiveSince *time.Time `json:"inactive_since,omitempty"`
}

// ActiveOn reports whether the member is still active on the given date.
func (m TeamMember) ActiveOn(date time.Time) bool {
	return m.InactiveSince == nil || date.Before(*m.InactiveSince)
}

// ScheduleEntry is the atomic fact: one cell per (member, date).
// Hours, when set, is a pre-resolved override that takes precedence
// over the mapping of Value.
type ScheduleEntry struct {
	MemberID  string    `json:"member_id"`
	Date      time.Time `json:"date"`
	Value     DayValue  `json:"value"`
	Hours     *float64  `json:"hours,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type Sprint struct {
	TeamID    string    `json:"team_id"`
	Number    int       `json:"sprint_number"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

type AppError string

func (e AppError) Error() string { return string(e) }

const (
	ErrNotFound     = AppError("NOT_FOUND")
	ErrTeamExists   = AppError("TEAM_EXISTS")
	ErrMemberExists = AppError("MEMBER_EXISTS")
)
