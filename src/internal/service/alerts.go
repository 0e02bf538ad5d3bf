package service

import (
	"context"
	"fmt"
	"time"

	"github.com/team-pulse/availability-service/src/internal/metrics"
	"github.com/team-pulse/availability-service/src/internal/schedule"
)

type AlertType string

const (
	AlertMissingSubmission AlertType = "missing_submission"
	AlertPartialSubmission AlertType = "partial_submission"
	AlertCriticalAbsence   AlertType = "critical_absence"
	AlertTeamUnavailable   AlertType = "team_unavailable"
)

type Alert struct {
	Type       AlertType `json:"type"`
	TeamID     string    `json:"team_id"`
	TeamName   string    `json:"team_name"`
	MemberID   string    `json:"member_id,omitempty"`
	MemberName string    `json:"member_name,omitempty"`
	Message    string    `json:"message"`
}

// GetAlerts returns the current-week alerts, for a single team or, with an
// empty teamID, across all teams. Alert data is higher-volatility than the
// analytics reports, so it lives behind a much shorter TTL.
func (s *Service) GetAlerts(ctx context.Context, teamID string) ([]Alert, error) {
	week := schedule.WeekStart(s.now())
	key := fmt.Sprintf("alerts:%s:%s", teamID, week.Format(time.DateOnly))
	return s.alerts.GetOrFetch(ctx, key, s.alertsTTL, 0, func(ctx context.Context) ([]Alert, error) {
		return s.buildAlerts(ctx, teamID, week)
	})
}

func (s *Service) buildAlerts(ctx context.Context, teamID string, weekStart time.Time) ([]Alert, error) {
	started := time.Now()
	defer func() { metrics.RecordReportDuration("alerts", time.Since(started)) }()

	var reports []TeamReport
	if teamID != "" {
		tr, err := s.buildTeamReport(ctx, teamID, weekStart)
		if err != nil {
			return nil, err
		}
		reports = []TeamReport{tr}
	} else {
		company, err := s.buildCompanyReport(ctx, weekStart)
		if err != nil {
			return nil, err
		}
		reports = company.Teams
	}

	alerts := []Alert{}
	for _, tr := range reports {
		if tr.Unavailable {
			alerts = append(alerts, Alert{
				Type:     AlertTeamUnavailable,
				TeamID:   tr.TeamID,
				TeamName: tr.TeamName,
				Message:  "availability data could not be loaded for this team",
			})
			continue
		}
		for _, mr := range tr.Members {
			switch mr.Status {
			case StatusMissing:
				alerts = append(alerts, Alert{
					Type:       AlertMissingSubmission,
					TeamID:     tr.TeamID,
					TeamName:   tr.TeamName,
					MemberID:   mr.MemberID,
					MemberName: mr.MemberName,
					Message:    "no schedule submitted for the current week",
				})
			case StatusPartial:
				alerts = append(alerts, Alert{
					Type:       AlertPartialSubmission,
					TeamID:     tr.TeamID,
					TeamName:   tr.TeamName,
					MemberID:   mr.MemberID,
					MemberName: mr.MemberName,
					Message: fmt.Sprintf("schedule covers %d of %d expected days",
						mr.SubmittedDays, mr.ExpectedDays),
				})
			}
			if mr.IsCritical && mr.AbsentDays > 0 {
				alerts = append(alerts, Alert{
					Type:       AlertCriticalAbsence,
					TeamID:     tr.TeamID,
					TeamName:   tr.TeamName,
					MemberID:   mr.MemberID,
					MemberName: mr.MemberName,
					Message:    fmt.Sprintf("critical member absent %d day(s) this week", mr.AbsentDays),
				})
			}
		}
	}
	return alerts, nil
}
