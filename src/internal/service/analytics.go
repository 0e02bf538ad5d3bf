package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/team-pulse/availability-service/src/internal/metrics"
	"github.com/team-pulse/availability-service/src/internal/model"
	"github.com/team-pulse/availability-service/src/internal/schedule"
)

// MemberStatus classifies one member's submission for a week.
type MemberStatus string

const (
	StatusComplete MemberStatus = "complete"
	StatusPartial  MemberStatus = "partial"
	StatusMissing  MemberStatus = "missing"
	// StatusUnavailable means the member's data could not be fetched.
	// It is a degraded result, not an error: one member's failed fetch
	// must not sink the whole report.
	StatusUnavailable MemberStatus = "unavailable"
)

type MemberWeekReport struct {
	MemberID      string       `json:"member_id"`
	MemberName    string       `json:"member_name"`
	IsCritical    bool         `json:"is_critical,omitempty"`
	Status        MemberStatus `json:"status"`
	ExpectedDays  int          `json:"expected_days"`
	SubmittedDays int          `json:"submitted_days"`
	AbsentDays    int          `json:"absent_days"`
	PlannedHours  float64      `json:"planned_hours"`
}

type TeamReport struct {
	TeamID          string             `json:"team_id"`
	TeamName        string             `json:"team_name"`
	WeekStart       time.Time          `json:"week_start"`
	WeekEnd         time.Time          `json:"week_end"`
	Members         []MemberWeekReport `json:"members,omitempty"`
	CountedMembers  int                `json:"counted_members"`
	CompleteMembers int                `json:"complete_members"`
	PotentialHours  float64            `json:"potential_hours"`
	SubmittedHours  float64            `json:"submitted_hours"`
	CompletionPct   float64            `json:"completion_pct"`
	SubmissionPct   float64            `json:"submission_pct"`
	Unavailable     bool               `json:"unavailable,omitempty"`
}

type CompanyReport struct {
	WeekStart        time.Time    `json:"week_start"`
	Teams            []TeamReport `json:"teams"`
	TotalMembers     int          `json:"total_members"`
	CompleteMembers  int          `json:"complete_members"`
	SubmissionPct    float64      `json:"submission_pct"`
	UnavailableTeams int          `json:"unavailable_teams,omitempty"`
}

type SprintReport struct {
	TeamID         string       `json:"team_id"`
	TeamName       string       `json:"team_name"`
	Sprint         model.Sprint `json:"sprint"`
	WorkingDays    int          `json:"working_days"`
	MemberCount    int          `json:"member_count"`
	PotentialHours float64      `json:"potential_hours"`
	SubmittedHours float64      `json:"submitted_hours"`
	CompletionPct  float64      `json:"completion_pct"`
}

// companyFanOutLimit bounds concurrent per-team report builds in the
// company rollup.
const companyFanOutLimit = 4

// GetTeamReport serves the team's current-week report through the
// analytics cache.
func (s *Service) GetTeamReport(ctx context.Context, teamID string) (TeamReport, error) {
	week := schedule.WeekStart(s.now())
	key := fmt.Sprintf("team:%s:%s", teamID, week.Format(time.DateOnly))
	return s.teamReports.GetOrFetch(ctx, key, s.analyticsTTL, s.staleAfter, func(ctx context.Context) (TeamReport, error) {
		return s.buildTeamReport(ctx, teamID, week)
	})
}

// GetCompanyReport serves the company-wide rollup through the cache.
func (s *Service) GetCompanyReport(ctx context.Context) (CompanyReport, error) {
	week := schedule.WeekStart(s.now())
	key := "company:" + week.Format(time.DateOnly)
	return s.companyReports.GetOrFetch(ctx, key, s.analyticsTTL, s.staleAfter, func(ctx context.Context) (CompanyReport, error) {
		return s.buildCompanyReport(ctx, week)
	})
}

// GetSprintReport serves the current-sprint completion report.
func (s *Service) GetSprintReport(ctx context.Context, teamID string) (SprintReport, error) {
	sprint, err := s.GetCurrentSprint(ctx, teamID)
	if err != nil {
		return SprintReport{}, err
	}
	key := fmt.Sprintf("sprint:%s:%d", teamID, sprint.Number)
	return s.sprintReports.GetOrFetch(ctx, key, s.analyticsTTL, s.staleAfter, func(ctx context.Context) (SprintReport, error) {
		return s.buildSprintReport(ctx, teamID, sprint)
	})
}

// resolveMemberWeek classifies one member's submission for the week.
// A failed fetch degrades to StatusUnavailable with a logged warning.
func (s *Service) resolveMemberWeek(ctx context.Context, m model.TeamMember, weekStart, weekEnd time.Time) MemberWeekReport {
	report := MemberWeekReport{
		MemberID:   m.MemberID,
		MemberName: m.MemberName,
		IsCritical: m.IsCritical,
	}

	for _, d := range schedule.WorkingDates(weekStart, weekEnd) {
		if m.ActiveOn(d) {
			report.ExpectedDays++
		}
	}

	entries, err := s.repo.GetMemberEntries(ctx, m.MemberID, weekStart, weekEnd)
	if err != nil {
		s.log.Warn("resolveMemberWeek: entries fetch failed",
			zap.String("member", m.MemberID), zap.Error(err))
		report.Status = StatusUnavailable
		return report
	}

	for _, e := range entries {
		if !schedule.IsWorkingDay(e.Date) {
			continue
		}
		report.SubmittedDays++
		if e.Value == model.DayAbsent {
			report.AbsentDays++
		}
	}

	planned, err := schedule.PlannedHours(entries)
	if err != nil {
		s.log.Warn("resolveMemberWeek: planned hours failed",
			zap.String("member", m.MemberID), zap.Error(err))
		report.Status = StatusUnavailable
		return report
	}
	report.PlannedHours = planned

	switch {
	case report.ExpectedDays > 0 && report.SubmittedDays >= report.ExpectedDays:
		report.Status = StatusComplete
	case report.SubmittedDays > 0:
		report.Status = StatusPartial
	default:
		report.Status = StatusMissing
	}
	return report
}

func (s *Service) buildTeamReport(ctx context.Context, teamID string, weekStart time.Time) (TeamReport, error) {
	started := time.Now()
	defer func() { metrics.RecordReportDuration("team", time.Since(started)) }()

	t, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return TeamReport{}, err
	}

	weekEnd := weekStart.AddDate(0, 0, 6)
	report := TeamReport{
		TeamID:    t.TeamID,
		TeamName:  t.TeamName,
		WeekStart: weekStart,
		WeekEnd:   weekEnd,
	}

	for _, m := range t.Members {
		mr := s.resolveMemberWeek(ctx, m, weekStart, weekEnd)
		if mr.ExpectedDays == 0 && mr.Status != StatusUnavailable {
			// Inactive for the whole week: not counted against the team.
			continue
		}
		report.Members = append(report.Members, mr)
		report.CountedMembers++
		report.PotentialHours += float64(mr.ExpectedDays) * schedule.FullDayHours
		report.SubmittedHours += mr.PlannedHours
		if mr.Status == StatusComplete {
			report.CompleteMembers++
		}
	}

	report.CompletionPct = schedule.CompletionPercent(report.SubmittedHours, report.PotentialHours)
	if report.CountedMembers > 0 {
		report.SubmissionPct = float64(report.CompleteMembers) / float64(report.CountedMembers) * 100
	}
	return report, nil
}

// buildCompanyReport fans out across teams. One team's failure yields an
// unavailable placeholder row; the other teams' results are unaffected.
// Weighting is by member count, not team count.
func (s *Service) buildCompanyReport(ctx context.Context, weekStart time.Time) (CompanyReport, error) {
	started := time.Now()
	defer func() { metrics.RecordReportDuration("company", time.Since(started)) }()

	teams, err := s.repo.ListTeams(ctx)
	if err != nil {
		// The team list is the critical fetch: without it there is
		// nothing to degrade to.
		return CompanyReport{}, err
	}

	reports := make([]TeamReport, len(teams))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(companyFanOutLimit)
	for i, t := range teams {
		i, t := i, t
		g.Go(func() error {
			tr, err := s.buildTeamReport(gctx, t.TeamID, weekStart)
			if err != nil {
				s.log.Warn("buildCompanyReport: team report failed",
					zap.String("team", t.TeamID), zap.Error(err))
				tr = TeamReport{
					TeamID:      t.TeamID,
					TeamName:    t.TeamName,
					WeekStart:   weekStart,
					WeekEnd:     weekStart.AddDate(0, 0, 6),
					Unavailable: true,
				}
			}
			reports[i] = tr
			return nil
		})
	}
	_ = g.Wait()

	company := CompanyReport{WeekStart: weekStart, Teams: reports}
	for _, tr := range reports {
		if tr.Unavailable {
			company.UnavailableTeams++
			continue
		}
		company.TotalMembers += tr.CountedMembers
		company.CompleteMembers += tr.CompleteMembers
	}
	if company.TotalMembers > 0 {
		company.SubmissionPct = float64(company.CompleteMembers) / float64(company.TotalMembers) * 100
	}
	return company, nil
}

func (s *Service) buildSprintReport(ctx context.Context, teamID string, sprint model.Sprint) (SprintReport, error) {
	started := time.Now()
	defer func() { metrics.RecordReportDuration("sprint", time.Since(started)) }()

	t, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return SprintReport{}, err
	}

	active := 0
	for _, m := range t.Members {
		if m.ActiveOn(sprint.StartDate) {
			active++
		}
	}

	report := SprintReport{
		TeamID:      t.TeamID,
		TeamName:    t.TeamName,
		Sprint:      sprint,
		WorkingDays: schedule.WorkingDays(sprint.StartDate, sprint.EndDate),
		MemberCount: active,
	}

	if active > 0 {
		potential, err := schedule.SprintPotential(active, sprint.StartDate, sprint.EndDate)
		if err != nil {
			return SprintReport{}, err
		}
		report.PotentialHours = potential
	}

	entries, err := s.repo.GetTeamEntries(ctx, teamID, sprint.StartDate, sprint.EndDate)
	if err != nil {
		return SprintReport{}, err
	}
	submitted, err := schedule.PlannedHours(entries)
	if err != nil {
		return SprintReport{}, err
	}
	report.SubmittedHours = submitted
	report.CompletionPct = schedule.CompletionPercent(submitted, report.PotentialHours)
	return report, nil
}
