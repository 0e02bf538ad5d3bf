package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/team-pulse/availability-service/src/internal/api/apiErrors"
	"github.com/team-pulse/availability-service/src/internal/cache"
	"github.com/team-pulse/availability-service/src/internal/model"
	"github.com/team-pulse/availability-service/src/internal/schedule"
	"github.com/team-pulse/availability-service/src/internal/store"
)

type Service struct {
	repo store.Repository
	log  *zap.Logger

	teamReports    *cache.Cache[TeamReport]
	sprintReports  *cache.Cache[SprintReport]
	companyReports *cache.Cache[CompanyReport]
	alerts         *cache.Cache[[]Alert]

	analyticsTTL time.Duration
	alertsTTL    time.Duration
	staleAfter   time.Duration

	now func() time.Time
}

// Options tune the analytics cache. Zero values fall back to the defaults
// in the cache package.
type Options struct {
	AnalyticsTTL  time.Duration
	AlertsTTL     time.Duration
	StaleAfter    time.Duration
	SweepInterval time.Duration
}

func NewService(repo store.Repository, logger *zap.Logger, opts Options) *Service {
	if opts.AnalyticsTTL <= 0 {
		opts.AnalyticsTTL = cache.DefaultAnalyticsTTL
	}
	if opts.AlertsTTL <= 0 {
		opts.AlertsTTL = cache.DefaultAlertsTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = cache.DefaultSweepInterval
	}
	return &Service{
		repo:           repo,
		log:            logger,
		teamReports:    cache.New[TeamReport](logger, opts.SweepInterval),
		sprintReports:  cache.New[SprintReport](logger, opts.SweepInterval),
		companyReports: cache.New[CompanyReport](logger, opts.SweepInterval),
		alerts:         cache.New[[]Alert](logger, opts.SweepInterval),
		analyticsTTL:   opts.AnalyticsTTL,
		alertsTTL:      opts.AlertsTTL,
		staleAfter:     opts.StaleAfter,
		now:            time.Now,
	}
}

// Close stops the cache janitors.
func (s *Service) Close() {
	s.teamReports.Stop()
	s.sprintReports.Stop()
	s.companyReports.Stop()
	s.alerts.Stop()
}

// invalidateTeam drops every cached aggregate an entry or config write for
// this team could have changed. A write acknowledged to the caller must
// never be shadowed by a cached read.
func (s *Service) invalidateTeam(teamID string) {
	s.teamReports.InvalidatePrefix("team:" + teamID)
	s.sprintReports.InvalidatePrefix("sprint:" + teamID)
	s.alerts.InvalidatePrefix("alerts:")
	s.companyReports.InvalidatePrefix("company:")
}

func (s *Service) CreateTeam(ctx context.Context, t model.Team) (model.Team, error) {
	if t.TeamName == "" {
		return model.Team{}, apiErrors.APIError{Code: apiErrors.ValidationFailed, Message: "team_name required"}
	}
	if err := schedule.ValidateSprintLength(t.SprintLengthWeeks); err != nil {
		return model.Team{}, apiErrors.APIError{Code: apiErrors.ValidationFailed, Message: err.Error()}
	}
	for _, m := range t.Members {
		if m.MemberName == "" {
			return model.Team{}, apiErrors.APIError{Code: apiErrors.ValidationFailed, Message: "all members must have member_name"}
		}
	}
	if t.SprintStartRef.IsZero() {
		t.SprintStartRef = schedule.WeekStart(s.now())
	} else {
		t.SprintStartRef = schedule.DateOnly(t.SprintStartRef)
	}

	created, err := s.repo.CreateTeam(ctx, t)
	if err != nil {
		if errors.Is(err, model.ErrTeamExists) {
			return model.Team{}, apiErrors.APIError{Code: apiErrors.TeamExists, Message: "team_name already exists"}
		}
		return model.Team{}, err
	}

	s.companyReports.InvalidatePrefix("company:")
	return created, nil
}

func (s *Service) GetTeam(ctx context.Context, teamID string) (model.Team, error) {
	t, err := s.repo.GetTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Team{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "team not found"}
		}
		return model.Team{}, err
	}
	return t, nil
}

func (s *Service) ListTeams(ctx context.Context) ([]model.Team, error) {
	return s.repo.ListTeams(ctx)
}

func (s *Service) SetMemberInactive(ctx context.Context, memberID string, since *time.Time) (model.TeamMember, error) {
	if since != nil {
		d := schedule.DateOnly(*since)
		since = &d
	}
	m, err := s.repo.SetMemberInactiveSince(ctx, memberID, since)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.TeamMember{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "member not found"}
		}
		return model.TeamMember{}, err
	}
	s.invalidateTeam(m.TeamID)
	return m, nil
}

// UpsertScheduleEntry validates synchronously before any I/O: an invalid
// value or an unknown member is rejected without touching the database.
func (s *Service) UpsertScheduleEntry(ctx context.Context, e model.ScheduleEntry) (model.ScheduleEntry, error) {
	if !e.Value.Valid() {
		return model.ScheduleEntry{}, apiErrors.APIError{
			Code:    apiErrors.ValidationFailed,
			Message: fmt.Sprintf("value must be one of '1', '0.5', 'X', got %q", string(e.Value)),
		}
	}
	if e.Date.IsZero() {
		return model.ScheduleEntry{}, apiErrors.APIError{Code: apiErrors.ValidationFailed, Message: "date required"}
	}
	e.Date = schedule.DateOnly(e.Date)

	member, err := s.repo.GetMember(ctx, e.MemberID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ScheduleEntry{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "member not found"}
		}
		return model.ScheduleEntry{}, err
	}

	if err := s.repo.UpsertScheduleEntry(ctx, e); err != nil {
		return model.ScheduleEntry{}, err
	}
	s.invalidateTeam(member.TeamID)
	return e, nil
}

func (s *Service) GetMemberEntries(ctx context.Context, memberID string, from, to time.Time) ([]model.ScheduleEntry, error) {
	if to.Before(from) {
		return nil, apiErrors.APIError{Code: apiErrors.ValidationFailed, Message: "to must not be before from"}
	}
	if _, err := s.repo.GetMember(ctx, memberID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, apiErrors.APIError{Code: apiErrors.NotFound, Message: "member not found"}
		}
		return nil, err
	}
	return s.repo.GetMemberEntries(ctx, memberID, schedule.DateOnly(from), schedule.DateOnly(to))
}

// GetCurrentSprint derives the current sprint from the team's configuration
// and refreshes the stored row. The stored row is a cache of the derivation,
// never an independent source of truth, so a failed upsert only degrades to
// a warning.
func (s *Service) GetCurrentSprint(ctx context.Context, teamID string) (model.Sprint, error) {
	t, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return model.Sprint{}, err
	}

	sprint, err := schedule.SprintForDate(t.TeamID, t.SprintStartRef, t.SprintLengthWeeks, s.now())
	if err != nil {
		return model.Sprint{}, apiErrors.APIError{Code: apiErrors.ValidationFailed, Message: err.Error()}
	}

	if err := s.repo.UpsertSprint(ctx, sprint); err != nil {
		s.log.Warn("GetCurrentSprint: storing derived sprint failed",
			zap.String("team", teamID), zap.Int("number", sprint.Number), zap.Error(err))
	}
	return sprint, nil
}

// ConfigureSprints sets the reference start date and length for a team's
// sprints. All sprint boundaries, past and future, are re-derived from this
// configuration.
func (s *Service) ConfigureSprints(ctx context.Context, teamID string, startRef time.Time, lengthWeeks int) (model.Sprint, error) {
	if err := schedule.ValidateSprintLength(lengthWeeks); err != nil {
		return model.Sprint{}, apiErrors.APIError{Code: apiErrors.ValidationFailed, Message: err.Error()}
	}
	if startRef.IsZero() {
		return model.Sprint{}, apiErrors.APIError{Code: apiErrors.ValidationFailed, Message: "start_date required"}
	}

	if _, err := s.repo.UpdateTeamSprintConfig(ctx, teamID, schedule.DateOnly(startRef), lengthWeeks); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Sprint{}, apiErrors.APIError{Code: apiErrors.NotFound, Message: "team not found"}
		}
		return model.Sprint{}, err
	}

	s.invalidateTeam(teamID)
	return s.GetCurrentSprint(ctx, teamID)
}

// UpdateSprintDates moves the sprint reference start, keeping the length.
func (s *Service) UpdateSprintDates(ctx context.Context, teamID string, startRef time.Time) (model.Sprint, error) {
	t, err := s.GetTeam(ctx, teamID)
	if err != nil {
		return model.Sprint{}, err
	}
	return s.ConfigureSprints(ctx, teamID, startRef, t.SprintLengthWeeks)
}

func (s *Service) ListSprints(ctx context.Context, teamID string) ([]model.Sprint, error) {
	if _, err := s.GetTeam(ctx, teamID); err != nil {
		return nil, err
	}
	return s.repo.ListSprints(ctx, teamID)
}
