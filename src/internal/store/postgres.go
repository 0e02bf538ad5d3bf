package store

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/team-pulse/availability-service/src/internal/model"
)

type Repository interface {
	CreateTeam(ctx context.Context, t model.Team) (model.Team, error)
	GetTeam(ctx context.Context, teamID string) (model.Team, error)
	ListTeams(ctx context.Context) ([]model.Team, error)
	UpdateTeamSprintConfig(ctx context.Context, teamID string, startRef time.Time, lengthWeeks int) (model.Team, error)

	GetTeamMembers(ctx context.Context, teamID string) ([]model.TeamMember, error)
	GetMember(ctx context.Context, memberID string) (model.TeamMember, error)
	SetMemberInactiveSince(ctx context.Context, memberID string, since *time.Time) (model.TeamMember, error)

	UpsertScheduleEntry(ctx context.Context, e model.ScheduleEntry) error
	GetMemberEntries(ctx context.Context, memberID string, from, to time.Time) ([]model.ScheduleEntry, error)
	GetTeamEntries(ctx context.Context, teamID string, from, to time.Time) ([]model.ScheduleEntry, error)

	UpsertSprint(ctx context.Context, s model.Sprint) error
	GetStoredSprint(ctx context.Context, teamID string, number int) (model.Sprint, error)
	ListSprints(ctx context.Context, teamID string) ([]model.Sprint, error)
}

type Repositories struct {
	DB      *sql.DB
	Log     *zap.Logger
	Teams   *TeamRepo
	Members *MemberRepo
	Entries *EntryRepo
	Sprints *SprintRepo
}

func NewRepositories(db *sql.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		DB:      db,
		Log:     logger,
		Teams:   NewTeamRepo(db, logger),
		Members: NewMemberRepo(db, logger),
		Entries: NewEntryRepo(db, logger),
		Sprints: NewSprintRepo(db, logger),
	}
}

func (r *Repositories) BeginTx(ctx context.Context) (*sql.Tx, error) {
	r.Log.Debug("BeginTx called")
	return r.DB.BeginTx(ctx, &sql.TxOptions{})
}
