package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/team-pulse/availability-service/src/internal/model"
)

type TeamRepo struct {
	db  *sql.DB
	log *zap.Logger
}

func NewTeamRepo(db *sql.DB, logger *zap.Logger) *TeamRepo {
	return &TeamRepo{db: db, log: logger}
}

func (r *Repositories) CreateTeam(ctx context.Context, t model.Team) (model.Team, error) {
	r.Log.Debug("TeamRepo.CreateTeam: start", zap.String("team", t.TeamName))
	tx, err := r.Teams.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		r.Log.Error("TeamRepo.CreateTeam: begin tx failed", zap.Error(err))
		return model.Team{}, err
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			r.Log.Warn("TeamRepo.CreateTeam: rollback failed", zap.Error(err))
		}
	}()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM teams WHERE team_name=$1)`, t.TeamName).Scan(&exists); err != nil {
		r.Log.Error("TeamRepo.CreateTeam: check team exists failed", zap.Error(err))
		return model.Team{}, err
	}
	if exists {
		r.Log.Debug("TeamRepo.CreateTeam: team name taken", zap.String("team", t.TeamName))
		return model.Team{}, model.ErrTeamExists
	}

	if t.TeamID == "" {
		t.TeamID = uuid.New().String()
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO teams(team_id, team_name, description, color, sprint_length_weeks, sprint_start_ref)
		 VALUES($1,$2,$3,$4,$5,$6)`,
		t.TeamID, t.TeamName, t.Description, t.Color, t.SprintLengthWeeks, t.SprintStartRef); err != nil {
		r.Log.Error("TeamRepo.CreateTeam: insert team failed", zap.Error(err))
		return model.Team{}, err
	}

	for i := range t.Members {
		m := &t.Members[i]
		if m.MemberID == "" {
			m.MemberID = uuid.New().String()
		}
		m.TeamID = t.TeamID
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO team_members(member_id, team_id, member_name, local_name, role, is_manager, is_critical, inactive_since)
			 VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
			m.MemberID, t.TeamID, m.MemberName, m.LocalName, m.Role, m.IsManager, m.IsCritical, m.InactiveSince); err != nil {
			r.Log.Error("TeamRepo.CreateTeam: insert member failed", zap.String("member", m.MemberName), zap.Error(err))
			return model.Team{}, err
		}
		r.Log.Debug("TeamRepo.CreateTeam: inserted member", zap.String("member", m.MemberID))
	}

	if err := tx.Commit(); err != nil {
		r.Log.Error("TeamRepo.CreateTeam: commit failed", zap.Error(err))
		return model.Team{}, err
	}

	r.Log.Info("TeamRepo.CreateTeam: success", zap.String("team", t.TeamName), zap.Int("members", len(t.Members)))
	return t, nil
}

func (r *Repositories) GetTeam(ctx context.Context, teamID string) (model.Team, error) {
	r.Log.Debug("TeamRepo.GetTeam: start", zap.String("team", teamID))
	var t model.Team
	if err := r.Teams.db.QueryRowContext(ctx,
		`SELECT team_id, team_name, description, color, sprint_length_weeks, sprint_start_ref
		 FROM teams WHERE team_id=$1`, teamID).
		Scan(&t.TeamID, &t.TeamName, &t.Description, &t.Color, &t.SprintLengthWeeks, &t.SprintStartRef); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("TeamRepo.GetTeam: not found", zap.String("team", teamID))
			return model.Team{}, model.ErrNotFound
		}
		r.Log.Error("TeamRepo.GetTeam: query failed", zap.Error(err))
		return model.Team{}, err
	}

	members, err := r.GetTeamMembers(ctx, teamID)
	if err != nil {
		return model.Team{}, err
	}
	t.Members = members

	r.Log.Debug("TeamRepo.GetTeam: success", zap.String("team", teamID), zap.Int("members", len(t.Members)))
	return t, nil
}

func (r *Repositories) UpdateTeamSprintConfig(ctx context.Context, teamID string, startRef time.Time, lengthWeeks int) (model.Team, error) {
	r.Log.Debug("TeamRepo.UpdateTeamSprintConfig: start",
		zap.String("team", teamID), zap.Time("start_ref", startRef), zap.Int("weeks", lengthWeeks))

	res, err := r.Teams.db.ExecContext(ctx,
		`UPDATE teams SET sprint_start_ref=$2, sprint_length_weeks=$3 WHERE team_id=$1`,
		teamID, startRef, lengthWeeks)
	if err != nil {
		r.Log.Error("TeamRepo.UpdateTeamSprintConfig: update failed", zap.Error(err))
		return model.Team{}, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		r.Log.Debug("TeamRepo.UpdateTeamSprintConfig: team not found", zap.String("team", teamID))
		return model.Team{}, model.ErrNotFound
	}

	t, err := r.GetTeam(ctx, teamID)
	if err != nil {
		return model.Team{}, err
	}
	r.Log.Info("TeamRepo.UpdateTeamSprintConfig: success", zap.String("team", teamID))
	return t, nil
}

func (r *Repositories) ListTeams(ctx context.Context) ([]model.Team, error) {
	r.Log.Debug("TeamRepo.ListTeams: start")
	rows, err := r.Teams.db.QueryContext(ctx,
		`SELECT team_id, team_name, description, color, sprint_length_weeks, sprint_start_ref
		 FROM teams ORDER BY team_name`)
	if err != nil {
		r.Log.Error("TeamRepo.ListTeams: query failed", zap.Error(err))
		return nil, err
	}

	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.Log.Error("TeamRepo.ListTeams: close rows failed", zap.Error(err))
		}
	}(rows)

	var teams []model.Team
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.TeamID, &t.TeamName, &t.Description, &t.Color, &t.SprintLengthWeeks, &t.SprintStartRef); err != nil {
			r.Log.Error("TeamRepo.ListTeams: scan failed", zap.Error(err))
			return nil, err
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		r.Log.Error("TeamRepo.ListTeams: rows error", zap.Error(err))
		return nil, err
	}

	r.Log.Debug("TeamRepo.ListTeams: success", zap.Int("count", len(teams)))
	return teams, nil
}
