package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/team-pulse/availability-service/src/internal/model"
)

type MemberRepo struct {
	db  *sql.DB
	log *zap.Logger
}

func NewMemberRepo(db *sql.DB, logger *zap.Logger) *MemberRepo {
	return &MemberRepo{db: db, log: logger}
}

const memberColumns = `member_id, team_id, member_name, local_name, role, is_manager, is_critical, inactive_since`

func scanMember(row interface{ Scan(...any) error }) (model.TeamMember, error) {
	var m model.TeamMember
	var inactive sql.NullTime
	if err := row.Scan(&m.MemberID, &m.TeamID, &m.MemberName, &m.LocalName, &m.Role, &m.IsManager, &m.IsCritical, &inactive); err != nil {
		return model.TeamMember{}, err
	}
	if inactive.Valid {
		t := inactive.Time
		m.InactiveSince = &t
	}
	return m, nil
}

func (r *Repositories) GetTeamMembers(ctx context.Context, teamID string) ([]model.TeamMember, error) {
	r.Log.Debug("MemberRepo.GetTeamMembers: start", zap.String("team", teamID))
	rows, err := r.Members.db.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM team_members WHERE team_id=$1 ORDER BY member_name`, teamID)
	if err != nil {
		r.Log.Error("MemberRepo.GetTeamMembers: query failed", zap.Error(err))
		return nil, err
	}

	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.Log.Error("MemberRepo.GetTeamMembers: close rows failed", zap.Error(err))
		}
	}(rows)

	var members []model.TeamMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			r.Log.Error("MemberRepo.GetTeamMembers: scan failed", zap.Error(err))
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		r.Log.Error("MemberRepo.GetTeamMembers: rows error", zap.Error(err))
		return nil, err
	}

	r.Log.Debug("MemberRepo.GetTeamMembers: success", zap.String("team", teamID), zap.Int("count", len(members)))
	return members, nil
}

func (r *Repositories) GetMember(ctx context.Context, memberID string) (model.TeamMember, error) {
	r.Log.Debug("MemberRepo.GetMember: start", zap.String("member", memberID))
	m, err := scanMember(r.Members.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM team_members WHERE member_id=$1`, memberID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("MemberRepo.GetMember: not found", zap.String("member", memberID))
			return model.TeamMember{}, model.ErrNotFound
		}
		r.Log.Error("MemberRepo.GetMember: query failed", zap.Error(err))
		return model.TeamMember{}, err
	}
	r.Log.Debug("MemberRepo.GetMember: success", zap.String("member", memberID))
	return m, nil
}

func (r *Repositories) SetMemberInactiveSince(ctx context.Context, memberID string, since *time.Time) (model.TeamMember, error) {
	r.Log.Debug("MemberRepo.SetMemberInactiveSince: start", zap.String("member", memberID))
	res, err := r.Members.db.ExecContext(ctx,
		`UPDATE team_members SET inactive_since=$2 WHERE member_id=$1`, memberID, since)
	if err != nil {
		r.Log.Error("MemberRepo.SetMemberInactiveSince: update failed", zap.Error(err))
		return model.TeamMember{}, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		r.Log.Debug("MemberRepo.SetMemberInactiveSince: member not found", zap.String("member", memberID))
		return model.TeamMember{}, model.ErrNotFound
	}

	m, err := r.GetMember(ctx, memberID)
	if err != nil {
		return model.TeamMember{}, err
	}
	r.Log.Info("MemberRepo.SetMemberInactiveSince: success", zap.String("member", memberID))
	return m, nil
}
