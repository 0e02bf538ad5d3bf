package store

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/team-pulse/availability-service/src/internal/model"
)

type SprintRepo struct {
	db  *sql.DB
	log *zap.Logger
}

func NewSprintRepo(db *sql.DB, logger *zap.Logger) *SprintRepo {
	return &SprintRepo{db: db, log: logger}
}

// UpsertSprint stores a derived sprint row. Sprint boundaries are always
// recomputed from the team configuration; the stored row is only a cache,
// so a recompute that disagrees simply overwrites it.
func (r *Repositories) UpsertSprint(ctx context.Context, s model.Sprint) error {
	r.Log.Debug("SprintRepo.UpsertSprint: start",
		zap.String("team", s.TeamID), zap.Int("number", s.Number))

	_, err := r.Sprints.db.ExecContext(ctx,
		`INSERT INTO sprints(team_id, sprint_number, start_date, end_date)
		 VALUES($1,$2,$3,$4)
		 ON CONFLICT (team_id, sprint_number)
		 DO UPDATE SET start_date=EXCLUDED.start_date, end_date=EXCLUDED.end_date`,
		s.TeamID, s.Number, s.StartDate, s.EndDate)
	if err != nil {
		r.Log.Error("SprintRepo.UpsertSprint: upsert failed", zap.String("team", s.TeamID), zap.Error(err))
		return err
	}

	r.Log.Debug("SprintRepo.UpsertSprint: success", zap.String("team", s.TeamID), zap.Int("number", s.Number))
	return nil
}

func (r *Repositories) GetStoredSprint(ctx context.Context, teamID string, number int) (model.Sprint, error) {
	r.Log.Debug("SprintRepo.GetStoredSprint: start", zap.String("team", teamID), zap.Int("number", number))
	var s model.Sprint
	if err := r.Sprints.db.QueryRowContext(ctx,
		`SELECT team_id, sprint_number, start_date, end_date FROM sprints WHERE team_id=$1 AND sprint_number=$2`,
		teamID, number).
		Scan(&s.TeamID, &s.Number, &s.StartDate, &s.EndDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("SprintRepo.GetStoredSprint: not found", zap.String("team", teamID), zap.Int("number", number))
			return model.Sprint{}, model.ErrNotFound
		}
		r.Log.Error("SprintRepo.GetStoredSprint: query failed", zap.Error(err))
		return model.Sprint{}, err
	}
	r.Log.Debug("SprintRepo.GetStoredSprint: success", zap.String("team", teamID), zap.Int("number", number))
	return s, nil
}

func (r *Repositories) ListSprints(ctx context.Context, teamID string) ([]model.Sprint, error) {
	r.Log.Debug("SprintRepo.ListSprints: start", zap.String("team", teamID))
	rows, err := r.Sprints.db.QueryContext(ctx,
		`SELECT team_id, sprint_number, start_date, end_date FROM sprints WHERE team_id=$1 ORDER BY sprint_number`,
		teamID)
	if err != nil {
		r.Log.Error("SprintRepo.ListSprints: query failed", zap.Error(err))
		return nil, err
	}

	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.Log.Error("SprintRepo.ListSprints: close rows failed", zap.Error(err))
		}
	}(rows)

	var sprints []model.Sprint
	for rows.Next() {
		var s model.Sprint
		if err := rows.Scan(&s.TeamID, &s.Number, &s.StartDate, &s.EndDate); err != nil {
			r.Log.Error("SprintRepo.ListSprints: scan failed", zap.Error(err))
			return nil, err
		}
		sprints = append(sprints, s)
	}
	if err := rows.Err(); err != nil {
		r.Log.Error("SprintRepo.ListSprints: rows error", zap.Error(err))
		return nil, err
	}

	r.Log.Debug("SprintRepo.ListSprints: success", zap.String("team", teamID), zap.Int("count", len(sprints)))
	return sprints, nil
}
