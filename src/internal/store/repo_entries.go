package store

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/team-pulse/availability-service/src/internal/model"
)

type EntryRepo struct {
	db  *sql.DB
	log *zap.Logger
}

func NewEntryRepo(db *sql.DB, logger *zap.Logger) *EntryRepo {
	return &EntryRepo{db: db, log: logger}
}

// UpsertScheduleEntry writes one cell. The (member, date) primary key keeps
// the at-most-one-entry-per-day invariant; a second write overwrites.
func (r *Repositories) UpsertScheduleEntry(ctx context.Context, e model.ScheduleEntry) error {
	r.Log.Debug("EntryRepo.UpsertScheduleEntry: start",
		zap.String("member", e.MemberID), zap.Time("date", e.Date), zap.String("value", string(e.Value)))

	_, err := r.Entries.db.ExecContext(ctx,
		`INSERT INTO schedule_entries(member_id, entry_date, value, hours, reason, updated_at)
		 VALUES($1,$2,$3,$4,$5, now())
		 ON CONFLICT (member_id, entry_date)
		 DO UPDATE SET value=EXCLUDED.value, hours=EXCLUDED.hours, reason=EXCLUDED.reason, updated_at=now()`,
		e.MemberID, e.Date, string(e.Value), e.Hours, e.Reason)
	if err != nil {
		r.Log.Error("EntryRepo.UpsertScheduleEntry: upsert failed",
			zap.String("member", e.MemberID), zap.Error(err))
		return err
	}

	r.Log.Info("EntryRepo.UpsertScheduleEntry: success",
		zap.String("member", e.MemberID), zap.Time("date", e.Date))
	return nil
}

func (r *Repositories) scanEntries(rows *sql.Rows, logPrefix string) ([]model.ScheduleEntry, error) {
	defer func() {
		if err := rows.Close(); err != nil {
			r.Log.Error(logPrefix+": close rows failed", zap.Error(err))
		}
	}()

	var entries []model.ScheduleEntry
	for rows.Next() {
		var e model.ScheduleEntry
		var hours sql.NullFloat64
		var reason sql.NullString
		var value string
		if err := rows.Scan(&e.MemberID, &e.Date, &value, &hours, &reason, &e.UpdatedAt); err != nil {
			r.Log.Error(logPrefix+": scan failed", zap.Error(err))
			return nil, err
		}
		e.Value = model.DayValue(value)
		if hours.Valid {
			h := hours.Float64
			e.Hours = &h
		}
		if reason.Valid {
			e.Reason = reason.String
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		r.Log.Error(logPrefix+": rows error", zap.Error(err))
		return nil, err
	}
	return entries, nil
}

func (r *Repositories) GetMemberEntries(ctx context.Context, memberID string, from, to time.Time) ([]model.ScheduleEntry, error) {
	r.Log.Debug("EntryRepo.GetMemberEntries: start",
		zap.String("member", memberID), zap.Time("from", from), zap.Time("to", to))

	rows, err := r.Entries.db.QueryContext(ctx,
		`SELECT member_id, entry_date, value, hours, reason, updated_at
		 FROM schedule_entries
		 WHERE member_id=$1 AND entry_date BETWEEN $2 AND $3
		 ORDER BY entry_date`,
		memberID, from, to)
	if err != nil {
		r.Log.Error("EntryRepo.GetMemberEntries: query failed", zap.Error(err))
		return nil, err
	}

	entries, err := r.scanEntries(rows, "EntryRepo.GetMemberEntries")
	if err != nil {
		return nil, err
	}
	r.Log.Debug("EntryRepo.GetMemberEntries: success", zap.String("member", memberID), zap.Int("count", len(entries)))
	return entries, nil
}

func (r *Repositories) GetTeamEntries(ctx context.Context, teamID string, from, to time.Time) ([]model.ScheduleEntry, error) {
	r.Log.Debug("EntryRepo.GetTeamEntries: start",
		zap.String("team", teamID), zap.Time("from", from), zap.Time("to", to))

	rows, err := r.Entries.db.QueryContext(ctx,
		`SELECT e.member_id, e.entry_date, e.value, e.hours, e.reason, e.updated_at
		 FROM schedule_entries e
		 JOIN team_members m ON m.member_id = e.member_id
		 WHERE m.team_id=$1 AND e.entry_date BETWEEN $2 AND $3
		 ORDER BY e.member_id, e.entry_date`,
		teamID, from, to)
	if err != nil {
		r.Log.Error("EntryRepo.GetTeamEntries: query failed", zap.Error(err))
		return nil, err
	}

	entries, err := r.scanEntries(rows, "EntryRepo.GetTeamEntries")
	if err != nil {
		return nil, err
	}
	r.Log.Debug("EntryRepo.GetTeamEntries: success", zap.String("team", teamID), zap.Int("count", len(entries)))
	return entries, nil
}
