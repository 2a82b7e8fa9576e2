package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/timekeeper/internal/errs"
	"github.com/and161185/timekeeper/internal/model"
	"github.com/and161185/timekeeper/internal/repository"
)

const entryColumns = `id, task_id, user_id, start_time, end_time, description, created_at, updated_at`

// EntryRepo implements TimeEntryRepository using SQLite.
type EntryRepo struct {
	db  *sql.DB
	now repository.Clock
}

var _ repository.TimeEntryRepository = (*EntryRepo)(nil)

// NewEntryRepo constructs a time entry repository. A nil clock means time.Now.
func NewEntryRepo(db *sql.DB, now repository.Clock) *EntryRepo {
	if now == nil {
		now = time.Now
	}
	return &EntryRepo{db: db, now: now}
}

func (r *EntryRepo) stamp() time.Time { return r.now().UTC().Truncate(time.Microsecond) }

// Create inserts a new active entry; the partial unique index rejects a second active one.
func (r *EntryRepo) Create(ctx context.Context, userID uuid.UUID, in model.NewEntry) (model.TimeEntry, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return model.TimeEntry{}, err
	}
	now := r.stamp()
	e := model.TimeEntry{
		ID:          id,
		TaskID:      in.TaskID,
		UserID:      userID,
		StartTime:   now,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	const q = `
INSERT INTO time_entries (id, task_id, user_id, start_time, end_time, description, created_at, updated_at)
VALUES (?, ?, ?, ?, NULL, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, q,
		e.ID.String(), e.TaskID.String(), e.UserID.String(),
		micros(e.StartTime), nullString(e.Description), micros(e.CreatedAt), micros(e.UpdatedAt))
	if isActiveViolation(err) {
		return model.TimeEntry{}, errs.ErrActiveEntryExists
	}
	if err != nil {
		return model.TimeEntry{}, err
	}
	return e, nil
}

// Stop sets end_time on an active entry owned by userID.
func (r *EntryRepo) Stop(ctx context.Context, id, userID uuid.UUID) (e model.TimeEntry, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.TimeEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = cerr
		}
	}()

	e, err = getEntry(ctx, tx, id, userID)
	if err != nil {
		return model.TimeEntry{}, err
	}
	if !e.Active() {
		return model.TimeEntry{}, errs.ErrAlreadyStopped
	}

	now := r.stamp()
	end := now
	if end.Before(e.StartTime) {
		end = e.StartTime
	}
	const upd = `UPDATE time_entries SET end_time=?, updated_at=? WHERE id=? AND user_id=?`
	if _, err = tx.ExecContext(ctx, upd, micros(end), micros(now), id.String(), userID.String()); err != nil {
		return model.TimeEntry{}, err
	}
	e.EndTime = &end
	e.UpdatedAt = now
	return e, nil
}

// Update overwrites description and/or end_time of an entry owned by userID.
func (r *EntryRepo) Update(
	ctx context.Context, id, userID uuid.UUID, patch model.EntryPatch,
) (e model.TimeEntry, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.TimeEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = cerr
		}
	}()

	e, err = getEntry(ctx, tx, id, userID)
	if err != nil {
		return model.TimeEntry{}, err
	}
	if patch.Description != nil {
		e.Description = patch.Description
	}
	if patch.EndTime != nil {
		end := patch.EndTime.UTC().Truncate(time.Microsecond)
		if end.Before(e.StartTime) {
			return model.TimeEntry{}, errs.ErrInvalidRange
		}
		e.EndTime = &end
	}
	e.UpdatedAt = r.stamp()

	var endArg any
	if e.EndTime != nil {
		endArg = micros(*e.EndTime)
	}
	const upd = `UPDATE time_entries SET description=?, end_time=?, updated_at=? WHERE id=? AND user_id=?`
	if _, err = tx.ExecContext(ctx, upd, nullString(e.Description), endArg, micros(e.UpdatedAt), id.String(), userID.String()); err != nil {
		return model.TimeEntry{}, err
	}
	return e, nil
}

// ListByUser returns the user's entries ordered by start_time descending.
func (r *EntryRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.TimeEntry, error) {
	const q = `SELECT ` + entryColumns + ` FROM time_entries WHERE user_id=? ORDER BY start_time DESC, id DESC`
	return r.list(ctx, q, userID.String())
}

// ListByTask returns the user's entries for one task ordered by start_time descending.
func (r *EntryRepo) ListByTask(ctx context.Context, userID, taskID uuid.UUID) ([]model.TimeEntry, error) {
	const q = `SELECT ` + entryColumns + ` FROM time_entries WHERE user_id=? AND task_id=? ORDER BY start_time DESC, id DESC`
	return r.list(ctx, q, userID.String(), taskID.String())
}

func (r *EntryRepo) list(ctx context.Context, q string, args ...any) ([]model.TimeEntry, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.TimeEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetActive returns the user's entry without end_time, or nil.
func (r *EntryRepo) GetActive(ctx context.Context, userID uuid.UUID) (*model.TimeEntry, error) {
	const q = `SELECT ` + entryColumns + ` FROM time_entries WHERE user_id=? AND end_time IS NULL ORDER BY start_time DESC LIMIT 1`
	e, err := scanEntry(r.db.QueryRowContext(ctx, q, userID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// Delete removes an entry owned by userID.
func (r *EntryRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM time_entries WHERE id=? AND user_id=?`, id.String(), userID.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Ping checks database reachability.
func (r *EntryRepo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func getEntry(ctx context.Context, tx *sql.Tx, id, userID uuid.UUID) (model.TimeEntry, error) {
	const sel = `SELECT ` + entryColumns + ` FROM time_entries WHERE id=? AND user_id=?`
	e, err := scanEntry(tx.QueryRowContext(ctx, sel, id.String(), userID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.TimeEntry{}, errs.ErrNotFound
		}
		return model.TimeEntry{}, err
	}
	return e, nil
}

type scanner interface{ Scan(dest ...any) error }

func scanEntry(row scanner) (model.TimeEntry, error) {
	var (
		e                   model.TimeEntry
		start, created, upd int64
		end                 sql.NullInt64
		desc                sql.NullString
	)
	if err := row.Scan(&e.ID, &e.TaskID, &e.UserID, &start, &end, &desc, &created, &upd); err != nil {
		return model.TimeEntry{}, err
	}
	e.StartTime = fromMicros(start)
	e.CreatedAt = fromMicros(created)
	e.UpdatedAt = fromMicros(upd)
	if end.Valid {
		t := fromMicros(end.Int64)
		e.EndTime = &t
	}
	if desc.Valid {
		s := desc.String
		e.Description = &s
	}
	return e, nil
}

func micros(t time.Time) int64 { return t.UnixMicro() }

func fromMicros(v int64) time.Time { return time.UnixMicro(v).UTC() }

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
