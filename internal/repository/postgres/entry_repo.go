package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/timekeeper/internal/errs"
	"github.com/and161185/timekeeper/internal/model"
	"github.com/and161185/timekeeper/internal/repository"
)

// oneActiveConstraint is the partial unique index on (user_id) WHERE end_time IS NULL.
const oneActiveConstraint = "time_entries_one_active_per_user"

const entryColumns = `id, task_id, user_id, start_time, end_time, description, created_at, updated_at`

// EntryRepo implements TimeEntryRepository using PostgreSQL.
type EntryRepo struct {
	db  *DB
	now repository.Clock
}

var _ repository.TimeEntryRepository = (*EntryRepo)(nil)

// NewEntryRepo constructs a time entry repository. A nil clock means time.Now.
func NewEntryRepo(db *DB, now repository.Clock) *EntryRepo {
	if now == nil {
		now = time.Now
	}
	return &EntryRepo{db: db, now: now}
}

// timestamptz keeps microseconds; trim so returned values match what is stored.
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
VALUES ($1, $2, $3, $4, NULL, $5, $6, $7)`
	_, err = r.db.Pool.Exec(ctx, q, e.ID, e.TaskID, e.UserID, e.StartTime, e.Description, e.CreatedAt, e.UpdatedAt)
	if isUniqueViolation(err, oneActiveConstraint) {
		return model.TimeEntry{}, errs.ErrActiveEntryExists
	}
	if err != nil {
		return model.TimeEntry{}, err
	}
	return e, nil
}

// Stop sets end_time on an active entry owned by userID.
func (r *EntryRepo) Stop(ctx context.Context, id, userID uuid.UUID) (e model.TimeEntry, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return model.TimeEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if cerr := tx.Commit(ctx); cerr != nil {
			err = cerr
		}
	}()

	e, err = lockEntry(ctx, tx, id, userID)
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
	const upd = `UPDATE time_entries SET end_time=$3, updated_at=$4 WHERE id=$1 AND user_id=$2`
	if _, err = tx.Exec(ctx, upd, id, userID, end, now); err != nil {
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
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return model.TimeEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if cerr := tx.Commit(ctx); cerr != nil {
			err = cerr
		}
	}()

	e, err = lockEntry(ctx, tx, id, userID)
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

	const upd = `UPDATE time_entries SET description=$3, end_time=$4, updated_at=$5 WHERE id=$1 AND user_id=$2`
	if _, err = tx.Exec(ctx, upd, id, userID, e.Description, e.EndTime, e.UpdatedAt); err != nil {
		return model.TimeEntry{}, err
	}
	return e, nil
}

// ListByUser returns the user's entries ordered by start_time descending.
func (r *EntryRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.TimeEntry, error) {
	const q = `
SELECT ` + entryColumns + `
FROM time_entries
WHERE user_id=$1
ORDER BY start_time DESC, id DESC`
	return r.list(ctx, q, userID)
}

// ListByTask returns the user's entries for one task ordered by start_time descending.
func (r *EntryRepo) ListByTask(ctx context.Context, userID, taskID uuid.UUID) ([]model.TimeEntry, error) {
	const q = `
SELECT ` + entryColumns + `
FROM time_entries
WHERE user_id=$1 AND task_id=$2
ORDER BY start_time DESC, id DESC`
	return r.list(ctx, q, userID, taskID)
}

func (r *EntryRepo) list(ctx context.Context, q string, args ...any) ([]model.TimeEntry, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
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
	const q = `
SELECT ` + entryColumns + `
FROM time_entries
WHERE user_id=$1 AND end_time IS NULL
ORDER BY start_time DESC
LIMIT 1`
	e, err := scanEntry(r.db.Pool.QueryRow(ctx, q, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// Delete removes an entry owned by userID.
func (r *EntryRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	const q = `DELETE FROM time_entries WHERE id=$1 AND user_id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Ping checks database reachability.
func (r *EntryRepo) Ping(ctx context.Context) error { return r.db.Pool.Ping(ctx) }

func lockEntry(ctx context.Context, tx pgx.Tx, id, userID uuid.UUID) (model.TimeEntry, error) {
	const sel = `SELECT ` + entryColumns + ` FROM time_entries WHERE id=$1 AND user_id=$2 FOR UPDATE`
	e, err := scanEntry(tx.QueryRow(ctx, sel, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TimeEntry{}, errs.ErrNotFound
		}
		return model.TimeEntry{}, fmt.Errorf("lock entry: %w", err)
	}
	return e, nil
}

func scanEntry(row pgx.Row) (model.TimeEntry, error) {
	var e model.TimeEntry
	err := row.Scan(&e.ID, &e.TaskID, &e.UserID, &e.StartTime, &e.EndTime, &e.Description, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return model.TimeEntry{}, err
	}
	e.StartTime = e.StartTime.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	if e.EndTime != nil {
		t := e.EndTime.UTC()
		e.EndTime = &t
	}
	return e, nil
}
