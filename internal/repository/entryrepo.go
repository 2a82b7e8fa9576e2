// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/timekeeper/internal/model"
)

// TimeEntryRepository provides ownership-scoped access to time entries.
// Every method filters by userID; entries of other users are reported as errs.ErrNotFound.
type TimeEntryRepository interface {
	// Create starts a new active entry. Fails with errs.ErrActiveEntryExists
	// if the user already has one, including under concurrent creates.
	Create(ctx context.Context, userID uuid.UUID, in model.NewEntry) (model.TimeEntry, error)

	// Stop sets the end time of an active entry. Fails with errs.ErrAlreadyStopped
	// if the entry is already stopped, leaving it unchanged.
	Stop(ctx context.Context, id, userID uuid.UUID) (model.TimeEntry, error)

	// Update overwrites the provided fields. Fails with errs.ErrInvalidRange
	// if the resulting end time precedes the start time.
	Update(ctx context.Context, id, userID uuid.UUID, patch model.EntryPatch) (model.TimeEntry, error)

	// ListByUser returns all entries of the user, most recent start first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.TimeEntry, error)

	// ListByTask returns the user's entries for a task, most recent start first.
	ListByTask(ctx context.Context, userID, taskID uuid.UUID) ([]model.TimeEntry, error)

	// GetActive returns the user's active entry or nil.
	GetActive(ctx context.Context, userID uuid.UUID) (*model.TimeEntry, error)

	// Delete removes an entry. Fails with errs.ErrNotFound when nothing was deleted.
	Delete(ctx context.Context, id, userID uuid.UUID) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// Clock returns the current time. Stores take one so tests can control it.
type Clock func() time.Time
