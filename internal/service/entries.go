// Package service contains application services for time entries.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/timekeeper/internal/errs"
	"github.com/and161185/timekeeper/internal/model"
	"github.com/and161185/timekeeper/internal/repository"
)

// DefaultOpTimeout bounds a single store operation, connection acquisition included.
const DefaultOpTimeout = 5 * time.Second

// EntryService defines the time entry lifecycle for an authenticated user.
type EntryService interface {
	// Start creates a new active entry for the user.
	Start(ctx context.Context, userID uuid.UUID, in model.NewEntry) (model.TimeEntry, error)
	// Stop ends the user's entry.
	Stop(ctx context.Context, userID, id uuid.UUID) (model.TimeEntry, error)
	// Update changes description and/or end time.
	Update(ctx context.Context, userID, id uuid.UUID, patch model.EntryPatch) (model.TimeEntry, error)
	// List returns all of the user's entries, most recent first.
	List(ctx context.Context, userID uuid.UUID) ([]model.TimeEntry, error)
	// ListByTask returns the user's entries for a task, most recent first.
	ListByTask(ctx context.Context, userID, taskID uuid.UUID) ([]model.TimeEntry, error)
	// Active returns the user's active entry or nil.
	Active(ctx context.Context, userID uuid.UUID) (*model.TimeEntry, error)
	// Delete removes the user's entry.
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type EntryServiceImpl struct {
	repo      repository.TimeEntryRepository
	opTimeout time.Duration
}

// NewEntryService constructs EntryService with a per-operation deadline.
func NewEntryService(repo repository.TimeEntryRepository, opTimeout time.Duration) *EntryServiceImpl {
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}
	return &EntryServiceImpl{repo: repo, opTimeout: opTimeout}
}

// opCtx detaches the operation from caller cancellation so an abandoned
// request still completes or fails as a unit, but never waits past opTimeout.
func (s *EntryServiceImpl) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.opTimeout)
}

// Start validates input and delegates to the repository.
// Validation rules:
// - userID and TaskID are set
// - description is at most 500 characters
func (s *EntryServiceImpl) Start(ctx context.Context, userID uuid.UUID, in model.NewEntry) (model.TimeEntry, error) {
	if userID == uuid.Nil {
		return model.TimeEntry{}, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	if in.TaskID == uuid.Nil {
		return model.TimeEntry{}, fmt.Errorf("%w: task_id is required", errs.ErrValidation)
	}
	if err := validateDescription(in.Description); err != nil {
		return model.TimeEntry{}, err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.repo.Create(ctx, userID, in)
}

// Stop sets the end time of an active entry.
func (s *EntryServiceImpl) Stop(ctx context.Context, userID, id uuid.UUID) (model.TimeEntry, error) {
	if err := validateIDs(userID, id); err != nil {
		return model.TimeEntry{}, err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.repo.Stop(ctx, id, userID)
}

// Update re-validates the description and delegates the range check to the repository,
// which sees the stored start time under lock.
func (s *EntryServiceImpl) Update(ctx context.Context, userID, id uuid.UUID, patch model.EntryPatch) (model.TimeEntry, error) {
	if err := validateIDs(userID, id); err != nil {
		return model.TimeEntry{}, err
	}
	if patch.Empty() {
		return model.TimeEntry{}, fmt.Errorf("%w: nothing to update", errs.ErrValidation)
	}
	if err := validateDescription(patch.Description); err != nil {
		return model.TimeEntry{}, err
	}
	if patch.EndTime != nil && patch.EndTime.IsZero() {
		return model.TimeEntry{}, fmt.Errorf("%w: end_time is zero", errs.ErrValidation)
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.repo.Update(ctx, id, userID, patch)
}

// List returns all entries of the user.
func (s *EntryServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]model.TimeEntry, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.repo.ListByUser(ctx, userID)
}

// ListByTask returns entries of the user for a single task.
func (s *EntryServiceImpl) ListByTask(ctx context.Context, userID, taskID uuid.UUID) ([]model.TimeEntry, error) {
	if userID == uuid.Nil || taskID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID/task_id", errs.ErrValidation)
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.repo.ListByTask(ctx, userID, taskID)
}

// Active returns the active entry of the user, if any.
func (s *EntryServiceImpl) Active(ctx context.Context, userID uuid.UUID) (*model.TimeEntry, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.repo.GetActive(ctx, userID)
}

// Delete removes an entry of the user.
func (s *EntryServiceImpl) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := validateIDs(userID, id); err != nil {
		return err
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.repo.Delete(ctx, id, userID)
}

func validateIDs(userID, id uuid.UUID) error {
	if userID == uuid.Nil || id == uuid.Nil {
		return fmt.Errorf("%w: empty userID/id", errs.ErrValidation)
	}
	return nil
}

// validateDescription enforces the length limit and rejects text Postgres cannot store in a text column.
func validateDescription(d *string) error {
	if d == nil {
		return nil
	}
	if !utf8.ValidString(*d) || strings.ContainsRune(*d, 0) {
		return fmt.Errorf("%w: description must be valid UTF-8 without NUL bytes", errs.ErrValidation)
	}
	if utf8.RuneCountInString(*d) > model.MaxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", errs.ErrValidation, model.MaxDescriptionLen)
	}
	return nil
}
