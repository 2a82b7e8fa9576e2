package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/timekeeper/internal/errs"
	"github.com/and161185/timekeeper/internal/model"
	"github.com/and161185/timekeeper/internal/repository"
)

type fakeEntryRepo struct {
	calls int

	lastCtx    context.Context
	lastUser   uuid.UUID
	lastID     uuid.UUID
	lastTask   uuid.UUID
	lastNew    model.NewEntry
	lastPatch  model.EntryPatch
	entryOut   model.TimeEntry
	listOut    []model.TimeEntry
	activeOut  *model.TimeEntry
	err        error
	ctxErrSeen error
}

var _ repository.TimeEntryRepository = (*fakeEntryRepo)(nil)

func (f *fakeEntryRepo) seen(ctx context.Context) {
	f.calls++
	f.lastCtx = ctx
	f.ctxErrSeen = ctx.Err()
}

func (f *fakeEntryRepo) Create(ctx context.Context, userID uuid.UUID, in model.NewEntry) (model.TimeEntry, error) {
	f.seen(ctx)
	f.lastUser, f.lastNew = userID, in
	return f.entryOut, f.err
}
func (f *fakeEntryRepo) Stop(ctx context.Context, id, userID uuid.UUID) (model.TimeEntry, error) {
	f.seen(ctx)
	f.lastID, f.lastUser = id, userID
	return f.entryOut, f.err
}
func (f *fakeEntryRepo) Update(ctx context.Context, id, userID uuid.UUID, p model.EntryPatch) (model.TimeEntry, error) {
	f.seen(ctx)
	f.lastID, f.lastUser, f.lastPatch = id, userID, p
	return f.entryOut, f.err
}
func (f *fakeEntryRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.TimeEntry, error) {
	f.seen(ctx)
	f.lastUser = userID
	return f.listOut, f.err
}
func (f *fakeEntryRepo) ListByTask(ctx context.Context, userID, taskID uuid.UUID) ([]model.TimeEntry, error) {
	f.seen(ctx)
	f.lastUser, f.lastTask = userID, taskID
	return f.listOut, f.err
}
func (f *fakeEntryRepo) GetActive(ctx context.Context, userID uuid.UUID) (*model.TimeEntry, error) {
	f.seen(ctx)
	f.lastUser = userID
	return f.activeOut, f.err
}
func (f *fakeEntryRepo) Delete(ctx context.Context, id, userID uuid.UUID) error {
	f.seen(ctx)
	f.lastID, f.lastUser = id, userID
	return f.err
}
func (f *fakeEntryRepo) Ping(context.Context) error { return f.err }

func TestNewEntryService_DefaultTimeout(t *testing.T) {
	s := NewEntryService(&fakeEntryRepo{}, 0)
	if s.opTimeout != DefaultOpTimeout {
		t.Fatalf("default opTimeout want %v, got %v", DefaultOpTimeout, s.opTimeout)
	}
}

func TestEntryService_Start_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := &fakeEntryRepo{}
	s := NewEntryService(repo, time.Second)
	user := uuid.Must(uuid.NewV4())
	task := uuid.Must(uuid.NewV4())

	if _, err := s.Start(ctx, uuid.Nil, model.NewEntry{TaskID: task}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error on empty userID, got %v", err)
	}
	if _, err := s.Start(ctx, user, model.NewEntry{}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error on missing task_id, got %v", err)
	}

	long := strings.Repeat("x", model.MaxDescriptionLen+1)
	if _, err := s.Start(ctx, user, model.NewEntry{TaskID: task, Description: &long}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error on long description, got %v", err)
	}
	for _, bad := range []string{"lunch\x00break", "\xff\xfe"} {
		if _, err := s.Start(ctx, user, model.NewEntry{TaskID: task, Description: &bad}); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("want validation error on description %q, got %v", bad, err)
		}
	}
	if repo.calls != 0 {
		t.Fatalf("repo must not be called on invalid input")
	}

	// 500 multi-byte characters are within bounds
	wide := strings.Repeat("ж", model.MaxDescriptionLen)
	if _, err := s.Start(ctx, user, model.NewEntry{TaskID: task, Description: &wide}); err != nil {
		t.Fatalf("500 runes must pass: %v", err)
	}
	if repo.lastUser != user || repo.lastNew.TaskID != task {
		t.Fatalf("repo args not forwarded correctly")
	}
}

func TestEntryService_Start_DetachedFromCallerCancel(t *testing.T) {
	t.Parallel()
	repo := &fakeEntryRepo{}
	s := NewEntryService(repo, 250*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Start(ctx, uuid.Must(uuid.NewV4()), model.NewEntry{TaskID: uuid.Must(uuid.NewV4())}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if repo.ctxErrSeen != nil {
		t.Fatalf("repo saw cancelled ctx: %v", repo.ctxErrSeen)
	}
	dl, ok := repo.lastCtx.Deadline()
	if !ok || time.Until(dl) > 250*time.Millisecond {
		t.Fatalf("repo ctx must carry op deadline, got %v %v", dl, ok)
	}
}

func TestEntryService_Stop_Delegates(t *testing.T) {
	t.Parallel()
	end := time.Now().UTC()
	repo := &fakeEntryRepo{entryOut: model.TimeEntry{EndTime: &end}}
	s := NewEntryService(repo, time.Second)
	user, id := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	if _, err := s.Stop(context.Background(), uuid.Nil, id); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	if _, err := s.Stop(context.Background(), user, uuid.Nil); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}

	out, err := s.Stop(context.Background(), user, id)
	if err != nil || out.EndTime == nil {
		t.Fatalf("Stop: out=%+v err=%v", out, err)
	}
	if repo.lastUser != user || repo.lastID != id {
		t.Fatalf("repo args swapped: user=%s id=%s", repo.lastUser, repo.lastID)
	}

	repo.err = errs.ErrAlreadyStopped
	if _, err := s.Stop(context.Background(), user, id); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("want conflict passthrough, got %v", err)
	}
}

func TestEntryService_Update_Validation(t *testing.T) {
	t.Parallel()
	repo := &fakeEntryRepo{}
	s := NewEntryService(repo, time.Second)
	user, id := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	ctx := context.Background()

	if _, err := s.Update(ctx, user, id, model.EntryPatch{}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error on empty patch, got %v", err)
	}
	long := strings.Repeat("y", 501)
	if _, err := s.Update(ctx, user, id, model.EntryPatch{Description: &long}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error on long description, got %v", err)
	}
	var zero time.Time
	if _, err := s.Update(ctx, user, id, model.EntryPatch{EndTime: &zero}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error on zero end_time, got %v", err)
	}
	nul := "a\x00b"
	if _, err := s.Update(ctx, user, id, model.EntryPatch{Description: &nul}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error on NUL in description, got %v", err)
	}
	if repo.calls != 0 {
		t.Fatalf("repo must not be called on invalid input")
	}

	repo.err = errs.ErrInvalidRange
	end := time.Now()
	if _, err := s.Update(ctx, user, id, model.EntryPatch{EndTime: &end}); !errors.Is(err, errs.ErrInvalidRange) {
		t.Fatalf("want range error passthrough, got %v", err)
	}
	if repo.lastPatch.EndTime == nil || !repo.lastPatch.EndTime.Equal(end) {
		t.Fatalf("patch not forwarded")
	}
}

func TestEntryService_Lists(t *testing.T) {
	t.Parallel()
	repo := &fakeEntryRepo{listOut: []model.TimeEntry{{ID: uuid.Must(uuid.NewV4())}}}
	s := NewEntryService(repo, time.Second)
	user, task := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	ctx := context.Background()

	if _, err := s.List(ctx, uuid.Nil); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	out, err := s.List(ctx, user)
	if err != nil || len(out) != 1 {
		t.Fatalf("List: %v %v", out, err)
	}

	if _, err := s.ListByTask(ctx, user, uuid.Nil); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	if _, err := s.ListByTask(ctx, user, task); err != nil || repo.lastTask != task {
		t.Fatalf("ListByTask: err=%v task=%s", err, repo.lastTask)
	}
}

func TestEntryService_ActiveAndDelete(t *testing.T) {
	t.Parallel()
	repo := &fakeEntryRepo{}
	s := NewEntryService(repo, time.Second)
	user, id := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	ctx := context.Background()

	a, err := s.Active(ctx, user)
	if err != nil || a != nil {
		t.Fatalf("Active none: %v %v", a, err)
	}

	repo.err = errs.ErrNotFound
	if err := s.Delete(ctx, user, id); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
	if err := s.Delete(ctx, uuid.Nil, id); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}
