package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/timekeeper/internal/errs"
	"github.com/and161185/timekeeper/internal/model"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newRepo(t *testing.T) (*EntryRepo, *fakeClock) {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "tk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	clk := &fakeClock{t: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
	return NewEntryRepo(db, clk.Now), clk
}

func strp(s string) *string { return &s }

func TestEntryRepo_StartStopScenario(t *testing.T) {
	r, clk := newRepo(t)
	ctx := context.Background()
	u := uuid.Must(uuid.NewV4())
	task := uuid.Must(uuid.NewV4())

	created, err := r.Create(ctx, u, model.NewEntry{TaskID: task})
	require.NoError(t, err)
	_, hasDur := created.Duration()
	require.False(t, hasDur)

	active, err := r.GetActive(ctx, u)
	require.NoError(t, err)
	require.NotNil(t, active)
	require.Equal(t, created.ID, active.ID)
	require.Nil(t, active.EndTime)

	clk.Advance(60 * time.Second)
	stopped, err := r.Stop(ctx, created.ID, u)
	require.NoError(t, err)
	d, ok := stopped.Duration()
	require.True(t, ok)
	require.Equal(t, int64(60), d)

	active, err = r.GetActive(ctx, u)
	require.NoError(t, err)
	require.Nil(t, active)
}

func TestEntryRepo_OwnershipIsolation(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	a := uuid.Must(uuid.NewV4())
	b := uuid.Must(uuid.NewV4())
	task := uuid.Must(uuid.NewV4())

	e, err := r.Create(ctx, a, model.NewEntry{TaskID: task, Description: strp("a's work")})
	require.NoError(t, err)

	_, err = r.Stop(ctx, e.ID, b)
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = r.Update(ctx, e.ID, b, model.EntryPatch{Description: strp("hijack")})
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.ErrorIs(t, r.Delete(ctx, e.ID, b), errs.ErrNotFound)

	listB, err := r.ListByUser(ctx, b)
	require.NoError(t, err)
	require.Empty(t, listB)

	byTaskB, err := r.ListByTask(ctx, b, task)
	require.NoError(t, err)
	require.Empty(t, byTaskB)

	activeB, err := r.GetActive(ctx, b)
	require.NoError(t, err)
	require.Nil(t, activeB)

	listA, err := r.ListByUser(ctx, a)
	require.NoError(t, err)
	require.Len(t, listA, 1)
	require.Equal(t, e.ID, listA[0].ID)
	require.Equal(t, "a's work", *listA[0].Description)
	require.True(t, listA[0].Active())
}

func TestEntryRepo_ConcurrentCreate_OneActive(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	u := uuid.Must(uuid.NewV4())

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
		other     []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Create(ctx, u, model.NewEntry{TaskID: uuid.Must(uuid.NewV4())})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, errs.ErrActiveEntryExists):
				conflicts++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, other)
	require.Equal(t, 1, ok)
	require.Equal(t, n-1, conflicts)

	list, err := r.ListByUser(ctx, u)
	require.NoError(t, err)
	active := 0
	for _, e := range list {
		if e.Active() {
			active++
		}
	}
	require.Equal(t, 1, active)
}

func TestEntryRepo_CreateAfterStop(t *testing.T) {
	r, clk := newRepo(t)
	ctx := context.Background()
	u := uuid.Must(uuid.NewV4())

	first, err := r.Create(ctx, u, model.NewEntry{TaskID: uuid.Must(uuid.NewV4())})
	require.NoError(t, err)

	_, err = r.Create(ctx, u, model.NewEntry{TaskID: uuid.Must(uuid.NewV4())})
	require.ErrorIs(t, err, errs.ErrActiveEntryExists)

	clk.Advance(time.Minute)
	_, err = r.Stop(ctx, first.ID, u)
	require.NoError(t, err)

	clk.Advance(time.Minute)
	_, err = r.Create(ctx, u, model.NewEntry{TaskID: uuid.Must(uuid.NewV4())})
	require.NoError(t, err)

	// other users are unaffected by u's active entry
	_, err = r.Create(ctx, uuid.Must(uuid.NewV4()), model.NewEntry{TaskID: uuid.Must(uuid.NewV4())})
	require.NoError(t, err)
}

func TestEntryRepo_StopTwice_Conflict(t *testing.T) {
	r, clk := newRepo(t)
	ctx := context.Background()
	u := uuid.Must(uuid.NewV4())

	e, err := r.Create(ctx, u, model.NewEntry{TaskID: uuid.Must(uuid.NewV4())})
	require.NoError(t, err)
	clk.Advance(90 * time.Second)
	first, err := r.Stop(ctx, e.ID, u)
	require.NoError(t, err)

	clk.Advance(time.Hour)
	_, err = r.Stop(ctx, e.ID, u)
	require.ErrorIs(t, err, errs.ErrAlreadyStopped)

	list, err := r.ListByUser(ctx, u)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, *first.EndTime, *list[0].EndTime)
	d, _ := list[0].Duration()
	require.Equal(t, int64(90), d)
}

func TestEntryRepo_Update(t *testing.T) {
	r, clk := newRepo(t)
	ctx := context.Background()
	u := uuid.Must(uuid.NewV4())

	e, err := r.Create(ctx, u, model.NewEntry{TaskID: uuid.Must(uuid.NewV4()), Description: strp("draft")})
	require.NoError(t, err)
	clk.Advance(10 * time.Minute)

	before := e.StartTime.Add(-time.Second)
	_, err = r.Update(ctx, e.ID, u, model.EntryPatch{EndTime: &before})
	require.ErrorIs(t, err, errs.ErrInvalidRange)

	end := e.StartTime.Add(25*time.Minute + 500*time.Millisecond)
	up, err := r.Update(ctx, e.ID, u, model.EntryPatch{EndTime: &end})
	require.NoError(t, err)
	require.Equal(t, "draft", *up.Description)
	d, ok := up.Duration()
	require.True(t, ok)
	require.Equal(t, int64(1500), d)
	require.True(t, up.UpdatedAt.After(e.UpdatedAt))

	// setting end_time released the active slot
	active, err := r.GetActive(ctx, u)
	require.NoError(t, err)
	require.Nil(t, active)

	up, err = r.Update(ctx, e.ID, u, model.EntryPatch{Description: strp("final")})
	require.NoError(t, err)
	require.Equal(t, "final", *up.Description)
	require.Equal(t, end.UTC(), *up.EndTime)
}

func TestEntryRepo_ListOrderingAndIdempotence(t *testing.T) {
	r, clk := newRepo(t)
	ctx := context.Background()
	u := uuid.Must(uuid.NewV4())
	taskA := uuid.Must(uuid.NewV4())
	taskB := uuid.Must(uuid.NewV4())

	var ids []uuid.UUID
	for i, task := range []uuid.UUID{taskA, taskB, taskA} {
		e, err := r.Create(ctx, u, model.NewEntry{TaskID: task})
		require.NoError(t, err, "create %d", i)
		clk.Advance(time.Minute)
		_, err = r.Stop(ctx, e.ID, u)
		require.NoError(t, err)
		clk.Advance(time.Minute)
		ids = append(ids, e.ID)
	}

	first, err := r.ListByUser(ctx, u)
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.Equal(t, ids[2], first[0].ID)
	require.Equal(t, ids[1], first[1].ID)
	require.Equal(t, ids[0], first[2].ID)

	second, err := r.ListByUser(ctx, u)
	require.NoError(t, err)
	require.Equal(t, first, second)

	byTask, err := r.ListByTask(ctx, u, taskA)
	require.NoError(t, err)
	require.Len(t, byTask, 2)
	require.Equal(t, ids[2], byTask[0].ID)
	require.Equal(t, ids[0], byTask[1].ID)
}

func TestEntryRepo_Delete(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	a := uuid.Must(uuid.NewV4())
	b := uuid.Must(uuid.NewV4())

	e, err := r.Create(ctx, a, model.NewEntry{TaskID: uuid.Must(uuid.NewV4())})
	require.NoError(t, err)

	require.ErrorIs(t, r.Delete(ctx, e.ID, b), errs.ErrNotFound)
	list, err := r.ListByUser(ctx, a)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, r.Delete(ctx, e.ID, a))
	require.ErrorIs(t, r.Delete(ctx, e.ID, a), errs.ErrNotFound)

	list, err = r.ListByUser(ctx, a)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestEntryRepo_Ping(t *testing.T) {
	r, _ := newRepo(t)
	require.NoError(t, r.Ping(context.Background()))
}
