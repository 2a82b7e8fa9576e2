package convert

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/timekeeper/internal/errs"
	"github.com/and161185/timekeeper/internal/model"
)

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.FromString(s)
	if err != nil {
		t.Fatalf("bad uuid %q: %v", s, err)
	}
	return id
}

func TestToResponse_ActiveHasNullDuration(t *testing.T) {
	t.Parallel()
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	e := model.TimeEntry{
		ID:        mustUUID(t, "7d444840-9dc0-11d1-b245-5ffdce74fad2"),
		TaskID:    mustUUID(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		UserID:    mustUUID(t, "9b2c3d4e-0000-4000-8000-000000000001"),
		StartTime: start,
		CreatedAt: start,
		UpdatedAt: start,
	}

	b, err := json.Marshal(ToResponse(e))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	for _, k := range []string{"end_time", "description", "duration"} {
		v, present := raw[k]
		require.True(t, present, "%s must be present", k)
		require.Nil(t, v, "%s must be null", k)
	}
	require.Equal(t, "2025-03-01T09:00:00Z", raw["start_time"])
	require.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", raw["task_id"])
}

func TestToResponse_StoppedDuration(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("UTC+3", 3*3600)
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, loc)
	end := start.Add(90*time.Second + 900*time.Millisecond)
	desc := "review"

	r := ToResponse(model.TimeEntry{StartTime: start, EndTime: &end, Description: &desc})
	require.NotNil(t, r.Duration)
	require.Equal(t, int64(90), *r.Duration)
	require.Equal(t, time.UTC, r.StartTime.Location())
	require.Equal(t, time.UTC, r.EndTime.Location())
	require.Equal(t, "review", *r.Description)

	back := r.ToModel()
	require.True(t, back.StartTime.Equal(start))
	d, ok := back.Duration()
	require.True(t, ok)
	require.Equal(t, int64(90), d)
}

func TestToResponses_EmptyIsNotNil(t *testing.T) {
	t.Parallel()
	out := ToResponses(nil)
	require.NotNil(t, out)
	b, err := json.Marshal(out)
	require.NoError(t, err)
	require.Equal(t, "[]", string(b))
}

func TestDecodeCreate(t *testing.T) {
	t.Parallel()
	task := "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

	in, err := DecodeCreate(strings.NewReader(`{"task_id":"` + task + `","description":"ticket 42"}`))
	require.NoError(t, err)
	require.Equal(t, task, in.TaskID.String())
	require.Equal(t, "ticket 42", *in.Description)

	in, err = DecodeCreate(strings.NewReader(`{"task_id":"` + task + `"}`))
	require.NoError(t, err)
	require.Nil(t, in.Description)

	cases := map[string]string{
		"missing task":  `{"description":"x"}`,
		"nil task":      `{"task_id":"00000000-0000-0000-0000-000000000000"}`,
		"bad uuid":      `{"task_id":"nope"}`,
		"empty body":    ``,
		"not json":      `task_id=1`,
		"trailing data": `{"task_id":"` + task + `"} {}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCreate(strings.NewReader(body))
			require.ErrorIs(t, err, errs.ErrValidation)
			require.Equal(t, errs.KindBadRequest, errs.KindOf(err))
		})
	}
}

func TestDecodeUpdate(t *testing.T) {
	t.Parallel()

	p, err := DecodeUpdate(strings.NewReader(`{"end_time":"2025-03-01T12:30:00+03:00"}`))
	require.NoError(t, err)
	require.Nil(t, p.Description)
	require.NotNil(t, p.EndTime)
	require.Equal(t, time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC), *p.EndTime)

	p, err = DecodeUpdate(strings.NewReader(`{"description":"renamed"}`))
	require.NoError(t, err)
	require.Equal(t, "renamed", *p.Description)
	require.Nil(t, p.EndTime)

	p, err = DecodeUpdate(strings.NewReader(`{}`))
	require.NoError(t, err)
	require.True(t, p.Empty())

	_, err = DecodeUpdate(strings.NewReader(`{"end_time":"yesterday"}`))
	require.ErrorIs(t, err, errs.ErrValidation)
}

func TestParseID(t *testing.T) {
	t.Parallel()
	id, err := ParseID("id", "7d444840-9dc0-11d1-b245-5ffdce74fad2")
	require.NoError(t, err)
	require.Equal(t, "7d444840-9dc0-11d1-b245-5ffdce74fad2", id.String())

	_, err = ParseID("task_id", "abc")
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Contains(t, err.Error(), "task_id")
}
