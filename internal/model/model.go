// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// MaxDescriptionLen bounds the description length in characters.
const MaxDescriptionLen = 500

// TimeEntry is a span of work on a task. A nil EndTime marks it active.
type TimeEntry struct {
	ID          uuid.UUID  // generated by the store
	TaskID      uuid.UUID  // opaque reference, not validated
	UserID      uuid.UUID  // owner, from the token subject
	StartTime   time.Time  // immutable after create
	EndTime     *time.Time // nil while active
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Active reports whether the entry has not been stopped yet.
func (e TimeEntry) Active() bool { return e.EndTime == nil }

// Duration returns whole elapsed seconds for a stopped entry.
func (e TimeEntry) Duration() (int64, bool) {
	if e.EndTime == nil {
		return 0, false
	}
	d := e.EndTime.Sub(e.StartTime)
	if d < 0 {
		return 0, true
	}
	return int64(d / time.Second), true
}

// NewEntry is the input for starting an entry.
type NewEntry struct {
	TaskID      uuid.UUID
	Description *string
}

// EntryPatch carries the optional fields of an update. Nil means unchanged.
type EntryPatch struct {
	Description *string
	EndTime     *time.Time
}

// Empty reports whether the patch changes nothing.
func (p EntryPatch) Empty() bool { return p.Description == nil && p.EndTime == nil }
