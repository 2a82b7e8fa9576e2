// Package convert maps between domain entities and their JSON wire form.
package convert

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/timekeeper/internal/errs"
	"github.com/and161185/timekeeper/internal/model"
)

// maxBodyBytes caps request bodies accepted by the decoders.
const maxBodyBytes = 64 << 10

// TimeEntryResponse is the JSON projection of a time entry.
type TimeEntryResponse struct {
	ID          uuid.UUID  `json:"id"`
	TaskID      uuid.UUID  `json:"task_id"`
	UserID      uuid.UUID  `json:"user_id"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Description *string    `json:"description"`
	Duration    *int64     `json:"duration"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ToResponse builds the wire form of e. Duration is null while the entry is active.
func ToResponse(e model.TimeEntry) TimeEntryResponse {
	out := TimeEntryResponse{
		ID:          e.ID,
		TaskID:      e.TaskID,
		UserID:      e.UserID,
		StartTime:   e.StartTime.UTC(),
		Description: e.Description,
		CreatedAt:   e.CreatedAt.UTC(),
		UpdatedAt:   e.UpdatedAt.UTC(),
	}
	if e.EndTime != nil {
		end := e.EndTime.UTC()
		out.EndTime = &end
	}
	if d, ok := e.Duration(); ok {
		out.Duration = &d
	}
	return out
}

// ToResponses converts a list, never returning nil so empty lists encode as [].
func ToResponses(in []model.TimeEntry) []TimeEntryResponse {
	out := make([]TimeEntryResponse, 0, len(in))
	for _, e := range in {
		out = append(out, ToResponse(e))
	}
	return out
}

// ToModel converts the wire form back into a domain entry. Duration is derived, not read.
func (r TimeEntryResponse) ToModel() model.TimeEntry {
	return model.TimeEntry{
		ID:          r.ID,
		TaskID:      r.TaskID,
		UserID:      r.UserID,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// CreateRequest is the body of POST /time-entries.
type CreateRequest struct {
	TaskID      *uuid.UUID `json:"task_id"`
	Description *string    `json:"description,omitempty"`
}

// UpdateRequest is the body of PATCH /time-entries/{id}.
type UpdateRequest struct {
	Description *string    `json:"description,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// DecodeCreate reads a create request. A missing or nil task_id is a validation error.
func DecodeCreate(r io.Reader) (model.NewEntry, error) {
	var req CreateRequest
	if err := decode(r, &req); err != nil {
		return model.NewEntry{}, err
	}
	if req.TaskID == nil || *req.TaskID == uuid.Nil {
		return model.NewEntry{}, fmt.Errorf("%w: task_id is required", errs.ErrValidation)
	}
	return model.NewEntry{TaskID: *req.TaskID, Description: req.Description}, nil
}

// DecodeUpdate reads a patch request. Absent fields stay unchanged.
func DecodeUpdate(r io.Reader) (model.EntryPatch, error) {
	var req UpdateRequest
	if err := decode(r, &req); err != nil {
		return model.EntryPatch{}, err
	}
	p := model.EntryPatch{Description: req.Description}
	if req.EndTime != nil {
		end := req.EndTime.UTC()
		p.EndTime = &end
	}
	return p, nil
}

func decode(r io.Reader, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errs.ErrValidation)
		}
		return fmt.Errorf("%w: malformed body: %v", errs.ErrValidation, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after body", errs.ErrValidation)
	}
	return nil
}

// ParseID parses a path parameter as a UUID.
func ParseID(name, s string) (uuid.UUID, error) {
	id, err := uuid.FromString(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", errs.ErrValidation, name)
	}
	return id, nil
}
