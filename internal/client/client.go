// Package client is a typed HTTP client for the time entry API.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/timekeeper/internal/convert"
	"github.com/and161185/timekeeper/internal/errs"
	"github.com/and161185/timekeeper/internal/model"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d %s: %s", e.Status, e.Kind, e.Message)
}

// Unwrap maps the wire kind back to the shared sentinels so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Kind {
	case errs.KindUnauthorized.String():
		return errs.ErrUnauthorized
	case errs.KindBadRequest.String():
		return errs.ErrValidation
	case errs.KindNotFound.String():
		return errs.ErrNotFound
	case errs.KindConflict.String():
		return errs.ErrConflict
	default:
		return errs.ErrInternal
	}
}

// Client calls the API with a bearer token.
type Client struct {
	r *resty.Client
}

// Option customizes the client.
type Option func(*resty.Client)

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// WithRetries retries idempotent reads on transport errors and 5xx answers.
func WithRetries(n int, wait time.Duration) Option {
	return func(c *resty.Client) {
		c.SetRetryCount(n).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(4 * wait)
	}
}

// New returns a client for baseURL authenticating with token.
func New(baseURL, token string, opts ...Option) *Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetAuthToken(token).
		SetTimeout(15 * time.Second).
		SetError(&convert.ErrorResponse{}).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
				return false
			}
			return err != nil || resp.StatusCode() >= http.StatusInternalServerError
		})
	for _, o := range opts {
		o(r)
	}
	return &Client{r: r}
}

func (c *Client) req(ctx context.Context) *resty.Request {
	return c.r.R().SetContext(ctx)
}

// check turns transport failures and error statuses into errors.
func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	if !resp.IsError() {
		return nil
	}
	apiErr := &APIError{Status: resp.StatusCode()}
	if body, ok := resp.Error().(*convert.ErrorResponse); ok && body != nil {
		apiErr.Kind, apiErr.Message = body.Kind, body.Message
	}
	return apiErr
}

func entryPath(id uuid.UUID) string { return "/time-entries/" + id.String() }

// Start begins an entry for taskID.
func (c *Client) Start(ctx context.Context, taskID uuid.UUID, description *string) (model.TimeEntry, error) {
	var out convert.TimeEntryResponse
	resp, err := c.req(ctx).
		SetBody(convert.CreateRequest{TaskID: &taskID, Description: description}).
		SetResult(&out).
		Post("/time-entries")
	if err := check(resp, err); err != nil {
		return model.TimeEntry{}, err
	}
	return out.ToModel(), nil
}

// Stop ends the entry.
func (c *Client) Stop(ctx context.Context, id uuid.UUID) (model.TimeEntry, error) {
	var out convert.TimeEntryResponse
	resp, err := c.req(ctx).SetResult(&out).Put(entryPath(id) + "/stop")
	if err := check(resp, err); err != nil {
		return model.TimeEntry{}, err
	}
	return out.ToModel(), nil
}

// Update changes description and/or end time of the entry.
func (c *Client) Update(ctx context.Context, id uuid.UUID, patch model.EntryPatch) (model.TimeEntry, error) {
	var out convert.TimeEntryResponse
	resp, err := c.req(ctx).
		SetBody(convert.UpdateRequest{Description: patch.Description, EndTime: patch.EndTime}).
		SetResult(&out).
		Patch(entryPath(id))
	if err := check(resp, err); err != nil {
		return model.TimeEntry{}, err
	}
	return out.ToModel(), nil
}

// List returns the caller's entries, most recent first.
func (c *Client) List(ctx context.Context) ([]model.TimeEntry, error) {
	return c.list(ctx, "/time-entries")
}

// ListByTask returns the caller's entries for taskID.
func (c *Client) ListByTask(ctx context.Context, taskID uuid.UUID) ([]model.TimeEntry, error) {
	return c.list(ctx, "/time-entries/task/"+taskID.String())
}

func (c *Client) list(ctx context.Context, path string) ([]model.TimeEntry, error) {
	var out []convert.TimeEntryResponse
	resp, err := c.req(ctx).SetResult(&out).Get(path)
	if err := check(resp, err); err != nil {
		return nil, err
	}
	entries := make([]model.TimeEntry, 0, len(out))
	for _, r := range out {
		entries = append(entries, r.ToModel())
	}
	return entries, nil
}

// Active returns the running entry, or nil when there is none.
func (c *Client) Active(ctx context.Context) (*model.TimeEntry, error) {
	var out convert.TimeEntryResponse
	resp, err := c.req(ctx).SetResult(&out).Get("/time-entries/active")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNoContent {
		return nil, nil
	}
	e := out.ToModel()
	return &e, nil
}

// Delete removes the entry.
func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	resp, err := c.req(ctx).Delete(entryPath(id))
	return check(resp, err)
}

// Health reports whether the server answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	resp, err := c.req(ctx).SetResult(&out).Get("/health")
	if err := check(resp, err); err != nil {
		return err
	}
	if out.Status != "ok" {
		return errors.New("unexpected health status " + out.Status)
	}
	return nil
}
