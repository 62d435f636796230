// Package device talks to the relay controller's REST API.
package device

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

const (
	defaultTimeout = 10 * time.Second

	pathLoad       = "/api/scheduler/load"
	pathSave       = "/api/scheduler/save"
	pathStatus     = "/api/scheduler/status"
	pathActivate   = "/api/scheduler/activate"
	pathDeactivate = "/api/scheduler/deactivate"
	pathManual     = "/api/relay/manual"
)

// ErrTransport wraps failures that never produced an HTTP response.
var ErrTransport = errors.New("device unreachable")

// ErrInvalidManual is returned before any request is made.
var ErrInvalidManual = errors.New("relay must be 0-7 and duration greater than 0")

// StatusError is a non-2xx reply, or a 2xx reply whose body says "error".
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		return fmt.Sprintf("device returned http %d", e.StatusCode)
	}
	return fmt.Sprintf("device returned http %d: %s", e.StatusCode, msg)
}

type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		timeout: defaultTimeout,
	}
}

func (c *Client) WithTimeout(timeout time.Duration) *Client {
	clone := *c
	clone.timeout = timeout
	return &clone
}

func (c *Client) BaseURL() string { return c.baseURL }

// Load fetches the whole scheduler document.
func (c *Client) Load(ctx context.Context) (model.SchedulerState, error) {
	var st model.SchedulerState
	body, err := c.request(ctx, http.MethodGet, pathLoad, nil)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(body, &st); err != nil {
		return st, fmt.Errorf("decode scheduler state: %w", err)
	}
	if st.Schedules == nil {
		st.Schedules = []model.Schedule{}
	}
	return st, nil
}

// Save replaces the device document. Event counts are derived during encoding.
func (c *Client) Save(ctx context.Context, state model.SchedulerState) (model.SaveResult, error) {
	return c.command(ctx, pathSave, state)
}

func (c *Client) Activate(ctx context.Context) (model.SaveResult, error) {
	return c.command(ctx, pathActivate, nil)
}

func (c *Client) Deactivate(ctx context.Context) (model.SaveResult, error) {
	return c.command(ctx, pathDeactivate, nil)
}

// ManualRelay fires one relay for duration seconds, outside any schedule.
func (c *Client) ManualRelay(ctx context.Context, m model.ManualRelay) (model.SaveResult, error) {
	if m.Relay < 0 || m.Relay > 7 || m.Duration <= 0 {
		return model.SaveResult{}, ErrInvalidManual
	}
	return c.command(ctx, pathManual, m)
}

func (c *Client) Status(ctx context.Context) (model.Status, error) {
	var st model.Status
	body, err := c.request(ctx, http.MethodGet, pathStatus, nil)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(body, &st); err != nil {
		return st, fmt.Errorf("decode scheduler status: %w", err)
	}
	return st, nil
}

func (c *Client) command(ctx context.Context, path string, payload any) (model.SaveResult, error) {
	var res model.SaveResult
	body, err := c.request(ctx, http.MethodPost, path, payload)
	if err != nil {
		return res, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return model.SaveResult{Status: "success"}, nil
	}
	if err := json.Unmarshal(body, &res); err != nil {
		// Some firmware builds answer with plain text.
		return model.SaveResult{Status: "success", Message: strings.TrimSpace(string(body))}, nil
	}
	if strings.EqualFold(res.Status, "error") {
		return res, &StatusError{StatusCode: http.StatusOK, Message: res.Message}
	}
	return res, nil
}

func (c *Client) request(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if c.timeout > 0 {
		if deadline, ok := ctx.Deadline(); !ok || time.Until(deadline) > c.timeout {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
	}

	var reqBody io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrTransport, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var res model.SaveResult
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &res) == nil && res.Message != "" {
			msg = res.Message
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
	return body, nil
}
