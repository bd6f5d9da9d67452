// Package providers holds the HTTP plumbing shared by the AI and platform clients.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	maxErrorBody = 4 << 10
	maxJSONBody  = 1 << 20
)

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Error describes a failed call to an external provider.
type Error struct {
	Provider   string
	Operation  string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	b.WriteString(" ")
	b.WriteString(e.Operation)
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(e.Body)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Temporary reports whether retrying the same call may succeed.
func (e *Error) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client issues authenticated requests against one provider base URL.
type Client struct {
	Name    string
	BaseURL string
	HTTP    HTTPDoer
	// Authorize decorates outgoing requests with credentials.
	Authorize func(*http.Request) error
}

func (c *Client) fail(op string, status int, body string, err error) *Error {
	return &Error{Provider: c.Name, Operation: op, StatusCode: status, Body: body, Err: err}
}

// NewRequest builds a request against BaseURL+path.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, body)
}

// DoJSON sends body as JSON and decodes a 2xx response into out.
func (c *Client) DoJSON(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return c.fail(op, 0, "", fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}
	req, err := c.NewRequest(ctx, method, path, reader)
	if err != nil {
		return c.fail(op, 0, "", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	raw, err := c.Do(op, req, maxJSONBody)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return c.fail(op, 0, "", fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// Do executes req and returns at most limit bytes of a 2xx body. Non-2xx
// responses become *Error with a truncated body.
func (c *Client) Do(op string, req *http.Request, limit int64) ([]byte, error) {
	if c.Authorize != nil {
		if err := c.Authorize(req); err != nil {
			return nil, c.fail(op, 0, "", err)
		}
	}
	doer := c.HTTP
	if doer == nil {
		doer = http.DefaultClient
	}
	resp, err := doer.Do(req)
	if err != nil {
		return nil, c.fail(op, 0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, c.fail(op, resp.StatusCode, strings.TrimSpace(string(raw)), nil)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, c.fail(op, resp.StatusCode, "", fmt.Errorf("read response: %w", err))
	}
	return raw, nil
}

// Bearer returns an Authorize func setting a static bearer token.
func Bearer(token string) func(*http.Request) error {
	return func(req *http.Request) error {
		if strings.TrimSpace(token) == "" {
			return fmt.Errorf("missing api credentials")
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}
