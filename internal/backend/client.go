// Package backend talks to the university REST backend. Every call is a
// single round trip: no retries, no caching.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"portal/internal/metrics"
)

// GenericMessage is shown when the backend supplies no message of its own.
const GenericMessage = "request failed"

// Error is returned by every failed backend call. Status is 0 when the
// request never produced an HTTP response.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %d: %s", e.Op, e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Transport reports a network-level failure.
func (e *Error) Transport() bool { return e.Status == 0 }

// Message is the user-facing text for err: the backend's own message when
// it sent one, GenericMessage otherwise.
func Message(err error) string {
	var be *Error
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return GenericMessage
}

// StatusOf returns the HTTP status of a backend error, 0 otherwise.
func StatusOf(err error) int {
	var be *Error
	if errors.As(err, &be) {
		return be.Status
	}
	return 0
}

// Client calls the university backend.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	// PageSize is requested from paginated list endpoints.
	PageSize int

	log zerolog.Logger
}

// New creates a client with the given request timeout.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		HTTP:     &http.Client{Timeout: timeout},
		PageSize: 100,
		log:      log.With().Str("component", "backend").Logger(),
	}
}

// do performs one request. in is JSON-encoded when non-nil; the response
// body is decoded into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	op := method + " " + path
	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return &Error{Op: op, Message: GenericMessage, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &Error{Op: op, Message: GenericMessage, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	status := "error"
	if resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	metrics.BackendRequestDuration.WithLabelValues(resourceOf(path), method, status).Observe(time.Since(start).Seconds())
	if err != nil {
		c.log.Warn().Err(err).Str("op", op).Msg("backend unreachable")
		return &Error{Op: op, Message: GenericMessage, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Message: GenericMessage, Err: err}
	}

	if resp.StatusCode >= 300 {
		msg := messageOf(raw)
		c.log.Debug().Str("op", op).Int("status", resp.StatusCode).Str("message", msg).Msg("backend rejected request")
		return &Error{Op: op, Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Message: GenericMessage, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// messageOf extracts "error", then "message", from a JSON error body.
func messageOf(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return GenericMessage
	}
	switch {
	case body.Error != "":
		return body.Error
	case body.Message != "":
		return body.Message
	default:
		return GenericMessage
	}
}

func resourceOf(path string) string {
	seg := strings.Trim(path, "/")
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[:i]
	}
	if seg == "" {
		return "root"
	}
	return seg
}

// Health checks if the backend is available.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}
