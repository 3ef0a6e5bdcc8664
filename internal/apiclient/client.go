// Package apiclient talks to a running chess server over HTTP and
// websockets.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/adaptive-chess-bot/pkg/chessdto"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status    int
	Detail    string
	Code      string
	Retryable bool
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("chess api: status=%d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("chess api: status=%d", e.Status)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDialer routes connections through dial, e.g. an in-memory listener.
func WithDialer(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 30 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL is the server root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Health(ctx context.Context) (*chessdto.HealthResponse, error) {
	var out chessdto.HealthResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/health", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSession starts or restarts a game. A depth of zero uses the server
// default.
func (c *Client) CreateSession(ctx context.Context, sessionID string, depth int) (*chessdto.SessionState, error) {
	req := chessdto.CreateSessionRequest{SessionID: sessionID}
	if depth != 0 {
		req.Depth = &depth
	}
	var out chessdto.SessionState
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/session", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) State(ctx context.Context, sessionID string) (*chessdto.SessionState, error) {
	var out chessdto.SessionState
	if err := c.doJSON(ctx, fasthttp.MethodGet, sessionPath(sessionID, ""), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Move plays a white move in UCI notation. Engine failures leave the game
// untouched, so they are retried.
func (c *Client) Move(ctx context.Context, sessionID, move string) (*chessdto.SessionState, error) {
	var out chessdto.SessionState
	if err := c.doJSON(ctx, fasthttp.MethodPost, sessionPath(sessionID, "/move"), chessdto.MoveRequest{Move: move}, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Bot(ctx context.Context, sessionID string) (*chessdto.SessionState, error) {
	var out chessdto.SessionState
	if err := c.doJSON(ctx, fasthttp.MethodPost, sessionPath(sessionID, "/bot"), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, sessionID string) error {
	var out chessdto.MessageResponse
	return c.doJSON(ctx, fasthttp.MethodDelete, sessionPath(sessionID, ""), nil, &out, false)
}

func (c *Client) Hint(ctx context.Context, sessionID string) (*chessdto.Hint, error) {
	var out chessdto.Hint
	if err := c.doJSON(ctx, fasthttp.MethodGet, sessionPath(sessionID, "/hint"), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) History(ctx context.Context, sessionID string, limit int) ([]*chessdto.Game, error) {
	q := url.Values{}
	if sessionID != "" {
		q.Set("session_id", sessionID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out chessdto.HistoryResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return out.Games, nil
}

// Board fetches the PNG render of the current position.
func (c *Client) Board(ctx context.Context, sessionID string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + sessionPath(sessionID, "/board.png"))

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if status := resp.StatusCode(); status != fasthttp.StatusOK {
		return nil, decodeAPIError(status, resp.Body())
	}
	return append([]byte(nil), resp.Body()...), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			lastErr = decodeAPIError(status, resp.Body())
			if !shouldRetryStatus(status) {
				return lastErr
			}
		} else {
			if out != nil {
				if err := json.Unmarshal(resp.Body(), out); err != nil {
					return fmt.Errorf("decode response: %w", err)
				}
			}
			return nil
		}

		if attempt == attempts {
			break
		}
		if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
			return lastErr
		}
	}
	return lastErr
}

func decodeAPIError(status int, body []byte) error {
	apiErr := &APIError{Status: status}
	var payload chessdto.ErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		apiErr.Detail = payload.Detail
		apiErr.Code = payload.Code
		apiErr.Retryable = payload.Retryable
	} else {
		apiErr.Detail = truncate(string(body), 512)
	}
	return apiErr
}

func sessionPath(sessionID, suffix string) string {
	return "/session/" + url.PathEscape(sessionID) + suffix
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
