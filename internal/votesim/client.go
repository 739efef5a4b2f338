package votesim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Item mirrors the API item shape.
type Item struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Rating  float64 `json:"rating"`
	Version int64   `json:"version"`
}

// Standing is one leaderboard row.
type Standing struct {
	Rank int `json:"rank"`
	Item
}

// Pair is the comparison a session shows.
type Pair struct {
	A Item `json:"a"`
	B Item `json:"b"`
}

// SessionView mirrors the API session shape.
type SessionView struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	Status string `json:"status"`
	Pair   *Pair  `json:"pair"`
}

// VoteResult mirrors the API vote response.
type VoteResult struct {
	Winner      Item    `json:"winner"`
	Loser       Item    `json:"loser"`
	WinnerDelta float64 `json:"winner_delta"`
	Retried     bool    `json:"retried"`
	Next        *Pair   `json:"next"`
	Status      string  `json:"status"`
}

// StatusError is a non-2xx API answer.
type StatusError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s: %s", e.Status, e.Code, e.Message)
}

// Client talks to the voting API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// StartSession creates a session.
func (c *Client) StartSession(ctx context.Context) (SessionView, error) {
	var v SessionView
	err := c.do(ctx, http.MethodPost, "/sessions", nil, &v)
	return v, err
}

// Vote votes for slot in session id.
func (c *Client) Vote(ctx context.Context, id string, slot int) (VoteResult, error) {
	var v VoteResult
	err := c.do(ctx, http.MethodPost, "/sessions/"+id+"/vote", map[string]int{"slot": slot}, &v)
	return v, err
}

// Refresh reloads session id.
func (c *Client) Refresh(ctx context.Context, id string) (SessionView, error) {
	var v SessionView
	err := c.do(ctx, http.MethodPost, "/sessions/"+id+"/refresh", nil, &v)
	return v, err
}

// EndSession deletes session id.
func (c *Client) EndSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/sessions/"+id, nil, nil)
}

// Leaderboard reads up to limit ranked items.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]Standing, error) {
	var v []Standing
	err := c.do(ctx, http.MethodGet, "/leaderboard?limit="+strconv.Itoa(limit), nil, &v)
	return v, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		se := &StatusError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, se)
		return se
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
