package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kazeca/holyfit-sub000/core"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the HolyFit HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

// CreateUser provisions a fresh progression document for a user.
func (c *Client) CreateUser(ctx context.Context, userID string) (core.UserProgression, error) {
	if strings.TrimSpace(userID) == "" {
		return core.UserProgression{}, ErrEmptyUserID
	}
	var doc core.UserProgression
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%s", url.PathEscape(userID)), nil, &doc)
	return doc, err
}

// GetUser fetches the current progression state for a user.
func (c *Client) GetUser(ctx context.Context, userID string) (core.UserProgression, error) {
	if strings.TrimSpace(userID) == "" {
		return core.UserProgression{}, ErrEmptyUserID
	}
	var doc core.UserProgression
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%s", url.PathEscape(userID)), nil, &doc)
	return doc, err
}

// ApplyActivity submits an activity event and returns the progression outcome.
func (c *Client) ApplyActivity(ctx context.Context, userID string, ev core.ActivityEvent) (core.ActivityResult, error) {
	if strings.TrimSpace(userID) == "" {
		return core.ActivityResult{}, ErrEmptyUserID
	}
	var res core.ActivityResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%s/activities", url.PathEscape(userID)), ev, &res)
	return res, err
}

// PurchaseShield buys one streak shield with XP.
func (c *Client) PurchaseShield(ctx context.Context, userID string) (core.UserProgression, error) {
	if strings.TrimSpace(userID) == "" {
		return core.UserProgression{}, ErrEmptyUserID
	}
	var doc core.UserProgression
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%s/shields/purchase", url.PathEscape(userID)), nil, &doc)
	return doc, err
}

// UseShield consumes one shield to protect the streak through tomorrow.
func (c *Client) UseShield(ctx context.Context, userID string) (ShieldUseResult, error) {
	if strings.TrimSpace(userID) == "" {
		return ShieldUseResult{}, ErrEmptyUserID
	}
	var res ShieldUseResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%s/shields/use", url.PathEscape(userID)), nil, &res)
	return res, err
}

// SetTitle pins an unlocked title as the user's active title.
func (c *Client) SetTitle(ctx context.Context, userID, title string) (core.UserProgression, error) {
	if strings.TrimSpace(userID) == "" {
		return core.UserProgression{}, ErrEmptyUserID
	}
	body := map[string]string{"title": title}
	var doc core.UserProgression
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%s/title", url.PathEscape(userID)), body, &doc)
	return doc, err
}

// History returns the most recent XP ledger entries, newest first.
func (c *Client) History(ctx context.Context, userID string, limit int) ([]core.XPHistoryEntry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUserID
	}
	path := fmt.Sprintf("/users/%s/history", url.PathEscape(userID))
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var entries []core.XPHistoryEntry
	err := c.do(ctx, http.MethodGet, path, nil, &entries)
	return entries, err
}

// Leaderboard returns the top n entries by total XP.
func (c *Client) Leaderboard(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	path := "/leaderboard"
	if n > 0 {
		path += fmt.Sprintf("?n=%d", n)
	}
	var entries []LeaderboardEntry
	err := c.do(ctx, http.MethodGet, path, nil, &entries)
	return entries, err
}

// Health probes /healthz and returns status + storage check.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var hs HealthStatus
	err := c.do(ctx, http.MethodGet, "/healthz", nil, &hs)
	return hs, err
}

// SubscribeEvents connects to the WebSocket stream and emits core.Event values.
// The returned channel closes when ctx is done or the connection drops.
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan core.Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, c.wsURL, c.headers)
	if err != nil {
		return nil, err
	}

	out := make(chan core.Event, 32)
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			default:
				var evt core.Event
				if err := conn.ReadJSON(&evt); err != nil {
					return
				}
				select {
				case out <- evt:
				default:
					// drop if consumer is slow
				}
			}
		}
	}()
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeJSON(resp, target)
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
