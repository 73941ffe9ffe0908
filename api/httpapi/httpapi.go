package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	wsadapter "github.com/kazeca/holyfit-sub000/adapters/websocket"
	"github.com/kazeca/holyfit-sub000/core"
	"github.com/kazeca/holyfit-sub000/engine"
	"github.com/kazeca/holyfit-sub000/leaderboard"
	"github.com/kazeca/holyfit-sub000/realtime"
)

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
	// RequestTimeout bounds each request; 0 means the 30s default.
	RequestTimeout time.Duration
}

// NewMux builds an http.Handler exposing the progression REST API and
// WebSocket stream.
// Routes:
//   - POST {prefix}/users/{id}                    (provision progression)
//   - GET  {prefix}/users/{id}                    (current progression)
//   - POST {prefix}/users/{id}/activities         (apply an activity event)
//   - POST {prefix}/users/{id}/shields/purchase
//   - POST {prefix}/users/{id}/shields/use
//   - PUT  {prefix}/users/{id}/title
//   - GET  {prefix}/users/{id}/history?limit=50
//   - GET  {prefix}/leaderboard?n=10
//   - GET  {prefix}/healthz
//   - WS   {prefix}/ws
func NewMux(svc *engine.ProgressionService, hub *realtime.Hub, board leaderboard.Board, opts Options) http.Handler {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc(withPrefix(opts.PathPrefix, "/healthz"), func(w http.ResponseWriter, r *http.Request) {
		healthCheck(w, r, svc)
	})

	// WebSocket events
	if hub != nil {
		mux.Handle(withPrefix(opts.PathPrefix, "/ws"), wsadapter.Handler(hub))
	}

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/leaderboard"), func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
			return
		}
		n := 10
		if raw := r.URL.Query().Get("n"); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil && v > 0 {
				n = v
			}
		}
		if board == nil {
			writeJSON(w, []leaderboard.Entry{})
			return
		}
		writeJSON(w, board.TopN(n))
	})

	// Users API
	mux.HandleFunc(withPrefix(opts.PathPrefix, "/users/"), func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, opts.PathPrefix)
		if path == "" || path[0] != '/' {
			path = "/" + path
		}
		parts := split(path, '/')
		if len(parts) < 2 {
			writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
			return
		}
		user, err := core.NormalizeUserID(core.UserID(parts[1]))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_user", err.Error(), nil)
			return
		}
		route := strings.Join(parts[2:], "/")

		switch {
		case r.Method == http.MethodPost && route == "":
			doc, err := svc.CreateProgression(r.Context(), user)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, doc)

		case r.Method == http.MethodGet && route == "":
			doc, err := svc.GetProgression(r.Context(), user)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, doc)

		case r.Method == http.MethodPost && route == "activities":
			var ev core.ActivityEvent
			if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_body", "malformed activity event", nil)
				return
			}
			res, err := svc.ApplyActivity(r.Context(), user, ev)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, res)

		case r.Method == http.MethodPost && route == "shields/purchase":
			doc, err := svc.PurchaseShield(r.Context(), user)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, doc)

		case r.Method == http.MethodPost && route == "shields/use":
			doc, unlocks, err := svc.UseShield(r.Context(), user)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, map[string]any{"state": doc, "new_badges": unlocks})

		case r.Method == http.MethodPut && route == "title":
			var body struct {
				Title string `json:"title"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_body", "malformed title request", nil)
				return
			}
			doc, err := svc.SetActiveTitle(r.Context(), user, body.Title)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, doc)

		case r.Method == http.MethodGet && route == "history":
			limit := 50
			if raw := r.URL.Query().Get("limit"); raw != "" {
				if v, err := strconv.Atoi(raw); err == nil && v > 0 {
					limit = v
				}
			}
			entries, err := svc.XPHistory(r.Context(), user, limit)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			if entries == nil {
				entries = []core.XPHistoryEntry{}
			}
			writeJSON(w, entries)

		default:
			writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
		}
	})

	var handler http.Handler = mux
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	handler = withTimeout(handler, timeout)
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	if len(opts.APIKeys) > 0 {
		handler = withAPIKeyAuth(handler, opts.APIKeys)
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, opts.RateLimitRPM, opts.RateLimitBurst)
	}
	return handler
}

// Helpers

// healthCheck verifies the service is working properly
func healthCheck(w http.ResponseWriter, r *http.Request, svc *engine.ProgressionService) {
	ctx := r.Context()

	// A missing probe user is fine; only infrastructure failures count.
	_, err := svc.GetProgression(ctx, core.UserID("healthcheck_probe"))
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]any{
			"status": "unhealthy",
			"checks": map[string]any{"storage": "failed"},
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	writeJSON(w, map[string]any{
		"status": "healthy",
		"checks": map[string]any{"storage": "ok"},
	})
}

// writeServiceError maps domain errors to structured HTTP error codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case core.IsValidation(err):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "no progression for user", nil)
	case errors.Is(err, core.ErrInsufficientFunds):
		writeError(w, http.StatusConflict, "insufficient_funds", err.Error(), nil)
	case errors.Is(err, core.ErrShieldCapReached):
		writeError(w, http.StatusConflict, "shield_cap_reached", err.Error(), nil)
	case errors.Is(err, core.ErrNoShieldsAvailable):
		writeError(w, http.StatusConflict, "no_shields_available", err.Error(), nil)
	case errors.Is(err, core.ErrTitleLocked):
		writeError(w, http.StatusConflict, "title_locked", err.Error(), nil)
	case errors.Is(err, core.ErrConflictExhausted):
		writeError(w, http.StatusServiceUnavailable, "conflict_exhausted", "try again", nil)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "request timed out", nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal", "try again", nil)
	}
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}

func split(p string, sep rune) []string {
	var parts []string
	cur := make([]rune, 0, len(p))
	// trim leading '/'
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	for _, r := range p {
		if r == sep {
			if len(cur) > 0 {
				parts = append(parts, string(cur))
				cur = cur[:0]
			}
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		parts = append(parts, string(cur))
	}
	return parts
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{Code: code, Message: msg, Details: details})
}

// withTimeout bounds each request's context so a stalled store surfaces a
// timeout instead of hanging the handler.
func withTimeout(next http.Handler, d time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// WebSocket connections stay open past any request deadline.
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withCORS wraps a handler with a minimal CORS policy.
func withCORS(next http.Handler, origin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withAPIKeyAuth enforces a shared API key list.
func withAPIKeyAuth(next http.Handler, apiKeys []string) http.Handler {
	allowed := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		k = strings.TrimSpace(k)
		if k != "" {
			allowed[k] = struct{}{}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := extractAPIKey(r)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key", nil)
			return
		}
		if _, ok := allowed[key]; !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies a simple token-bucket limiter per client key.
func withRateLimit(next http.Handler, rpm int, burst int) http.Handler {
	limiter := newRateLimiter(rpm, burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !limiter.allow(key) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return ""
}

// clientKey uses API key if present, otherwise remote IP.
func clientKey(r *http.Request) string {
	if key := extractAPIKey(r); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type rateLimiter struct {
	rpm   float64
	burst float64
	mu    sync.Mutex
	b     map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

func newRateLimiter(rpm, burst int) *rateLimiter {
	return &rateLimiter{
		rpm:   float64(rpm),
		burst: float64(burst),
		b:     make(map[string]*bucket),
	}
}

func (l *rateLimiter) allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.b[key]
	if !ok {
		l.b[key] = &bucket{tokens: l.burst - 1, last: now}
		return true
	}

	elapsed := now.Sub(b.last).Minutes()
	b.tokens += elapsed * l.rpm
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	if b.tokens < 1 {
		b.last = now
		return false
	}
	b.tokens--
	b.last = now
	return true
}
