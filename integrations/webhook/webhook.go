package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kazeca/holyfit-sub000/engine"
)

// Sink posts notification intents and activity records to configured HTTP
// endpoints. Delivery is fire-and-forget: failures are logged and never
// surfaced to the progression update that produced them.
type Sink struct {
	client    *http.Client
	endpoints []string
	log       *slog.Logger
}

// Option configures a Sink.
type Option func(*Sink)

// WithClient overrides the HTTP client (defaults to 2s timeout).
func WithClient(c *http.Client) Option {
	return func(s *Sink) {
		if c != nil {
			s.client = c
		}
	}
}

// WithLogger overrides the failure logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a webhook sink.
func New(endpoints []string, opts ...Option) *Sink {
	s := &Sink{
		client: &http.Client{Timeout: 2 * time.Second},
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.endpoints = append([]string{}, endpoints...)
	return s
}

// Notify implements engine.Notifier.
func (s *Sink) Notify(ctx context.Context, intent engine.NotificationIntent) {
	s.post(ctx, "notification", intent)
}

// Record implements engine.ActivityRecorder.
func (s *Sink) Record(ctx context.Context, rec engine.ActivityRecord) {
	s.post(ctx, "activity", rec)
}

type envelope struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}

func (s *Sink) post(ctx context.Context, kind string, payload any) {
	if len(s.endpoints) == 0 {
		return
	}
	body, err := json.Marshal(envelope{Kind: kind, Payload: payload})
	if err != nil {
		return
	}
	for _, ep := range s.endpoints {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep, bytes.NewReader(body))
		if err != nil {
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.client.Do(req)
		if err != nil {
			s.log.Warn("webhook delivery failed", "endpoint", ep, "kind", kind, "error", err)
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode >= 400 {
			s.log.Warn("webhook delivery rejected", "endpoint", ep, "kind", kind, "status", resp.StatusCode)
		}
	}
}

var (
	_ engine.Notifier         = (*Sink)(nil)
	_ engine.ActivityRecorder = (*Sink)(nil)
)
