package engine

import (
	"context"

	"github.com/kazeca/holyfit-sub000/core"
)

// Store abstracts persistence for progression documents. RunTransaction is
// the only mutation path: fn receives the current document and returns the
// next one, applied atomically per user. Implementations retry internal
// conflicts up to a bounded budget and return core.ErrConflictExhausted when
// it runs out. A non-nil error from fn aborts with no state change.
// Operations for different users must never serialize against each other.
type Store interface {
	GetProgression(ctx context.Context, user core.UserID) (core.UserProgression, error)
	CreateProgression(ctx context.Context, user core.UserID) (core.UserProgression, error)
	RunTransaction(ctx context.Context, user core.UserID, fn func(core.UserProgression) (core.UserProgression, error)) (core.UserProgression, error)

	// AppendHistory appends one entry to the user's append-only XP audit log
	// and returns its id. History returns the most recent entries, newest
	// first.
	AppendHistory(ctx context.Context, user core.UserID, entry core.XPHistoryEntry) (string, error)
	History(ctx context.Context, user core.UserID, limit int) ([]core.XPHistoryEntry, error)
}

// ActivityRecord is the normalized record emitted for feed and analytics
// consumers after a successful apply.
type ActivityRecord struct {
	ID     string            `json:"id"`
	UserID core.UserID       `json:"user_id"`
	Type   core.ActivityType `json:"type"`
	XP     int64             `json:"xp"`
	Day    core.DayID        `json:"day"`
}

// ActivityRecorder receives activity records fire-and-forget. Failures must
// never roll back the progression update.
type ActivityRecorder interface {
	Record(ctx context.Context, rec ActivityRecord)
}

// NotificationIntent asks an external dispatcher to notify the user.
type NotificationIntent struct {
	UserID  core.UserID    `json:"user_id"`
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Notifier receives notification intents. Delivery failures are logged by
// the implementation, never surfaced to ApplyActivity.
type Notifier interface {
	Notify(ctx context.Context, intent NotificationIntent)
}

// Ranker exposes the leaderboard position used by rank badges.
type Ranker interface {
	Update(user core.UserID, score int64)
	Rank(user core.UserID) (int, bool)
}
