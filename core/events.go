package core

import "time"

// EventType enumerates domain events published on the bus.
type EventType string

const (
	EventActivityApplied EventType = "activity_applied"
	EventXPAdded         EventType = "xp_added"
	EventBadgeUnlocked   EventType = "badge_unlocked"
	EventLevelUp         EventType = "level_up"
	EventTitleChanged    EventType = "title_changed"
	EventStreakIncreased EventType = "streak_increased"
	EventStreakLost      EventType = "streak_lost"
	EventStreakProtected EventType = "streak_protected"
	EventShieldEarned    EventType = "shield_earned"
	EventShieldPurchased EventType = "shield_purchased"
	EventShieldUsed      EventType = "shield_used"
)

// Event represents an immutable domain event.
type Event struct {
	Type     EventType      `json:"type"`
	Time     time.Time      `json:"time"`
	UserID   UserID         `json:"user_id"`
	Activity ActivityType   `json:"activity,omitempty"`
	Delta    int64          `json:"delta,omitempty"`
	Total    int64          `json:"total,omitempty"`
	Badge    BadgeID        `json:"badge,omitempty"`
	Level    int64          `json:"level,omitempty"`
	Streak   int            `json:"streak,omitempty"`
	Title    string         `json:"title,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewXPAdded(user UserID, activity ActivityType, delta, total int64) Event {
	return Event{Type: EventXPAdded, Time: time.Now().UTC(), UserID: user, Activity: activity, Delta: delta, Total: total}
}

func NewBadgeUnlocked(user UserID, badge BadgeID) Event {
	return Event{Type: EventBadgeUnlocked, Time: time.Now().UTC(), UserID: user, Badge: badge}
}

func NewLevelUp(user UserID, level int64) Event {
	return Event{Type: EventLevelUp, Time: time.Now().UTC(), UserID: user, Level: level}
}

func NewTitleChanged(user UserID, title string) Event {
	return Event{Type: EventTitleChanged, Time: time.Now().UTC(), UserID: user, Title: title}
}

func NewStreakEvent(typ EventType, user UserID, streak int) Event {
	return Event{Type: typ, Time: time.Now().UTC(), UserID: user, Streak: streak}
}

func NewShieldEvent(typ EventType, user UserID, shields int) Event {
	return Event{Type: typ, Time: time.Now().UTC(), UserID: user, Delta: int64(shields)}
}
