package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

// UserID uniquely identifies a user in the progression domain.
type UserID string

// BadgeID is a named badge identifier from the static catalog.
type BadgeID string

// MaxShields caps the number of streak shields a user can hold.
const MaxShields = 5

// DaysForShield is the streak length granting one shield per full cycle.
const DaysForShield = 7

// ShieldCost is the point price of one purchased shield.
const ShieldCost int64 = 500

// UserProgression is the per-user gamification document. It is owned
// exclusively by the progression service and mutated only inside store
// transactions. Implementations should hand out deep copies to maintain
// immutability guarantees.
type UserProgression struct {
	UserID               UserID                `json:"user_id"`
	TotalPoints          int64                 `json:"total_points"`
	Level                int64                 `json:"level"`
	CurrentStreak        int                   `json:"current_streak"`
	LongestStreak        int                   `json:"longest_streak"`
	LastActivityDay      DayID                 `json:"last_activity_day,omitempty"`
	StreakShields        int                   `json:"streak_shields"`
	StreakProtectedUntil *time.Time            `json:"streak_protected_until,omitempty"`
	Badges               map[BadgeID]time.Time `json:"badges"`
	ActiveTitle          string                `json:"active_title"`
	TitlePinned          bool                  `json:"title_pinned"`
	UnlockedTitles       []string              `json:"unlocked_titles"`

	// Activity counters maintained incrementally so badge predicates never
	// scan history.
	WorkoutsCompleted   int   `json:"workouts_completed"`
	MealsLogged         int   `json:"meals_logged"`
	WaterLogged         int   `json:"water_logged"`
	ChallengesCompleted int   `json:"challenges_completed"`
	CaloriesBurned      int64 `json:"calories_burned"`
	ShieldsUsed         int   `json:"shields_used"`

	Updated time.Time `json:"updated"`
}

// Clone returns a deep copy of the progression document.
func (p UserProgression) Clone() UserProgression {
	cp := p
	cp.Badges = make(map[BadgeID]time.Time, len(p.Badges))
	for k, v := range p.Badges {
		cp.Badges[k] = v
	}
	cp.UnlockedTitles = append([]string(nil), p.UnlockedTitles...)
	if p.StreakProtectedUntil != nil {
		t := *p.StreakProtectedUntil
		cp.StreakProtectedUntil = &t
	}
	return cp
}

// HasBadge reports whether the badge is already unlocked.
func (p UserProgression) HasBadge(id BadgeID) bool {
	_, ok := p.Badges[id]
	return ok
}

// HasTitle reports whether the tier label was ever reached.
func (p UserProgression) HasTitle(label string) bool {
	for _, t := range p.UnlockedTitles {
		if t == label {
			return true
		}
	}
	return false
}

// IsProtected reports whether an active streak protection covers now.
func (p UserProgression) IsProtected(now time.Time) bool {
	return p.StreakProtectedUntil != nil && now.Before(*p.StreakProtectedUntil)
}

// Snapshot projects the counters view badge predicates evaluate against.
func (p UserProgression) Snapshot() Snapshot {
	return Snapshot{
		Level:               p.Level,
		TotalPoints:         p.TotalPoints,
		CurrentStreak:       p.CurrentStreak,
		LongestStreak:       p.LongestStreak,
		StreakShields:       p.StreakShields,
		WorkoutsCompleted:   p.WorkoutsCompleted,
		MealsLogged:         p.MealsLogged,
		WaterLogged:         p.WaterLogged,
		ChallengesCompleted: p.ChallengesCompleted,
		CaloriesBurned:      p.CaloriesBurned,
		ShieldsUsed:         p.ShieldsUsed,
	}
}

// NewProgression returns the zeroed document created at account creation.
func NewProgression(user UserID) UserProgression {
	return UserProgression{
		UserID:  user,
		Level:   1,
		Badges:  map[BadgeID]time.Time{},
		Updated: time.Now().UTC(),
	}
}

// ActivityType enumerates qualifying activity kinds.
type ActivityType string

const (
	ActivityWorkout    ActivityType = "WORKOUT"
	ActivityMeal       ActivityType = "MEAL"
	ActivityWater      ActivityType = "WATER"
	ActivityChallenge  ActivityType = "CHALLENGE"
	ActivityFreezeUsed ActivityType = "FREEZE_USED"
)

// ActivityEvent is the ephemeral input to ApplyActivity. It is never
// persisted as an entity.
type ActivityEvent struct {
	Type       ActivityType   `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Day        DayID          `json:"day,omitempty"`
	XP         int64          `json:"xp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Normalize fills derived fields: a zero OccurredAt becomes now, a zero Day
// is derived from OccurredAt in loc.
func (e ActivityEvent) Normalize(loc *time.Location) ActivityEvent {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	if e.Day.IsZero() {
		e.Day = DayOf(e.OccurredAt, loc)
	}
	return e
}

// Validate rejects malformed events before any store access.
func (e ActivityEvent) Validate() error {
	switch e.Type {
	case ActivityWorkout, ActivityMeal, ActivityWater, ActivityChallenge, ActivityFreezeUsed:
	default:
		return NewValidationError("type", "unknown activity type")
	}
	if e.XP < 0 {
		return NewValidationError("xp", "xp must not be negative")
	}
	return nil
}

// Calories extracts the calories metadata value when present.
func (e ActivityEvent) Calories() int64 {
	switch v := e.Metadata["calories"].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	}
	return 0
}

// StreakStatus describes the outcome of a streak transition.
type StreakStatus string

const (
	StreakActive    StreakStatus = "ACTIVE"
	StreakIncreased StreakStatus = "INCREASED"
	StreakProtected StreakStatus = "PROTECTED"
	StreakAtRisk    StreakStatus = "AT_RISK"
	StreakLost      StreakStatus = "LOST"
)

// StreakResult reports what a streak transition did.
type StreakResult struct {
	Status         StreakStatus `json:"status"`
	Streak         int          `json:"streak"`
	ShieldEarned   bool         `json:"shield_earned,omitempty"`
	DaysMissed     int          `json:"days_missed,omitempty"`
	PreviousStreak int          `json:"previous_streak,omitempty"`
	NewRecord      bool         `json:"new_record,omitempty"`
}

// LevelChange reports the effect of an XP grant on the level and title tier.
type LevelChange struct {
	PreviousLevel int64 `json:"previous_level"`
	NewLevel      int64 `json:"new_level"`
	LeveledUp     bool  `json:"leveled_up"`
	CrossedTier   bool  `json:"crossed_tier"`
}

// BadgeUnlock describes one freshly unlocked badge.
type BadgeUnlock struct {
	ID         BadgeID   `json:"id"`
	XPBonus    int64     `json:"xp_bonus"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// ActivityResult is the pure outcome of ApplyActivity; all celebration side
// effects are driven by the caller reading it.
type ActivityResult struct {
	Streak       StreakResult    `json:"streak"`
	NewBadges    []BadgeUnlock   `json:"new_badges,omitempty"`
	BadgeBonusXP int64           `json:"badge_bonus_xp"`
	XPGranted    int64           `json:"xp_granted"`
	LevelChange  LevelChange     `json:"level_change"`
	TitleChanged bool            `json:"title_changed,omitempty"`
	State        UserProgression `json:"state"`
}

// XPHistoryEntry is one immutable row of the append-only XP audit log.
// Negative amounts record debits such as shield purchases.
type XPHistoryEntry struct {
	ID        string    `json:"id"`
	UserID    UserID    `json:"user_id"`
	Source    string    `json:"source"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is the versioned counters view badge predicates evaluate against.
// It reflects the state after the streak transition of the triggering event
// has been resolved.
type Snapshot struct {
	Level               int64
	TotalPoints         int64
	CurrentStreak       int
	LongestStreak       int
	StreakShields       int
	WorkoutsCompleted   int
	MealsLogged         int
	WaterLogged         int
	ChallengesCompleted int
	CaloriesBurned      int64
	ShieldsUsed         int
	LeaderboardRank     int // 0 means unranked
}

// AddSafe adds delta to base ensuring no signed overflow occurs.
func AddSafe(base int64, delta int64) (int64, error) {
	if (delta > 0 && base > math.MaxInt64-delta) || (delta < 0 && base < math.MinInt64-delta) {
		return 0, errors.New("integer overflow in AddSafe")
	}
	return base + delta, nil
}

// NormalizeUserID trims and lowercases user identifiers.
func NormalizeUserID(id UserID) (UserID, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return "", errors.New("empty user id")
	}
	return UserID(strings.ToLower(s)), nil
}

// ValidateBadgeID ensures non-empty badge id with simple charset check.
func ValidateBadgeID(b BadgeID) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return errors.New("empty badge id")
	}
	// simple check: alnum, dash, underscore
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			continue
		}
		return errors.New("invalid badge id")
	}
	return nil
}
