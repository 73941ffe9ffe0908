package analytics

import (
	"fmt"
	"sync"
	"time"

	"github.com/kazeca/holyfit-sub000/core"
)

// Hook receives domain events for KPI aggregation.
type Hook interface {
	OnEvent(e core.Event)
}

// DAU tracks daily active users.
type DAU struct {
	mu   sync.Mutex
	days map[string]map[core.UserID]struct{}
}

func NewDAU() *DAU { return &DAU{days: map[string]map[core.UserID]struct{}{}} }

func (d *DAU) OnEvent(e core.Event) {
	day := e.Time.UTC().Format("2006-01-02")
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.days[day]
	if m == nil {
		m = map[core.UserID]struct{}{}
		d.days[day] = m
	}
	m[e.UserID] = struct{}{}
}

func (d *DAU) Count(day string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.days[day])
}

// EngagementMetrics aggregates progression KPIs from the event stream.
type EngagementMetrics struct {
	mu sync.RWMutex

	// Active user tracking per day/week/month
	dailyActiveUsers   map[string]map[core.UserID]struct{}
	weeklyActiveUsers  map[string]map[core.UserID]struct{}
	monthlyActiveUsers map[string]map[core.UserID]struct{}

	// XP flow
	xpAwardedByDay      map[string]int64
	xpAwardedByActivity map[core.ActivityType]int64
	xpSpentByDay        map[string]int64

	// Badge unlocks
	badgesByDay        map[string]int64
	badgesByID         map[core.BadgeID]int64
	uniqueBadgeHolders map[core.BadgeID]map[core.UserID]struct{}

	// Level-ups
	levelUpsByDay     map[string]int64
	levelDistribution map[int64]int

	// Streak health
	streaksLostByDay      map[string]int64
	streaksProtectedByDay map[string]int64
	longestStreakSeen     map[core.UserID]int

	// Shield economy
	shieldsPurchasedByDay map[string]int64
	shieldsUsedByDay      map[string]int64
}

func NewEngagementMetrics() *EngagementMetrics {
	return &EngagementMetrics{
		dailyActiveUsers:      make(map[string]map[core.UserID]struct{}),
		weeklyActiveUsers:     make(map[string]map[core.UserID]struct{}),
		monthlyActiveUsers:    make(map[string]map[core.UserID]struct{}),
		xpAwardedByDay:        make(map[string]int64),
		xpAwardedByActivity:   make(map[core.ActivityType]int64),
		xpSpentByDay:          make(map[string]int64),
		badgesByDay:           make(map[string]int64),
		badgesByID:            make(map[core.BadgeID]int64),
		uniqueBadgeHolders:    make(map[core.BadgeID]map[core.UserID]struct{}),
		levelUpsByDay:         make(map[string]int64),
		levelDistribution:     make(map[int64]int),
		streaksLostByDay:      make(map[string]int64),
		streaksProtectedByDay: make(map[string]int64),
		longestStreakSeen:     make(map[core.UserID]int),
		shieldsPurchasedByDay: make(map[string]int64),
		shieldsUsedByDay:      make(map[string]int64),
	}
}

func (em *EngagementMetrics) OnEvent(e core.Event) {
	em.mu.Lock()
	defer em.mu.Unlock()

	day := e.Time.UTC().Format("2006-01-02")
	week := weekKey(e.Time)
	month := monthKey(e.Time)

	em.trackActiveUser(e.UserID, day, week, month)

	switch e.Type {
	case core.EventXPAdded:
		if e.Delta > 0 {
			em.xpAwardedByDay[day] += e.Delta
			em.xpAwardedByActivity[e.Activity] += e.Delta
		} else if e.Delta < 0 {
			em.xpSpentByDay[day] += -e.Delta
		}
	case core.EventBadgeUnlocked:
		em.badgesByDay[day]++
		em.badgesByID[e.Badge]++
		if em.uniqueBadgeHolders[e.Badge] == nil {
			em.uniqueBadgeHolders[e.Badge] = make(map[core.UserID]struct{})
		}
		em.uniqueBadgeHolders[e.Badge][e.UserID] = struct{}{}
	case core.EventLevelUp:
		em.levelUpsByDay[day]++
		em.levelDistribution[e.Level]++
	case core.EventStreakIncreased:
		if e.Streak > em.longestStreakSeen[e.UserID] {
			em.longestStreakSeen[e.UserID] = e.Streak
		}
	case core.EventStreakLost:
		em.streaksLostByDay[day]++
	case core.EventStreakProtected:
		em.streaksProtectedByDay[day]++
	case core.EventShieldPurchased:
		em.shieldsPurchasedByDay[day]++
	case core.EventShieldUsed:
		em.shieldsUsedByDay[day]++
	}
}

func (em *EngagementMetrics) trackActiveUser(userID core.UserID, day, week, month string) {
	if em.dailyActiveUsers[day] == nil {
		em.dailyActiveUsers[day] = make(map[core.UserID]struct{})
	}
	em.dailyActiveUsers[day][userID] = struct{}{}

	if em.weeklyActiveUsers[week] == nil {
		em.weeklyActiveUsers[week] = make(map[core.UserID]struct{})
	}
	em.weeklyActiveUsers[week][userID] = struct{}{}

	if em.monthlyActiveUsers[month] == nil {
		em.monthlyActiveUsers[month] = make(map[core.UserID]struct{})
	}
	em.monthlyActiveUsers[month][userID] = struct{}{}
}

// ActiveUsers returns the active-user count for a day key ("2006-01-02"),
// a week key ("2006-W01") or a month key ("2006-01").
func (em *EngagementMetrics) ActiveUsers(periodKey string) int {
	em.mu.RLock()
	defer em.mu.RUnlock()
	if users, ok := em.dailyActiveUsers[periodKey]; ok {
		return len(users)
	}
	if users, ok := em.weeklyActiveUsers[periodKey]; ok {
		return len(users)
	}
	if users, ok := em.monthlyActiveUsers[periodKey]; ok {
		return len(users)
	}
	return 0
}

// XPAwarded returns the total XP credited on a specific day.
func (em *EngagementMetrics) XPAwarded(day string) int64 {
	em.mu.RLock()
	defer em.mu.RUnlock()
	return em.xpAwardedByDay[day]
}

// XPSpent returns the total XP debited (shield purchases) on a specific day.
func (em *EngagementMetrics) XPSpent(day string) int64 {
	em.mu.RLock()
	defer em.mu.RUnlock()
	return em.xpSpentByDay[day]
}

// XPByActivity returns the total XP credited for one activity type.
func (em *EngagementMetrics) XPByActivity(activity core.ActivityType) int64 {
	em.mu.RLock()
	defer em.mu.RUnlock()
	return em.xpAwardedByActivity[activity]
}

// BadgeUnlocks returns how many times a badge has been unlocked.
func (em *EngagementMetrics) BadgeUnlocks(badge core.BadgeID) int64 {
	em.mu.RLock()
	defer em.mu.RUnlock()
	return em.badgesByID[badge]
}

// UniqueBadgeHolders returns how many distinct users hold a badge.
func (em *EngagementMetrics) UniqueBadgeHolders(badge core.BadgeID) int {
	em.mu.RLock()
	defer em.mu.RUnlock()
	if holders, ok := em.uniqueBadgeHolders[badge]; ok {
		return len(holders)
	}
	return 0
}

// LevelUps returns the level-up count on a specific day.
func (em *EngagementMetrics) LevelUps(day string) int64 {
	em.mu.RLock()
	defer em.mu.RUnlock()
	return em.levelUpsByDay[day]
}

// StreaksLost returns how many streaks were lost on a specific day.
func (em *EngagementMetrics) StreaksLost(day string) int64 {
	em.mu.RLock()
	defer em.mu.RUnlock()
	return em.streaksLostByDay[day]
}

// StreaksProtected returns how many shield saves happened on a specific day.
func (em *EngagementMetrics) StreaksProtected(day string) int64 {
	em.mu.RLock()
	defer em.mu.RUnlock()
	return em.streaksProtectedByDay[day]
}

// LongestStreak returns the longest streak observed for a user.
func (em *EngagementMetrics) LongestStreak(user core.UserID) int {
	em.mu.RLock()
	defer em.mu.RUnlock()
	return em.longestStreakSeen[user]
}

// ShieldEconomy returns purchased and used shield counts for a day.
func (em *EngagementMetrics) ShieldEconomy(day string) (purchased, used int64) {
	em.mu.RLock()
	defer em.mu.RUnlock()
	return em.shieldsPurchasedByDay[day], em.shieldsUsedByDay[day]
}

// Snapshot builds a point-in-time Report for the given day.
func (em *EngagementMetrics) Snapshot(day string) *Report {
	em.mu.RLock()
	defer em.mu.RUnlock()

	r := &Report{
		Day:              day,
		CreatedAt:        time.Now().UTC(),
		ActiveUsers:      len(em.dailyActiveUsers[day]),
		XPAwarded:        em.xpAwardedByDay[day],
		XPSpent:          em.xpSpentByDay[day],
		BadgesUnlocked:   em.badgesByDay[day],
		LevelUps:         em.levelUpsByDay[day],
		StreaksLost:      em.streaksLostByDay[day],
		StreaksProtected: em.streaksProtectedByDay[day],
		XPByActivity:     make(map[core.ActivityType]int64, len(em.xpAwardedByActivity)),
	}
	r.ShieldsPurchased, r.ShieldsUsed = em.shieldsPurchasedByDay[day], em.shieldsUsedByDay[day]
	for activity, xp := range em.xpAwardedByActivity {
		r.XPByActivity[activity] = xp
	}
	return r
}

func weekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}
