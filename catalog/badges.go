package catalog

import (
	"github.com/kazeca/holyfit-sub000/core"
)

// Rarity buckets badges for presentation.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Category groups badges by unlock mechanic.
type Category string

const (
	CategoryFirsts Category = "firsts"
	CategoryCount  Category = "count"
	CategoryStreak Category = "streak"
	CategoryShield Category = "shield"
	CategoryTiming Category = "timing"
	CategoryLevel  Category = "level"
	CategoryRank   Category = "rank"
)

// Predicate decides whether a badge unlocks for the given snapshot and
// triggering event. Predicates are pure: no clocks, no I/O. The snapshot
// reflects the event's streak transition and counter bumps but not its XP.
type Predicate func(s core.Snapshot, e core.ActivityEvent) bool

// BadgeDefinition is one static catalog row. Exactly one definition exists
// per id.
type BadgeDefinition struct {
	ID       core.BadgeID
	Name     string
	Category Category
	Rarity   Rarity
	XPBonus  int64
	Unlocks  Predicate
}

func onWorkout(p func(core.Snapshot) bool) Predicate {
	return func(s core.Snapshot, e core.ActivityEvent) bool {
		return e.Type == core.ActivityWorkout && p(s)
	}
}

func streakAtLeast(n int) Predicate {
	return func(s core.Snapshot, _ core.ActivityEvent) bool { return s.CurrentStreak >= n }
}

func levelAtLeast(n int64) Predicate {
	return func(s core.Snapshot, _ core.ActivityEvent) bool { return s.Level >= n }
}

// badges is the full catalog. Workouts are photo-verified in the app, so the
// first workout also unlocks the first photo badge.
var badges = []BadgeDefinition{
	// Firsts
	{ID: "first_workout", Name: "Primeiro Treino", Category: CategoryFirsts, Rarity: RarityCommon, XPBonus: 50,
		Unlocks: onWorkout(func(s core.Snapshot) bool { return s.WorkoutsCompleted == 1 })},
	{ID: "first_photo", Name: "Primeira Foto", Category: CategoryFirsts, Rarity: RarityCommon, XPBonus: 30,
		Unlocks: onWorkout(func(s core.Snapshot) bool { return s.WorkoutsCompleted == 1 })},
	{ID: "first_meal", Name: "Primeira Refeição", Category: CategoryFirsts, Rarity: RarityCommon, XPBonus: 30,
		Unlocks: func(s core.Snapshot, e core.ActivityEvent) bool {
			return e.Type == core.ActivityMeal && s.MealsLogged == 1
		}},

	// Count thresholds
	{ID: "workouts_10", Name: "10 Treinos", Category: CategoryCount, Rarity: RarityCommon, XPBonus: 100,
		Unlocks: func(s core.Snapshot, _ core.ActivityEvent) bool { return s.WorkoutsCompleted >= 10 }},
	{ID: "workouts_50", Name: "50 Treinos", Category: CategoryCount, Rarity: RarityRare, XPBonus: 250,
		Unlocks: func(s core.Snapshot, _ core.ActivityEvent) bool { return s.WorkoutsCompleted >= 50 }},
	{ID: "workouts_100", Name: "100 Treinos", Category: CategoryCount, Rarity: RarityEpic, XPBonus: 500,
		Unlocks: func(s core.Snapshot, _ core.ActivityEvent) bool { return s.WorkoutsCompleted >= 100 }},
	{ID: "meals_10", Name: "10 Refeições", Category: CategoryCount, Rarity: RarityCommon, XPBonus: 75,
		Unlocks: func(s core.Snapshot, _ core.ActivityEvent) bool { return s.MealsLogged >= 10 }},
	{ID: "meals_50", Name: "50 Refeições", Category: CategoryCount, Rarity: RarityRare, XPBonus: 200,
		Unlocks: func(s core.Snapshot, _ core.ActivityEvent) bool { return s.MealsLogged >= 50 }},
	{ID: "calories_10k", Name: "10k Calorias", Category: CategoryCount, Rarity: RarityRare, XPBonus: 150,
		Unlocks: func(s core.Snapshot, _ core.ActivityEvent) bool { return s.CaloriesBurned >= 10_000 }},
	{ID: "calories_50k", Name: "50k Calorias", Category: CategoryCount, Rarity: RarityEpic, XPBonus: 400,
		Unlocks: func(s core.Snapshot, _ core.ActivityEvent) bool { return s.CaloriesBurned >= 50_000 }},

	// Streak thresholds
	{ID: "streak_3", Name: "Sequência de 3", Category: CategoryStreak, Rarity: RarityCommon, XPBonus: 100, Unlocks: streakAtLeast(3)},
	{ID: "streak_7", Name: "Sequência de 7", Category: CategoryStreak, Rarity: RarityCommon, XPBonus: 200, Unlocks: streakAtLeast(7)},
	{ID: "streak_14", Name: "Sequência de 14", Category: CategoryStreak, Rarity: RarityRare, XPBonus: 300, Unlocks: streakAtLeast(14)},
	{ID: "streak_30", Name: "Sequência de 30", Category: CategoryStreak, Rarity: RarityRare, XPBonus: 500, Unlocks: streakAtLeast(30)},
	{ID: "streak_60", Name: "Sequência de 60", Category: CategoryStreak, Rarity: RarityEpic, XPBonus: 750, Unlocks: streakAtLeast(60)},
	{ID: "streak_100", Name: "Sequência de 100", Category: CategoryStreak, Rarity: RarityEpic, XPBonus: 1000, Unlocks: streakAtLeast(100)},
	{ID: "streak_365", Name: "Um Ano Inteiro", Category: CategoryStreak, Rarity: RarityLegendary, XPBonus: 2000, Unlocks: streakAtLeast(365)},

	// Shields
	{ID: "shield_first_use", Name: "Escudo Ativado", Category: CategoryShield, Rarity: RarityCommon, XPBonus: 50,
		Unlocks: func(s core.Snapshot, _ core.ActivityEvent) bool { return s.ShieldsUsed >= 1 }},
	{ID: "shield_veteran", Name: "Veterana dos Escudos", Category: CategoryShield, Rarity: RarityRare, XPBonus: 150,
		Unlocks: func(s core.Snapshot, _ core.ActivityEvent) bool { return s.ShieldsUsed >= 5 }},

	// Time of day (hour taken from the event's own local timestamp)
	{ID: "early_bird", Name: "Madrugadora", Category: CategoryTiming, Rarity: RarityCommon, XPBonus: 100,
		Unlocks: func(_ core.Snapshot, e core.ActivityEvent) bool {
			return e.Type == core.ActivityWorkout && e.OccurredAt.Hour() < 6
		}},
	{ID: "night_owl", Name: "Coruja Noturna", Category: CategoryTiming, Rarity: RarityCommon, XPBonus: 100,
		Unlocks: func(_ core.Snapshot, e core.ActivityEvent) bool {
			return e.Type == core.ActivityWorkout && e.OccurredAt.Hour() >= 22
		}},

	// Level thresholds
	{ID: "level_2", Name: "Nível 2", Category: CategoryLevel, Rarity: RarityCommon, XPBonus: 50, Unlocks: levelAtLeast(2)},
	{ID: "level_20", Name: "Nível 20", Category: CategoryLevel, Rarity: RarityEpic, XPBonus: 500, Unlocks: levelAtLeast(20)},
	{ID: "level_30", Name: "Nível 30", Category: CategoryLevel, Rarity: RarityLegendary, XPBonus: 1000, Unlocks: levelAtLeast(30)},

	// Leaderboard rank (0 means unranked)
	{ID: "podium", Name: "Pódio", Category: CategoryRank, Rarity: RarityRare, XPBonus: 300,
		Unlocks: func(s core.Snapshot, _ core.ActivityEvent) bool { return s.LeaderboardRank > 0 && s.LeaderboardRank <= 3 }},
	{ID: "champion", Name: "Campeã", Category: CategoryRank, Rarity: RarityEpic, XPBonus: 500,
		Unlocks: func(s core.Snapshot, _ core.ActivityEvent) bool { return s.LeaderboardRank == 1 }},
}

var byID = func() map[core.BadgeID]BadgeDefinition {
	m := make(map[core.BadgeID]BadgeDefinition, len(badges))
	for _, b := range badges {
		if _, dup := m[b.ID]; dup {
			panic("duplicate badge id: " + string(b.ID))
		}
		m[b.ID] = b
	}
	return m
}()

// Badges returns the full catalog in declaration order.
func Badges() []BadgeDefinition {
	out := make([]BadgeDefinition, len(badges))
	copy(out, badges)
	return out
}

// BadgeByID looks up one definition.
func BadgeByID(id core.BadgeID) (BadgeDefinition, bool) {
	b, ok := byID[id]
	return b, ok
}

// Evaluate returns the definitions newly qualifying for the event. Badges for
// which unlocked returns true are skipped, which is what makes repeated
// evaluation of the same event idempotent.
func Evaluate(s core.Snapshot, e core.ActivityEvent, unlocked func(core.BadgeID) bool) []BadgeDefinition {
	var out []BadgeDefinition
	for _, b := range badges {
		if unlocked != nil && unlocked(b.ID) {
			continue
		}
		if b.Unlocks(s, e) {
			out = append(out, b)
		}
	}
	return out
}
