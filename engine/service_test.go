package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mem "github.com/kazeca/holyfit-sub000/adapters/memory"
	"github.com/kazeca/holyfit-sub000/core"
)

func newService(t *testing.T, opts ...Option) (*ProgressionService, *mem.Store) {
	t.Helper()
	store := mem.New()
	svc := NewProgressionService(store, NewEventBus(DispatchSync), opts...)
	t.Cleanup(svc.Close)
	return svc, store
}

// seed provisions a user and applies doc mutations directly on the store.
func seed(t *testing.T, store *mem.Store, user core.UserID, mutate func(*core.UserProgression)) {
	t.Helper()
	ctx := context.Background()
	if _, err := store.CreateProgression(ctx, user); err != nil {
		t.Fatal(err)
	}
	if mutate == nil {
		return
	}
	if _, err := store.RunTransaction(ctx, user, func(p core.UserProgression) (core.UserProgression, error) {
		mutate(&p)
		return p, nil
	}); err != nil {
		t.Fatal(err)
	}
}

func at(day string, hour int) time.Time {
	d, _ := time.Parse("2006-01-02", day)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC)
}

func workout(day string, xp int64) core.ActivityEvent {
	return core.ActivityEvent{Type: core.ActivityWorkout, XP: xp, OccurredAt: at(day, 12)}
}

func TestFirstWorkout(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seed(t, store, "alice", nil)

	res, err := svc.ApplyActivity(ctx, "alice", workout("2026-03-10", 100))
	if err != nil {
		t.Fatal(err)
	}

	if res.Streak.Status != core.StreakIncreased || res.Streak.Streak != 1 {
		t.Fatalf("streak: %+v", res.Streak)
	}
	// 100 base + first_workout 50 + first_photo 30
	if res.XPGranted != 180 {
		t.Fatalf("xp granted: %d", res.XPGranted)
	}
	if res.BadgeBonusXP != 80 {
		t.Fatalf("badge bonus: %d", res.BadgeBonusXP)
	}
	if res.State.TotalPoints != 180 || res.State.Level != 1 {
		t.Fatalf("state: total=%d level=%d", res.State.TotalPoints, res.State.Level)
	}
	if !res.State.HasBadge("first_workout") || !res.State.HasBadge("first_photo") {
		t.Fatalf("badges: %v", res.State.Badges)
	}
	if res.State.ActiveTitle != "Iniciante" {
		t.Fatalf("title: %q", res.State.ActiveTitle)
	}
}

func TestSameDaySecondWorkout(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seed(t, store, "alice", nil)

	if _, err := svc.ApplyActivity(ctx, "alice", workout("2026-03-10", 100)); err != nil {
		t.Fatal(err)
	}
	res, err := svc.ApplyActivity(ctx, "alice", workout("2026-03-10", 100))
	if err != nil {
		t.Fatal(err)
	}

	if res.Streak.Status != core.StreakActive || res.Streak.Streak != 1 {
		t.Fatalf("streak: %+v", res.Streak)
	}
	if res.State.WorkoutsCompleted != 2 {
		t.Fatalf("counters still advance on repeats: %d", res.State.WorkoutsCompleted)
	}
	// no badge re-grant on the repeat
	if len(res.NewBadges) != 0 {
		t.Fatalf("badges re-granted: %v", res.NewBadges)
	}
	if res.XPGranted != 100 {
		t.Fatalf("xp: %d", res.XPGranted)
	}
}

func TestBackdatedWorkoutKeepsStreak(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seed(t, store, "alice", func(p *core.UserProgression) {
		p.CurrentStreak = 1
		p.LongestStreak = 1
		p.LastActivityDay = "2026-03-10"
		p.WorkoutsCompleted = 1
		p.Badges["first_workout"] = time.Now()
		p.Badges["first_photo"] = time.Now()
	})

	// An event dated before the recorded day cannot earn an increment or
	// roll the streak backward.
	res, err := svc.ApplyActivity(ctx, "alice", workout("2026-03-09", 100))
	if err != nil {
		t.Fatal(err)
	}
	if res.Streak.Status != core.StreakActive || res.Streak.Streak != 1 {
		t.Fatalf("streak: %+v", res.Streak)
	}
	if res.State.LastActivityDay != "2026-03-10" {
		t.Fatalf("last day moved backward: %q", res.State.LastActivityDay)
	}

	// The recorded day is still a same-day repeat, not a fresh increment.
	res, err = svc.ApplyActivity(ctx, "alice", workout("2026-03-10", 100))
	if err != nil {
		t.Fatal(err)
	}
	if res.Streak.Status != core.StreakActive || res.State.CurrentStreak != 1 {
		t.Fatalf("streak re-earned: %+v", res.Streak)
	}
}

func TestWeekBoundaryEarnsShield(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seed(t, store, "alice", func(p *core.UserProgression) {
		p.CurrentStreak = 6
		p.LongestStreak = 6
		p.LastActivityDay = "2026-03-09"
		p.WorkoutsCompleted = 6
		// already owned so only streak_7 is fresh
		p.Badges["first_workout"] = time.Now()
		p.Badges["first_photo"] = time.Now()
		p.Badges["streak_3"] = time.Now()
	})

	res, err := svc.ApplyActivity(ctx, "alice", workout("2026-03-10", 100))
	if err != nil {
		t.Fatal(err)
	}

	if res.Streak.Streak != 7 || !res.Streak.ShieldEarned {
		t.Fatalf("streak: %+v", res.Streak)
	}
	if res.State.StreakShields != 1 {
		t.Fatalf("shields: %d", res.State.StreakShields)
	}
	if len(res.NewBadges) != 1 || res.NewBadges[0].ID != "streak_7" {
		t.Fatalf("badges: %v", res.NewBadges)
	}
	if res.XPGranted != 300 { // 100 base + streak_7 200
		t.Fatalf("xp: %d", res.XPGranted)
	}
}

func TestBareGapLosesStreak(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seed(t, store, "alice", func(p *core.UserProgression) {
		p.CurrentStreak = 15
		p.LongestStreak = 12
		p.LastActivityDay = "2026-03-07"
		p.WorkoutsCompleted = 15
		p.Badges["first_workout"] = time.Now()
		p.Badges["first_photo"] = time.Now()
		p.Badges["workouts_10"] = time.Now()
		p.Badges["streak_3"] = time.Now()
		p.Badges["streak_7"] = time.Now()
		p.Badges["streak_14"] = time.Now()
	})

	res, err := svc.ApplyActivity(ctx, "alice", workout("2026-03-10", 100))
	if err != nil {
		t.Fatal(err)
	}

	if res.Streak.Status != core.StreakLost {
		t.Fatalf("streak: %+v", res.Streak)
	}
	if res.Streak.PreviousStreak != 15 || !res.Streak.NewRecord {
		t.Fatalf("streak: %+v", res.Streak)
	}
	if res.State.CurrentStreak != 0 || res.State.LongestStreak != 15 {
		t.Fatalf("state: streak=%d longest=%d", res.State.CurrentStreak, res.State.LongestStreak)
	}
	// the activity itself still counts and pays
	if res.State.WorkoutsCompleted != 16 || res.XPGranted != 100 {
		t.Fatalf("activity dropped: workouts=%d xp=%d", res.State.WorkoutsCompleted, res.XPGranted)
	}
}

func TestAtRiskShortCircuits(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seed(t, store, "alice", func(p *core.UserProgression) {
		p.CurrentStreak = 10
		p.LongestStreak = 10
		p.LastActivityDay = "2026-03-07"
		p.StreakShields = 1
		p.WorkoutsCompleted = 10
	})

	res, err := svc.ApplyActivity(ctx, "alice", workout("2026-03-10", 100))
	if err != nil {
		t.Fatal(err)
	}

	if res.Streak.Status != core.StreakAtRisk {
		t.Fatalf("streak: %+v", res.Streak)
	}
	if res.Streak.DaysMissed != 2 || res.Streak.PreviousStreak != 10 {
		t.Fatalf("streak: %+v", res.Streak)
	}
	if res.XPGranted != 0 || len(res.NewBadges) != 0 {
		t.Fatalf("at-risk must grant nothing: %+v", res)
	}

	// nothing committed
	doc, err := svc.GetProgression(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if doc.CurrentStreak != 10 || doc.WorkoutsCompleted != 10 || doc.TotalPoints != 0 {
		t.Fatalf("state mutated: %+v", doc)
	}
}

func TestShieldSavesAtRiskStreak(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	lastDay := core.Today(time.UTC).AddDays(-3)
	seed(t, store, "alice", func(p *core.UserProgression) {
		p.CurrentStreak = 10
		p.LongestStreak = 10
		p.LastActivityDay = lastDay
		p.StreakShields = 1
		p.WorkoutsCompleted = 10
		p.Badges["first_workout"] = time.Now()
		p.Badges["first_photo"] = time.Now()
		p.Badges["workouts_10"] = time.Now()
		p.Badges["streak_3"] = time.Now()
		p.Badges["streak_7"] = time.Now()
	})

	res, err := svc.ApplyActivity(ctx, "alice", core.ActivityEvent{Type: core.ActivityWorkout, XP: 100})
	if err != nil {
		t.Fatal(err)
	}
	if res.Streak.Status != core.StreakAtRisk {
		t.Fatalf("streak: %+v", res.Streak)
	}

	doc, unlocks, err := svc.UseShield(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if doc.StreakShields != 0 || doc.ShieldsUsed != 1 {
		t.Fatalf("shield accounting: %+v", doc)
	}
	found := false
	for _, u := range unlocks {
		if u.ID == "shield_first_use" {
			found = true
		}
	}
	if !found {
		t.Fatalf("shield badge missing: %v", unlocks)
	}

	// retry now continues the streak under protection
	res, err = svc.ApplyActivity(ctx, "alice", core.ActivityEvent{Type: core.ActivityWorkout, XP: 100})
	if err != nil {
		t.Fatal(err)
	}
	if res.Streak.Status != core.StreakProtected || res.Streak.Streak != 11 {
		t.Fatalf("streak: %+v", res.Streak)
	}
}

func TestLevelUpCrossesTier(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seed(t, store, "alice", func(p *core.UserProgression) {
		p.TotalPoints = 4950
		p.Level = 5
		p.CurrentStreak = 20
		p.LongestStreak = 20
		p.LastActivityDay = "2026-03-09"
		p.WorkoutsCompleted = 40
		p.ActiveTitle = "Determinada"
		p.UnlockedTitles = []string{"Iniciante", "Determinada"}
		for _, id := range []core.BadgeID{"first_workout", "first_photo", "workouts_10", "streak_3", "streak_7", "streak_14", "level_2"} {
			p.Badges[id] = time.Now()
		}
	})

	levelUps := 0
	svc.Subscribe(core.EventLevelUp, func(_ context.Context, e core.Event) { levelUps++ })
	titleChanges := 0
	svc.Subscribe(core.EventTitleChanged, func(_ context.Context, e core.Event) { titleChanges++ })

	res, err := svc.ApplyActivity(ctx, "alice", workout("2026-03-10", 100))
	if err != nil {
		t.Fatal(err)
	}

	if res.State.TotalPoints != 5050 || res.State.Level != 6 {
		t.Fatalf("state: total=%d level=%d", res.State.TotalPoints, res.State.Level)
	}
	if !res.LevelChange.LeveledUp || !res.LevelChange.CrossedTier {
		t.Fatalf("level change: %+v", res.LevelChange)
	}
	if res.State.ActiveTitle != "Dedicada" || !res.TitleChanged {
		t.Fatalf("title: %q changed=%v", res.State.ActiveTitle, res.TitleChanged)
	}
	if levelUps != 1 || titleChanges != 1 {
		t.Fatalf("events: levelups=%d titles=%d", levelUps, titleChanges)
	}
}

func TestPinnedTitleSurvivesTierChange(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seed(t, store, "alice", func(p *core.UserProgression) {
		p.TotalPoints = 4950
		p.Level = 5
		p.LastActivityDay = "2026-03-09"
		p.CurrentStreak = 1
		p.UnlockedTitles = []string{"Iniciante", "Determinada"}
		p.ActiveTitle = "Determinada"
		for _, id := range []core.BadgeID{"first_workout", "first_photo", "streak_3", "level_2"} {
			p.Badges[id] = time.Now()
		}
	})

	if _, err := svc.SetActiveTitle(ctx, "alice", "Iniciante"); err != nil {
		t.Fatal(err)
	}

	res, err := svc.ApplyActivity(ctx, "alice", workout("2026-03-10", 100))
	if err != nil {
		t.Fatal(err)
	}
	if res.State.ActiveTitle != "Iniciante" || res.TitleChanged {
		t.Fatalf("pinned title moved: %q", res.State.ActiveTitle)
	}
	if !res.State.HasTitle("Dedicada") {
		t.Fatal("new tier still recorded as unlocked")
	}
}

func TestSetActiveTitleLocked(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seed(t, store, "alice", nil)

	_, err := svc.SetActiveTitle(ctx, "alice", "Lenda")
	if !errors.Is(err, core.ErrTitleLocked) {
		t.Fatalf("got %v", err)
	}
}

func TestPurchaseShield(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seed(t, store, "alice", func(p *core.UserProgression) {
		p.TotalPoints = 1200
		p.Level = 2
	})

	doc, err := svc.PurchaseShield(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if doc.TotalPoints != 700 || doc.StreakShields != 1 || doc.Level != 1 {
		t.Fatalf("got %+v", doc)
	}

	// the debit shows up in the ledger
	entries, err := svc.XPHistory(ctx, "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Amount != -core.ShieldCost || entries[0].Source != "shield_purchase" {
		t.Fatalf("ledger: %+v", entries)
	}

	_, err = svc.PurchaseShield(ctx, "alice")
	if !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("got %v", err)
	}
}

func TestPurchaseShieldReconcilesTitle(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seed(t, store, "alice", func(p *core.UserProgression) {
		p.TotalPoints = 5200
		p.Level = 6
		p.ActiveTitle = "Dedicada"
		p.UnlockedTitles = []string{"Iniciante", "Determinada", "Dedicada"}
	})

	titleChanges := 0
	svc.Subscribe(core.EventTitleChanged, func(_ context.Context, e core.Event) { titleChanges++ })

	doc, err := svc.PurchaseShield(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if doc.TotalPoints != 4700 || doc.Level != 5 {
		t.Fatalf("got %+v", doc)
	}
	// the debit dropped a tier; an unpinned title follows it
	if doc.ActiveTitle != "Determinada" {
		t.Fatalf("title: %q", doc.ActiveTitle)
	}
	if titleChanges != 1 {
		t.Fatalf("title events: %d", titleChanges)
	}
}

func TestPurchaseShieldKeepsPinnedTitle(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seed(t, store, "alice", func(p *core.UserProgression) {
		p.TotalPoints = 5200
		p.Level = 6
		p.ActiveTitle = "Dedicada"
		p.TitlePinned = true
		p.UnlockedTitles = []string{"Iniciante", "Determinada", "Dedicada"}
	})

	doc, err := svc.PurchaseShield(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Level != 5 || doc.ActiveTitle != "Dedicada" {
		t.Fatalf("pinned title moved: %+v", doc)
	}
}

func TestPurchaseShieldCap(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seed(t, store, "alice", func(p *core.UserProgression) {
		p.TotalPoints = 100_000
		p.StreakShields = core.MaxShields
	})

	_, err := svc.PurchaseShield(ctx, "alice")
	if !errors.Is(err, core.ErrShieldCapReached) {
		t.Fatalf("got %v", err)
	}
}

func TestUseShieldBonusRecorded(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seed(t, store, "alice", func(p *core.UserProgression) {
		p.StreakShields = 1
	})

	doc, unlocks, err := svc.UseShield(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(unlocks) != 1 || unlocks[0].ID != "shield_first_use" {
		t.Fatalf("unlocks: %v", unlocks)
	}
	if doc.TotalPoints != 50 {
		t.Fatalf("total: %d", doc.TotalPoints)
	}

	// the bonus shows up in the ledger so it still sums to the total
	entries, err := svc.XPHistory(ctx, "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Amount != 50 || entries[0].Source != "badge_bonus" {
		t.Fatalf("ledger: %+v", entries)
	}
}

func TestUseShieldBonusCrossesTier(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seed(t, store, "alice", func(p *core.UserProgression) {
		p.TotalPoints = 4960
		p.Level = 5
		p.StreakShields = 1
		p.ActiveTitle = "Determinada"
		p.UnlockedTitles = []string{"Iniciante", "Determinada"}
		p.Badges["level_2"] = time.Now()
	})

	levelUps := 0
	svc.Subscribe(core.EventLevelUp, func(_ context.Context, e core.Event) { levelUps++ })
	titleChanges := 0
	svc.Subscribe(core.EventTitleChanged, func(_ context.Context, e core.Event) { titleChanges++ })

	doc, _, err := svc.UseShield(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if doc.TotalPoints != 5010 || doc.Level != 6 {
		t.Fatalf("got %+v", doc)
	}
	if doc.ActiveTitle != "Dedicada" {
		t.Fatalf("title: %q", doc.ActiveTitle)
	}
	if levelUps != 1 || titleChanges != 1 {
		t.Fatalf("events: levelups=%d titles=%d", levelUps, titleChanges)
	}
}

func TestUseShieldWithoutStock(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seed(t, store, "alice", nil)

	_, _, err := svc.UseShield(ctx, "alice")
	if !errors.Is(err, core.ErrNoShieldsAvailable) {
		t.Fatalf("got %v", err)
	}
}

func TestMissingUser(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.GetProgression(ctx, "ghost"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
	if _, err := svc.ApplyActivity(ctx, "ghost", workout("2026-03-10", 100)); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestInvalidActivity(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seed(t, store, "alice", nil)

	_, err := svc.ApplyActivity(ctx, "alice", core.ActivityEvent{Type: "JUMPING", XP: 10})
	if !core.IsValidation(err) {
		t.Fatalf("got %v", err)
	}
	_, err = svc.ApplyActivity(ctx, "alice", core.ActivityEvent{Type: core.ActivityWorkout, XP: -1})
	if !core.IsValidation(err) {
		t.Fatalf("got %v", err)
	}
}

func TestXPHistoryOrdering(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seed(t, store, "alice", nil)

	if _, err := svc.ApplyActivity(ctx, "alice", workout("2026-03-10", 100)); err != nil {
		t.Fatal(err)
	}
	meal := core.ActivityEvent{Type: core.ActivityMeal, XP: 25, OccurredAt: at("2026-03-10", 13)}
	if _, err := svc.ApplyActivity(ctx, "alice", meal); err != nil {
		t.Fatal(err)
	}

	entries, err := svc.XPHistory(ctx, "alice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	// newest first: MEAL then WORKOUT
	if entries[0].Source != string(core.ActivityMeal) || entries[1].Source != string(core.ActivityWorkout) {
		t.Fatalf("order: %+v", entries)
	}
	// first_meal bonus folded into the meal's single entry
	if entries[0].Amount != 55 {
		t.Fatalf("meal amount: %d", entries[0].Amount)
	}
}

type fakeRanker struct {
	mu    sync.Mutex
	ranks map[core.UserID]int
	last  map[core.UserID]int64
}

func (f *fakeRanker) Update(u core.UserID, score int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		f.last = map[core.UserID]int64{}
	}
	f.last[u] = score
}

func (f *fakeRanker) Rank(u core.UserID) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.ranks[u]
	return r, ok
}

func TestRankBadges(t *testing.T) {
	ranker := &fakeRanker{ranks: map[core.UserID]int{"alice": 1}}
	svc, store := newService(t, WithRanker(ranker))
	ctx := context.Background()
	seed(t, store, "alice", func(p *core.UserProgression) {
		p.CurrentStreak = 2
		p.LastActivityDay = "2026-03-09"
		p.WorkoutsCompleted = 5
		for _, id := range []core.BadgeID{"first_workout", "first_photo", "streak_3"} {
			p.Badges[id] = time.Now()
		}
	})

	res, err := svc.ApplyActivity(ctx, "alice", workout("2026-03-10", 100))
	if err != nil {
		t.Fatal(err)
	}
	if !res.State.HasBadge("podium") || !res.State.HasBadge("champion") {
		t.Fatalf("rank badges missing: %v", res.NewBadges)
	}
	// board gets the post-commit total
	if ranker.last["alice"] != res.State.TotalPoints {
		t.Fatalf("board update: %d vs %d", ranker.last["alice"], res.State.TotalPoints)
	}
}

type fakeNotifier struct {
	mu      sync.Mutex
	intents []NotificationIntent
}

func (f *fakeNotifier) Notify(_ context.Context, intent NotificationIntent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents = append(f.intents, intent)
}

func (f *fakeNotifier) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.intents))
	for _, i := range f.intents {
		out = append(out, i.Kind)
	}
	return out
}

func TestNotificationIntents(t *testing.T) {
	notifier := &fakeNotifier{}
	svc, store := newService(t, WithNotifier(notifier))
	ctx := context.Background()
	seed(t, store, "alice", func(p *core.UserProgression) {
		p.CurrentStreak = 15
		p.LongestStreak = 12
		p.LastActivityDay = "2026-03-07"
		p.WorkoutsCompleted = 20
		for _, id := range []core.BadgeID{"first_workout", "first_photo", "workouts_10", "streak_3", "streak_7", "streak_14"} {
			p.Badges[id] = time.Now()
		}
	})

	if _, err := svc.ApplyActivity(ctx, "alice", workout("2026-03-10", 100)); err != nil {
		t.Fatal(err)
	}

	kinds := notifier.kinds()
	found := false
	for _, k := range kinds {
		if k == "streak_lost" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected streak_lost intent, got %v", kinds)
	}
}

func TestConcurrentAppliesOneUser(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seed(t, store, "alice", nil)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ApplyActivity(ctx, "alice", workout("2026-03-10", 10)); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	doc, err := svc.GetProgression(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if doc.WorkoutsCompleted != n {
		t.Fatalf("lost updates: %d", doc.WorkoutsCompleted)
	}
	// 20 x 10 base + first_workout 50 + first_photo 30 + workouts_10 100
	if doc.TotalPoints != n*10+50+30+100 {
		t.Fatalf("total: %d", doc.TotalPoints)
	}
	if doc.CurrentStreak != 1 {
		t.Fatalf("streak: %d", doc.CurrentStreak)
	}
}

func TestUserIDNormalization(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seed(t, store, "alice", nil)

	// mixed case resolves to the same account
	if _, err := svc.ApplyActivity(ctx, " Alice ", workout("2026-03-10", 100)); err != nil {
		t.Fatal(err)
	}
	doc, err := svc.GetProgression(ctx, "ALICE")
	if err != nil {
		t.Fatal(err)
	}
	if doc.WorkoutsCompleted != 1 {
		t.Fatalf("got %+v", doc)
	}
}
