package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kazeca/holyfit-sub000/catalog"
	"github.com/kazeca/holyfit-sub000/core"
	"github.com/kazeca/holyfit-sub000/progression"
)

// errAtRisk aborts a transaction without mutating state when the streak
// engine wants an explicit shield decision from the caller.
var errAtRisk = errors.New("streak at risk")

// ProgressionService composes the streak, badge, and XP engines on top of a
// transactional store. It is the single entry point for progression
// mutations.
type ProgressionService struct {
	store    Store
	bus      *EventBus
	loc      *time.Location
	recorder ActivityRecorder
	notifier Notifier
	ranker   Ranker
	log      *slog.Logger
}

// Option configures a ProgressionService.
type Option func(*ProgressionService)

// WithLocation sets the canonical timezone for calendar-day math.
func WithLocation(loc *time.Location) Option {
	return func(s *ProgressionService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithRecorder wires the fire-and-forget activity record sink.
func WithRecorder(r ActivityRecorder) Option {
	return func(s *ProgressionService) { s.recorder = r }
}

// WithNotifier wires the notification-intent sink.
func WithNotifier(n Notifier) Option {
	return func(s *ProgressionService) { s.notifier = n }
}

// WithRanker wires the leaderboard used by rank badges.
func WithRanker(r Ranker) Option {
	return func(s *ProgressionService) { s.ranker = r }
}

// WithLogger overrides the logger used for sink failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *ProgressionService) {
		if l != nil {
			s.log = l
		}
	}
}

func NewProgressionService(store Store, bus *EventBus, opts ...Option) *ProgressionService {
	if store == nil || bus == nil {
		panic("NewProgressionService requires non-nil store and bus")
	}
	s := &ProgressionService{store: store, bus: bus, loc: time.UTC, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Subscribe convenience method.
func (s *ProgressionService) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

func (s *ProgressionService) Publish(ctx context.Context, ev core.Event) {
	s.bus.Publish(ctx, ev)
}

// ApplyActivity runs the full progression update for one activity event:
// streak transition, counter bumps, badge unlocks, XP and level, title tier.
// Everything is applied in one store transaction; an AT_RISK streak
// short-circuits with no mutation so the caller can offer a shield first.
// Celebration side effects are driven entirely by the returned result.
func (s *ProgressionService) ApplyActivity(ctx context.Context, user core.UserID, ev core.ActivityEvent) (core.ActivityResult, error) {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return core.ActivityResult{}, core.NewValidationError("user", err.Error())
	}
	ev = ev.Normalize(s.loc)
	if err := ev.Validate(); err != nil {
		return core.ActivityResult{}, err
	}

	var res core.ActivityResult
	committed, err := s.store.RunTransaction(ctx, user, func(p core.UserProgression) (core.UserProgression, error) {
		// The store may retry fn on conflict; rebuild the result each run.
		res = core.ActivityResult{}

		st, sres := progression.AdvanceStreak(progression.StreakOf(p), ev.Day, ev.OccurredAt)
		res.Streak = sres
		if sres.Status == core.StreakAtRisk {
			res.State = p
			return p, errAtRisk
		}
		st.ApplyTo(&p)

		bumpCounters(&p, ev)

		snap := p.Snapshot()
		if s.ranker != nil {
			if rank, ok := s.ranker.Rank(user); ok {
				snap.LeaderboardRank = rank
			}
		}
		unlockXP := s.applyUnlocks(&p, catalog.Evaluate(snap, ev, p.HasBadge), ev.OccurredAt, &res)

		total, lc, err := progression.ApplyXP(p.TotalPoints, ev.XP+unlockXP)
		if err != nil {
			return p, err
		}
		p.TotalPoints = total
		p.Level = lc.NewLevel
		res.XPGranted = ev.XP + unlockXP
		res.LevelChange = lc

		res.TitleChanged = reconcileTitle(&p)
		p.Updated = ev.OccurredAt.UTC()
		return p, nil
	})
	if errors.Is(err, errAtRisk) {
		return res, nil
	}
	if err != nil {
		return core.ActivityResult{}, err
	}
	res.State = committed

	s.afterApply(ctx, user, ev, res)
	return res, nil
}

// bumpCounters maintains the incremental counters badge predicates read.
func bumpCounters(p *core.UserProgression, ev core.ActivityEvent) {
	switch ev.Type {
	case core.ActivityWorkout:
		p.WorkoutsCompleted++
		p.CaloriesBurned += ev.Calories()
	case core.ActivityMeal:
		p.MealsLogged++
	case core.ActivityWater:
		p.WaterLogged++
	case core.ActivityChallenge:
		p.ChallengesCompleted++
	}
}

// applyUnlocks appends fresh unlocks to the badge set and returns the
// aggregate bonus XP. Already-present ids are skipped, so applying the same
// list twice is a no-op.
func (s *ProgressionService) applyUnlocks(p *core.UserProgression, defs []catalog.BadgeDefinition, at time.Time, res *core.ActivityResult) int64 {
	var bonus int64
	for _, def := range defs {
		if p.HasBadge(def.ID) {
			continue
		}
		p.Badges[def.ID] = at.UTC()
		bonus += def.XPBonus
		res.NewBadges = append(res.NewBadges, core.BadgeUnlock{ID: def.ID, XPBonus: def.XPBonus, UnlockedAt: at.UTC()})
	}
	res.BadgeBonusXP = bonus
	return bonus
}

// reconcileTitle records newly reached tiers and moves the active title with
// the tier unless the user pinned one. Reports whether the active title
// changed.
func reconcileTitle(p *core.UserProgression) bool {
	tier := catalog.TierFor(p.Level)
	if !p.HasTitle(tier.Label) {
		p.UnlockedTitles = append(p.UnlockedTitles, tier.Label)
	}
	if !p.TitlePinned && p.ActiveTitle != tier.Label {
		p.ActiveTitle = tier.Label
		return true
	}
	return false
}

// afterApply performs the post-commit side effects: XP history, activity
// record, notification intents, bus events, leaderboard update. None of them
// can roll back the committed state; failures are logged.
func (s *ProgressionService) afterApply(ctx context.Context, user core.UserID, ev core.ActivityEvent, res core.ActivityResult) {
	if res.XPGranted != 0 {
		entry := core.XPHistoryEntry{
			ID:        uuid.NewString(),
			UserID:    user,
			Source:    string(ev.Type),
			Amount:    res.XPGranted,
			Timestamp: ev.OccurredAt.UTC(),
		}
		if _, err := s.store.AppendHistory(ctx, user, entry); err != nil {
			s.log.Warn("xp history append failed", "user", user, "error", err)
		}
	}

	if s.recorder != nil {
		s.recorder.Record(ctx, ActivityRecord{
			ID:     uuid.NewString(),
			UserID: user,
			Type:   ev.Type,
			XP:     res.XPGranted,
			Day:    ev.Day,
		})
	}
	if s.ranker != nil {
		s.ranker.Update(user, res.State.TotalPoints)
	}

	s.bus.Publish(ctx, core.Event{
		Type: core.EventActivityApplied, Time: time.Now().UTC(), UserID: user,
		Activity: ev.Type, Delta: res.XPGranted, Total: res.State.TotalPoints,
	})
	if res.XPGranted > 0 {
		s.bus.Publish(ctx, core.NewXPAdded(user, ev.Type, res.XPGranted, res.State.TotalPoints))
	}
	switch res.Streak.Status {
	case core.StreakIncreased:
		s.bus.Publish(ctx, core.NewStreakEvent(core.EventStreakIncreased, user, res.Streak.Streak))
	case core.StreakProtected:
		s.bus.Publish(ctx, core.NewStreakEvent(core.EventStreakProtected, user, res.Streak.Streak))
		s.notify(ctx, user, "streak_protected", map[string]any{"streak": res.Streak.Streak})
	case core.StreakLost:
		s.bus.Publish(ctx, core.NewStreakEvent(core.EventStreakLost, user, res.Streak.PreviousStreak))
		s.notify(ctx, user, "streak_lost", map[string]any{
			"previous_streak": res.Streak.PreviousStreak,
			"new_record":      res.Streak.NewRecord,
		})
	}
	if res.Streak.ShieldEarned {
		s.bus.Publish(ctx, core.NewShieldEvent(core.EventShieldEarned, user, res.State.StreakShields))
	}
	for _, b := range res.NewBadges {
		s.bus.Publish(ctx, core.NewBadgeUnlocked(user, b.ID))
	}
	if len(res.NewBadges) > 0 {
		ids := make([]core.BadgeID, 0, len(res.NewBadges))
		for _, b := range res.NewBadges {
			ids = append(ids, b.ID)
		}
		s.notify(ctx, user, "badges_unlocked", map[string]any{"badges": ids, "bonus_xp": res.BadgeBonusXP})
	}
	if res.LevelChange.LeveledUp {
		s.bus.Publish(ctx, core.NewLevelUp(user, res.LevelChange.NewLevel))
		s.notify(ctx, user, "level_up", map[string]any{"level": res.LevelChange.NewLevel})
	}
	if res.TitleChanged {
		s.bus.Publish(ctx, core.NewTitleChanged(user, res.State.ActiveTitle))
		s.notify(ctx, user, "title_change", map[string]any{"title": res.State.ActiveTitle})
	}
}

func (s *ProgressionService) notify(ctx context.Context, user core.UserID, kind string, payload map[string]any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, NotificationIntent{UserID: user, Kind: kind, Payload: payload})
}

// PurchaseShield buys one shield for ShieldCost points. The debit and the
// shield increment commit together; the debit is recorded as a negative
// history entry. A debit that drops the level across a tier boundary moves
// an unpinned active title with it.
func (s *ProgressionService) PurchaseShield(ctx context.Context, user core.UserID) (core.UserProgression, error) {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return core.UserProgression{}, core.NewValidationError("user", err.Error())
	}
	now := time.Now()
	var titleChanged bool
	committed, err := s.store.RunTransaction(ctx, user, func(p core.UserProgression) (core.UserProgression, error) {
		titleChanged = false
		p, err := progression.PurchaseShield(p, now)
		if err != nil {
			return p, err
		}
		titleChanged = reconcileTitle(&p)
		return p, nil
	})
	if err != nil {
		return core.UserProgression{}, err
	}
	entry := core.XPHistoryEntry{
		ID: uuid.NewString(), UserID: user, Source: "shield_purchase",
		Amount: -core.ShieldCost, Timestamp: now.UTC(),
	}
	if _, err := s.store.AppendHistory(ctx, user, entry); err != nil {
		s.log.Warn("xp history append failed", "user", user, "error", err)
	}
	s.bus.Publish(ctx, core.NewShieldEvent(core.EventShieldPurchased, user, committed.StreakShields))
	if titleChanged {
		s.bus.Publish(ctx, core.NewTitleChanged(user, committed.ActiveTitle))
		s.notify(ctx, user, "title_change", map[string]any{"title": committed.ActiveTitle})
	}
	return committed, nil
}

// UseShield consumes one shield, protecting the streak through the end of
// tomorrow. Shield badges unlock in the same transaction; their bonus XP is
// recorded in the history like any other grant and can level the user up.
func (s *ProgressionService) UseShield(ctx context.Context, user core.UserID) (core.UserProgression, []core.BadgeUnlock, error) {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return core.UserProgression{}, nil, core.NewValidationError("user", err.Error())
	}
	now := time.Now()
	ev := core.ActivityEvent{Type: core.ActivityFreezeUsed, OccurredAt: now}.Normalize(s.loc)
	var (
		unlocks      []core.BadgeUnlock
		bonus        int64
		levelChange  core.LevelChange
		titleChanged bool
	)
	committed, err := s.store.RunTransaction(ctx, user, func(p core.UserProgression) (core.UserProgression, error) {
		unlocks, bonus, levelChange, titleChanged = nil, 0, core.LevelChange{}, false
		p, err := progression.UseShield(p, now, s.loc)
		if err != nil {
			return p, err
		}
		var res core.ActivityResult
		bonus = s.applyUnlocks(&p, catalog.Evaluate(p.Snapshot(), ev, p.HasBadge), now, &res)
		unlocks = res.NewBadges
		if bonus > 0 {
			total, lc, err := progression.ApplyXP(p.TotalPoints, bonus)
			if err != nil {
				return p, err
			}
			p.TotalPoints = total
			p.Level = lc.NewLevel
			levelChange = lc
			titleChanged = reconcileTitle(&p)
		}
		p.Updated = now.UTC()
		return p, nil
	})
	if err != nil {
		return core.UserProgression{}, nil, err
	}
	if bonus > 0 {
		entry := core.XPHistoryEntry{
			ID: uuid.NewString(), UserID: user, Source: "badge_bonus",
			Amount: bonus, Timestamp: now.UTC(),
		}
		if _, err := s.store.AppendHistory(ctx, user, entry); err != nil {
			s.log.Warn("xp history append failed", "user", user, "error", err)
		}
		s.bus.Publish(ctx, core.NewXPAdded(user, ev.Type, bonus, committed.TotalPoints))
	}
	s.bus.Publish(ctx, core.NewShieldEvent(core.EventShieldUsed, user, committed.StreakShields))
	for _, b := range unlocks {
		s.bus.Publish(ctx, core.NewBadgeUnlocked(user, b.ID))
	}
	if levelChange.LeveledUp {
		s.bus.Publish(ctx, core.NewLevelUp(user, levelChange.NewLevel))
		s.notify(ctx, user, "level_up", map[string]any{"level": levelChange.NewLevel})
	}
	if titleChanged {
		s.bus.Publish(ctx, core.NewTitleChanged(user, committed.ActiveTitle))
		s.notify(ctx, user, "title_change", map[string]any{"title": committed.ActiveTitle})
	}
	return committed, unlocks, nil
}

// SetActiveTitle pins a previously unlocked title as the display title.
func (s *ProgressionService) SetActiveTitle(ctx context.Context, user core.UserID, title string) (core.UserProgression, error) {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return core.UserProgression{}, core.NewValidationError("user", err.Error())
	}
	committed, err := s.store.RunTransaction(ctx, user, func(p core.UserProgression) (core.UserProgression, error) {
		if !p.HasTitle(title) {
			return p, core.ErrTitleLocked
		}
		p.ActiveTitle = title
		p.TitlePinned = true
		p.Updated = time.Now().UTC()
		return p, nil
	})
	if err != nil {
		return core.UserProgression{}, err
	}
	s.bus.Publish(ctx, core.NewTitleChanged(user, title))
	return committed, nil
}

// CreateProgression provisions the zeroed document at account creation.
// Creating an existing document returns the current one.
func (s *ProgressionService) CreateProgression(ctx context.Context, user core.UserID) (core.UserProgression, error) {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return core.UserProgression{}, core.NewValidationError("user", err.Error())
	}
	return s.store.CreateProgression(ctx, user)
}

// GetProgression returns the user's current document.
func (s *ProgressionService) GetProgression(ctx context.Context, user core.UserID) (core.UserProgression, error) {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return core.UserProgression{}, core.NewValidationError("user", err.Error())
	}
	return s.store.GetProgression(ctx, user)
}

// XPHistory returns the most recent audit log entries, newest first.
func (s *ProgressionService) XPHistory(ctx context.Context, user core.UserID, limit int) ([]core.XPHistoryEntry, error) {
	user, err := core.NormalizeUserID(user)
	if err != nil {
		return nil, core.NewValidationError("user", err.Error())
	}
	return s.store.History(ctx, user, limit)
}

func (s *ProgressionService) Close() { s.bus.Close() }
