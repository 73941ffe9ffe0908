// Package holyfit is the embedding facade: it assembles a ProgressionService
// from options with sensible defaults for library users.
package holyfit

import (
	"context"
	"time"

	"github.com/kazeca/holyfit-sub000/adapters/memory"
	"github.com/kazeca/holyfit-sub000/analytics"
	"github.com/kazeca/holyfit-sub000/core"
	"github.com/kazeca/holyfit-sub000/engine"
	"github.com/kazeca/holyfit-sub000/realtime"
)

// Option configures the service builder.
type Option func(*config)

type config struct {
	store    engine.Store
	mode     engine.DispatchMode
	loc      *time.Location
	hub      *realtime.Hub
	hook     analytics.Hook
	notifier engine.Notifier
	recorder engine.ActivityRecorder
	ranker   engine.Ranker
}

// WithStore sets the persistence adapter.
func WithStore(s engine.Store) Option { return func(c *config) { c.store = s } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithTimezone sets the canonical timezone for calendar-day streak math.
func WithTimezone(loc *time.Location) Option { return func(c *config) { c.loc = loc } }

// WithRealtime wires a realtime hub to receive all progression events.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithAnalytics wires a KPI hook to receive all progression events.
func WithAnalytics(h analytics.Hook) Option { return func(c *config) { c.hook = h } }

// WithNotifier wires a notification intent sink.
func WithNotifier(n engine.Notifier) Option { return func(c *config) { c.notifier = n } }

// WithRecorder wires an activity record sink.
func WithRecorder(r engine.ActivityRecorder) Option { return func(c *config) { c.recorder = r } }

// WithLeaderboard wires a leaderboard used both for rank badges and score
// updates after each apply.
func WithLeaderboard(r engine.Ranker) Option { return func(c *config) { c.ranker = r } }

// allEvents is every event type the bus can emit, bridged wholesale to
// realtime and analytics consumers.
var allEvents = []core.EventType{
	core.EventActivityApplied,
	core.EventXPAdded,
	core.EventBadgeUnlocked,
	core.EventLevelUp,
	core.EventTitleChanged,
	core.EventStreakIncreased,
	core.EventStreakLost,
	core.EventStreakProtected,
	core.EventShieldEarned,
	core.EventShieldPurchased,
	core.EventShieldUsed,
}

// New builds a configured ProgressionService. Defaults when not provided:
//   - store: in-memory
//   - dispatch: async
//   - timezone: UTC
func New(opts ...Option) *engine.ProgressionService {
	cfg := &config{mode: engine.DispatchAsync, loc: time.UTC}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.store == nil {
		cfg.store = memory.New()
	}

	bus := engine.NewEventBus(cfg.mode)
	if cfg.hub != nil {
		for _, typ := range allEvents {
			bus.Subscribe(typ, func(ctx context.Context, e core.Event) { cfg.hub.Broadcast(ctx, e) })
		}
	}
	if cfg.hook != nil {
		for _, typ := range allEvents {
			bus.Subscribe(typ, func(_ context.Context, e core.Event) { cfg.hook.OnEvent(e) })
		}
	}

	svcOpts := []engine.Option{engine.WithLocation(cfg.loc)}
	if cfg.notifier != nil {
		svcOpts = append(svcOpts, engine.WithNotifier(cfg.notifier))
	}
	if cfg.recorder != nil {
		svcOpts = append(svcOpts, engine.WithRecorder(cfg.recorder))
	}
	if cfg.ranker != nil {
		svcOpts = append(svcOpts, engine.WithRanker(cfg.ranker))
	}
	return engine.NewProgressionService(cfg.store, bus, svcOpts...)
}
