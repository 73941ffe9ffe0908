package progression

import (
	"testing"
	"time"

	"github.com/kazeca/holyfit-sub000/core"
)

var noon = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestFirstActivityStartsStreak(t *testing.T) {
	s, res := AdvanceStreak(StreakState{}, "2026-03-10", noon)
	if res.Status != core.StreakIncreased || res.Streak != 1 {
		t.Fatalf("got %+v", res)
	}
	if s.CurrentStreak != 1 || s.LongestStreak != 1 || s.LastActivityDay != "2026-03-10" {
		t.Fatalf("got %+v", s)
	}
}

func TestSameDayRepeatKeepsStreak(t *testing.T) {
	in := StreakState{CurrentStreak: 5, LongestStreak: 8, LastActivityDay: "2026-03-10"}
	s, res := AdvanceStreak(in, "2026-03-10", noon)
	if res.Status != core.StreakActive || res.Streak != 5 {
		t.Fatalf("got %+v", res)
	}
	if s != in {
		t.Fatalf("same-day repeat must not mutate, got %+v", s)
	}
}

func TestBackdatedDayDoesNotIncrement(t *testing.T) {
	in := StreakState{CurrentStreak: 1, LongestStreak: 1, LastActivityDay: "2026-03-10"}
	s, res := AdvanceStreak(in, "2026-03-09", noon)
	if res.Status != core.StreakActive || res.Streak != 1 {
		t.Fatalf("got %+v", res)
	}
	if s != in {
		t.Fatalf("backdated day must not mutate, got %+v", s)
	}
	if s.LastActivityDay != "2026-03-10" {
		t.Fatal("LastActivityDay must never move backward")
	}

	// The recorded day stays a same-day repeat afterwards.
	s, res = AdvanceStreak(s, "2026-03-10", noon)
	if res.Status != core.StreakActive || s.CurrentStreak != 1 {
		t.Fatalf("got %+v / %+v", res, s)
	}
}

func TestConsecutiveDayIncrements(t *testing.T) {
	in := StreakState{CurrentStreak: 6, LongestStreak: 6, LastActivityDay: "2026-03-09"}
	s, res := AdvanceStreak(in, "2026-03-10", noon)
	if res.Status != core.StreakIncreased || res.Streak != 7 {
		t.Fatalf("got %+v", res)
	}
	if !res.ShieldEarned {
		t.Fatal("day 7 completes a week and earns a shield")
	}
	if s.StreakShields != 1 || s.LongestStreak != 7 {
		t.Fatalf("got %+v", s)
	}
}

func TestShieldGrantRespectsCap(t *testing.T) {
	in := StreakState{CurrentStreak: 13, LongestStreak: 13, LastActivityDay: "2026-03-09", StreakShields: core.MaxShields}
	s, res := AdvanceStreak(in, "2026-03-10", noon)
	if res.Streak != 14 {
		t.Fatalf("got %+v", res)
	}
	if res.ShieldEarned || s.StreakShields != core.MaxShields {
		t.Fatal("no grant at the cap")
	}
}

func TestNoShieldOffWeekBoundary(t *testing.T) {
	in := StreakState{CurrentStreak: 7, LongestStreak: 7, LastActivityDay: "2026-03-09"}
	_, res := AdvanceStreak(in, "2026-03-10", noon)
	if res.ShieldEarned {
		t.Fatal("day 8 is not a week boundary")
	}
}

func TestProtectedGapContinues(t *testing.T) {
	until := noon.Add(12 * time.Hour)
	in := StreakState{CurrentStreak: 10, LongestStreak: 10, LastActivityDay: "2026-03-08", StreakProtectedUntil: &until}
	s, res := AdvanceStreak(in, "2026-03-10", noon)
	if res.Status != core.StreakProtected || res.Streak != 11 {
		t.Fatalf("got %+v", res)
	}
	if s.StreakProtectedUntil == nil {
		t.Fatal("protection lapses on its own, not cleared here")
	}
}

func TestGapWithShieldIsAtRisk(t *testing.T) {
	in := StreakState{CurrentStreak: 10, LongestStreak: 12, LastActivityDay: "2026-03-07", StreakShields: 2}
	s, res := AdvanceStreak(in, "2026-03-10", noon)
	if res.Status != core.StreakAtRisk {
		t.Fatalf("got %+v", res)
	}
	if res.DaysMissed != 2 || res.PreviousStreak != 10 {
		t.Fatalf("got %+v", res)
	}
	if s != in {
		t.Fatalf("at-risk must not mutate, got %+v", s)
	}
}

func TestBareGapLosesStreak(t *testing.T) {
	in := StreakState{CurrentStreak: 15, LongestStreak: 12, LastActivityDay: "2026-03-07"}
	s, res := AdvanceStreak(in, "2026-03-10", noon)
	if res.Status != core.StreakLost || res.Streak != 0 {
		t.Fatalf("got %+v", res)
	}
	if res.PreviousStreak != 15 || !res.NewRecord {
		t.Fatalf("got %+v", res)
	}
	if s.CurrentStreak != 0 || s.LongestStreak != 15 || s.LastActivityDay != "2026-03-10" {
		t.Fatalf("got %+v", s)
	}
}

func TestLossWithoutRecord(t *testing.T) {
	in := StreakState{CurrentStreak: 3, LongestStreak: 12, LastActivityDay: "2026-03-07"}
	s, res := AdvanceStreak(in, "2026-03-10", noon)
	if res.NewRecord {
		t.Fatal("3 < 12 is no record")
	}
	if s.LongestStreak != 12 {
		t.Fatalf("got %+v", s)
	}
}

func TestExpiredProtectionDoesNotSave(t *testing.T) {
	until := noon.Add(-time.Hour)
	in := StreakState{CurrentStreak: 10, LongestStreak: 10, LastActivityDay: "2026-03-08", StreakProtectedUntil: &until}
	_, res := AdvanceStreak(in, "2026-03-10", noon)
	if res.Status != core.StreakLost {
		t.Fatalf("expired protection, got %+v", res)
	}
}

func TestStreakRoundTrip(t *testing.T) {
	p := core.NewProgression("alice")
	p.CurrentStreak = 4
	p.LongestStreak = 9
	p.LastActivityDay = "2026-03-09"
	p.StreakShields = 2

	s := StreakOf(p)
	s, _ = AdvanceStreak(s, "2026-03-10", noon)
	s.ApplyTo(&p)

	if p.CurrentStreak != 5 || p.LastActivityDay != "2026-03-10" {
		t.Fatalf("got %+v", p)
	}
}
