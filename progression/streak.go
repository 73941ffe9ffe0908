// Package progression holds the pure rule engines: streak transitions,
// shield accounting, and XP/level application. Nothing here performs I/O or
// reads clocks; time always arrives as a parameter.
package progression

import (
	"time"

	"github.com/kazeca/holyfit-sub000/core"
)

// StreakState is the slice of the progression document the streak engine
// reads and writes.
type StreakState struct {
	CurrentStreak        int
	LongestStreak        int
	LastActivityDay      core.DayID
	StreakShields        int
	StreakProtectedUntil *time.Time
}

// StreakOf extracts the streak slice from a progression document.
func StreakOf(p core.UserProgression) StreakState {
	return StreakState{
		CurrentStreak:        p.CurrentStreak,
		LongestStreak:        p.LongestStreak,
		LastActivityDay:      p.LastActivityDay,
		StreakShields:        p.StreakShields,
		StreakProtectedUntil: p.StreakProtectedUntil,
	}
}

// ApplyTo writes the streak slice back into a progression document.
func (s StreakState) ApplyTo(p *core.UserProgression) {
	p.CurrentStreak = s.CurrentStreak
	p.LongestStreak = s.LongestStreak
	p.LastActivityDay = s.LastActivityDay
	p.StreakShields = s.StreakShields
	p.StreakProtectedUntil = s.StreakProtectedUntil
}

func (s StreakState) isProtected(now time.Time) bool {
	return s.StreakProtectedUntil != nil && now.Before(*s.StreakProtectedUntil)
}

// AdvanceStreak computes the streak transition for an activity on day today.
// Rules are evaluated in order: first-ever activity, same-day repeat or
// backdated day (no mutation), consecutive day, gap under active protection,
// gap with a shield in stock (reported AT_RISK without mutating; the caller
// decides whether to consume a shield), gap with no shields (reset).
// LastActivityDay only ever advances; increments happen at most once per
// calendar day.
func AdvanceStreak(s StreakState, today core.DayID, now time.Time) (StreakState, core.StreakResult) {
	// First-ever activity: the streak starts at 1.
	if s.LastActivityDay.IsZero() {
		s.CurrentStreak = 1
		if s.LongestStreak < 1 {
			s.LongestStreak = 1
		}
		s.LastActivityDay = today
		return s, core.StreakResult{Status: core.StreakIncreased, Streak: 1}
	}

	// Same-day repeat, or an event dated before the recorded day. The streak
	// never moves backward: a backdated event cannot re-earn an increment or
	// roll LastActivityDay to an earlier day.
	if today <= s.LastActivityDay {
		return s, core.StreakResult{Status: core.StreakActive, Streak: s.CurrentStreak}
	}

	gap := core.DaysBetween(s.LastActivityDay, today)
	switch {
	case gap == 1:
		return increment(s, today, core.StreakIncreased)

	case s.isProtected(now):
		// The missed days are covered; the streak continues as if
		// consecutive. Protection lapses on its own, it is not cleared here.
		return increment(s, today, core.StreakProtected)

	case s.StreakShields > 0:
		// A shield could save the streak. Do not mutate: the caller must
		// explicitly consume one (or accept the reset) and retry.
		return s, core.StreakResult{
			Status:         core.StreakAtRisk,
			Streak:         s.CurrentStreak,
			DaysMissed:     gap - 1,
			PreviousStreak: s.CurrentStreak,
		}

	default:
		prev := s.CurrentStreak
		record := prev > s.LongestStreak
		if record {
			s.LongestStreak = prev
		}
		s.CurrentStreak = 0
		s.LastActivityDay = today
		return s, core.StreakResult{
			Status:         core.StreakLost,
			Streak:         0,
			PreviousStreak: prev,
			NewRecord:      record,
		}
	}
}

func increment(s StreakState, today core.DayID, status core.StreakStatus) (StreakState, core.StreakResult) {
	s.CurrentStreak++
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	s.LastActivityDay = today

	res := core.StreakResult{Status: status, Streak: s.CurrentStreak}
	// One shield per completed week, only while below the cap. Day counts
	// start at 1 so the first grant lands on streak 7.
	if s.CurrentStreak%core.DaysForShield == 0 && s.StreakShields < core.MaxShields {
		s.StreakShields++
		res.ShieldEarned = true
	}
	return s, res
}
