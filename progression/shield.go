package progression

import (
	"time"

	"github.com/kazeca/holyfit-sub000/catalog"
	"github.com/kazeca/holyfit-sub000/core"
)

// PurchaseShield deducts the shield cost from the point total and adds one
// shield. The level is recomputed so the Level(TotalPoints) invariant holds
// after the debit.
func PurchaseShield(p core.UserProgression, now time.Time) (core.UserProgression, error) {
	if p.StreakShields >= core.MaxShields {
		return p, core.ErrShieldCapReached
	}
	if p.TotalPoints < core.ShieldCost {
		return p, core.ErrInsufficientFunds
	}
	p.TotalPoints -= core.ShieldCost
	p.Level = catalog.Level(p.TotalPoints)
	p.StreakShields++
	p.Updated = now.UTC()
	return p, nil
}

// UseShield consumes one shield and protects the streak through the end of
// tomorrow in loc.
func UseShield(p core.UserProgression, now time.Time, loc *time.Location) (core.UserProgression, error) {
	if p.StreakShields == 0 {
		return p, core.ErrNoShieldsAvailable
	}
	p.StreakShields--
	p.ShieldsUsed++
	until := core.EndOfTomorrow(now, loc)
	p.StreakProtectedUntil = &until
	p.Updated = now.UTC()
	return p, nil
}
