package progression

import (
	"github.com/kazeca/holyfit-sub000/catalog"
	"github.com/kazeca/holyfit-sub000/core"
)

// ApplyXP adds a non-negative amount to the total and recomputes the level.
// Costs are modeled as separate debits elsewhere, never as negative XP.
func ApplyXP(total int64, amount int64) (int64, core.LevelChange, error) {
	if amount < 0 {
		return total, core.LevelChange{}, core.NewValidationError("amount", "xp must not be negative")
	}
	newTotal, err := core.AddSafe(total, amount)
	if err != nil {
		return total, core.LevelChange{}, err
	}
	prev := catalog.Level(total)
	next := catalog.Level(newTotal)
	return newTotal, core.LevelChange{
		PreviousLevel: prev,
		NewLevel:      next,
		LeveledUp:     next > prev,
		CrossedTier:   !catalog.SameTier(prev, next),
	}, nil
}
