package catalog

// TitleTier maps a contiguous level range to a display title. Tiers partition
// the positive integers: for every level >= 1 exactly one tier matches.
type TitleTier struct {
	ID       string
	MinLevel int64
	MaxLevel int64 // 0 means unbounded
	Label    string
}

// Tiers is ordered by MinLevel ascending.
var Tiers = []TitleTier{
	{ID: "iniciante", MinLevel: 1, MaxLevel: 2, Label: "Iniciante"},
	{ID: "determinada", MinLevel: 3, MaxLevel: 5, Label: "Determinada"},
	{ID: "dedicada", MinLevel: 6, MaxLevel: 10, Label: "Dedicada"},
	{ID: "imparavel", MinLevel: 11, MaxLevel: 19, Label: "Imparável"},
	{ID: "elite", MinLevel: 20, MaxLevel: 29, Label: "Elite"},
	{ID: "lenda", MinLevel: 30, MaxLevel: 0, Label: "Lenda"},
}

// TierFor returns the tier matching the level. Levels below 1 are clamped to
// the first tier so the function stays total.
func TierFor(level int64) TitleTier {
	for _, t := range Tiers {
		if level >= t.MinLevel && (t.MaxLevel == 0 || level <= t.MaxLevel) {
			return t
		}
	}
	return Tiers[0]
}

// SameTier reports whether two levels fall in the same tier.
func SameTier(a, b int64) bool {
	return TierFor(a).ID == TierFor(b).ID
}
