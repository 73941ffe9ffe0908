package catalog

// XPPerLevel is the constant XP cost of each level.
const XPPerLevel int64 = 1000

// Level computes the level for a cumulative point total. The rule is the
// constant-cost step function level = points/1000 + 1: monotonic,
// non-decreasing, minimum 1.
func Level(totalPoints int64) int64 {
	if totalPoints <= 0 {
		return 1
	}
	return totalPoints/XPPerLevel + 1
}

// XPForLevel returns the cumulative points at which the level starts.
func XPForLevel(level int64) int64 {
	if level <= 1 {
		return 0
	}
	return (level - 1) * XPPerLevel
}

// LevelProgress returns points earned into the current level and the size of
// the level, for progress bars.
func LevelProgress(totalPoints int64) (into, span int64) {
	if totalPoints < 0 {
		totalPoints = 0
	}
	return totalPoints % XPPerLevel, XPPerLevel
}
