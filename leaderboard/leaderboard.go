package leaderboard

import "github.com/kazeca/holyfit-sub000/core"

// Entry represents a score entry.
type Entry struct {
	User  core.UserID
	Score int64
}

// Board abstracts leaderboard operations. Rank is 1-based; position 1 is the
// highest score.
type Board interface {
	Update(user core.UserID, score int64)
	Remove(user core.UserID)
	TopN(n int) []Entry
	Get(user core.UserID) (Entry, bool)
	Rank(user core.UserID) (int, bool)
}
