package leaderboard

import (
	"time"

	"gamekit/core"
)

// Entry is one user's standing on a board.
type Entry struct {
	User    core.UserID
	Score   int64
	Updated time.Time
}

// Board abstracts ranked score storage for a single leaderboard.
// Ranks are 1-based, highest score first, ties broken by user id.
type Board interface {
	Update(user core.UserID, score int64, at time.Time)
	Remove(user core.UserID)
	TopN(n int) []Entry
	Range(fromRank, count int) []Entry
	Get(user core.UserID) (Entry, bool)
	Rank(user core.UserID) int
	Len() int
	Each(fn func(rank int, e Entry) bool)
}
