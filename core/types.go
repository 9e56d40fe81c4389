package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UserID uniquely identifies a player on the game platform.
type UserID string

// DefaultScoreCount is the size of the window a Default query loads around the local user.
const DefaultScoreCount = 25

// TimeScope filters scores by submission time.
type TimeScope int

const (
	TimeScopeAllTime TimeScope = iota
	TimeScopeWeek
	TimeScopeToday
)

func (t TimeScope) String() string {
	switch t {
	case TimeScopeWeek:
		return "week"
	case TimeScopeToday:
		return "today"
	default:
		return "all_time"
	}
}

// ParseTimeScope accepts the wire form produced by String. Empty input means all time.
func ParseTimeScope(s string) (TimeScope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all_time", "alltime":
		return TimeScopeAllTime, nil
	case "week", "weekly":
		return TimeScopeWeek, nil
	case "today", "daily":
		return TimeScopeToday, nil
	}
	return TimeScopeAllTime, fmt.Errorf("invalid time scope %q", s)
}

// UserScope filters scores by who submitted them.
type UserScope int

const (
	UserScopeGlobal UserScope = iota
	UserScopeFriendsOnly
)

func (u UserScope) String() string {
	if u == UserScopeFriendsOnly {
		return "friends"
	}
	return "global"
}

func ParseUserScope(s string) (UserScope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "global":
		return UserScopeGlobal, nil
	case "friends", "friends_only":
		return UserScopeFriendsOnly, nil
	}
	return UserScopeGlobal, fmt.Errorf("invalid user scope %q", s)
}

// QueryMode selects one of the mutually exclusive score query strategies.
type QueryMode int

const (
	// QueryDefault loads the backend default window around the local user, all time, global.
	QueryDefault QueryMode = iota
	// QueryRanged loads an explicit rank range with explicit scopes.
	QueryRanged
	// QueryLocalUserOnly loads the authenticated user's own score.
	QueryLocalUserOnly
)

func (m QueryMode) String() string {
	switch m {
	case QueryRanged:
		return "ranged"
	case QueryLocalUserOnly:
		return "local"
	default:
		return "default"
	}
}

func ParseQueryMode(s string) (QueryMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return QueryDefault, nil
	case "ranged", "range":
		return QueryRanged, nil
	case "local", "local_user", "local_user_only":
		return QueryLocalUserOnly, nil
	}
	return QueryDefault, fmt.Errorf("invalid query mode %q", s)
}

// Score is a backend-defined record of a user's ranked value on a leaderboard.
// It is passed through to callers unmodified.
type Score struct {
	LeaderboardID  string    `json:"leaderboard_id"`
	UserID         UserID    `json:"user_id"`
	Rank           int       `json:"rank"`
	Value          int64     `json:"value"`
	FormattedValue string    `json:"formatted_value"`
	Date           time.Time `json:"date"`
}

// ScorePage is what a backend returns for a single score query.
type ScorePage struct {
	Scores         []Score `json:"scores"`
	LocalUserScore *Score  `json:"local_user_score,omitempty"`
}

// UserProfile describes a player known to the platform.
type UserProfile struct {
	ID       UserID `json:"id"`
	Name     string `json:"name"`
	IsFriend bool   `json:"is_friend,omitempty"`
}

// NormalizeUserID trims user identifiers and rejects empty ones.
func NormalizeUserID(id UserID) (UserID, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return "", errors.New("empty user id")
	}
	return UserID(s), nil
}

// ValidateID ensures non-empty platform ids with a simple charset check.
func ValidateID(id string) error {
	s := strings.TrimSpace(id)
	if s == "" {
		return errors.New("empty id")
	}
	// alnum, dash, underscore, dot
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' || r == '.' {
			continue
		}
		return fmt.Errorf("invalid id %q", id)
	}
	return nil
}

// FormatScore renders a score value the way platforms display it by default.
func FormatScore(v int64) string {
	neg := v < 0
	u := uint64(v)
	if neg {
		u = uint64(-(v + 1)) + 1
	}
	digits := strconv.FormatUint(u, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
