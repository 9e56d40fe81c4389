package engine

import (
	"context"
	"time"

	"gamekit/core"
)

// Backend is the game-services capability available to one local user,
// e.g. a platform SDK session or the HTTP SDK client.
type Backend interface {
	Authenticate(ctx context.Context) error
	IsUserAuthenticated() bool
	LocalUser() core.UserProfile
	// QueryScores may block until the platform answers. Callers serialize it
	// through a ScoreRequestQueue.
	QueryScores(ctx context.Context, q core.ScoreQuery) (core.ScorePage, error)
	ReportScore(ctx context.Context, leaderboardID string, value int64) error
	ReportProgress(ctx context.Context, achievementID string, progress float64) error
	LoadFriends(ctx context.Context) ([]core.UserProfile, error)
	LoadUsers(ctx context.Context, ids []core.UserID) ([]core.UserProfile, error)
	SignOut(ctx context.Context) error
}

// Platform is the multi-user store that a game-services server exposes.
type Platform interface {
	RegisterUser(ctx context.Context, profile core.UserProfile) error
	Profile(ctx context.Context, user core.UserID) (core.UserProfile, error)
	Profiles(ctx context.Context, ids []core.UserID) ([]core.UserProfile, error)
	AddFriend(ctx context.Context, user, friend core.UserID) error
	Friends(ctx context.Context, user core.UserID) ([]core.UserProfile, error)
	SubmitScore(ctx context.Context, user core.UserID, leaderboardID string, value int64) error
	QueryScores(ctx context.Context, user core.UserID, q core.ScoreQuery) (core.ScorePage, error)
	SetProgress(ctx context.Context, user core.UserID, achievementID string, progress float64) (float64, error)
	Progress(ctx context.Context, user core.UserID, achievementID string) (float64, error)
}

// PrefsStore is a small persisted key/value store for integer counters.
type PrefsStore interface {
	GetInt(ctx context.Context, key string, def int64) (int64, error)
	SetInt(ctx context.Context, key string, value int64) error
	Save(ctx context.Context) error
}

// QueueObserver receives score queue lifecycle notifications.
type QueueObserver interface {
	RequestQueued(depth int)
	RequestStarted(q core.ScoreQuery, depth int)
	RequestCompleted(q core.ScoreQuery, elapsed time.Duration, err error)
}
