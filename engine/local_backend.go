package engine

import (
	"context"
	"sync"

	"gamekit/core"
)

// LocalBackend is an in-process Backend that acts for one user against a Platform.
// Authenticate registers the user with the platform when needed.
type LocalBackend struct {
	platform Platform
	user     core.UserProfile

	mu            sync.RWMutex
	authenticated bool
}

func NewLocalBackend(platform Platform, user core.UserProfile) *LocalBackend {
	if platform == nil {
		panic("NewLocalBackend requires a non-nil platform")
	}
	return &LocalBackend{platform: platform, user: user}
}

func (b *LocalBackend) Authenticate(ctx context.Context) error {
	user := b.LocalUser()
	id, err := core.NormalizeUserID(user.ID)
	if err != nil {
		return err
	}
	user.ID = id
	if err := b.platform.RegisterUser(ctx, user); err != nil {
		return err
	}
	b.mu.Lock()
	b.user = user
	b.authenticated = true
	b.mu.Unlock()
	return nil
}

func (b *LocalBackend) IsUserAuthenticated() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.authenticated
}

func (b *LocalBackend) LocalUser() core.UserProfile {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.user
}

func (b *LocalBackend) id() core.UserID { return b.LocalUser().ID }

func (b *LocalBackend) QueryScores(ctx context.Context, q core.ScoreQuery) (core.ScorePage, error) {
	if !b.IsUserAuthenticated() {
		return core.ScorePage{}, core.ErrNotAuthenticated
	}
	return b.platform.QueryScores(ctx, b.id(), q)
}

func (b *LocalBackend) ReportScore(ctx context.Context, leaderboardID string, value int64) error {
	if !b.IsUserAuthenticated() {
		return core.ErrNotAuthenticated
	}
	return b.platform.SubmitScore(ctx, b.id(), leaderboardID, value)
}

func (b *LocalBackend) ReportProgress(ctx context.Context, achievementID string, progress float64) error {
	if !b.IsUserAuthenticated() {
		return core.ErrNotAuthenticated
	}
	_, err := b.platform.SetProgress(ctx, b.id(), achievementID, progress)
	return err
}

func (b *LocalBackend) LoadFriends(ctx context.Context) ([]core.UserProfile, error) {
	if !b.IsUserAuthenticated() {
		return nil, core.ErrNotAuthenticated
	}
	return b.platform.Friends(ctx, b.id())
}

func (b *LocalBackend) LoadUsers(ctx context.Context, ids []core.UserID) ([]core.UserProfile, error) {
	if !b.IsUserAuthenticated() {
		return nil, core.ErrNotAuthenticated
	}
	return b.platform.Profiles(ctx, ids)
}

func (b *LocalBackend) SignOut(context.Context) error {
	b.mu.Lock()
	b.authenticated = false
	b.mu.Unlock()
	return nil
}

var _ Backend = (*LocalBackend)(nil)
