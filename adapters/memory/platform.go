package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gamekit/core"
	"gamekit/leaderboard"
)

// Platform is a concurrent in-memory game platform: profiles, friends, leaderboards and
// achievement progress. Each leaderboard keeps the best score per user for all time, per
// ISO week and per UTC day.
type Platform struct {
	mu       sync.RWMutex
	users    map[core.UserID]core.UserProfile
	friends  map[core.UserID]map[core.UserID]struct{}
	boards   map[string]*leaderboard.SkipList
	progress map[core.UserID]map[string]float64
	now      func() time.Time
}

// Option configures a Platform.
type Option func(*Platform)

// WithClock overrides the time source used to bucket scores.
func WithClock(now func() time.Time) Option {
	return func(p *Platform) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPlatform(opts ...Option) *Platform {
	p := &Platform{
		users:    map[core.UserID]core.UserProfile{},
		friends:  map[core.UserID]map[core.UserID]struct{}{},
		boards:   map[string]*leaderboard.SkipList{},
		progress: map[core.UserID]map[string]float64{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Platform) RegisterUser(_ context.Context, profile core.UserProfile) error {
	id, err := core.NormalizeUserID(profile.ID)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	existing, ok := p.users[id]
	if ok && profile.Name == "" {
		return nil
	}
	if profile.Name == "" {
		profile.Name = string(id)
	}
	existing.ID = id
	existing.Name = profile.Name
	p.users[id] = existing
	return nil
}

func (p *Platform) Profile(_ context.Context, user core.UserID) (core.UserProfile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	prof, ok := p.users[user]
	if !ok {
		return core.UserProfile{}, fmt.Errorf("%w: %s", core.ErrUserNotFound, user)
	}
	return prof, nil
}

// Profiles returns the known profiles among ids; unknown ids are skipped.
func (p *Platform) Profiles(_ context.Context, ids []core.UserID) ([]core.UserProfile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]core.UserProfile, 0, len(ids))
	for _, id := range ids {
		if prof, ok := p.users[id]; ok {
			out = append(out, prof)
		}
	}
	return out, nil
}

// AddFriend links two registered users in both directions.
func (p *Platform) AddFriend(_ context.Context, user, friend core.UserID) error {
	if user == friend {
		return errors.New("cannot befriend self")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range []core.UserID{user, friend} {
		if _, ok := p.users[id]; !ok {
			return fmt.Errorf("%w: %s", core.ErrUserNotFound, id)
		}
	}
	p.link(user, friend)
	p.link(friend, user)
	return nil
}

func (p *Platform) link(a, b core.UserID) {
	m := p.friends[a]
	if m == nil {
		m = map[core.UserID]struct{}{}
		p.friends[a] = m
	}
	m[b] = struct{}{}
}

func (p *Platform) Friends(_ context.Context, user core.UserID) ([]core.UserProfile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, ok := p.users[user]; !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUserNotFound, user)
	}
	out := make([]core.UserProfile, 0, len(p.friends[user]))
	for id := range p.friends[user] {
		prof := p.users[id]
		prof.IsFriend = true
		out = append(out, prof)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SubmitScore records value if it beats the user's best in each time bucket.
func (p *Platform) SubmitScore(_ context.Context, user core.UserID, leaderboardID string, value int64) error {
	if err := core.ValidateID(leaderboardID); err != nil {
		return err
	}
	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.users[user]; !ok {
		return fmt.Errorf("%w: %s", core.ErrUserNotFound, user)
	}
	opened := false
	for _, scope := range leaderboard.BucketScopes {
		key := leaderboard.BucketKey(leaderboardID, scope, now)
		b := p.boards[key]
		if b == nil {
			b = leaderboard.NewSkipList()
			p.boards[key] = b
			opened = true
		}
		if prev, ok := b.Get(user); ok && prev.Score >= value {
			continue
		}
		b.Update(user, value, now)
	}
	if opened {
		p.pruneBuckets(leaderboardID, now)
	}
	return nil
}

// pruneBuckets drops weekly and daily boards of leaderboardID older than the previous
// period, matching the expiry the redis adapter applies to its bucket keys.
// Caller holds p.mu.
func (p *Platform) pruneBuckets(leaderboardID string, now time.Time) {
	lastWeek, yesterday := now.AddDate(0, 0, -7), now.AddDate(0, 0, -1)
	keep := map[string]struct{}{
		leaderboard.BucketKey(leaderboardID, core.TimeScopeWeek, now):        {},
		leaderboard.BucketKey(leaderboardID, core.TimeScopeWeek, lastWeek):   {},
		leaderboard.BucketKey(leaderboardID, core.TimeScopeToday, now):       {},
		leaderboard.BucketKey(leaderboardID, core.TimeScopeToday, yesterday): {},
	}
	weekly, daily := leaderboardID+":week:", leaderboardID+":day:"
	for key := range p.boards {
		if !strings.HasPrefix(key, weekly) && !strings.HasPrefix(key, daily) {
			continue
		}
		if _, ok := keep[key]; !ok {
			delete(p.boards, key)
		}
	}
}

func (p *Platform) QueryScores(_ context.Context, user core.UserID, q core.ScoreQuery) (core.ScorePage, error) {
	if err := q.Validate(); err != nil {
		return core.ScorePage{}, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, ok := p.users[user]; !ok {
		return core.ScorePage{}, fmt.Errorf("%w: %s", core.ErrUserNotFound, user)
	}
	board := p.boards[leaderboard.BucketKey(q.LeaderboardID, q.TimeScope, p.now())]
	if board == nil {
		return core.ScorePage{Scores: []core.Score{}}, nil
	}
	if q.UserScope == core.UserScopeFriendsOnly {
		board = p.friendsView(board, user)
	}
	return leaderboard.Page(board, user, q), nil
}

func (p *Platform) friendsView(board *leaderboard.SkipList, user core.UserID) *leaderboard.SkipList {
	view := leaderboard.NewSkipList()
	circle := p.friends[user]
	board.Each(func(_ int, e leaderboard.Entry) bool {
		if _, ok := circle[e.User]; ok || e.User == user {
			view.Update(e.User, e.Score, e.Updated)
		}
		return true
	})
	return view
}

// SetProgress raises the stored progress (percent, clamped to [0, 100]) and returns it.
// Progress never decreases.
func (p *Platform) SetProgress(_ context.Context, user core.UserID, achievementID string, progress float64) (float64, error) {
	if err := core.ValidateID(achievementID); err != nil {
		return 0, err
	}
	progress = min(max(progress, 0), 100)
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.users[user]; !ok {
		return 0, fmt.Errorf("%w: %s", core.ErrUserNotFound, user)
	}
	m := p.progress[user]
	if m == nil {
		m = map[string]float64{}
		p.progress[user] = m
	}
	if cur, ok := m[achievementID]; ok && cur >= progress {
		return cur, nil
	}
	m[achievementID] = progress
	return progress, nil
}

func (p *Platform) Progress(_ context.Context, user core.UserID, achievementID string) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, ok := p.users[user]; !ok {
		return 0, fmt.Errorf("%w: %s", core.ErrUserNotFound, user)
	}
	return p.progress[user][achievementID], nil
}
