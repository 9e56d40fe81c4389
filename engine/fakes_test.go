package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gamekit/core"
)

// fakeBackend is a scriptable Backend that records every call.
type fakeBackend struct {
	mu            sync.Mutex
	authenticated bool
	authErr       error
	user          core.UserProfile
	queries       []core.ScoreQuery
	reported      map[string]int64
	progress      map[string]float64
	friends       []core.UserProfile
	friendCalls   int
	signedOut     bool

	query func(ctx context.Context, q core.ScoreQuery) (core.ScorePage, error)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		authenticated: true,
		user:          core.UserProfile{ID: "me", Name: "Me"},
		reported:      map[string]int64{},
		progress:      map[string]float64{},
	}
}

func (f *fakeBackend) Authenticate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.authErr != nil {
		return f.authErr
	}
	f.authenticated = true
	return nil
}

func (f *fakeBackend) IsUserAuthenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authenticated
}

func (f *fakeBackend) LocalUser() core.UserProfile { return f.user }

func (f *fakeBackend) QueryScores(ctx context.Context, q core.ScoreQuery) (core.ScorePage, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	fn := f.query
	f.mu.Unlock()
	if fn == nil {
		return core.ScorePage{Scores: makeScores(q.LeaderboardID, 3)}, nil
	}
	return fn(ctx, q)
}

func (f *fakeBackend) ReportScore(_ context.Context, id string, v int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reported[id] = v
	return nil
}

func (f *fakeBackend) ReportProgress(_ context.Context, id string, p float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress[id] = p
	return nil
}

func (f *fakeBackend) LoadFriends(context.Context) ([]core.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.friendCalls++
	return f.friends, nil
}

func (f *fakeBackend) LoadUsers(_ context.Context, ids []core.UserID) ([]core.UserProfile, error) {
	out := make([]core.UserProfile, 0, len(ids))
	for _, id := range ids {
		out = append(out, core.UserProfile{ID: id, Name: string(id)})
	}
	return out, nil
}

func (f *fakeBackend) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedOut = true
	f.authenticated = false
	return nil
}

func (f *fakeBackend) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// gatedBackend blocks every query until the test releases it and flags overlapping calls.
type gatedBackend struct {
	*fakeBackend
	calls    chan core.ScoreQuery
	release  chan gatedAnswer
	inflight int32
	overlap  atomic.Bool
}

type gatedAnswer struct {
	page core.ScorePage
	err  error
}

func newGatedBackend() *gatedBackend {
	g := &gatedBackend{
		fakeBackend: newFakeBackend(),
		calls:       make(chan core.ScoreQuery, 64),
		release:     make(chan gatedAnswer),
	}
	g.query = func(ctx context.Context, q core.ScoreQuery) (core.ScorePage, error) {
		if atomic.AddInt32(&g.inflight, 1) > 1 {
			g.overlap.Store(true)
		}
		defer atomic.AddInt32(&g.inflight, -1)
		g.calls <- q
		select {
		case a := <-g.release:
			return a.page, a.err
		case <-ctx.Done():
			return core.ScorePage{}, ctx.Err()
		}
	}
	return g
}

func (g *gatedBackend) expectCall(timeout time.Duration) (core.ScoreQuery, error) {
	select {
	case q := <-g.calls:
		return q, nil
	case <-time.After(timeout):
		return core.ScoreQuery{}, errors.New("no backend call")
	}
}

func makeScores(leaderboardID string, n int) []core.Score {
	out := make([]core.Score, n)
	for i := range out {
		out[i] = core.Score{
			LeaderboardID:  leaderboardID,
			UserID:         core.UserID(fmt.Sprintf("user-%d", i+1)),
			Rank:           i + 1,
			Value:          int64(1000 - i),
			FormattedValue: core.FormatScore(int64(1000 - i)),
		}
	}
	return out
}

type recordingObserver struct {
	mu                         sync.Mutex
	queued, started, completed int
	failed                     int
	maxDepth                   int
}

func (r *recordingObserver) RequestQueued(depth int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued++
	if depth > r.maxDepth {
		r.maxDepth = depth
	}
}

func (r *recordingObserver) RequestStarted(core.ScoreQuery, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingObserver) RequestCompleted(_ core.ScoreQuery, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
	if err != nil {
		r.failed++
	}
}
