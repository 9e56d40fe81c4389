package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gamekit/core"
)

// ScoreResult is delivered once per submitted query.
// Scores is never nil; on any failure it is empty and Err says why.
type ScoreResult struct {
	LeaderboardName string
	Query           core.ScoreQuery
	Scores          []core.Score
	Err             error
}

// ResultFunc receives the outcome of a queued score query.
type ResultFunc func(ScoreResult)

type scoreRequest struct {
	ctx   context.Context
	query core.ScoreQuery
	done  ResultFunc
}

// ScoreRequestQueue serializes score queries against a backend that supports a single
// outstanding query. Requests are issued and completed in submission order, at most one
// is in flight, and there is no priority, timeout or retry. A backend call that never
// returns stalls the queue.
//
// With DispatchSync the drain loop runs on the goroutine whose Submit found the queue idle;
// Submit calls made meanwhile (including from callbacks) only enqueue. With DispatchAsync the
// loop runs on its own goroutine and Submit never blocks on the backend.
type ScoreRequestQueue struct {
	backend  Backend
	mode     DispatchMode
	observer QueueObserver
	logger   *slog.Logger

	mu      sync.Mutex
	pending []scoreRequest
	busy    bool
	idle    chan struct{}
}

// QueueOption configures a ScoreRequestQueue.
type QueueOption func(*ScoreRequestQueue)

// WithQueueDispatch selects where the drain loop runs (default DispatchSync).
func WithQueueDispatch(m DispatchMode) QueueOption {
	return func(q *ScoreRequestQueue) { q.mode = m }
}

// WithQueueObserver attaches lifecycle instrumentation.
func WithQueueObserver(o QueueObserver) QueueOption {
	return func(q *ScoreRequestQueue) { q.observer = o }
}

// WithQueueLogger overrides the logger (defaults to slog.Default()).
func WithQueueLogger(l *slog.Logger) QueueOption {
	return func(q *ScoreRequestQueue) {
		if l != nil {
			q.logger = l
		}
	}
}

func NewScoreRequestQueue(backend Backend, opts ...QueueOption) *ScoreRequestQueue {
	if backend == nil {
		panic("NewScoreRequestQueue requires a non-nil backend")
	}
	idle := make(chan struct{})
	close(idle)
	q := &ScoreRequestQueue{
		backend: backend,
		mode:    DispatchSync,
		logger:  slog.Default(),
		idle:    idle,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Submit appends query to the tail of the queue and starts draining if the queue is idle.
// The query must already carry a resolved leaderboard id. ctx acts as the request's
// cancellation token: if it ends before the query is issued, done receives an empty
// result with core.ErrRequestCanceled; once issued, ctx is handed to the backend.
func (q *ScoreRequestQueue) Submit(ctx context.Context, query core.ScoreQuery, done ResultFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if done == nil {
		done = func(ScoreResult) {}
	}
	q.mu.Lock()
	q.pending = append(q.pending, scoreRequest{ctx: ctx, query: query, done: done})
	depth := len(q.pending)
	q.mu.Unlock()

	if q.observer != nil {
		q.observer.RequestQueued(depth)
	}
	q.drainNext()
}

// SubmitChan is Submit with the result delivered on a channel that receives exactly one
// value. The channel is buffered, so an abandoned receiver never stalls the queue.
func (q *ScoreRequestQueue) SubmitChan(ctx context.Context, query core.ScoreQuery) <-chan ScoreResult {
	ch := make(chan ScoreResult, 1)
	q.Submit(ctx, query, func(r ScoreResult) { ch <- r })
	return ch
}

// drainNext is the only driver of forward progress. It is a no-op while a request is in
// flight or when nothing is pending.
func (q *ScoreRequestQueue) drainNext() {
	q.mu.Lock()
	if q.busy || len(q.pending) == 0 {
		q.mu.Unlock()
		return
	}
	q.busy = true
	q.idle = make(chan struct{})
	q.mu.Unlock()

	if q.mode == DispatchAsync {
		go q.drain()
		return
	}
	q.drain()
}

// drain issues pending requests one at a time until the queue is empty.
func (q *ScoreRequestQueue) drain() {
	for {
		req, depth, ok := q.next()
		if !ok {
			return
		}
		q.process(req, depth)
	}
}

// next pops the head request, or marks the queue idle when there is none.
func (q *ScoreRequestQueue) next() (scoreRequest, int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		q.busy = false
		close(q.idle)
		return scoreRequest{}, 0, false
	}
	req := q.pending[0]
	q.pending[0] = scoreRequest{}
	q.pending = q.pending[1:]
	return req, len(q.pending), true
}

func (q *ScoreRequestQueue) process(req scoreRequest, depth int) {
	if err := req.ctx.Err(); err != nil {
		q.complete(req, nil, fmt.Errorf("%w: %v", core.ErrRequestCanceled, err), 0)
		return
	}
	if q.observer != nil {
		q.observer.RequestStarted(req.query, depth)
	}
	start := time.Now()
	page, err := q.backend.QueryScores(req.ctx, req.query)
	if err != nil {
		q.logger.Debug("score query failed",
			"leaderboard", req.query.LeaderboardName,
			"mode", req.query.Mode.String(),
			"error", err)
		q.complete(req, nil, fmt.Errorf("%w: %w", core.ErrBackendQueryFailed, err), time.Since(start))
		return
	}
	q.complete(req, selectScores(req.query.Mode, page), nil, time.Since(start))
}

func (q *ScoreRequestQueue) complete(req scoreRequest, scores []core.Score, err error, elapsed time.Duration) {
	if scores == nil {
		scores = []core.Score{}
	}
	if q.observer != nil {
		q.observer.RequestCompleted(req.query, elapsed, err)
	}
	req.done(ScoreResult{
		LeaderboardName: req.query.LeaderboardName,
		Query:           req.query,
		Scores:          scores,
		Err:             err,
	})
}

// selectScores adapts a backend page to the caller-visible sequence for the query mode.
func selectScores(mode core.QueryMode, page core.ScorePage) []core.Score {
	if mode == core.QueryLocalUserOnly {
		if page.LocalUserScore == nil {
			return []core.Score{}
		}
		return []core.Score{*page.LocalUserScore}
	}
	return page.Scores
}

// Len reports how many requests are waiting, excluding the one in flight.
func (q *ScoreRequestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Busy reports whether a request is currently being served.
func (q *ScoreRequestQueue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.busy
}

// WaitIdle blocks until the queue has drained or ctx ends.
func (q *ScoreRequestQueue) WaitIdle(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
