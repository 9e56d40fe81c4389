package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"gamekit/core"
	"gamekit/leaderboard"
)

// Platform stores profiles, friends, leaderboards and achievement progress in Redis.
// Data structure:
// - {prefix}:user:{id}:profile -> hash {id, name}
// - {prefix}:user:{id}:friends -> set of user ids
// - {prefix}:user:{id}:progress -> hash achievement id -> percent
// - {prefix}:lb:{bucket} -> sorted set, member user id, score = -value
// - {prefix}:lb:{bucket}:ts -> hash user id -> unix nanos of the best submission
//
// Scores are stored negated so ZRANGE yields the highest value first with ties broken by
// ascending user id. Values beyond 2^53 lose precision.
type Platform struct {
	client *redis.Client
	keys   keys
	now    func() time.Time
}

// PlatformOption configures a Platform.
type PlatformOption func(*Platform)

// WithClock overrides the time source used to bucket scores.
func WithClock(now func() time.Time) PlatformOption {
	return func(p *Platform) {
		if now != nil {
			p.now = now
		}
	}
}

// WithKeyPrefix namespaces keys (default "gamekit").
func WithKeyPrefix(prefix string) PlatformOption {
	return func(p *Platform) { p.keys = keys{prefix: prefix} }
}

// New connects to Redis and returns a Platform.
func New(config Config, opts ...PlatformOption) (*Platform, error) {
	client, err := Connect(config)
	if err != nil {
		return nil, err
	}
	return NewWithClient(client, append([]PlatformOption{WithKeyPrefix(config.KeyPrefix)}, opts...)...), nil
}

// NewWithClient creates a Platform using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client, opts ...PlatformOption) *Platform {
	p := &Platform{client: client, keys: keys{prefix: "gamekit"}, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Client exposes the underlying client so a Prefs store can share it.
func (p *Platform) Client() *redis.Client { return p.client }

// Close closes the Redis connection
func (p *Platform) Close() error {
	return p.client.Close()
}

// submitScript keeps the best (lowest negated) score and refreshes bucket expiry.
var submitScript = redis.NewScript(`
	local ttl = tonumber(ARGV[4])
	if ttl > 0 then
		redis.call('EXPIRE', KEYS[1], ttl)
		redis.call('EXPIRE', KEYS[2], ttl)
	end
	local cur = redis.call('ZSCORE', KEYS[1], ARGV[2])
	if cur and tonumber(cur) <= tonumber(ARGV[1]) then
		return 0
	end
	redis.call('ZADD', KEYS[1], ARGV[1], ARGV[2])
	redis.call('HSET', KEYS[2], ARGV[2], ARGV[3])
	if ttl > 0 then
		redis.call('EXPIRE', KEYS[1], ttl)
		redis.call('EXPIRE', KEYS[2], ttl)
	end
	return 1
`)

// progressScript raises a hash field and returns the stored value as a string.
var progressScript = redis.NewScript(`
	local cur = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '-1')
	if cur >= tonumber(ARGV[2]) then
		return tostring(cur)
	end
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
	return ARGV[2]
`)

// bucketTTL bounds how long period buckets outlive their period.
func bucketTTL(scope core.TimeScope) time.Duration {
	switch scope {
	case core.TimeScopeWeek:
		return 8 * 24 * time.Hour
	case core.TimeScopeToday:
		return 48 * time.Hour
	default:
		return 0
	}
}

func (p *Platform) RegisterUser(ctx context.Context, profile core.UserProfile) error {
	id, err := core.NormalizeUserID(profile.ID)
	if err != nil {
		return err
	}
	key := p.keys.profile(string(id))
	if profile.Name == "" {
		_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "id", string(id))
			pipe.HSetNX(ctx, key, "name", string(id))
			return nil
		})
	} else {
		err = p.client.HSet(ctx, key, "id", string(id), "name", profile.Name).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

func (p *Platform) Profile(ctx context.Context, user core.UserID) (core.UserProfile, error) {
	fields, err := p.client.HGetAll(ctx, p.keys.profile(string(user))).Result()
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("failed to load profile: %w", err)
	}
	if len(fields) == 0 {
		return core.UserProfile{}, fmt.Errorf("%w: %s", core.ErrUserNotFound, user)
	}
	return core.UserProfile{ID: core.UserID(fields["id"]), Name: fields["name"]}, nil
}

// Profiles returns the known profiles among ids; unknown ids are skipped.
func (p *Platform) Profiles(ctx context.Context, ids []core.UserID) ([]core.UserProfile, error) {
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, p.keys.profile(string(id)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	out := make([]core.UserProfile, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		out = append(out, core.UserProfile{ID: core.UserID(fields["id"]), Name: fields["name"]})
	}
	return out, nil
}

func (p *Platform) exists(ctx context.Context, users ...core.UserID) error {
	for _, u := range users {
		n, err := p.client.Exists(ctx, p.keys.profile(string(u))).Result()
		if err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", core.ErrUserNotFound, u)
		}
	}
	return nil
}

// AddFriend links two registered users in both directions.
func (p *Platform) AddFriend(ctx context.Context, user, friend core.UserID) error {
	if user == friend {
		return errors.New("cannot befriend self")
	}
	if err := p.exists(ctx, user, friend); err != nil {
		return err
	}
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, p.keys.friends(string(user)), string(friend))
		pipe.SAdd(ctx, p.keys.friends(string(friend)), string(user))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add friend: %w", err)
	}
	return nil
}

func (p *Platform) friendIDs(ctx context.Context, user core.UserID) ([]core.UserID, error) {
	members, err := p.client.SMembers(ctx, p.keys.friends(string(user))).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load friends: %w", err)
	}
	sort.Strings(members)
	ids := make([]core.UserID, len(members))
	for i, m := range members {
		ids[i] = core.UserID(m)
	}
	return ids, nil
}

func (p *Platform) Friends(ctx context.Context, user core.UserID) ([]core.UserProfile, error) {
	if err := p.exists(ctx, user); err != nil {
		return nil, err
	}
	ids, err := p.friendIDs(ctx, user)
	if err != nil {
		return nil, err
	}
	profiles, err := p.Profiles(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		profiles[i].IsFriend = true
	}
	return profiles, nil
}

// SubmitScore records value if it beats the user's best in each time bucket.
func (p *Platform) SubmitScore(ctx context.Context, user core.UserID, leaderboardID string, value int64) error {
	if err := core.ValidateID(leaderboardID); err != nil {
		return err
	}
	if err := p.exists(ctx, user); err != nil {
		return err
	}
	now := p.now()
	for _, scope := range leaderboard.BucketScopes {
		bucket := leaderboard.BucketKey(leaderboardID, scope, now)
		ttl := int64(bucketTTL(scope) / time.Second)
		err := submitScript.Run(ctx, p.client,
			[]string{p.keys.board(bucket), p.keys.stamps(bucket)},
			-float64(value), string(user), now.UnixNano(), ttl).Err()
		if err != nil {
			return fmt.Errorf("failed to submit score: %w", err)
		}
	}
	return nil
}

func (p *Platform) QueryScores(ctx context.Context, user core.UserID, q core.ScoreQuery) (core.ScorePage, error) {
	if err := q.Validate(); err != nil {
		return core.ScorePage{}, err
	}
	if err := p.exists(ctx, user); err != nil {
		return core.ScorePage{}, err
	}
	bucket := leaderboard.BucketKey(q.LeaderboardID, q.TimeScope, p.now())
	if q.UserScope == core.UserScopeFriendsOnly {
		return p.friendsPage(ctx, bucket, user, q)
	}
	return p.globalPage(ctx, bucket, user, q)
}

func (p *Platform) globalPage(ctx context.Context, bucket string, user core.UserID, q core.ScoreQuery) (core.ScorePage, error) {
	key := p.keys.board(bucket)
	var rankCmd *redis.IntCmd
	var scoreCmd *redis.FloatCmd
	var cardCmd *redis.IntCmd
	_, err := p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		rankCmd = pipe.ZRank(ctx, key, string(user))
		scoreCmd = pipe.ZScore(ctx, key, string(user))
		cardCmd = pipe.ZCard(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return core.ScorePage{}, fmt.Errorf("failed to query leaderboard: %w", err)
	}

	page := core.ScorePage{Scores: []core.Score{}}
	rank := 0
	if rankCmd.Err() == nil {
		rank = int(rankCmd.Val()) + 1
		stamps, err := p.stamps(ctx, bucket, []string{string(user)})
		if err != nil {
			return core.ScorePage{}, err
		}
		s := leaderboard.ToScore(q.LeaderboardID, rank, leaderboard.Entry{
			User:    user,
			Score:   int64(-scoreCmd.Val()),
			Updated: stamps[0],
		})
		page.LocalUserScore = &s
	}

	from, count, ok := leaderboard.Window(q, rank, int(cardCmd.Val()))
	if !ok || cardCmd.Val() == 0 {
		return page, nil
	}
	start := int64(from - 1)
	zs, err := p.client.ZRangeWithScores(ctx, key, start, start+int64(count)-1).Result()
	if err != nil {
		return core.ScorePage{}, fmt.Errorf("failed to read leaderboard range: %w", err)
	}
	members := make([]string, len(zs))
	for i, z := range zs {
		members[i], _ = z.Member.(string)
	}
	stamps, err := p.stamps(ctx, bucket, members)
	if err != nil {
		return core.ScorePage{}, err
	}
	for i, z := range zs {
		page.Scores = append(page.Scores, leaderboard.ToScore(q.LeaderboardID, from+i, leaderboard.Entry{
			User:    core.UserID(members[i]),
			Score:   int64(-z.Score),
			Updated: stamps[i],
		}))
	}
	return page, nil
}

// friendsPage ranks the user and their friends among themselves.
func (p *Platform) friendsPage(ctx context.Context, bucket string, user core.UserID, q core.ScoreQuery) (core.ScorePage, error) {
	ids, err := p.friendIDs(ctx, user)
	if err != nil {
		return core.ScorePage{}, err
	}
	circle := make([]string, 0, len(ids)+1)
	circle = append(circle, string(user))
	for _, id := range ids {
		circle = append(circle, string(id))
	}
	key := p.keys.board(bucket)
	cmds := make([]*redis.FloatCmd, len(circle))
	_, err = p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, m := range circle {
			cmds[i] = pipe.ZScore(ctx, key, m)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return core.ScorePage{}, fmt.Errorf("failed to query friend scores: %w", err)
	}
	stamps, err := p.stamps(ctx, bucket, circle)
	if err != nil {
		return core.ScorePage{}, err
	}
	view := leaderboard.NewSkipList()
	for i, cmd := range cmds {
		if cmd.Err() != nil {
			continue
		}
		view.Update(core.UserID(circle[i]), int64(-cmd.Val()), stamps[i])
	}
	return leaderboard.Page(view, user, q), nil
}

func (p *Platform) stamps(ctx context.Context, bucket string, members []string) ([]time.Time, error) {
	out := make([]time.Time, len(members))
	if len(members) == 0 {
		return out, nil
	}
	vals, err := p.client.HMGet(ctx, p.keys.stamps(bucket), members...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read score timestamps: %w", err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			out[i] = time.Unix(0, n).UTC()
		}
	}
	return out, nil
}

// SetProgress raises the stored progress (percent, clamped to [0, 100]) and returns it.
func (p *Platform) SetProgress(ctx context.Context, user core.UserID, achievementID string, progress float64) (float64, error) {
	if err := core.ValidateID(achievementID); err != nil {
		return 0, err
	}
	if err := p.exists(ctx, user); err != nil {
		return 0, err
	}
	progress = min(max(progress, 0), 100)
	res, err := progressScript.Run(ctx, p.client, []string{p.keys.progress(string(user))},
		achievementID, strconv.FormatFloat(progress, 'f', -1, 64)).Text()
	if err != nil {
		return 0, fmt.Errorf("failed to set progress: %w", err)
	}
	v, err := strconv.ParseFloat(res, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected progress value %q: %w", res, err)
	}
	return v, nil
}

func (p *Platform) Progress(ctx context.Context, user core.UserID, achievementID string) (float64, error) {
	if err := p.exists(ctx, user); err != nil {
		return 0, err
	}
	v, err := p.client.HGet(ctx, p.keys.progress(string(user)), achievementID).Float64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read progress: %w", err)
	}
	return v, nil
}
