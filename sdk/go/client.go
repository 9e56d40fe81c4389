package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"gamekit/core"
	"gamekit/engine"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the gamekit HTTP + WebSocket API. It implements
// engine.Platform, so a remote server can stand in wherever a local store is used.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

// Backend returns an engine.Backend acting as user against this server.
// Authenticate registers the user; an empty name keeps the stored one.
func (c *Client) Backend(user core.UserProfile) engine.Backend {
	return engine.NewLocalBackend(c, user)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	var req *http.Request
	var err error
	if reader != nil {
		req, err = http.NewRequestWithContext(ctx, method, u, reader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u, nil)
	}
	if err != nil {
		return err
	}
	c.applyHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, out)
}

func userPath(id core.UserID) (string, error) {
	if strings.TrimSpace(string(id)) == "" {
		return "", ErrEmptyUserID
	}
	return "/users/" + url.PathEscape(string(id)), nil
}

// RegisterUser creates or renames a user.
func (c *Client) RegisterUser(ctx context.Context, profile core.UserProfile) error {
	p, err := userPath(profile.ID)
	if err != nil {
		return err
	}
	var body any
	if profile.Name != "" {
		body = map[string]string{"name": profile.Name}
	}
	return c.do(ctx, http.MethodPost, p, nil, body, nil)
}

// Profile fetches one user.
func (c *Client) Profile(ctx context.Context, user core.UserID) (core.UserProfile, error) {
	p, err := userPath(user)
	if err != nil {
		return core.UserProfile{}, err
	}
	var out core.UserProfile
	err = c.do(ctx, http.MethodGet, p, nil, nil, &out)
	return out, err
}

// Profiles fetches the known users among ids; unknown ids are skipped.
func (c *Client) Profiles(ctx context.Context, ids []core.UserID) ([]core.UserProfile, error) {
	if len(ids) == 0 {
		return []core.UserProfile{}, nil
	}
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, string(id))
	}
	var out struct {
		Users []core.UserProfile `json:"users"`
	}
	err := c.do(ctx, http.MethodGet, "/users", url.Values{"ids": {strings.Join(raw, ",")}}, nil, &out)
	return out.Users, err
}

func (c *Client) AddFriend(ctx context.Context, user, friend core.UserID) error {
	p, err := userPath(user)
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(friend)) == "" {
		return ErrEmptyUserID
	}
	return c.do(ctx, http.MethodPost, p+"/friends/"+url.PathEscape(string(friend)), nil, nil, nil)
}

func (c *Client) Friends(ctx context.Context, user core.UserID) ([]core.UserProfile, error) {
	p, err := userPath(user)
	if err != nil {
		return nil, err
	}
	var out struct {
		Friends []core.UserProfile `json:"friends"`
	}
	err = c.do(ctx, http.MethodGet, p+"/friends", nil, nil, &out)
	return out.Friends, err
}

func (c *Client) SubmitScore(ctx context.Context, user core.UserID, leaderboardID string, value int64) error {
	if strings.TrimSpace(string(user)) == "" {
		return ErrEmptyUserID
	}
	body := map[string]any{"user_id": user, "value": value}
	return c.do(ctx, http.MethodPost, "/leaderboards/"+url.PathEscape(leaderboardID)+"/scores", nil, body, nil)
}

// QueryScores runs one score query on behalf of user.
func (c *Client) QueryScores(ctx context.Context, user core.UserID, q core.ScoreQuery) (core.ScorePage, error) {
	if strings.TrimSpace(string(user)) == "" {
		return core.ScorePage{}, ErrEmptyUserID
	}
	params := url.Values{
		"user":  {string(user)},
		"mode":  {q.Mode.String()},
		"time":  {q.TimeScope.String()},
		"scope": {q.UserScope.String()},
	}
	if q.Mode == core.QueryRanged {
		params.Set("from", strconv.Itoa(q.FromRank))
		params.Set("count", strconv.Itoa(q.ScoreCount))
	}
	var page core.ScorePage
	err := c.do(ctx, http.MethodGet, "/leaderboards/"+url.PathEscape(q.LeaderboardID)+"/scores", params, nil, &page)
	return page, err
}

// SetProgress reports progress in [0, 100] and returns the stored value, which never decreases.
func (c *Client) SetProgress(ctx context.Context, user core.UserID, achievementID string, progress float64) (float64, error) {
	if strings.TrimSpace(string(user)) == "" {
		return 0, ErrEmptyUserID
	}
	var out struct {
		Progress float64 `json:"progress"`
	}
	body := map[string]any{"user_id": user, "progress": progress}
	err := c.do(ctx, http.MethodPost, "/achievements/"+url.PathEscape(achievementID)+"/progress", nil, body, &out)
	return out.Progress, err
}

func (c *Client) Progress(ctx context.Context, user core.UserID, achievementID string) (float64, error) {
	if strings.TrimSpace(string(user)) == "" {
		return 0, ErrEmptyUserID
	}
	var out struct {
		Progress float64 `json:"progress"`
	}
	err := c.do(ctx, http.MethodGet, "/achievements/"+url.PathEscape(achievementID)+"/progress",
		url.Values{"user": {string(user)}}, nil, &out)
	return out.Progress, err
}

// NextNotificationID allocates a server-side notification id.
func (c *Client) NextNotificationID(ctx context.Context) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/notifications/ids", nil, nil, &out)
	return out.ID, err
}

// Health probes /healthz and returns status + platform check.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var hs HealthStatus
	err := c.do(ctx, http.MethodGet, "/healthz", nil, nil, &hs)
	return hs, err
}

// SubscribeEvents connects to the WebSocket stream and emits core.Event values.
// user and types narrow the stream server-side; both may be empty.
// The returned channel closes when ctx is done or the connection drops.
func (c *Client) SubscribeEvents(ctx context.Context, user core.UserID, types ...core.EventType) (<-chan core.Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	target, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, err
	}
	q := target.Query()
	if user != "" {
		q.Set("user", string(user))
	}
	if len(types) > 0 {
		names := make([]string, 0, len(types))
		for _, t := range types {
			names = append(names, string(t))
		}
		q.Set("types", strings.Join(names, ","))
	}
	target.RawQuery = q.Encode()

	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, resp, err := dialer.DialContext(ctx, target.String(), c.headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake: status %d: %w", resp.StatusCode, err)
		}
		return nil, err
	}

	out := make(chan core.Event, 32)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var evt core.Event
			if err := conn.ReadJSON(&evt); err != nil {
				return
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			default:
				// drop if consumer is slow
			}
		}
	}()
	return out, nil
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}

var _ engine.Platform = (*Client)(nil)
