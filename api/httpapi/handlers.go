package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gamekit/core"
)

const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error(), nil)
		return false
	}
	return true
}

func pathUser(w http.ResponseWriter, r *http.Request, name string) (core.UserID, bool) {
	user, err := core.NormalizeUserID(core.UserID(r.PathValue(name)))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user", err.Error(), nil)
		return "", false
	}
	return user, true
}

func pathID(w http.ResponseWriter, r *http.Request, name, code string) (string, bool) {
	id := r.PathValue(name)
	if err := core.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, code, err.Error(), nil)
		return "", false
	}
	return id, true
}

type registerRequest struct {
	Name string `json:"name"`
}

func (a *api) registerUser(w http.ResponseWriter, r *http.Request) {
	user, ok := pathUser(w, r, "id")
	if !ok {
		return
	}
	var body registerRequest
	if !decodeBody(w, r, &body) {
		return
	}
	// an empty name keeps the stored one for known users
	if err := a.platform.RegisterUser(r.Context(), core.UserProfile{ID: user, Name: body.Name}); err != nil {
		a.writePlatformError(w, r, err)
		return
	}
	profile, err := a.platform.Profile(r.Context(), user)
	if err != nil {
		a.writePlatformError(w, r, err)
		return
	}
	a.publish(r.Context(), core.NewUserRegistered(user))
	writeJSONStatus(w, http.StatusCreated, profile)
}

func (a *api) getUser(w http.ResponseWriter, r *http.Request) {
	user, ok := pathUser(w, r, "id")
	if !ok {
		return
	}
	profile, err := a.platform.Profile(r.Context(), user)
	if err != nil {
		a.writePlatformError(w, r, err)
		return
	}
	writeJSON(w, profile)
}

func (a *api) getUsers(w http.ResponseWriter, r *http.Request) {
	raw := splitList(r.URL.Query().Get("ids"))
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_ids", "ids query parameter is required", nil)
		return
	}
	ids := make([]core.UserID, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, core.UserID(id))
	}
	profiles, err := a.platform.Profiles(r.Context(), ids)
	if err != nil {
		a.writePlatformError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"users": profiles})
}

func (a *api) addFriend(w http.ResponseWriter, r *http.Request) {
	user, ok := pathUser(w, r, "id")
	if !ok {
		return
	}
	friend, ok := pathUser(w, r, "friend")
	if !ok {
		return
	}
	if user == friend {
		writeError(w, http.StatusBadRequest, "invalid_friend", "user cannot befriend themselves", nil)
		return
	}
	if err := a.platform.AddFriend(r.Context(), user, friend); err != nil {
		a.writePlatformError(w, r, err)
		return
	}
	a.publish(r.Context(), core.NewFriendAdded(user, friend))
	writeJSON(w, map[string]any{"ok": true})
}

func (a *api) getFriends(w http.ResponseWriter, r *http.Request) {
	user, ok := pathUser(w, r, "id")
	if !ok {
		return
	}
	friends, err := a.platform.Friends(r.Context(), user)
	if err != nil {
		a.writePlatformError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"friends": friends})
}

type scoreRequest struct {
	UserID core.UserID `json:"user_id"`
	Value  int64       `json:"value"`
}

func (a *api) submitScore(w http.ResponseWriter, r *http.Request) {
	lb, ok := pathID(w, r, "lb", "invalid_leaderboard")
	if !ok {
		return
	}
	var body scoreRequest
	if !decodeBody(w, r, &body) {
		return
	}
	user, err := core.NormalizeUserID(body.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user", err.Error(), nil)
		return
	}
	if err := a.platform.SubmitScore(r.Context(), user, lb, body.Value); err != nil {
		a.writePlatformError(w, r, err)
		return
	}
	a.publish(r.Context(), core.NewScoreReported(user, lb, body.Value))
	writeJSON(w, map[string]any{"ok": true})
}

// queryScores answers one score query for ?user. Mode defaults to default, time to all_time
// and scope to global; from and count are only read in ranged mode.
func (a *api) queryScores(w http.ResponseWriter, r *http.Request) {
	lb, ok := pathID(w, r, "lb", "invalid_leaderboard")
	if !ok {
		return
	}
	q := r.URL.Query()
	user, err := core.NormalizeUserID(core.UserID(q.Get("user")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user", "user query parameter is required", nil)
		return
	}
	query, err := parseScoreQuery(lb, q.Get("mode"), q.Get("from"), q.Get("count"), q.Get("time"), q.Get("scope"))
	if err != nil {
		code := "invalid_query"
		if errors.Is(err, core.ErrInvalidRange) {
			code = "invalid_range"
		}
		writeError(w, http.StatusBadRequest, code, err.Error(), nil)
		return
	}
	page, err := a.platform.QueryScores(r.Context(), user, query)
	if err != nil {
		a.writePlatformError(w, r, err)
		return
	}
	if page.Scores == nil {
		page.Scores = []core.Score{}
	}
	a.publish(r.Context(), core.NewScoresLoaded(user, lb, len(page.Scores)))
	writeJSON(w, page)
}

func parseScoreQuery(lb, mode, from, count, timeScope, userScope string) (core.ScoreQuery, error) {
	m, err := core.ParseQueryMode(mode)
	if err != nil {
		return core.ScoreQuery{}, err
	}
	ts, err := core.ParseTimeScope(timeScope)
	if err != nil {
		return core.ScoreQuery{}, err
	}
	us, err := core.ParseUserScope(userScope)
	if err != nil {
		return core.ScoreQuery{}, err
	}
	board := core.Leaderboard{Name: lb, ID: lb}
	var query core.ScoreQuery
	switch m {
	case core.QueryRanged:
		f, errF := strconv.Atoi(from)
		c, errC := strconv.Atoi(count)
		if errF != nil || errC != nil {
			return core.ScoreQuery{}, errors.New("from and count must be integers in ranged mode")
		}
		query = core.RangedQuery(board, f, c, ts, us)
	case core.QueryLocalUserOnly:
		query = core.LocalUserQuery(board)
		query.TimeScope, query.UserScope = ts, us
	default:
		query = core.DefaultQuery(board)
		query.TimeScope, query.UserScope = ts, us
	}
	return query, query.Validate()
}

type progressRequest struct {
	UserID   core.UserID `json:"user_id"`
	Progress float64     `json:"progress"`
}

func (a *api) setProgress(w http.ResponseWriter, r *http.Request) {
	ach, ok := pathID(w, r, "ach", "invalid_achievement")
	if !ok {
		return
	}
	var body progressRequest
	if !decodeBody(w, r, &body) {
		return
	}
	user, err := core.NormalizeUserID(body.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user", err.Error(), nil)
		return
	}
	if body.Progress < 0 || body.Progress > 100 {
		writeError(w, http.StatusBadRequest, "invalid_progress", "progress must be within [0, 100]", nil)
		return
	}
	stored, err := a.platform.SetProgress(r.Context(), user, ach, body.Progress)
	if err != nil {
		a.writePlatformError(w, r, err)
		return
	}
	a.publish(r.Context(), core.NewAchievementProgress(user, ach, stored))
	writeJSON(w, map[string]any{"progress": stored})
}

func (a *api) getProgress(w http.ResponseWriter, r *http.Request) {
	ach, ok := pathID(w, r, "ach", "invalid_achievement")
	if !ok {
		return
	}
	user, err := core.NormalizeUserID(core.UserID(r.URL.Query().Get("user")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user", "user query parameter is required", nil)
		return
	}
	progress, err := a.platform.Progress(r.Context(), user, ach)
	if err != nil {
		a.writePlatformError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"progress": progress})
}

func (a *api) nextNotificationID(w http.ResponseWriter, r *http.Request) {
	id, err := a.opts.Notifications.Next(r.Context())
	if err != nil {
		a.logger.Error("allocate notification id", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "could not allocate id", nil)
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]any{"id": id})
}

func (a *api) stats(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer", nil)
			return
		}
		limit = n
	}
	writeJSON(w, a.opts.Stats.Summary(limit))
}
