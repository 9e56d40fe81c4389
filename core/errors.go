package core

import "errors"

var (
	// ErrNotAuthenticated is reported when the local user is not logged into the backend.
	ErrNotAuthenticated = errors.New("user is not authenticated")
	// ErrUnknownLeaderboard is reported when a leaderboard name is missing from the catalog.
	ErrUnknownLeaderboard = errors.New("unknown leaderboard")
	// ErrUnknownAchievement is reported when an achievement name is missing from the catalog.
	ErrUnknownAchievement = errors.New("unknown achievement")
	// ErrBackendQueryFailed wraps any failure returned by the backend while loading scores.
	ErrBackendQueryFailed = errors.New("backend score query failed")
	// ErrInvalidRange is reported for ranged queries with a non-positive rank or count.
	ErrInvalidRange = errors.New("invalid score range")
	// ErrRequestCanceled is reported when a queued request's context ends before it is issued.
	ErrRequestCanceled = errors.New("score request canceled")
	// ErrUserNotFound is reported by platforms for unregistered users.
	ErrUserNotFound = errors.New("user not found")
)
