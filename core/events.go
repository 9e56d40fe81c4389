package core

import "time"

// EventType enumerates game-services events.
type EventType string

const (
	EventLoginSucceeded      EventType = "login_succeeded"
	EventLoginFailed         EventType = "login_failed"
	EventSignedOut           EventType = "signed_out"
	EventScoreReported       EventType = "score_reported"
	EventAchievementProgress EventType = "achievement_progress"
	EventScoresLoaded        EventType = "scores_loaded"
	EventUserRegistered      EventType = "user_registered"
	EventFriendAdded         EventType = "friend_added"
)

// Event represents an immutable game-services event.
type Event struct {
	Type        EventType      `json:"type"`
	Time        time.Time      `json:"time"`
	UserID      UserID         `json:"user_id,omitempty"`
	Leaderboard string         `json:"leaderboard,omitempty"`
	Achievement string         `json:"achievement,omitempty"`
	Value       int64          `json:"value,omitempty"`
	Progress    float64        `json:"progress,omitempty"`
	Count       int            `json:"count,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewLoginSucceeded(user UserID) Event {
	return Event{Type: EventLoginSucceeded, Time: time.Now().UTC(), UserID: user}
}

func NewLoginFailed(user UserID) Event {
	return Event{Type: EventLoginFailed, Time: time.Now().UTC(), UserID: user}
}

func NewSignedOut(user UserID) Event {
	return Event{Type: EventSignedOut, Time: time.Now().UTC(), UserID: user}
}

func NewScoreReported(user UserID, leaderboard string, value int64) Event {
	return Event{Type: EventScoreReported, Time: time.Now().UTC(), UserID: user, Leaderboard: leaderboard, Value: value}
}

func NewAchievementProgress(user UserID, achievement string, progress float64) Event {
	return Event{Type: EventAchievementProgress, Time: time.Now().UTC(), UserID: user, Achievement: achievement, Progress: progress}
}

func NewScoresLoaded(user UserID, leaderboard string, count int) Event {
	return Event{Type: EventScoresLoaded, Time: time.Now().UTC(), UserID: user, Leaderboard: leaderboard, Count: count}
}

func NewUserRegistered(user UserID) Event {
	return Event{Type: EventUserRegistered, Time: time.Now().UTC(), UserID: user}
}

func NewFriendAdded(user, friend UserID) Event {
	return Event{Type: EventFriendAdded, Time: time.Now().UTC(), UserID: user, Metadata: map[string]any{"friend": string(friend)}}
}
