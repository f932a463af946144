// Package timer implements the active work-session state machine: starting,
// pausing, resuming, cancelling and finishing a tracked interval of work,
// backed by a durable per-user store and an append-only session archive.
package timer

import (
	"context"
	"time"
)

// Status is the state of an in-progress session.
type Status string

const (
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
)

// Visibility controls who can see an archived session.
type Visibility string

const (
	VisibilityEveryone  Visibility = "everyone"
	VisibilityFollowers Visibility = "followers"
	VisibilityPrivate   Visibility = "private"
)

// IsValidVisibility reports whether v is a known visibility value.
func IsValidVisibility(v Visibility) bool {
	switch v {
	case VisibilityEveryone, VisibilityFollowers, VisibilityPrivate:
		return true
	}
	return false
}

// ActiveSession is the single in-progress timer for a user. At most one
// exists per user; it is created by start, mutated by pause/resume, and
// destroyed by cancel or finish.
type ActiveSession struct {
	UserID          string     `json:"user_id"`
	ProjectID       string     `json:"project_id"`
	StartTime       time.Time  `json:"start_time"`
	PausedDuration  int64      `json:"paused_duration"` // cumulative seconds paused
	Status          Status     `json:"status"`
	LastPausedAt    *time.Time `json:"last_paused_at,omitempty"` // set only while paused
	SelectedTaskIDs []string   `json:"selected_task_ids,omitempty"`
}

// ElapsedSeconds returns the running time accumulated so far, in whole
// seconds (truncated). While paused the value is frozen at the instant of the
// last pause; while running it tracks now. The paused duration is clamped to
// the session's wall-clock age so a conflicting concurrent write can never
// produce a negative result.
func (s *ActiveSession) ElapsedSeconds(now time.Time) int64 {
	at := now
	if s.Status == StatusPaused && s.LastPausedAt != nil {
		at = *s.LastPausedAt
	}

	age := int64(at.Sub(s.StartTime).Seconds())
	if age < 0 {
		return 0
	}

	paused := s.PausedDuration
	if paused > age {
		paused = age
	}
	if paused < 0 {
		paused = 0
	}

	return age - paused
}

// Clone returns a deep copy, so callers can hand sessions to the cache
// bridge without sharing mutable slices.
func (s *ActiveSession) Clone() *ActiveSession {
	if s == nil {
		return nil
	}
	cp := *s
	if s.LastPausedAt != nil {
		t := *s.LastPausedAt
		cp.LastPausedAt = &t
	}
	if s.SelectedTaskIDs != nil {
		cp.SelectedTaskIDs = append([]string(nil), s.SelectedTaskIDs...)
	}
	return &cp
}

// Session is an immutable archived record produced by finish.
type Session struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	ProjectID    string     `json:"project_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Duration     int64      `json:"duration"` // seconds
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  time.Time  `json:"completed_at"`
	Visibility   Visibility `json:"visibility"`
	Tags         []string   `json:"tags,omitempty"`
	GroupIDs     []string   `json:"group_ids,omitempty"`
	SupportCount int        `json:"support_count"`
	CommentCount int        `json:"comment_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// StartInput carries the caller-supplied fields for start.
type StartInput struct {
	ProjectID       string
	SelectedTaskIDs []string
	CustomStartTime *time.Time // backdated manual entry; must not be in the future
}

// CompletionInput carries the caller-supplied fields for finish.
type CompletionInput struct {
	Title       string
	Description string
	Visibility  Visibility // defaults to the configured default when empty
	Tags        []string
	GroupIDs    []string
}

// ActiveSessionStore is the durable per-user persistence for the single
// in-progress timer. Get returns (nil, nil) when no record exists. No
// transactional guarantees across calls; last writer wins.
type ActiveSessionStore interface {
	Get(ctx context.Context, userID string) (*ActiveSession, error)
	Put(ctx context.Context, session *ActiveSession) error
	Delete(ctx context.Context, userID string) error
}

// Archive is the append-only store of completed sessions. Append assigns and
// returns the record's ID.
type Archive interface {
	Append(ctx context.Context, session *Session) (string, error)
}

// CacheBridge is notified after every successful mutation: first the
// authoritative new value (or absence) is set, then an invalidation signal is
// emitted so all observers refetch.
type CacheBridge interface {
	SetActive(userID string, session *ActiveSession)
	Invalidate(userID string)
}

// Observer receives domain-level events for metrics. All methods must be
// non-blocking.
type Observer interface {
	StaleReaped(reason StaleReason)
	ActiveDelta(delta int)
}
