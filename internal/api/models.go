// Package api exposes the timer state machine over HTTP.
package api

import (
	"time"

	"github.com/pulsetrack/timerd/internal/timer"
)

// ProblemDetail is an RFC 7807 error response body.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// --- Request DTOs ---

// StartRequest is the payload for POST /api/v1/timer/start.
type StartRequest struct {
	ProjectID       string     `json:"project_id"`
	SelectedTaskIDs []string   `json:"selected_task_ids,omitempty"`
	CustomStartTime *time.Time `json:"custom_start_time,omitempty"`
}

// FinishRequest is the payload for POST /api/v1/timer/finish.
type FinishRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Visibility  string   `json:"visibility,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	GroupIDs    []string `json:"group_ids,omitempty"`
}

// TasksRequest is the payload for PUT /api/v1/timer/tasks.
type TasksRequest struct {
	SelectedTaskIDs []string `json:"selected_task_ids"`
}

// --- Response DTOs ---

// ActiveResponse wraps the current active session; Active is null when the
// user has no timer (including after a stale record self-healed).
type ActiveResponse struct {
	Active *timer.ActiveSession `json:"active"`
	// ElapsedSeconds is the display-ready elapsed running time at the moment
	// of the response.
	ElapsedSeconds *int64 `json:"elapsed_seconds,omitempty"`
}

// SessionResponse wraps an archived session.
type SessionResponse struct {
	Session *timer.Session `json:"session"`
}

// SessionListResponse wraps a page of archived sessions.
type SessionListResponse struct {
	Sessions []*timer.Session `json:"sessions"`
}

// PolicyResponse describes the timer policy so clients can align their
// heartbeat interval and minimum-duration hints with the server.
type PolicyResponse struct {
	MaxSessionAgeSeconds      int64  `json:"max_session_age_seconds"`
	FutureToleranceSeconds    int64  `json:"future_tolerance_seconds"`
	MinSessionDurationSeconds int64  `json:"min_session_duration_seconds"`
	DefaultVisibility         string `json:"default_visibility"`
	HeartbeatIntervalSeconds  int64  `json:"heartbeat_interval_seconds"`
}
