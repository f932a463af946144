package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pulsetrack/timerd/internal/timer"
)

// Get retrieves the user's active session, or (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, userID string) (*timer.ActiveSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
	SELECT user_id, project_id, start_time, paused_duration, status, last_paused_at, selected_task_ids
	FROM active_sessions WHERE user_id = ?
	`

	var (
		session      timer.ActiveSession
		startTime    int64
		lastPausedAt sql.NullInt64
		taskIDs      string
	)

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&session.UserID, &session.ProjectID, &startTime,
		&session.PausedDuration, &session.Status, &lastPausedAt, &taskIDs,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}

	session.StartTime = time.UnixMilli(startTime)
	if lastPausedAt.Valid {
		t := time.UnixMilli(lastPausedAt.Int64)
		session.LastPausedAt = &t
	}
	if err := json.Unmarshal([]byte(taskIDs), &session.SelectedTaskIDs); err != nil {
		return nil, fmt.Errorf("failed to decode task ids: %w", err)
	}

	return &session, nil
}

// Put fully overwrites the user's active-session slot. Last writer wins.
func (s *Store) Put(ctx context.Context, session *timer.ActiveSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	taskIDs, err := json.Marshal(session.SelectedTaskIDs)
	if err != nil {
		return fmt.Errorf("failed to encode task ids: %w", err)
	}
	if session.SelectedTaskIDs == nil {
		taskIDs = []byte("[]")
	}

	var lastPausedAt sql.NullInt64
	if session.LastPausedAt != nil {
		lastPausedAt = sql.NullInt64{Int64: session.LastPausedAt.UnixMilli(), Valid: true}
	}

	query := `
	INSERT OR REPLACE INTO active_sessions (
		user_id, project_id, start_time, paused_duration, status, last_paused_at, selected_task_ids, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		session.UserID, session.ProjectID, session.StartTime.UnixMilli(),
		session.PausedDuration, string(session.Status), lastPausedAt,
		string(taskIDs), time.Now().UnixMilli(),
	)

	if err != nil {
		return fmt.Errorf("failed to put active session: %w", err)
	}
	return nil
}

// Delete removes the user's active session. Deleting an absent record is not
// an error.
func (s *Store) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM active_sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete active session: %w", err)
	}
	return nil
}

// CountActive returns the number of active-session rows. Used to seed the
// active-timer gauge on startup.
func (s *Store) CountActive(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM active_sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return count, nil
}
