package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pulsetrack/timerd/internal/timer"
)

// Append writes a completed session to the archive and returns its assigned
// ID. The archive is append-only from this subsystem's perspective.
func (s *Store) Append(ctx context.Context, session *timer.Session) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()

	tags, err := json.Marshal(orEmpty(session.Tags))
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	groupIDs, err := json.Marshal(orEmpty(session.GroupIDs))
	if err != nil {
		return "", fmt.Errorf("failed to encode group ids: %w", err)
	}

	query := `
	INSERT INTO sessions (
		id, user_id, project_id, title, description, duration,
		started_at, completed_at, visibility, tags, group_ids,
		support_count, comment_count, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		id, session.UserID, session.ProjectID, session.Title, session.Description,
		session.Duration, session.StartedAt.UnixMilli(), session.CompletedAt.UnixMilli(),
		string(session.Visibility), string(tags), string(groupIDs),
		session.CreatedAt.UnixMilli(), session.UpdatedAt.UnixMilli(),
	)

	if err != nil {
		return "", fmt.Errorf("failed to append session: %w", err)
	}
	return id, nil
}

// GetSession retrieves an archived session by ID, or (nil, nil) when absent.
func (s *Store) GetSession(ctx context.Context, id string) (*timer.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, sessionSelect+` WHERE id = ?`, id)
	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// ListSessions returns a user's archived sessions, most recent first.
func (s *Store) ListSessions(ctx context.Context, userID string, limit int) ([]*timer.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		sessionSelect+` WHERE user_id = ? ORDER BY completed_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*timer.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

const sessionSelect = `
SELECT id, user_id, project_id, title, description, duration,
       started_at, completed_at, visibility, tags, group_ids,
       support_count, comment_count, created_at, updated_at
FROM sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*timer.Session, error) {
	var (
		session                timer.Session
		startedAt, completedAt int64
		createdAt, updatedAt   int64
		tags, groupIDs         string
	)

	err := row.Scan(
		&session.ID, &session.UserID, &session.ProjectID, &session.Title,
		&session.Description, &session.Duration, &startedAt, &completedAt,
		&session.Visibility, &tags, &groupIDs,
		&session.SupportCount, &session.CommentCount, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	session.StartedAt = time.UnixMilli(startedAt)
	session.CompletedAt = time.UnixMilli(completedAt)
	session.CreatedAt = time.UnixMilli(createdAt)
	session.UpdatedAt = time.UnixMilli(updatedAt)

	if err := json.Unmarshal([]byte(tags), &session.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(groupIDs), &session.GroupIDs); err != nil {
		return nil, fmt.Errorf("failed to decode group ids: %w", err)
	}

	return &session, nil
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
