package store

import (
	"fmt"
)

func (s *Store) migrate() error {
	return s.migrateV1()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS active_sessions (
		user_id           TEXT PRIMARY KEY,
		project_id        TEXT NOT NULL,
		start_time        INTEGER NOT NULL,
		paused_duration   INTEGER NOT NULL DEFAULT 0,
		status            TEXT NOT NULL,
		last_paused_at    INTEGER,
		selected_task_ids TEXT NOT NULL DEFAULT '[]',
		updated_at        INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		project_id    TEXT NOT NULL,
		title         TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		duration      INTEGER NOT NULL,
		started_at    INTEGER NOT NULL,
		completed_at  INTEGER NOT NULL,
		visibility    TEXT NOT NULL,
		tags          TEXT NOT NULL DEFAULT '[]',
		group_ids     TEXT NOT NULL DEFAULT '[]',
		support_count INTEGER NOT NULL DEFAULT 0,
		comment_count INTEGER NOT NULL DEFAULT 0,
		created_at    INTEGER NOT NULL,
		updated_at    INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, completed_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_id);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '1');
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v1: %w", err)
	}

	return nil
}
