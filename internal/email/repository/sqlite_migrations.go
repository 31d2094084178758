package repository

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

type migration struct {
	version int
	sql     string
}

// sqliteMigrations must stay sequential starting from 1.
var sqliteMigrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	user_id       TEXT NOT NULL,
	id            TEXT NOT NULL,
	thread_id     TEXT NOT NULL DEFAULT '',
	subject       TEXT NOT NULL DEFAULT '',
	sender        TEXT NOT NULL DEFAULT '',
	snippet       TEXT NOT NULL DEFAULT '',
	internal_date INTEGER NOT NULL,
	is_read       INTEGER NOT NULL DEFAULT 0,
	summary       TEXT NOT NULL DEFAULT '',
	embedding     TEXT,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL,
	PRIMARY KEY (user_id, id)
);

CREATE INDEX IF NOT EXISTS idx_messages_user_date ON messages(user_id, internal_date DESC);

CREATE TABLE IF NOT EXISTS query_histories (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	query_text       TEXT NOT NULL,
	occurrence_count INTEGER NOT NULL DEFAULT 1,
	last_used_at     DATETIME NOT NULL,
	created_at       DATETIME NOT NULL,
	UNIQUE (user_id, query_text)
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}

// MigrateSQLite applies every migration newer than the stored schema version.
func MigrateSQLite(db *sqlx.DB) error {
	currentVersion := 0

	var tableCount int
	err := db.Get(&tableCount, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}
	if tableCount > 0 {
		if err := db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range sqliteMigrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}
