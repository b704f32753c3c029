package store

import (
	"context"
	"fmt"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS media (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    source        TEXT NOT NULL,
    original_id   TEXT NOT NULL,
    text          TEXT NOT NULL DEFAULT '',
    images        TEXT NOT NULL DEFAULT '[]',
    videos        TEXT NOT NULL DEFAULT '[]',
    lat           REAL,
    long          REAL,
    username      TEXT NOT NULL DEFAULT '',
    created_at    INTEGER NOT NULL,
    url           TEXT NOT NULL DEFAULT '',
    active        BOOLEAN NOT NULL DEFAULT 1,
    like_count    INTEGER NOT NULL DEFAULT 0,
    comment_count INTEGER NOT NULL DEFAULT 0,
    UNIQUE(source, original_id)
);

CREATE INDEX IF NOT EXISTS idx_media_created_at ON media(created_at);
CREATE INDEX IF NOT EXISTS idx_media_username ON media(username);

CREATE TABLE IF NOT EXISTS tag (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    media_id INTEGER NOT NULL REFERENCES media(id),
    name     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tag_media ON tag(media_id);
CREATE INDEX IF NOT EXISTS idx_tag_name ON tag(name);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS media (
    id            BIGSERIAL PRIMARY KEY,
    source        TEXT NOT NULL,
    original_id   TEXT NOT NULL,
    text          TEXT NOT NULL DEFAULT '',
    images        TEXT NOT NULL DEFAULT '[]',
    videos        TEXT NOT NULL DEFAULT '[]',
    lat           DOUBLE PRECISION,
    long          DOUBLE PRECISION,
    username      TEXT NOT NULL DEFAULT '',
    created_at    BIGINT NOT NULL,
    url           TEXT NOT NULL DEFAULT '',
    active        BOOLEAN NOT NULL DEFAULT TRUE,
    like_count    INTEGER NOT NULL DEFAULT 0,
    comment_count INTEGER NOT NULL DEFAULT 0,
    UNIQUE(source, original_id)
);

CREATE INDEX IF NOT EXISTS idx_media_created_at ON media(created_at);
CREATE INDEX IF NOT EXISTS idx_media_username ON media(username);

CREATE TABLE IF NOT EXISTS tag (
    id       BIGSERIAL PRIMARY KEY,
    media_id BIGINT NOT NULL REFERENCES media(id),
    name     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tag_media ON tag(media_id);
CREATE INDEX IF NOT EXISTS idx_tag_name ON tag(name);
`

// Tag rows reference media rows, so tag goes first.
var dropStatements = []string{
	"DROP TABLE IF EXISTS tag",
	"DROP TABLE IF EXISTS media",
}

// ApplySchema creates the media and tag relations if they do not exist.
func (s *SQLStore) ApplySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.Schema()); err != nil {
		return fault("apply schema", err)
	}
	return nil
}

// DropSchema removes both relations and everything stored in them.
func (s *SQLStore) DropSchema(ctx context.Context) error {
	for _, stmt := range dropStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fault("drop schema", fmt.Errorf("%s: %w", stmt, err))
		}
	}
	return nil
}
