package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one versioned schema step. Versions are applied in order and
// recorded in schema_migrations so Migrate is idempotent.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "catalog cache tables",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS buildings (
				id            INTEGER PRIMARY KEY,
				name          TEXT    NOT NULL,
				description   TEXT,
				is_available  INTEGER,
				address       TEXT,
				hours         TEXT,
				favorites     INTEGER NOT NULL DEFAULT 0,
				comment_count INTEGER NOT NULL DEFAULT 0,
				sorted_id     INTEGER,
				last_updated  TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS rooms (
				id          INTEGER PRIMARY KEY,
				building_id INTEGER NOT NULL REFERENCES buildings(id) ON DELETE CASCADE,
				room_number TEXT    NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS building_images (
				id            INTEGER PRIMARY KEY,
				building_id   INTEGER NOT NULL REFERENCES buildings(id) ON DELETE CASCADE,
				url           TEXT    NOT NULL,
				display_order INTEGER,
				is_primary    INTEGER
			)`,
			`CREATE TABLE IF NOT EXISTS building_ratings (
				id          INTEGER PRIMARY KEY,
				user_id     TEXT    NOT NULL,
				building_id INTEGER NOT NULL REFERENCES buildings(id) ON DELETE CASCADE,
				rating      INTEGER NOT NULL,
				comment     TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_rooms_building ON rooms(building_id)`,
			`CREATE INDEX IF NOT EXISTS idx_images_building ON building_images(building_id)`,
			`CREATE INDEX IF NOT EXISTS idx_ratings_building ON building_ratings(building_id)`,
		},
	},
	{
		version: 2,
		name:    "term cache table",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS terms (
				id           INTEGER PRIMARY KEY,
				year         INTEGER NOT NULL,
				term         TEXT    NOT NULL,
				year_term    TEXT    NOT NULL,
				part_of_term TEXT    NOT NULL,
				start_date   TEXT    NOT NULL,
				end_date     TEXT    NOT NULL
			)`,
		},
	},
}

// Migrate applies any schema migrations not yet recorded. Each migration runs
// in its own transaction together with its version bookkeeping row.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	if _, err := cp.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`); err != nil {
		return fmt.Errorf("sqlite: create schema_migrations: %w", err)
	}

	applied, err := cp.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if _, ok := applied[m.version]; ok {
			continue
		}
		err := cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("sqlite: migration %d (%s): %w", m.version, m.name, err)
				}
			}
			if _, err := tx.Exec(
				`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`,
				m.version, m.name,
			); err != nil {
				return fmt.Errorf("sqlite: record migration %d: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (cp *ConnectionPool) appliedVersions(ctx context.Context) (map[int]struct{}, error) {
	rows, err := cp.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]struct{})
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("sqlite: scan schema version: %w", err)
		}
		applied[version] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate schema versions: %w", err)
	}
	return applied, nil
}
