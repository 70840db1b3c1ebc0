package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations holds the ordered schema history. Each entry runs inside its own
// transaction and is recorded in schema_migrations, so reopening a database
// applies only the versions it has not seen.
var migrations = []struct {
	version int
	ddl     string
}{
	{
		version: 1,
		ddl: `
CREATE TABLE people (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT,
	time_zone  TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE teams (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	description TEXT,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE team_members (
	team_id   TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
	person_id TEXT NOT NULL REFERENCES people(id),
	position  INTEGER NOT NULL,
	PRIMARY KEY (team_id, person_id)
);

CREATE TABLE pto_entries (
	id         TEXT PRIMARY KEY,
	person_id  TEXT NOT NULL REFERENCES people(id),
	start_date TEXT NOT NULL,
	end_date   TEXT NOT NULL,
	note       TEXT,
	CHECK (start_date <= end_date)
);

CREATE INDEX idx_pto_entries_person ON pto_entries(person_id);
`,
	},
	{
		version: 2,
		ddl: `
CREATE TABLE schedules (
	id             TEXT PRIMARY KEY,
	team_id        TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
	year           INTEGER NOT NULL,
	rotation_days  INTEGER NOT NULL,
	week_starts_on INTEGER NOT NULL,
	member_order   TEXT NOT NULL,
	created_at     TEXT NOT NULL
);

CREATE INDEX idx_schedules_team_year ON schedules(team_id, year);

CREATE TABLE slots (
	schedule_id  TEXT NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
	slot_index   INTEGER NOT NULL CHECK (slot_index >= 1),
	start_date   TEXT NOT NULL,
	end_date     TEXT NOT NULL,
	primary_id   TEXT,
	secondary_id TEXT,
	notes        TEXT,
	reminded     INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (schedule_id, slot_index)
);

CREATE INDEX idx_slots_start ON slots(start_date);

CREATE TABLE slot_overrides (
	schedule_id   TEXT NOT NULL,
	slot_index    INTEGER NOT NULL,
	primary_set   INTEGER NOT NULL DEFAULT 0,
	primary_id    TEXT,
	secondary_set INTEGER NOT NULL DEFAULT 0,
	secondary_id  TEXT,
	notes_set     INTEGER NOT NULL DEFAULT 0,
	notes         TEXT,
	updated_at    TEXT NOT NULL,
	PRIMARY KEY (schedule_id, slot_index),
	FOREIGN KEY (schedule_id, slot_index) REFERENCES slots(schedule_id, slot_index) ON DELETE CASCADE
);
`,
	},
}

// Migrate brings the database schema up to the latest version.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	_, err := pool.DB().ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current sql.NullInt64
	if err := pool.DB().QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if current.Valid && int64(m.version) <= current.Int64 {
			continue
		}
		migration := m
		err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(migration.ddl); err != nil {
				return fmt.Errorf("migration %d failed: %w", migration.version, err)
			}
			if _, err := tx.Exec(
				"INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))",
				migration.version,
			); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", migration.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}
