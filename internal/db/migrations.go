package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Migration is one forward-only schema step. Statements are kept separate per
// driver because the pgx stdlib driver does not take multi-statement scripts
// with the extended protocol.
type Migration struct {
	ID       string
	SQLite   []string
	Postgres []string
}

// Migrations is the ordered ledger. Append only; never edit an applied entry.
var Migrations = []Migration{
	{
		ID: "0001_catalog_users_results",
		SQLite: []string{
			`CREATE TABLE IF NOT EXISTS exams (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  description TEXT,
  duration_minutes INTEGER NOT NULL DEFAULT 40
)`,
			`CREATE TABLE IF NOT EXISTS sections (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  exam_id INTEGER NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  question_count INTEGER NOT NULL DEFAULT 10,
  duration_minutes INTEGER,
  question_mode TEXT NOT NULL DEFAULT 'objective'
)`,
			`CREATE TABLE IF NOT EXISTS questions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  section_id INTEGER NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
  text TEXT NOT NULL,
  options_json TEXT NOT NULL,
  correct_index INTEGER NOT NULL DEFAULT 0,
  difficulty TEXT NOT NULL DEFAULT 'medium',
  type TEXT NOT NULL DEFAULT 'objective',
  answer_text TEXT
)`,
			`CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT,
  email TEXT NOT NULL UNIQUE,
  role TEXT NOT NULL DEFAULT 'student',
  created_at INTEGER NOT NULL
)`,
			`CREATE TABLE IF NOT EXISTS results (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
  exam_id INTEGER REFERENCES exams(id) ON DELETE SET NULL,
  attempt_uuid TEXT NOT NULL,
  score INTEGER NOT NULL,
  max_score INTEGER NOT NULL,
  submitted_at TEXT NOT NULL,
  details_json TEXT NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS sections_exam_idx ON sections (exam_id)`,
			`CREATE INDEX IF NOT EXISTS questions_section_idx ON questions (section_id)`,
			`CREATE INDEX IF NOT EXISTS results_user_idx ON results (user_id)`,
		},
		Postgres: []string{
			`CREATE TABLE IF NOT EXISTS exams (
  id BIGSERIAL PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT,
  duration_minutes INTEGER NOT NULL DEFAULT 40
)`,
			`CREATE TABLE IF NOT EXISTS sections (
  id BIGSERIAL PRIMARY KEY,
  exam_id BIGINT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  question_count INTEGER NOT NULL DEFAULT 10,
  duration_minutes INTEGER,
  question_mode TEXT NOT NULL DEFAULT 'objective'
)`,
			`CREATE TABLE IF NOT EXISTS questions (
  id BIGSERIAL PRIMARY KEY,
  section_id BIGINT NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
  text TEXT NOT NULL,
  options_json TEXT NOT NULL,
  correct_index INTEGER NOT NULL DEFAULT 0,
  difficulty TEXT NOT NULL DEFAULT 'medium',
  type TEXT NOT NULL DEFAULT 'objective',
  answer_text TEXT
)`,
			`CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  name TEXT,
  email TEXT NOT NULL UNIQUE,
  role TEXT NOT NULL DEFAULT 'student',
  created_at BIGINT NOT NULL
)`,
			`CREATE TABLE IF NOT EXISTS results (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
  exam_id BIGINT REFERENCES exams(id) ON DELETE SET NULL,
  attempt_uuid TEXT NOT NULL,
  score INTEGER NOT NULL,
  max_score INTEGER NOT NULL,
  submitted_at TEXT NOT NULL,
  details_json TEXT NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS sections_exam_idx ON sections (exam_id)`,
			`CREATE INDEX IF NOT EXISTS questions_section_idx ON questions (section_id)`,
			`CREATE INDEX IF NOT EXISTS results_user_idx ON results (user_id)`,
		},
	},
	{
		ID: "0002_event_log",
		SQLite: []string{
			`CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,                         -- e.g., ResultSubmitted
  key TEXT NOT NULL,                         -- natural key: result id, user id
  data TEXT NOT NULL,                        -- JSON payload
  created_at INTEGER NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS event_log_typ_idx ON event_log (typ, seq)`,
		},
		Postgres: []string{
			`CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS event_log_typ_idx ON event_log (typ, seq)`,
		},
	},
}

const ledgerDDL = `CREATE TABLE IF NOT EXISTS schema_migrations (
  id TEXT PRIMARY KEY,
  applied_at BIGINT NOT NULL
)`

// Migrate applies every migration not yet recorded in schema_migrations, each
// in its own transaction together with its ledger row.
func Migrate(ctx context.Context, db *sql.DB, driver Driver) error {
	if db == nil {
		return fmt.Errorf("migrations: db is nil")
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return fmt.Errorf("migrations: unsupported driver %q (expected postgres|sqlite)", driver)
	}
	if _, err := db.ExecContext(ctx, ledgerDDL); err != nil {
		return fmt.Errorf("migrations: ledger: %w", err)
	}

	applied, err := AppliedMigrations(ctx, db)
	if err != nil {
		return err
	}
	done := make(map[string]bool, len(applied))
	for _, id := range applied {
		done[id] = true
	}

	for _, m := range Migrations {
		if done[m.ID] {
			continue
		}
		stmts := m.SQLite
		if driver == DriverPostgres {
			stmts = m.Postgres
		}
		if err := apply(ctx, db, m.ID, stmts); err != nil {
			return err
		}
	}
	return nil
}

func apply(ctx context.Context, db *sql.DB, id string, stmts []string) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	for _, stmt := range stmts {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrations: %s failed at:\n%s\nerr: %w", id, firstLine(stmt), err)
		}
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (id, applied_at) VALUES ($1, $2)`, id, time.Now().Unix())
	return err
}

// AppliedMigrations lists ledger ids in the order they were applied.
func AppliedMigrations(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM schema_migrations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
