// Package store persists the relations the recall handler relies on in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	_ "modernc.org/sqlite"

	"github.com/heldhq/held/internal/domain"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DB is an open held database.
type DB struct {
	sql       *sql.DB
	path      string
	chatTable string
}

// Open creates (or opens) the database at path and ensures the schema exists.
// chatTable names the conversation memory relation.
func Open(ctx context.Context, path, chatTable string) (*DB, error) {
	if chatTable == "" {
		chatTable = domain.DefaultChatTable
	}
	if !identPattern.MatchString(chatTable) {
		return nil, fmt.Errorf("invalid chat table name %q", chatTable)
	}
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY churn.
	conn.SetMaxOpenConns(1)

	db := &DB{sql: conn, path: path, chatTable: chatTable}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS commands (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			team_id TEXT,
			ts_start INTEGER NOT NULL,
			cwd TEXT NOT NULL DEFAULT '',
			cmd TEXT NOT NULL,
			exit_code INTEGER,
			stdout TEXT,
			stderr TEXT,
			ssh_host TEXT,
			ssh_user TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS commands_user_ts ON commands (user_id, ts_start DESC)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			email TEXT,
			default_team_id TEXT,
			timezone TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS team_usage_daily (
			team_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			day TEXT NOT NULL,
			api_calls INTEGER NOT NULL DEFAULT 0,
			token_count INTEGER NOT NULL DEFAULT 0,
			storage_bytes INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT,
			PRIMARY KEY (team_id, user_id, day)
		)`,
		`CREATE TABLE IF NOT EXISTS team_quotas (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			team_id TEXT NOT NULL,
			quota_api_calls_per_day INTEGER,
			quota_tokens_per_day INTEGER,
			quota_storage_bytes INTEGER,
			effective_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS api_tokens (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			email TEXT,
			created_at TEXT
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			user_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			messages TEXT NOT NULL,
			updated_at TEXT,
			PRIMARY KEY (user_id, session_id)
		)`, db.chatTable),
	}
	for _, stmt := range statements {
		if _, err := db.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.sql.PingContext(ctx)
}

// Path returns the sqlite database path.
func (db *DB) Path() string {
	return db.path
}

// Close releases the database handle.
func (db *DB) Close() error {
	return db.sql.Close()
}

// Commands returns the command history repository.
func (db *DB) Commands() *CommandStore {
	return &CommandStore{db: db.sql}
}

// Profiles returns the profile repository.
func (db *DB) Profiles() *ProfileStore {
	return &ProfileStore{db: db.sql}
}

// Usage returns the daily usage repository.
func (db *DB) Usage() *UsageStore {
	return &UsageStore{db: db.sql}
}

// Quotas returns the quota repository.
func (db *DB) Quotas() *QuotaStore {
	return &QuotaStore{db: db.sql}
}

// Memory returns the conversation memory repository.
func (db *DB) Memory() *MemoryStore {
	return &MemoryStore{db: db.sql, table: db.chatTable}
}

// Tokens returns the API token repository.
func (db *DB) Tokens() *TokenStore {
	return &TokenStore{db: db.sql}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
