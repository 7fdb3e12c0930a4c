package audit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteSink stores records in an append-only ai_prompts table.
type SQLiteSink struct {
	db *sql.DB
}

func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer goroutine feeds the sink; a single connection also keeps
	// ":memory:" databases alive across statements.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteSink{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteSink) initSchema() error {
	query := `
	PRAGMA journal_mode = WAL;
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS ai_prompts (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		user_id TEXT,
		session_id TEXT,
		request_ref TEXT,
		provider TEXT NOT NULL,
		prompt TEXT NOT NULL,
		response TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ai_prompts_user ON ai_prompts(user_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Write(ctx context.Context, rec Record) error {
	query := `
	INSERT INTO ai_prompts (id, kind, user_id, session_id, request_ref, provider, prompt, response, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var response interface{}
	if rec.Response != "" {
		response = rec.Response
	}
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, string(rec.Kind), rec.UserID, rec.SessionID, rec.RequestRef,
		rec.Provider, rec.Prompt, response, rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if isSQLiteConflict(err) {
			return fmt.Errorf("insert audit record (database busy): %w", err)
		}
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// List returns the records of a user, oldest first. The engine never reads
// records back; this exists for operators and tests.
func (s *SQLiteSink) List(ctx context.Context, userID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, user_id, session_id, request_ref, provider, prompt, response, created_at
		FROM ai_prompts WHERE user_id = ? ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var kind string
		var response sql.NullString
		var createdAt int64
		if err := rows.Scan(&rec.ID, &kind, &rec.UserID, &rec.SessionID, &rec.RequestRef,
			&rec.Provider, &rec.Prompt, &response, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.Kind = Kind(kind)
		rec.Response = response.String
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func isSQLiteConflict(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
