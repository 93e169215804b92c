// Package audit records operational events (model calls, tool invocations)
// in SQLite. It is an audit trail, not conversation persistence: transcripts
// live only in memory for the duration of a run.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed audit log.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// ToolInvocation is one dispatched tool call.
type ToolInvocation struct {
	ID        int64
	RunID     string
	ToolName  string
	ToolUseID string
	Input     string
	Outcome   string // "ok" or the error kind, e.g. "ToolNotFound"
	Message   string // error message when Outcome is not "ok"
	LatencyMs int64
	CreatedAt time.Time
}

// ModelCall is one round trip to the model endpoint.
type ModelCall struct {
	ID           int64
	RunID        string
	Endpoint     string
	StopReason   string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	CreatedAt    time.Time
}

func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection: SQLite writes do not benefit from a pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tool_invocations (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL,
		tool_name   TEXT NOT NULL,
		tool_use_id TEXT,
		input       TEXT,
		outcome     TEXT NOT NULL,
		message     TEXT,
		latency_ms  INTEGER DEFAULT 0,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_tool_invocations_time ON tool_invocations(created_at);

	CREATE TABLE IF NOT EXISTS model_calls (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id        TEXT NOT NULL,
		endpoint      TEXT NOT NULL,
		stop_reason   TEXT,
		input_tokens  INTEGER DEFAULT 0,
		output_tokens INTEGER DEFAULT 0,
		latency_ms    INTEGER DEFAULT 0,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_model_calls_time ON model_calls(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) RecordToolInvocation(ctx context.Context, inv ToolInvocation) error {
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_invocations (run_id, tool_name, tool_use_id, input, outcome, message, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.RunID, inv.ToolName, inv.ToolUseID, inv.Input, inv.Outcome, inv.Message, inv.LatencyMs, inv.CreatedAt,
	)
	return err
}

func (s *Store) RecordModelCall(ctx context.Context, call ModelCall) error {
	if call.CreatedAt.IsZero() {
		call.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO model_calls (run_id, endpoint, stop_reason, input_tokens, output_tokens, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		call.RunID, call.Endpoint, call.StopReason, call.InputTokens, call.OutputTokens, call.LatencyMs, call.CreatedAt,
	)
	return err
}

// RecentToolInvocations returns the newest invocations, newest first.
func (s *Store) RecentToolInvocations(ctx context.Context, limit int) ([]ToolInvocation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, tool_name, tool_use_id, input, outcome, message, latency_ms, created_at
		 FROM tool_invocations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ToolInvocation
	for rows.Next() {
		var inv ToolInvocation
		if err := rows.Scan(&inv.ID, &inv.RunID, &inv.ToolName, &inv.ToolUseID, &inv.Input,
			&inv.Outcome, &inv.Message, &inv.LatencyMs, &inv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// RecentModelCalls returns the newest model calls, newest first.
func (s *Store) RecentModelCalls(ctx context.Context, limit int) ([]ModelCall, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, endpoint, stop_reason, input_tokens, output_tokens, latency_ms, created_at
		 FROM model_calls ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ModelCall
	for rows.Next() {
		var call ModelCall
		if err := rows.Scan(&call.ID, &call.RunID, &call.Endpoint, &call.StopReason,
			&call.InputTokens, &call.OutputTokens, &call.LatencyMs, &call.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, call)
	}
	return out, rows.Err()
}

// Prune deletes audit rows older than the retention window.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tool_invocations WHERE created_at < ?`, cutoff); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM model_calls WHERE created_at < ?`, cutoff)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
