// Package sqlite provides a SQLite-backed tool call journal.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/DynamicDevices/mcp-webcam/internal/platform/id"
	"github.com/DynamicDevices/mcp-webcam/internal/platform/storage/sqlitemigrate"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/storage"
	"github.com/DynamicDevices/mcp-webcam/internal/services/mcp/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists call records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.CallJournal = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite journal and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordCall inserts one call record. A missing call id is generated.
func (s *Store) RecordCall(ctx context.Context, record storage.CallRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.Tool) == "" {
		return fmt.Errorf("tool is required")
	}
	if record.CallID == "" {
		callID, err := id.NewID()
		if err != nil {
			return err
		}
		record.CallID = callID
	}
	if record.StartedAt.IsZero() {
		record.StartedAt = time.Now()
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO tool_calls (call_id, request_id, tool, mode, outcome, error_code, duration_ms, started_at, trace_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.CallID,
		record.RequestID,
		record.Tool,
		record.Mode,
		record.Outcome,
		record.ErrorCode,
		record.Duration.Milliseconds(),
		toMillis(record.StartedAt),
		record.TraceID,
	)
	if err != nil {
		return fmt.Errorf("insert tool call: %w", err)
	}
	return nil
}

// ListCalls returns the most recent records, newest first. The server only
// writes the journal; ListCalls is the read side for operators and tests
// inspecting a journal file.
func (s *Store) ListCalls(ctx context.Context, limit int) ([]storage.CallRecord, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT call_id, request_id, tool, mode, outcome, error_code, duration_ms, started_at, trace_id
FROM tool_calls
ORDER BY started_at DESC, call_id
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list tool calls: %w", err)
	}
	defer rows.Close()

	var out []storage.CallRecord
	for rows.Next() {
		var (
			record     storage.CallRecord
			durationMS int64
			startedAt  int64
		)
		if err := rows.Scan(
			&record.CallID,
			&record.RequestID,
			&record.Tool,
			&record.Mode,
			&record.Outcome,
			&record.ErrorCode,
			&durationMS,
			&startedAt,
			&record.TraceID,
		); err != nil {
			return nil, fmt.Errorf("scan tool call: %w", err)
		}
		record.Duration = time.Duration(durationMS) * time.Millisecond
		record.StartedAt = fromMillis(startedAt)
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tool calls: %w", err)
	}
	return out, nil
}
