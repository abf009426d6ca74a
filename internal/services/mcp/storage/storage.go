// Package storage defines persistence contracts for the tool call journal.
package storage

import (
	"context"
	"time"
)

// Call outcomes recorded in the journal.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// CallRecord describes one completed tools/call request. It never holds tool
// results or discovered endpoints.
type CallRecord struct {
	CallID    string
	RequestID string
	Tool      string
	Mode      string
	Outcome   string
	ErrorCode int64
	Duration  time.Duration
	StartedAt time.Time
	TraceID   string
}

// CallJournal persists call records.
type CallJournal interface {
	RecordCall(ctx context.Context, record CallRecord) error
}
