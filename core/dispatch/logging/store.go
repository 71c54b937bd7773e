// Package logging persists dispatch audit records. It is the write-only sink
// the orchestrator feeds; operators query it when a ticket goes missing.
package logging

import (
	"context"
	"time"
)

// Record captures one dispatch run: who triggered it, which targets were
// attempted and how each fared.
type Record struct {
	Timestamp time.Time       `json:"timestamp"`
	OrderID   string          `json:"order_id"`
	OrderNo   string          `json:"order_no"`
	Actor     string          `json:"actor"`
	ItemsSent int             `json:"items_sent"`
	PerTarget map[string]bool `json:"per_target"`
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
}

// Query defines filters for retrieving records.
type Query struct {
	Start   time.Time
	End     time.Time
	OrderID string
	Printer string
}

// LogStore persists Records and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}
