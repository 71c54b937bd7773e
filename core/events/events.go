// Package events defines the typed events published on the internal bus
// during dispatch, retry and relay operation.
package events

import "time"

// DispatchEvent is published once per dispatch run, after aggregation.
type DispatchEvent struct {
	OrderID      string
	OrderNo      string
	ItemsSent    int
	PrinterCount int
	Success      bool
	Message      string
}

// TransmitEvent records the outcome of one transmission attempt to one
// printer target.
type TransmitEvent struct {
	OrderID   string
	PrinterID string
	JobID     string
	Delivered bool
	Err       error
	Latency   time.Duration
}

// QueueEvent records retry-queue activity for a pending job.
type QueueEvent struct {
	JobID     string
	PrinterID string
	Action    string // "enqueued", "retried", "resolved", "dead"
	Attempts  int
}

// RelayEvent records relay-agent protocol activity.
type RelayEvent struct {
	Action    string // "registered", "heartbeat", "poll", "printed", "down"
	PrinterID string
	JobID     string
	Err       error
}
