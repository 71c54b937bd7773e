// Package metrics defines the sink interfaces dispatch observability flows
// through. Implementations live under infra/metrics.
package metrics

import "time"

// TransmitRecord represents one transmission attempt to a printer target.
type TransmitRecord struct {
	OrderID   string
	PrinterID string
	JobID     string
	Delivered bool
	Latency   time.Duration
	Time      time.Time
}

// MetricsSink records transmission outcomes for observability purposes.
type MetricsSink interface {
	RecordTransmit(records []TransmitRecord) error
}

// DispatchRecord summarizes one dispatch run.
type DispatchRecord struct {
	OrderID      string
	OrderNo      string
	ItemsSent    int
	PrinterCount int
	Success      bool
	Time         time.Time
}

// DispatchRecorder is implemented by sinks able to record run summaries.
type DispatchRecorder interface {
	RecordDispatch(rec DispatchRecord) error
}

// QueueRecord captures retry-queue activity.
type QueueRecord struct {
	JobID     string
	PrinterID string
	Action    string
	Attempts  int
	Time      time.Time
}

// QueueRecorder is implemented by sinks able to record queue activity.
type QueueRecorder interface {
	RecordQueueEvent(rec QueueRecord) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordTransmit([]TransmitRecord) error { return nil }
func (NopSink) RecordDispatch(DispatchRecord) error   { return nil }
func (NopSink) RecordQueueEvent(QueueRecord) error    { return nil }
