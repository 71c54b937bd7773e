// Package queue holds dispatch jobs that failed transmission and replays
// them periodically. Entries carry the full job payload so replay never
// needs to re-run segregation. Backoff grows exponentially with jitter and a
// job exceeding the attempt cap moves to a dead-letter list visible to
// operators.
package queue

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/platewire/platewire/core/events"
	"github.com/platewire/platewire/core/logger"
	"github.com/platewire/platewire/core/model"
	"github.com/platewire/platewire/internal/eventbus"
)

// Sender re-attempts delivery of a queued job. The dispatch transport
// satisfies it.
type Sender interface {
	Send(ctx context.Context, job model.DispatchJob) error
}

// Entry is a failed DispatchJob preserved for replay.
type Entry struct {
	Job         model.DispatchJob `json:"job"`
	Attempts    int               `json:"attempts"`
	EnqueuedAt  time.Time         `json:"enqueued_at"`
	NextAttempt time.Time         `json:"next_attempt"`
	LastError   string            `json:"last_error,omitempty"`
}

// Config tunes the drain loop.
type Config struct {
	// Interval between drain runs.
	Interval time.Duration
	// SendTimeout bounds each replay attempt.
	SendTimeout time.Duration
	// BaseBackoff is the delay after the first failure; it doubles per
	// attempt up to MaxBackoff, with up to 50% jitter.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// MaxAttempts moves a job to the dead-letter list once exceeded.
	MaxAttempts int
	// SnapshotPath, when set, persists the queue across restarts.
	SnapshotPath string
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 15 * time.Second
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 30 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 10 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
}

// Queue is the retry/offline queue. All methods are safe for concurrent use;
// only one drain runs at a time.
type Queue struct {
	cfg    Config
	sender Sender
	log    logger.Logger
	bus    eventbus.EventBus

	mu       sync.Mutex
	pending  []Entry
	dead     []Entry
	draining bool
}

// New creates a Queue and restores any snapshot from cfg.SnapshotPath.
func New(cfg Config, sender Sender, log logger.Logger) *Queue {
	cfg.SetDefaults()
	q := &Queue{cfg: cfg, sender: sender, log: log}
	if err := q.restore(); err != nil {
		log.Warnf("queue snapshot restore failed: %v", err)
	}
	q.updateDepth()
	return q
}

// SetBus configures the event bus queue activity is published on.
func (q *Queue) SetBus(bus eventbus.EventBus) {
	q.mu.Lock()
	q.bus = bus
	q.mu.Unlock()
}

// Enqueue adds a failed job for later replay.
func (q *Queue) Enqueue(job model.DispatchJob) {
	now := time.Now()
	attempts := job.Attempts
	if attempts < 1 {
		attempts = 1
	}
	e := Entry{
		Job:         job,
		Attempts:    attempts,
		EnqueuedAt:  now,
		NextAttempt: now.Add(q.backoff(attempts)),
	}
	q.mu.Lock()
	q.pending = append(q.pending, e)
	bus := q.bus
	q.mu.Unlock()
	q.persist()
	q.updateDepth()
	q.log.Infof("queued job %s for printer %s (attempt %d)", job.ID, job.PrinterID, attempts)
	if bus != nil {
		bus.Publish(events.QueueEvent{JobID: job.ID, PrinterID: job.PrinterID, Action: "enqueued", Attempts: attempts})
	}
}

// Pending returns a copy of the pending entries.
func (q *Queue) Pending() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Entry(nil), q.pending...)
}

// DeadLetters returns a copy of the dead-letter entries.
func (q *Queue) DeadLetters() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Entry(nil), q.dead...)
}

// Revive moves all dead-letter entries back to pending with a reset attempt
// counter. This is the explicit operator action required after a job exceeds
// the attempt cap.
func (q *Queue) Revive() int {
	q.mu.Lock()
	n := len(q.dead)
	now := time.Now()
	for _, e := range q.dead {
		e.Attempts = 0
		e.NextAttempt = now
		q.pending = append(q.pending, e)
	}
	q.dead = nil
	q.mu.Unlock()
	q.persist()
	q.updateDepth()
	return n
}

// Run drains the queue on the configured interval until the context is
// cancelled. A drain that panics is logged and does not break the ticker
// schedule.
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.safeDrain(ctx)
		}
	}
}

func (q *Queue) safeDrain(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Errorf("queue drain panicked: %v", r)
		}
	}()
	q.Drain(ctx)
}

// Drain re-attempts every pending entry that is due. Success removes the
// entry; failure re-enqueues it with increased backoff or dead-letters it
// once the attempt cap is exceeded. If a drain is already running the call
// returns immediately.
func (q *Queue) Drain(ctx context.Context) {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true
	now := time.Now()
	var due, wait []Entry
	for _, e := range q.pending {
		if e.NextAttempt.After(now) {
			wait = append(wait, e)
		} else {
			due = append(due, e)
		}
	}
	q.pending = wait
	bus := q.bus
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
		q.persist()
		q.updateDepth()
	}()

	for _, e := range due {
		if ctx.Err() != nil {
			q.requeue(e)
			continue
		}
		sctx, cancel := context.WithTimeout(ctx, q.cfg.SendTimeout)
		err := q.sender.Send(sctx, e.Job)
		cancel()
		e.Attempts++
		retriesTotal.WithLabelValues(e.Job.PrinterID).Inc()
		if err == nil {
			q.log.Infof("job %s replayed to printer %s after %d attempts", e.Job.ID, e.Job.PrinterID, e.Attempts)
			if bus != nil {
				bus.Publish(events.QueueEvent{JobID: e.Job.ID, PrinterID: e.Job.PrinterID, Action: "resolved", Attempts: e.Attempts})
			}
			continue
		}
		e.LastError = err.Error()
		if e.Attempts >= q.cfg.MaxAttempts {
			deadLetterTotal.Inc()
			q.log.Errorf("job %s for printer %s dead-lettered after %d attempts: %v", e.Job.ID, e.Job.PrinterID, e.Attempts, err)
			q.mu.Lock()
			q.dead = append(q.dead, e)
			q.mu.Unlock()
			if bus != nil {
				bus.Publish(events.QueueEvent{JobID: e.Job.ID, PrinterID: e.Job.PrinterID, Action: "dead", Attempts: e.Attempts})
			}
			continue
		}
		e.NextAttempt = time.Now().Add(q.backoff(e.Attempts))
		q.requeue(e)
		if bus != nil {
			bus.Publish(events.QueueEvent{JobID: e.Job.ID, PrinterID: e.Job.PrinterID, Action: "retried", Attempts: e.Attempts})
		}
	}
}

func (q *Queue) requeue(e Entry) {
	q.mu.Lock()
	q.pending = append(q.pending, e)
	q.mu.Unlock()
}

// backoff returns the delay before the next attempt: base doubled per prior
// attempt, capped, with up to 50% jitter.
func (q *Queue) backoff(attempts int) time.Duration {
	d := q.cfg.BaseBackoff
	for i := 1; i < attempts && d < q.cfg.MaxBackoff; i++ {
		d *= 2
	}
	if d > q.cfg.MaxBackoff {
		d = q.cfg.MaxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(d)/2 + 1))
	return d + jitter
}

func (q *Queue) updateDepth() {
	q.mu.Lock()
	pending, dead := len(q.pending), len(q.dead)
	q.mu.Unlock()
	queueDepth.Set(float64(pending))
	deadLetterDepth.Set(float64(dead))
}
