// Package dispatch implements the order dispatch orchestrator: it detects
// unsent items, validates readiness, segregates items per printer target,
// commits the sent state and transmits tickets with timeout and retry
// hand-off.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/platewire/platewire/core/assign"
	"github.com/platewire/platewire/core/dispatch/logging"
	"github.com/platewire/platewire/core/events"
	"github.com/platewire/platewire/core/logger"
	"github.com/platewire/platewire/core/model"
	"github.com/platewire/platewire/core/printerstatus"
	"github.com/platewire/platewire/core/ticket"
	"github.com/platewire/platewire/core/validate"
	"github.com/platewire/platewire/internal/eventbus"
)

// OrderStore persists the sent flag for order items. It is owned by the
// order-management collaborator; dispatch only calls MarkSent.
type OrderStore interface {
	MarkSent(ctx context.Context, orderID string, itemIDs []string) error
}

// RetryQueue accepts failed jobs for later replay.
type RetryQueue interface {
	Enqueue(job model.DispatchJob)
}

// Manager orchestrates dispatch runs. One run per order id may be in flight
// at a time; concurrent calls for the same order are rejected immediately
// while distinct orders dispatch independently.
type Manager struct {
	store     assign.Store
	resolver  *assign.Resolver
	gate      *validate.Gate
	orders    OrderStore
	transport Transport
	queue     RetryQueue
	timeout   time.Duration
	targetGap time.Duration
	log       logger.Logger

	status printerstatus.Store
	audit  logging.LogStore
	bus    eventbus.EventBus

	mu       sync.Mutex
	inflight map[string]bool
}

// NewManager creates a Manager. timeout bounds each transmission attempt
// (default 15s) and targetGap is the pause between consecutive targets so a
// shared print bridge is not hit with overlapping connections (default
// 300ms).
func NewManager(store assign.Store, resolver *assign.Resolver, gate *validate.Gate, orders OrderStore, transport Transport, queue RetryQueue, timeout, targetGap time.Duration, log logger.Logger) (*Manager, error) {
	if store == nil || resolver == nil || gate == nil || orders == nil || transport == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewManager")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if targetGap < 0 {
		targetGap = 300 * time.Millisecond
	}
	return &Manager{
		store:     store,
		resolver:  resolver,
		gate:      gate,
		orders:    orders,
		transport: transport,
		queue:     queue,
		timeout:   timeout,
		targetGap: targetGap,
		log:       log,
		inflight:  make(map[string]bool),
	}, nil
}

// SetStatusStore configures the store used to track per-printer statistics.
func (m *Manager) SetStatusStore(store printerstatus.Store) {
	m.mu.Lock()
	m.status = store
	m.mu.Unlock()
}

// SetAuditStore configures the store used to persist dispatch records.
func (m *Manager) SetAuditStore(store logging.LogStore) {
	m.mu.Lock()
	m.audit = store
	m.mu.Unlock()
}

// SetBus configures the event bus dispatch outcomes are published on.
func (m *Manager) SetBus(bus eventbus.EventBus) {
	m.mu.Lock()
	m.bus = bus
	m.mu.Unlock()
}

// Close releases resources held by the manager.
func (m *Manager) Close() error {
	if m.bus != nil {
		m.bus.Close()
	}
	if m.audit != nil {
		return m.audit.Close()
	}
	return nil
}

type actorKey struct{}

// WithActor attaches the acting user to the context for audit records.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return a
	}
	return "system"
}

// targetGroup is one printer target with the items routed to it, in item
// order. Fan-out items appear in several groups.
type targetGroup struct {
	target model.PrinterTarget
	items  []model.OrderItem
}

func failResult(msg string) model.DispatchResult {
	return model.DispatchResult{Message: msg, PerTarget: map[string]bool{}}
}

func (m *Manager) begin(orderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inflight[orderID] {
		return false
	}
	m.inflight[orderID] = true
	return true
}

func (m *Manager) end(orderID string) {
	m.mu.Lock()
	delete(m.inflight, orderID)
	m.mu.Unlock()
}

// Dispatch runs the full pipeline for the order: detect unsent items,
// validate, segregate per target, mark items sent and transmit. It never
// panics outward; unexpected failures surface as a failed result.
func (m *Manager) Dispatch(ctx context.Context, order *model.Order) (res model.DispatchResult) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Errorf("dispatch of order %s panicked: %v", order.ID, r)
			dispatchRuns.WithLabelValues("error").Inc()
			res = failResult(fmt.Sprintf("internal error: %v", r))
		}
	}()

	if !m.begin(order.ID) {
		m.log.Warnf("dispatch of order %s already in progress", order.ID)
		return failResult(fmt.Sprintf("dispatch of order %s is already in progress", order.Number))
	}
	defer m.end(order.ID)

	// Detecting
	unsent := order.UnsentItems()
	if len(unsent) == 0 {
		dispatchRuns.WithLabelValues("nothing").Inc()
		return failResult("nothing to send: no new items")
	}

	// Validating: read-only, no flags touched on failure.
	if v := m.gate.Validate(*order); !v.OK {
		m.log.Warnf("order %s failed validation: %s", order.Number, v.Message)
		dispatchRuns.WithLabelValues("rejected").Inc()
		return failResult(v.Message)
	}

	// Segregating
	groups := m.segregate(unsent)
	if len(groups) == 0 {
		dispatchRuns.WithLabelValues("rejected").Inc()
		return failResult("no printers matched the unsent items")
	}

	// MarkingSent: committed before any transmission so a retried UI action
	// can never double-dispatch. Transmission failures are recovered through
	// the retry queue, not by re-invoking dispatch.
	ids := make([]string, 0, len(unsent))
	for _, it := range unsent {
		ids = append(ids, it.ID)
	}
	if err := m.orders.MarkSent(ctx, order.ID, ids); err != nil {
		m.log.Errorf("order %s: mark sent failed: %v", order.ID, err)
		dispatchRuns.WithLabelValues("error").Inc()
		return failResult(fmt.Sprintf("could not commit items: %v", err))
	}
	markLocal(order, ids)

	// Dispatching
	perTarget := make(map[string]bool, len(groups))
	for i, g := range groups {
		if i > 0 && m.targetGap > 0 {
			select {
			case <-time.After(m.targetGap):
			case <-ctx.Done():
			}
		}
		job := m.buildJob(*order, g)
		err := m.transmit(ctx, job)
		delivered := err == nil
		perTarget[g.target.ID] = delivered
		m.recordTransmit(order.ID, job, g.target, err)
		if !delivered {
			job.Attempts = 1
			if m.queue != nil {
				m.queue.Enqueue(job)
			}
		}
	}

	// Aggregating
	res = m.aggregate(*order, len(unsent), perTarget)
	m.finish(ctx, *order, res)
	return res
}

// segregate resolves every unsent item to its targets and builds one group
// per target, in order of first reference.
func (m *Manager) segregate(items []model.OrderItem) []targetGroup {
	index := make(map[string]int)
	var groups []targetGroup
	for _, it := range items {
		for _, id := range m.resolver.ResolveTargets(it.MenuItemID, it.CategoryID) {
			gi, ok := index[id]
			if !ok {
				t, found := m.store.TargetByID(id)
				if !found {
					continue
				}
				gi = len(groups)
				index[id] = gi
				groups = append(groups, targetGroup{target: t})
			}
			groups[gi].items = append(groups[gi].items, it)
		}
	}
	return groups
}

func (m *Manager) buildJob(order model.Order, g targetGroup) model.DispatchJob {
	itemIDs := make([]string, 0, len(g.items))
	for _, it := range g.items {
		itemIDs = append(itemIDs, it.ID)
	}
	kind := g.target.Transport
	if kind == "" {
		kind = model.TransportTCP
	}
	return model.DispatchJob{
		ID:        uuid.NewString(),
		OrderID:   order.ID,
		OrderNo:   order.Number,
		PrinterID: g.target.ID,
		Addr:      g.target.Addr(),
		Transport: kind,
		ItemIDs:   itemIDs,
		Ticket:    ticket.Render(order, g.items),
		CreatedAt: time.Now(),
	}
}

// transmit runs one attempt under the configured timeout. The transport call
// races the deadline; the context is cancelled either way so a hung
// connection is torn down rather than abandoned.
func (m *Manager) transmit(ctx context.Context, job model.DispatchJob) error {
	tctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- m.transport.Send(tctx, job) }()
	select {
	case err := <-done:
		if err != nil {
			return NewTransmitError(classify(err), err)
		}
		return nil
	case <-tctx.Done():
		return NewTransmitError(FailTimeout, tctx.Err())
	}
}

func (m *Manager) recordTransmit(orderID string, job model.DispatchJob, target model.PrinterTarget, err error) {
	now := time.Now()
	dur := now.Sub(job.CreatedAt)
	transmitLatency.WithLabelValues(target.ID).Observe(dur.Seconds())
	if err == nil {
		ticketsPrinted.WithLabelValues(target.ID).Inc()
		if m.status != nil {
			m.status.RecordSuccess(target.ID, now)
		}
		m.log.Infof("order %s: ticket delivered to %s", orderID, target.Name)
	} else {
		transmitFailures.WithLabelValues(target.ID, string(classify(err))).Inc()
		if m.status != nil {
			m.status.RecordFailure(target.ID, err, now)
		}
		m.log.Warnf("order %s: delivery to %s failed: %v", orderID, target.Name, err)
	}
	if m.bus != nil {
		m.bus.Publish(events.TransmitEvent{
			OrderID:   orderID,
			PrinterID: target.ID,
			JobID:     job.ID,
			Delivered: err == nil,
			Err:       err,
			Latency:   dur,
		})
	}
}

func (m *Manager) aggregate(order model.Order, itemsSent int, perTarget map[string]bool) model.DispatchResult {
	okCount := 0
	for _, ok := range perTarget {
		if ok {
			okCount++
		}
	}
	res := model.DispatchResult{
		ItemsSent:    itemsSent,
		PrinterCount: okCount,
		PerTarget:    perTarget,
		Success:      okCount > 0,
	}
	switch {
	case okCount == len(perTarget):
		res.Message = fmt.Sprintf("order %s sent to %d printer(s)", order.Number, okCount)
		dispatchRuns.WithLabelValues("ok").Inc()
	case okCount > 0:
		res.Message = fmt.Sprintf("order %s partially sent: %d of %d printers reached, failed jobs queued for retry", order.Number, okCount, len(perTarget))
		dispatchRuns.WithLabelValues("partial").Inc()
	default:
		res.Message = fmt.Sprintf("order %s marked sent but no printer was reachable; check printer connections, jobs queued for retry", order.Number)
		dispatchRuns.WithLabelValues("failed").Inc()
	}
	return res
}

func (m *Manager) finish(ctx context.Context, order model.Order, res model.DispatchResult) {
	if m.bus != nil {
		m.bus.Publish(events.DispatchEvent{
			OrderID:      order.ID,
			OrderNo:      order.Number,
			ItemsSent:    res.ItemsSent,
			PrinterCount: res.PrinterCount,
			Success:      res.Success,
			Message:      res.Message,
		})
	}
	if m.audit != nil {
		rec := logging.Record{
			Timestamp: time.Now(),
			OrderID:   order.ID,
			OrderNo:   order.Number,
			Actor:     actorFrom(ctx),
			ItemsSent: res.ItemsSent,
			PerTarget: res.PerTarget,
			Success:   res.Success,
			Message:   res.Message,
		}
		if err := m.audit.Append(context.Background(), rec); err != nil {
			m.log.Errorf("audit append failed: %v", err)
		}
	}
}

// markLocal flips the in-memory sent flags so a repeated call on the same
// order detects zero new items even before the caller reloads it.
func markLocal(order *model.Order, ids []string) {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for i := range order.Items {
		if set[order.Items[i].ID] {
			order.Items[i].SentToKitchen = true
		}
	}
}
