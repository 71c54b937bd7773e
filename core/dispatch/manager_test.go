package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/platewire/platewire/core/assign"
	"github.com/platewire/platewire/core/events"
	"github.com/platewire/platewire/core/model"
	"github.com/platewire/platewire/core/printerstatus"
	"github.com/platewire/platewire/core/validate"
	"github.com/platewire/platewire/infra/logger"
	"github.com/platewire/platewire/internal/eventbus"
)

type stubStore struct {
	targets     []model.PrinterTarget
	assignments []model.Assignment
}

func (s *stubStore) ActiveTargets() []model.PrinterTarget {
	var out []model.PrinterTarget
	for _, t := range s.targets {
		if t.Active {
			out = append(out, t)
		}
	}
	return out
}

func (s *stubStore) TargetByID(id string) (model.PrinterTarget, bool) {
	for _, t := range s.targets {
		if t.ID == id {
			return t, true
		}
	}
	return model.PrinterTarget{}, false
}

func (s *stubStore) Assignments() []model.Assignment { return s.assignments }
func (s *stubStore) Ready() bool                     { return true }

type fakeOrders struct {
	mu    sync.Mutex
	calls [][]string
	fail  error
}

func (f *fakeOrders) MarkSent(ctx context.Context, orderID string, itemIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.calls = append(f.calls, itemIDs)
	return nil
}

// fakeTransport fails sends for printers listed in fail and records every
// job in arrival order.
type fakeTransport struct {
	mu    sync.Mutex
	fail  map[string]error
	block time.Duration
	jobs  []model.DispatchJob
}

func (f *fakeTransport) Send(ctx context.Context, job model.DispatchJob) error {
	if f.block > 0 {
		select {
		case <-time.After(f.block):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	err := f.fail[job.PrinterID]
	f.mu.Unlock()
	return err
}

func (f *fakeTransport) sent() []model.DispatchJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.DispatchJob(nil), f.jobs...)
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []model.DispatchJob
}

func (f *fakeQueue) Enqueue(job model.DispatchJob) {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	f.mu.Unlock()
}

func (f *fakeQueue) entries() []model.DispatchJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.DispatchJob(nil), f.jobs...)
}

type okProber struct{}

func (okProber) Reachable(model.PrinterTarget) bool { return true }

func grillBarStore() *stubStore {
	return &stubStore{
		targets: []model.PrinterTarget{
			{ID: "grill", Name: "Grill", Host: "10.0.0.1", Active: true},
			{ID: "bar", Name: "Bar", Host: "10.0.0.2", Active: true},
		},
		assignments: []model.Assignment{
			{Level: model.LevelCategory, TargetID: "food", Printer: "grill", Active: true, Ordinal: 1},
			{Level: model.LevelCategory, TargetID: "drinks", Printer: "bar", Active: true, Ordinal: 2},
		},
	}
}

func newTestManager(t *testing.T, store *stubStore, transport Transport, queue RetryQueue, orders OrderStore, timeout time.Duration) *Manager {
	t.Helper()
	resolver := assign.NewResolver(store)
	gate := validate.NewGate(store, resolver, okProber{})
	m, err := NewManager(store, resolver, gate, orders, transport, queue, timeout, 0, logger.NopLogger{})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func testOrder(items ...model.OrderItem) model.Order {
	return model.Order{ID: "o1", Number: "42", PlacedAt: time.Now(), Items: items}
}

func foodItem(id, name string) model.OrderItem {
	return model.OrderItem{ID: id, MenuItemID: "m-" + id, CategoryID: "food", Name: name, Quantity: 1}
}

func drinkItem(id, name string) model.OrderItem {
	return model.OrderItem{ID: id, MenuItemID: "m-" + id, CategoryID: "drinks", Name: name, Quantity: 1}
}

func TestDispatch_HappyPath(t *testing.T) {
	tr := &fakeTransport{}
	q := &fakeQueue{}
	orders := &fakeOrders{}
	m := newTestManager(t, grillBarStore(), tr, q, orders, time.Second)

	o := testOrder(foodItem("a", "Burger"), drinkItem("b", "Cola"))
	res := m.Dispatch(context.Background(), &o)
	if !res.Success || res.ItemsSent != 2 || res.PrinterCount != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(tr.sent()) != 2 {
		t.Fatalf("expected 2 transmissions, got %d", len(tr.sent()))
	}
	if len(q.entries()) != 0 {
		t.Fatalf("nothing should be queued on success")
	}
	if len(orders.calls) != 1 || len(orders.calls[0]) != 2 {
		t.Fatalf("all unsent item ids must be committed once: %v", orders.calls)
	}
}

func TestDispatch_SecondRunFindsNothing(t *testing.T) {
	tr := &fakeTransport{}
	m := newTestManager(t, grillBarStore(), tr, &fakeQueue{}, &fakeOrders{}, time.Second)

	o := testOrder(foodItem("a", "Burger"))
	if res := m.Dispatch(context.Background(), &o); !res.Success {
		t.Fatalf("first run must succeed: %+v", res)
	}
	res := m.Dispatch(context.Background(), &o)
	if res.Success {
		t.Fatalf("second run must find no new items: %+v", res)
	}
	if !strings.Contains(res.Message, "no new items") {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if len(tr.sent()) != 1 {
		t.Fatalf("second run must not transmit: %d", len(tr.sent()))
	}
}

func TestDispatch_AppendedItemsOnly(t *testing.T) {
	tr := &fakeTransport{}
	m := newTestManager(t, grillBarStore(), tr, &fakeQueue{}, &fakeOrders{}, time.Second)

	o := testOrder(foodItem("a", "Burger"))
	m.Dispatch(context.Background(), &o)

	o.Items = append(o.Items, foodItem("b", "Steak"))
	res := m.Dispatch(context.Background(), &o)
	if !res.Success || res.ItemsSent != 1 {
		t.Fatalf("only the appended item dispatches: %+v", res)
	}
	jobs := tr.sent()
	last := jobs[len(jobs)-1]
	if len(last.ItemIDs) != 1 || last.ItemIDs[0] != "b" {
		t.Fatalf("second ticket must carry only the new item: %v", last.ItemIDs)
	}
	if strings.Contains(last.Ticket, "Burger") {
		t.Fatalf("already-sent items must not reappear on the ticket")
	}
}

func TestDispatch_FanOutCountsItemsOnce(t *testing.T) {
	store := grillBarStore()
	store.assignments = append(store.assignments,
		model.Assignment{Level: model.LevelItem, TargetID: "m-a", Printer: "grill", Active: true, Ordinal: 3},
		model.Assignment{Level: model.LevelItem, TargetID: "m-a", Printer: "bar", Active: true, Ordinal: 4},
	)
	tr := &fakeTransport{}
	m := newTestManager(t, store, tr, &fakeQueue{}, &fakeOrders{}, time.Second)

	o := testOrder(foodItem("a", "Nachos"))
	res := m.Dispatch(context.Background(), &o)
	if !res.Success {
		t.Fatalf("dispatch failed: %+v", res)
	}
	if res.ItemsSent != 1 {
		t.Fatalf("a fanned-out item counts once, got %d", res.ItemsSent)
	}
	if res.PrinterCount != 2 || len(tr.sent()) != 2 {
		t.Fatalf("both targets must receive a ticket: %+v", res)
	}
}

func TestDispatch_PartialFailure(t *testing.T) {
	tr := &fakeTransport{fail: map[string]error{"bar": errors.New("connection refused")}}
	q := &fakeQueue{}
	m := newTestManager(t, grillBarStore(), tr, q, &fakeOrders{}, time.Second)

	o := testOrder(foodItem("a", "Burger"), drinkItem("b", "Cola"))
	res := m.Dispatch(context.Background(), &o)
	if !res.Success {
		t.Fatalf("one delivered target means success: %+v", res)
	}
	if res.PrinterCount != 1 {
		t.Fatalf("only the reached printer counts: %+v", res)
	}
	if !res.PerTarget["grill"] || res.PerTarget["bar"] {
		t.Fatalf("per-target outcomes wrong: %v", res.PerTarget)
	}
	if !strings.Contains(res.Message, "partially") {
		t.Fatalf("message must flag the partial outcome: %q", res.Message)
	}
	entries := q.entries()
	if len(entries) != 1 || entries[0].PrinterID != "bar" {
		t.Fatalf("exactly the failed job must be queued: %+v", entries)
	}
	if entries[0].Attempts != 1 {
		t.Fatalf("queued job carries the spent attempt: %d", entries[0].Attempts)
	}
	if len(entries[0].ItemIDs) != 1 || entries[0].ItemIDs[0] != "b" {
		t.Fatalf("queued job must carry only the bar items: %v", entries[0].ItemIDs)
	}
}

func TestDispatch_TotalFailureStillMarksSent(t *testing.T) {
	tr := &fakeTransport{fail: map[string]error{
		"grill": errors.New("down"),
		"bar":   errors.New("down"),
	}}
	q := &fakeQueue{}
	orders := &fakeOrders{}
	m := newTestManager(t, grillBarStore(), tr, q, orders, time.Second)

	o := testOrder(foodItem("a", "Burger"), drinkItem("b", "Cola"))
	res := m.Dispatch(context.Background(), &o)
	if res.Success || res.PrinterCount != 0 {
		t.Fatalf("no printer reached means failure: %+v", res)
	}
	if len(orders.calls) != 1 {
		t.Fatalf("items are committed before transmission regardless of outcome")
	}
	if len(q.entries()) != 2 {
		t.Fatalf("both failed jobs must be queued: %d", len(q.entries()))
	}
	if res2 := m.Dispatch(context.Background(), &o); res2.Success {
		t.Fatalf("re-invoking dispatch must not re-send; recovery is the queue's job")
	}
}

func TestDispatch_MarkSentFailureAborts(t *testing.T) {
	tr := &fakeTransport{}
	orders := &fakeOrders{fail: errors.New("db down")}
	m := newTestManager(t, grillBarStore(), tr, &fakeQueue{}, orders, time.Second)

	o := testOrder(foodItem("a", "Burger"))
	res := m.Dispatch(context.Background(), &o)
	if res.Success {
		t.Fatalf("commit failure must fail the run: %+v", res)
	}
	if len(tr.sent()) != 0 {
		t.Fatalf("nothing may transmit when the commit fails")
	}
}

func TestDispatch_TransmitTimeout(t *testing.T) {
	tr := &fakeTransport{block: 500 * time.Millisecond}
	q := &fakeQueue{}
	m := newTestManager(t, grillBarStore(), tr, q, &fakeOrders{}, 50*time.Millisecond)

	o := testOrder(foodItem("a", "Burger"))
	start := time.Now()
	res := m.Dispatch(context.Background(), &o)
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Fatalf("timeout did not bound the attempt: %v", elapsed)
	}
	if res.Success {
		t.Fatalf("timed-out transmission must fail: %+v", res)
	}
	entries := q.entries()
	if len(entries) != 1 {
		t.Fatalf("timed-out job must be queued")
	}
}

func TestDispatch_InflightGuard(t *testing.T) {
	tr := &fakeTransport{block: 200 * time.Millisecond}
	m := newTestManager(t, grillBarStore(), tr, &fakeQueue{}, &fakeOrders{}, time.Second)

	o1 := testOrder(foodItem("a", "Burger"))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Dispatch(context.Background(), &o1)
	}()
	time.Sleep(50 * time.Millisecond)

	dup := testOrder(foodItem("a", "Burger"))
	res := m.Dispatch(context.Background(), &dup)
	if res.Success || !strings.Contains(res.Message, "already in progress") {
		t.Fatalf("concurrent dispatch of the same order must be rejected: %+v", res)
	}

	other := testOrder(drinkItem("b", "Cola"))
	other.ID = "o2"
	if res := m.Dispatch(context.Background(), &other); !res.Success {
		t.Fatalf("distinct orders dispatch independently: %+v", res)
	}
	wg.Wait()
}

func TestDispatch_ValidationRejectionTouchesNothing(t *testing.T) {
	store := grillBarStore()
	tr := &fakeTransport{}
	orders := &fakeOrders{}
	m := newTestManager(t, store, tr, &fakeQueue{}, orders, time.Second)

	o := testOrder(
		foodItem("a", "Burger"),
		model.OrderItem{ID: "c", MenuItemID: "m-c", CategoryID: "seasonal", Name: "Special", Quantity: 1},
	)
	res := m.Dispatch(context.Background(), &o)
	if res.Success {
		t.Fatalf("order with an unassigned item must be rejected whole: %+v", res)
	}
	if len(orders.calls) != 0 || len(tr.sent()) != 0 {
		t.Fatalf("rejection must not commit or transmit")
	}
	for _, it := range o.Items {
		if it.SentToKitchen {
			t.Fatalf("rejection must not flip sent flags")
		}
	}
}

func TestDispatch_RecordsPrinterStatus(t *testing.T) {
	tr := &fakeTransport{fail: map[string]error{"bar": errors.New("refused")}}
	m := newTestManager(t, grillBarStore(), tr, &fakeQueue{}, &fakeOrders{}, time.Second)
	status := printerstatus.NewMemoryStore()
	m.SetStatusStore(status)

	o := testOrder(foodItem("a", "Burger"), drinkItem("b", "Cola"))
	m.Dispatch(context.Background(), &o)

	if st, _ := status.Get("grill"); st.Successes != 1 {
		t.Fatalf("grill success not recorded: %#v", st)
	}
	if st, _ := status.Get("bar"); st.Failures != 1 || st.LastError == "" {
		t.Fatalf("bar failure not recorded: %#v", st)
	}
}

func TestDispatch_PublishesEvents(t *testing.T) {
	tr := &fakeTransport{}
	m := newTestManager(t, grillBarStore(), tr, &fakeQueue{}, &fakeOrders{}, time.Second)
	bus := eventbus.New()
	sub := bus.Subscribe()
	m.SetBus(bus)

	o := testOrder(foodItem("a", "Burger"))
	m.Dispatch(context.Background(), &o)

	var sawTransmit, sawDispatch bool
	for i := 0; i < 2; i++ {
		select {
		case ev := <-sub:
			switch e := ev.(type) {
			case events.TransmitEvent:
				if !e.Delivered || e.PrinterID != "grill" {
					t.Fatalf("unexpected transmit event: %+v", e)
				}
				sawTransmit = true
			case events.DispatchEvent:
				if !e.Success || e.OrderNo != "42" {
					t.Fatalf("unexpected dispatch event: %+v", e)
				}
				sawDispatch = true
			}
		case <-time.After(time.Second):
			t.Fatalf("expected bus events")
		}
	}
	if !sawTransmit || !sawDispatch {
		t.Fatalf("missing events: transmit=%v dispatch=%v", sawTransmit, sawDispatch)
	}
}

type panicOrders struct{}

func (panicOrders) MarkSent(ctx context.Context, orderID string, itemIDs []string) error {
	panic("boom")
}

func TestDispatch_PanicSurfacesAsFailure(t *testing.T) {
	m := newTestManager(t, grillBarStore(), &fakeTransport{}, &fakeQueue{}, panicOrders{}, time.Second)
	o := testOrder(foodItem("a", "Burger"))
	res := m.Dispatch(context.Background(), &o)
	if res.Success || !strings.Contains(res.Message, "internal error") {
		t.Fatalf("panic must surface as a failed result: %+v", res)
	}
	// The in-flight guard is released on the way out.
	res = m.Dispatch(context.Background(), &o)
	if strings.Contains(res.Message, "already in progress") {
		t.Fatalf("guard leaked after panic: %+v", res)
	}
}
