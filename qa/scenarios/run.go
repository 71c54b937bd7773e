package scenarios

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/platewire/platewire/core/assign"
	"github.com/platewire/platewire/core/dispatch"
	"github.com/platewire/platewire/core/model"
	"github.com/platewire/platewire/core/queue"
	"github.com/platewire/platewire/core/validate"
	"github.com/platewire/platewire/infra/logger"
)

type memStore struct {
	targets     map[string]model.PrinterTarget
	order       []string
	assignments []model.Assignment
}

func newMemStore(sc *Scenario) *memStore {
	s := &memStore{targets: map[string]model.PrinterTarget{}}
	for _, p := range sc.Printers {
		t := p.ToModel()
		s.targets[t.ID] = t
		s.order = append(s.order, t.ID)
	}
	for i, a := range sc.Assignments {
		s.assignments = append(s.assignments, a.ToModel(i+1))
	}
	return s
}

func (s *memStore) ActiveTargets() []model.PrinterTarget {
	var out []model.PrinterTarget
	for _, id := range s.order {
		if t := s.targets[id]; t.Active {
			out = append(out, t)
		}
	}
	return out
}

func (s *memStore) TargetByID(id string) (model.PrinterTarget, bool) {
	t, ok := s.targets[id]
	return t, ok
}

func (s *memStore) Assignments() []model.Assignment { return s.assignments }

func (s *memStore) Ready() bool { return true }

// scenarioTransport fails transmissions to the listed printers. The
// validation prober stays green so the failure is hit after items are marked
// sent, the way a printer dying mid-dispatch would.
type scenarioTransport struct {
	fail map[string]bool
}

func (tr *scenarioTransport) Send(ctx context.Context, job model.DispatchJob) error {
	if tr.fail[job.PrinterID] {
		return fmt.Errorf("printer %s refused the connection", job.PrinterID)
	}
	return nil
}

func (tr *scenarioTransport) Reachable(model.PrinterTarget) bool { return true }

type nopOrders struct{}

func (nopOrders) MarkSent(context.Context, string, []string) error { return nil }

func RunScenario(t *testing.T, sc *Scenario) {
	store := newMemStore(sc)
	resolver := assign.NewResolver(store)
	tr := &scenarioTransport{fail: map[string]bool{}}
	for _, id := range sc.OfflinePrinters {
		tr.fail[id] = true
	}
	gate := validate.NewGate(store, resolver, tr)
	q := queue.New(queue.Config{Interval: time.Hour}, tr, logger.NopLogger{})

	mgr, err := dispatch.NewManager(store, resolver, gate, nopOrders{}, tr, q,
		time.Second, 0, logger.NopLogger{})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	order := sc.Order.ToModel()
	res := mgr.Dispatch(context.Background(), &order)

	if res.Success != sc.Expected.Success {
		t.Errorf("scenario %s: expected success=%v, got %v (%s)", sc.Name, sc.Expected.Success, res.Success, res.Message)
	}
	if res.ItemsSent != sc.Expected.ItemsSent {
		t.Errorf("scenario %s: expected %d items sent, got %d", sc.Name, sc.Expected.ItemsSent, res.ItemsSent)
	}
	if res.PrinterCount != sc.Expected.PrinterCount {
		t.Errorf("scenario %s: expected %d printers reached, got %d", sc.Name, sc.Expected.PrinterCount, res.PrinterCount)
	}
	if got := len(q.Pending()); got != sc.Expected.Queued {
		t.Errorf("scenario %s: expected %d queued jobs, got %d", sc.Name, sc.Expected.Queued, got)
	}
}
