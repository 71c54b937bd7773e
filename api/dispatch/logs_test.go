package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/platewire/platewire/core/dispatch/logging"
)

type memStore struct{ recs []logging.Record }

func (m *memStore) Append(ctx context.Context, r logging.Record) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memStore) Query(ctx context.Context, q logging.Query) ([]logging.Record, error) {
	var res []logging.Record
	for _, r := range m.recs {
		if q.OrderID != "" && r.OrderID != q.OrderID {
			continue
		}
		if q.Printer != "" {
			if _, ok := r.PerTarget[q.Printer]; !ok {
				continue
			}
		}
		res = append(res, r)
	}
	return res, nil
}

func (m *memStore) Close() error { return nil }

func TestLogHandler_AuthAndFilters(t *testing.T) {
	store := &memStore{}
	if err := store.Append(context.Background(), logging.Record{
		Timestamp: time.Now(),
		OrderID:   "o1",
		OrderNo:   "42",
		Actor:     "waiter",
		ItemsSent: 3,
		PerTarget: map[string]bool{"kitchen": true},
		Success:   true,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	h := NewLogHandler(store, "tok")

	req := httptest.NewRequest("GET", "/api/dispatch/logs?order_id=o1", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []logging.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 record")
	}
	// unauthorized
	req = httptest.NewRequest("GET", "/api/dispatch/logs", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestLogHandler_CSV(t *testing.T) {
	store := &memStore{}
	_ = store.Append(context.Background(), logging.Record{
		Timestamp: time.Now(),
		OrderID:   "o1",
		OrderNo:   "42",
		PerTarget: map[string]bool{"kitchen": true, "bar": false},
	})
	h := NewLogHandler(store, "")

	req := httptest.NewRequest("GET", "/api/dispatch/logs?format=csv", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "bar:failed kitchen") {
		t.Fatalf("unexpected csv body: %s", body)
	}
}
