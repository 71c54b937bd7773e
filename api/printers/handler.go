// Package printers exposes per-printer operational state over HTTP for
// operator dashboards.
package printers

import (
	"encoding/json"
	"net/http"

	"github.com/platewire/platewire/core/printerstatus"
	"github.com/platewire/platewire/core/queue"
)

// NewStatusHandler returns an HTTP handler exposing printer statistics via
// GET /api/printers/status. When q is non-nil the response includes the
// retry-queue and dead-letter depths so an operator can see stuck jobs next
// to the printer that rejects them.
func NewStatusHandler(store printerstatus.Store, q *queue.Queue) http.Handler {
	type response struct {
		Printers    []printerstatus.Status `json:"printers"`
		Pending     int                    `json:"pending,omitempty"`
		DeadLetters int                    `json:"dead_letters,omitempty"`
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		resp := response{Printers: store.List()}
		if q != nil {
			resp.Pending = len(q.Pending())
			resp.DeadLetters = len(q.DeadLetters())
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// NewReviveHandler returns an HTTP handler moving dead-lettered jobs back to
// the pending queue via POST /api/queue/revive. This is the explicit
// operator action required after a job exceeds its attempt cap.
func NewReviveHandler(q *queue.Queue) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		n := q.Revive()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int{"revived": n})
	})
}
