// Package printerstatus tracks per-printer operational statistics: how many
// transmissions succeeded or failed and when the last ticket went through.
package printerstatus

import (
	"sort"
	"sync"
	"time"
)

// Status captures the current known state of one printer target.
type Status struct {
	PrinterID   string    `json:"printer_id"`
	Name        string    `json:"name,omitempty"`
	Successes   int64     `json:"successes"`
	Failures    int64     `json:"failures"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitempty"`
}

// Store accumulates transmission outcomes per printer.
type Store interface {
	RecordSuccess(id string, when time.Time)
	RecordFailure(id string, err error, when time.Time)
	Get(id string) (Status, bool)
	List() []Status
}

// MemoryStore is the default in-process Store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Status
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Status{}}
}

func (s *MemoryStore) RecordSuccess(id string, when time.Time) {
	s.mu.Lock()
	st := s.data[id]
	st.PrinterID = id
	st.Successes++
	st.LastSuccess = when
	s.data[id] = st
	s.mu.Unlock()
}

func (s *MemoryStore) RecordFailure(id string, err error, when time.Time) {
	s.mu.Lock()
	st := s.data[id]
	st.PrinterID = id
	st.Failures++
	if err != nil {
		st.LastError = err.Error()
	}
	st.LastErrorAt = when
	s.data[id] = st
	s.mu.Unlock()
}

func (s *MemoryStore) Get(id string) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data[id]
	return st, ok
}

func (s *MemoryStore) List() []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Status, 0, len(s.data))
	for _, st := range s.data {
		res = append(res, st)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].PrinterID < res[j].PrinterID })
	return res
}
