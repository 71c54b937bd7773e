package printerstatus

import (
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_RecordSuccess(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.RecordSuccess("grill", now)
	s.RecordSuccess("grill", now.Add(time.Second))
	st, ok := s.Get("grill")
	if !ok || st.Successes != 2 {
		t.Fatalf("success count wrong: %#v", st)
	}
	if !st.LastSuccess.Equal(now.Add(time.Second)) {
		t.Fatalf("last success not updated: %#v", st)
	}
}

func TestMemoryStore_RecordFailure(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.RecordFailure("bar", errors.New("dial refused"), now)
	st, ok := s.Get("bar")
	if !ok || st.Failures != 1 || st.LastError != "dial refused" {
		t.Fatalf("failure not recorded: %#v", st)
	}
	if !st.LastErrorAt.Equal(now) {
		t.Fatalf("failure timestamp wrong: %#v", st)
	}
}

func TestMemoryStore_ListSorted(t *testing.T) {
	s := NewMemoryStore()
	s.RecordSuccess("z", time.Now())
	s.RecordSuccess("a", time.Now())
	s.RecordSuccess("m", time.Now())
	out := s.List()
	if len(out) != 3 || out[0].PrinterID != "a" || out[1].PrinterID != "m" || out[2].PrinterID != "z" {
		t.Fatalf("list must be sorted by id: %#v", out)
	}
}

func TestMemoryStore_GetUnknown(t *testing.T) {
	s := NewMemoryStore()
	if _, ok := s.Get("nope"); ok {
		t.Fatalf("unknown printer must not be found")
	}
}
