// Package assign resolves menu items to printer targets. Item-level
// assignments win over category-level ones; all active assignments at the
// winning level are returned so one item can fan out to several printers.
package assign

import (
	"sort"

	"github.com/platewire/platewire/core/model"
)

// Store is the read-only view of the external configuration store.
type Store interface {
	ActiveTargets() []model.PrinterTarget
	TargetByID(id string) (model.PrinterTarget, bool)
	Assignments() []model.Assignment
	Ready() bool
}

// Resolver maps menu items (and their category as fallback) to printer
// target ids.
type Resolver struct {
	store Store
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// matches returns the active assignments for the given level and id, sorted
// by priority descending with the assignment ordinal as a stable tie-break.
func (r *Resolver) matches(level model.AssignmentLevel, id string) []model.Assignment {
	if id == "" {
		return nil
	}
	var out []model.Assignment
	for _, a := range r.store.Assignments() {
		if a.Active && a.Level == level && a.TargetID == id {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Ordinal < out[j].Ordinal
	})
	return out
}

// ResolveTargets returns the ordered printer target ids for a menu item.
// Item-level assignments are consulted first; only when none exist does the
// category fallback apply. Inactive printers are skipped and duplicates
// removed while preserving order.
func (r *Resolver) ResolveTargets(menuItemID, categoryID string) []string {
	assignments := r.matches(model.LevelItem, menuItemID)
	if len(assignments) == 0 {
		assignments = r.matches(model.LevelCategory, categoryID)
	}
	var ids []string
	seen := make(map[string]bool)
	for _, a := range assignments {
		if seen[a.Printer] {
			continue
		}
		t, ok := r.store.TargetByID(a.Printer)
		if !ok || !t.Active {
			continue
		}
		seen[a.Printer] = true
		ids = append(ids, a.Printer)
	}
	return ids
}

// ResolveSingleTarget returns the highest-priority target for a menu item.
// Equal priorities resolve to the lowest ordinal, so the answer is stable
// across calls.
func (r *Resolver) ResolveSingleTarget(menuItemID, categoryID string) (string, bool) {
	ids := r.ResolveTargets(menuItemID, categoryID)
	if len(ids) == 0 {
		return "", false
	}
	return ids[0], true
}
