package assign

import "github.com/platewire/platewire/core/model"

// AutoAssign distributes unassigned categories round-robin across the active
// printer targets. It is a bootstrap convenience for fresh installations, not
// a correctness path: callers still own persisting the returned mapping to
// the configuration store.
func (r *Resolver) AutoAssign(categories []string) map[string]string {
	targets := r.store.ActiveTargets()
	if len(targets) == 0 {
		return nil
	}
	assigned := make(map[string]bool)
	for _, a := range r.store.Assignments() {
		if a.Active && a.Level == model.LevelCategory {
			assigned[a.TargetID] = true
		}
	}
	out := make(map[string]string)
	i := 0
	for _, c := range categories {
		if assigned[c] {
			continue
		}
		out[c] = targets[i%len(targets)].ID
		i++
	}
	return out
}
