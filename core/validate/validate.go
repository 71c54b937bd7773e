// Package validate implements the pre-flight dispatch-readiness check. The
// gate is purely advisory: it never mutates order state and may be called any
// number of times.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/platewire/platewire/core/assign"
	"github.com/platewire/platewire/core/model"
)

// Kind classifies a validation failure.
type Kind string

const (
	KindNone                 Kind = ""
	KindNoItems              Kind = "no_items"
	KindAllItemsSent         Kind = "all_items_sent"
	KindMissingAssignments   Kind = "missing_assignments"
	KindPrintersOffline      Kind = "printers_offline"
	KindNoPrintersFound      Kind = "no_printers_found"
	KindNoPrintersConfigured Kind = "no_printers_configured"
	KindConfigurationIssues  Kind = "configuration_issues"
	KindServiceNotReady      Kind = "service_not_ready"
)

// Result is the outcome of a validation run.
type Result struct {
	OK      bool
	Kind    Kind
	Message string
	// Details lists the offending item names or printer names depending on
	// the failure kind.
	Details []string
}

func failure(kind Kind, msg string, details ...string) Result {
	return Result{Kind: kind, Message: msg, Details: details}
}

func success(msg string) Result {
	return Result{OK: true, Message: msg}
}

// Prober checks whether a printer target is reachable right now. The TCP
// transport implements it with a short dial.
type Prober interface {
	Reachable(target model.PrinterTarget) bool
}

// Gate runs the dispatch-readiness checks.
type Gate struct {
	store    assign.Store
	resolver *assign.Resolver
	prober   Prober
}

// NewGate builds a Gate from the configuration store, the resolver and a
// reachability prober.
func NewGate(store assign.Store, resolver *assign.Resolver, prober Prober) *Gate {
	return &Gate{store: store, resolver: resolver, prober: prober}
}

// Validate runs the sequential checks and short-circuits on the first
// failure:
//
//  1. unsent items exist,
//  2. every unsent item resolves to at least one target,
//  3. every referenced target is reachable,
//  4. the configuration store is ready and has active printers.
func (g *Gate) Validate(order model.Order) Result {
	if g.store == nil || g.resolver == nil || !g.storeReady() {
		return failure(KindServiceNotReady, "printer configuration service is not ready")
	}
	if len(order.Items) == 0 {
		return failure(KindNoItems, fmt.Sprintf("order %s has no items", order.Number))
	}
	unsent := order.UnsentItems()
	if len(unsent) == 0 {
		return failure(KindAllItemsSent, fmt.Sprintf("all items of order %s were already sent to the kitchen", order.Number))
	}
	if len(g.store.ActiveTargets()) == 0 {
		return failure(KindNoPrintersConfigured, "no active printer targets are configured")
	}

	var unassigned []string
	referenced := make(map[string]model.PrinterTarget)
	for _, it := range unsent {
		ids := g.resolver.ResolveTargets(it.MenuItemID, it.CategoryID)
		if len(ids) == 0 {
			unassigned = append(unassigned, it.Name)
			continue
		}
		for _, id := range ids {
			if _, ok := referenced[id]; ok {
				continue
			}
			t, ok := g.store.TargetByID(id)
			if !ok {
				return failure(KindConfigurationIssues, fmt.Sprintf("assignment references unknown printer %q", id), id)
			}
			referenced[id] = t
		}
	}
	if len(unassigned) > 0 {
		return failure(KindMissingAssignments,
			fmt.Sprintf("no printer assigned for: %s", strings.Join(unassigned, ", ")),
			unassigned...)
	}
	if len(referenced) == 0 {
		return failure(KindNoPrintersFound, "no printers matched the unsent items")
	}

	var offline []string
	for _, t := range referenced {
		if !g.prober.Reachable(t) {
			offline = append(offline, t.Name)
		}
	}
	sort.Strings(offline)
	if len(offline) > 0 {
		return failure(KindPrintersOffline,
			fmt.Sprintf("printers offline: %s", strings.Join(offline, ", ")),
			offline...)
	}

	return success(fmt.Sprintf("%d items ready for %d printers", len(unsent), len(referenced)))
}

func (g *Gate) storeReady() bool {
	return g.store.Ready()
}
