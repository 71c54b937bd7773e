// Package ticket renders kitchen tickets as plain text. The layout is a
// stable contract: operators tape these next to the pass, and the relay
// replays them verbatim, so the output for a given order must never change
// between releases.
package ticket

import (
	"fmt"
	"strings"

	"github.com/platewire/platewire/core/model"
)

const lineWidth = 32

var divider = strings.Repeat("-", lineWidth)

// Render produces the ticket for the given items of an order. Items are
// rendered in the order given, which dispatch keeps aligned with the order's
// item sequence.
func Render(order model.Order, items []model.OrderItem) string {
	var b strings.Builder

	b.WriteString(divider)
	b.WriteByte('\n')
	if order.Urgent {
		b.WriteString(center("*** URGENT ***"))
		b.WriteByte('\n')
	}
	b.WriteString(center("ORDER #" + order.Number))
	b.WriteByte('\n')
	b.WriteString(order.PlacedAt.Format("02/01/2006 15:04"))
	b.WriteByte('\n')
	if order.Table != "" {
		fmt.Fprintf(&b, "Table: %s\n", order.Table)
	}
	if order.Customer != "" {
		fmt.Fprintf(&b, "Customer: %s\n", order.Customer)
	}
	b.WriteString(divider)
	b.WriteByte('\n')

	for _, it := range items {
		fmt.Fprintf(&b, "%dx %s\n", it.Quantity, it.Name)
		if it.Variant != "" {
			fmt.Fprintf(&b, "   %s\n", it.Variant)
		}
		for _, m := range it.Modifiers {
			fmt.Fprintf(&b, "   + %s\n", m)
		}
		if it.Instructions != "" {
			fmt.Fprintf(&b, "   ! %s\n", it.Instructions)
		}
	}

	b.WriteString(divider)
	b.WriteByte('\n')
	if order.KitchenMsg != "" {
		b.WriteString(order.KitchenMsg)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%d item(s)\n", len(items))
	b.WriteString(divider)
	b.WriteByte('\n')
	return b.String()
}

func center(s string) string {
	if len(s) >= lineWidth {
		return s
	}
	pad := (lineWidth - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}
