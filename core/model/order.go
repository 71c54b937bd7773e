package model

import "time"

// Order represents a guest order as handed over by the order-management
// service. The dispatch core never creates or completes orders; it only
// transitions item send state.
type Order struct {
	ID         string
	Number     string
	Table      string
	Customer   string
	Urgent     bool
	Items      []OrderItem
	PlacedAt   time.Time
	KitchenMsg string // free-form note printed on every ticket
}

// OrderItem is a single line of an order. SentToKitchen is the commit flag:
// once true it never flips back to false inside this module. Resetting it is
// an administrative action performed by the order-management service.
type OrderItem struct {
	ID            string
	MenuItemID    string
	CategoryID    string
	Name          string
	Quantity      int
	Variant       string
	Modifiers     []string
	Instructions  string
	SentToKitchen bool
}

// UnsentItems returns the items that have not been committed to the kitchen.
func (o Order) UnsentItems() []OrderItem {
	var out []OrderItem
	for _, it := range o.Items {
		if !it.SentToKitchen {
			out = append(out, it)
		}
	}
	return out
}
