package model

import (
	"fmt"
	"time"
)

// TransportKind selects how rendered tickets reach a target.
type TransportKind string

const (
	// TransportTCP sends raw ticket bytes to a thermal printer socket,
	// conventionally port 9100.
	TransportTCP TransportKind = "tcp"
	// TransportRelay routes the job through the cloud relay for printers
	// that are not directly reachable.
	TransportRelay TransportKind = "relay"
)

// PrinterTarget is a configured print destination. Targets are owned by the
// configuration store; this module only reads them.
type PrinterTarget struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Host      string        `json:"host"`
	Port      int           `json:"port"`
	Active    bool          `json:"active"`
	Priority  int           `json:"priority"`
	Transport TransportKind `json:"transport,omitempty"`
}

// Addr returns the host:port dial address of the target.
func (t PrinterTarget) Addr() string {
	port := t.Port
	if port == 0 {
		port = 9100
	}
	return fmt.Sprintf("%s:%d", t.Host, port)
}

// Validate checks that the target configuration is sound.
func (t PrinterTarget) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("printer target id is required")
	}
	if t.Host == "" {
		return fmt.Errorf("printer target %s: host is required", t.ID)
	}
	return nil
}

// AssignmentLevel distinguishes item-level rules from category fallbacks.
type AssignmentLevel string

const (
	LevelItem     AssignmentLevel = "item"
	LevelCategory AssignmentLevel = "category"
)

// Assignment maps a menu item or category to a printer target. Several
// assignments may reference the same item; dispatch fans the item out to every
// matching target. Ordinal is a stable secondary sort key so equal priorities
// resolve deterministically.
type Assignment struct {
	Level    AssignmentLevel `json:"level"`
	TargetID string          `json:"target_id"` // menu item or category id
	Printer  string          `json:"printer"`   // printer target id
	Priority int             `json:"priority"`
	Active   bool            `json:"active"`
	Ordinal  int             `json:"ordinal"`
}

// DispatchJob is one unit of transmission: a single printer target plus the
// subset of items routed to it and the rendered ticket. Jobs are ephemeral
// unless transmission fails, in which case the retry queue preserves the full
// payload.
type DispatchJob struct {
	ID        string        `json:"id"`
	OrderID   string        `json:"order_id"`
	OrderNo   string        `json:"order_no"`
	PrinterID string        `json:"printer_id"`
	Addr      string        `json:"addr"`
	Transport TransportKind `json:"transport"`
	ItemIDs   []string      `json:"item_ids"`
	Ticket    string        `json:"ticket"`
	Attempts  int           `json:"attempts"`
	CreatedAt time.Time     `json:"created_at"`
}

// DispatchResult is returned to the caller after a dispatch run. Success means
// at least one target received the ticket; PerTarget carries the per-printer
// outcome for operator display.
type DispatchResult struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	ItemsSent    int             `json:"items_sent"`
	PrinterCount int             `json:"printer_count"`
	PerTarget    map[string]bool `json:"per_target"`
}
