// Package events forwards dispatch activity to NATS so kitchen displays and
// other downstream consumers can react without polling the dispatch service.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	coreevents "github.com/platewire/platewire/core/events"
	"github.com/platewire/platewire/core/logger"
	"github.com/platewire/platewire/internal/eventbus"
)

// Subjects published by the bridge.
const (
	SubjectDispatch = "kitchen.dispatch"
	SubjectTransmit = "kitchen.dispatch.transmit"
	SubjectQueue    = "kitchen.dispatch.retry"
)

// NATSPublisher forwards bus events to NATS subjects as JSON.
type NATSPublisher struct {
	conn *nats.Conn
	bus  eventbus.EventBus
	log  logger.Logger
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url string, bus eventbus.EventBus, log logger.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, bus: bus, log: log}, nil
}

type dispatchMsg struct {
	EventType    string    `json:"event_type"`
	OccurredAt   time.Time `json:"occurred_at"`
	OrderID      string    `json:"order_id"`
	OrderNo      string    `json:"order_no,omitempty"`
	PrinterID    string    `json:"printer_id,omitempty"`
	JobID        string    `json:"job_id,omitempty"`
	ItemsSent    int       `json:"items_sent,omitempty"`
	PrinterCount int       `json:"printer_count,omitempty"`
	Success      bool      `json:"success"`
	Message      string    `json:"message,omitempty"`
	Attempts     int       `json:"attempts,omitempty"`
}

// Run consumes bus events until the context is cancelled or the bus closes.
func (p *NATSPublisher) Run(ctx context.Context) {
	sub := p.bus.Subscribe()
	defer p.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			p.forward(ev)
		}
	}
}

func (p *NATSPublisher) forward(ev eventbus.Event) {
	var (
		subject string
		msg     dispatchMsg
	)
	msg.OccurredAt = time.Now()
	switch e := ev.(type) {
	case coreevents.DispatchEvent:
		subject = SubjectDispatch
		msg.EventType = "kitchen.dispatch.completed"
		msg.OrderID = e.OrderID
		msg.OrderNo = e.OrderNo
		msg.ItemsSent = e.ItemsSent
		msg.PrinterCount = e.PrinterCount
		msg.Success = e.Success
		msg.Message = e.Message
	case coreevents.TransmitEvent:
		subject = SubjectTransmit
		msg.EventType = "kitchen.dispatch.transmitted"
		msg.OrderID = e.OrderID
		msg.PrinterID = e.PrinterID
		msg.JobID = e.JobID
		msg.Success = e.Delivered
	case coreevents.QueueEvent:
		subject = SubjectQueue
		msg.EventType = "kitchen.dispatch.retry." + e.Action
		msg.JobID = e.JobID
		msg.PrinterID = e.PrinterID
		msg.Attempts = e.Attempts
	default:
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		p.log.Errorf("marshal event: %v", err)
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Errorf("publish %s: %v", subject, err)
	}
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}
