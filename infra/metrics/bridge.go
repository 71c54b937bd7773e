package metrics

import (
	"context"
	"time"

	"github.com/platewire/platewire/core/events"
	"github.com/platewire/platewire/core/logger"
	coremetrics "github.com/platewire/platewire/core/metrics"
	"github.com/platewire/platewire/internal/eventbus"
)

// Bridge subscribes to the event bus and forwards dispatch activity to a
// metrics sink. It keeps sink latency off the dispatch path.
type Bridge struct {
	bus  eventbus.EventBus
	sink coremetrics.MetricsSink
	log  logger.Logger
}

// NewBridge creates a Bridge between bus and sink.
func NewBridge(bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger) *Bridge {
	return &Bridge{bus: bus, sink: sink, log: log}
}

// Run consumes events until the context is cancelled or the bus closes.
func (b *Bridge) Run(ctx context.Context) {
	sub := b.bus.Subscribe()
	defer b.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			b.record(ev)
		}
	}
}

func (b *Bridge) record(ev eventbus.Event) {
	var err error
	switch e := ev.(type) {
	case events.TransmitEvent:
		err = b.sink.RecordTransmit([]coremetrics.TransmitRecord{{
			OrderID:   e.OrderID,
			PrinterID: e.PrinterID,
			JobID:     e.JobID,
			Delivered: e.Delivered,
			Latency:   e.Latency,
			Time:      time.Now(),
		}})
	case events.DispatchEvent:
		if dr, ok := b.sink.(coremetrics.DispatchRecorder); ok {
			err = dr.RecordDispatch(coremetrics.DispatchRecord{
				OrderID:      e.OrderID,
				OrderNo:      e.OrderNo,
				ItemsSent:    e.ItemsSent,
				PrinterCount: e.PrinterCount,
				Success:      e.Success,
				Time:         time.Now(),
			})
		}
	case events.QueueEvent:
		if qr, ok := b.sink.(coremetrics.QueueRecorder); ok {
			err = qr.RecordQueueEvent(coremetrics.QueueRecord{
				JobID:     e.JobID,
				PrinterID: e.PrinterID,
				Action:    e.Action,
				Attempts:  e.Attempts,
				Time:      time.Now(),
			})
		}
	}
	if err != nil {
		b.log.Errorf("metrics sink error: %v", err)
	}
}
