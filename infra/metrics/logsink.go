package metrics

import (
	"github.com/platewire/platewire/core/logger"
	coremetrics "github.com/platewire/platewire/core/metrics"
)

// LogSink writes dispatch activity to the structured log. Useful on
// installations without an Influx backend, and alongside one through a
// MultiSink.
type LogSink struct {
	log logger.Logger
}

// NewLogSink creates a LogSink writing to log.
func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log}
}

// RecordTransmit logs each transmission attempt.
func (s *LogSink) RecordTransmit(recs []coremetrics.TransmitRecord) error {
	for _, r := range recs {
		s.log.Debugf("transmit order=%s printer=%s delivered=%t latency=%s",
			r.OrderID, r.PrinterID, r.Delivered, r.Latency)
	}
	return nil
}

// RecordDispatch logs one dispatch run summary.
func (s *LogSink) RecordDispatch(rec coremetrics.DispatchRecord) error {
	s.log.Infof("dispatch order=%s items=%d printers=%d success=%t",
		rec.OrderNo, rec.ItemsSent, rec.PrinterCount, rec.Success)
	return nil
}

// RecordQueueEvent logs retry-queue activity.
func (s *LogSink) RecordQueueEvent(rec coremetrics.QueueRecord) error {
	s.log.Debugf("queue %s job=%s printer=%s attempts=%d",
		rec.Action, rec.JobID, rec.PrinterID, rec.Attempts)
	return nil
}
