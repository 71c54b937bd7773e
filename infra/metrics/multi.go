package metrics

import coremetrics "github.com/platewire/platewire/core/metrics"

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTransmit forwards the records to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordTransmit(recs []coremetrics.TransmitRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordTransmit(recs); err != nil {
			return err
		}
	}
	return nil
}

// RecordDispatch forwards run summaries to sinks that support them.
func (m *MultiSink) RecordDispatch(rec coremetrics.DispatchRecord) error {
	for _, s := range m.Sinks {
		if dr, ok := s.(coremetrics.DispatchRecorder); ok {
			if err := dr.RecordDispatch(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordQueueEvent forwards queue activity to sinks that support it.
func (m *MultiSink) RecordQueueEvent(rec coremetrics.QueueRecord) error {
	for _, s := range m.Sinks {
		if qr, ok := s.(coremetrics.QueueRecorder); ok {
			if err := qr.RecordQueueEvent(rec); err != nil {
				return err
			}
		}
	}
	return nil
}
