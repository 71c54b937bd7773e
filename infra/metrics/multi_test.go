package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	coremetrics "github.com/platewire/platewire/core/metrics"
)

type recordingSink struct {
	transmits  int
	dispatches int
	queues     int
	err        error
}

func (s *recordingSink) RecordTransmit(recs []coremetrics.TransmitRecord) error {
	s.transmits += len(recs)
	return s.err
}

func (s *recordingSink) RecordDispatch(coremetrics.DispatchRecord) error {
	s.dispatches++
	return s.err
}

func (s *recordingSink) RecordQueueEvent(coremetrics.QueueRecord) error {
	s.queues++
	return s.err
}

// transmitOnlySink implements only the base interface.
type transmitOnlySink struct {
	transmits int
}

func (s *transmitOnlySink) RecordTransmit(recs []coremetrics.TransmitRecord) error {
	s.transmits += len(recs)
	return nil
}

func TestMultiSink_FansOutToAllSinks(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	m := NewMultiSink(a, b)

	recs := []coremetrics.TransmitRecord{
		{OrderID: "o1", PrinterID: "grill", Delivered: true, Latency: 12 * time.Millisecond},
		{OrderID: "o1", PrinterID: "bar", Delivered: false},
	}
	require.NoError(t, m.RecordTransmit(recs))
	require.NoError(t, m.RecordDispatch(coremetrics.DispatchRecord{OrderID: "o1", ItemsSent: 2}))
	require.NoError(t, m.RecordQueueEvent(coremetrics.QueueRecord{JobID: "j1", Action: "enqueued"}))

	for _, s := range []*recordingSink{a, b} {
		require.Equal(t, 2, s.transmits)
		require.Equal(t, 1, s.dispatches)
		require.Equal(t, 1, s.queues)
	}
}

func TestMultiSink_SkipsOptionalInterfaces(t *testing.T) {
	base := &transmitOnlySink{}
	full := &recordingSink{}
	m := NewMultiSink(base, full)

	require.NoError(t, m.RecordDispatch(coremetrics.DispatchRecord{OrderID: "o1"}))
	require.NoError(t, m.RecordQueueEvent(coremetrics.QueueRecord{JobID: "j1"}))
	require.NoError(t, m.RecordTransmit([]coremetrics.TransmitRecord{{OrderID: "o1"}}))

	require.Equal(t, 1, base.transmits)
	require.Equal(t, 1, full.dispatches)
	require.Equal(t, 1, full.queues)
}

func TestMultiSink_ReturnsFirstError(t *testing.T) {
	boom := errors.New("sink down")
	a := &recordingSink{err: boom}
	b := &recordingSink{}
	m := NewMultiSink(a, b)

	err := m.RecordTransmit([]coremetrics.TransmitRecord{{OrderID: "o1"}})
	require.ErrorIs(t, err, boom)
	// The failing sink short-circuits the fan-out.
	require.Equal(t, 0, b.transmits)
}
