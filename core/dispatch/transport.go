package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/platewire/platewire/core/model"
)

// Transport delivers one rendered ticket to one destination in a single
// attempt. Retries are owned by the orchestrator and the retry queue, never
// by the transport itself.
type Transport interface {
	Send(ctx context.Context, job model.DispatchJob) error
}

// FailureKind classifies a transmission failure.
type FailureKind string

const (
	FailTimeout FailureKind = "timeout"
	FailNetwork FailureKind = "network"
	FailStatus  FailureKind = "status"
)

// TransmitError wraps a transport failure with its classification.
type TransmitError struct {
	Kind FailureKind
	Err  error
}

func (e *TransmitError) Error() string {
	return fmt.Sprintf("transmit %s: %v", e.Kind, e.Err)
}

func (e *TransmitError) Unwrap() error { return e.Err }

// NewTransmitError builds a TransmitError of the given kind.
func NewTransmitError(kind FailureKind, err error) *TransmitError {
	return &TransmitError{Kind: kind, Err: err}
}

// classify maps an error from a transport call to a FailureKind. Context
// deadline expiry counts as a timeout regardless of what the transport
// returned.
func classify(err error) FailureKind {
	var te *TransmitError
	if errors.As(err, &te) {
		return te.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailTimeout
	}
	return FailNetwork
}
