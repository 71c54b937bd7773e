package dispatch

import (
	"context"
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	if k := classify(context.DeadlineExceeded); k != FailTimeout {
		t.Fatalf("deadline must classify as timeout, got %s", k)
	}
	if k := classify(errors.New("connection refused")); k != FailNetwork {
		t.Fatalf("plain errors classify as network, got %s", k)
	}
	wrapped := NewTransmitError(FailStatus, errors.New("relay said no"))
	if k := classify(wrapped); k != FailStatus {
		t.Fatalf("transmit errors keep their kind, got %s", k)
	}
}

func TestTransmitError_Unwrap(t *testing.T) {
	inner := errors.New("dial tcp: refused")
	te := NewTransmitError(FailNetwork, inner)
	if !errors.Is(te, inner) {
		t.Fatalf("wrapped error must be reachable via errors.Is")
	}
	var out *TransmitError
	if !errors.As(error(te), &out) || out.Kind != FailNetwork {
		t.Fatalf("errors.As must recover the TransmitError")
	}
}
