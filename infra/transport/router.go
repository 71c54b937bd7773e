package transport

import (
	"context"
	"fmt"

	"github.com/platewire/platewire/core/model"
)

// Sender matches the dispatch transport contract.
type Sender interface {
	Send(ctx context.Context, job model.DispatchJob) error
}

// Router picks the delivery path per job: direct TCP for locally reachable
// printers, the cloud relay for everything else.
type Router struct {
	local Sender
	relay Sender
}

// NewRouter creates a Router. relay may be nil when no relay is configured;
// relay-kind jobs then fail with a transmit error and land in the retry
// queue.
func NewRouter(local, relay Sender) *Router {
	return &Router{local: local, relay: relay}
}

// Send routes the job by its transport kind.
func (r *Router) Send(ctx context.Context, job model.DispatchJob) error {
	switch job.Transport {
	case model.TransportRelay:
		if r.relay == nil {
			return fmt.Errorf("no relay configured for printer %s", job.PrinterID)
		}
		return r.relay.Send(ctx, job)
	default:
		return r.local.Send(ctx, job)
	}
}
