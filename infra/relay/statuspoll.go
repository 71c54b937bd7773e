package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/platewire/platewire/core/events"
	"github.com/platewire/platewire/core/logger"
	"github.com/platewire/platewire/core/printerstatus"
	"github.com/platewire/platewire/internal/eventbus"
)

// StatusPoller runs on the submitting side: it periodically pulls
// confirmations and failures for jobs this restaurant pushed to the broker
// and folds them into the printer statistics. A 204 from the broker means no
// updates and is not an error.
type StatusPoller struct {
	client   *Client
	interval time.Duration
	status   printerstatus.Store
	bus      eventbus.EventBus
	log      logger.Logger
}

// NewStatusPoller creates a StatusPoller. status and bus may be nil.
func NewStatusPoller(client *Client, interval time.Duration, status printerstatus.Store, bus eventbus.EventBus, log logger.Logger) *StatusPoller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &StatusPoller{client: client, interval: interval, status: status, bus: bus, log: log}
}

// Run polls until the context is cancelled. Poll errors are logged and the
// schedule continues; a broken broker must not take the poller down.
func (p *StatusPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *StatusPoller) pollOnce(ctx context.Context) {
	updates, err := p.client.PollStatus(ctx)
	if err != nil {
		p.log.Warnf("relay status poll failed: %v", err)
		return
	}
	now := time.Now()
	for _, u := range updates {
		switch u.Status {
		case StatusPrinted:
			if p.status != nil {
				p.status.RecordSuccess(u.PrinterID, now)
			}
			p.log.Infof("relay confirmed job %s printed on %s", u.JobID, u.PrinterID)
			if p.bus != nil {
				p.bus.Publish(events.RelayEvent{Action: "confirmed", PrinterID: u.PrinterID, JobID: u.JobID})
			}
		case StatusFailed:
			err := fmt.Errorf("relay print failed: %s", u.Error)
			if p.status != nil {
				p.status.RecordFailure(u.PrinterID, err, now)
			}
			p.log.Warnf("relay reported job %s failed on %s: %s", u.JobID, u.PrinterID, u.Error)
			if p.bus != nil {
				p.bus.Publish(events.RelayEvent{Action: "failed", PrinterID: u.PrinterID, JobID: u.JobID, Err: err})
			}
		}
	}
}
