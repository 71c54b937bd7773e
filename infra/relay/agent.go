package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/platewire/platewire/core/events"
	"github.com/platewire/platewire/core/logger"
	"github.com/platewire/platewire/core/model"
	"github.com/platewire/platewire/internal/eventbus"
)

// Printer prints a polled job on local hardware. The TCP transport
// satisfies it.
type Printer interface {
	Send(ctx context.Context, job model.DispatchJob) error
}

// Agent runs on the printer side of the relay: it registers, heartbeats,
// polls for jobs addressed to its printer, prints them and acknowledges the
// outcome.
type Agent struct {
	cfg     Config
	client  *Client
	printer Printer
	addr    string // local printer dial address
	log     logger.Logger
	bus     eventbus.EventBus

	hbFailures int
}

// NewAgent creates an Agent printing polled jobs to addr via printer.
func NewAgent(cfg Config, client *Client, printer Printer, addr string, log logger.Logger) *Agent {
	cfg.SetDefaults()
	return &Agent{cfg: cfg, client: client, printer: printer, addr: addr, log: log}
}

// SetBus configures the event bus relay activity is published on.
func (a *Agent) SetBus(bus eventbus.EventBus) { a.bus = bus }

func (a *Agent) publish(ev events.RelayEvent) {
	if a.bus != nil {
		a.bus.Publish(ev)
	}
}

// connect registers with the broker, retrying with a linearly increasing,
// capped backoff. Exhausting the attempt cap returns an error; the caller
// must explicitly restart the agent.
func (a *Agent) connect(ctx context.Context) error {
	base := time.Duration(a.cfg.ReconnectBaseSeconds) * time.Second
	max := time.Duration(a.cfg.ReconnectMaxSeconds) * time.Second
	for attempt := 1; attempt <= a.cfg.ReconnectMaxAttempts; attempt++ {
		if err := a.client.Register(ctx); err == nil {
			a.hbFailures = 0
			a.publish(events.RelayEvent{Action: "registered", PrinterID: a.cfg.PrinterID})
			return nil
		} else {
			a.log.Warnf("relay registration attempt %d failed: %v", attempt, err)
		}
		delay := time.Duration(attempt) * base
		if delay > max {
			delay = max
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	a.publish(events.RelayEvent{Action: "down", PrinterID: a.cfg.PrinterID})
	return fmt.Errorf("relay connection failed after %d attempts; restart required", a.cfg.ReconnectMaxAttempts)
}

// Run drives the agent until the context is cancelled or the connection is
// given up. Heartbeat failures beyond the cap mark the connection down and
// trigger a reconnect cycle.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.connect(ctx); err != nil {
		return err
	}
	hb := time.NewTicker(time.Duration(a.cfg.HeartbeatSeconds) * time.Second)
	defer hb.Stop()
	poll := time.NewTicker(time.Duration(a.cfg.PollSeconds) * time.Second)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hb.C:
			if err := a.heartbeat(ctx); err != nil {
				return err
			}
		case <-poll.C:
			a.pollOnce(ctx)
		}
	}
}

func (a *Agent) heartbeat(ctx context.Context) error {
	if err := a.client.Heartbeat(ctx); err != nil {
		a.hbFailures++
		a.log.Warnf("heartbeat failed (%d/%d): %v", a.hbFailures, a.cfg.HeartbeatMaxFailures, err)
		a.publish(events.RelayEvent{Action: "heartbeat", PrinterID: a.cfg.PrinterID, Err: err})
		if a.hbFailures >= a.cfg.HeartbeatMaxFailures {
			a.log.Warnf("heartbeat cap exceeded, reconnecting")
			a.publish(events.RelayEvent{Action: "down", PrinterID: a.cfg.PrinterID})
			return a.connect(ctx)
		}
		return nil
	}
	a.hbFailures = 0
	return nil
}

// pollOnce fetches queued jobs for the local printer, prints each and acks
// the outcome. A printed job is acknowledged so the broker stops
// redelivering it; a failed print is reported and left to the broker's
// redelivery.
func (a *Agent) pollOnce(ctx context.Context) {
	jobs, err := a.client.PollJobs(ctx)
	if err != nil {
		a.log.Warnf("job poll failed: %v", err)
		a.publish(events.RelayEvent{Action: "poll", PrinterID: a.cfg.PrinterID, Err: err})
		return
	}
	for _, job := range jobs {
		job.Addr = a.addr
		job.Transport = model.TransportTCP
		pctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := a.printer.Send(pctx, job)
		cancel()
		status := StatusPrinted
		if err != nil {
			status = StatusFailed
			a.log.Warnf("local print of relayed job %s failed: %v", job.ID, err)
		} else {
			a.log.Infof("printed relayed job %s for order %s", job.ID, job.OrderNo)
		}
		a.publish(events.RelayEvent{Action: "printed", PrinterID: a.cfg.PrinterID, JobID: job.ID, Err: err})
		if ackErr := a.client.Ack(ctx, job.ID, status); ackErr != nil {
			a.log.Warnf("ack of job %s failed: %v", job.ID, ackErr)
		}
	}
}
