// Package transport delivers rendered tickets to physical printers. Thermal
// printers accept raw bytes on a TCP socket, conventionally port 9100.
package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/platewire/platewire/core/model"
)

const probeTimeout = 300 * time.Millisecond

// TCPSender writes ticket bytes to the target socket in a single attempt.
// It carries no retry logic; failed sends are the retry queue's business.
type TCPSender struct {
	dialer net.Dialer
}

// NewTCPSender creates a TCPSender.
func NewTCPSender() *TCPSender {
	return &TCPSender{}
}

// Send dials the job address and writes the rendered ticket. The context
// bounds both the dial and the write.
func (s *TCPSender) Send(ctx context.Context, job model.DispatchJob) error {
	conn, err := s.dialer.DialContext(ctx, "tcp", job.Addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", job.Addr, err)
	}
	defer func() { _ = conn.Close() }()
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	if _, err := conn.Write([]byte(job.Ticket)); err != nil {
		return fmt.Errorf("write to %s: %w", job.Addr, err)
	}
	return nil
}

// Reachable reports whether the target accepts connections right now. Used
// by the validation gate; a short timeout keeps repeated validation cheap.
func (s *TCPSender) Reachable(target model.PrinterTarget) bool {
	conn, err := net.DialTimeout("tcp", target.Addr(), probeTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
