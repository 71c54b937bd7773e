// Package relay bridges dispatch to printers without a direct network path.
// Jobs are pushed to a cloud broker over HTTPS; a printer-side agent polls
// for jobs addressed to its printer, prints them locally and acknowledges
// processed ids so the broker stops redelivering them.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/platewire/platewire/auth"
	"github.com/platewire/platewire/core/dispatch"
	"github.com/platewire/platewire/core/logger"
	"github.com/platewire/platewire/core/model"
)

// Job statuses understood by the broker.
const (
	StatusPending = "pending"
	StatusPrinted = "printed"
	StatusFailed  = "failed"
)

// wireJob is the broker's job representation.
type wireJob struct {
	ID              string    `json:"id,omitempty"`
	OrderID         string    `json:"orderId"`
	OrderNo         string    `json:"orderNo,omitempty"`
	RestaurantID    string    `json:"restaurantId"`
	TargetPrinterID string    `json:"targetPrinterId"`
	Items           []string  `json:"items"`
	OrderData       string    `json:"orderData"`
	Status          string    `json:"status,omitempty"`
	CreatedAt       time.Time `json:"createdAt,omitempty"`
}

// StatusUpdate is one confirmation or failure pulled from the status poll.
type StatusUpdate struct {
	JobID     string `json:"jobId"`
	PrinterID string `json:"printerId"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Client talks to the relay broker. All requests carry the bearer token plus
// restaurant and session headers.
type Client struct {
	cfg    Config
	http   *http.Client
	tokens auth.TokenSource
	log    logger.Logger

	// The agent's reconnect path re-registers while the dispatch side and
	// the status poller keep issuing requests, so the session id is read
	// and replaced from separate goroutines.
	mu      sync.Mutex
	session string
}

func (c *Client) sessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) setSession(id string) {
	c.mu.Lock()
	c.session = id
	c.mu.Unlock()
}

// NewClient creates a relay Client.
func NewClient(cfg Config, log logger.Logger) *Client {
	cfg.SetDefaults()
	var tokens auth.TokenSource = auth.Static(cfg.Token)
	if cfg.Auth != nil {
		tokens = auth.NewClientCred(*cfg.Auth)
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
		tokens: tokens,
		log:    log,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, rd)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.tokens.SetAuthHeader(req); err != nil {
		return 0, fmt.Errorf("relay auth: %w", err)
	}
	req.Header.Set("X-Restaurant-ID", c.cfg.RestaurantID)
	if s := c.sessionID(); s != "" {
		req.Header.Set("X-Session-ID", s)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("relay %s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// Register announces the restaurant and printer to the broker and stores the
// returned session id for subsequent requests.
func (c *Client) Register(ctx context.Context) error {
	body := map[string]string{
		"restaurantId": c.cfg.RestaurantID,
		"printerId":    c.cfg.PrinterID,
		"sessionHint":  uuid.NewString(),
	}
	var resp struct {
		Success   bool   `json:"success"`
		SessionID string `json:"sessionId"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/api/restaurants/register", body, &resp); err != nil {
		return err
	}
	if !resp.Success || resp.SessionID == "" {
		return fmt.Errorf("relay registration rejected")
	}
	c.setSession(resp.SessionID)
	c.log.Infof("registered with relay, session %s", resp.SessionID)
	return nil
}

// Heartbeat tells the broker this agent is alive.
func (c *Client) Heartbeat(ctx context.Context) error {
	body := map[string]string{
		"restaurantId": c.cfg.RestaurantID,
		"printerId":    c.cfg.PrinterID,
	}
	_, err := c.do(ctx, http.MethodPost, "/api/heartbeat", body, nil)
	return err
}

// Health checks the broker health endpoint.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/api/health", nil, nil)
	return err
}

// Submit pushes a dispatch job to the broker. Non-success statuses surface
// as transmit errors so the orchestrator feeds the retry queue.
func (c *Client) Submit(ctx context.Context, job model.DispatchJob) error {
	body := wireJob{
		OrderID:         job.OrderID,
		OrderNo:         job.OrderNo,
		RestaurantID:    c.cfg.RestaurantID,
		TargetPrinterID: job.PrinterID,
		Items:           job.ItemIDs,
		OrderData:       job.Ticket,
	}
	var resp struct {
		Success bool   `json:"success"`
		JobID   string `json:"jobId"`
	}
	status, err := c.do(ctx, http.MethodPost, "/api/print-jobs", body, &resp)
	if err != nil {
		if status != 0 {
			return dispatch.NewTransmitError(dispatch.FailStatus, err)
		}
		return dispatch.NewTransmitError(dispatch.FailNetwork, err)
	}
	if !resp.Success {
		return dispatch.NewTransmitError(dispatch.FailStatus, fmt.Errorf("relay rejected job for printer %s", job.PrinterID))
	}
	return nil
}

// Send implements the transport contract for relay-kind targets.
func (c *Client) Send(ctx context.Context, job model.DispatchJob) error {
	return c.Submit(ctx, job)
}

// PollJobs fetches pending jobs addressed to the local printer. A 204 means
// no work.
func (c *Client) PollJobs(ctx context.Context) ([]model.DispatchJob, error) {
	path := fmt.Sprintf("/api/printers/%s/jobs?status=%s", url.PathEscape(c.cfg.PrinterID), StatusPending)
	var resp struct {
		Success bool      `json:"success"`
		Jobs    []wireJob `json:"jobs"`
	}
	status, err := c.do(ctx, http.MethodGet, path, nil, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	jobs := make([]model.DispatchJob, 0, len(resp.Jobs))
	for _, w := range resp.Jobs {
		jobs = append(jobs, model.DispatchJob{
			ID:        w.ID,
			OrderID:   w.OrderID,
			OrderNo:   w.OrderNo,
			PrinterID: w.TargetPrinterID,
			ItemIDs:   w.Items,
			Ticket:    w.OrderData,
			CreatedAt: w.CreatedAt,
		})
	}
	return jobs, nil
}

// Ack reports the final status of a polled job so the broker removes it from
// redelivery.
func (c *Client) Ack(ctx context.Context, jobID, status string) error {
	body := map[string]string{"status": status}
	_, err := c.do(ctx, http.MethodPut, "/api/print-jobs/"+url.PathEscape(jobID)+"/status", body, nil)
	return err
}

// PollStatus pulls confirmations and failures for jobs this side submitted.
// A 204 means no updates.
func (c *Client) PollStatus(ctx context.Context) ([]StatusUpdate, error) {
	var resp struct {
		Updates []StatusUpdate `json:"updates"`
	}
	status, err := c.do(ctx, http.MethodGet, "/api/status/poll?restaurantId="+url.QueryEscape(c.cfg.RestaurantID), nil, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return resp.Updates, nil
}
