package relay

import (
	"fmt"

	"github.com/platewire/platewire/auth"
)

// Config defines the cloud relay connection settings.
type Config struct {
	Enabled bool   `json:"enabled"`
	BaseURL string `json:"base_url"`
	// Token is the pre-shared broker key. Brokers with a token endpoint
	// use Auth instead; when both are set, Auth wins.
	Token        string     `json:"token"`
	Auth         *auth.Conf `json:"auth,omitempty"`
	RestaurantID string     `json:"restaurant_id"`
	// PrinterID is the local printer this agent prints for when polling.
	PrinterID string `json:"printer_id"`

	HeartbeatSeconds     int `json:"heartbeat_seconds"`
	PollSeconds          int `json:"poll_seconds"`
	HeartbeatMaxFailures int `json:"heartbeat_max_failures"`
	// StatusPollSeconds is the submit-side interval for pulling job
	// confirmations from the broker.
	StatusPollSeconds int `json:"status_poll_seconds"`

	// Reconnect backoff grows linearly: base, 2*base, ... capped at max.
	// Exceeding the attempt cap stops the agent; continuing requires an
	// explicit restart rather than silent infinite retry.
	ReconnectBaseSeconds int `json:"reconnect_base_seconds"`
	ReconnectMaxSeconds  int `json:"reconnect_max_seconds"`
	ReconnectMaxAttempts int `json:"reconnect_max_attempts"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.HeartbeatSeconds <= 0 {
		c.HeartbeatSeconds = 30
	}
	if c.PollSeconds <= 0 {
		c.PollSeconds = 5
	}
	if c.HeartbeatMaxFailures <= 0 {
		c.HeartbeatMaxFailures = 3
	}
	if c.StatusPollSeconds <= 0 {
		c.StatusPollSeconds = 30
	}
	if c.ReconnectBaseSeconds <= 0 {
		c.ReconnectBaseSeconds = 5
	}
	if c.ReconnectMaxSeconds <= 0 {
		c.ReconnectMaxSeconds = 60
	}
	if c.ReconnectMaxAttempts <= 0 {
		c.ReconnectMaxAttempts = 10
	}
}

// Validate checks mandatory fields when the relay is enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.BaseURL == "" {
		return fmt.Errorf("relay base_url is required")
	}
	if c.RestaurantID == "" {
		return fmt.Errorf("relay restaurant_id is required")
	}
	return nil
}
