package config

import "fmt"

// StoreConfig locates the printer/assignment configuration document.
type StoreConfig struct {
	// PrintersPath is the JSON file holding printer targets and
	// assignments.
	PrintersPath string `json:"printers_path"`
	// Watch enables live reload of the document on change.
	Watch bool `json:"watch"`
}

// Validate checks mandatory fields.
func (c StoreConfig) Validate() error {
	if c.PrintersPath == "" {
		return fmt.Errorf("store printers_path is required")
	}
	return nil
}

// DispatchConfig tunes the orchestrator.
type DispatchConfig struct {
	// TimeoutSeconds bounds each transmission attempt.
	TimeoutSeconds int `json:"timeout_seconds"`
	// TargetGapMillis is the pause between consecutive printer targets.
	TargetGapMillis int `json:"target_gap_millis"`
}

// SetDefaults applies sane defaults.
func (c *DispatchConfig) SetDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
	}
	if c.TargetGapMillis < 0 {
		c.TargetGapMillis = 300
	}
}

// RetryConfig tunes the retry/offline queue.
type RetryConfig struct {
	IntervalSeconds    int    `json:"interval_seconds"`
	SendTimeoutSeconds int    `json:"send_timeout_seconds"`
	BaseBackoffSeconds int    `json:"base_backoff_seconds"`
	MaxBackoffSeconds  int    `json:"max_backoff_seconds"`
	MaxAttempts        int    `json:"max_attempts"`
	SnapshotPath       string `json:"snapshot_path"`
}

// SetDefaults applies sane defaults.
func (c *RetryConfig) SetDefaults() {
	if c.IntervalSeconds <= 0 {
		c.IntervalSeconds = 60
	}
	if c.SendTimeoutSeconds <= 0 {
		c.SendTimeoutSeconds = 15
	}
	if c.BaseBackoffSeconds <= 0 {
		c.BaseBackoffSeconds = 30
	}
	if c.MaxBackoffSeconds <= 0 {
		c.MaxBackoffSeconds = 600
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
}

// APIConfig exposes the operator HTTP API: audit log queries, printer
// statistics and the dead-letter revive action.
type APIConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
	// Token guards the audit log endpoint when non-empty.
	Token string `json:"token"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8087"
	}
}

// EventsConfig enables the NATS event bridge.
type EventsConfig struct {
	NATSEnabled bool   `json:"nats_enabled"`
	NATSURL     string `json:"nats_url"`
}

// AuditConfig defines settings for dispatch audit storage.
type AuditConfig struct {
	// Backend selects the audit store type: "jsonl" or "sqlite".
	Backend string `json:"backend"`
	// Path is the file location of the audit store.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *AuditConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		c.Path = "dispatch_audit.log"
	}
}

// Validate checks mandatory fields.
func (c AuditConfig) Validate() error {
	if c.Backend != "jsonl" && c.Backend != "sqlite" {
		return fmt.Errorf("unknown audit backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("audit path is required")
	}
	return nil
}
