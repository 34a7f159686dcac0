package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/out-of-energy/topshop/internal/model"
)

// Default configuration values.
const (
	// DefaultTimeout bounds a full page fetch, per attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultProbeTimeout bounds a single HEAD probe. Probes only check
	// that an endpoint exists, so they fail fast.
	DefaultProbeTimeout = 5 * time.Second

	// DefaultRateLimitDelay is the minimum spacing between two requests to
	// the same host.
	DefaultRateLimitDelay = 1 * time.Second

	// DefaultMaxAttempts is the number of tries for a full fetch, including
	// the first one. Only network errors and timeouts are retried.
	DefaultMaxAttempts = 3

	// DefaultRetryBackoff is the wait before the first retry; it doubles
	// after each further failure.
	DefaultRetryBackoff = 500 * time.Millisecond

	// DefaultBatchSize is the number of targets classified concurrently.
	DefaultBatchSize = 10

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultUserAgent is a desktop Chrome identification string. Many
	// storefronts serve bot-specific pages to unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// DefaultPageSize is the listing page size when none is given.
	DefaultPageSize = 20

	// MaxPageSize is the largest listing page size accepted.
	MaxPageSize = 100

	// DefaultRankLimit is the number of ranked records returned by default.
	DefaultRankLimit = 10

	// AppName is the application name used for XDG directory paths.
	AppName = "topshop"
)

// Config holds all runtime options for topshop.
// It is populated from CLI flags and the optional rule file and passed
// down explicitly; nothing reads global state.
type Config struct {
	// Timeout bounds each full fetch attempt.
	Timeout time.Duration

	// ProbeTimeout bounds each endpoint probe.
	ProbeTimeout time.Duration

	// RateLimitDelay is the per-host spacing between requests.
	// Zero disables rate limiting.
	RateLimitDelay time.Duration

	// MaxAttempts is the number of tries for a full fetch.
	MaxAttempts int

	// RetryBackoff is the initial backoff between attempts.
	RetryBackoff time.Duration

	// BatchSize is the number of targets classified concurrently.
	BatchSize int

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Verbose enables debug logging.
	Verbose bool

	// JSONLog switches log output to JSON.
	JSONLog bool

	// ConfigFilePath is the rule file path. If empty, .topshop is searched
	// in the current directory and then the home directory.
	ConfigFilePath string

	// Rules holds the indicator rules, thresholds and site overrides.
	// It always contains the built-in defaults merged with the rule file.
	Rules *File

	// Region is attached to every record produced by this run.
	Region string

	// Kinds limits which task kinds run; empty means all.
	Kinds []string

	// JSONReport enables JSON report output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// Targets is the list of domains to classify.
	Targets []string

	// TargetListFile is a file of newline separated domains.
	TargetListFile string

	// DBDir is the directory holding the SQLite record store.
	DBDir string

	// SaveToDB enables persisting results to the record store.
	SaveToDB bool
}

// NewConfig creates a new Config with default values and the built-in rules.
func NewConfig() *Config {
	return &Config{
		Timeout:        DefaultTimeout,
		ProbeTimeout:   DefaultProbeTimeout,
		RateLimitDelay: DefaultRateLimitDelay,
		MaxAttempts:    DefaultMaxAttempts,
		RetryBackoff:   DefaultRetryBackoff,
		BatchSize:      DefaultBatchSize,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		Rules:          DefaultFile(),
		DBDir:          XDGDataDir(),
		SaveToDB:       true,
	}
}

// XDGDataDir returns the XDG data directory for topshop.
// On Linux: ~/.local/share/topshop
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for topshop.
// On Linux: ~/.config/topshop
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// TaskDeadline is the overall time budget for one classification task:
// every fetch attempt, the backoff between them, one rate-limit wait per
// attempt and one round of probes.
func (c *Config) TaskDeadline() time.Duration {
	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var backoff time.Duration
	step := c.RetryBackoff
	for i := 1; i < attempts; i++ {
		backoff += step
		step *= 2
	}
	return time.Duration(attempts)*(c.Timeout+c.RateLimitDelay) + backoff + c.ProbeTimeout
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 && c.TargetListFile == "" {
		return ErrNoTarget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.ProbeTimeout <= 0 {
		return ErrInvalidProbeTimeout
	}
	if c.RateLimitDelay < 0 {
		return ErrInvalidRateLimitDelay
	}
	if c.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.Region != "" && !model.ParseRegion(c.Region).IsValid() {
		return ErrInvalidRegion
	}
	for _, k := range c.Kinds {
		if !model.ParseTaskKind(k).IsValid() {
			return ErrInvalidKind
		}
	}
	if c.Rules != nil {
		if err := c.Rules.Validate(); err != nil {
			return err
		}
	}
	return nil
}
