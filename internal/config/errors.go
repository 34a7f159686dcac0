package config

import "errors"

// Configuration validation errors.
// Validate returns these sentinels so that callers can use errors.Is.
var (
	// ErrNoTarget is returned when neither arguments nor --list name a target.
	ErrNoTarget = errors.New("no target specified: provide a domain or use --list")

	// ErrInvalidTimeout is returned when the fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidProbeTimeout is returned when the probe timeout is not positive.
	ErrInvalidProbeTimeout = errors.New("invalid probe timeout: must be positive")

	// ErrInvalidRateLimitDelay is returned when the delay is negative.
	// Use 0 to disable rate limiting.
	ErrInvalidRateLimitDelay = errors.New("invalid rate limit delay: must be non-negative")

	// ErrInvalidMaxAttempts is returned when the attempt count is not positive.
	ErrInvalidMaxAttempts = errors.New("invalid attempts: must be at least 1")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidRegion is returned for a region name that is not known.
	ErrInvalidRegion = errors.New("invalid region: use north_america, europe or middle_east")

	// ErrInvalidKind is returned for an unknown task kind.
	ErrInvalidKind = errors.New("invalid kind: use platform or category")

	// ErrInvalidThreshold is returned when a threshold is outside [0,1].
	ErrInvalidThreshold = errors.New("invalid threshold: must be within [0, 1]")

	// ErrInvalidStrategy is returned for an unknown aggregation strategy.
	ErrInvalidStrategy = errors.New("invalid strategy: use mean or additive")

	// ErrInvalidWeight is returned for a negative indicator weight or cap.
	ErrInvalidWeight = errors.New("invalid indicator weight: must be non-negative")

	// ErrInvalidPattern is returned when a price pattern does not compile.
	ErrInvalidPattern = errors.New("invalid pattern")
)
