package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than creating
// new error instances in Validate(). This allows callers to use errors.Is()
// for programmatic error handling while still providing human-readable
// messages.
var (
	// ErrNoTargets is returned when no URL is supplied via positional
	// arguments or the --input file.
	ErrNoTargets = errors.New("no targets specified: provide URLs as arguments or use --input")

	// ErrMissingDateRange is returned when either date bound is unset.
	ErrMissingDateRange = errors.New("missing date range: --start-date and --end-date are required")

	// ErrInvalidDateRange is returned when the end date precedes the start date.
	ErrInvalidDateRange = errors.New("invalid date range: end date must not be before start date")

	// ErrInvalidFrequency is returned for frequencies other than
	// daily, monthly, or annually.
	ErrInvalidFrequency = errors.New("invalid frequency: must be daily, monthly, or annually")

	// ErrInvalidSiteType is returned for site types other than
	// tos, robots, or main.
	ErrInvalidSiteType = errors.New("invalid site type: must be tos, robots, or main")

	// ErrInvalidWorkers is returned when the worker pool size is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidRateLimit is returned when a rate limiter is configured with
	// a non-positive call count or period.
	ErrInvalidRateLimit = errors.New("invalid rate limit: calls and period must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one summary format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
