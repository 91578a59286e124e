package engine

import (
	"log/slog"
	"time"
)

// ============================================================================
// ENGINE OPTIONS: Functional options for executors
// ============================================================================

// Option configures executor behavior via functional options pattern.
type Option func(*config)

type config struct {
	Timeout  time.Duration // wall clock per execution; 0 = caller's context only
	MaxSteps uint64        // Starlark step budget; 0 = unlimited
	JoinKey  string        // key used by plans with source "joined"
	Logger   *slog.Logger
}

// Defaults applied when no option overrides them.
const (
	DefaultTimeout  = 5 * time.Second
	DefaultMaxSteps = 1_000_000
	DefaultJoinKey  = "Patient_Number"
)

// WithTimeout bounds the wall-clock time of one execution.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.Timeout = d
	}
}

// WithMaxSteps bounds the number of Starlark computation steps.
func WithMaxSteps(n uint64) Option {
	return func(c *config) {
		c.MaxSteps = n
	}
}

// WithJoinKey sets the column plans join the two datasets on.
func WithJoinKey(key string) Option {
	return func(c *config) {
		c.JoinKey = key
	}
}

// WithLogger sets the logger; script print() output goes here at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.Logger = l
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Timeout:  DefaultTimeout,
		MaxSteps: DefaultMaxSteps,
		JoinKey:  DefaultJoinKey,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}
