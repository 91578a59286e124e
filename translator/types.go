// Package translator is the AI boundary of the query pipeline. The
// Synthesizer turns a question into code for the engine; the Interpreter
// turns the engine's result back into prose. Both talk to a model only
// through llm.Provider.
package translator

import (
	"errors"
	"log/slog"

	"github.com/spektr-org/askdata/engine"
)

// ============================================================================
// TRANSLATOR: AI boundary for natural language ↔ code and results
// ============================================================================
// The Synthesizer sees column names (and optionally profiled metadata) and
// the question. It never sees rows. The Interpreter sees only the filtered
// result, never the full datasets.
// ============================================================================

// Sentinel errors. Both wrap the provider's *llm.ServiceError when the
// model call itself failed.
var (
	ErrNoCode           = errors.New("no code generated")
	ErrNoInterpretation = errors.New("no interpretation generated")
)

// Sampling settings per call.
const (
	SynthesisTemperature      float32 = 0
	SynthesisMaxTokens                = 300
	InterpretationTemperature float32 = 0.7
	InterpretationMaxTokens           = 200
)

// Option configures a Synthesizer or Interpreter.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	mode    engine.Mode
	joinKey string
}

// WithLogger sets the logger used to report model failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMode selects what the Synthesizer asks for: a script or a plan.
func WithMode(m engine.Mode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithJoinKey names the column linking the two datasets in the prompt.
func WithJoinKey(key string) Option {
	return func(o *options) {
		o.joinKey = key
	}
}

func applyOptions(opts []Option) *options {
	o := &options{
		mode:    engine.ModeScript,
		joinKey: engine.DefaultJoinKey,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
