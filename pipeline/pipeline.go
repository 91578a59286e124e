// Package pipeline runs one query end to end: synthesize code, execute it
// against the datasets, interpret the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/spektr-org/askdata/engine"
	"github.com/spektr-org/askdata/llm"
	"github.com/spektr-org/askdata/schema"
	"github.com/spektr-org/askdata/table"
)

// ============================================================================
// PIPELINE: Synthesizer → Executor → Interpreter
// ============================================================================
// Strictly sequential. Nothing is retried and nothing partial is returned:
// the first failing stage ends the run with a *StageError.
// ============================================================================

// Stage names a pipeline step.
type Stage string

const (
	StageSynthesize Stage = "synthesize"
	StageExecute    Stage = "execute"
	StageInterpret  Stage = "interpret"
)

// StageError reports which stage failed. Its message is the stage's own
// error message.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

// Synthesizer produces code for a query.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, columnsA, columnsB []string) (string, error)
}

// SchemaSynthesizer is a Synthesizer that can also use profiled metadata.
type SchemaSynthesizer interface {
	Synthesizer
	SynthesizeWithSchema(ctx context.Context, query string, a, b schema.Config) (string, error)
}

// Interpreter answers a query from a result table.
type Interpreter interface {
	Interpret(ctx context.Context, query string, data *table.Table) (string, error)
}

// Datasets are the two tables every query runs against. They are shared
// read-only between concurrent runs.
type Datasets struct {
	A *table.Table
	B *table.Table
}

// Answer is the outcome of a successful run.
type Answer struct {
	ID             uuid.UUID     `json:"id"`
	Query          string        `json:"query"`
	Code           string        `json:"code"`
	Result         *table.Table  `json:"result"`
	Interpretation string        `json:"interpretation"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for stage outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithSchemaPrompts makes the pipeline profile both datasets once and send
// the profiles to a SchemaSynthesizer.
func WithSchemaPrompts() Option {
	return func(p *Pipeline) {
		p.useSchema = true
	}
}

// WithProfiles is WithSchemaPrompts with profiles computed by the caller,
// for example ones enriched by schema.Refine.
func WithProfiles(a, b schema.Config) Option {
	return func(p *Pipeline) {
		p.useSchema = true
		p.schemaA, p.schemaB = a, b
		p.profiled = true
	}
}

// Pipeline wires the three stages to a pair of datasets.
type Pipeline struct {
	data        Datasets
	synthesizer Synthesizer
	executor    engine.Executor
	interpreter Interpreter
	logger      *slog.Logger

	useSchema bool
	profiled  bool
	schemaA   schema.Config
	schemaB   schema.Config
}

// New creates a Pipeline. Both datasets must be present.
func New(data Datasets, s Synthesizer, e engine.Executor, i Interpreter, opts ...Option) (*Pipeline, error) {
	if data.A == nil || data.B == nil {
		return nil, errors.New("pipeline needs both datasets")
	}
	if s == nil || e == nil || i == nil {
		return nil, errors.New("pipeline needs a synthesizer, an executor and an interpreter")
	}
	p := &Pipeline{data: data, synthesizer: s, executor: e, interpreter: i}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.useSchema {
		if _, ok := s.(SchemaSynthesizer); !ok {
			return nil, fmt.Errorf("schema prompts need a synthesizer with SynthesizeWithSchema, got %T", s)
		}
		if !p.profiled {
			p.schemaA = schema.Profile(data.A)
			p.schemaB = schema.Profile(data.B)
		}
	}
	return p, nil
}

// Datasets returns the tables the pipeline runs against.
func (p *Pipeline) Datasets() Datasets { return p.data }

// Run answers query. Failures are *StageError values wrapping the stage's
// typed error.
func (p *Pipeline) Run(ctx context.Context, query string) (*Answer, error) {
	start := time.Now()
	ans := &Answer{ID: uuid.New(), Query: query}
	log := p.logger.With("run", ans.ID.String())
	log.Info("query received", "query", query)

	code, err := p.synthesize(ctx, query)
	if err == nil && code == "" {
		err = errors.New("synthesizer returned no code")
	}
	if err != nil {
		return nil, p.fail(log, StageSynthesize, err)
	}
	ans.Code = code

	result, err := p.executor.Execute(ctx, code, p.data.A, p.data.B)
	if err != nil {
		return nil, p.fail(log, StageExecute, err)
	}
	ans.Result = result
	log.Info("code executed", "rows", result.Len(), "columns", len(result.Columns()))

	answer, err := p.interpreter.Interpret(ctx, query, result)
	if err != nil {
		return nil, p.fail(log, StageInterpret, err)
	}
	ans.Interpretation = answer
	ans.Elapsed = time.Since(start)

	log.Info("query answered", "elapsed", ans.Elapsed)
	return ans, nil
}

func (p *Pipeline) synthesize(ctx context.Context, query string) (string, error) {
	if p.useSchema {
		return p.synthesizer.(SchemaSynthesizer).SynthesizeWithSchema(ctx, query, p.schemaA, p.schemaB)
	}
	return p.synthesizer.Synthesize(ctx, query, p.data.A.ColumnNames(), p.data.B.ColumnNames())
}

func (p *Pipeline) fail(log *slog.Logger, stage Stage, err error) error {
	log.Error("query failed", "stage", stage, "kind", Kind(err), "error", err)
	return &StageError{Stage: stage, Err: err}
}

// Kind classifies a run failure for logs and metrics.
func Kind(err error) string {
	var (
		missing *engine.MissingOutputError
		execErr *engine.ExecutionError
	)
	switch {
	case errors.As(err, &missing):
		return "missing_output"
	case errors.Is(err, engine.ErrLimitExceeded):
		return "limit_exceeded"
	case errors.Is(err, engine.ErrPlanRejected):
		return "plan_rejected"
	case errors.As(err, &execErr):
		return "execution"
	case errors.Is(err, llm.ErrService):
		return "service_" + string(llm.KindOf(err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "unknown"
	}
}
