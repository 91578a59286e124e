package translator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spektr-org/askdata/engine"
	"github.com/spektr-org/askdata/llm"
	"github.com/spektr-org/askdata/schema"
)

// Synthesizer asks a model for code that answers a question over data_a
// and data_b.
type Synthesizer struct {
	provider llm.Provider
	opts     *options
}

// NewSynthesizer creates a Synthesizer backed by p.
func NewSynthesizer(p llm.Provider, opts ...Option) *Synthesizer {
	return &Synthesizer{provider: p, opts: applyOptions(opts)}
}

// Mode reports what kind of code the Synthesizer produces.
func (s *Synthesizer) Mode() engine.Mode { return s.opts.mode }

// Synthesize returns code for query given the two datasets' column names.
// On failure it returns "" and an error matching ErrNoCode.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, columnsA, columnsB []string) (string, error) {
	prompt := BuildSynthesisPrompt(query, columnsA, columnsB, s.opts.joinKey, s.opts.mode)
	return s.synthesize(ctx, query, prompt)
}

// SynthesizeWithSchema is Synthesize with profiled column metadata in the
// prompt.
func (s *Synthesizer) SynthesizeWithSchema(ctx context.Context, query string, a, b schema.Config) (string, error) {
	prompt := BuildSchemaPrompt(query, a, b, s.opts.joinKey, s.opts.mode)
	return s.synthesize(ctx, query, prompt)
}

func (s *Synthesizer) synthesize(ctx context.Context, query, prompt string) (string, error) {
	log := s.opts.logger.With("component", "synthesizer", "mode", s.opts.mode)

	reply, err := s.provider.Complete(ctx, llm.Request{
		System:      SystemPrompt(s.opts.mode),
		User:        prompt,
		Temperature: SynthesisTemperature,
		MaxTokens:   SynthesisMaxTokens,
	})
	if err != nil {
		log.Error("code synthesis failed", "kind", llm.KindOf(err), "error", err)
		return "", fmt.Errorf("%w: %w", ErrNoCode, err)
	}

	var code string
	if s.opts.mode == engine.ModePlan {
		code = ExtractFenced(reply, PlanTags...)
	} else {
		code = ExtractCode(reply)
	}
	if code == "" {
		log.Warn("model returned no code", "query", query)
		return "", fmt.Errorf("%w: the model reply was empty", ErrNoCode)
	}

	log.Debug("code synthesized", "bytes", len(code))
	if log.Enabled(ctx, slog.LevelDebug) {
		log.Debug("generated code", "code", code)
	}
	return code, nil
}
