package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/spektr-org/askdata/llm"
	"github.com/spektr-org/askdata/table"
)

// Interpreter asks a model to answer a question from a filtered result.
type Interpreter struct {
	provider llm.Provider
	opts     *options
}

// NewInterpreter creates an Interpreter backed by p.
func NewInterpreter(p llm.Provider, opts ...Option) *Interpreter {
	return &Interpreter{provider: p, opts: applyOptions(opts)}
}

// Interpret returns the model's answer to query given data. On failure it
// returns "" and an error matching ErrNoInterpretation.
func (i *Interpreter) Interpret(ctx context.Context, query string, data *table.Table) (string, error) {
	log := i.opts.logger.With("component", "interpreter")

	if data == nil {
		return "", fmt.Errorf("%w: no result table", ErrNoInterpretation)
	}
	payload, err := data.DictJSON()
	if err != nil {
		log.Error("result encoding failed", "error", err)
		return "", fmt.Errorf("%w: %w", ErrNoInterpretation, err)
	}

	reply, err := i.provider.Complete(ctx, llm.Request{
		System:      interpretSystemPrompt,
		User:        BuildInterpretationPrompt(query, string(payload)),
		Temperature: InterpretationTemperature,
		MaxTokens:   InterpretationMaxTokens,
	})
	if err != nil {
		log.Error("interpretation failed", "kind", llm.KindOf(err), "rows", data.Len(), "error", err)
		return "", fmt.Errorf("%w: %w", ErrNoInterpretation, err)
	}

	log.Debug("result interpreted", "rows", data.Len(), "bytes", len(reply))
	return strings.TrimSpace(reply), nil
}
