package engine

import (
	"context"
	"errors"
	"fmt"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/spektr-org/askdata/table"
)

// ============================================================================
// SCRIPT EXECUTOR: Starlark over table values
// ============================================================================
// Generated code runs in a fresh Starlark thread with no filesystem, network
// or load() access. The only names it sees besides the Starlark universe are
// data_a, data_b and the frame module. A step budget and a wall-clock
// deadline bound every run; either one stops the thread mid-loop.
// ============================================================================

const scriptFile = "query.star"

var scriptFileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// ScriptExecutor runs Starlark scripts.
type ScriptExecutor struct {
	cfg *config
}

// NewScriptExecutor creates a script executor.
func NewScriptExecutor(opts ...Option) *ScriptExecutor {
	return &ScriptExecutor{cfg: applyOptions(opts)}
}

// Execute runs code with data_a and data_b bound and returns filtered_data.
func (e *ScriptExecutor) Execute(ctx context.Context, code string, a, b *table.Table) (*table.Table, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, e.contextError(err)
	}

	logger := e.cfg.Logger
	thread := &starlark.Thread{
		Name: "query",
		Print: func(_ *starlark.Thread, msg string) {
			logger.Debug("script output", "msg", msg)
		},
		Load: func(_ *starlark.Thread, module string) (starlark.StringDict, error) {
			return nil, fmt.Errorf("load(%q) is not available", module)
		},
	}
	if e.cfg.MaxSteps > 0 {
		thread.SetMaxExecutionSteps(e.cfg.MaxSteps)
	}
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(ctx.Err().Error())
	})
	defer stop()

	predeclared := starlark.StringDict{
		BindingA:       NewFrame(a),
		BindingB:       NewFrame(b),
		LibraryBinding: frameModule,
	}

	globals, err := starlark.ExecFileOptions(scriptFileOptions, thread, scriptFile, code, predeclared)
	if err != nil {
		return nil, e.classify(ctx, thread, err)
	}

	out, ok := globals[OutputBinding]
	if !ok {
		return nil, &MissingOutputError{Binding: OutputBinding}
	}
	result, err := toTable(out)
	if err != nil {
		return nil, err
	}

	logger.Debug("script executed",
		"steps", thread.ExecutionSteps(),
		"rows", result.Len(),
		"columns", len(result.Columns()))
	return result.WithName(OutputBinding), nil
}

// classify turns a Starlark failure into an *ExecutionError. Limits are
// checked first because an exhausted budget surfaces as a cancellation.
func (e *ScriptExecutor) classify(ctx context.Context, thread *starlark.Thread, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return e.contextError(ctxErr)
	}
	if e.cfg.MaxSteps > 0 && thread.ExecutionSteps() >= e.cfg.MaxSteps {
		return execError(fmt.Errorf("%w: %w", ErrLimitExceeded, err),
			"step limit of %d exceeded", e.cfg.MaxSteps)
	}

	var synErr syntax.Error
	if errors.As(err, &synErr) {
		return positioned(err, synErr.Pos, "syntax error: "+synErr.Msg)
	}

	var resolveErrs resolve.ErrorList
	if errors.As(err, &resolveErrs) && len(resolveErrs) > 0 {
		first := resolveErrs[0]
		return positioned(err, first.Pos, first.Msg)
	}

	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		for i := 0; i < len(evalErr.CallStack); i++ {
			frame := evalErr.CallStack.At(i)
			if frame.Pos.Filename() == scriptFile {
				return positioned(err, frame.Pos, evalErr.Msg)
			}
		}
		return execError(err, "%s", evalErr.Msg)
	}

	return execError(err, "%s", err.Error())
}

func (e *ScriptExecutor) contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return execError(fmt.Errorf("%w: %w", ErrLimitExceeded, err),
			"timed out after %v", e.cfg.Timeout)
	}
	return execError(err, "execution canceled")
}

func positioned(err error, pos syntax.Position, msg string) *ExecutionError {
	ee := execError(err, "line %d: %s", pos.Line, msg)
	ee.Line = int(pos.Line)
	ee.Column = int(pos.Col)
	return ee
}

// toTable accepts a table, or a single column as a one-column table.
func toTable(v starlark.Value) (*table.Table, error) {
	switch x := v.(type) {
	case *Frame:
		return x.t, nil
	case *Column:
		t, err := x.t.Select(x.name)
		if err != nil {
			return nil, execError(err, "%s", err.Error())
		}
		return t, nil
	default:
		return nil, execError(nil, "'%s' must be a table, got %s", OutputBinding, v.Type())
	}
}
