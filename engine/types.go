package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/spektr-org/askdata/table"
)

// ============================================================================
// ENGINE TYPES
// ============================================================================
// Generated code sees exactly two datasets and one library handle. Whatever
// it leaves bound to OutputBinding is the result.
// ============================================================================

// Names bound into every execution.
const (
	BindingA       = "data_a"
	BindingB       = "data_b"
	LibraryBinding = "frame"
	OutputBinding  = "filtered_data"
)

// Mode selects how generated code is interpreted.
type Mode string

const (
	// ModeScript runs Starlark source against table values.
	ModeScript Mode = "script"
	// ModePlan evaluates a declarative JSON filter plan.
	ModePlan Mode = "plan"
)

// ParseMode validates a mode name. The empty string is ModeScript.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeScript:
		return ModeScript, nil
	case ModePlan:
		return ModePlan, nil
	default:
		return "", fmt.Errorf("unknown executor mode %q (want %q or %q)", s, ModeScript, ModePlan)
	}
}

// Executor runs generated code against the two datasets and returns the
// table the code left in OutputBinding.
//
// Failures are *MissingOutputError when the code ran but never bound the
// output, and *ExecutionError for everything else.
type Executor interface {
	Execute(ctx context.Context, code string, a, b *table.Table) (*table.Table, error)
}
