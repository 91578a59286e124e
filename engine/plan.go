package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spektr-org/askdata/table"
)

// ============================================================================
// PLAN EXECUTOR: Declarative filter plans
// ============================================================================
// Instead of code, the model may answer with a JSON document:
//
//	{"filtered_data": {
//	    "source": "joined",
//	    "where":  {"and": [{"column": "Age", "op": ">", "value": 30},
//	                       {"column": "Smoker", "op": "==", "value": true}]},
//	    "select": ["Patient_Number", "Age"],
//	    "sort":   [{"column": "Age", "desc": true}],
//	    "limit":  10}}
//
// Nothing in a plan is executable. Every column and operator is checked
// against the datasets before any row is touched.
// ============================================================================

// Plan sources.
const (
	SourceA      = BindingA
	SourceB      = BindingB
	SourceJoined = "joined"
)

// Query is the plan bound to OutputBinding.
type Query struct {
	Source string          `json:"source"`
	Join   *Join           `json:"join,omitempty"`
	Where  *Predicate      `json:"where,omitempty"`
	Select []string        `json:"select,omitempty"`
	Sort   []table.SortKey `json:"sort,omitempty"`
	Limit  int             `json:"limit,omitempty"`
}

// Join configures the "joined" source. Zero values fall back to an inner
// join on the configured join key.
type Join struct {
	How string `json:"how,omitempty"`
	On  string `json:"on,omitempty"`
}

// Predicate is a boolean tree. Exactly one of And, Or, Not or Column is set.
type Predicate struct {
	And    []Predicate `json:"and,omitempty"`
	Or     []Predicate `json:"or,omitempty"`
	Not    *Predicate  `json:"not,omitempty"`
	Column string      `json:"column,omitempty"`
	Op     string      `json:"op,omitempty"`
	Value  any         `json:"value,omitempty"`
}

// ParsePlan decodes a plan document. A document without an OutputBinding
// key is a *MissingOutputError; anything malformed is rejected.
func ParsePlan(code string) (*Query, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(code)), &doc); err != nil {
		return nil, rejected(err, "invalid plan JSON: %v", err)
	}
	raw, ok := doc[OutputBinding]
	if !ok {
		return nil, &MissingOutputError{Binding: OutputBinding}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	var q Query
	if err := dec.Decode(&q); err != nil {
		return nil, rejected(err, "invalid plan: %v", err)
	}
	if q.Limit < 0 {
		return nil, rejected(nil, "limit must not be negative, got %d", q.Limit)
	}
	return &q, nil
}

// PlanExecutor evaluates JSON plans.
type PlanExecutor struct {
	cfg *config
}

// NewPlanExecutor creates a plan executor.
func NewPlanExecutor(opts ...Option) *PlanExecutor {
	return &PlanExecutor{cfg: applyOptions(opts)}
}

// Execute parses, validates and evaluates a plan.
func (e *PlanExecutor) Execute(ctx context.Context, code string, a, b *table.Table) (*table.Table, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	q, err := ParsePlan(code)
	if err != nil {
		return nil, err
	}

	src, err := e.source(q, a, b)
	if err != nil {
		return nil, err
	}

	out := src
	if q.Where != nil {
		match, err := compile(src, *q.Where)
		if err != nil {
			return nil, err
		}
		out, err = src.FilterErr(func(r int) (bool, error) {
			if r%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return false, err
				}
			}
			return match(r)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				if errors.Is(ctxErr, context.DeadlineExceeded) {
					return nil, execError(fmt.Errorf("%w: %w", ErrLimitExceeded, ctxErr), "timed out after %v", e.cfg.Timeout)
				}
				return nil, execError(ctxErr, "execution canceled")
			}
			return nil, execError(err, "%s", err.Error())
		}
	}

	if len(q.Sort) > 0 {
		if out, err = out.Sort(q.Sort...); err != nil {
			return nil, rejected(err, "%s", err.Error())
		}
	}
	if len(q.Select) > 0 {
		if out, err = out.Select(q.Select...); err != nil {
			return nil, rejected(err, "%s", err.Error())
		}
	}
	if q.Limit > 0 {
		out = out.Head(q.Limit)
	}

	e.cfg.Logger.Debug("plan executed", "source", q.Source, "rows", out.Len())
	return out.WithName(OutputBinding), nil
}

func (e *PlanExecutor) source(q *Query, a, b *table.Table) (*table.Table, error) {
	switch q.Source {
	case SourceA:
		return a, nil
	case SourceB:
		return b, nil
	case SourceJoined:
		how, on := table.JoinInner, e.cfg.JoinKey
		if q.Join != nil {
			if q.Join.How != "" {
				how = q.Join.How
			}
			if q.Join.On != "" {
				on = q.Join.On
			}
		}
		joined, err := a.Merge(b, on, how)
		if err != nil {
			return nil, rejected(err, "%s", err.Error())
		}
		return joined, nil
	default:
		return nil, rejected(nil, "unknown source %q (want %q, %q or %q)", q.Source, SourceA, SourceB, SourceJoined)
	}
}

// compile validates p against t and returns a row matcher.
func compile(t *table.Table, p Predicate) (func(r int) (bool, error), error) {
	set := 0
	if len(p.And) > 0 {
		set++
	}
	if len(p.Or) > 0 {
		set++
	}
	if p.Not != nil {
		set++
	}
	if p.Column != "" {
		set++
	}
	if set != 1 {
		return nil, rejected(nil, "each condition needs exactly one of and, or, not, column")
	}

	switch {
	case p.Not != nil:
		inner, err := compile(t, *p.Not)
		if err != nil {
			return nil, err
		}
		return func(r int) (bool, error) {
			ok, err := inner(r)
			return !ok, err
		}, nil

	case len(p.And) > 0, len(p.Or) > 0:
		children, isAnd := p.And, true
		if len(p.Or) > 0 {
			children, isAnd = p.Or, false
		}
		matchers := make([]func(int) (bool, error), len(children))
		for i, child := range children {
			m, err := compile(t, child)
			if err != nil {
				return nil, err
			}
			matchers[i] = m
		}
		return func(r int) (bool, error) {
			for _, m := range matchers {
				ok, err := m(r)
				if err != nil {
					return false, err
				}
				if ok != isAnd {
					return ok, nil
				}
			}
			return isAnd, nil
		}, nil
	}

	c, ok := t.ColumnIndex(p.Column)
	if !ok {
		return nil, rejected(&table.ColumnError{Column: p.Column, Table: t.Name()}, "unknown column %q", p.Column)
	}
	op, err := ParseOp(p.Op)
	if err != nil {
		return nil, rejected(err, "%s", err.Error())
	}
	operand, err := planOperand(op, p.Value)
	if err != nil {
		return nil, rejected(err, "%s %s: %v", p.Column, op, err)
	}
	return func(r int) (bool, error) {
		return matchOp(op, t.Cell(r, c), operand)
	}, nil
}

// planOperand converts a decoded JSON value to cell types.
func planOperand(op Op, v any) (any, error) {
	switch opArity[op] {
	case 0:
		return nil, nil
	case 2:
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("value must be a list")
		}
		out := make([]any, len(list))
		for i, item := range list {
			x, err := jsonCell(item)
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return out, nil
	default:
		return jsonCell(v)
	}
}

func jsonCell(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, bool:
		return x, nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		return x.Float64()
	default:
		return nil, fmt.Errorf("value must be a scalar, got %T", v)
	}
}

// rejected builds an *ExecutionError that also matches ErrPlanRejected.
func rejected(err error, format string, args ...any) *ExecutionError {
	switch {
	case err == nil:
		err = ErrPlanRejected
	case !errors.Is(err, ErrPlanRejected):
		err = fmt.Errorf("%w: %w", ErrPlanRejected, err)
	}
	return execError(err, format, args...)
}
