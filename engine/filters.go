package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spektr-org/askdata/table"
)

// ============================================================================
// FILTERS: Allow-listed row predicates
// ============================================================================
// One operator table serves both executors: script column methods
// (col.gt(30)) and plan conditions ({"op": ">"}) evaluate through matchOp.
// Null cells never satisfy a comparison; only is_null matches them.
// ============================================================================

// Op is a comparison operator.
type Op string

const (
	OpEq         Op = "=="
	OpNe         Op = "!="
	OpGt         Op = ">"
	OpGe         Op = ">="
	OpLt         Op = "<"
	OpLe         Op = "<="
	OpIn         Op = "in"
	OpNotIn      Op = "not_in"
	OpContains   Op = "contains"
	OpStartsWith Op = "startswith"
	OpIsNull     Op = "is_null"
	OpNotNull    Op = "not_null"
)

// opArity: 0 = no operand, 1 = scalar operand, 2 = list operand.
var opArity = map[Op]int{
	OpEq: 1, OpNe: 1, OpGt: 1, OpGe: 1, OpLt: 1, OpLe: 1,
	OpIn: 2, OpNotIn: 2,
	OpContains: 1, OpStartsWith: 1,
	OpIsNull: 0, OpNotNull: 0,
}

// opAliases accepts the spellings models commonly produce.
var opAliases = map[string]Op{
	"=": OpEq, "eq": OpEq, "ne": OpNe, "<>": OpNe,
	"gt": OpGt, "ge": OpGe, "gte": OpGe, "lt": OpLt, "le": OpLe, "lte": OpLe,
	"not in": OpNotIn, "notin": OpNotIn, "isin": OpIn,
	"starts_with": OpStartsWith, "isnull": OpIsNull, "notnull": OpNotNull,
	"is null": OpIsNull, "is not null": OpNotNull,
}

// ParseOp resolves an operator name against the allow-list.
func ParseOp(s string) (Op, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := opArity[Op(s)]; ok {
		return Op(s), nil
	}
	if op, ok := opAliases[s]; ok {
		return op, nil
	}
	return "", fmt.Errorf("%w: operator %q is not allowed (allowed: %s)", ErrPlanRejected, s, strings.Join(Operators(), ", "))
}

// Operators lists the allowed operators, sorted.
func Operators() []string {
	ops := make([]string, 0, len(opArity))
	for op := range opArity {
		ops = append(ops, string(op))
	}
	sort.Strings(ops)
	return ops
}

// matchOp evaluates `cell op operand`. For list operators operand is []any.
func matchOp(op Op, cell, operand any) (bool, error) {
	switch op {
	case OpIsNull:
		return table.IsNull(cell), nil
	case OpNotNull:
		return !table.IsNull(cell), nil
	}
	if table.IsNull(cell) {
		return op == OpNe && !table.IsNull(operand), nil
	}

	switch op {
	case OpEq:
		return table.Equal(cell, operand), nil
	case OpNe:
		return !table.Equal(cell, operand), nil

	case OpGt, OpGe, OpLt, OpLe:
		if table.IsNull(operand) {
			return false, nil
		}
		cmp, err := table.Compare(cell, operand)
		if err != nil {
			return false, err
		}
		switch op {
		case OpGt:
			return cmp > 0, nil
		case OpGe:
			return cmp >= 0, nil
		case OpLt:
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}

	case OpIn, OpNotIn:
		list, ok := operand.([]any)
		if !ok {
			return false, fmt.Errorf("operator %s needs a list, got %s", op, table.TypeName(operand))
		}
		found := false
		for _, v := range list {
			if table.Equal(cell, v) {
				found = true
				break
			}
		}
		return found == (op == OpIn), nil

	case OpContains, OpStartsWith:
		s, ok := cell.(string)
		if !ok {
			return false, nil
		}
		sub, ok := operand.(string)
		if !ok {
			return false, fmt.Errorf("operator %s needs a string, got %s", op, table.TypeName(operand))
		}
		if op == OpContains {
			return strings.Contains(s, sub), nil
		}
		return strings.HasPrefix(s, sub), nil

	default:
		return false, fmt.Errorf("%w: operator %q is not allowed", ErrPlanRejected, op)
	}
}

// columnMask evaluates op over every cell of a column.
func columnMask(t *table.Table, column string, op Op, operand any) ([]bool, error) {
	c, ok := t.ColumnIndex(column)
	if !ok {
		return nil, &table.ColumnError{Column: column, Table: t.Name()}
	}
	mask := make([]bool, t.Len())
	for r := range mask {
		hit, err := matchOp(op, t.Cell(r, c), operand)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", column, op, err)
		}
		mask[r] = hit
	}
	return mask, nil
}
