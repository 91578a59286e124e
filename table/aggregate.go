package table

import (
	"fmt"
)

// ============================================================================
// AGGREGATORS: Column reductions and grouped aggregation
// ============================================================================
// Reductions skip nulls. sum/mean/min/max need a numeric column (min and
// max also accept strings); count counts non-null cells.
// ============================================================================

// Aggregations supported by Aggregate and GroupBy.
var Aggregations = []string{"count", "sum", "mean", "min", "max"}

// Aggregate reduces the named column with agg.
func (t *Table) Aggregate(column, agg string) (any, error) {
	values, err := t.Values(column)
	if err != nil {
		return nil, err
	}
	return Reduce(values, agg)
}

// Reduce applies an aggregation to a slice of cells. An empty input yields
// 0 for count and sum and null otherwise.
func Reduce(values []any, agg string) (any, error) {
	switch agg {
	case "count":
		n := int64(0)
		for _, v := range values {
			if !IsNull(v) {
				n++
			}
		}
		return n, nil

	case "sum", "mean":
		var (
			isum    int64
			fsum    float64
			n       int
			isFloat bool
		)
		for _, v := range values {
			if IsNull(v) {
				continue
			}
			switch x := v.(type) {
			case int64:
				isum += x
				fsum += float64(x)
			case float64:
				isFloat = true
				fsum += x
			default:
				return nil, fmt.Errorf("%s of non-numeric value %s", agg, TypeName(v))
			}
			n++
		}
		if agg == "mean" {
			if n == 0 {
				return nil, nil
			}
			return fsum / float64(n), nil
		}
		if isFloat {
			return fsum, nil
		}
		return isum, nil

	case "min", "max":
		var best any
		for _, v := range values {
			if IsNull(v) {
				continue
			}
			if best == nil {
				best = v
				continue
			}
			cmp, err := Compare(v, best)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", agg, err)
			}
			if (agg == "min" && cmp < 0) || (agg == "max" && cmp > 0) {
				best = v
			}
		}
		return best, nil

	default:
		return nil, fmt.Errorf("unknown aggregation %q (want one of %v)", agg, Aggregations)
	}
}

// GroupBy groups rows by the key columns, in first-seen order, and reduces
// column with agg inside every group. The result has the key columns
// followed by one column named "<agg>_<column>".
func (t *Table) GroupBy(keys []string, column, agg string) (*Table, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("group by needs at least one key column")
	}
	keyCols := make([]int, len(keys))
	columns := make([]Column, 0, len(keys)+1)
	for i, k := range keys {
		c, ok := t.lookup[k]
		if !ok {
			return nil, &ColumnError{Column: k, Table: t.name}
		}
		keyCols[i] = c
		columns = append(columns, t.columns[c])
	}
	valueCol, ok := t.lookup[column]
	if !ok {
		return nil, &ColumnError{Column: column, Table: t.name}
	}

	grouped := make(map[string][]any)
	first := make(map[string][]any)
	var order []string
	for _, row := range t.rows {
		k := rowKey(row, keyCols)
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
			keyVals := make([]any, len(keyCols))
			for i, c := range keyCols {
				keyVals[i] = row[c]
			}
			first[k] = keyVals
			grouped[k] = []any{}
		}
		grouped[k] = append(grouped[k], row[valueCol])
	}

	rows := make([][]any, 0, len(order))
	for _, k := range order {
		v, err := Reduce(grouped[k], agg)
		if err != nil {
			return nil, fmt.Errorf("group %v: %w", first[k], err)
		}
		rows = append(rows, append(append([]any(nil), first[k]...), v))
	}

	columns = append(columns, Column{
		Name: agg + "_" + column,
		Kind: aggregateKind(t.columns[valueCol].Kind, agg),
	})
	return New(t.name, columns, rows)
}

func aggregateKind(src Kind, agg string) Kind {
	switch agg {
	case "count":
		return KindInt
	case "mean":
		return KindFloat
	default:
		return src
	}
}
