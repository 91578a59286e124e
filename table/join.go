package table

import (
	"fmt"
	"sort"
)

// ============================================================================
// JOIN / SORT / DEDUPE: Multi-row operations
// ============================================================================

// Join kinds accepted by Merge.
const (
	JoinInner = "inner"
	JoinLeft  = "left"
)

// Merge joins t with other on a shared key column. Columns other than the
// key that exist on both sides get "_x" (left) and "_y" (right) suffixes.
// The result is freshly indexed 0..n-1 in left-row order; for each left row
// the matching right rows appear in their original order. Null keys never
// match.
func (t *Table) Merge(other *Table, on string, how string) (*Table, error) {
	if how == "" {
		how = JoinInner
	}
	if how != JoinInner && how != JoinLeft {
		return nil, fmt.Errorf("unsupported join %q (want %q or %q)", how, JoinInner, JoinLeft)
	}
	lk, ok := t.lookup[on]
	if !ok {
		return nil, &ColumnError{Column: on, Table: t.name}
	}
	rk, ok := other.lookup[on]
	if !ok {
		return nil, &ColumnError{Column: on, Table: other.name}
	}

	// Output schema: all left columns, then right columns minus the key.
	columns := make([]Column, 0, len(t.columns)+len(other.columns)-1)
	for _, c := range t.columns {
		if c.Name != on && other.HasColumn(c.Name) {
			c.Name += "_x"
		}
		columns = append(columns, c)
	}
	rightCols := make([]int, 0, len(other.columns)-1)
	for i, c := range other.columns {
		if i == rk {
			continue
		}
		if t.HasColumn(c.Name) {
			c.Name += "_y"
		}
		columns = append(columns, c)
		rightCols = append(rightCols, i)
	}

	matches := make(map[any][]int, len(other.rows))
	for r, row := range other.rows {
		k := key(row[rk])
		if k == nil {
			continue
		}
		matches[k] = append(matches[k], r)
	}

	var rows [][]any
	for _, left := range t.rows {
		hits := matches[key(left[lk])]
		if len(hits) == 0 && how == JoinLeft {
			out := make([]any, 0, len(columns))
			out = append(out, left...)
			for range rightCols {
				out = append(out, nil)
			}
			rows = append(rows, out)
			continue
		}
		for _, r := range hits {
			right := other.rows[r]
			out := make([]any, 0, len(columns))
			out = append(out, left...)
			for _, c := range rightCols {
				out = append(out, right[c])
			}
			rows = append(rows, out)
		}
	}

	return New(t.name, columns, rows)
}

// Concat stacks other under t. Both tables must have the same column names
// in the same order. Index labels are kept, as a dataframe concat keeps them.
func (t *Table) Concat(other *Table) (*Table, error) {
	if len(t.columns) != len(other.columns) {
		return nil, fmt.Errorf("concat: %s has %d columns, %s has %d", t.name, len(t.columns), other.name, len(other.columns))
	}
	for i, c := range t.columns {
		if other.columns[i].Name != c.Name {
			return nil, fmt.Errorf("concat: column %d is %q in %s but %q in %s", i, c.Name, t.name, other.columns[i].Name, other.name)
		}
	}

	columns := t.Columns()
	for i, c := range other.columns {
		if columns[i].Kind != c.Kind {
			columns[i].Kind = widen(columns[i].Kind, c.Kind)
		}
	}

	index := make([]int, 0, len(t.rows)+len(other.rows))
	index = append(index, t.index...)
	index = append(index, other.index...)
	rows := make([][]any, 0, len(t.rows)+len(other.rows))
	rows = append(rows, t.rows...)
	rows = append(rows, other.rows...)

	return &Table{
		name:    t.name,
		columns: columns,
		lookup:  t.lookup,
		index:   index,
		rows:    rows,
	}, nil
}

func widen(a, b Kind) Kind {
	if (a == KindInt && b == KindFloat) || (a == KindFloat && b == KindInt) {
		return KindFloat
	}
	return KindString
}

// SortKey orders a sort by one column.
type SortKey struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc,omitempty"`
}

// Sort orders rows by the given keys. The sort is stable and nulls come
// last in either direction. Values of incomparable kinds are an error.
func (t *Table) Sort(keys ...SortKey) (*Table, error) {
	cols := make([]int, len(keys))
	for i, k := range keys {
		c, ok := t.lookup[k.Column]
		if !ok {
			return nil, &ColumnError{Column: k.Column, Table: t.name}
		}
		cols[i] = c
	}

	positions := make([]int, len(t.rows))
	for i := range positions {
		positions[i] = i
	}

	var cmpErr error
	sort.SliceStable(positions, func(i, j int) bool {
		a, b := t.rows[positions[i]], t.rows[positions[j]]
		for k, c := range cols {
			an, bn := IsNull(a[c]), IsNull(b[c])
			switch {
			case an && bn:
				continue
			case an:
				return false
			case bn:
				return true
			}
			cmp, err := Compare(a[c], b[c])
			if err != nil {
				if cmpErr == nil {
					cmpErr = fmt.Errorf("sort by %s: %w", keys[k].Column, err)
				}
				return false
			}
			if cmp == 0 {
				continue
			}
			if keys[k].Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	if cmpErr != nil {
		return nil, cmpErr
	}

	return t.Take(positions), nil
}

// DropDuplicates keeps the first row of every distinct combination of the
// subset columns (all columns when subset is empty).
func (t *Table) DropDuplicates(subset ...string) (*Table, error) {
	if len(subset) == 0 {
		subset = t.ColumnNames()
	}
	cols := make([]int, len(subset))
	for i, name := range subset {
		c, ok := t.lookup[name]
		if !ok {
			return nil, &ColumnError{Column: name, Table: t.name}
		}
		cols[i] = c
	}

	seen := make(map[string]bool, len(t.rows))
	return t.Filter(func(r int) bool {
		k := rowKey(t.rows[r], cols)
		if seen[k] {
			return false
		}
		seen[k] = true
		return true
	}), nil
}

// rowKey builds a string key for the given cells of a row.
func rowKey(row []any, cols []int) string {
	parts := make([]any, len(cols))
	for i, c := range cols {
		parts[i] = key(row[c])
	}
	return fmt.Sprintf("%#v", parts)
}
