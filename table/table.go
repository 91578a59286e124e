// Package table holds the immutable in-memory datasets queries run against.
package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ============================================================================
// TABLE: Immutable in-memory dataset
// ============================================================================
// A Table is a named, ordered set of typed columns over ordered rows.
// Every row carries an index label: its position in the table it was first
// loaded from. Labels survive filtering, sorting and projection, the way a
// dataframe index does, so a filtered result still says which source rows
// it came from.
//
// Tables are never mutated after construction. Every operation returns a
// new Table; row slices may be shared between tables for that reason.
// ============================================================================

// Kind is the storage type of a column.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// ParseKind maps a kind name back to a Kind. Unknown names are strings.
func ParseKind(s string) Kind {
	switch s {
	case "int", "integer":
		return KindInt
	case "float", "real", "number":
		return KindFloat
	case "bool", "boolean":
		return KindBool
	default:
		return KindString
	}
}

// Column describes one column of a Table.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"-"`
}

// MarshalJSON renders the kind by name.
func (c Column) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}{c.Name, c.Kind.String()})
}

// Table is an immutable dataset. The zero value is an empty, unnamed table.
type Table struct {
	name    string
	columns []Column
	lookup  map[string]int
	index   []int
	rows    [][]any
}

// New builds a table from rows of cells. Cells are normalized to nil, int64,
// float64, string or bool; every row must have one cell per column.
// Index labels are assigned 0..n-1.
func New(name string, columns []Column, rows [][]any) (*Table, error) {
	lookup := make(map[string]int, len(columns))
	for i, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("column %d has no name", i)
		}
		if _, dup := lookup[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		lookup[c.Name] = i
	}

	normalized := make([][]any, len(rows))
	index := make([]int, len(rows))
	for r, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", r, len(row), len(columns))
		}
		out := make([]any, len(row))
		for c, v := range row {
			nv, err := Normalize(v)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", r, columns[c].Name, err)
			}
			out[c] = nv
		}
		normalized[r] = out
		index[r] = r
	}

	return &Table{
		name:    name,
		columns: append([]Column(nil), columns...),
		lookup:  lookup,
		index:   index,
		rows:    normalized,
	}, nil
}

// MustNew is New for statically known data; it panics on error.
func MustNew(name string, columns []Column, rows [][]any) *Table {
	t, err := New(name, columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// FromRows builds a table from column names alone, inferring each column's
// kind from its values. Mixed int and float columns become float; any other
// mix is string.
func FromRows(name string, names []string, rows [][]any) (*Table, error) {
	columns := make([]Column, len(names))
	for i, n := range names {
		columns[i] = Column{Name: n}
	}
	t, err := New(name, columns, rows)
	if err != nil {
		return nil, err
	}
	for i := range t.columns {
		t.columns[i].Kind = kindFromValues(t.rows, i)
	}
	return t, nil
}

// derive builds a table sharing t's schema with a new row set.
func (t *Table) derive(index []int, rows [][]any) *Table {
	return &Table{
		name:    t.name,
		columns: t.columns,
		lookup:  t.lookup,
		index:   index,
		rows:    rows,
	}
}

// Name returns the dataset name.
func (t *Table) Name() string { return t.name }

// WithName returns the same data under another name.
func (t *Table) WithName(name string) *Table {
	out := t.derive(t.index, t.rows)
	out.name = name
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Columns returns a copy of the column descriptors.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.columns...)
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.lookup[name]
	return i, ok
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.lookup[name]
	return ok
}

// Column returns the descriptor of the named column.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.lookup[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// Cell returns the value at row r, column position c.
func (t *Table) Cell(r, c int) any { return t.rows[r][c] }

// Value returns the value at row r in the named column.
func (t *Table) Value(r int, name string) (any, bool) {
	c, ok := t.lookup[name]
	if !ok || r < 0 || r >= len(t.rows) {
		return nil, false
	}
	return t.rows[r][c], true
}

// Row returns row r. The slice is shared and must not be modified.
func (t *Table) Row(r int) []any { return t.rows[r] }

// Label returns the index label of row r.
func (t *Table) Label(r int) int { return t.index[r] }

// Index returns a copy of the row index labels.
func (t *Table) Index() []int { return append([]int(nil), t.index...) }

// Values returns every value of the named column, in row order.
func (t *Table) Values(name string) ([]any, error) {
	c, ok := t.lookup[name]
	if !ok {
		return nil, &ColumnError{Column: name, Table: t.name}
	}
	out := make([]any, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[c]
	}
	return out, nil
}

// ============================================================================
// ROW SELECTION
// ============================================================================

// Take returns the rows at the given positions, in the given order.
// Index labels travel with their rows.
func (t *Table) Take(positions []int) *Table {
	index := make([]int, len(positions))
	rows := make([][]any, len(positions))
	for i, p := range positions {
		index[i] = t.index[p]
		rows[i] = t.rows[p]
	}
	return t.derive(index, rows)
}

// Filter keeps the rows for which keep returns true.
func (t *Table) Filter(keep func(r int) bool) *Table {
	positions := make([]int, 0, len(t.rows))
	for r := range t.rows {
		if keep(r) {
			positions = append(positions, r)
		}
	}
	return t.Take(positions)
}

// FilterErr is Filter for predicates that can fail. The first error stops
// the scan.
func (t *Table) FilterErr(keep func(r int) (bool, error)) (*Table, error) {
	positions := make([]int, 0, len(t.rows))
	for r := range t.rows {
		ok, err := keep(r)
		if err != nil {
			return nil, err
		}
		if ok {
			positions = append(positions, r)
		}
	}
	return t.Take(positions), nil
}

// Mask keeps the rows whose mask entry is true. The mask must have one
// entry per row.
func (t *Table) Mask(mask []bool) (*Table, error) {
	if len(mask) != len(t.rows) {
		return nil, fmt.Errorf("mask has %d entries, table %q has %d rows", len(mask), t.name, len(t.rows))
	}
	return t.Filter(func(r int) bool { return mask[r] }), nil
}

// Head returns the first n rows (all rows if n exceeds the length).
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > len(t.rows) {
		n = len(t.rows)
	}
	return t.derive(t.index[:n:n], t.rows[:n:n])
}

// Select projects the table onto the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	positions := make([]int, len(names))
	columns := make([]Column, len(names))
	lookup := make(map[string]int, len(names))
	for i, name := range names {
		c, ok := t.lookup[name]
		if !ok {
			return nil, &ColumnError{Column: name, Table: t.name}
		}
		if _, dup := lookup[name]; dup {
			return nil, fmt.Errorf("column %q selected twice", name)
		}
		positions[i] = c
		columns[i] = t.columns[c]
		lookup[name] = i
	}

	rows := make([][]any, len(t.rows))
	for r, row := range t.rows {
		out := make([]any, len(positions))
		for i, c := range positions {
			out[i] = row[c]
		}
		rows[r] = out
	}

	return &Table{
		name:    t.name,
		columns: columns,
		lookup:  lookup,
		index:   t.index,
		rows:    rows,
	}, nil
}

// ============================================================================
// SERIALIZATION
// ============================================================================

// Records returns the rows as column-name → value maps.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.rows))
	for r, row := range t.rows {
		rec := make(map[string]any, len(t.columns))
		for c, col := range t.columns {
			rec[col.Name] = row[c]
		}
		out[r] = rec
	}
	return out
}

// ToDict returns column name → (index label → value), the shape a
// dataframe's to_dict() produces.
func (t *Table) ToDict() map[string]map[int]any {
	out := make(map[string]map[int]any, len(t.columns))
	for c, col := range t.columns {
		values := make(map[int]any, len(t.rows))
		for r, row := range t.rows {
			values[t.index[r]] = row[c]
		}
		out[col.Name] = values
	}
	return out
}

// DictJSON encodes ToDict as JSON with columns and rows in table order.
func (t *Table) DictJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for c, col := range t.columns {
		if c > 0 {
			buf.WriteString(", ")
		}
		name, err := json.Marshal(col.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteString(": {")
		for r, row := range t.rows {
			if r > 0 {
				buf.WriteString(", ")
			}
			buf.WriteByte('"')
			buf.WriteString(strconv.Itoa(t.index[r]))
			buf.WriteString(`": `)
			v, err := json.Marshal(row[c])
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", col.Name, t.index[r], err)
			}
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON encodes the table as {"name", "columns", "index", "rows"}.
func (t *Table) MarshalJSON() ([]byte, error) {
	rows := t.rows
	if rows == nil {
		rows = [][]any{}
	}
	index := t.index
	if index == nil {
		index = []int{}
	}
	return json.Marshal(struct {
		Name    string   `json:"name"`
		Columns []Column `json:"columns"`
		Index   []int    `json:"index"`
		Rows    [][]any  `json:"rows"`
	}{t.name, t.columns, index, rows})
}

// String renders a short description, e.g. "data_a[3x2]".
func (t *Table) String() string {
	return fmt.Sprintf("%s[%dx%d]", t.name, len(t.rows), len(t.columns))
}

// ColumnError reports a reference to a column the table does not have.
type ColumnError struct {
	Column string
	Table  string
}

func (e *ColumnError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("unknown column %q", e.Column)
	}
	return fmt.Sprintf("unknown column %q in %s", e.Column, e.Table)
}
