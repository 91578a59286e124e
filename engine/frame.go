package engine

import (
	"fmt"
	"sort"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"

	"github.com/spektr-org/askdata/table"
)

// ============================================================================
// FRAME VALUES: Tables, columns and masks as Starlark values
// ============================================================================
// Scripts filter with dataframe-like syntax:
//
//	filtered_data = data_a[data_a["Age"].gt(30) & data_a["Smoker"].eq(True)]
//	filtered_data = data_a.filter(lambda row: row["Age"] > 30)
//
// Starlark comparisons must return booleans, so element-wise comparisons are
// column methods (gt, ge, lt, le, eq, ne, ...) that return a Mask. Masks
// combine with &, | and ~. Every value wraps an immutable table.Table.
// ============================================================================

var (
	_ starlark.Mapping   = (*Frame)(nil)
	_ starlark.HasAttrs  = (*Frame)(nil)
	_ starlark.Indexable = (*Frame)(nil)
	_ starlark.Indexable = (*Column)(nil)
	_ starlark.Iterable  = (*Column)(nil)
	_ starlark.HasAttrs  = (*Column)(nil)
	_ starlark.HasBinary = (*Mask)(nil)
	_ starlark.HasUnary  = (*Mask)(nil)
	_ starlark.Iterable  = (*Mask)(nil)
)

// ============================================================================
// FRAME
// ============================================================================

// Frame exposes a table to scripts.
type Frame struct {
	t *table.Table
}

// NewFrame wraps t.
func NewFrame(t *table.Table) *Frame { return &Frame{t: t} }

// Table returns the wrapped table.
func (f *Frame) Table() *table.Table { return f.t }

func (f *Frame) String() string {
	return fmt.Sprintf("<table %s: %d rows x %d columns>", f.t.Name(), f.t.Len(), len(f.t.Columns()))
}
func (f *Frame) Type() string          { return "table" }
func (f *Frame) Freeze()               {}
func (f *Frame) Truth() starlark.Bool  { return starlark.True }
func (f *Frame) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: table") }
func (f *Frame) Len() int              { return f.t.Len() }

// Index returns row i as a dict.
func (f *Frame) Index(i int) starlark.Value { return f.rowDict(i) }

// Get implements t["col"], t[mask], t[["a", "b"]] and t[i].
func (f *Frame) Get(k starlark.Value) (starlark.Value, bool, error) {
	switch key := k.(type) {
	case starlark.String:
		col, err := newColumn(f.t, string(key))
		if err != nil {
			return nil, false, err
		}
		return col, true, nil

	case *Mask:
		out, err := f.t.Mask(key.bits)
		if err != nil {
			return nil, false, err
		}
		return NewFrame(out), true, nil

	case *starlark.List, starlark.Tuple:
		names, err := stringList(key)
		if err != nil {
			return nil, false, err
		}
		out, err := f.t.Select(names...)
		if err != nil {
			return nil, false, err
		}
		return NewFrame(out), true, nil

	case starlark.Int:
		i, ok := key.Int64()
		n := int64(f.t.Len())
		if ok && i < 0 {
			i += n
		}
		if !ok || i < 0 || i >= n {
			return nil, false, fmt.Errorf("row index %s out of range [0:%d]", key, n)
		}
		return f.rowDict(int(i)), true, nil

	default:
		return nil, false, fmt.Errorf("table index must be a column name, list of names, mask or int, got %s", k.Type())
	}
}

func (f *Frame) rowDict(r int) *starlark.Dict {
	cols := f.t.Columns()
	d := starlark.NewDict(len(cols))
	for c, col := range cols {
		_ = d.SetKey(starlark.String(col.Name), toStarlark(f.t.Cell(r, c)))
	}
	d.Freeze()
	return d
}

func (f *Frame) Attr(name string) (starlark.Value, error) {
	switch name {
	case "columns":
		return stringsToList(f.t.ColumnNames()), nil
	case "shape":
		return starlark.Tuple{starlark.MakeInt(f.t.Len()), starlark.MakeInt(len(f.t.Columns()))}, nil
	case "empty":
		return starlark.Bool(f.t.Len() == 0), nil
	}
	if fn, ok := frameMethods[name]; ok {
		return starlark.NewBuiltin(name, fn).BindReceiver(f), nil
	}
	return nil, nil
}

func (f *Frame) AttrNames() []string {
	names := []string{"columns", "shape", "empty"}
	for name := range frameMethods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type builtinFunc = func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error)

var frameMethods map[string]builtinFunc

func init() {
	frameMethods = map[string]builtinFunc{
		"filter":          frameFilter,
		"where":           frameWhere,
		"select":          frameSelect,
		"merge":           frameMerge,
		"sort_values":     frameSortValues,
		"head":            frameHead,
		"rows":            frameRows,
		"groupby":         frameGroupBy,
		"drop_duplicates": frameDropDuplicates,
		"to_dict":         frameToDict,
	}
}

func receiverFrame(b *starlark.Builtin) *Frame { return b.Receiver().(*Frame) }

// filter(fn) keeps rows for which fn(row) is truthy.
func frameFilter(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	f := receiverFrame(b)
	var fn starlark.Callable
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &fn); err != nil {
		return nil, err
	}
	out, err := f.t.FilterErr(func(r int) (bool, error) {
		res, err := starlark.Call(thread, fn, starlark.Tuple{f.rowDict(r)}, nil)
		if err != nil {
			return false, err
		}
		return bool(res.Truth()), nil
	})
	if err != nil {
		return nil, err
	}
	return NewFrame(out), nil
}

// where(column, op, value=None) keeps rows matching one condition.
func frameWhere(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	f := receiverFrame(b)
	var (
		column, opName string
		value          starlark.Value = starlark.None
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "column", &column, "op", &opName, "value?", &value); err != nil {
		return nil, err
	}
	op, err := ParseOp(opName)
	if err != nil {
		return nil, err
	}
	operand, err := operandFor(op, value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	mask, err := columnMask(f.t, column, op, operand)
	if err != nil {
		return nil, err
	}
	out, err := f.t.Mask(mask)
	if err != nil {
		return nil, err
	}
	return NewFrame(out), nil
}

// select(*columns) keeps the named columns.
func frameSelect(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	names, err := stringList(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	out, err := receiverFrame(b).t.Select(names...)
	if err != nil {
		return nil, err
	}
	return NewFrame(out), nil
}

// merge(other, on=None, how="inner") joins two tables on a key column.
func frameMerge(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		other starlark.Value
		on    string
		how   = table.JoinInner
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "other", &other, "on?", &on, "how?", &how); err != nil {
		return nil, err
	}
	return mergeFrames(b.Name(), receiverFrame(b), other, on, how)
}

func mergeFrames(fnName string, left *Frame, rightVal starlark.Value, on, how string) (starlark.Value, error) {
	right, ok := rightVal.(*Frame)
	if !ok {
		return nil, fmt.Errorf("%s: want table, got %s", fnName, rightVal.Type())
	}
	if on == "" {
		var shared []string
		for _, name := range left.t.ColumnNames() {
			if right.t.HasColumn(name) {
				shared = append(shared, name)
			}
		}
		if len(shared) != 1 {
			return nil, fmt.Errorf("%s: tables share columns %v, pass on= to choose the key", fnName, shared)
		}
		on = shared[0]
	}
	out, err := left.t.Merge(right.t, on, how)
	if err != nil {
		return nil, err
	}
	return NewFrame(out), nil
}

// sort_values(by, ascending=True) orders rows; by and ascending may be lists.
func frameSortValues(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var by, ascending starlark.Value = nil, starlark.True
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "by", &by, "ascending?", &ascending); err != nil {
		return nil, err
	}
	names, err := stringList(by)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}

	asc := make([]bool, len(names))
	switch a := ascending.(type) {
	case starlark.Bool:
		for i := range asc {
			asc[i] = bool(a)
		}
	case *starlark.List, starlark.Tuple:
		seq := a.(starlark.Indexable)
		if seq.Len() != len(names) {
			return nil, fmt.Errorf("%s: ascending has %d entries for %d columns", b.Name(), seq.Len(), len(names))
		}
		for i := range asc {
			v, ok := seq.Index(i).(starlark.Bool)
			if !ok {
				return nil, fmt.Errorf("%s: ascending must hold bools", b.Name())
			}
			asc[i] = bool(v)
		}
	default:
		return nil, fmt.Errorf("%s: ascending must be a bool or list of bools, got %s", b.Name(), ascending.Type())
	}

	keys := make([]table.SortKey, len(names))
	for i, name := range names {
		keys[i] = table.SortKey{Column: name, Desc: !asc[i]}
	}
	out, err := receiverFrame(b).t.Sort(keys...)
	if err != nil {
		return nil, err
	}
	return NewFrame(out), nil
}

// head(n=5) keeps the first n rows.
func frameHead(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	n := 5
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "n?", &n); err != nil {
		return nil, err
	}
	return NewFrame(receiverFrame(b).t.Head(n)), nil
}

// rows() returns every row as a dict.
func frameRows(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	f := receiverFrame(b)
	rows := make([]starlark.Value, f.t.Len())
	for r := range rows {
		rows[r] = f.rowDict(r)
	}
	return starlark.NewList(rows), nil
}

// groupby(by, column, agg="sum") aggregates column within each group.
func frameGroupBy(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		by     starlark.Value
		column string
		agg    = "sum"
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "by", &by, "column", &column, "agg?", &agg); err != nil {
		return nil, err
	}
	keys, err := stringList(by)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	out, err := receiverFrame(b).t.GroupBy(keys, column, agg)
	if err != nil {
		return nil, err
	}
	return NewFrame(out), nil
}

// drop_duplicates(subset=None) keeps the first of each distinct row.
func frameDropDuplicates(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var subset starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "subset?", &subset); err != nil {
		return nil, err
	}
	var names []string
	if subset != starlark.None {
		var err error
		if names, err = stringList(subset); err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
	}
	out, err := receiverFrame(b).t.DropDuplicates(names...)
	if err != nil {
		return nil, err
	}
	return NewFrame(out), nil
}

// to_dict() returns {column: {label: value}}.
func frameToDict(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	t := receiverFrame(b).t
	out := starlark.NewDict(len(t.Columns()))
	for c, col := range t.Columns() {
		values := starlark.NewDict(t.Len())
		for r := 0; r < t.Len(); r++ {
			_ = values.SetKey(starlark.MakeInt(t.Label(r)), toStarlark(t.Cell(r, c)))
		}
		_ = out.SetKey(starlark.String(col.Name), values)
	}
	return out, nil
}

// ============================================================================
// COLUMN
// ============================================================================

// Column is one column of a table, bound to its rows.
type Column struct {
	t    *table.Table
	name string
	pos  int
}

func newColumn(t *table.Table, name string) (*Column, error) {
	pos, ok := t.ColumnIndex(name)
	if !ok {
		return nil, &table.ColumnError{Column: name, Table: t.Name()}
	}
	return &Column{t: t, name: name, pos: pos}, nil
}

func (c *Column) String() string        { return fmt.Sprintf("<column %s: %d values>", c.name, c.t.Len()) }
func (c *Column) Type() string          { return "column" }
func (c *Column) Freeze()               {}
func (c *Column) Truth() starlark.Bool  { return starlark.True }
func (c *Column) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: column") }
func (c *Column) Len() int              { return c.t.Len() }

func (c *Column) Index(i int) starlark.Value { return toStarlark(c.t.Cell(i, c.pos)) }

func (c *Column) Iterate() starlark.Iterator {
	return &indexIterator{n: c.Len(), at: c.Index}
}

func (c *Column) Attr(name string) (starlark.Value, error) {
	if name == "name" {
		return starlark.String(c.name), nil
	}
	if fn, ok := columnMethods[name]; ok {
		return starlark.NewBuiltin(name, fn).BindReceiver(c), nil
	}
	return nil, nil
}

func (c *Column) AttrNames() []string {
	names := []string{"name"}
	for name := range columnMethods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var columnMethods map[string]builtinFunc

func init() {
	columnMethods = map[string]builtinFunc{
		"gt":         compareMethod(OpGt),
		"ge":         compareMethod(OpGe),
		"lt":         compareMethod(OpLt),
		"le":         compareMethod(OpLe),
		"eq":         compareMethod(OpEq),
		"ne":         compareMethod(OpNe),
		"isin":       compareMethod(OpIn),
		"contains":   compareMethod(OpContains),
		"startswith": compareMethod(OpStartsWith),
		"isnull":     compareMethod(OpIsNull),
		"notnull":    compareMethod(OpNotNull),
		"between":    columnBetween,
		"sum":        reduceMethod("sum"),
		"mean":       reduceMethod("mean"),
		"min":        reduceMethod("min"),
		"max":        reduceMethod("max"),
		"count":      reduceMethod("count"),
		"unique":     columnUnique,
		"tolist":     columnToList,
	}
}

func receiverColumn(b *starlark.Builtin) *Column { return b.Receiver().(*Column) }

// compareMethod builds col.<op>(value) returning a Mask.
func compareMethod(op Op) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var value starlark.Value = starlark.None
		if opArity[op] == 0 {
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
				return nil, err
			}
		} else if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &value); err != nil {
			return nil, err
		}
		operand, err := operandFor(op, value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		c := receiverColumn(b)
		bits, err := columnMask(c.t, c.name, op, operand)
		if err != nil {
			return nil, err
		}
		return &Mask{bits: bits}, nil
	}
}

// between(lo, hi) is inclusive on both ends.
func columnBetween(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var lo, hi starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &lo, &hi); err != nil {
		return nil, err
	}
	c := receiverColumn(b)
	loV, err := fromStarlark(lo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	hiV, err := fromStarlark(hi)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	low, err := columnMask(c.t, c.name, OpGe, loV)
	if err != nil {
		return nil, err
	}
	high, err := columnMask(c.t, c.name, OpLe, hiV)
	if err != nil {
		return nil, err
	}
	for i := range low {
		low[i] = low[i] && high[i]
	}
	return &Mask{bits: low}, nil
}

func reduceMethod(agg string) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
			return nil, err
		}
		c := receiverColumn(b)
		v, err := c.t.Aggregate(c.name, agg)
		if err != nil {
			return nil, err
		}
		return toStarlark(v), nil
	}
}

// unique() returns distinct values in first-seen order.
func columnUnique(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	c := receiverColumn(b)
	var out []starlark.Value
	var seen []any
	for r := 0; r < c.t.Len(); r++ {
		v := c.t.Cell(r, c.pos)
		dup := false
		for _, s := range seen {
			if table.Equal(s, v) {
				dup = true
				break
			}
		}
		if !dup {
			seen = append(seen, v)
			out = append(out, toStarlark(v))
		}
	}
	return starlark.NewList(out), nil
}

func columnToList(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	c := receiverColumn(b)
	out := make([]starlark.Value, c.Len())
	for i := range out {
		out[i] = c.Index(i)
	}
	return starlark.NewList(out), nil
}

// ============================================================================
// MASK
// ============================================================================

// Mask is a row selector produced by column comparisons.
type Mask struct {
	bits []bool
}

func (m *Mask) String() string {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return fmt.Sprintf("<mask %d/%d>", n, len(m.bits))
}
func (m *Mask) Type() string          { return "mask" }
func (m *Mask) Freeze()               {}
func (m *Mask) Truth() starlark.Bool  { return starlark.True }
func (m *Mask) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: mask") }
func (m *Mask) Len() int              { return len(m.bits) }

func (m *Mask) Index(i int) starlark.Value { return starlark.Bool(m.bits[i]) }

func (m *Mask) Iterate() starlark.Iterator {
	return &indexIterator{n: len(m.bits), at: m.Index}
}

// Binary implements mask & mask, mask | mask and mask ^ mask.
func (m *Mask) Binary(op syntax.Token, y starlark.Value, _ starlark.Side) (starlark.Value, error) {
	other, ok := y.(*Mask)
	if !ok {
		return nil, nil
	}
	if len(other.bits) != len(m.bits) {
		return nil, fmt.Errorf("cannot combine masks of length %d and %d", len(m.bits), len(other.bits))
	}
	out := make([]bool, len(m.bits))
	switch op {
	case syntax.AMP:
		for i := range out {
			out[i] = m.bits[i] && other.bits[i]
		}
	case syntax.PIPE:
		for i := range out {
			out[i] = m.bits[i] || other.bits[i]
		}
	case syntax.CIRCUMFLEX:
		for i := range out {
			out[i] = m.bits[i] != other.bits[i]
		}
	default:
		return nil, nil
	}
	return &Mask{bits: out}, nil
}

// Unary implements ~mask.
func (m *Mask) Unary(op syntax.Token) (starlark.Value, error) {
	if op != syntax.TILDE {
		return nil, nil
	}
	out := make([]bool, len(m.bits))
	for i, b := range m.bits {
		out[i] = !b
	}
	return &Mask{bits: out}, nil
}

type indexIterator struct {
	n, i int
	at   func(int) starlark.Value
}

func (it *indexIterator) Next(p *starlark.Value) bool {
	if it.i >= it.n {
		return false
	}
	*p = it.at(it.i)
	it.i++
	return true
}

func (it *indexIterator) Done() {}

// ============================================================================
// MODULE: the "frame" library handle
// ============================================================================

// frameModule is bound as LibraryBinding. It holds only pure builtins and
// is safe to share between executions.
var frameModule = &starlarkstruct.Module{
	Name: LibraryBinding,
	Members: starlark.StringDict{
		"table":  starlark.NewBuiltin("frame.table", moduleTable),
		"merge":  starlark.NewBuiltin("frame.merge", moduleMerge),
		"concat": starlark.NewBuiltin("frame.concat", moduleConcat),
	},
}

// frame.table(columns, rows) builds a table from literal data.
func moduleTable(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var columns, rows starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "columns", &columns, "rows", &rows); err != nil {
		return nil, err
	}
	names, err := stringList(columns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	rowList, err := valueList(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	data := make([][]any, len(rowList))
	for i, rv := range rowList {
		cells, err := valueList(rv)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", b.Name(), i, err)
		}
		data[i] = make([]any, len(cells))
		for j, cv := range cells {
			if data[i][j], err = fromStarlark(cv); err != nil {
				return nil, fmt.Errorf("%s: row %d: %w", b.Name(), i, err)
			}
		}
	}
	t, err := table.FromRows("table", names, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return NewFrame(t), nil
}

// frame.merge(left, right, on=None, how="inner").
func moduleMerge(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		left, right starlark.Value
		on          string
		how         = table.JoinInner
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "left", &left, "right", &right, "on?", &on, "how?", &how); err != nil {
		return nil, err
	}
	lf, ok := left.(*Frame)
	if !ok {
		return nil, fmt.Errorf("%s: want table, got %s", b.Name(), left.Type())
	}
	return mergeFrames(b.Name(), lf, right, on, how)
}

// frame.concat(a, b) stacks two tables with identical columns.
func moduleConcat(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var top, bottom starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &top, &bottom); err != nil {
		return nil, err
	}
	tf, ok1 := top.(*Frame)
	bf, ok2 := bottom.(*Frame)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("%s: want two tables, got %s and %s", b.Name(), top.Type(), bottom.Type())
	}
	out, err := tf.t.Concat(bf.t)
	if err != nil {
		return nil, err
	}
	return NewFrame(out), nil
}

// ============================================================================
// CONVERSION
// ============================================================================

func toStarlark(v any) starlark.Value {
	switch x := v.(type) {
	case nil:
		return starlark.None
	case int64:
		return starlark.MakeInt64(x)
	case float64:
		return starlark.Float(x)
	case string:
		return starlark.String(x)
	case bool:
		return starlark.Bool(x)
	default:
		return starlark.String(fmt.Sprint(x))
	}
}

func fromStarlark(v starlark.Value) (any, error) {
	switch x := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Int:
		i, ok := x.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %s out of range", x)
		}
		return i, nil
	case starlark.Float:
		return float64(x), nil
	case starlark.String:
		return string(x), nil
	case starlark.Bool:
		return bool(x), nil
	default:
		return nil, fmt.Errorf("unsupported value of type %s", v.Type())
	}
}

// operandFor converts a method argument for op; list operators take an
// iterable.
func operandFor(op Op, v starlark.Value) (any, error) {
	switch opArity[op] {
	case 0:
		return nil, nil
	case 2:
		items, err := valueList(v)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, item := range items {
			if out[i], err = fromStarlark(item); err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		return fromStarlark(v)
	}
}

// valueList drains any iterable except strings.
func valueList(v starlark.Value) ([]starlark.Value, error) {
	if _, ok := v.(starlark.String); ok {
		return nil, fmt.Errorf("want a list, got string")
	}
	iter := starlark.Iterate(v)
	if iter == nil {
		return nil, fmt.Errorf("want a list, got %s", v.Type())
	}
	defer iter.Done()

	var out []starlark.Value
	var x starlark.Value
	for iter.Next(&x) {
		out = append(out, x)
	}
	return out, nil
}

// stringList accepts a single string or an iterable of strings.
func stringList(v starlark.Value) ([]string, error) {
	if s, ok := v.(starlark.String); ok {
		return []string{string(s)}, nil
	}
	items, err := valueList(v)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(starlark.String)
		if !ok {
			return nil, fmt.Errorf("want column names, got %s", item.Type())
		}
		out[i] = string(s)
	}
	return out, nil
}

func stringsToList(names []string) *starlark.List {
	out := make([]starlark.Value, len(names))
	for i, n := range names {
		out[i] = starlark.String(n)
	}
	return starlark.NewList(out)
}
