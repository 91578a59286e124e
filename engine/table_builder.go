package engine

import (
	"fmt"
	"strings"

	"github.com/spektr-org/askdata/table"
)

// ============================================================================
// TABLE BUILDER: Render-ready view of a result table
// ============================================================================
// Front-ends (CLI, JSON output) never format cells themselves. BuildTable
// turns a result into labelled, aligned string rows.
// ============================================================================

// TableData defines how to render a table.
type TableData struct {
	Title   string       `json:"title"`
	Columns []ColumnSpec `json:"columns"`
	Index   []int        `json:"index"`
	Rows    [][]string   `json:"rows"`
	Summary *Summary     `json:"summary,omitempty"`
}

// ColumnSpec defines a table column.
type ColumnSpec struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`  // "text", "number", "bool"
	Align string `json:"align"` // "left", "right", "center"
}

// Summary provides totals for a table.
type Summary struct {
	Label  string            `json:"label"`
	Values map[string]string `json:"values,omitempty"`
}

// BuildTable produces TableData for t, keeping at most limit rows
// (limit <= 0 keeps all). Index labels are carried so the original row
// numbers stay visible.
func BuildTable(t *table.Table, title string, limit int) *TableData {
	td := &TableData{
		Title:   title,
		Columns: []ColumnSpec{},
		Index:   []int{},
		Rows:    [][]string{},
	}
	if t == nil {
		return td
	}

	for _, c := range t.Columns() {
		spec := ColumnSpec{Key: c.Name, Label: LabelForColumn(c.Name), Type: "text", Align: "left"}
		switch c.Kind {
		case table.KindInt, table.KindFloat:
			spec.Type, spec.Align = "number", "right"
		case table.KindBool:
			spec.Type, spec.Align = "bool", "center"
		}
		td.Columns = append(td.Columns, spec)
	}

	shown := t
	if limit > 0 && t.Len() > limit {
		shown = t.Head(limit)
	}
	for r := 0; r < shown.Len(); r++ {
		row := make([]string, len(td.Columns))
		for c := range row {
			row[c] = table.Format(shown.Cell(r, c))
		}
		td.Rows = append(td.Rows, row)
		td.Index = append(td.Index, shown.Label(r))
	}

	label := fmt.Sprintf("%s rows", FormatInt(t.Len()))
	if shown.Len() < t.Len() {
		label = fmt.Sprintf("showing %s of %s rows", FormatInt(shown.Len()), FormatInt(t.Len()))
	}
	td.Summary = &Summary{Label: label}
	return td
}

// LabelForColumn turns a column key into a heading: "Patient_Number"
// becomes "Patient Number".
func LabelForColumn(key string) string {
	if key == "" {
		return ""
	}
	label := strings.ReplaceAll(key, "_", " ")
	return strings.ToUpper(label[:1]) + label[1:]
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%03d", FormatInt(n/1000), n%1000)
}
