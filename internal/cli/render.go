package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/spektr-org/askdata/engine"
	"github.com/spektr-org/askdata/schema"
)

func alignment(a string) text.Align {
	switch a {
	case "right":
		return text.AlignRight
	case "center":
		return text.AlignCenter
	default:
		return text.AlignLeft
	}
}

// renderTable prints td with its index labels in the first column.
func renderTable(w io.Writer, td *engine.TableData) {
	if len(td.Columns) == 0 {
		_, _ = fmt.Fprintln(w, "(no columns)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if td.Title != "" {
		t.SetTitle(td.Title)
	}

	header := table.Row{""}
	configs := []table.ColumnConfig{{Number: 1, Align: text.AlignRight}}
	for i, c := range td.Columns {
		header = append(header, c.Key)
		configs = append(configs, table.ColumnConfig{Number: i + 2, Align: alignment(c.Align)})
	}
	t.AppendHeader(header)
	t.SetColumnConfigs(configs)

	for r, cells := range td.Rows {
		row := make(table.Row, 0, len(cells)+1)
		row = append(row, td.Index[r])
		for _, c := range cells {
			row = append(row, c)
		}
		t.AppendRow(row)
	}

	t.Render()
	if td.Summary != nil {
		_, _ = fmt.Fprintf(w, "(%s)\n", td.Summary.Label)
	}
}

// renderProfile prints one dataset profile.
func renderProfile(w io.Writer, p schema.Config, source string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%s: %s, %s rows", p.Name, source, engine.FormatInt(p.Rows)))

	t.AppendHeader(table.Row{"Column", "Kind", "Role", "Nulls", "Distinct", "Range", "Samples"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 7, WidthMax: 40},
	})
	for _, c := range p.Columns {
		rng := ""
		if c.Min != nil && c.Max != nil {
			rng = fmt.Sprintf("%v to %v", c.Min, c.Max)
		}
		t.AppendRow(table.Row{c.Name, c.Kind, string(c.Role), c.Nulls, c.Distinct, rng, strings.Join(c.SampleValues, ", ")})
	}
	t.Render()
}
