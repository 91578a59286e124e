package translator

import (
	"fmt"
	"strings"

	"github.com/spektr-org/askdata/engine"
	"github.com/spektr-org/askdata/schema"
)

// ============================================================================
// PROMPT BUILDER: Synthesis and interpretation prompts
// ============================================================================
// Synthesis prompt layout:
//   - both column lists, rendered as ['a', 'b']
//   - the question, quoted verbatim
//   - the bindings data_a / data_b, the join key and the output name
//   - optional column details from schema profiles
//   - the API the generated code may use (script) or the plan grammar (plan)
//
// Interpretation prompt: the result as {column: {row: value}} JSON plus the
// question, with a fixed instruction about recommendations.
// ============================================================================

const (
	scriptSystemPrompt    = "You are a helpful assistant that writes Starlark scripts for data analysis tasks."
	planSystemPrompt      = "You are a helpful assistant that writes JSON filter plans for data analysis tasks."
	interpretSystemPrompt = "You are a helpful assistant that analyzes data and answers questions based on it."
)

// SystemPrompt returns the synthesis system instruction for mode.
func SystemPrompt(mode engine.Mode) string {
	if mode == engine.ModePlan {
		return planSystemPrompt
	}
	return scriptSystemPrompt
}

// BuildSynthesisPrompt builds the user instruction from column names alone.
func BuildSynthesisPrompt(query string, columnsA, columnsB []string, joinKey string, mode engine.Mode) string {
	return buildSynthesisPrompt(query, columnsA, columnsB, "", joinKey, mode)
}

// BuildSchemaPrompt is BuildSynthesisPrompt with column kinds, roles and
// sample values appended.
func BuildSchemaPrompt(query string, a, b schema.Config, joinKey string, mode engine.Mode) string {
	var details strings.Builder
	details.WriteString("Column details:\n")
	writeColumnDetails(&details, "Dataset A", a)
	writeColumnDetails(&details, "Dataset B", b)
	return buildSynthesisPrompt(query, a.ColumnNames(), b.ColumnNames(), details.String(), joinKey, mode)
}

func buildSynthesisPrompt(query string, columnsA, columnsB []string, details, joinKey string, mode engine.Mode) string {
	var b strings.Builder

	kind := "Starlark script"
	if mode == engine.ModePlan {
		kind = "JSON filter plan"
	}

	// ── Datasets and question ─────────────────────────────────────────────
	b.WriteString("I have two datasets with the following columns:\n")
	fmt.Fprintf(&b, "Dataset A: %s\n", pyList(columnsA))
	fmt.Fprintf(&b, "Dataset B: %s\n", pyList(columnsB))
	fmt.Fprintf(&b, "Write a %s to filter these datasets based on this query: \"%s\".\n", kind, query)
	fmt.Fprintf(&b, "The datasets are named '%s' and '%s' and are linked by a column called '%s'.\n",
		engine.BindingA, engine.BindingB, joinKey)
	if mode == engine.ModePlan {
		fmt.Fprintf(&b, "Don't describe the result, just put the plan under the key '%s'.\n", engine.OutputBinding)
	} else {
		fmt.Fprintf(&b, "Don't print the result, just store it in a variable called '%s'.\n", engine.OutputBinding)
	}

	if details != "" {
		b.WriteString("\n")
		b.WriteString(details)
	}

	// ── Target language ───────────────────────────────────────────────────
	b.WriteString("\n")
	if mode == engine.ModePlan {
		b.WriteString(planReference(joinKey))
	} else {
		b.WriteString(scriptReference)
	}
	return b.String()
}

// BuildInterpretationPrompt builds the user instruction for the Interpreter.
// data is the result encoded as {column: {row label: value}}.
func BuildInterpretationPrompt(query, data string) string {
	return fmt.Sprintf("Given the following dataset: %s, answer this user query: \"%s\". "+
		"Provide a concise and relevant response based on the context of the data. "+
		"If you have generated a recommendation, add information about the need to consult it with a doctor before implementing it.",
		data, query)
}

// ============================================================================
// SECTION BUILDERS
// ============================================================================

func writeColumnDetails(b *strings.Builder, label string, sch schema.Config) {
	fmt.Fprintf(b, "%s (%d rows):\n", label, sch.Rows)
	if sch.Description != "" {
		fmt.Fprintf(b, "%s\n", sch.Description)
	}
	for _, c := range sch.Columns {
		fmt.Fprintf(b, "- %s (%s, %s)", c.Name, c.Kind, c.Role)
		if c.Description != "" {
			fmt.Fprintf(b, ": %s", c.Description)
		}
		if c.Unit != "" {
			fmt.Fprintf(b, ", in %s", c.Unit)
		}
		if c.Nulls > 0 {
			fmt.Fprintf(b, ", %d missing", c.Nulls)
		}
		if c.Min != nil && c.Max != nil {
			fmt.Fprintf(b, ", range %v to %v", c.Min, c.Max)
		}
		if len(c.SampleValues) > 0 {
			fmt.Fprintf(b, ", e.g. [%s]", strings.Join(quotedValues(c.SampleValues), ", "))
		}
		b.WriteString("\n")
	}
}

const scriptReference = `The script runs in Starlark, a small Python dialect with no imports, files or printing.
data_a and data_b are read-only tables with this API:
- t["col"] is a column, t[["a", "b"]] keeps those columns, t[mask] keeps the rows where mask is true
- columns compare with methods, not operators: c.gt(v), c.ge(v), c.lt(v), c.le(v), c.eq(v), c.ne(v),
  c.isin([...]), c.between(lo, hi), c.contains(s), c.startswith(s), c.isnull(), c.notnull()
- masks combine with & (and), | (or) and ~ (not)
- c.sum(), c.mean(), c.min(), c.max(), c.count(), c.unique(), c.tolist()
- t.filter(lambda row: ...) where row is a dict, t.where(column, op, value)
- t.merge(other, on="key", how="inner" or "left"), t.sort_values(by, ascending=True), t.head(n),
  t.select(*columns), t.groupby(by, column, agg), t.drop_duplicates(subset=None), t.rows(), len(t)
- frame.table(columns, rows), frame.merge(a, b, on=, how=), frame.concat(a, b)
Do not reassign data_a or data_b; use new names for intermediate tables.
Example: filtered_data = data_a[data_a["Age"].gt(30) & data_a["Smoker"].eq(True)]
Reply with the script in a single ` + "```starlark" + ` code block.
`

func planReference(joinKey string) string {
	return fmt.Sprintf(`The plan is a JSON document of this shape:
{"%s": {
  "source": "%s" | "%s" | "%s",
  "join": {"how": "inner" | "left", "on": "%s"},
  "where": <condition>,
  "select": ["column", ...],
  "sort": [{"column": "column", "desc": false}],
  "limit": 10
}}
Only "source" is required. "joined" merges data_a with data_b on "on".
A condition is {"column": "name", "op": "<op>", "value": <value>}, or {"and": [<condition>, ...]},
{"or": [<condition>, ...]} or {"not": <condition>}.
Allowed ops: %s. "in" and "not_in" take a list; "is_null" and "not_null" take no value.
Reply with the plan in a single `+"```json"+` code block.
`, engine.OutputBinding, engine.SourceA, engine.SourceB, engine.SourceJoined, joinKey, strings.Join(engine.Operators(), ", "))
}

// pyList renders names the way a Python list of strings prints.
func pyList(names []string) string {
	return "[" + strings.Join(quotedValues(names), ", ") + "]"
}

// quotedValues wraps each value in single quotes.
func quotedValues(vals []string) []string {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		v = strings.ReplaceAll(v, `\`, `\\`)
		quoted[i] = "'" + strings.ReplaceAll(v, "'", `\'`) + "'"
	}
	return quoted
}
