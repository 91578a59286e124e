// Package schema profiles datasets: column kinds, roles, cardinality and
// sample values. Profiles feed the synthesis prompt and the inspect command.
package schema

// ============================================================================
// SCHEMA: Describes the shape of a dataset for prompts and operators
// ============================================================================
// Produced by Profile from a loaded table. The synthesizer uses column names
// (always) and kinds plus samples (when asked) to build its prompt. The CLI
// renders the same metadata for humans.
// ============================================================================

// Role classifies how a column is typically used in a query.
type Role string

const (
	RoleDimension  Role = "dimension"  // grouping / filtering
	RoleMeasure    Role = "measure"    // numeric, aggregated
	RoleIdentifier Role = "identifier" // unique per row, join keys
	RoleEmpty      Role = "empty"      // no non-null values
)

// Config describes the complete shape of a dataset.
type Config struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Rows        int          `json:"rows"`
	Columns     []ColumnMeta `json:"columns"`
	RefinedAt   string       `json:"refinedAt,omitempty"`
}

// ColumnMeta describes one column.
type ColumnMeta struct {
	Name            string   `json:"name"`
	DisplayName     string   `json:"displayName,omitempty"`
	Description     string   `json:"description,omitempty"`
	Unit            string   `json:"unit,omitempty"`
	Kind            string   `json:"kind"`
	Role            Role     `json:"role"`
	Nulls           int      `json:"nulls"`
	Distinct        int      `json:"distinct"`
	CardinalityHint string   `json:"cardinalityHint,omitempty"` // "low", "medium", "high"
	SampleValues    []string `json:"sampleValues,omitempty"`
	Min             any      `json:"min,omitempty"`
	Max             any      `json:"max,omitempty"`
	IsTemporal      bool     `json:"isTemporal,omitempty"`
	TemporalFormat  string   `json:"temporalFormat,omitempty"`
}

// ColumnNames returns the column names in dataset order.
func (c Config) ColumnNames() []string {
	names := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		names[i] = col.Name
	}
	return names
}

// Column looks a column up by name.
func (c Config) Column(name string) (ColumnMeta, bool) {
	for _, col := range c.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return ColumnMeta{}, false
}

// ByRole returns the columns with the given role, in dataset order.
func (c Config) ByRole(role Role) []ColumnMeta {
	var out []ColumnMeta
	for _, col := range c.Columns {
		if col.Role == role {
			out = append(out, col)
		}
	}
	return out
}
