package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/askdata/table"
)

// ============================================================================
// PROFILING TESTS
// ============================================================================

func patientsTable(t *testing.T) *table.Table {
	t.Helper()
	var b strings.Builder
	b.WriteString("Patient_Number,Age,BMI,Smoker,Region,Visit_Month,Notes\n")
	for i := 1; i <= 24; i++ {
		region := []string{"North", "South", "East"}[i%3]
		fmt.Fprintf(&b, "%d,%d,%.1f,%t,%s,Jan-2026,\n", i, 20+i%5, 18.5+float64(i)/3, i%2 == 0, region)
	}
	tbl, err := table.ReadCSV("data_a", strings.NewReader(b.String()))
	require.NoError(t, err)
	return tbl
}

func TestProfile_Roles(t *testing.T) {
	cfg := Profile(patientsTable(t))

	assert.Equal(t, "data_a", cfg.Name)
	assert.Equal(t, 24, cfg.Rows)
	assert.Equal(t, []string{"Patient_Number", "Age", "BMI", "Smoker", "Region", "Visit_Month", "Notes"}, cfg.ColumnNames())

	roles := map[string]Role{}
	for _, c := range cfg.Columns {
		roles[c.Name] = c.Role
	}
	assert.Equal(t, map[string]Role{
		"Patient_Number": RoleIdentifier,
		"Age":            RoleDimension,
		"BMI":            RoleMeasure,
		"Smoker":         RoleDimension,
		"Region":         RoleDimension,
		"Visit_Month":    RoleDimension,
		"Notes":          RoleEmpty,
	}, roles)
}

func TestProfile_Stats(t *testing.T) {
	cfg := Profile(patientsTable(t))

	age, ok := cfg.Column("Age")
	require.True(t, ok)
	assert.Equal(t, "int", age.Kind)
	assert.Equal(t, 5, age.Distinct)
	assert.Equal(t, int64(20), age.Min)
	assert.Equal(t, int64(24), age.Max)
	assert.Equal(t, "low", age.CardinalityHint)

	region, _ := cfg.Column("Region")
	assert.Equal(t, []string{"East", "North", "South"}, region.SampleValues)

	month, _ := cfg.Column("Visit_Month")
	assert.True(t, month.IsTemporal)
	assert.Equal(t, "MMM-yyyy", month.TemporalFormat)

	notes, _ := cfg.Column("Notes")
	assert.Equal(t, 24, notes.Nulls)
}

func TestProfile_SmallTableUsesNameHint(t *testing.T) {
	tbl := table.MustNew("data_b",
		[]table.Column{{Name: "userId", Kind: table.KindInt}, {Name: "Steps", Kind: table.KindInt}},
		[][]any{{1, 100}, {2, 200}, {3, 300}},
	)
	cfg := Profile(tbl)

	id, _ := cfg.Column("userId")
	assert.Equal(t, RoleIdentifier, id.Role)
	steps, _ := cfg.Column("Steps")
	assert.Equal(t, RoleMeasure, steps.Role)
	assert.Len(t, cfg.ByRole(RoleMeasure), 1)
}

func TestProfile_JSONShape(t *testing.T) {
	data, err := json.Marshal(Profile(patientsTable(t)))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "data_a", decoded["name"])
	assert.Len(t, decoded["columns"], 7)
}

func TestToSnakeCase(t *testing.T) {
	cases := map[string]string{
		"Patient_Number": "patient_number",
		"userId":         "user_id",
		"Story Points":   "story_points",
		"time-spent":     "time_spent",
	}
	for in, want := range cases {
		assert.Equal(t, want, toSnakeCase(in), in)
	}
}
