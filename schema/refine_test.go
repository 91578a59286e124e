package schema

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/askdata/llm/llmtest"
)

// ============================================================================
// SMART REFINE TESTS
// ============================================================================

func draftConfig() Config {
	return Config{
		Name: "data_a",
		Rows: 3,
		Columns: []ColumnMeta{
			{Name: "Patient_Number", Kind: "int", Role: RoleIdentifier, Distinct: 3, SampleValues: []string{"1", "2", "3"}},
			{Name: "Age", Kind: "int", Role: RoleMeasure, Distinct: 3, SampleValues: []string{"25", "35", "40"}},
			{Name: "Smoker", Kind: "bool", Role: RoleDimension, Distinct: 2, SampleValues: []string{"false", "true"}},
		},
	}
}

const refineReply = "```json\n" + `{
  "description": "Patients with age and smoking status",
  "columns": [
    {"name": "Age", "displayName": "Age", "description": "Age in years", "unit": "years"},
    {"name": "Smoker", "displayName": "Smoker", "description": "Whether the patient smokes", "unit": "boolean"},
    {"name": "Height", "displayName": "Height", "description": "not a column", "unit": "cm"}
  ]
}` + "\n```"

func TestRefineAppliesDescriptions(t *testing.T) {
	stub := llmtest.New(llmtest.Text(refineReply))
	draft := draftConfig()

	refined, err := Refine(context.Background(), stub, draft, nil)
	require.NoError(t, err)

	assert.Equal(t, "Patients with age and smoking status", refined.Description)
	assert.NotEmpty(t, refined.RefinedAt)
	assert.Equal(t, draft.ColumnNames(), refined.ColumnNames(), "columns are never added or reordered")

	age, _ := refined.Column("Age")
	assert.Equal(t, "Age in years", age.Description)
	assert.Equal(t, "years", age.Unit)
	assert.Equal(t, RoleMeasure, age.Role)

	smoker, _ := refined.Column("Smoker")
	assert.Equal(t, "Whether the patient smokes", smoker.Description)
	assert.Empty(t, smoker.Unit, "units only apply to numeric columns")

	id, _ := refined.Column("Patient_Number")
	assert.Empty(t, id.Description)

	assert.Empty(t, draft.Description, "draft must not be mutated")
	assert.Empty(t, draft.Columns[1].Description)
}

func TestRefinePromptCarriesMetadataOnly(t *testing.T) {
	stub := llmtest.New(llmtest.Text(`{"description": "", "columns": []}`))
	_, err := Refine(context.Background(), stub, draftConfig(), nil)
	require.NoError(t, err)

	calls := stub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, refineSystem, calls[0].System)
	assert.Equal(t, float32(refineTemperature), calls[0].Temperature)

	user := calls[0].User
	start := strings.Index(user, "{")
	end := strings.Index(user, "\n\nINSTRUCTIONS:")
	require.True(t, start >= 0 && end > start)

	var payload refinePayload
	require.NoError(t, json.Unmarshal([]byte(user[start:end]), &payload))
	assert.Equal(t, "data_a", payload.Dataset)
	assert.Equal(t, 3, payload.Rows)
	require.Len(t, payload.Columns, 3)
	assert.Equal(t, RoleIdentifier, payload.Columns[0].Role)
	assert.Equal(t, []string{"25", "35", "40"}, payload.Columns[1].Samples)
}

func TestRefineFailureReturnsDraft(t *testing.T) {
	draft := draftConfig()

	stub := llmtest.New(llmtest.Fail(errors.New("quota exceeded")))
	got, err := Refine(context.Background(), stub, draft, nil)
	assert.ErrorContains(t, err, "quota exceeded")
	assert.Equal(t, draft, got)

	stub = llmtest.New(llmtest.Text("I cannot help with that."))
	got, err = Refine(context.Background(), stub, draft, nil)
	assert.ErrorContains(t, err, "failed to parse refine response")
	assert.Equal(t, draft, got)
}

func TestLimitSamples(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, limitSamples([]string{"a", "b"}, 5))
	assert.Equal(t, []string{"a", "b"}, limitSamples([]string{"a", "b", "c"}, 2))
}
