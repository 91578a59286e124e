package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/askdata/engine"
	"github.com/spektr-org/askdata/llm"
	"github.com/spektr-org/askdata/llm/llmtest"
	"github.com/spektr-org/askdata/schema"
)

// ============================================================================
// HARNESS
// ============================================================================

type workspace struct {
	dir   string
	dataA string
	dataB string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "ASKDATA_") {
			t.Setenv(name, "")
			require.NoError(t, os.Unsetenv(name))
		}
	}
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	ws := &workspace{
		dir:   dir,
		dataA: filepath.Join(dir, "patients.csv"),
		dataB: filepath.Join(dir, "activity.csv"),
	}
	ws.write(t, ws.dataA, "Patient_Number,Age,Sex\n1,25,F\n2,40,M\n3,35,F\n")
	ws.write(t, ws.dataB, "Patient_Number,Steps\n1,3000\n2,8000\n3,12000\n")
	return ws
}

func (ws *workspace) write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (ws *workspace) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--data-a", ws.dataA, "--data-b", ws.dataB, "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func stubProvider(t *testing.T, stub *llmtest.Stub) {
	t.Helper()
	orig := newProvider
	newProvider = func(context.Context, llm.Config) (llm.Provider, error) { return stub, nil }
	t.Cleanup(func() { newProvider = orig })
}

// ============================================================================
// COMMANDS
// ============================================================================

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "askdata v"+Version+" ("+GitCommit+")\n", out.String())
}

func TestExecScript(t *testing.T) {
	ws := newWorkspace(t)
	script := filepath.Join(ws.dir, "older.star")
	ws.write(t, script, `filtered_data = data_a[data_a["Age"].gt(30)]`+"\n")

	out, err := ws.run(t, "exec", script)
	require.NoError(t, err)
	assert.Contains(t, out, "Patient_Number")
	assert.Contains(t, out, "40")
	assert.Contains(t, out, "35")
	assert.NotContains(t, out, "25")
	assert.Contains(t, out, "(2 rows)")
}

func TestExecPlanJSON(t *testing.T) {
	ws := newWorkspace(t)
	plan := filepath.Join(ws.dir, "plan.json")
	ws.write(t, plan, `{"source": "joined", "where": {"column": "Steps", "op": "lt", "value": 10000}, "select": ["Patient_Number", "Steps"]}`)

	out, err := ws.run(t, "exec", plan, "--mode", "plan", "-o", "json")
	require.NoError(t, err)

	var td engine.TableData
	require.NoError(t, json.Unmarshal([]byte(out), &td))
	assert.Equal(t, "filtered_data", td.Title)
	assert.Equal(t, [][]string{{"1", "3000"}, {"2", "8000"}}, td.Rows)
}

func TestExecFailure(t *testing.T) {
	ws := newWorkspace(t)
	script := filepath.Join(ws.dir, "bad.star")
	ws.write(t, script, "result = data_a\n")

	_, err := ws.run(t, "exec", script)
	assert.ErrorIs(t, err, engine.ErrMissingOutput)
}

func TestInspectJSON(t *testing.T) {
	ws := newWorkspace(t)

	out, err := ws.run(t, "inspect", "-o", "json")
	require.NoError(t, err)

	var profiles []schema.Config
	require.NoError(t, json.Unmarshal([]byte(out), &profiles))
	require.Len(t, profiles, 2)
	assert.Equal(t, "data_a", profiles[0].Name)
	assert.Equal(t, 3, profiles[0].Rows)
	assert.Equal(t, []string{"Patient_Number", "Age", "Sex"}, profiles[0].ColumnNames())
	assert.Equal(t, "data_b", profiles[1].Name)
}

func TestInspectText(t *testing.T) {
	ws := newWorkspace(t)

	out, err := ws.run(t, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "data_a")
	assert.Contains(t, out, "identifier")
	assert.Contains(t, out, "Steps")
	assert.Contains(t, out, "3000 to 12000")
}

func TestAsk(t *testing.T) {
	ws := newWorkspace(t)
	t.Setenv("OPENAI_API_KEY", "test-key")
	stub := llmtest.New(
		llmtest.Text("```python\nfiltered_data = data_a[data_a[\"Sex\"].eq(\"F\")]\n```"),
		llmtest.Text("Patients 1 and 3 are female."),
	)
	stubProvider(t, stub)

	out, err := ws.run(t, "ask", "Which", "patients", "are", "female?", "--show-code")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `filtered_data = data_a[data_a["Sex"].eq("F")]`), out)
	assert.Contains(t, out, "(2 rows)")
	assert.True(t, strings.HasSuffix(out, "Patients 1 and 3 are female.\n"), out)
	assert.Contains(t, stub.Calls()[0].User, "Which patients are female?")
}

func TestAskJSON(t *testing.T) {
	ws := newWorkspace(t)
	t.Setenv("OPENAI_API_KEY", "test-key")
	stubProvider(t, llmtest.New(
		llmtest.Text("filtered_data = data_b.head(1)"),
		llmtest.Text("One row."),
	))

	out, err := ws.run(t, "ask", "first activity row", "-o", "json")
	require.NoError(t, err)

	var got askOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "first activity row", got.Query)
	assert.Equal(t, "filtered_data = data_b.head(1)", got.Code)
	assert.Equal(t, "One row.", got.Interpretation)
	assert.Equal(t, []int{0}, got.Result.Index)
	assert.NotEmpty(t, got.ID)
}

func TestAskNeedsAPIKey(t *testing.T) {
	ws := newWorkspace(t)
	_, err := ws.run(t, "ask", "anything")
	assert.ErrorContains(t, err, "no API key")
}

func TestUnknownOutputFormat(t *testing.T) {
	ws := newWorkspace(t)
	_, err := ws.run(t, "inspect", "-o", "yaml")
	assert.ErrorContains(t, err, `unknown output format "yaml"`)
}

func TestInspectRefine(t *testing.T) {
	ws := newWorkspace(t)
	t.Setenv("OPENAI_API_KEY", "test-key")
	stubProvider(t, llmtest.New(
		llmtest.Text(`{"description": "Patients", "columns": [{"name": "Age", "description": "Age in years", "unit": "years"}]}`),
		llmtest.Text(`{"description": "Daily activity", "columns": []}`),
	))

	out, err := ws.run(t, "inspect", "--refine", "-o", "json")
	require.NoError(t, err)

	var profiles []schema.Config
	require.NoError(t, json.Unmarshal([]byte(out), &profiles))
	require.Len(t, profiles, 2)
	assert.Equal(t, "Patients", profiles[0].Description)
	age, ok := profiles[0].Column("Age")
	require.True(t, ok)
	assert.Equal(t, "years", age.Unit)
	assert.Equal(t, "Daily activity", profiles[1].Description)
}

func TestAskWithRefinedSchemaPrompts(t *testing.T) {
	ws := newWorkspace(t)
	t.Setenv("OPENAI_API_KEY", "test-key")
	stub := llmtest.New(
		llmtest.Text(`{"description": "Patients", "columns": []}`),
		llmtest.Text(`{"description": "Activity", "columns": []}`),
		llmtest.Text("filtered_data = data_a"),
		llmtest.Text("Everyone."),
	)
	stubProvider(t, stub)

	_, err := ws.run(t, "ask", "everyone", "--schema-prompts", "--refine-schema")
	require.NoError(t, err)

	calls := stub.Calls()
	require.Len(t, calls, 4)
	assert.Contains(t, calls[2].User, "Dataset A (3 rows):\nPatients\n")
}
