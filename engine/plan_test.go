package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/askdata/internal/testutil"
	"github.com/spektr-org/askdata/table"
)

func runPlan(t *testing.T, plan string, opts ...Option) (*table.Table, error) {
	t.Helper()
	a, b := datasets(t)
	opts = append([]Option{WithLogger(testutil.NewTestLogger(t))}, opts...)
	return NewPlanExecutor(opts...).Execute(context.Background(), plan, a, b)
}

// ============================================================================
// 1. EVALUATION
// ============================================================================

func TestPlanSimpleCondition(t *testing.T) {
	out, err := runPlan(t, `{"filtered_data": {"source": "data_a",
		"where": {"column": "Age", "op": ">", "value": 30}}}`)
	require.NoError(t, err)
	assert.Equal(t, OutputBinding, out.Name())
	assert.Equal(t, []int{1, 2}, out.Index())
}

func TestPlanJoinedSelectSortLimit(t *testing.T) {
	out, err := runPlan(t, `{"filtered_data": {
		"source": "joined",
		"where": {"and": [
			{"column": "Steps", "op": ">=", "value": 3000},
			{"not": {"column": "Smoker", "op": "==", "value": true}}
		]},
		"select": ["Patient_Number", "Steps"],
		"sort": [{"column": "Steps", "desc": true}],
		"limit": 1
	}}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Patient_Number", "Steps"}, out.ColumnNames())
	assert.Equal(t, []any{int64(3)}, column(t, out, "Patient_Number"))
}

func TestPlanOrAndListOperators(t *testing.T) {
	out, err := runPlan(t, `{"filtered_data": {"source": "data_b",
		"where": {"or": [
			{"column": "Patient_Number", "op": "in", "value": [1, 4]},
			{"column": "Steps", "op": "gt", "value": 10000.5}
		]}}}`)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(3), int64(4)}, column(t, out, "Patient_Number"))
}

func TestPlanLeftJoinOnCustomKey(t *testing.T) {
	out, err := runPlan(t, `{"filtered_data": {"source": "joined",
		"join": {"how": "left"},
		"where": {"column": "Steps", "op": "not_null"}}}`, WithJoinKey("Patient_Number"))
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len())
}

func TestPlanWithoutWhereReturnsSource(t *testing.T) {
	out, err := runPlan(t, `{"filtered_data": {"source": "data_b"}}`)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Len())
}

// ============================================================================
// 2. REJECTION
// ============================================================================

func TestPlanMissingOutput(t *testing.T) {
	_, err := runPlan(t, `{"result": {"source": "data_a"}}`)
	assert.ErrorIs(t, err, ErrMissingOutput)
}

func TestPlanRejections(t *testing.T) {
	tests := []struct {
		name string
		plan string
		want string
	}{
		{
			name: "unknown operator",
			plan: `{"filtered_data": {"source": "data_a", "where": {"column": "Age", "op": "~=", "value": 1}}}`,
			want: `operator "~=" is not allowed`,
		},
		{
			name: "unknown column",
			plan: `{"filtered_data": {"source": "data_a", "where": {"column": "Weight", "op": ">", "value": 1}}}`,
			want: `unknown column "Weight"`,
		},
		{
			name: "unknown source",
			plan: `{"filtered_data": {"source": "data_c"}}`,
			want: `unknown source "data_c"`,
		},
		{
			name: "unknown field",
			plan: `{"filtered_data": {"source": "data_a", "wher": {}}}`,
			want: "invalid plan",
		},
		{
			name: "not json",
			plan: `filtered_data = data_a`,
			want: "invalid plan JSON",
		},
		{
			name: "ambiguous condition",
			plan: `{"filtered_data": {"source": "data_a", "where": {"column": "Age", "op": ">", "value": 1, "and": [{"column": "Age", "op": "is_null"}]}}}`,
			want: "exactly one of",
		},
		{
			name: "list operator without list",
			plan: `{"filtered_data": {"source": "data_a", "where": {"column": "Age", "op": "in", "value": 3}}}`,
			want: "value must be a list",
		},
		{
			name: "negative limit",
			plan: `{"filtered_data": {"source": "data_a", "limit": -1}}`,
			want: "limit must not be negative",
		},
		{
			name: "unknown select column",
			plan: `{"filtered_data": {"source": "data_a", "select": ["Weight"]}}`,
			want: `unknown column "Weight"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runPlan(t, tt.plan)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrPlanRejected)
			assert.ErrorIs(t, err, ErrExecution)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPlanCanceledContext(t *testing.T) {
	a, b := datasets(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPlanExecutor().Execute(ctx,
		`{"filtered_data": {"source": "data_a", "where": {"column": "Age", "op": ">", "value": 1}}}`, a, b)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParsePlan(t *testing.T) {
	q, err := ParsePlan(`  {"filtered_data": {"source": "data_a", "where": {"column": "Age", "op": "==", "value": 40}}}  `)
	require.NoError(t, err)
	assert.Equal(t, SourceA, q.Source)
	require.NotNil(t, q.Where)
	assert.Equal(t, "Age", q.Where.Column)
}
