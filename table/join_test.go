package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activity(t *testing.T) *Table {
	t.Helper()
	tbl, err := New("data_b",
		[]Column{{Name: "Patient_Number", Kind: KindInt}, {Name: "Steps", Kind: KindInt}, {Name: "Age", Kind: KindInt}},
		[][]any{{3, 9000, 35}, {1, 4000, 25}, {3, 7000, 35}, {nil, 1, 1}},
	)
	require.NoError(t, err)
	return tbl
}

func TestMerge_Inner(t *testing.T) {
	out, err := patients(t).Merge(activity(t), "Patient_Number", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Patient_Number", "Age_x", "Steps", "Age_y"}, out.ColumnNames())
	require.Equal(t, 3, out.Len())
	assert.Equal(t, []any{int64(1), int64(25), int64(4000), int64(25)}, out.Row(0))
	assert.Equal(t, []any{int64(3), int64(35), int64(9000), int64(35)}, out.Row(1))
	assert.Equal(t, []any{int64(3), int64(35), int64(7000), int64(35)}, out.Row(2))
	assert.Equal(t, []int{0, 1, 2}, out.Index())
}

func TestMerge_Left(t *testing.T) {
	out, err := patients(t).Merge(activity(t), "Patient_Number", JoinLeft)
	require.NoError(t, err)

	require.Equal(t, 4, out.Len())
	assert.Equal(t, []any{int64(2), int64(40), nil, nil}, out.Row(1))
}

func TestMerge_Errors(t *testing.T) {
	_, err := patients(t).Merge(activity(t), "Nope", "")
	assert.ErrorContains(t, err, `unknown column "Nope"`)

	_, err = patients(t).Merge(activity(t), "Patient_Number", "outer")
	assert.ErrorContains(t, err, "unsupported join")
}

func TestSort(t *testing.T) {
	tbl, err := New("t",
		[]Column{{Name: "k"}, {Name: "v"}},
		[][]any{{"b", 2}, {"a", nil}, {"c", 2}, {"d", 1}},
	)
	require.NoError(t, err)

	out, err := tbl.Sort(SortKey{Column: "v", Desc: true})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3, 1}, out.Index(), "stable, nulls last")

	out, err = tbl.Sort(SortKey{Column: "v"}, SortKey{Column: "k", Desc: true})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 0, 1}, out.Index())
}

func TestSort_IncomparableKinds(t *testing.T) {
	tbl, err := New("t", []Column{{Name: "v"}}, [][]any{{"a"}, {1}})
	require.NoError(t, err)

	_, err = tbl.Sort(SortKey{Column: "v"})
	assert.ErrorContains(t, err, "cannot compare")
}

func TestConcatAndDropDuplicates(t *testing.T) {
	a := patients(t)
	both, err := a.Concat(a)
	require.NoError(t, err)
	assert.Equal(t, 6, both.Len())
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2}, both.Index())

	unique, err := both.DropDuplicates()
	require.NoError(t, err)
	assert.Equal(t, 3, unique.Len())

	_, err = a.Concat(activity(t))
	assert.Error(t, err)
}

func TestAggregate(t *testing.T) {
	tbl := patients(t)

	sum, err := tbl.Aggregate("Age", "sum")
	require.NoError(t, err)
	assert.Equal(t, int64(100), sum)

	mean, err := tbl.Aggregate("Age", "mean")
	require.NoError(t, err)
	assert.InDelta(t, 33.333, mean.(float64), 0.001)

	hi, err := tbl.Aggregate("Age", "max")
	require.NoError(t, err)
	assert.Equal(t, int64(40), hi)

	_, err = tbl.Aggregate("Age", "median")
	assert.ErrorContains(t, err, "unknown aggregation")
}

func TestGroupBy(t *testing.T) {
	out, err := activity(t).GroupBy([]string{"Patient_Number"}, "Steps", "sum")
	require.NoError(t, err)

	assert.Equal(t, []string{"Patient_Number", "sum_Steps"}, out.ColumnNames())
	require.Equal(t, 3, out.Len())
	assert.Equal(t, []any{int64(3), int64(16000)}, out.Row(0))
	assert.Equal(t, []any{int64(1), int64(4000)}, out.Row(1))
	assert.Equal(t, []any{nil, int64(1)}, out.Row(2))
}
