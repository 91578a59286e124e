package table

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT \* FROM "activity"`).WillReturnRows(
		sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("Patient_Number").OfType("INTEGER", int64(0)),
			sqlmock.NewColumn("Steps").OfType("REAL", float64(0)),
			sqlmock.NewColumn("Note").OfType("TEXT", ""),
			sqlmock.NewColumn("Score").OfType("", float64(0)),
		).
			AddRow(int64(1), 1200.5, []byte("walk"), 1.5).
			AddRow(int64(2), int64(800), nil, int64(2)),
	)

	tbl, err := LoadSQL(context.Background(), db, "data_b", "activity")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "data_b", tbl.Name())
	assert.Equal(t, []string{"Patient_Number", "Steps", "Note", "Score"}, tbl.ColumnNames())

	steps, _ := tbl.Column("Steps")
	assert.Equal(t, KindFloat, steps.Kind)
	id, _ := tbl.Column("Patient_Number")
	assert.Equal(t, KindInt, id.Kind)
	score, _ := tbl.Column("Score")
	assert.Equal(t, KindFloat, score.Kind, "undeclared type falls back to scanned values")

	assert.Equal(t, []any{int64(1), 1200.5, "walk", 1.5}, tbl.Row(0))
	assert.Equal(t, []any{int64(2), float64(800), nil, float64(2)}, tbl.Row(1))
}

func TestLoadSQL_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("no such table")
	mock.ExpectQuery(`SELECT \* FROM "activity"`).WillReturnError(boom)

	_, err = LoadSQL(context.Background(), db, "data_b", "activity")
	assert.ErrorIs(t, err, boom)
}

func TestLoadSQL_RejectsBadIdentifier(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = LoadSQL(context.Background(), db, "data_b", `x"; DROP TABLE y; --`)
	assert.ErrorContains(t, err, "invalid table name")
}
