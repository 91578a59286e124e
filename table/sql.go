package table

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	// SQLite driver registered as "sqlite".
	_ "modernc.org/sqlite"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// OpenSQLite opens a read-only SQLite database file.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return db, nil
}

// LoadSQL reads every row of a database table into a Table named name.
// Column kinds come from the declared column types, falling back to the
// values actually scanned when the driver reports nothing useful.
func LoadSQL(ctx context.Context, db *sql.DB, name, tableName string) (*Table, error) {
	if !identPattern.MatchString(tableName) {
		return nil, fmt.Errorf("invalid table name %q", tableName)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM "%s"`, tableName))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", tableName, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types of %s: %w", tableName, err)
	}

	columns := make([]Column, len(types))
	declared := make([]bool, len(types))
	for i, ct := range types {
		kind, ok := kindFromDatabaseType(ct.DatabaseTypeName())
		columns[i] = Column{Name: ct.Name(), Kind: kind}
		declared[i] = ok
	}

	var data [][]any
	for rows.Next() {
		cells := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", tableName, err)
		}
		for i, v := range cells {
			cells[i] = scanValue(v)
		}
		data = append(data, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", tableName, err)
	}

	for i := range columns {
		if !declared[i] {
			columns[i].Kind = kindFromValues(data, i)
		}
	}
	for _, row := range data {
		for i, col := range columns {
			row[i] = coerce(row[i], col.Kind)
		}
	}

	return New(name, columns, data)
}

func kindFromDatabaseType(t string) (Kind, bool) {
	t = strings.ToUpper(t)
	switch {
	case t == "":
		return KindString, false
	case strings.Contains(t, "INT"):
		return KindInt, true
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"),
		strings.Contains(t, "NUMERIC"), strings.Contains(t, "DECIMAL"):
		return KindFloat, true
	case strings.Contains(t, "BOOL"):
		return KindBool, true
	case strings.Contains(t, "CHAR"), strings.Contains(t, "TEXT"), strings.Contains(t, "CLOB"):
		return KindString, true
	default:
		return KindString, false
	}
}

func kindFromValues(rows [][]any, c int) Kind {
	kind, seen := KindString, false
	for _, row := range rows {
		var k Kind
		switch row[c].(type) {
		case nil:
			continue
		case int64:
			k = KindInt
		case float64:
			k = KindFloat
		case bool:
			k = KindBool
		default:
			return KindString
		}
		switch {
		case !seen:
			kind, seen = k, true
		case kind == KindInt && k == KindFloat:
			kind = KindFloat
		case kind == KindFloat && k == KindInt:
		case kind != k:
			return KindString
		}
	}
	return kind
}

// coerce applies SQLite's storage classes to the declared kind: booleans are
// stored as integers and REAL columns may hold integral values.
func coerce(v any, kind Kind) any {
	switch x := v.(type) {
	case int64:
		switch kind {
		case KindBool:
			return x != 0
		case KindFloat:
			return float64(x)
		}
	}
	return v
}

// scanValue maps driver values onto table cells.
func scanValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return x
	}
}
