package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ============================================================================
// CSV LOADER: Parses CSV into a typed Table
// ============================================================================
// The header row names the columns (kept verbatim, only trimmed). Column
// kinds are inferred from the data: a column is int if every non-null cell
// parses as an integer, float if every one parses as a number, bool if every
// one is true/false, and string otherwise.
// ============================================================================

// nullTokens are cell spellings treated as missing values.
var nullTokens = map[string]bool{
	"": true, "null": true, "NULL": true, "N/A": true, "n/a": true,
	"NA": true, "NaN": true, "nan": true, "None": true,
}

// LoadCSV reads a CSV file from disk.
func LoadCSV(name, path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", name, err)
	}
	defer f.Close()

	t, err := ReadCSV(name, f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s from %s: %w", name, path, err)
	}
	return t, nil
}

// ReadCSV parses CSV data into a Table.
func ReadCSV(name string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("CSV has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var raw [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		raw = append(raw, row)
	}

	columns := make([]Column, len(headers))
	for c, h := range headers {
		columns[c] = Column{Name: h, Kind: inferKind(raw, c)}
	}

	rows := make([][]any, len(raw))
	for r, rec := range raw {
		row := make([]any, len(columns))
		for c, col := range columns {
			row[c] = parseCell(strings.TrimSpace(rec[c]), col.Kind)
		}
		rows[r] = row
	}

	return New(name, columns, rows)
}

// inferKind picks the narrowest kind every non-null cell of column c fits.
func inferKind(rows [][]string, c int) Kind {
	isInt, isFloat, isBool := true, true, true
	seen := false
	for _, row := range rows {
		v := strings.TrimSpace(row[c])
		if nullTokens[v] {
			continue
		}
		seen = true
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			if _, ok := parseBool(v); !ok {
				isBool = false
			}
		}
		if !isInt && !isFloat && !isBool {
			return KindString
		}
	}

	switch {
	case !seen:
		return KindString
	case isInt:
		return KindInt
	case isFloat:
		return KindFloat
	case isBool:
		return KindBool
	default:
		return KindString
	}
}

// parseCell converts a raw cell to the column's kind. Inference guarantees
// the conversion succeeds for non-null cells.
func parseCell(v string, kind Kind) any {
	if nullTokens[v] {
		return nil
	}
	switch kind {
	case KindInt:
		i, _ := strconv.ParseInt(v, 10, 64)
		return i
	case KindFloat:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case KindBool:
		b, _ := parseBool(v)
		return b
	default:
		return v
	}
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}
