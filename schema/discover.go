package schema

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spektr-org/askdata/table"
)

// ============================================================================
// PROFILING: Heuristic column classification
// ============================================================================
// Inspects a loaded table and describes every column. No AI involved.
//
// Per column:
//   1. Count nulls and distinct values
//   2. Collect sorted sample values
//   3. Detect temporal strings (dates, months, quarters)
//   4. Classify role from kind + cardinality
// ============================================================================

// Options controls profiling.
type Options struct {
	SampleSize      int      // rows inspected (0 = all)
	MaxSamples      int      // sample values kept per column
	IdentifierHints []string // trailing name words that mark key columns
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		SampleSize:      10000,
		MaxSamples:      5,
		IdentifierHints: []string{"id", "number", "key", "code"},
	}
}

// Profile describes t's columns.
func Profile(t *table.Table, opts ...Options) Config {
	opt := DefaultOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	n := t.Len()
	if opt.SampleSize > 0 && n > opt.SampleSize {
		n = opt.SampleSize
	}

	cfg := Config{Name: t.Name(), Rows: t.Len()}
	for c, col := range t.Columns() {
		cfg.Columns = append(cfg.Columns, analyzeColumn(t, c, col, n, opt))
	}
	return cfg
}

// analyzeColumn inspects the first n values of column c.
func analyzeColumn(t *table.Table, c int, col table.Column, n int, opt Options) ColumnMeta {
	meta := ColumnMeta{Name: col.Name, Kind: col.Kind.String()}

	unique := make(map[string]bool)
	var lo, hi any
	hasDecimals := false
	for r := 0; r < n; r++ {
		v := t.Cell(r, c)
		if table.IsNull(v) {
			meta.Nulls++
			continue
		}
		unique[table.Format(v)] = true
		if f, ok := v.(float64); ok && f != float64(int64(f)) {
			hasDecimals = true
		}
		if lo == nil {
			lo, hi = v, v
			continue
		}
		if cmp, err := table.Compare(v, lo); err == nil && cmp < 0 {
			lo = v
		}
		if cmp, err := table.Compare(v, hi); err == nil && cmp > 0 {
			hi = v
		}
	}
	meta.Distinct = len(unique)

	if meta.Distinct == 0 {
		meta.Role = RoleEmpty
		return meta
	}

	meta.SampleValues = collectSamples(unique, opt.MaxSamples)
	if col.Kind == table.KindInt || col.Kind == table.KindFloat {
		meta.Min, meta.Max = lo, hi
	}
	if col.Kind == table.KindString {
		meta.IsTemporal, meta.TemporalFormat = detectTemporalPattern(meta.SampleValues)
	}

	meta.Role = classifyRole(col, meta, n-meta.Nulls, hasDecimals, opt.IdentifierHints)

	switch {
	case meta.Distinct <= 10:
		meta.CardinalityHint = "low"
	case meta.Distinct <= 100:
		meta.CardinalityHint = "medium"
	default:
		meta.CardinalityHint = "high"
	}
	return meta
}

// classifyRole determines dimension vs measure vs identifier.
func classifyRole(col table.Column, meta ColumnMeta, present int, hasDecimals bool, hints []string) Role {
	uniquePerRow := meta.Distinct == present && present > 1

	switch col.Kind {
	case table.KindInt, table.KindFloat:
		if uniquePerRow && !hasDecimals && (present > 10 || hasIdentifierName(col.Name, hints)) {
			return RoleIdentifier
		}
		// Continuous data is always a measure.
		if hasDecimals {
			return RoleMeasure
		}
		// A few repeated codes (priority 1-5) read as a dimension.
		ratio := float64(meta.Distinct) / float64(present)
		if meta.Distinct < 20 && ratio < 0.3 {
			return RoleDimension
		}
		return RoleMeasure

	case table.KindBool:
		return RoleDimension

	default:
		if uniquePerRow && (present > 10 || hasIdentifierName(col.Name, hints)) {
			return RoleIdentifier
		}
		return RoleDimension
	}
}

// hasIdentifierName matches names like "Patient_Number" or "userId".
func hasIdentifierName(name string, hints []string) bool {
	words := strings.FieldsFunc(toSnakeCase(name), func(r rune) bool { return r == '_' })
	if len(words) == 0 {
		return false
	}
	last := words[len(words)-1]
	for _, h := range hints {
		if last == h {
			return true
		}
	}
	return false
}

// ============================================================================
// TEMPORAL DETECTION
// ============================================================================

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"02/01/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

var monthPatterns = []struct {
	re     *regexp.Regexp
	format string
}{
	{regexp.MustCompile(`^[A-Z][a-z]{2}-\d{4}$`), "MMM-yyyy"}, // Jan-2026
	{regexp.MustCompile(`^\d{4}-\d{2}$`), "yyyy-MM"},          // 2026-01
	{regexp.MustCompile(`^Q[1-4][- ]\d{4}$`), "QN-yyyy"},      // Q1-2026
	{regexp.MustCompile(`^[A-Z][a-z]+ \d{4}$`), "MMMM yyyy"},  // January 2026
}

// detectTemporalPattern checks whether 80% of samples look like dates,
// months or quarters.
func detectTemporalPattern(samples []string) (bool, string) {
	if len(samples) == 0 {
		return false, ""
	}
	threshold := 0.8 * float64(len(samples))

	dates := 0
	for _, s := range samples {
		if isDate(s) {
			dates++
		}
	}
	if float64(dates) >= threshold {
		return true, "date"
	}

	for _, pattern := range monthPatterns {
		matches := 0
		for _, s := range samples {
			if pattern.re.MatchString(strings.TrimSpace(s)) {
				matches++
			}
		}
		if float64(matches) >= threshold {
			return true, pattern.format
		}
	}
	return false, ""
}

func isDate(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

// toSnakeCase converts "Column Name" or "columnName" to "column_name".
func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' && i > 0 {
			prev := s[i-1]
			if (prev >= 'a' && prev <= 'z') || (prev >= '0' && prev <= '9') {
				b.WriteByte('_')
			}
		}
		b.WriteRune(r)
	}

	s = strings.ToLower(b.String())
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "__", "_")
	return strings.Trim(s, "_")
}

// collectSamples picks up to maxSamples values, sorted for stable prompts.
func collectSamples(unique map[string]bool, maxSamples int) []string {
	samples := make([]string, 0, len(unique))
	for v := range unique {
		samples = append(samples, v)
	}
	sort.Strings(samples)

	if maxSamples > 0 && len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}
