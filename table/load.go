package table

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Source locates a dataset: a CSV file, or a table inside a SQLite file.
type Source struct {
	Path  string `koanf:"path" json:"path"`
	Table string `koanf:"table" json:"table,omitempty"`
}

// IsSQLite reports whether the source points at a SQLite database file.
func (s Source) IsSQLite() bool {
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	default:
		return false
	}
}

func (s Source) String() string {
	if s.Table != "" {
		return s.Path + "#" + s.Table
	}
	return s.Path
}

// Load reads the dataset described by src and names it name.
func Load(ctx context.Context, name string, src Source) (*Table, error) {
	if src.Path == "" {
		return nil, fmt.Errorf("dataset %s: no path configured", name)
	}
	if !src.IsSQLite() {
		return LoadCSV(name, src.Path)
	}

	if src.Table == "" {
		return nil, fmt.Errorf("dataset %s: %s is a SQLite database, a table name is required", name, src.Path)
	}
	db, err := OpenSQLite(src.Path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return LoadSQL(ctx, db, name, src.Table)
}
