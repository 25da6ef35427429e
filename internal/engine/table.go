package engine

import (
	"fmt"
)

// Table is a named engine table: ordered columns and rows keyed by column name.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Row is one table row.
type Row map[string]any

// Float returns a numeric column value. Missing or non-numeric values yield 0.
func (r Row) Float(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// String returns a column value as text.
func (r Row) String(col string) string {
	v, ok := r[col]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Index returns the position of the first row whose "name" column equals name.
func (t *Table) Index(name string) (int, bool) {
	for i, row := range t.Rows {
		if row.String("name") == name {
			return i, true
		}
	}
	return -1, false
}
