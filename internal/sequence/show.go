package sequence

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/madxpgo/internal/engine"
)

// Field is one name/value pair of a transposed element view.
type Field struct {
	Name  string
	Value string
}

// Fields returns the element as a list of fields: the fixed columns first,
// then the attributes by name. Empty attributes are dropped. Expression
// attributes add a "<name> value" field with their current value.
func (e Element) Fields() []Field {
	out := []Field{
		{"name", e.Name},
		{"position", formatFloat(e.Position)},
		{"parent", e.Parent},
		{"base_type", e.BaseType},
		{"length", formatFloat(e.Length)},
		{"parameters", "[" + strings.Join(e.Parameters, ", ") + "]"},
		{"knobs", "[" + strings.Join(e.Knobs, ", ") + "]"},
	}
	el := engine.Element{Attrs: e.Attrs}
	for _, name := range el.AttrNames() {
		a := e.Attrs[name]
		text := a.String()
		if text == "" {
			continue
		}
		out = append(out, Field{name, text})
		if expr, ok := a.(engine.Expression); ok {
			out = append(out, Field{name + " value", formatFloat(expr.Value)})
		}
	}
	return out
}

// Show returns the named element of the table, transposed.
func (t *Table) Show(name string) ([]Field, error) {
	el, ok := t.Element(name)
	if !ok {
		return nil, engine.UnknownNameError("element", name)
	}
	return el.Fields(), nil
}

// NamedTable is an engine table indexed by its "name" column.
type NamedTable struct {
	*engine.Table
	index map[string]int
}

// ImportTable reads a named engine table. When a name repeats, Row returns
// its first occurrence.
func ImportTable(ctx context.Context, eng engine.Engine, name string) (*NamedTable, error) {
	t, err := eng.Table(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %q: %w", name, err)
	}
	nt := &NamedTable{Table: t, index: make(map[string]int, len(t.Rows))}
	for i, row := range t.Rows {
		key := row.String("name")
		if _, ok := nt.index[key]; !ok {
			nt.index[key] = i
		}
	}
	return nt, nil
}

// Row returns the row whose name column equals name.
func (t *NamedTable) Row(name string) (engine.Row, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.Rows[i], true
}

func formatFloat(f float64) string {
	return engine.Literal{Value: f}.String()
}
