package remote

import (
	"fmt"

	"github.com/specialistvlad/madxpgo/internal/engine"
)

// wireAttr is one element attribute on the wire. Expr is set only for
// expression-valued attributes.
type wireAttr struct {
	Expr  *string `json:"expr,omitempty"`
	Value any     `json:"value"`
}

type wireElement struct {
	Name     string              `json:"name"`
	Parent   string              `json:"parent"`
	BaseType string              `json:"base_type"`
	Position float64             `json:"position"`
	Length   float64             `json:"length"`
	Attrs    map[string]wireAttr `json:"attrs"`
}

type wireTable struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func decodeElements(wire []wireElement) ([]engine.Element, error) {
	out := make([]engine.Element, 0, len(wire))
	for _, w := range wire {
		el := engine.Element{
			Name:     w.Name,
			Parent:   w.Parent,
			BaseType: w.BaseType,
			Position: w.Position,
			Length:   w.Length,
			Attrs:    make(map[string]engine.Attr, len(w.Attrs)),
		}
		for name, a := range w.Attrs {
			attr, err := decodeAttr(a)
			if err != nil {
				return nil, fmt.Errorf("element %q attribute %q: %w", w.Name, name, err)
			}
			el.Attrs[name] = attr
		}
		out = append(out, el)
	}
	return out, nil
}

func decodeAttr(a wireAttr) (engine.Attr, error) {
	if a.Expr != nil {
		v, ok := a.Value.(float64)
		if !ok && a.Value != nil {
			return nil, fmt.Errorf("expression %q has non-numeric value %v", *a.Expr, a.Value)
		}
		return engine.NewExpression(*a.Expr, v), nil
	}
	return engine.Literal{Value: literalValue(a.Value)}, nil
}

// literalValue turns a JSON list of numbers into []float64; other values
// are kept as decoded.
func literalValue(v any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]float64, 0, len(list))
	for _, item := range list {
		f, ok := item.(float64)
		if !ok {
			return v
		}
		out = append(out, f)
	}
	return out
}

func decodeTable(w wireTable) (*engine.Table, error) {
	t := &engine.Table{Name: w.Name, Columns: w.Columns}
	for i, values := range w.Rows {
		if len(values) != len(w.Columns) {
			return nil, fmt.Errorf("table %q row %d: got %d values for %d columns", w.Name, i, len(values), len(w.Columns))
		}
		row := make(engine.Row, len(values))
		for j, v := range values {
			row[w.Columns[j]] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
