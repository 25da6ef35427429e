package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/specialistvlad/madxpgo/internal/params"
)

// Attr is an element attribute value, decided once when the attribute is
// read from the engine: either a Literal or an Expression.
type Attr interface {
	// String renders the attribute the way the engine prints it.
	String() string
	isAttr()
}

// Literal is a plain attribute value: a number, string, bool or a list of
// numbers.
type Literal struct {
	Value any
}

func (Literal) isAttr() {}

func (l Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return ""
	case float64:
		return formatFloat(v)
	case []float64:
		parts := make([]string, len(v))
		for i, f := range v {
			parts[i] = formatFloat(f)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(v)
	}
}

// Expression is a deferred attribute: its source text, the value the
// engine currently evaluates it to and the names it references.
type Expression struct {
	Text       string
	Value      float64
	Parameters []string
}

func (Expression) isAttr() {}

func (e Expression) String() string { return e.Text }

// NewExpression builds an Expression and extracts its parameters.
func NewExpression(text string, value float64) Expression {
	return Expression{Text: text, Value: value, Parameters: params.Extract(text)}
}

// Element is one element of a sequence as reported by the engine.
type Element struct {
	Name     string
	Parent   string
	BaseType string
	Position float64
	Length   float64
	Attrs    map[string]Attr
}

// AttrNames returns the attribute names in sorted order.
func (e Element) AttrNames() []string {
	names := make([]string, 0, len(e.Attrs))
	for name := range e.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parameters returns the sorted union of the parameters of every
// expression-valued attribute.
func (e Element) Parameters() []string {
	seen := make(map[string]struct{})
	for _, a := range e.Attrs {
		if expr, ok := a.(Expression); ok {
			for _, p := range expr.Parameters {
				seen[p] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
