package sandbox

import (
	"fmt"
	"os"
	"strings"

	"github.com/specialistvlad/madxpgo/internal/engine"
	"gopkg.in/yaml.v3"
)

// Fixture seeds a sandbox with the machine description the sandbox cannot
// build from engine code.
type Fixture struct {
	Sequences []SequenceFixture `yaml:"sequences"`
	Tables    []TableFixture    `yaml:"tables"`
}

// SequenceFixture describes one sequence. Elements are listed in sequence order.
type SequenceFixture struct {
	Name     string           `yaml:"name"`
	Length   float64          `yaml:"length"`
	Elements []ElementFixture `yaml:"elements"`
}

// ElementFixture describes one element. A string attribute starting with
// ":=" is an expression; any other value is a literal.
type ElementFixture struct {
	Name       string         `yaml:"name"`
	Parent     string         `yaml:"parent"`
	BaseType   string         `yaml:"base_type"`
	At         float64        `yaml:"at"`
	Attributes map[string]any `yaml:"attributes"`
}

// TableFixture describes one table; each row lists values in column order.
type TableFixture struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Rows    [][]any  `yaml:"rows"`
}

// ParseFixture decodes a YAML fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode sandbox fixture: %w", err)
	}
	return &f, nil
}

// LoadFixtureFile reads and decodes a YAML fixture file.
func LoadFixtureFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sandbox fixture %s: %w", path, err)
	}
	return ParseFixture(data)
}

// Load adds the fixture's sequences and tables to the session.
func (s *Sandbox) Load(f *Fixture) error {
	for _, sf := range f.Sequences {
		if err := s.DefineSequence(sf); err != nil {
			return err
		}
	}
	for _, tf := range f.Tables {
		t := &engine.Table{Name: tf.Name, Columns: tf.Columns}
		for i, values := range tf.Rows {
			if len(values) != len(tf.Columns) {
				return fmt.Errorf("table %q row %d: got %d values for %d columns", tf.Name, i, len(values), len(tf.Columns))
			}
			row := make(engine.Row, len(values))
			for j, v := range values {
				row[tf.Columns[j]] = normalize(v)
			}
			t.Rows = append(t.Rows, row)
		}
		s.SetTable(t)
	}
	return nil
}

// DefineSequence adds or replaces a sequence.
func (s *Sandbox) DefineSequence(sf SequenceFixture) error {
	if sf.Name == "" {
		return fmt.Errorf("sequence without a name")
	}
	seq := &sequence{name: strings.ToLower(sf.Name), length: sf.Length}
	for _, ef := range sf.Elements {
		el := &element{
			name:     strings.ToLower(ef.Name),
			parent:   strings.ToLower(ef.Parent),
			baseType: strings.ToLower(ef.BaseType),
			at:       ef.At,
			literals: make(map[string]any),
			exprs:    make(map[string]string),
		}
		if el.baseType == "" {
			return fmt.Errorf("sequence %q: element %q has no base type", sf.Name, ef.Name)
		}
		if el.parent == "" {
			el.parent = el.baseType
		}
		for k, v := range ef.Attributes {
			k = strings.ToLower(k)
			if text, ok := v.(string); ok && strings.HasPrefix(text, ":=") {
				el.exprs[k] = strings.ToLower(strings.TrimSpace(text[2:]))
				continue
			}
			el.literals[k] = normalize(v)
		}
		seq.elements = append(seq.elements, el)
	}
	s.sequences[seq.name] = seq
	return nil
}

// normalize maps YAML scalars onto the value types engine.Literal carries.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case []any:
		out := make([]float64, 0, len(x))
		for _, item := range x {
			f, ok := normalize(item).(float64)
			if !ok {
				return x
			}
			out = append(out, f)
		}
		return out
	default:
		return v
	}
}
