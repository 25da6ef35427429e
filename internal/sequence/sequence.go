// Package sequence introspects the machine sequences held by an engine and
// annotates every element with the knobs driving it.
package sequence

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/madxpgo/internal/ctxlog"
	"github.com/specialistvlad/madxpgo/internal/engine"
	"github.com/specialistvlad/madxpgo/internal/vars"
)

// Element is one row of an element table.
type Element struct {
	Name       string
	Position   float64
	Parent     string
	BaseType   string
	Length     float64
	Parameters []string
	Knobs      []string
	Attrs      map[string]engine.Attr
}

// Key returns the element name.
func (e Element) Key() string { return e.Name }

// KnobList returns the knobs of the element.
func (e Element) KnobList() []string { return e.Knobs }

// Table is the element table of one sequence, in sequence order.
type Table struct {
	Sequence string
	Elements []Element

	// Warnings lists undefined parameters met while resolving knobs.
	Warnings []*vars.UndefinedParameterWarning
}

// Beam is the beam attached to one sequence.
type Beam struct {
	Sequence string
	Attrs    map[string]any
}

// Sequences lists the sequences of eng with their beam and expansion flags.
func Sequences(ctx context.Context, eng engine.Engine) ([]engine.SequenceInfo, error) {
	seqs, err := eng.Sequences(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sequences: %w", err)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i].Name < seqs[j].Name })
	return seqs, nil
}

// Beams returns the beams attached to sequences. Sequences without a beam
// are skipped.
func Beams(ctx context.Context, eng engine.Engine) ([]Beam, error) {
	logger := ctxlog.FromContext(ctx)

	seqs, err := Sequences(ctx, eng)
	if err != nil {
		return nil, err
	}
	var out []Beam
	for _, seq := range seqs {
		attrs, ok, err := eng.Beam(ctx, seq.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to read beam of %q: %w", seq.Name, err)
		}
		if !ok {
			logger.Info("Sequence has no beam attached.", "sequence", seq.Name)
			continue
		}
		out = append(out, Beam{Sequence: seq.Name, Attrs: attrs})
	}
	return out, nil
}

// Build reads the elements of a sequence and resolves their knobs against
// one namespace snapshot taken for the whole sequence.
func Build(ctx context.Context, eng engine.Engine, name string) (*Table, error) {
	ns, err := vars.Snapshot(ctx, eng)
	if err != nil {
		return nil, err
	}
	return BuildWith(ctx, eng, name, ns)
}

// BuildWith is Build over an existing namespace snapshot.
func BuildWith(ctx context.Context, eng engine.Engine, name string, ns *vars.Namespace) (*Table, error) {
	logger := ctxlog.FromContext(ctx).With("sequence", name)

	elements, err := eng.Elements(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read elements of %q: %w", name, err)
	}

	before := len(ns.Warnings)
	t := &Table{Sequence: name, Elements: make([]Element, 0, len(elements))}
	for _, el := range elements {
		ps := el.Parameters()
		t.Elements = append(t.Elements, Element{
			Name:       el.Name,
			Position:   el.Position,
			Parent:     el.Parent,
			BaseType:   el.BaseType,
			Length:     el.Length,
			Parameters: ps,
			Knobs:      ns.KnobsFromParameters(ctx, el.Name, ps),
			Attrs:      el.Attrs,
		})
	}
	t.Warnings = append(t.Warnings, ns.Warnings[before:]...)
	logger.Debug("Element table built.", "elements", len(t.Elements), "warnings", len(t.Warnings))
	return t, nil
}

// Element returns the row of a named element.
func (t *Table) Element(name string) (Element, bool) {
	for _, el := range t.Elements {
		if el.Name == name {
			return el, true
		}
	}
	return Element{}, false
}
