// Package sandbox is an in-process engine for dry runs and tests.
//
// It understands the variable subset of the domain language (immediate,
// deferred and constant assignments) plus the "beam" and "use" commands.
// Sequences, elements and tables cannot be built from engine code; they
// are seeded from a YAML fixture or through the Go API. Every other
// statement is recorded and otherwise ignored. Expression values are
// computed with HCL native syntax over a cty evaluation context.
package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"

	"github.com/specialistvlad/madxpgo/internal/ctxlog"
	"github.com/specialistvlad/madxpgo/internal/engine"
	"github.com/zclconf/go-cty/cty/function"
)

// Sandbox implements engine.Engine in memory.
type Sandbox struct {
	logger *slog.Logger
	funcs  map[string]function.Function

	vars      map[string]*variable
	sequences map[string]*sequence
	tables    map[string]*engine.Table
	// pendingBeams holds beams declared for sequences that are not used yet.
	pendingBeams map[string]map[string]any
	commands     []string

	scopeOpen bool
	closed    bool
}

// sequence is a machine sequence held by the sandbox.
type sequence struct {
	name     string
	length   float64
	elements []*element
	beam     map[string]any
	expanded bool
}

// element keeps raw attributes: literals as Go values and expressions as
// their source text.
type element struct {
	name     string
	parent   string
	baseType string
	at       float64
	literals map[string]any
	exprs    map[string]string
}

// Option configures a Sandbox.
type Option func(*Sandbox)

// WithSeed makes the random built-ins deterministic.
func WithSeed(seed uint64) Option {
	return func(s *Sandbox) {
		s.funcs = mathFunctions(rand.New(rand.NewPCG(seed, seed)))
	}
}

// New creates an empty sandbox session holding only the predefined names.
func New(ctx context.Context, opts ...Option) *Sandbox {
	s := &Sandbox{
		logger:       ctxlog.FromContext(ctx).With("engine", "sandbox"),
		funcs:        mathFunctions(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))),
		sequences:    make(map[string]*sequence),
		tables:       make(map[string]*engine.Table),
		pendingBeams: make(map[string]map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resetNamespace()
	return s
}

// Factory returns an engine.Factory opening sandboxes seeded with fixture,
// which may be nil.
func Factory(fixture *Fixture, opts ...Option) engine.Factory {
	return func(ctx context.Context) (engine.Engine, error) {
		s := New(ctx, opts...)
		if fixture != nil {
			if err := s.Load(fixture); err != nil {
				return nil, err
			}
		}
		return s, nil
	}
}

var _ engine.Engine = (*Sandbox)(nil)

// Input executes engine code.
func (s *Sandbox) Input(ctx context.Context, code string) error {
	if s.closed {
		return engine.ErrClosed
	}
	for _, stmt := range splitStatements(code) {
		if err := s.exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Globals returns the value of every namespace name.
func (s *Sandbox) Globals(ctx context.Context) (map[string]float64, error) {
	if s.closed {
		return nil, engine.ErrClosed
	}
	return s.globals(), nil
}

// Definition returns the expression of a deferred variable or the value of
// any other variable.
func (s *Sandbox) Definition(ctx context.Context, name string) (string, error) {
	if s.closed {
		return "", engine.ErrClosed
	}
	return s.definition(name)
}

// IsConstant reports whether name was declared constant.
func (s *Sandbox) IsConstant(ctx context.Context, name string) (bool, error) {
	if s.closed {
		return false, engine.ErrClosed
	}
	v, ok := s.vars[name]
	if !ok {
		return false, engine.UnknownNameError("variable", name)
	}
	return v.constant, nil
}

// IsDeferred reports whether name was assigned with ":=".
func (s *Sandbox) IsDeferred(ctx context.Context, name string) (bool, error) {
	if s.closed {
		return false, engine.ErrClosed
	}
	v, ok := s.vars[name]
	if !ok {
		return false, engine.UnknownNameError("variable", name)
	}
	return v.deferred, nil
}

// Sequences lists the defined sequences.
func (s *Sandbox) Sequences(ctx context.Context) ([]engine.SequenceInfo, error) {
	if s.closed {
		return nil, engine.ErrClosed
	}
	out := make([]engine.SequenceInfo, 0, len(s.sequences))
	for _, seq := range s.sequences {
		out = append(out, engine.SequenceInfo{
			Name:     seq.name,
			HasBeam:  seq.beam != nil,
			Expanded: seq.expanded,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Beam returns the beam attached to a sequence.
func (s *Sandbox) Beam(ctx context.Context, name string) (map[string]any, bool, error) {
	if s.closed {
		return nil, false, engine.ErrClosed
	}
	seq, ok := s.sequences[name]
	if !ok {
		return nil, false, engine.UnknownNameError("sequence", name)
	}
	if seq.beam == nil {
		return nil, false, nil
	}
	out := make(map[string]any, len(seq.beam))
	for k, v := range seq.beam {
		out[k] = v
	}
	return out, true, nil
}

// Elements returns the elements of a sequence with expressions evaluated
// against the current namespace.
func (s *Sandbox) Elements(ctx context.Context, name string) ([]engine.Element, error) {
	if s.closed {
		return nil, engine.ErrClosed
	}
	seq, ok := s.sequences[name]
	if !ok {
		return nil, engine.UnknownNameError("sequence", name)
	}

	out := make([]engine.Element, 0, len(seq.elements))
	for _, el := range seq.elements {
		attrs := make(map[string]engine.Attr, len(el.literals)+len(el.exprs))
		for k, v := range el.literals {
			attrs[k] = engine.Literal{Value: v}
		}
		for k, text := range el.exprs {
			v, err := s.evalExpr(text, nil)
			if err != nil {
				return nil, fmt.Errorf("element %q attribute %q: %w", el.name, k, err)
			}
			attrs[k] = engine.NewExpression(text, v)
		}
		out = append(out, engine.Element{
			Name:     el.name,
			Parent:   el.parent,
			BaseType: el.baseType,
			Position: el.at,
			Length:   attrFloat(attrs["l"]),
			Attrs:    attrs,
		})
	}
	return out, nil
}

// TableNames lists the tables held by the session.
func (s *Sandbox) TableNames(ctx context.Context) ([]string, error) {
	if s.closed {
		return nil, engine.ErrClosed
	}
	out := make([]string, 0, len(s.tables))
	for name := range s.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Table returns a copy of a table.
func (s *Sandbox) Table(ctx context.Context, name string) (*engine.Table, error) {
	if s.closed {
		return nil, engine.ErrClosed
	}
	t, ok := s.tables[name]
	if !ok {
		return nil, engine.UnknownNameError("table", name)
	}
	out := &engine.Table{Name: t.Name, Columns: append([]string(nil), t.Columns...)}
	for _, row := range t.Rows {
		out.Rows = append(out.Rows, row.Clone())
	}
	return out, nil
}

// SetTable stores a table, replacing any table with the same name.
func (s *Sandbox) SetTable(t *engine.Table) {
	s.tables[t.Name] = t
}

// OpenScope marks the start of a batch. Scopes do not nest.
func (s *Sandbox) OpenScope(ctx context.Context) (engine.Scope, error) {
	if s.closed {
		return nil, engine.ErrClosed
	}
	if s.scopeOpen {
		return nil, engine.ErrScopeOpen
	}
	s.scopeOpen = true
	return scopeFunc(func(context.Context) error {
		s.scopeOpen = false
		return nil
	}), nil
}

// ScopeOpen reports whether a scope is currently held.
func (s *Sandbox) ScopeOpen() bool { return s.scopeOpen }

// Commands returns the statements the sandbox recorded without executing.
func (s *Sandbox) Commands() []string {
	return append([]string(nil), s.commands...)
}

// Close ends the session.
func (s *Sandbox) Close(ctx context.Context) error {
	s.closed = true
	return nil
}

type scopeFunc func(context.Context) error

func (f scopeFunc) Close(ctx context.Context) error { return f(ctx) }

func attrFloat(a engine.Attr) float64 {
	switch v := a.(type) {
	case engine.Expression:
		return v.Value
	case engine.Literal:
		if f, ok := v.Value.(float64); ok {
			return f
		}
	}
	return 0
}
