// Package vars classifies the engine variable namespace and resolves, for
// every dependent variable, the independent knobs that drive it.
package vars

import (
	"context"
	"fmt"
	"sort"

	"github.com/specialistvlad/madxpgo/internal/ctxlog"
	"github.com/specialistvlad/madxpgo/internal/engine"
	"github.com/specialistvlad/madxpgo/internal/params"
)

// Kind is the classification of a namespace name.
type Kind int

const (
	Constant Kind = iota
	Independent
	Dependent
)

func (k Kind) String() string {
	switch k {
	case Constant:
		return "constant"
	case Independent:
		return "independent"
	case Dependent:
		return "dependent"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Variable is one classified namespace entry. Expression, Parameters and
// Knobs are set for dependent variables only.
//
// Pinned marks an independent variable bound to a deferred expression that
// references no name, such as "h := 3". Its value only changes when it is
// redefined, so it is not a knob.
type Variable struct {
	Name       string   `json:"name" msgpack:"name"`
	Kind       Kind     `json:"kind" msgpack:"kind"`
	Value      float64  `json:"value" msgpack:"value"`
	Pinned     bool     `json:"pinned,omitempty" msgpack:"pinned,omitempty"`
	Expression string   `json:"expression,omitempty" msgpack:"expression,omitempty"`
	Parameters []string `json:"parameters,omitempty" msgpack:"parameters,omitempty"`
	Knobs      []string `json:"knobs,omitempty" msgpack:"knobs,omitempty"`
}

// Key returns the variable name.
func (v Variable) Key() string { return v.Name }

// KnobList returns the knobs of the variable: itself when it is a free
// independent variable, nothing when it is a constant or pinned.
func (v Variable) KnobList() []string {
	switch v.Kind {
	case Independent:
		if v.Pinned {
			return nil
		}
		return []string{v.Name}
	case Dependent:
		return v.Knobs
	default:
		return nil
	}
}

// Namespace is a classified snapshot of the engine variables. Each of the
// three tables is sorted by name.
type Namespace struct {
	Constants   []Variable
	Independent []Variable
	Dependent   []Variable

	// Warnings lists the undefined parameters met while resolving knobs.
	Warnings []*UndefinedParameterWarning

	byName map[string]Variable
}

// Snapshot reads every variable from eng, classifies it and resolves the
// knobs of the dependent ones.
func Snapshot(ctx context.Context, eng engine.Engine) (*Namespace, error) {
	logger := ctxlog.FromContext(ctx)

	globals, err := eng.Globals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read namespace: %w", err)
	}

	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	sort.Strings(names)

	all := make([]Variable, 0, len(names))
	for _, name := range names {
		def, err := eng.Definition(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read definition of %q: %w", name, err)
		}
		v := Variable{Name: name, Value: globals[name]}
		if ps := params.Extract(def); len(ps) > 0 {
			v.Kind = Dependent
			v.Expression = def
			v.Parameters = ps
		} else {
			constant, err := eng.IsConstant(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("failed to read constant flag of %q: %w", name, err)
			}
			switch {
			case constant:
				v.Kind = Constant
			default:
				v.Kind = Independent
				if v.Pinned, err = eng.IsDeferred(ctx, name); err != nil {
					return nil, fmt.Errorf("failed to read deferred flag of %q: %w", name, err)
				}
			}
		}
		all = append(all, v)
	}

	ns, err := Classify(ctx, all)
	if err != nil {
		return nil, err
	}
	logger.Debug("Namespace classified.",
		"constants", len(ns.Constants),
		"independent", len(ns.Independent),
		"dependent", len(ns.Dependent),
		"warnings", len(ns.Warnings),
	)
	return ns, nil
}

// Classify builds a Namespace from variables whose Kind, and Parameters for
// dependent ones, are already set. Knobs are resolved here.
func Classify(ctx context.Context, all []Variable) (*Namespace, error) {
	ns := &Namespace{byName: make(map[string]Variable, len(all))}
	for _, v := range all {
		ns.byName[v.Name] = v
	}

	dependent := make(map[string][]string)
	for _, v := range all {
		if v.Kind == Dependent {
			dependent[v.Name] = v.Parameters
		}
	}
	closure, err := Resolve(dependent)
	if err != nil {
		return nil, err
	}

	for _, v := range all {
		switch v.Kind {
		case Constant:
			ns.Constants = append(ns.Constants, v)
		case Independent:
			ns.Independent = append(ns.Independent, v)
		case Dependent:
			v.Knobs = ns.stripFixed(ctx, v.Name, closure[v.Name])
			ns.byName[v.Name] = v
			ns.Dependent = append(ns.Dependent, v)
		}
	}
	for _, table := range [][]Variable{ns.Constants, ns.Independent, ns.Dependent} {
		sort.Slice(table, func(i, j int) bool { return table[i].Name < table[j].Name })
	}
	return ns, nil
}

// stripFixed removes constants and pinned variables from a resolved knob
// set. Names missing from the namespace are kept and reported.
func (ns *Namespace) stripFixed(ctx context.Context, owner string, closure []string) []string {
	out := make([]string, 0, len(closure))
	for _, name := range closure {
		v, ok := ns.byName[name]
		if !ok {
			ns.warn(ctx, owner, name)
			out = append(out, name)
			continue
		}
		if len(v.KnobList()) == 0 {
			continue
		}
		out = append(out, name)
	}
	return out
}

func (ns *Namespace) warn(ctx context.Context, owner, name string) {
	w := &UndefinedParameterWarning{Owner: owner, Name: name}
	ctxlog.FromContext(ctx).Warn("Undefined parameter, treated as a knob.", "owner", owner, "name", name)
	ns.Warnings = append(ns.Warnings, w)
}

// Lookup returns a classified variable by name.
func (ns *Namespace) Lookup(name string) (Variable, bool) {
	v, ok := ns.byName[name]
	return v, ok
}

// Len returns the number of classified names.
func (ns *Namespace) Len() int { return len(ns.byName) }

// KnobsOf returns the knob set of every dependent variable.
func (ns *Namespace) KnobsOf() map[string][]string {
	out := make(map[string][]string, len(ns.Dependent))
	for _, v := range ns.Dependent {
		out[v.Name] = append([]string(nil), v.Knobs...)
	}
	return out
}

// KnobsFromParameters resolves an arbitrary parameter list, such as the
// parameters of an element, to its sorted knob set. Undefined names are
// reported against owner and kept as knobs.
func (ns *Namespace) KnobsFromParameters(ctx context.Context, owner string, parameters []string) []string {
	set := make(map[string]struct{})
	for _, p := range parameters {
		v, ok := ns.byName[p]
		if !ok {
			ns.warn(ctx, owner, p)
			set[p] = struct{}{}
			continue
		}
		for _, k := range v.KnobList() {
			set[k] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
