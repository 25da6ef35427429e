package sandbox

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/specialistvlad/madxpgo/internal/engine"
	"github.com/specialistvlad/madxpgo/internal/params"
)

// errCycle marks an expression whose evaluation reaches itself.
var errCycle = errors.New("circular definition")

// variable is one entry of the namespace. A deferred variable keeps its
// expression and is evaluated on every read.
type variable struct {
	value    float64
	expr     string
	deferred bool
	constant bool
}

// predefinedConstants are the constants every session starts with.
var predefinedConstants = map[string]float64{
	"pi":     math.Pi,
	"twopi":  2 * math.Pi,
	"degrad": 180 / math.Pi,
	"raddeg": math.Pi / 180,
	"e":      math.E,
	"amu0":   4e-7 * math.Pi,
	"emass":  0.51099895000e-3,
	"mumass": 0.1056583755,
	"nmass":  0.93149410242,
	"pmass":  0.93827208816,
	"clight": 299792458,
	"qelect": 1.602176634e-19,
	"hbar":   6.582119569e-25,
	"erad":   2.8179403262e-15,
	"prad":   1.53469825e-18,
}

// predefinedVariables are mutable names every session starts with.
var predefinedVariables = map[string]float64{
	"none":      0,
	"twiss_tol": 1e-6,
}

func (s *Sandbox) resetNamespace() {
	s.vars = make(map[string]*variable, len(predefinedConstants)+len(predefinedVariables))
	for name, v := range predefinedConstants {
		s.vars[name] = &variable{value: v, constant: true}
	}
	for name, v := range predefinedVariables {
		s.vars[name] = &variable{value: v}
	}
}

// assign implements "name = expr", "name := expr" and "const name = expr".
func (s *Sandbox) assign(name, expr string, deferred, constant bool) error {
	if existing, ok := s.vars[name]; ok && existing.constant {
		return fmt.Errorf("cannot redefine constant %q", name)
	}

	// Referencing an unknown name defines it as zero.
	for _, p := range params.Extract(expr) {
		if _, ok := s.vars[p]; !ok && p != name {
			s.vars[p] = &variable{}
		}
	}

	if deferred && !constant {
		s.vars[name] = &variable{expr: expr, deferred: true}
		return nil
	}

	value, err := s.evalExpr(expr, nil)
	if err != nil {
		return fmt.Errorf("assigning %q: %w", name, err)
	}
	s.vars[name] = &variable{value: value, constant: constant}
	return nil
}

// evalExpr evaluates an expression against the namespace. Names missing
// from the namespace read as zero without being defined.
func (s *Sandbox) evalExpr(expr string, visiting map[string]bool) (float64, error) {
	values := make(map[string]float64)
	for _, p := range params.Extract(expr) {
		v, err := s.valueOf(p, visiting)
		if err != nil {
			return 0, err
		}
		values[p] = v
	}
	return evaluate(expr, values, s.funcs)
}

func (s *Sandbox) valueOf(name string, visiting map[string]bool) (float64, error) {
	v, ok := s.vars[name]
	if !ok {
		return 0, nil
	}
	if !v.deferred {
		return v.value, nil
	}
	if visiting[name] {
		return 0, fmt.Errorf("%w through %q", errCycle, name)
	}
	if visiting == nil {
		visiting = make(map[string]bool)
	}
	visiting[name] = true
	defer delete(visiting, name)
	return s.evalExpr(v.expr, visiting)
}

func (s *Sandbox) globals() map[string]float64 {
	out := make(map[string]float64, len(s.vars))
	for name := range s.vars {
		v, err := s.valueOf(name, nil)
		if err != nil {
			s.logger.Warn("Variable cannot be evaluated.", "name", name, "error", err)
			v = math.NaN()
		}
		out[name] = v
	}
	return out
}

func (s *Sandbox) definition(name string) (string, error) {
	v, ok := s.vars[name]
	if !ok {
		return "", engine.UnknownNameError("variable", name)
	}
	if v.deferred {
		return v.expr, nil
	}
	return strconv.FormatFloat(v.value, 'g', -1, 64), nil
}

// names returns the sorted namespace names.
func (s *Sandbox) names() []string {
	out := make([]string, 0, len(s.vars))
	for name := range s.vars {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
