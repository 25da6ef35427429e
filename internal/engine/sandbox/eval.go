package sandbox

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/madxpgo/internal/params"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/gocty"
)

// namespaceVar is the HCL variable holding the engine namespace. Engine
// names may contain dots, so every name is read with an index traversal
// (v["kq.1"]) instead of being exposed as a root variable.
const namespaceVar = "v"

// translate rewrites an engine expression into HCL native syntax. Function
// calls are kept as they are; every other identifier becomes an index into
// the namespace variable. HCL has no power operator, so a^b becomes
// pow(a, b); ^ is right-associative and binds tighter than unary minus.
func translate(expr string) (string, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return "", err
	}
	toks, err = rewritePow(toks)
	if err != nil {
		return "", fmt.Errorf("%w in %q", err, expr)
	}
	return strings.Join(toks, " "), nil
}

func tokenize(expr string) ([]string, error) {
	var toks []string
	src := expr
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			name := src[i:j]
			k := j
			for k < len(src) && (src[k] == ' ' || src[k] == '\t') {
				k++
			}
			if k < len(src) && src[k] == '(' {
				if !params.IsBuiltin(name) {
					return nil, fmt.Errorf("unknown function %q in %q", name, expr)
				}
				toks = append(toks, name)
			} else {
				toks = append(toks, fmt.Sprintf("%s[%q]", namespaceVar, name))
			}
			i = j
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			j := i
			for j < len(src) && (isDigit(src[j]) || src[j] == '.') {
				j++
			}
			if j < len(src) && (src[j] == 'e' || src[j] == 'E') {
				k := j + 1
				if k < len(src) && (src[k] == '+' || src[k] == '-') {
					k++
				}
				if k < len(src) && isDigit(src[k]) {
					for k < len(src) && isDigit(src[k]) {
						k++
					}
					j = k
				}
			}
			lit := src[i:j]
			if lit[0] == '.' {
				lit = "0" + lit
			}
			toks = append(toks, lit)
			i = j
		case strings.IndexByte("+-*/^(),", c) >= 0:
			toks = append(toks, string(c))
			i++
		default:
			return nil, fmt.Errorf("unsupported character %q in %q", c, expr)
		}
	}
	return toks, nil
}

func isOperator(tok string) bool {
	return len(tok) == 1 && strings.IndexByte("+-*/^(),", tok[0]) >= 0
}

// rewritePow replaces every "^" with a pow call, starting from the
// rightmost one so that a^b^c reads a^(b^c).
func rewritePow(toks []string) ([]string, error) {
	for {
		p := -1
		for i := len(toks) - 1; i >= 0; i-- {
			if toks[i] == "^" {
				p = i
				break
			}
		}
		if p < 0 {
			return toks, nil
		}
		start, err := operandBefore(toks, p-1)
		if err != nil {
			return nil, err
		}
		end, err := operandAfter(toks, p+1)
		if err != nil {
			return nil, err
		}
		base, err := rewritePow(toks[start:p])
		if err != nil {
			return nil, err
		}
		call := fmt.Sprintf("pow(%s, %s)", strings.Join(base, " "), strings.Join(toks[p+1:end], " "))

		out := make([]string, 0, len(toks)-(end-start)+1)
		out = append(out, toks[:start]...)
		out = append(out, call)
		out = append(out, toks[end:]...)
		toks = out
	}
}

// operandBefore returns the start of the operand ending at toks[i].
func operandBefore(toks []string, i int) (int, error) {
	if i < 0 {
		return 0, fmt.Errorf("missing base before '^'")
	}
	if toks[i] != ")" {
		if isOperator(toks[i]) {
			return 0, fmt.Errorf("missing base before '^'")
		}
		return i, nil
	}
	depth := 0
	for j := i; j >= 0; j-- {
		switch toks[j] {
		case ")":
			depth++
		case "(":
			depth--
			if depth == 0 {
				if j > 0 && !isOperator(toks[j-1]) {
					return j - 1, nil
				}
				return j, nil
			}
		}
	}
	return 0, fmt.Errorf("unbalanced parentheses")
}

// operandAfter returns the end of the operand starting at toks[i], signs
// included.
func operandAfter(toks []string, i int) (int, error) {
	for i < len(toks) && (toks[i] == "-" || toks[i] == "+") {
		i++
	}
	if i >= len(toks) {
		return 0, fmt.Errorf("missing exponent after '^'")
	}
	open := i
	switch {
	case toks[i] == "(":
	case !isOperator(toks[i]) && i+1 < len(toks) && toks[i+1] == "(":
		open = i + 1
	case !isOperator(toks[i]):
		return i + 1, nil
	default:
		return 0, fmt.Errorf("missing exponent after '^'")
	}
	depth := 0
	for j := open; j < len(toks); j++ {
		switch toks[j] {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return j + 1, nil
			}
		}
	}
	return 0, fmt.Errorf("unbalanced parentheses")
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '.'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// evaluate computes expr given the values of the names it references.
func evaluate(expr string, values map[string]float64, funcs map[string]function.Function) (float64, error) {
	src, err := translate(expr)
	if err != nil {
		return 0, err
	}
	parsed, diags := hclsyntax.ParseExpression([]byte(src), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return 0, fmt.Errorf("invalid expression %q: %w", expr, diags)
	}

	ns := cty.MapValEmpty(cty.Number)
	if len(values) > 0 {
		vals := make(map[string]cty.Value, len(values))
		for name, f := range values {
			vals[name] = cty.NumberFloatVal(f)
		}
		ns = cty.MapVal(vals)
	}
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{namespaceVar: ns},
		Functions: funcs,
	}

	val, diags := parsed.Value(evalCtx)
	if diags.HasErrors() {
		return 0, fmt.Errorf("cannot evaluate %q: %w", expr, diags)
	}
	var out float64
	if err := gocty.FromCtyValue(val, &out); err != nil {
		return 0, fmt.Errorf("expression %q is not numeric: %w", expr, err)
	}
	return out, nil
}

// mathFunctions builds the engine's built-in functions as cty functions.
func mathFunctions(rng *rand.Rand) map[string]function.Function {
	unary := map[string]func(float64) float64{
		"sqrt":  math.Sqrt,
		"log":   math.Log,
		"log10": math.Log10,
		"exp":   math.Exp,
		"sin":   math.Sin,
		"cos":   math.Cos,
		"tan":   math.Tan,
		"asin":  math.Asin,
		"acos":  math.Acos,
		"atan":  math.Atan,
		"sinh":  math.Sinh,
		"cosh":  math.Cosh,
		"tanh":  math.Tanh,
		"abs":   math.Abs,
		"erf":   math.Erf,
		"erfc":  math.Erfc,
		"floor": math.Floor,
		"ceil":  math.Ceil,
		"round": math.Round,
		"sinc": func(x float64) float64 {
			if x == 0 {
				return 1
			}
			return math.Sin(x) / x
		},
		"frac": func(x float64) float64 {
			_, f := math.Modf(x)
			return f
		},
		"tgauss": func(cut float64) float64 {
			for {
				if g := rng.NormFloat64(); math.Abs(g) <= cut {
					return g
				}
			}
		},
	}

	funcs := make(map[string]function.Function, len(unary)+3)
	for name, fn := range unary {
		funcs[name] = unaryFunction(name, fn)
	}
	funcs["pow"] = function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "x", Type: cty.Number},
			{Name: "y", Type: cty.Number},
		},
		Type: function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			x, _ := args[0].AsBigFloat().Float64()
			y, _ := args[1].AsBigFloat().Float64()
			return numberVal("pow", math.Pow(x, y))
		},
	})
	funcs["ranf"] = nullaryFunction(rng.Float64)
	funcs["gauss"] = nullaryFunction(rng.NormFloat64)
	return funcs
}

func unaryFunction(name string, fn func(float64) float64) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "x", Type: cty.Number}},
		Type:   function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			x, _ := args[0].AsBigFloat().Float64()
			return numberVal(name, fn(x))
		},
	})
}

func nullaryFunction(fn func() float64) function.Function {
	return function.New(&function.Spec{
		Type: function.StaticReturnType(cty.Number),
		Impl: func(_ []cty.Value, _ cty.Type) (cty.Value, error) {
			return cty.NumberFloatVal(fn()), nil
		},
	})
}

func numberVal(name string, f float64) (cty.Value, error) {
	if math.IsNaN(f) {
		return cty.NilVal, fmt.Errorf("%s: result is not a number", name)
	}
	return cty.NumberFloatVal(f), nil
}
