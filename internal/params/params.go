// Package params extracts the names referenced by an engine expression.
//
// Extraction is purely textual: punctuation is blanked out, the remaining
// text is split on whitespace and every token that is a numeric literal,
// a built-in function or the "no expression" sentinel is dropped. No
// grammar is applied, so the result is the set of identifier-like tokens
// the engine would have to resolve in its namespace.
package params

import (
	"sort"
	"strings"
)

// NoExpression is the textual form the engine uses for "no expression".
const NoExpression = "None"

// builtins are the engine functions that may appear in an expression but
// never name a variable.
var builtins = map[string]struct{}{
	"sqrt": {}, "log": {}, "log10": {}, "exp": {},
	"sin": {}, "cos": {}, "tan": {}, "asin": {}, "acos": {}, "atan": {},
	"sinh": {}, "cosh": {}, "tanh": {}, "sinc": {},
	"abs": {}, "erf": {}, "erfc": {},
	"floor": {}, "ceil": {}, "round": {}, "frac": {},
	"ranf": {}, "gauss": {}, "tgauss": {},
}

// punctuation is replaced by whitespace before tokenizing.
var punctuation = strings.NewReplacer(
	"*", " ", "-", " ", "/", " ", "+", " ", "^", " ",
	"(", " ", ")", " ", "[", " ", "]", " ", "{", " ", "}", " ",
	",", " ", "'", " ", `"`, " ", ";", " ", ":", " ", "=", " ",
	"<", " ", ">", " ", "!", " ", "&", " ", "|", " ",
)

// IsBuiltin reports whether name is a built-in engine function.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

// Builtins returns the sorted built-in function names.
func Builtins() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsNumeric reports whether a token is a numeric literal, i.e. it starts
// with a digit or with a decimal point followed by a digit.
func IsNumeric(token string) bool {
	if token == "" {
		return false
	}
	if isDigit(token[0]) {
		return true
	}
	return token[0] == '.' && len(token) > 1 && isDigit(token[1])
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Extract returns the sorted, de-duplicated parameter names referenced by
// expr. An empty expression or one of the sentinels ("None", "[None]")
// yields an empty, non-nil slice.
func Extract(expr string) []string {
	expr = strings.TrimSpace(expr)
	if expr == "" || expr == NoExpression || expr == "["+NoExpression+"]" {
		return []string{}
	}

	seen := make(map[string]struct{})
	for _, token := range strings.Fields(punctuation.Replace(expr)) {
		if token == NoExpression || IsNumeric(token) || IsBuiltin(token) {
			continue
		}
		seen[token] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ExtractAll returns the sorted union of the parameters of every expression.
func ExtractAll(exprs ...string) []string {
	seen := make(map[string]struct{})
	for _, expr := range exprs {
		for _, name := range Extract(expr) {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
