// Package hostcode runs host-language snippets embedded in scripts.
//
// Snippets are Go statements interpreted with yaegi. One Interpreter keeps
// a single yaegi session, so locals declared by a snippet are visible to the
// next snippet run on it. The runner uses one Interpreter per section;
// values meant for later sections go through the Exports table. The "madxp"
// package is available to snippets:
//
//	import "madxp"
//
//	madxp.Input(code string) error
//	madxp.Value(name string) (float64, error)
//	madxp.Globals() (map[string]float64, error)
//	madxp.Table(name string) ([]map[string]any, error)
//	madxp.Export(name string, v any)
//	madxp.Get(name string) any
//	madxp.Log(msg string, args ...any)
package hostcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"

	"github.com/specialistvlad/madxpgo/internal/ctxlog"
	"github.com/specialistvlad/madxpgo/internal/engine"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Interpreter evaluates snippets against one engine session and one
// export table.
type Interpreter struct {
	eng     engine.Engine
	exports *Exports

	i *interp.Interpreter
	// ctx and logger belong to the Run in progress; the madxp symbols read
	// them on every call.
	ctx    context.Context
	logger *slog.Logger
}

// New returns an Interpreter. eng may be nil for snippets that do not use
// the engine.
func New(eng engine.Engine, exports *Exports) *Interpreter {
	if exports == nil {
		exports = NewExports()
	}
	return &Interpreter{eng: eng, exports: exports}
}

// Exports returns the export table shared by the snippets.
func (h *Interpreter) Exports() *Exports { return h.exports }

// Run interprets one snippet in the session shared with earlier Run calls
// on h. Compile and runtime failures, panics
// included, are returned as *CodeError.
func (h *Interpreter) Run(ctx context.Context, code string) error {
	h.ctx = ctx
	h.logger = ctxlog.FromContext(ctx).With("component", "hostcode")

	if err := h.init(ctx); err != nil {
		return err
	}

	h.logger.Debug("Evaluating host snippet.", "bytes", len(code))
	if _, err := h.i.EvalWithContext(ctx, code); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("host snippet interrupted: %w", ctx.Err())
		}
		return newCodeError(err)
	}
	return nil
}

// init creates the yaegi session on first use.
func (h *Interpreter) init(ctx context.Context) error {
	if h.i != nil {
		return nil
	}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("failed to load stdlib symbols: %w", err)
	}
	if err := i.Use(h.symbols()); err != nil {
		return fmt.Errorf("failed to load madxp symbols: %w", err)
	}
	if _, err := i.EvalWithContext(ctx, `import "madxp"`); err != nil {
		return fmt.Errorf("failed to import madxp: %w", err)
	}
	h.i = i
	return nil
}

// symbols builds the "madxp" package exposed to snippets.
func (h *Interpreter) symbols() interp.Exports {
	input := func(code string) error {
		if h.eng == nil {
			return errNoEngine
		}
		return h.eng.Input(h.ctx, code)
	}
	globals := func() (map[string]float64, error) {
		if h.eng == nil {
			return nil, errNoEngine
		}
		return h.eng.Globals(h.ctx)
	}
	value := func(name string) (float64, error) {
		g, err := globals()
		if err != nil {
			return math.NaN(), err
		}
		v, ok := g[name]
		if !ok {
			return math.NaN(), engine.UnknownNameError("variable", name)
		}
		return v, nil
	}
	table := func(name string) ([]map[string]any, error) {
		if h.eng == nil {
			return nil, errNoEngine
		}
		t, err := h.eng.Table(h.ctx, name)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, 0, len(t.Rows))
		for _, r := range t.Rows {
			rows = append(rows, map[string]any(r.Clone()))
		}
		return rows, nil
	}
	export := func(name string, v any) { h.exports.Set(name, v) }
	get := func(name string) any {
		v, _ := h.exports.Get(name)
		return v
	}
	log := func(msg string, args ...any) { h.logger.Info(msg, args...) }

	return interp.Exports{
		"madxp/madxp": {
			"Input":   reflect.ValueOf(input),
			"Globals": reflect.ValueOf(globals),
			"Value":   reflect.ValueOf(value),
			"Table":   reflect.ValueOf(table),
			"Export":  reflect.ValueOf(export),
			"Get":     reflect.ValueOf(get),
			"Log":     reflect.ValueOf(log),
		},
	}
}

var errNoEngine = errors.New("no engine attached to the host interpreter")
