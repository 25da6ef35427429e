package engine

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnknownName is returned when a variable, sequence or table does not exist.
	ErrUnknownName = errors.New("unknown name")

	// ErrScopeOpen is returned when a scope is opened while another one is
	// still held.
	ErrScopeOpen = errors.New("engine scope already open")

	// ErrClosed is returned by every call on a closed engine.
	ErrClosed = errors.New("engine closed")
)

// Engine is the capability exposed by a simulation engine session.
//
// Contract:
//   - Concurrency: a session is a single shared mutable resource. Callers must
//     serialize calls; implementations are not required to be safe for
//     concurrent use.
//   - Context: calls block until the engine answers; implementations honor
//     ctx cancellation where the transport allows it.
//   - Errors: engine-side failures are returned unchanged so callers can
//     inspect them; unknown names wrap ErrUnknownName.
type Engine interface {
	// Input submits domain-language text to the engine interpreter.
	Input(ctx context.Context, code string) error

	// Globals returns every name of the variable namespace with its current value.
	Globals(ctx context.Context) (map[string]float64, error)

	// Definition returns the raw definition text of a variable: its
	// expression when it is expression-valued, otherwise its literal value.
	Definition(ctx context.Context, name string) (string, error)

	// IsConstant reports whether a variable was declared constant.
	IsConstant(ctx context.Context, name string) (bool, error)

	// IsDeferred reports whether a variable is bound to an expression
	// re-evaluated on every read, even one referencing no other name.
	IsDeferred(ctx context.Context, name string) (bool, error)

	// Sequences lists the sequences currently defined, sorted by name.
	Sequences(ctx context.Context) ([]SequenceInfo, error)

	// Beam returns the beam attached to a sequence; ok is false when the
	// sequence has no beam.
	Beam(ctx context.Context, sequence string) (attrs map[string]any, ok bool, err error)

	// Elements returns the elements of a sequence in sequence order.
	Elements(ctx context.Context, sequence string) ([]Element, error)

	// TableNames lists the tables currently held by the engine.
	TableNames(ctx context.Context) ([]string, error)

	// Table returns a copy of a named table.
	Table(ctx context.Context, name string) (*Table, error)

	// OpenScope starts a batch of submissions. The returned Scope must be
	// closed whatever the outcome of the batch.
	OpenScope(ctx context.Context) (Scope, error)

	// Close ends the session.
	Close(ctx context.Context) error
}

// Scope is a batch of engine submissions held open by the caller.
type Scope interface {
	Close(ctx context.Context) error
}

// Factory opens a fresh engine session.
type Factory func(ctx context.Context) (Engine, error)

// SequenceInfo describes one sequence.
type SequenceInfo struct {
	Name     string `json:"name" msgpack:"name"`
	HasBeam  bool   `json:"has_beam" msgpack:"has_beam"`
	Expanded bool   `json:"expanded" msgpack:"expanded"`
}

// UnknownNameError builds an error wrapping ErrUnknownName.
func UnknownNameError(kind, name string) error {
	return fmt.Errorf("%w: %s %q", ErrUnknownName, kind, name)
}
