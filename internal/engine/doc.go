// Package engine defines the capability through which every other package
// talks to the external simulation engine.
//
// The engine is a stateful, single-session service: it owns a namespace of
// named scalars, a set of machine sequences made of elements, and a set of
// result tables, and it interprets the domain language submitted through
// Input. Callers receive an Engine explicitly and never reach it through
// package-level state. Implementations live in sub-packages: sandbox is an
// in-process engine for dry runs and tests, remote talks to an engine
// server over socket.io.
package engine
