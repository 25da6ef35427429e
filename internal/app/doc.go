// Package app wires the madxp use cases together: it builds the logger and
// the engine factory from a validated Config and exposes Run, Render,
// Format and Inspect, decoupled from the command line.
package app
