// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates flags and configuration files into an app.Config and runs the
// matching use case.
package cli
