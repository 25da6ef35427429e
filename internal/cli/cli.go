package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Message: err.Error()}
}

func failure(err error) error {
	return &ExitError{Code: ExitFailure, Message: err.Error()}
}

// Execute runs the command line args against a fresh command tree. Help
// requests return nil. Every error is an *ExitError.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	slog.Debug("CLI parser started.", "args", args)
	root := NewRootCommand(outW, errW)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	// Unknown commands, unknown flags and argument count checks.
	return usageError(err)
}

// NewRootCommand builds the madxp command tree.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "madxp",
		Short: "Run, document and inspect sectioned MAD-X scripts",
		Long: `madxp runs a MAD-X script split into titled sections ("! ## title"),
records the namespace after every section, and explains which independent
variables (knobs) drive every dependent variable and sequence element.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	opts.bind(root)

	root.AddCommand(
		newRunCommand(opts),
		newRenderCommand(opts),
		newFormatCommand(opts),
		newInspectCommand(opts),
	)
	return root
}
