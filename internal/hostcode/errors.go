package hostcode

import (
	"errors"
	"fmt"
	"go/scanner"
	"regexp"
	"strconv"
)

// ErrCodeExecution is matched by every CodeError.
var ErrCodeExecution = errors.New("host code execution failed")

// CodeError is a failure while compiling or running a host snippet.
type CodeError struct {
	// Message describes the error.
	Message string

	// Line is the 1-based line in the snippet; zero when unknown.
	Line int

	// Column is the 1-based column; zero when unknown.
	Column int

	// Err is the underlying error, if any.
	Err error
}

func (e *CodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d, col %d)", e.Message, e.Line, e.Column)
	}
	return e.Message
}

func (e *CodeError) Unwrap() error { return e.Err }

// Is matches ErrCodeExecution.
func (e *CodeError) Is(target error) bool { return target == ErrCodeExecution }

// positionRe matches the "file:line:col: " prefix the interpreter puts on
// compile errors; the file name is empty for evaluated snippets.
var positionRe = regexp.MustCompile(`^(?:[^:\s]*:)?(\d+):(\d+): (.*)$`)

// newCodeError builds a CodeError, extracting the position when the
// interpreter reported one.
func newCodeError(err error) *CodeError {
	var list scanner.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		first := list[0]
		return &CodeError{Message: first.Msg, Line: first.Pos.Line, Column: first.Pos.Column, Err: err}
	}
	if m := positionRe.FindStringSubmatch(err.Error()); m != nil {
		line, _ := strconv.Atoi(m[1])
		col, _ := strconv.Atoi(m[2])
		return &CodeError{Message: m[3], Line: line, Column: col, Err: err}
	}
	return &CodeError{Message: err.Error(), Err: err}
}
