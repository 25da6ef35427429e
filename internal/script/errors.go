package script

import (
	"errors"
	"fmt"
)

// ErrMalformedScript is matched by every MalformedScriptError.
var ErrMalformedScript = errors.New("malformed script")

// MalformedScriptError reports a script that does not start with the
// section marker.
type MalformedScriptError struct {
	// Prefix is the beginning of the offending input, truncated for display.
	Prefix string
}

func (e *MalformedScriptError) Error() string {
	return fmt.Sprintf("script must start with %q, got %q", Marker, e.Prefix)
}

// Is reports whether target is ErrMalformedScript.
func (e *MalformedScriptError) Is(target error) bool {
	return target == ErrMalformedScript
}

// DuplicateSectionError reports a section title used more than once while
// duplicates are rejected.
type DuplicateSectionError struct {
	Title string
	// First and Second are the zero-based positions of the clashing sections.
	First, Second int
}

func (e *DuplicateSectionError) Error() string {
	return fmt.Sprintf("duplicate section title %q (sections %d and %d)", e.Title, e.First, e.Second)
}
