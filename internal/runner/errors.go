package runner

import "fmt"

// MixedContentError is returned when a section holds both host code and
// engine code. No section runs once it is reported.
type MixedContentError struct {
	Title string
	Index int
}

func (e *MixedContentError) Error() string {
	return fmt.Sprintf("section %d %q mixes host code and engine code", e.Index, e.Title)
}

// SectionError wraps a failure raised while a section ran.
type SectionError struct {
	Title string
	Index int
	Err   error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("section %d %q: %v", e.Index, e.Title, e.Err)
}

func (e *SectionError) Unwrap() error { return e.Err }
