package interpolate

import "fmt"

// UnsupportedElementKindError is reported for a position falling inside an
// element whose keyword has no slicing rule. The position is skipped.
type UnsupportedElementKindError struct {
	Keyword string
	Element string
	S       float64
}

func (e *UnsupportedElementKindError) Error() string {
	return fmt.Sprintf("s=%g: element %q of kind %q cannot be sliced; remove this position", e.S, e.Element, e.Keyword)
}

// ThinElementError is reported for a position falling inside an element of
// zero length, which cannot happen in a consistent table. The position is
// skipped.
type ThinElementError struct {
	Element string
	S       float64
}

func (e *ThinElementError) Error() string {
	return fmt.Sprintf("s=%g: element %q has no length", e.S, e.Element)
}
