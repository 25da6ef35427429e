package vars

import (
	"fmt"
	"strings"
)

// DependencyCycleError is returned when knob resolution does not reach a
// fixed point, or reaches one in which dependent names still refer to
// themselves.
type DependencyCycleError struct {
	Names  []string
	Passes int
}

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("dependency cycle after %d passes involving %s", e.Passes, strings.Join(e.Names, ", "))
}

// UndefinedParameterWarning reports a name referenced by an expression but
// absent from the namespace. It is not fatal: the name is treated as a knob.
type UndefinedParameterWarning struct {
	// Owner is the dependent variable or element referencing Name.
	Owner string
	Name  string
}

func (w *UndefinedParameterWarning) Error() string {
	return fmt.Sprintf("%s references undefined parameter %q", w.Owner, w.Name)
}
