// Package interpolate evaluates optics functions at arbitrary positions of
// a twiss table. Each position is computed by tracking the start row's
// optics through a one-element sequence holding the slice of the element
// that contains the position.
package interpolate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/specialistvlad/madxpgo/internal/ctxlog"
	"github.com/specialistvlad/madxpgo/internal/engine"
)

const (
	// Keyword marks interpolated rows.
	Keyword = "interpolation"

	// ResultTable is the twiss table the slice sequence writes to.
	ResultTable = "special_twiss"

	elementName  = "my_special_element"
	sequenceName = "my_special_sequence"
)

// initialConditions are the twiss columns passed from the start row to the
// slice twiss.
var initialConditions = []string{
	"betx", "alfx", "mux", "bety", "alfy", "muy",
	"dx", "dpx", "dy", "dpy",
	"x", "px", "y", "py", "t", "pt",
	"wx", "phix", "dmux", "wy", "phiy", "dmuy",
	"ddx", "ddy", "ddpx", "ddpy",
	"r11", "r12", "r21", "r22",
}

// quadrupoleLike keywords are sliced as a thick quadrupole.
var quadrupoleLike = map[string]bool{
	"quadrupole":  true,
	"drift":       true,
	"sextupole":   true,
	"octupole":    true,
	"placeholder": true,
	"hmonitor":    true,
	"vmonitor":    true,
	"monitor":     true,
}

// Result holds the interpolated rows, in request order, and the positions
// that were skipped.
type Result struct {
	Rows    []engine.Row
	Skipped []error
}

// Table interpolates twiss at each position. The slices are tracked on a
// fresh session opened with factory and closed before returning. Positions
// that cannot be interpolated are reported in Result.Skipped; engine
// failures abort.
func Table(ctx context.Context, factory engine.Factory, twiss *engine.Table, positions []float64) (res *Result, err error) {
	logger := ctxlog.FromContext(ctx).With("component", "interpolate")
	if len(twiss.Rows) == 0 {
		return nil, fmt.Errorf("table %q is empty", twiss.Name)
	}

	eng, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open interpolation session: %w", err)
	}
	defer func() {
		if cerr := eng.Close(ctx); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	res = &Result{}
	for _, s := range positions {
		row, err := at(ctx, eng, twiss, s)
		var unsupported *UnsupportedElementKindError
		var thin *ThinElementError
		switch {
		case errors.As(err, &unsupported), errors.As(err, &thin):
			logger.Warn("Position skipped.", "s", s, "error", err)
			res.Skipped = append(res.Skipped, err)
			continue
		case err != nil:
			return nil, fmt.Errorf("interpolating at s=%g: %w", s, err)
		}
		res.Rows = append(res.Rows, row)
	}
	logger.Debug("Interpolation finished.", "rows", len(res.Rows), "skipped", len(res.Skipped))
	return res, nil
}

// bracket returns the start row, the last one strictly before s, and the
// element row, the first one at or after s.
func bracket(t *engine.Table, s float64) (start, element engine.Row) {
	start = t.Rows[0]
	for _, row := range t.Rows {
		if row.Float("s") < s {
			start = row
		}
	}
	element = t.Rows[len(t.Rows)-1]
	for _, row := range t.Rows {
		if row.Float("s") >= s {
			element = row
			break
		}
	}
	return start, element
}

func at(ctx context.Context, eng engine.Engine, t *engine.Table, s float64) (engine.Row, error) {
	start, element := bracket(t, s)
	if element.Float("s") == s {
		return element.Clone(), nil
	}

	def, err := sliceDefinition(element, s-start.Float("s"), s)
	if err != nil {
		return nil, err
	}
	if err := eng.Input(ctx, def+trackCode(start, s)); err != nil {
		return nil, err
	}
	if err := eng.Input(ctx, "delete, sequence="+sequenceName+";\n"+elementName+"=0;\n"); err != nil {
		return nil, err
	}

	result, err := eng.Table(ctx, ResultTable)
	if err != nil {
		return nil, err
	}
	if len(result.Rows) < 2 {
		return nil, fmt.Errorf("table %q has %d rows, want at least 2", ResultTable, len(result.Rows))
	}
	row := result.Rows[1].Clone()
	row["keyword"] = Keyword
	row["s"] = s
	return row, nil
}

// sliceDefinition defines the slice of element of length ds.
func sliceDefinition(element engine.Row, ds, s float64) (string, error) {
	name := element.String("name")
	keyword := strings.ToLower(element.String("keyword"))
	l := element.Float("l")
	if l <= 0 {
		return "", &ThinElementError{Element: name, S: s}
	}

	var sb strings.Builder
	switch {
	case quadrupoleLike[keyword]:
		fmt.Fprintf(&sb, "%s: quadrupole,\n", elementName)
		writeAttrs(&sb, [][2]string{
			{"l", num(ds)},
			{"k1", num(element.Float("k1l") / l)},
			{"k1s", num(element.Float("k1sl") / l)},
			{"tilt", num(element.Float("tilt"))},
		})
	case keyword == "sbend" || keyword == "rbend":
		if keyword == "rbend" {
			sb.WriteString("option, rbarc=false;\n")
		}
		fmt.Fprintf(&sb, "%s: %s,\n", elementName, keyword)
		attrs := [][2]string{
			{"l", num(ds)},
			{"angle", num(element.Float("angle") / l * ds)},
		}
		if keyword == "sbend" {
			attrs = append(attrs, [2]string{"tilt", num(element.Float("tilt"))})
		}
		attrs = append(attrs, [][2]string{
			{"k1", num(element.Float("k1l") / l)},
			{"e1", num(element.Float("e1"))},
			{"fint", num(element.Float("fint"))},
			{"fintx", "0"},
			{"hgap", num(element.Float("hgap"))},
			{"k1s", num(element.Float("k1sl") / l)},
			{"h1", num(element.Float("h1"))},
			{"h2", "0"},
			{"kill_exi_fringe", "0"},
		}...)
		writeAttrs(&sb, attrs)
	default:
		return "", &UnsupportedElementKindError{Keyword: keyword, Element: name, S: s}
	}
	return sb.String(), nil
}

// trackCode builds the slice sequence and twisses it from the start row's
// optics into ResultTable.
func trackCode(start engine.Row, s float64) string {
	ds := s - start.Float("s")

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: sequence, l=%s, refer=entry;\n", sequenceName, num(ds))
	fmt.Fprintf(&sb, "at_%s: %s, at=0;\n", num(s), elementName)
	sb.WriteString("endsequence;\n")
	fmt.Fprintf(&sb, "beam, sequence=%s;\n", sequenceName)
	fmt.Fprintf(&sb, "use, sequence=%s;\n", sequenceName)
	sb.WriteString("twiss,\n")
	for _, col := range initialConditions {
		fmt.Fprintf(&sb, "  %s=%s,\n", col, num(start.Float(col)))
	}
	fmt.Fprintf(&sb, "  table=%s;\n", ResultTable)
	return sb.String()
}

func writeAttrs(sb *strings.Builder, attrs [][2]string) {
	for i, a := range attrs {
		sep := ",\n"
		if i == len(attrs)-1 {
			sep = ";\n"
		}
		fmt.Fprintf(sb, "  %s=%s%s", a[0], a[1], sep)
	}
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
