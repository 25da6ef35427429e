package app

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/specialistvlad/madxpgo/internal/ctxlog"
	"github.com/specialistvlad/madxpgo/internal/engine"
	"github.com/specialistvlad/madxpgo/internal/interpolate"
	"github.com/specialistvlad/madxpgo/internal/render"
	"github.com/specialistvlad/madxpgo/internal/runner"
	"github.com/specialistvlad/madxpgo/internal/sequence"
	"github.com/specialistvlad/madxpgo/internal/vars"
)

// Subject names what Inspect reports.
type Subject string

const (
	InspectVariables   Subject = "variables"
	InspectSequences   Subject = "sequences"
	InspectBeams       Subject = "beams"
	InspectElements    Subject = "elements"
	InspectKnobs       Subject = "knobs"
	InspectShow        Subject = "show"
	InspectTable       Subject = "table"
	InspectInterpolate Subject = "interpolate"
)

// Subjects lists every Subject in the order the CLI documents them.
var Subjects = []Subject{
	InspectVariables, InspectSequences, InspectBeams, InspectElements,
	InspectKnobs, InspectShow, InspectTable, InspectInterpolate,
}

// DefaultTwissTable is the table interpolated when Query.Table is empty.
const DefaultTwissTable = "twiss"

// Query selects one report of Inspect.
type Query struct {
	Subject Subject

	Sequence string // elements, show; knobs ranks elements when set
	Knob     string // restricts variables and elements to one knob
	Element  string // show
	Table    string // table, interpolate

	Positions []float64 // interpolate
}

// Inspect opens an engine session, runs the configured script on it when
// one is given, then prints the report q asks for.
func (a *App) Inspect(ctx context.Context, q Query) (err error) {
	ctx = a.withLogger(ctx)
	logger := ctxlog.FromContext(ctx).With("subject", q.Subject)

	eng, err := a.factory(ctx)
	if err != nil {
		return fmt.Errorf("failed to open engine session: %w", err)
	}
	defer func() {
		err = errors.Join(err, eng.Close(ctx))
	}()

	if a.config.ScriptPath != "" {
		s, err := a.loadScript(ctx)
		if err != nil {
			return err
		}
		if _, err := runner.New(eng, runner.Options{}).Run(ctx, s); err != nil {
			return fmt.Errorf("execution failed: %w", err)
		}
	}

	logger.Debug("Building report.")
	md, err := a.report(ctx, eng, q)
	if err != nil {
		return err
	}
	return a.emit(md)
}

func (a *App) report(ctx context.Context, eng engine.Engine, q Query) (string, error) {
	switch q.Subject {
	case InspectVariables:
		ns, err := vars.Snapshot(ctx, eng)
		if err != nil {
			return "", err
		}
		return variablesReport(ns, q.Knob), nil

	case InspectSequences:
		seqs, err := sequence.Sequences(ctx, eng)
		if err != nil {
			return "", err
		}
		rows := make([][]string, 0, len(seqs))
		for _, s := range seqs {
			rows = append(rows, []string{s.Name, strconv.FormatBool(s.HasBeam), strconv.FormatBool(s.Expanded)})
		}
		return render.Table([]string{"name", "beam", "expanded"}, rows), nil

	case InspectBeams:
		beams, err := sequence.Beams(ctx, eng)
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		for _, b := range beams {
			fmt.Fprintf(&sb, "## %s\n\n", b.Sequence)
			sb.WriteString(mapTable(b.Attrs))
			sb.WriteString("\n")
		}
		return sb.String(), nil

	case InspectElements:
		t, err := a.sequenceTable(ctx, eng, q.Sequence)
		if err != nil {
			return "", err
		}
		elements := t.Elements
		if q.Knob != "" {
			elements = sequence.FilterByKnob(elements, q.Knob)
		}
		rows := make([][]string, 0, len(elements))
		for _, e := range elements {
			rows = append(rows, []string{
				e.Name, cell(e.Position), e.Parent, e.BaseType, cell(e.Length),
				strings.Join(e.Parameters, ", "), strings.Join(e.Knobs, ", "),
			})
		}
		return render.Table([]string{"name", "position", "parent", "base_type", "length", "parameters", "knobs"}, rows), nil

	case InspectKnobs:
		var ranks []sequence.KnobRank
		if q.Sequence != "" {
			t, err := a.sequenceTable(ctx, eng, q.Sequence)
			if err != nil {
				return "", err
			}
			ranks = sequence.RankKnobs(t.Elements)
		} else {
			ns, err := vars.Snapshot(ctx, eng)
			if err != nil {
				return "", err
			}
			ranks = sequence.RankKnobs(ns.Dependent)
		}
		rows := make([][]string, 0, len(ranks))
		for _, r := range ranks {
			rows = append(rows, []string{r.Knob, strconv.Itoa(r.Multiplicity), strings.Join(r.Dependents, ", ")})
		}
		return render.Table([]string{"knob", "multiplicity", "dependents"}, rows), nil

	case InspectShow:
		if q.Element == "" {
			return "", errors.New("show requires an element name")
		}
		t, err := a.sequenceTable(ctx, eng, q.Sequence)
		if err != nil {
			return "", err
		}
		fields, err := t.Show(q.Element)
		if err != nil {
			return "", err
		}
		rows := make([][]string, 0, len(fields))
		for _, f := range fields {
			rows = append(rows, []string{f.Name, f.Value})
		}
		return render.Table([]string{"field", "value"}, rows), nil

	case InspectTable:
		if q.Table == "" {
			return "", errors.New("table requires a table name")
		}
		t, err := sequence.ImportTable(ctx, eng, q.Table)
		if err != nil {
			return "", err
		}
		return engineTable(t.Table.Columns, t.Rows), nil

	case InspectInterpolate:
		return a.interpolate(ctx, eng, q)

	default:
		return "", fmt.Errorf("unknown subject %q", q.Subject)
	}
}

func (a *App) sequenceTable(ctx context.Context, eng engine.Engine, name string) (*sequence.Table, error) {
	if name == "" {
		return nil, errors.New("a sequence name is required")
	}
	t, err := sequence.Build(ctx, eng, name)
	if err != nil {
		return nil, err
	}
	for _, w := range t.Warnings {
		a.logger.Warn(w.Error())
	}
	return t, nil
}

func (a *App) interpolate(ctx context.Context, eng engine.Engine, q Query) (string, error) {
	if len(q.Positions) == 0 {
		return "", errors.New("interpolate requires at least one position")
	}
	name := q.Table
	if name == "" {
		name = DefaultTwissTable
	}
	twiss, err := eng.Table(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to read table %q: %w", name, err)
	}
	res, err := interpolate.Table(ctx, a.factory, twiss, q.Positions)
	if err != nil {
		return "", err
	}
	for _, skipped := range res.Skipped {
		a.logger.Warn("Position skipped.", "reason", skipped)
	}
	return engineTable(twiss.Columns, res.Rows), nil
}

func variablesReport(ns *vars.Namespace, knob string) string {
	var sb strings.Builder

	sb.WriteString("## Constants\n\n")
	rows := make([][]string, 0, len(ns.Constants))
	for _, v := range ns.Constants {
		rows = append(rows, []string{v.Name, cell(v.Value)})
	}
	sb.WriteString(render.Table([]string{"name", "value"}, rows))

	sb.WriteString("\n## Independent\n\n")
	independent := ns.Independent
	if knob != "" {
		independent = sequence.FilterByKnob(independent, knob)
	}
	rows = make([][]string, 0, len(independent))
	for _, v := range independent {
		rows = append(rows, []string{v.Name, cell(v.Value), v.Expression})
	}
	sb.WriteString(render.Table([]string{"name", "value", "expression"}, rows))

	sb.WriteString("\n## Dependent\n\n")
	dependent := ns.Dependent
	if knob != "" {
		dependent = sequence.FilterByKnob(dependent, knob)
	}
	rows = make([][]string, 0, len(dependent))
	for _, v := range dependent {
		rows = append(rows, []string{
			v.Name, cell(v.Value), v.Expression,
			strings.Join(v.Parameters, ", "), strings.Join(v.Knobs, ", "),
		})
	}
	sb.WriteString(render.Table([]string{"name", "value", "expression", "parameters", "knobs"}, rows))
	return sb.String()
}

func engineTable(columns []string, rows []engine.Row) string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		line := make([]string, len(columns))
		for i, c := range columns {
			line[i] = cell(r[c])
		}
		out = append(out, line)
	}
	return render.Table(columns, out)
}

func mapTable(m map[string]any) string {
	rows := make([][]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		rows = append(rows, []string{k, cell(m[k])})
	}
	return render.Table([]string{"attribute", "value"}, rows)
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
