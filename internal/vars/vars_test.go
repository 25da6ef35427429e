package vars_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/madxpgo/internal/engine/sandbox"
	"github.com/specialistvlad/madxpgo/internal/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const definitions = `
a=1;
b:=c+3*a+sqrt(d)+pi;
c:=a+2+e;
d:=2+f;
f:=g;
h:=3;
const i=2;
`

func snapshot(t *testing.T, code string) *vars.Namespace {
	t.Helper()
	ctx := context.Background()
	s := sandbox.New(ctx)
	require.NoError(t, s.Input(ctx, code))
	ns, err := vars.Snapshot(ctx, s)
	require.NoError(t, err)
	return ns
}

func names(vs []vars.Variable) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Name)
	}
	return out
}

func TestSnapshot_Classification(t *testing.T) {
	ns := snapshot(t, definitions)

	assert.Equal(t, []string{"b", "c", "d", "f"}, names(ns.Dependent))
	assert.Subset(t, names(ns.Independent), []string{"a", "g", "h"})
	assert.Subset(t, names(ns.Constants), []string{"e", "i", "pi"})
	assert.Empty(t, ns.Warnings)

	// Every name lands in exactly one table.
	assert.Equal(t, ns.Len(), len(ns.Constants)+len(ns.Independent)+len(ns.Dependent))

	b, ok := ns.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, vars.Dependent, b.Kind)
	assert.Equal(t, "c+3*a+sqrt(d)+pi", b.Expression)
	assert.Equal(t, []string{"a", "c", "d", "pi"}, b.Parameters)
}

func TestSnapshot_Knobs(t *testing.T) {
	ns := snapshot(t, definitions)

	want := map[string][]string{
		"b": {"a", "g"},
		"c": {"a"},
		"d": {"g"},
		"f": {"g"},
	}
	if diff := cmp.Diff(want, ns.KnobsOf()); diff != "" {
		t.Errorf("KnobsOf() mismatch (-want +got):\n%s", diff)
	}

	independent := make(map[string]bool)
	for _, v := range ns.Independent {
		independent[v.Name] = true
	}
	for _, v := range ns.Dependent {
		for _, k := range v.Knobs {
			assert.True(t, independent[k], "knob %q of %q must be independent", k, v.Name)
		}
	}
}

func TestKnobList(t *testing.T) {
	ns := snapshot(t, definitions)

	a, _ := ns.Lookup("a")
	assert.Equal(t, []string{"a"}, a.KnobList())
	h, _ := ns.Lookup("h")
	assert.Equal(t, vars.Independent, h.Kind)
	assert.True(t, h.Pinned)
	assert.Empty(t, h.KnobList(), "h := 3 references nothing")
	pi, _ := ns.Lookup("pi")
	assert.Empty(t, pi.KnobList())
}

func TestKnobsFromParameters(t *testing.T) {
	ctx := context.Background()
	ns := snapshot(t, definitions)

	knobs := ns.KnobsFromParameters(ctx, "q1", []string{"myk1", "h", "b"})
	assert.Equal(t, []string{"a", "g", "myk1"}, knobs)
	require.Len(t, ns.Warnings, 1)
	assert.Equal(t, &vars.UndefinedParameterWarning{Owner: "q1", Name: "myk1"}, ns.Warnings[0])

	assert.Empty(t, ns.KnobsFromParameters(ctx, "x", []string{"pi", "e"}))
}

func TestSnapshot_PinnedParameterIsNotAKnob(t *testing.T) {
	ns := snapshot(t, "h:=3; y=2; x:=h*y;")
	x, _ := ns.Lookup("x")
	assert.Equal(t, []string{"y"}, x.Knobs)
}

func TestSnapshot_UndefinedParameter(t *testing.T) {
	ctx := context.Background()
	ns, err := vars.Classify(ctx, []vars.Variable{
		{Name: "a", Kind: vars.Independent},
		{Name: "pi", Kind: vars.Constant},
		{Name: "x", Kind: vars.Dependent, Parameters: []string{"a", "ghost", "pi"}},
	})
	require.NoError(t, err)

	x, _ := ns.Lookup("x")
	assert.Equal(t, []string{"a", "ghost"}, x.Knobs)
	require.Len(t, ns.Warnings, 1)
	assert.Equal(t, "x references undefined parameter \"ghost\"", ns.Warnings[0].Error())
}

func TestSnapshot_Cycle(t *testing.T) {
	ctx := context.Background()
	s := sandbox.New(ctx)
	require.NoError(t, s.Input(ctx, "p:=q+1; q:=p+1;"))

	_, err := vars.Snapshot(ctx, s)
	var cycle *vars.DependencyCycleError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, []string{"p", "q"}, cycle.Names)
}

func TestResolve(t *testing.T) {
	testCases := []struct {
		name      string
		dependent map[string][]string
		want      map[string][]string
		cycle     []string
	}{
		{
			name:      "empty",
			dependent: map[string][]string{},
			want:      map[string][]string{},
		},
		{
			name: "chain",
			dependent: map[string][]string{
				"a": {"b", "x"},
				"b": {"c"},
				"c": {"d"},
				"d": {"y", "y"},
			},
			want: map[string][]string{
				"a": {"x", "y"},
				"b": {"y"},
				"c": {"y"},
				"d": {"y"},
			},
		},
		{
			name: "diamond",
			dependent: map[string][]string{
				"top":   {"left", "right"},
				"left":  {"k1"},
				"right": {"k1", "k2"},
			},
			want: map[string][]string{
				"top":   {"k1", "k2"},
				"left":  {"k1"},
				"right": {"k1", "k2"},
			},
		},
		{
			name:      "self reference",
			dependent: map[string][]string{"a": {"a", "k"}},
			cycle:     []string{"a"},
		},
		{
			name: "two cycle",
			dependent: map[string][]string{
				"a": {"b"},
				"b": {"a"},
			},
			cycle: []string{"a", "b"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := vars.Resolve(tc.dependent)
			if tc.cycle != nil {
				var cycle *vars.DependencyCycleError
				require.ErrorAs(t, err, &cycle)
				assert.Equal(t, tc.cycle, cycle.Names)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	first, err := vars.Resolve(map[string][]string{
		"b": {"a", "c", "d"},
		"c": {"a"},
		"d": {"f"},
		"f": {"g"},
	})
	require.NoError(t, err)

	second, err := vars.Resolve(first)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
