package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inspect(t *testing.T, q Query) string {
	t.Helper()
	a, out, _ := setupAppTest(t, Config{ScriptPath: writeTestFile(t, t.TempDir(), "job.madx", testScript)})
	require.NoError(t, a.Inspect(context.Background(), q))
	return out.String()
}

func TestInspect_Variables(t *testing.T) {
	out := inspect(t, Query{Subject: InspectVariables})
	assert.Contains(t, out, "## Constants")
	assert.Contains(t, out, "| pi |")
	assert.Contains(t, out, "| kqf | 0.1 |")
	assert.Contains(t, out, "| kqd | -0.2 | -kqf*scale | kqf, scale | base, kqf |")

	filtered := inspect(t, Query{Subject: InspectVariables, Knob: "base"})
	assert.Contains(t, filtered, "| scale |")
	assert.Contains(t, filtered, "| base | 1 |")
	assert.NotContains(t, filtered, "| kqf |")
}

func TestInspect_Sequences(t *testing.T) {
	out := inspect(t, Query{Subject: InspectSequences})
	assert.Contains(t, out, "| name | beam | expanded |")
	assert.Contains(t, out, "| ring | false |")
}

func TestInspect_Elements(t *testing.T) {
	out := inspect(t, Query{Subject: InspectElements, Sequence: "ring"})
	assert.Contains(t, out, "| qf |")
	assert.Contains(t, out, "| qd |")
	assert.Contains(t, out, "base, kqf")

	out = inspect(t, Query{Subject: InspectElements, Sequence: "ring", Knob: "base"})
	assert.Contains(t, out, "| qf |")
	assert.NotContains(t, out, "| qd |")
}

func TestInspect_Knobs(t *testing.T) {
	out := inspect(t, Query{Subject: InspectKnobs, Sequence: "ring"})
	assert.Contains(t, out, "| kqf | 2 |")
	assert.Contains(t, out, "| base | 1 |")

	out = inspect(t, Query{Subject: InspectKnobs})
	assert.Contains(t, out, "| base | 2 |")
	assert.Contains(t, out, "| kqf | 1 | kqd |")
}

func TestInspect_Show(t *testing.T) {
	out := inspect(t, Query{Subject: InspectShow, Sequence: "ring", Element: "qf"})
	assert.Contains(t, out, "| field | value |")
	assert.Contains(t, out, "| name | qf |")
	assert.Contains(t, out, "| k1 value | 0.2 |")
}

func TestInspect_Table(t *testing.T) {
	out := inspect(t, Query{Subject: InspectTable, Table: "twiss"})
	assert.Equal(t, "| name | s | betx |\n| --- | --- | --- |\n| start | 0 | 1 |\n| qf | 2 | 2.5 |\n", out)
}

func TestInspect_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		q       Query
		wantErr string
	}{
		{"unknown subject", Query{Subject: "everything"}, `unknown subject "everything"`},
		{"show without element", Query{Subject: InspectShow, Sequence: "ring"}, "requires an element name"},
		{"elements without sequence", Query{Subject: InspectElements}, "sequence name is required"},
		{"table without name", Query{Subject: InspectTable}, "requires a table name"},
		{"interpolate without positions", Query{Subject: InspectInterpolate}, "at least one position"},
		{"unknown element", Query{Subject: InspectShow, Sequence: "ring", Element: "nope"}, "nope"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a, _, _ := setupAppTest(t, Config{})
			require.ErrorContains(t, a.Inspect(context.Background(), tc.q), tc.wantErr)
		})
	}
}
