package sandbox

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_Power(t *testing.T) {
	funcs := mathFunctions(rand.New(rand.NewPCG(1, 1)))
	values := map[string]float64{"a": 3, "b": 1, "x": -2, "k.1": 2}

	testCases := []struct {
		expr string
		want float64
	}{
		{expr: "2^3", want: 8},
		{expr: "2^3^2", want: 512},
		{expr: "-2^2", want: -4},
		{expr: "2^-1", want: 0.5},
		{expr: "2*3^2", want: 18},
		{expr: "(1+1)^(1+2)", want: 8},
		{expr: "(k.1^2)^2", want: 16},
		{expr: "sqrt(4)^3", want: 8},
		{expr: "sqrt(2^4)", want: 4},
		{expr: "a^2 + b", want: 10},
		{expr: "abs(x)^2+1", want: 5},
		{expr: "1e1^2", want: 100},
	}
	for _, tc := range testCases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := evaluate(tc.expr, values, funcs)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-12)
		})
	}
}

func TestEvaluate_PowerErrors(t *testing.T) {
	funcs := mathFunctions(rand.New(rand.NewPCG(1, 1)))
	for _, expr := range []string{"^2", "2^", "2^*3", "(2^3", "2^(3", "(-8)^(1/3)"} {
		t.Run(expr, func(t *testing.T) {
			_, err := evaluate(expr, nil, funcs)
			assert.Error(t, err)
		})
	}
}

func TestTranslate(t *testing.T) {
	got, err := translate("k.1^2 + sqrt(b)")
	require.NoError(t, err)
	assert.Equal(t, `pow(v["k.1"], 2) + sqrt ( v["b"] )`, got)

	_, err = translate("a $ b")
	assert.Error(t, err)
}
