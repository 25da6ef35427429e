package script_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/madxpgo/internal/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mask = `! ## Variables
! Define the knobs.
a=1;
b:=c+3*a;
! ## Host step
// exports.Set("x", 2)
// exports.Set("y", 3)
! ## Sequence
my_quad: quadrupole, l=1;

use, sequence=my_sequence;
`

func TestSplit_Basic(t *testing.T) {
	sections, err := script.Split(mask)
	require.NoError(t, err)
	require.Len(t, sections, 3)

	want := []script.Section{
		{
			Title: "Variables",
			Body:  "! Define the knobs.\na=1;\nb:=c+3*a;",
			Blocks: []script.Block{
				{Kind: script.Commentary, Text: " Define the knobs."},
				{Kind: script.EngineCode, Text: "a=1;\nb:=c+3*a;"},
			},
		},
		{
			Title: "Host step",
			Body:  "// exports.Set(\"x\", 2)\n// exports.Set(\"y\", 3)",
			Blocks: []script.Block{
				{Kind: script.HostCode, Text: "exports.Set(\"x\", 2)\nexports.Set(\"y\", 3)"},
			},
		},
		{
			Title: "Sequence",
			Body:  "my_quad: quadrupole, l=1;\n\nuse, sequence=my_sequence;\n",
			Blocks: []script.Block{
				{Kind: script.EngineCode, Text: "my_quad: quadrupole, l=1;\n\nuse, sequence=my_sequence;\n"},
			},
		},
	}
	if diff := cmp.Diff(want, sections); diff != "" {
		t.Errorf("Split() mismatch (-want +got):\n%s", diff)
	}
}

func TestSplit_RequiresLeadingMarker(t *testing.T) {
	for _, text := range []string{"", "a=1;\n! ## Late", " ! ## Indented", "!## NoSpace"} {
		_, err := script.Split(text)
		require.Error(t, err, "input %q", text)
		assert.True(t, errors.Is(err, script.ErrMalformedScript))

		var malformed *script.MalformedScriptError
		require.True(t, errors.As(err, &malformed))
	}
}

func TestSplit_MarkerOnlyAtLineStart(t *testing.T) {
	sections, err := script.Split("! ## One\nvalue, x; ! ## not a section\n")
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "One", sections[0].Title)
}

func TestFormat_RoundTrip(t *testing.T) {
	inputs := []string{
		mask,
		"! ## Only title",
		"! ## A\nx=1;\n! ## B\ny=2;",
		"! ## A\nx=1;\n\n\n! ## B\n! prose\n// host()\ny=2;\n",
		"! ## Same\na=1;\n! ## Same\na=2;\n",
	}
	for _, in := range inputs {
		sections, err := script.Split(in)
		require.NoError(t, err)
		assert.Equal(t, in, script.Format(sections))
	}
}

func TestClassify(t *testing.T) {
	t.Run("kind changes start new blocks", func(t *testing.T) {
		blocks := script.Classify("!one\n!two\n//h1\n//h2\ne1;\n!three")
		want := []script.Block{
			{Kind: script.Commentary, Text: "one\ntwo"},
			{Kind: script.HostCode, Text: "h1\nh2"},
			{Kind: script.EngineCode, Text: "e1;"},
			{Kind: script.Commentary, Text: "three"},
		}
		assert.Equal(t, want, blocks)
	})

	t.Run("blank engine blocks are pruned", func(t *testing.T) {
		blocks := script.Classify("\n  \n! prose\n\t\n! more\n\n")
		want := []script.Block{
			{Kind: script.Commentary, Text: " prose"},
			{Kind: script.Commentary, Text: " more"},
		}
		assert.Equal(t, want, blocks)
	})

	t.Run("indented markers", func(t *testing.T) {
		blocks := script.Classify("   ! indented prose\n    // x := 1")
		want := []script.Block{
			{Kind: script.Commentary, Text: " indented prose"},
			{Kind: script.HostCode, Text: "x := 1"},
		}
		assert.Equal(t, want, blocks)
	})

	t.Run("empty body", func(t *testing.T) {
		assert.Empty(t, script.Classify(""))
	})
}

func TestSection_Executable(t *testing.T) {
	sections, err := script.Split(mask)
	require.NoError(t, err)

	host, engine := sections[0].Executable()
	assert.False(t, host)
	assert.True(t, engine)

	host, engine = sections[1].Executable()
	assert.True(t, host)
	assert.False(t, engine)
}

func TestParse_DuplicateTitles(t *testing.T) {
	ctx := context.Background()
	text := "! ## Same\na=1;\n! ## Other\nb=1;\n! ## Same\na=2;\n"

	t.Run("reject", func(t *testing.T) {
		_, err := script.Parse(ctx, text, script.RejectDuplicates)
		var dup *script.DuplicateSectionError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "Same", dup.Title)
		assert.Equal(t, 0, dup.First)
		assert.Equal(t, 2, dup.Second)
	})

	t.Run("last wins", func(t *testing.T) {
		s, err := script.Parse(ctx, text, script.LastWins)
		require.NoError(t, err)
		assert.Equal(t, []string{"Same", "Other", "Same"}, s.Titles())

		sec, ok := s.Section("Same")
		require.True(t, ok)
		assert.Equal(t, "a=2;\n", sec.Body)

		_, ok = s.Section("Missing")
		assert.False(t, ok)
		assert.Equal(t, text, s.String())
	})
}

func TestParseDuplicatePolicy(t *testing.T) {
	p, err := script.ParseDuplicatePolicy("")
	require.NoError(t, err)
	assert.Equal(t, script.RejectDuplicates, p)

	p, err = script.ParseDuplicatePolicy("last_wins")
	require.NoError(t, err)
	assert.Equal(t, script.LastWins, p)

	_, err = script.ParseDuplicatePolicy("first_wins")
	assert.Error(t, err)
}
