package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParse(t *testing.T) {
	src := `
log_level  = "debug"
log_format = "json"

engine "sandbox" {
  fixture = "lattice.yaml"
  seed    = 7
}

script {
  duplicate_titles     = "last_wins"
  resolve_each_section = true
}

profile {
  path = "profile.jsonl"
}
`
	f, err := Parse([]byte(src), "madxp.hcl")
	require.NoError(t, err)

	seed := int64(7)
	want := &File{
		LogLevel:  "debug",
		LogFormat: "json",
		Engine:    &EngineBlock{Kind: EngineSandbox, Fixture: "lattice.yaml", Seed: &seed},
		Script:    &ScriptBlock{DuplicateTitles: "last_wins", ResolveEachSection: true},
		Profile:   &ProfileBlock{Path: "profile.jsonl"},
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Remote(t *testing.T) {
	src := `
engine "remote" {
  url       = "http://localhost:8080/socket.io/"
  namespace = "/engine"
  timeout   = "5s"
}
`
	f, err := Parse([]byte(src), "remote.hcl")
	require.NoError(t, err)
	require.Equal(t, EngineRemote, f.Engine.Kind)

	d, err := f.Engine.TimeoutDuration()
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, d)
}

func TestParse_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"syntax", `engine "sandbox" {`, "failed to parse"},
		{"unknown attribute", `colour = "red"`, "failed to decode"},
		{"unknown kind", `engine "madx" {}`, `unknown engine kind "madx"`},
		{"remote without url", `engine "remote" {}`, "requires url"},
		{"remote with fixture", `engine "remote" {
  url     = "http://x"
  fixture = "a.yaml"
}`, "does not accept fixture"},
		{"bad timeout", `engine "remote" {
  url     = "http://x"
  timeout = "soon"
}`, "invalid timeout"},
		{"sandbox with url", `engine "sandbox" { url = "http://x" }`, "does not accept url"},
		{"empty profile path", `profile { path = "" }`, "profile path must not be empty"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.src), "bad.hcl")
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_MergesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.hcl", `
log_level = "info"
engine "sandbox" {}
profile { path = "first.jsonl" }
`)
	writeFile(t, dir, "b.hcl", `
log_level = "warn"
profile { path = "second.db" }
`)
	writeFile(t, dir, "ignored.txt", `not hcl`)

	f, err := Load(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, "warn", f.LogLevel)
	require.Equal(t, EngineSandbox, f.Engine.Kind)
	require.Equal(t, "second.db", f.Profile.Path)
	require.Nil(t, f.Script)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.hcl"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid merged result", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, dir, "remote.hcl", `engine "remote" {}`)
		_, err := Load(context.Background(), path)
		require.ErrorContains(t, err, "requires url")
	})

	t.Run("no paths", func(t *testing.T) {
		f, err := Load(context.Background())
		require.NoError(t, err)
		require.Equal(t, &File{}, f)
	})
}
