package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/madxpgo/internal/config"
	"github.com/specialistvlad/madxpgo/internal/profile"
	"github.com/specialistvlad/madxpgo/internal/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testLattice = `
sequences:
  - name: ring
    length: 10
    elements:
      - name: qf
        base_type: quadrupole
        at: 2
        attributes:
          l: 1
          k1: ":=kqf*scale"
      - name: qd
        base_type: quadrupole
        at: 6
        attributes:
          l: 1
          k1: ":=-kqf"
tables:
  - name: twiss
    columns: [name, s, betx]
    rows:
      - [start, 0, 1]
      - [qf, 2, 2.5]
`

const testScript = `! ## Knobs
! Strengths.
kqf=0.1;
scale:=2*base;
base=1;
! ## Derived
kqd:=-kqf*scale;
! ## Host
// v, err := madxp.Value("kqd")
// if err != nil { panic(err) }
// madxp.Export("kqd", v)
`

// safeBuffer is a thread-safe buffer for capturing log output in tests.
type safeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// setupAppTest creates an App over a sandbox seeded with testLattice.
func setupAppTest(t *testing.T, cfg Config) (*App, *bytes.Buffer, *safeBuffer) {
	t.Helper()
	dir := t.TempDir()
	if cfg.Engine.Kind == "" {
		cfg.Engine.Kind = config.EngineSandbox
		cfg.Engine.Fixture = writeTestFile(t, dir, "lattice.yaml", testLattice)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}

	validated, err := NewConfig(cfg)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	logs := &safeBuffer{}
	a, err := NewApp(out, logs, validated)
	require.NoError(t, err)

	t.Cleanup(func() {
		if os.Getenv("MADXP_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
	return a, out, logs
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig(Config{})
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, config.EngineSandbox, cfg.Engine.Kind)
	assert.Equal(t, script.RejectDuplicates, cfg.DuplicateTitles)
}

func TestNewConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"log format", Config{LogFormat: "xml"}, "invalid log format"},
		{"log level", Config{LogLevel: "loud"}, "invalid log level"},
		{"port", Config{HealthcheckPort: 70000}, "invalid healthcheck port"},
		{"duplicates", Config{DuplicateTitles: "merge"}, "invalid duplicate title policy"},
		{"engine", Config{Engine: EngineConfig{Kind: "madx"}}, "unknown engine kind"},
		{"remote url", Config{Engine: EngineConfig{Kind: config.EngineRemote}}, "requires a URL"},
		{"width", Config{Width: -1}, "invalid width"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(tc.cfg)
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestConfig_Apply(t *testing.T) {
	f, err := config.Parse([]byte(`
log_level = "warn"
log_format = "json"
engine "remote" {
  url     = "http://localhost:9000/socket.io/"
  timeout = "2s"
}
script {
  duplicate_titles     = "last_wins"
  resolve_each_section = true
  command_log          = "commands.madx"
}
profile { path = "out.db" }
`), "madxp.hcl")
	require.NoError(t, err)

	cfg, err := Config{LogLevel: "debug", ProfilePath: "flag.jsonl"}.Apply(f)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel, "flags win over the file")
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, config.EngineRemote, cfg.Engine.Kind)
	assert.Equal(t, "http://localhost:9000/socket.io/", cfg.Engine.URL)
	assert.Equal(t, "2s", cfg.Engine.Timeout.String())
	assert.Equal(t, script.LastWins, cfg.DuplicateTitles)
	assert.True(t, cfg.ResolveEachSection)
	assert.Equal(t, "commands.madx", cfg.CommandLogPath)
	assert.Equal(t, "flag.jsonl", cfg.ProfilePath)

	same, err := cfg.Apply(nil)
	require.NoError(t, err)
	assert.Equal(t, cfg, same)
}

func TestNewApp_MissingFixture(t *testing.T) {
	cfg, err := NewConfig(Config{Engine: EngineConfig{Kind: config.EngineSandbox, Fixture: "does-not-exist.yaml"}})
	require.NoError(t, err)
	_, err = NewApp(&bytes.Buffer{}, &bytes.Buffer{}, cfg)
	require.ErrorContains(t, err, "failed to load fixture")
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	profilePath := filepath.Join(dir, "profile.jsonl")
	commandLog := filepath.Join(dir, "commands.madx")

	a, out, logs := setupAppTest(t, Config{
		ScriptPath:         writeTestFile(t, dir, "job.madx", testScript),
		ProfilePath:        profilePath,
		CommandLogPath:     commandLog,
		ResolveEachSection: true,
	})

	require.NoError(t, a.Run(context.Background()))

	assert.Contains(t, out.String(), "| section | seconds | names |")
	assert.Contains(t, out.String(), "| Derived |")
	assert.Contains(t, logs.String(), "Profile saved.")

	prof, err := profile.Load(profilePath)
	require.NoError(t, err)
	assert.Equal(t, []string{"Knobs", "Derived", "Host"}, prof.Titles())

	derived, ok := prof.Record("Derived")
	require.True(t, ok)
	assert.InDelta(t, -0.2, derived.Values["kqd"], 1e-12)
	assert.Equal(t, []string{"base", "kqf"}, derived.Knobs["kqd"])

	host, _ := prof.Record("Host")
	assert.InDelta(t, -0.2, host.Exports["kqd"], 1e-12)

	logged, err := os.ReadFile(commandLog)
	require.NoError(t, err)
	assert.Equal(t, "kqf=0.1;\nscale:=2*base;\nbase=1;\nkqd:=-kqf*scale;\n", string(logged))

	assert.True(t, a.progress.Done)
	assert.Equal(t, "Host", a.progress.Section)
}

func TestRun_FailureSavesCompletedSections(t *testing.T) {
	dir := t.TempDir()
	profilePath := filepath.Join(dir, "profile.jsonl")
	text := "! ## Good\na=1;\n! ## Bad\n// panic(\"boom\")\n"

	a, _, _ := setupAppTest(t, Config{
		ScriptPath:  writeTestFile(t, dir, "job.madx", text),
		ProfilePath: profilePath,
	})

	err := a.Run(context.Background())
	require.ErrorContains(t, err, "execution failed")
	require.ErrorContains(t, err, `"Bad"`)

	prof, err := profile.Load(profilePath)
	require.NoError(t, err)
	assert.Equal(t, []string{"Good"}, prof.Titles())
}

func TestRun_NoScript(t *testing.T) {
	a, _, _ := setupAppTest(t, Config{})
	require.ErrorContains(t, a.Run(context.Background()), "no script given")
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "job.madx", "! ## Setup\na=1;\n")

	a, out, _ := setupAppTest(t, Config{ScriptPath: path})
	require.NoError(t, a.Render(context.Background()))
	assert.Equal(t, "## Setup\n```fortran\na=1;\n```\n", out.String())
}

func TestRender_Directory(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "b.madx", "! ## Two\nb=2;\n")
	writeTestFile(t, dir, "a.madx", "! ## One\na=1;\n")
	writeTestFile(t, dir, "notes.txt", "skip me")

	a, out, _ := setupAppTest(t, Config{ScriptPath: dir})
	require.NoError(t, a.Render(context.Background()))

	want := "# a.madx\n\n## One\n```fortran\na=1;\n```\n\n" +
		"# b.madx\n\n## Two\n```fortran\nb=2;\n```\n\n"
	assert.Equal(t, want, out.String())
}

func TestRender_Terminal(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "job.madx", "! ## Setup\n! Some words.\n")

	a, out, _ := setupAppTest(t, Config{ScriptPath: path, Terminal: true, Style: "notty", Width: 40})
	require.NoError(t, a.Render(context.Background()))
	assert.Contains(t, out.String(), "Setup")
	assert.Contains(t, out.String(), "Some words.")
}

func TestFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "job.madx", "! ## Setup\na=1;\n! ## Next\nb=2;\n")

	a, out, _ := setupAppTest(t, Config{ScriptPath: path})
	require.NoError(t, a.Format(context.Background()))
	assert.Equal(t, "! ## Setup\na=1;\n! ## Next\nb=2;\n", out.String())
}

func TestHealthHandlers(t *testing.T) {
	a, _, _ := setupAppTest(t, Config{})
	a.progress.set("run-1", 1, 3, "Derived")

	rec := httptest.NewRecorder()
	a.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())

	rec = httptest.NewRecorder()
	a.progressHandler(rec, httptest.NewRequest(http.MethodGet, "/progress", nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, map[string]any{
		"run_id": "run-1", "section": "Derived", "index": 1.0, "total": 3.0, "done": false,
	}, got)

	addr, err := a.startHealthCheckServer()
	require.NoError(t, err)
	assert.Empty(t, addr, "port 0 disables the server")
	require.NoError(t, a.closeHealthCheckServer(context.Background()))
}

func TestHealthCheckServer_Lifecycle(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	a, _, _ := setupAppTest(t, Config{HealthcheckPort: port})
	addr, err := a.startHealthCheckServer()
	require.NoError(t, err)
	require.NotEmpty(t, addr)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, "OK\n", string(body))

	require.NoError(t, a.closeHealthCheckServer(context.Background()))
	client.CloseIdleConnections()
}
