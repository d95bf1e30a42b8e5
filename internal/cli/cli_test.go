package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sysmap/internal/config"
	errs "github.com/matzehuels/sysmap/pkg/errors"
	"github.com/matzehuels/sysmap/pkg/graph"
	"github.com/matzehuels/sysmap/pkg/store"
	"github.com/matzehuels/sysmap/pkg/store/sqlite"
)

const testGraphJSON = `{
	"nodes": [{"id": "lb"}, {"id": "api", "group": "app"}, {"id": "db"}, {"id": "cache"}],
	"edges": [{"from": "lb", "to": "api"}, {"from": "api", "to": "db"}, {"from": "api", "to": "cache"}]
}`

const testGraphYAML = `nodes:
  - id: web
  - id: queue
  - id: worker
edges:
  - {from: web, to: queue}
  - {from: queue, to: worker}
`

// testEnv points every XDG directory into a temp dir and captures status
// output.
type testEnv struct {
	dir string
	out *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	var out bytes.Buffer
	old := stdout
	stdout = &out
	t.Cleanup(func() { stdout = old })
	return &testEnv{dir: dir, out: &out}
}

func (e *testEnv) write(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func (e *testEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(e.out)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func TestLayoutCommand(t *testing.T) {
	env := newTestEnv(t)
	input := env.write(t, "infra.json", testGraphJSON)

	if err := env.run(t, "layout", input, "--seed", "7"); err != nil {
		t.Fatalf("layout: %v", err)
	}

	l, err := graph.ReadLayoutFile(filepath.Join(env.dir, "infra.layout.json"))
	if err != nil {
		t.Fatal(err)
	}
	if l.Algorithm != graph.AlgorithmForce || l.Seed != 7 || len(l.Nodes) != 4 {
		t.Errorf("layout = %s seed %d with %d nodes", l.Algorithm, l.Seed, len(l.Nodes))
	}
	if !strings.Contains(env.out.String(), "Layout complete") {
		t.Errorf("output = %q", env.out.String())
	}
}

func TestLayoutCommandConfigThenFlags(t *testing.T) {
	env := newTestEnv(t)
	input := env.write(t, "infra.yaml", testGraphYAML)
	cfg := env.write(t, "sysmap.toml", "[layout]\nalgorithm = \"circular\"\nwidth = 600.0\nheight = 500.0\n")
	output := filepath.Join(env.dir, "out.json")

	if err := env.run(t, "--config", cfg, "layout", input, "--width", "900", "-o", output); err != nil {
		t.Fatalf("layout: %v", err)
	}

	l, err := graph.ReadLayoutFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if l.Algorithm != graph.AlgorithmCircular {
		t.Errorf("algorithm = %q, want circular from config", l.Algorithm)
	}
	if l.Width != 900 || l.Height != 500 {
		t.Errorf("canvas = %gx%g, want 900x500", l.Width, l.Height)
	}
}

func TestLayoutCommandErrors(t *testing.T) {
	env := newTestEnv(t)
	input := env.write(t, "infra.json", testGraphJSON)

	tests := []struct {
		name string
		args []string
		code errs.Code
	}{
		{"missing file", []string{"layout", filepath.Join(env.dir, "nope.json")}, errs.ErrCodeFileNotFound},
		{"bad algorithm", []string{"layout", input, "-a", "spiral"}, errs.ErrCodeInvalidAlgorithm},
		{"too large", []string{"layout", input, "--max-nodes", "2"}, errs.ErrCodeGraphTooLarge},
		{"missing config", []string{"--config", filepath.Join(env.dir, "none.toml"), "layout", input}, errs.ErrCodeFileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.run(t, tt.args...)
			if !errs.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestRenderCommand(t *testing.T) {
	env := newTestEnv(t)
	input := env.write(t, "infra.json", testGraphJSON)
	if err := env.run(t, "layout", input, "-a", "circular"); err != nil {
		t.Fatal(err)
	}

	base := filepath.Join(env.dir, "out", "map")
	if err := env.run(t, "render", filepath.Join(env.dir, "infra.layout.json"), "-f", "dot,json", "-o", base); err != nil {
		t.Fatalf("render: %v", err)
	}

	dot, err := os.ReadFile(base + ".dot")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(dot, []byte("digraph")) {
		t.Errorf("dot output = %.40q", dot)
	}
	if _, err := graph.ReadLayoutFile(base + ".layout.json"); err != nil {
		t.Errorf("json output: %v", err)
	}
}

func TestRenderCommandFromGraph(t *testing.T) {
	env := newTestEnv(t)
	input := env.write(t, "infra.yaml", testGraphYAML)

	if err := env.run(t, "render", input, "-f", "dot", "--seed", "3"); err != nil {
		t.Fatalf("render: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.dir, "infra.dot")); err != nil {
		t.Error(err)
	}
}

func TestRenderCommandRejects(t *testing.T) {
	env := newTestEnv(t)
	input := env.write(t, "infra.json", testGraphJSON)

	if err := env.run(t, "render", input, "-f", "gif"); !errs.Is(err, errs.ErrCodeInvalidFormat) {
		t.Errorf("err = %v, want INVALID_FORMAT", err)
	}
	if err := env.run(t, "render", input, "-f", "dot", "-o", "../escape"); !errs.Is(err, errs.ErrCodeInvalidPath) {
		t.Errorf("err = %v, want INVALID_PATH", err)
	}
}

func TestStoreCommands(t *testing.T) {
	env := newTestEnv(t)
	input := env.write(t, "infra.json", testGraphJSON)

	if err := env.run(t, "store", "save", input, "--name", "prod", "-a", "circular"); err != nil {
		t.Fatalf("store save: %v", err)
	}

	layouts := savedLayouts(t)
	if len(layouts) != 1 || layouts[0].Name != "prod" {
		t.Fatalf("saved = %+v", layouts)
	}
	id := layouts[0].ID

	env.out.Reset()
	if err := env.run(t, "store", "list", "--graph", input); err != nil {
		t.Fatalf("store list: %v", err)
	}
	if !strings.Contains(env.out.String(), "prod") {
		t.Errorf("list output = %q", env.out.String())
	}

	base := filepath.Join(env.dir, "fetched")
	if err := env.run(t, "store", "get", id, "-o", base); err != nil {
		t.Fatalf("store get: %v", err)
	}
	l, err := graph.ReadLayoutFile(base + ".layout.json")
	if err != nil {
		t.Fatal(err)
	}
	if l.Algorithm != graph.AlgorithmCircular {
		t.Errorf("fetched algorithm = %q", l.Algorithm)
	}

	if err := env.run(t, "store", "delete", id); err != nil {
		t.Fatalf("store delete: %v", err)
	}
	if err := env.run(t, "store", "get", id); !errs.Is(err, errs.ErrCodeLayoutNotFound) {
		t.Errorf("get after delete err = %v", err)
	}
}

func savedLayouts(t *testing.T) []store.SavedLayout {
	t.Helper()
	path, err := config.Default().StorePath()
	if err != nil {
		t.Fatal(err)
	}
	st, err := sqlite.New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	list, err := st.List(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	return list
}

func TestCacheCommands(t *testing.T) {
	env := newTestEnv(t)
	input := env.write(t, "infra.json", testGraphJSON)

	if err := env.run(t, "cache", "path"); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(env.dir, "cache", config.AppName)
	if got := strings.TrimSpace(env.out.String()); got != want {
		t.Errorf("cache path = %q, want %q", got, want)
	}

	if err := env.run(t, "layout", input, "--seed", "9"); err != nil {
		t.Fatal(err)
	}
	env.out.Reset()
	if err := env.run(t, "cache", "clear"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(env.out.String(), "Cleared 1 cached entries") {
		t.Errorf("clear output = %q", env.out.String())
	}

	env.out.Reset()
	if err := env.run(t, "cache", "clear"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(env.out.String(), "Cache is empty") {
		t.Errorf("second clear output = %q", env.out.String())
	}
}

func TestCompletionCommand(t *testing.T) {
	env := newTestEnv(t)
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		env.out.Reset()
		if err := env.run(t, "completion", shell); err != nil {
			t.Fatalf("%s: %v", shell, err)
		}
		if !strings.Contains(env.out.String(), "sysmap") {
			t.Errorf("%s completion does not mention sysmap", shell)
		}
	}
	if err := env.run(t, "completion", "tcsh"); err == nil {
		t.Error("expected error for unsupported shell")
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"svg", []string{"svg"}},
		{"svg,PNG, dot", []string{"svg", "png", "dot"}},
		{"json,,", []string{"json"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseFormats(tt.input)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestOutputBase(t *testing.T) {
	tests := map[string]string{
		"infra.json":        "infra",
		"maps/infra.yaml":   "maps/infra",
		"infra.layout.json": "infra",
		"no-extension":      "no-extension",
		"dir.v2/infra.toml": "dir.v2/infra",
	}
	for in, want := range tests {
		if got := outputBase(in); got != want {
			t.Errorf("outputBase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGraphHashFilter(t *testing.T) {
	env := newTestEnv(t)
	input := env.write(t, "infra.json", testGraphJSON)
	g, err := graph.ReadFile(input)
	if err != nil {
		t.Fatal(err)
	}

	got, err := graphHashFilter(input)
	if err != nil || got != g.Hash() {
		t.Errorf("graphHashFilter(file) = %q, %v; want %q", got, err, g.Hash())
	}
	if got, _ := graphHashFilter("abc123"); got != "abc123" {
		t.Errorf("graphHashFilter(hash) = %q", got)
	}
	if got, _ := graphHashFilter(""); got != "" {
		t.Errorf("graphHashFilter(\"\") = %q", got)
	}
}
