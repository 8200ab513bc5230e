package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hookgate/hookgate/internal/constraint"
)

func load(t *testing.T, body string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hookgate.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return Load(path)
}

func mustLoad(t *testing.T, body string) *Config {
	t.Helper()
	cfg, err := load(t, body)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return cfg
}

func TestProtectionRuleShorthand(t *testing.T) {
	cfg := mustLoad(t, `
uneditableFiles:
  - "tasks.jsonc"
  - pattern: "*.lock"
    agent: coder
    message: locks are generated
`)
	if len(cfg.UneditableFiles) != 2 {
		t.Fatalf("rules = %d, want 2", len(cfg.UneditableFiles))
	}

	short := cfg.UneditableFiles[0]
	if short.Pattern != "tasks.jsonc" {
		t.Errorf("shorthand pattern = %q", short.Pattern)
	}
	if short.Agent != "*" {
		t.Errorf("shorthand agent should default to the wildcard, got %q", short.Agent)
	}

	full := cfg.UneditableFiles[1]
	if full.Agent != "coder" || full.Message != "locks are generated" {
		t.Errorf("mapping form = %+v", full)
	}
}

func TestUsageRuleDefaults(t *testing.T) {
	cfg := mustLoad(t, `
toolUsage:
  - tool: WebFetch
`)
	r := cfg.ToolUsage[0]
	if r.Pattern != "*" || r.Agent != "*" {
		t.Errorf("pattern/agent should default to wildcards, got %q/%q", r.Pattern, r.Agent)
	}
	if r.Action != ActionBlock {
		t.Errorf("action should default to block, got %q", r.Action)
	}
	if r.CommandRegexp() != nil {
		t.Error("no command pattern configured, regexp should be nil")
	}
}

func TestUsageRuleBadCommandRegex(t *testing.T) {
	_, err := load(t, `
toolUsage:
  - tool: Bash
    command: "("
`)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("invalid command regex should fail load, got %v", err)
	}
}

func TestCommandDefaults(t *testing.T) {
	cfg := mustLoad(t, `
checkpoint:
  - run: "true"
  - name: named
    action: warn
    run: "true"
`)
	first := cfg.Checkpoint[0]
	if first.Name != "checkpoint[0]" {
		t.Errorf("unnamed command should get a positional name, got %q", first.Name)
	}
	if first.Action != ActionBlock {
		t.Errorf("action should default to block, got %q", first.Action)
	}
	if first.CountMode != CountLines {
		t.Errorf("countMode should default to lines, got %q", first.CountMode)
	}
	if first.MaxOutputLines != DefaultMaxOutputLines {
		t.Errorf("maxOutputLines = %d, want %d", first.MaxOutputLines, DefaultMaxOutputLines)
	}
	if cfg.Checkpoint[1].Name != "named" {
		t.Errorf("explicit name lost, got %q", cfg.Checkpoint[1].Name)
	}
}

func TestCommandExactlyOneKind(t *testing.T) {
	cases := map[string]string{
		"none": `
checkpoint:
  - name: empty
    message: no backend
`,
		"two": `
checkpoint:
  - run: "true"
    textSearch:
      pattern: x
      files: "*.go"
`,
	}
	for name, body := range cases {
		if _, err := load(t, body); !errors.Is(err, ErrConfig) {
			t.Errorf("%s: want ErrConfig, got %v", name, err)
		}
	}
}

func TestCommandBoundResolution(t *testing.T) {
	cfg := mustLoad(t, `
checkpoint:
  - name: implicit
    textSearch: {pattern: x, files: "*.go"}
  - name: max
    maxMatches: 5
    textSearch: {pattern: x, files: "*.go"}
  - name: min
    minMatches: 2
    textSearch: {pattern: x, files: "*.go"}
  - name: equal
    equalMatches: 1
    textSearch: {pattern: x, files: "*.go"}
`)
	want := []constraint.Constraint{
		{Kind: constraint.Max, Bound: 0},
		{Kind: constraint.Max, Bound: 5},
		{Kind: constraint.Min, Bound: 2},
		{Kind: constraint.Equal, Bound: 1},
	}
	for i, c := range cfg.Checkpoint {
		if got := c.Constraint(); got != want[i] {
			t.Errorf("%s: constraint = %+v, want %+v", c.Name, got, want[i])
		}
	}
}

func TestCommandMultipleBoundsRejected(t *testing.T) {
	_, err := load(t, `
checkpoint:
  - maxMatches: 1
    minMatches: 1
    textSearch: {pattern: x, files: "*.go"}
`)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("want ErrConfig, got %v", err)
	}
}

func TestRunCommandRejectsBounds(t *testing.T) {
	_, err := load(t, `
checkpoint:
  - run: "true"
    maxMatches: 0
`)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("constraints on run commands should fail load, got %v", err)
	}
}

func TestCompileErrorOrderDeterministic(t *testing.T) {
	// With both lists invalid, the checkpoint list is always validated
	// first, so repeated loads surface the same error.
	body := `
checkpoint:
  - name: bad-main
    message: no backend
subagentCheckpoint:
  - name: bad-sub
    message: no backend
`
	for i := 0; i < 5; i++ {
		_, err := load(t, body)
		if err == nil {
			t.Fatal("both lists are invalid, load must fail")
		}
		if !strings.Contains(err.Error(), "checkpoint[0]") || strings.Contains(err.Error(), "subagentCheckpoint") {
			t.Fatalf("error = %q, want the checkpoint list's error every time", err)
		}
	}
}

func TestStrictUnknownFields(t *testing.T) {
	_, err := load(t, `
checkpoint:
  - run: "true"
    retires: 3
`)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("unknown keys should fail load, got %v", err)
	}
}

func TestEmptyFilesGlobRejected(t *testing.T) {
	_, err := load(t, `
checkpoint:
  - textSearch:
      pattern: x
      files: ""
`)
	if err == nil {
		t.Fatal("an empty files glob is a configuration error")
	}
}

func TestStructuralCaptureAtPrefix(t *testing.T) {
	cfg := mustLoad(t, `
checkpoint:
  - structuralSearch:
      query: "(identifier) @id"
      capture: "@id"
      files: "*.go"
`)
	if got := cfg.Checkpoint[0].StructuralSearch.Capture; got != "id" {
		t.Errorf("capture = %q, the @ sigil should be stripped", got)
	}
}

func TestStructuralUnbalancedQueryRejected(t *testing.T) {
	_, err := load(t, `
checkpoint:
  - structuralSearch:
      query: "(function_declaration"
      files: "*.go"
`)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("unbalanced query should fail load, got %v", err)
	}
}

func TestStructuralPinnedLanguageCompiles(t *testing.T) {
	cfg := mustLoad(t, `
checkpoint:
  - structuralSearch:
      query: "(function_declaration name: (identifier) @fn)"
      language: go
      files: "**/*.source"
`)
	s := cfg.Checkpoint[0].StructuralSearch
	if s.LanguageOverride() == nil || s.LanguageOverride().Name != "go" {
		t.Fatal("language override not resolved")
	}
	if s.CompiledQuery() == nil {
		t.Error("pinned grammar should compile the query at load time")
	}

	_, err := load(t, `
checkpoint:
  - structuralSearch:
      query: "(flux_capacitor) @x"
      language: go
      files: "*.go"
`)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("pinned grammar should surface query errors at load, got %v", err)
	}
}

func TestTextSearchBadRegexRejected(t *testing.T) {
	_, err := load(t, `
checkpoint:
  - textSearch:
      pattern: "("
      files: "*.go"
`)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("want ErrConfig, got %v", err)
	}
}

func TestCheckpointFor(t *testing.T) {
	both := mustLoad(t, `
checkpoint:
  - name: main-gate
    run: "true"
subagentCheckpoint:
  - name: sub-gate
    run: "true"
`)
	if got := both.CheckpointFor(false); got[0].Name != "main-gate" {
		t.Errorf("main checkpoint = %q", got[0].Name)
	}
	if got := both.CheckpointFor(true); got[0].Name != "sub-gate" {
		t.Errorf("subagent checkpoint = %q", got[0].Name)
	}

	fallback := mustLoad(t, `
checkpoint:
  - name: main-gate
    run: "true"
`)
	if got := fallback.CheckpointFor(true); len(got) != 1 || got[0].Name != "main-gate" {
		t.Error("subagent checkpoint should fall back to the main list")
	}
}

func TestDiscoverProjectBeforeGlobal(t *testing.T) {
	cwd := t.TempDir()
	dir := filepath.Join(cwd, ".claude")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "hookgate.yml")
	if err := os.WriteFile(path, []byte("checkpoint: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Discover(cwd)
	if err != nil {
		t.Fatal(err)
	}
	if got != path {
		t.Errorf("discovered %q, want the project file %q", got, path)
	}
}

func TestDiscoverMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := Discover(t.TempDir())
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("missing config should be ErrConfig, got %v", err)
	}
}
