package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/hookgate/hookgate/internal/config"
	"github.com/hookgate/hookgate/internal/logging"
)

func loadCommands(t *testing.T, body string) []config.CommandSpec {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hookgate.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg.Checkpoint
}

func testRunner(t *testing.T, files map[string]string) *Runner {
	t.Helper()
	root := t.TempDir()
	for rel, body := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return &Runner{Root: root, Log: logging.Nop()}
}

func requireBash(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell commands need bash")
	}
}

func TestRunAllPass(t *testing.T) {
	requireBash(t)
	cmds := loadCommands(t, `
checkpoint:
  - name: ok-shell
    run: "true"
  - name: no-todos
    textSearch:
      pattern: "TODO"
      files: "*.go"
`)
	r := testRunner(t, map[string]string{"main.go": "package main\n"})

	res, err := r.Run(context.Background(), cmds)
	if err != nil {
		t.Fatal(err)
	}
	if res.Blocked {
		t.Errorf("run should pass, got blocked with %q", res.Message)
	}
	if len(res.Commands) != 2 {
		t.Errorf("outcomes = %d, want 2", len(res.Commands))
	}
	for _, c := range res.Commands {
		if !c.Passed {
			t.Errorf("command %s failed: %s", c.Name, c.Message)
		}
	}
}

func TestRunBlockHaltsPipeline(t *testing.T) {
	requireBash(t)
	cmds := loadCommands(t, `
checkpoint:
  - name: gate
    run: "exit 1"
  - name: never-runs
    run: "true"
`)
	r := testRunner(t, nil)

	res, err := r.Run(context.Background(), cmds)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Blocked {
		t.Fatal("failing block-action command should block")
	}
	if want := `Command "gate" failed with exit code 1`; res.Message != want {
		t.Errorf("message = %q, want %q", res.Message, want)
	}
	if len(res.Commands) != 1 {
		t.Errorf("commands after a block must not run, got %d outcomes", len(res.Commands))
	}
}

func TestRunWarnContinues(t *testing.T) {
	cmds := loadCommands(t, `
checkpoint:
  - name: style-todos
    action: warn
    textSearch:
      pattern: "TODO"
      files: "*.go"
  - name: no-debug-prints
    textSearch:
      pattern: "println"
      files: "*.go"
`)
	r := testRunner(t, map[string]string{
		"main.go": "package main // TODO tidy\n",
	})

	res, err := r.Run(context.Background(), cmds)
	if err != nil {
		t.Fatal(err)
	}
	if res.Blocked {
		t.Errorf("warn action must not block, got %q", res.Message)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v, want 1", res.Warnings)
	}
	if want := "style-todos: Found 1 matches, maximum allowed is 0"; res.Warnings[0] != want {
		t.Errorf("warning = %q, want %q", res.Warnings[0], want)
	}
	if len(res.Commands) != 2 {
		t.Errorf("the pipeline should continue past a warning, got %d outcomes", len(res.Commands))
	}
}

func TestRunConstraintMessage(t *testing.T) {
	cmds := loadCommands(t, `
checkpoint:
  - name: few-todos
    maxMatches: 1
    textSearch:
      pattern: "TODO"
      files: "*.go"
`)
	r := testRunner(t, map[string]string{
		"a.go": "// TODO one\n// TODO two\n// TODO three\n",
	})

	res, err := r.Run(context.Background(), cmds)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Blocked {
		t.Fatal("constraint violation should block")
	}
	if want := "Found 3 matches, maximum allowed is 1"; res.Message != want {
		t.Errorf("message = %q, want %q", res.Message, want)
	}
}

func TestRunCustomMessageLeadsDetail(t *testing.T) {
	cmds := loadCommands(t, `
checkpoint:
  - name: few-todos
    message: "Clean up before stopping"
    textSearch:
      pattern: "TODO"
      files: "*.go"
`)
	r := testRunner(t, map[string]string{"a.go": "// TODO\n"})

	res, err := r.Run(context.Background(), cmds)
	if err != nil {
		t.Fatal(err)
	}
	if want := "Clean up before stopping: Found 1 matches, maximum allowed is 0"; res.Message != want {
		t.Errorf("message = %q, want %q", res.Message, want)
	}
}

func TestRunMinMatches(t *testing.T) {
	cmds := loadCommands(t, `
checkpoint:
  - name: has-tests
    minMatches: 1
    structuralSearch:
      query: "(function_declaration name: (identifier) @fn (#match? @fn \"^Test\"))"
      capture: fn
      files: "**/*.go"
`)
	r := testRunner(t, map[string]string{
		"a.go": "package a\n\nfunc helper() {}\n",
	})

	res, err := r.Run(context.Background(), cmds)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Blocked {
		t.Fatal("zero captures under a minimum should block")
	}
	if want := "Found 0 captures of fn, minimum required is 1"; res.Message != want {
		t.Errorf("message = %q, want %q", res.Message, want)
	}
}

func TestRunShellTimeout(t *testing.T) {
	requireBash(t)
	cmds := loadCommands(t, `
checkpoint:
  - name: slow
    run: "sleep 5"
    timeout: 1
`)
	r := testRunner(t, nil)

	res, err := r.Run(context.Background(), cmds)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Blocked {
		t.Fatal("timed-out block-action command should block")
	}
	if want := `Command "slow" timed out after 1s`; res.Message != want {
		t.Errorf("message = %q, want %q", res.Message, want)
	}
	if !res.Commands[0].TimedOut {
		t.Error("outcome should record the timeout")
	}
}

func TestRunShellOutputCapture(t *testing.T) {
	requireBash(t)
	cmds := loadCommands(t, `
checkpoint:
  - name: noisy
    run: "seq 1 5; exit 1"
    showStdout: true
    maxOutputLines: 3
`)
	r := testRunner(t, nil)

	res, err := r.Run(context.Background(), cmds)
	if err != nil {
		t.Fatal(err)
	}
	out := res.Commands[0].Output
	if len(out) != 4 {
		t.Fatalf("output = %v, want 3 lines plus the omission marker", out)
	}
	if want := "... (2 more lines omitted)"; out[3] != want {
		t.Errorf("last line = %q, want %q", out[3], want)
	}
}

func TestRunShellOutputHiddenByDefault(t *testing.T) {
	requireBash(t)
	cmds := loadCommands(t, `
checkpoint:
  - name: quiet
    run: "echo noise"
`)
	r := testRunner(t, nil)

	res, err := r.Run(context.Background(), cmds)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Commands[0].Output) != 0 {
		t.Errorf("output should stay hidden without showStdout, got %v", res.Commands[0].Output)
	}
}

func TestRunSearchRecordsShown(t *testing.T) {
	cmds := loadCommands(t, `
checkpoint:
  - name: todo-list
    showStdout: true
    textSearch:
      pattern: "TODO"
      files: "*.go"
`)
	r := testRunner(t, map[string]string{"a.go": "// TODO fix\n"})

	res, err := r.Run(context.Background(), cmds)
	if err != nil {
		t.Fatal(err)
	}
	out := res.Commands[0].Output
	if len(out) != 1 || !strings.HasPrefix(out[0], "a.go:1:4:") {
		t.Errorf("output = %v, want the match record with its position", out)
	}
}

func TestRunEmptyGlobIsError(t *testing.T) {
	cmds := loadCommands(t, `
checkpoint:
  - name: phantom
    textSearch:
      pattern: "x"
      files: "**/*.zig"
`)
	r := testRunner(t, map[string]string{"a.go": "package a\n"})

	if _, err := r.Run(context.Background(), cmds); err == nil {
		t.Fatal("a glob matching no files is a configuration error, not a pass")
	}
}
