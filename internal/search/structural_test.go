package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hookgate/hookgate/internal/config"
	"github.com/hookgate/hookgate/internal/logging"
)

func structuralSpec(t *testing.T, yamlBody string) *config.StructuralSearchSpec {
	t.Helper()
	cfg := loadSpec(t, yamlBody)
	if len(cfg.Checkpoint) != 1 || cfg.Checkpoint[0].StructuralSearch == nil {
		t.Fatal("fixture must define exactly one structuralSearch command")
	}
	return cfg.Checkpoint[0].StructuralSearch
}

const goFixture = `package demo

func alpha() {}

func beta(n int) int {
	return n + 1
}

var gamma = 3
`

func TestRunStructuralCounts(t *testing.T) {
	spec := structuralSpec(t, `
checkpoint:
  - structuralSearch:
      query: "(function_declaration name: (identifier) @fn)"
      capture: fn
      files: "**/*.go"
`)
	root := writeTree(t, map[string]string{"demo.go": goFixture})

	res, capture, err := RunStructural(context.Background(), root, spec, logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if capture != "fn" {
		t.Errorf("capture = %q, want fn", capture)
	}
	if res.Count != 2 {
		t.Fatalf("count = %d, want 2 function declarations", res.Count)
	}

	first := res.Records[0]
	if first.File != "demo.go" || first.Line != 3 {
		t.Errorf("first record = %+v, want demo.go line 3", first)
	}
	if first.Text != "alpha" {
		t.Errorf("first capture text = %q, want alpha", first.Text)
	}
	if first.Label != "identifier" {
		t.Errorf("first capture node type = %q, want identifier", first.Label)
	}
}

func TestRunStructuralDefaultCapture(t *testing.T) {
	spec := structuralSpec(t, `
checkpoint:
  - structuralSearch:
      query: "(function_declaration name: (identifier) @name)"
      files: "**/*.go"
`)
	root := writeTree(t, map[string]string{"demo.go": goFixture})

	res, capture, err := RunStructural(context.Background(), root, spec, logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if capture != "name" {
		t.Errorf("default capture = %q, want the query's first capture", capture)
	}
	if res.Count != 2 {
		t.Errorf("count = %d, want 2", res.Count)
	}
}

func TestRunStructuralPredicates(t *testing.T) {
	spec := structuralSpec(t, `
checkpoint:
  - structuralSearch:
      query: '(function_declaration name: (identifier) @fn (#eq? @fn "beta"))'
      capture: fn
      files: "**/*.go"
`)
	root := writeTree(t, map[string]string{"demo.go": goFixture})

	res, _, err := RunStructural(context.Background(), root, spec, logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 1 {
		t.Fatalf("count = %d, want only beta", res.Count)
	}
	if res.Records[0].Text != "beta" {
		t.Errorf("capture text = %q, want beta", res.Records[0].Text)
	}
}

func TestRunStructuralLanguageOverride(t *testing.T) {
	spec := structuralSpec(t, `
checkpoint:
  - structuralSearch:
      query: "(function_declaration name: (identifier) @fn)"
      capture: fn
      language: go
      files: "**/*.source"
`)
	root := writeTree(t, map[string]string{"demo.source": goFixture})

	res, _, err := RunStructural(context.Background(), root, spec, logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 2 {
		t.Errorf("count = %d, want 2 with the pinned grammar", res.Count)
	}
}

func TestRunStructuralUnknownExtensionSkipped(t *testing.T) {
	spec := structuralSpec(t, `
checkpoint:
  - structuralSearch:
      query: "(function_declaration name: (identifier) @fn)"
      capture: fn
      files: "**/*"
`)
	root := writeTree(t, map[string]string{
		"demo.go":  goFixture,
		"notes.md": "# not code\n",
	})

	res, _, err := RunStructural(context.Background(), root, spec, logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 2 {
		t.Errorf("count = %d, unrecognized files should be skipped silently", res.Count)
	}
}

func TestRunStructuralBadQueryForGrammar(t *testing.T) {
	// Balanced but naming a node kind Go's grammar does not have; the
	// error surfaces lazily, at search time.
	spec := structuralSpec(t, `
checkpoint:
  - structuralSearch:
      query: "(flux_capacitor) @x"
      capture: x
      files: "**/*.go"
`)
	root := writeTree(t, map[string]string{"demo.go": goFixture})

	_, _, err := RunStructural(context.Background(), root, spec, logging.Nop())
	if !errors.Is(err, config.ErrConfig) {
		t.Fatalf("want ErrConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "go") {
		t.Errorf("error should name the language, got %q", err)
	}
}

func TestTruncateNodeText(t *testing.T) {
	if got := truncateNodeText("short"); got != "short" {
		t.Errorf("got %q", got)
	}

	long := strings.Repeat("a", 150)
	got := truncateNodeText(long)
	if !strings.HasSuffix(got, "…") || len([]rune(got)) != nodeTextLimit+1 {
		t.Errorf("long line should be cut at the limit, got %d runes", len([]rune(got)))
	}

	got = truncateNodeText("first\nsecond\nthird")
	if got != "first [+2 lines]" {
		t.Errorf("got %q", got)
	}
}

func TestCaptureSubject(t *testing.T) {
	if got := CaptureSubject("fn"); got != "captures of fn" {
		t.Errorf("got %q", got)
	}
}
