// Package config defines the rule and command model loaded from
// hookgate.yml and enforces the construction-time invariants: every
// checkpoint command has exactly one execution kind and at most one match
// constraint, and every pattern, regex, and structural query compiles
// before any rule runs.
package config

import (
	"errors"
	"fmt"
	"regexp"

	sitter "github.com/smacker/go-tree-sitter"
	"gopkg.in/yaml.v3"

	"github.com/hookgate/hookgate/internal/constraint"
	"github.com/hookgate/hookgate/internal/lang"
	"github.com/hookgate/hookgate/internal/walker"
)

// ErrConfig marks configuration errors. They are fatal before any rule
// runs; nothing in this package tolerates a half-valid config.
var ErrConfig = errors.New("configuration error")

// Action says what a matching rule or failing command does.
type Action string

const (
	ActionBlock Action = "block"
	ActionWarn  Action = "warn"
	ActionAllow Action = "allow"
)

// CountMode governs how raw matches fold into the count a constraint sees.
type CountMode string

const (
	// CountLines counts each line with at least one match once.
	CountLines CountMode = "lines"
	// CountOccurrences counts every match occurrence individually.
	CountOccurrences CountMode = "occurrences"
)

// ProtectionRule blocks edits to files matching a pattern, optionally
// scoped to an agent. Accepts a bare string in YAML as shorthand for a
// universally scoped rule, so rule lists written before agent scoping
// existed keep working unchanged.
type ProtectionRule struct {
	Pattern string `yaml:"pattern" validate:"required"`
	Agent   string `yaml:"agent"`
	Message string `yaml:"message"`
}

// UnmarshalYAML accepts both the scalar shorthand and the mapping form.
func (r *ProtectionRule) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		r.Pattern = s
		return nil
	}
	type plain ProtectionRule
	return node.Decode((*plain)(r))
}

// UsageRule allows or blocks a tool invocation. Ordered; the first match
// wins. A rule with a command pattern only matches when the invocation
// supplies a command string satisfying it.
type UsageRule struct {
	Tool    string `yaml:"tool" validate:"required"`
	Pattern string `yaml:"pattern"`
	Command string `yaml:"command"`
	Agent   string `yaml:"agent"`
	Action  Action `yaml:"action" validate:"omitempty,oneof=block allow"`
	Message string `yaml:"message"`

	commandRe *regexp.Regexp
}

// CommandRegexp returns the compiled secondary command pattern, or nil when
// the rule has none.
func (r *UsageRule) CommandRegexp() *regexp.Regexp { return r.commandRe }

// TextSearchSpec is the regex search backend configuration.
type TextSearchSpec struct {
	Pattern   string         `yaml:"pattern" validate:"required"`
	Files     string         `yaml:"files" validate:"required"`
	Case      string         `yaml:"case" validate:"omitempty,oneof=smart sensitive insensitive"`
	Word      bool           `yaml:"word"`
	Literal   bool           `yaml:"literal"`
	MultiLine bool           `yaml:"multiline"`
	WholeLine bool           `yaml:"wholeLine"`
	DotAll    bool           `yaml:"dotAll"`
	Unicode   *bool          `yaml:"unicode"`
	Before    int            `yaml:"before" validate:"gte=0"`
	After     int            `yaml:"after" validate:"gte=0"`
	Context   int            `yaml:"context" validate:"gte=0"`
	Walk      walker.Options `yaml:"walk"`

	compiled *regexp.Regexp
}

// Regexp returns the regex compiled at load time.
func (s *TextSearchSpec) Regexp() *regexp.Regexp { return s.compiled }

// ContextLines resolves the before/after context window; the symmetric
// context option fills whichever side is unset.
func (s *TextSearchSpec) ContextLines() (before, after int) {
	before, after = s.Before, s.After
	if s.Context > 0 {
		if before == 0 {
			before = s.Context
		}
		if after == 0 {
			after = s.Context
		}
	}
	return before, after
}

// StructuralSearchSpec is the AST query backend configuration.
type StructuralSearchSpec struct {
	Query    string         `yaml:"query" validate:"required"`
	Files    string         `yaml:"files" validate:"required"`
	Capture  string         `yaml:"capture"`
	Language string         `yaml:"language"`
	Walk     walker.Options `yaml:"walk"`

	langOverride *lang.Language
	compiled     *sitter.Query // only when a language override pins the grammar
}

// LanguageOverride returns the pinned grammar, or nil when the grammar is
// inferred per file from its extension.
func (s *StructuralSearchSpec) LanguageOverride() *lang.Language { return s.langOverride }

// CompiledQuery returns the query compiled against the pinned grammar, or
// nil when compilation is deferred to per-file grammar selection.
func (s *StructuralSearchSpec) CompiledQuery() *sitter.Query { return s.compiled }

// CommandSpec is one checkpoint command. Exactly one of Run, TextSearch,
// StructuralSearch is set; construction fails otherwise.
type CommandSpec struct {
	Name             string                `yaml:"name"`
	Run              string                `yaml:"run"`
	TextSearch       *TextSearchSpec       `yaml:"textSearch"`
	StructuralSearch *StructuralSearchSpec `yaml:"structuralSearch"`

	Message        string    `yaml:"message"`
	Action         Action    `yaml:"action" validate:"omitempty,oneof=block warn"`
	CountMode      CountMode `yaml:"countMode" validate:"omitempty,oneof=lines occurrences"`
	ShowStdout     bool      `yaml:"showStdout"`
	ShowStderr     bool      `yaml:"showStderr"`
	MaxOutputLines int       `yaml:"maxOutputLines" validate:"gte=0"`
	Timeout        int       `yaml:"timeout" validate:"gte=0"` // seconds, 0 = no limit
	Notify         bool      `yaml:"notify"`

	MaxMatches   *uint64 `yaml:"maxMatches"`
	MinMatches   *uint64 `yaml:"minMatches"`
	EqualMatches *uint64 `yaml:"equalMatches"`

	bound constraint.Constraint
}

// Constraint returns the single bound resolved at load time (implicit
// max=0 when the command configures none).
func (c *CommandSpec) Constraint() constraint.Constraint { return c.bound }

// Kind names the command's execution backend for logs and errors.
func (c *CommandSpec) Kind() string {
	switch {
	case c.Run != "":
		return "run"
	case c.TextSearch != nil:
		return "textSearch"
	case c.StructuralSearch != nil:
		return "structuralSearch"
	}
	return "unknown"
}

// Config is one read-only snapshot of the rule and command lists. Nothing
// mutates it after Load returns.
type Config struct {
	UneditableFiles []ProtectionRule `yaml:"uneditableFiles"`
	ToolUsage       []UsageRule      `yaml:"toolUsage"`
	Checkpoint      []CommandSpec    `yaml:"checkpoint"`
	// SubagentCheckpoint runs on SubagentStop; empty falls back to Checkpoint.
	SubagentCheckpoint []CommandSpec `yaml:"subagentCheckpoint"`
}

// CheckpointFor returns the command list for a checkpoint hook type.
func (c *Config) CheckpointFor(subagent bool) []CommandSpec {
	if subagent && len(c.SubagentCheckpoint) > 0 {
		return c.SubagentCheckpoint
	}
	return c.Checkpoint
}

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
