package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hookgate/hookgate/internal/constraint"
	"github.com/hookgate/hookgate/internal/lang"
	"github.com/hookgate/hookgate/internal/pattern"
)

var structValidator = validator.New()

// compile applies defaults, enforces the sum-type invariants, and compiles
// every pattern and query. Called exactly once, from Load.
func (c *Config) compile() error {
	for i := range c.UneditableFiles {
		if err := c.UneditableFiles[i].compile(i); err != nil {
			return err
		}
	}
	for i := range c.ToolUsage {
		if err := c.ToolUsage[i].compile(i); err != nil {
			return err
		}
	}
	for _, l := range []struct {
		name string
		cmds []CommandSpec
	}{
		{"checkpoint", c.Checkpoint},
		{"subagentCheckpoint", c.SubagentCheckpoint},
	} {
		for i := range l.cmds {
			if err := l.cmds[i].compile(l.name, i); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *ProtectionRule) compile(idx int) error {
	if r.Agent == "" {
		// Rules written before agent scoping existed behave unchanged.
		r.Agent = pattern.Wildcard
	}
	if err := structValidator.Struct(r); err != nil {
		return configErr("uneditableFiles[%d]: %v", idx, err)
	}
	if err := pattern.Validate(r.Pattern); err != nil {
		return configErr("uneditableFiles[%d]: %v", idx, err)
	}
	if err := pattern.Validate(r.Agent); err != nil {
		return configErr("uneditableFiles[%d]: agent: %v", idx, err)
	}
	return nil
}

func (r *UsageRule) compile(idx int) error {
	if r.Agent == "" {
		r.Agent = pattern.Wildcard
	}
	if r.Pattern == "" {
		r.Pattern = pattern.Wildcard
	}
	if r.Action == "" {
		r.Action = ActionBlock
	}
	if err := structValidator.Struct(r); err != nil {
		return configErr("toolUsage[%d]: %v", idx, err)
	}
	for field, p := range map[string]string{"tool": r.Tool, "pattern": r.Pattern, "agent": r.Agent} {
		if err := pattern.Validate(p); err != nil {
			return configErr("toolUsage[%d]: %s: %v", idx, field, err)
		}
	}
	if r.Command != "" {
		re, err := regexp.Compile(r.Command)
		if err != nil {
			return configErr("toolUsage[%d]: command: %v", idx, err)
		}
		r.commandRe = re
	}
	return nil
}

func (c *CommandSpec) compile(list string, idx int) error {
	if c.Name == "" {
		c.Name = fmt.Sprintf("%s[%d]", list, idx)
	}
	where := fmt.Sprintf("%s[%d] (%s)", list, idx, c.Name)

	if c.Action == "" {
		c.Action = ActionBlock
	}
	if c.CountMode == "" {
		c.CountMode = CountLines
	}
	if c.MaxOutputLines == 0 {
		c.MaxOutputLines = DefaultMaxOutputLines
	}
	if err := structValidator.Struct(c); err != nil {
		return configErr("%s: %v", where, err)
	}

	kinds := 0
	if c.Run != "" {
		kinds++
	}
	if c.TextSearch != nil {
		kinds++
	}
	if c.StructuralSearch != nil {
		kinds++
	}
	if kinds != 1 {
		return configErr("%s: exactly one of run, textSearch, structuralSearch must be set (got %d)", where, kinds)
	}

	bounds := 0
	for _, b := range []*uint64{c.MaxMatches, c.MinMatches, c.EqualMatches} {
		if b != nil {
			bounds++
		}
	}
	if bounds > 1 {
		return configErr("%s: at most one of maxMatches, minMatches, equalMatches may be set", where)
	}
	switch {
	case c.Run != "" && bounds > 0:
		return configErr("%s: match constraints do not apply to run commands (pass/fail comes from the exit status)", where)
	case c.MaxMatches != nil:
		c.bound = constraint.Constraint{Kind: constraint.Max, Bound: *c.MaxMatches}
	case c.MinMatches != nil:
		c.bound = constraint.Constraint{Kind: constraint.Min, Bound: *c.MinMatches}
	case c.EqualMatches != nil:
		c.bound = constraint.Constraint{Kind: constraint.Equal, Bound: *c.EqualMatches}
	default:
		c.bound = constraint.Default()
	}

	if c.TextSearch != nil {
		if err := c.TextSearch.compile(); err != nil {
			return configErr("%s: textSearch: %v", where, err)
		}
	}
	if c.StructuralSearch != nil {
		if err := c.StructuralSearch.compile(); err != nil {
			return configErr("%s: structuralSearch: %v", where, err)
		}
	}
	return nil
}

func (s *TextSearchSpec) compile() error {
	if err := structValidator.Struct(s); err != nil {
		return err
	}
	if err := pattern.Validate(s.Files); err != nil {
		return err
	}
	opts := pattern.RegexOptions{
		Case:         pattern.CaseMode(s.Case),
		WordBoundary: s.Word,
		Literal:      s.Literal,
		MultiLine:    s.MultiLine,
		WholeLine:    s.WholeLine,
		DotAll:       s.DotAll,
		Unicode:      s.Unicode == nil || *s.Unicode,
	}
	if opts.Case == "" {
		opts.Case = pattern.CaseSmart
	}
	re, err := pattern.CompileRegex(s.Pattern, opts)
	if err != nil {
		return err
	}
	s.compiled = re
	return nil
}

func (s *StructuralSearchSpec) compile() error {
	if err := structValidator.Struct(s); err != nil {
		return err
	}
	if err := pattern.Validate(s.Files); err != nil {
		return err
	}
	s.Capture = strings.TrimPrefix(s.Capture, "@")

	if s.Language != "" {
		l, err := lang.ByName(s.Language)
		if err != nil {
			return err
		}
		s.langOverride = l
		q, err := sitter.NewQuery([]byte(s.Query), l.Grammar)
		if err != nil {
			return fmt.Errorf("invalid query: %v", err)
		}
		s.compiled = q
		return nil
	}
	// Without a pinned grammar the query compiles per file language at
	// search time; catch grammar-independent syntax errors now.
	return checkQueryShape(s.Query)
}

// checkQueryShape rejects structurally broken query text (unbalanced
// delimiters, empty query) without needing a grammar.
func checkQueryShape(q string) error {
	if strings.TrimSpace(q) == "" {
		return fmt.Errorf("empty query")
	}
	var stack []rune
	inString := false
	escaped := false
	for _, r := range q {
		if escaped {
			escaped = false
			continue
		}
		switch {
		case r == '\\':
			escaped = true
		case r == '"':
			inString = !inString
		case inString:
		case r == '(' || r == '[':
			stack = append(stack, r)
		case r == ')':
			if len(stack) == 0 || stack[len(stack)-1] != '(' {
				return fmt.Errorf("unbalanced ')' in query")
			}
			stack = stack[:len(stack)-1]
		case r == ']':
			if len(stack) == 0 || stack[len(stack)-1] != '[' {
				return fmt.Errorf("unbalanced ']' in query")
			}
			stack = stack[:len(stack)-1]
		}
	}
	if inString {
		return fmt.Errorf("unterminated string in query")
	}
	if len(stack) > 0 {
		return fmt.Errorf("unclosed '%c' in query", stack[len(stack)-1])
	}
	return nil
}
