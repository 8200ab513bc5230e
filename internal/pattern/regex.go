package pattern

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// CaseMode controls case sensitivity of a compiled text-search regex.
type CaseMode string

const (
	// CaseSmart is insensitive unless the pattern contains an upper-case rune.
	CaseSmart       CaseMode = "smart"
	CaseSensitive   CaseMode = "sensitive"
	CaseInsensitive CaseMode = "insensitive"
)

// RegexOptions mirror the knobs a text-search command may set. The zero
// value means: smart case, no anchoring, full regex syntax.
type RegexOptions struct {
	Case         CaseMode
	WordBoundary bool
	Literal      bool
	MultiLine    bool
	WholeLine    bool
	DotAll       bool
	Unicode      bool
}

// DefaultRegexOptions returns the options applied when a command sets none.
func DefaultRegexOptions() RegexOptions {
	return RegexOptions{Case: CaseSmart, Unicode: true}
}

// CompileRegex builds the search regex for a pattern under the given
// options. Syntax errors are configuration errors; compilation happens once
// at config load, never during a search.
func CompileRegex(expr string, opts RegexOptions) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, fmt.Errorf("empty search pattern")
	}

	pat := expr
	if opts.Literal {
		pat = regexp.QuoteMeta(pat)
	} else if opts.Unicode {
		pat = expandUnicodeClasses(pat)
	}
	switch {
	case opts.WholeLine:
		pat = "^(?:" + pat + ")$"
	case opts.WordBoundary:
		pat = `\b(?:` + pat + `)\b`
	}

	var flags []string
	if insensitive(expr, opts) {
		flags = append(flags, "i")
	}
	if opts.MultiLine || opts.WholeLine {
		flags = append(flags, "m")
	}
	if opts.DotAll {
		flags = append(flags, "s")
	}
	if len(flags) > 0 {
		pat = "(?" + strings.Join(flags, "") + ")" + pat
	}

	re, err := regexp.Compile(pat)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern %q: %w", expr, err)
	}
	return re, nil
}

// unicodeClasses maps perl shorthand classes, which Go's regexp treats as
// ASCII, to their Unicode equivalents. Applied when the unicode option is on
// (the default), matching how ripgrep-style engines interpret \w and friends.
var unicodeClasses = map[byte]string{
	'w': `[\p{L}\p{N}_]`,
	'W': `[^\p{L}\p{N}_]`,
	'd': `\p{Nd}`,
	'D': `\P{Nd}`,
	's': `[\t\n\v\f\r \p{Z}]`,
	'S': `[^\t\n\v\f\r \p{Z}]`,
}

// expandUnicodeClasses rewrites unescaped \w, \d, \s (and negations) that
// appear outside bracket expressions. Classes inside [...] are left alone
// because Go's syntax does not allow nested bracket expressions.
func expandUnicodeClasses(expr string) string {
	var b strings.Builder
	inClass := false
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if c == '\\' && i+1 < len(expr) {
			next := expr[i+1]
			if repl, ok := unicodeClasses[next]; ok && !inClass {
				b.WriteString(repl)
				i++
				continue
			}
			b.WriteByte(c)
			b.WriteByte(next)
			i++
			continue
		}
		switch c {
		case '[':
			inClass = true
		case ']':
			inClass = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

func insensitive(expr string, opts RegexOptions) bool {
	switch opts.Case {
	case CaseInsensitive:
		return true
	case CaseSensitive:
		return false
	default:
		// Smart case: literal upper-case anywhere makes the search sensitive.
		for _, r := range expr {
			if unicode.IsUpper(r) {
				return false
			}
		}
		return true
	}
}
