// Package constraint judges a match count against the bound a checkpoint
// command configures.
package constraint

import "fmt"

// Kind selects which comparison a constraint performs.
type Kind string

const (
	Max   Kind = "max"
	Min   Kind = "min"
	Equal Kind = "equal"
)

// Constraint is a single bound on a match count. A command configures at
// most one; a command with none gets Default().
type Constraint struct {
	Kind  Kind
	Bound uint64
}

// Default is the implicit constraint when a command sets none: zero matches
// allowed, so any match is a failure.
func Default() Constraint {
	return Constraint{Kind: Max, Bound: 0}
}

// Verdict is the outcome of evaluating one constraint. Message is empty on
// a pass and holds the formatted failure reason otherwise.
type Verdict struct {
	Passed  bool
	Count   uint64
	Message string
}

// Evaluate compares count against the constraint. The subject names what was
// counted ("matches" for text search, "captures of name" for structural
// search) and is spliced into the failure message verbatim.
func (c Constraint) Evaluate(count uint64, subject string) Verdict {
	if subject == "" {
		subject = "matches"
	}
	v := Verdict{Count: count}
	switch c.Kind {
	case Max:
		v.Passed = count <= c.Bound
		if !v.Passed {
			v.Message = fmt.Sprintf("Found %d %s, maximum allowed is %d", count, subject, c.Bound)
		}
	case Min:
		v.Passed = count >= c.Bound
		if !v.Passed {
			v.Message = fmt.Sprintf("Found %d %s, minimum required is %d", count, subject, c.Bound)
		}
	case Equal:
		v.Passed = count == c.Bound
		if !v.Passed {
			v.Message = fmt.Sprintf("Found %d %s, expected exactly %d", count, subject, c.Bound)
		}
	default:
		v.Passed = false
		v.Message = fmt.Sprintf("unknown constraint kind %q", c.Kind)
	}
	return v
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s=%d", c.Kind, c.Bound)
}
