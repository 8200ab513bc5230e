// Package rules evaluates ordered protection and tool-usage rules against
// the resolved agent identity and the attempted action. Evaluation is
// pure: no I/O beyond in-memory pattern comparisons.
package rules

import (
	"fmt"

	"github.com/hookgate/hookgate/internal/config"
	"github.com/hookgate/hookgate/internal/pattern"
)

// Decision is the outcome of rule evaluation. Message is set only when the
// action is blocked.
type Decision struct {
	Allowed bool
	Message string
}

var allowed = Decision{Allowed: true}

// agentPattern normalizes an unset agent scope to the universal wildcard,
// so rules written before agent scoping existed behave unchanged even if
// they reach evaluation without the config defaulting pass.
func agentPattern(p string) string {
	if p == "" {
		return pattern.Wildcard
	}
	return p
}

// EvaluateProtection walks the ordered uneditable-file rules. A rule
// applies when its agent pattern matches the identity and its file pattern
// matches the attempted path; the first applicable rule blocks and
// supplies the message. No match means the edit is allowed.
func EvaluateProtection(ruleList []config.ProtectionRule, agent, path string) Decision {
	for i := range ruleList {
		r := &ruleList[i]
		if !pattern.Match(agentPattern(r.Agent), agent) {
			continue
		}
		if !pattern.MatchPath(r.Pattern, path) {
			continue
		}
		return Decision{Message: protectionMessage(r, path)}
	}
	return allowed
}

func protectionMessage(r *config.ProtectionRule, path string) string {
	msg := r.Message
	if msg == "" {
		msg = fmt.Sprintf("File %s is protected and cannot be edited", path)
	}
	if ap := agentPattern(r.Agent); ap != pattern.Wildcard {
		msg += fmt.Sprintf(" (agent: %s)", ap)
	}
	return msg
}

// EvaluateUsage walks the ordered tool-usage rules, first match wins, and
// a match may explicitly allow as well as block. A rule carrying a command
// pattern only matches when the invocation supplied a command string
// satisfying it.
func EvaluateUsage(ruleList []config.UsageRule, agent, tool, path, command string) Decision {
	for i := range ruleList {
		r := &ruleList[i]
		if !pattern.Match(agentPattern(r.Agent), agent) {
			continue
		}
		if !pattern.Match(r.Tool, tool) {
			continue
		}
		if r.Pattern != pattern.Wildcard && !pattern.MatchPath(r.Pattern, path) {
			continue
		}
		if re := r.CommandRegexp(); re != nil {
			if command == "" || !re.MatchString(command) {
				continue
			}
		}
		if r.Action == config.ActionAllow {
			return allowed
		}
		return Decision{Message: usageMessage(r, tool)}
	}
	return allowed
}

func usageMessage(r *config.UsageRule, tool string) string {
	msg := r.Message
	if msg == "" {
		msg = fmt.Sprintf("Tool %s is not permitted here", tool)
	}
	if ap := agentPattern(r.Agent); ap != pattern.Wildcard {
		msg += fmt.Sprintf(" (agent: %s)", ap)
	}
	return msg
}
