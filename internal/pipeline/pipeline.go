// Package pipeline sequences checkpoint commands: strictly in configured
// order, never in parallel, halting at the first blocking failure.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hookgate/hookgate/internal/config"
	"github.com/hookgate/hookgate/internal/logging"
	"github.com/hookgate/hookgate/internal/notify"
	"github.com/hookgate/hookgate/internal/search"
)

// CommandOutcome is one command's terminal result.
type CommandOutcome struct {
	Name     string
	Passed   bool
	Count    *uint64
	Message  string
	Output   []string
	TimedOut bool
}

// Result aggregates a whole checkpoint run. Blocked and Message are set
// when a block-action command failed; Warnings collects warn-action
// failures that did not stop the run.
type Result struct {
	Blocked  bool
	Message  string
	Warnings []string
	Commands []CommandOutcome
}

// Runner executes command lists for one hook invocation. The command list
// is a read-only snapshot; nothing here mutates configuration.
type Runner struct {
	Root     string
	Log      *logging.Logger
	Notifier notify.Notifier
}

func (r *Runner) notifier() notify.Notifier {
	if r.Notifier == nil {
		return notify.Nop{}
	}
	return r.Notifier
}

// Run executes cmds in order. Configuration errors (bad globs matching
// nothing, grammar-specific query failures) abort the whole run with an
// error; constraint violations and timeouts flow through each command's
// action instead.
func (r *Runner) Run(ctx context.Context, cmds []config.CommandSpec) (*Result, error) {
	result := &Result{}
	for i := range cmds {
		spec := &cmds[i]

		if spec.Notify {
			r.notifier().CommandStarted(spec.Name)
		}
		r.Log.Event("pipeline", "command_started", map[string]any{"command": spec.Name, "kind": spec.Kind()})

		outcome, err := r.runOne(ctx, spec)
		if err != nil {
			return nil, err
		}

		if spec.Notify {
			r.notifier().CommandFinished(spec.Name, outcome.Passed)
		}
		r.Log.Event("pipeline", "command_finished", map[string]any{
			"command": spec.Name,
			"passed":  outcome.Passed,
		})
		result.Commands = append(result.Commands, *outcome)

		if outcome.Passed {
			continue
		}
		if spec.Action == config.ActionWarn {
			r.Log.Warn("pipeline", "command_warning", map[string]any{
				"command": spec.Name,
				"message": outcome.Message,
			})
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %s", spec.Name, outcome.Message))
			continue
		}
		// Blocking failure: stop, run nothing further.
		result.Blocked = true
		result.Message = outcome.Message
		break
	}
	return result, nil
}

func (r *Runner) runOne(ctx context.Context, spec *config.CommandSpec) (*CommandOutcome, error) {
	cctx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, time.Duration(spec.Timeout)*time.Second)
		defer cancel()
	}

	switch {
	case spec.Run != "":
		return r.runShell(cctx, spec)
	case spec.TextSearch != nil:
		res, err := search.RunText(cctx, r.Root, spec.TextSearch, spec.CountMode, r.Log)
		return r.judge(spec, res, "matches", err)
	case spec.StructuralSearch != nil:
		res, capture, err := search.RunStructural(cctx, r.Root, spec.StructuralSearch, r.Log)
		return r.judge(spec, res, search.CaptureSubject(capture), err)
	}
	return nil, fmt.Errorf("%w: command %q has no execution kind", config.ErrConfig, spec.Name)
}

func (r *Runner) runShell(ctx context.Context, spec *config.CommandSpec) (*CommandOutcome, error) {
	res, err := search.RunShell(ctx, r.Root, spec.Run)
	if err != nil {
		return nil, fmt.Errorf("command %q: %w", spec.Name, err)
	}

	outcome := &CommandOutcome{Name: spec.Name}
	if spec.ShowStdout {
		outcome.Output = append(outcome.Output, search.SplitOutputLines(res.Stdout)...)
	}
	if spec.ShowStderr {
		outcome.Output = append(outcome.Output, search.SplitOutputLines(res.Stderr)...)
	}
	outcome.Output = search.BoundLines(outcome.Output, spec.MaxOutputLines)

	switch {
	case res.TimedOut:
		outcome.TimedOut = true
		outcome.Message = r.failureMessage(spec, timeoutMessage(spec))
	case res.ExitCode != 0:
		outcome.Message = r.failureMessage(spec, fmt.Sprintf("Command %q failed with exit code %d", spec.Name, res.ExitCode))
	default:
		outcome.Passed = true
	}
	return outcome, nil
}

// judge folds a search backend result plus constraint into an outcome.
// Deadline errors become timeout failures, handled exactly like a
// constraint failure for action purposes.
func (r *Runner) judge(spec *config.CommandSpec, res *search.Result, subject string, err error) (*CommandOutcome, error) {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return &CommandOutcome{
				Name:     spec.Name,
				TimedOut: true,
				Message:  r.failureMessage(spec, timeoutMessage(spec)),
			}, nil
		}
		return nil, err
	}

	verdict := spec.Constraint().Evaluate(res.Count, subject)
	outcome := &CommandOutcome{
		Name:   spec.Name,
		Passed: verdict.Passed,
		Count:  &verdict.Count,
	}
	if spec.ShowStdout {
		outcome.Output = search.FormatRecords(res.Records, spec.MaxOutputLines)
	}
	if !verdict.Passed {
		outcome.Message = r.failureMessage(spec, verdict.Message)
	}
	return outcome, nil
}

// failureMessage keeps the machine-generated detail intact and lets a
// configured message lead it.
func (r *Runner) failureMessage(spec *config.CommandSpec, detail string) string {
	if spec.Message == "" {
		return detail
	}
	return spec.Message + ": " + detail
}

func timeoutMessage(spec *config.CommandSpec) string {
	return fmt.Sprintf("Command %q timed out after %ds", spec.Name, spec.Timeout)
}
