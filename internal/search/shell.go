package search

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// ShellResult captures one external command run. Pass/fail derives from
// the exit status, not from the constraint machinery.
type ShellResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// RunShell executes command through the shell with the caller's context
// bounding its wall clock. A context deadline is reported as TimedOut, not
// as an error; real spawn failures are errors.
func RunShell(ctx context.Context, dir, command string) (*ShellResult, error) {
	cmd := exec.CommandContext(ctx, "bash", "-lc", command) // #nosec G204 -- user-configured command execution is intentional
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &ShellResult{Stdout: stdout.String(), Stderr: stderr.String()}

	if ctx.Err() != nil {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return nil, err
	}
	return res, nil
}
