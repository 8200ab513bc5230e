package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/brads3290/cchooks"
	"github.com/urfave/cli/v3"

	"github.com/hookgate/hookgate/internal/config"
	"github.com/hookgate/hookgate/internal/identity"
	"github.com/hookgate/hookgate/internal/logging"
	"github.com/hookgate/hookgate/internal/notify"
	"github.com/hookgate/hookgate/internal/pipeline"
	"github.com/hookgate/hookgate/internal/rules"
)

// editTools are the tools whose target file the protection rules guard.
var editTools = map[string]bool{
	"Edit":         true,
	"Write":        true,
	"MultiEdit":    true,
	"NotebookEdit": true,
}

// NewHookCmd is the hook entry point. Claude Code registers it per event:
//
//	hookgate hook PreToolUse
//	hookgate hook Stop
func NewHookCmd() *cli.Command {
	flags := append(commonFlags(),
		&cli.StringFlag{
			Name:  "agent",
			Usage: "Explicit agent identity; skips transcript inference",
		},
		&cli.BoolFlag{
			Name:  "notify",
			Usage: "Enable desktop notifications for commands that request them",
		},
	)
	return &cli.Command{
		Name:      "hook",
		Usage:     "Process one hook event from stdin",
		ArgsUsage: "[event]",
		Description: `Reads a hook event payload from stdin and answers it.
PreToolUse events are checked against the protection and tool-usage rules;
Stop and SubagentStop events run the checkpoint command pipeline.`,
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) != 1 {
				return fmt.Errorf("exactly one argument required: [event]")
			}
			event := args[0]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd)
			defer logger.Close()

			h := &hookHandler{
				cfg:           cfg,
				log:           logger,
				explicitAgent: cmd.String("agent"),
			}
			if cmd.Bool("notify") {
				h.notifier = notify.Desktop{Title: "hookgate"}
			}

			switch event {
			case "PreToolUse":
				runner := &cchooks.Runner{
					Raw:        h.captureRaw,
					PreToolUse: h.preToolUse,
				}
				runner.Run()
				return nil
			case "Stop", "SubagentStop":
				return h.runCheckpoint(ctx, os.Stdin, os.Stdout, event == "SubagentStop")
			default:
				return fmt.Errorf("unsupported hook event %q (supported: PreToolUse, Stop, SubagentStop)", event)
			}
		},
	}
}

// rawEnvelope is the slice of the hook payload shared by every event.
type rawEnvelope struct {
	HookEventName  string `json:"hook_event_name"`
	TranscriptPath string `json:"transcript_path"`
	CWD            string `json:"cwd"`
	ToolName       string `json:"tool_name"`
	ToolInput      struct {
		FilePath string `json:"file_path"`
		Command  string `json:"command"`
	} `json:"tool_input"`
}

type hookHandler struct {
	cfg           *config.Config
	log           *logging.Logger
	explicitAgent string
	notifier      notify.Notifier
	raw           rawEnvelope
}

// captureRaw stashes the envelope fields before typed dispatch so the
// handlers can reach the transcript path and tool input fallbacks.
// Returning nil continues normal processing.
func (h *hookHandler) captureRaw(_ context.Context, rawJSON string) *cchooks.RawResponse {
	if err := json.Unmarshal([]byte(rawJSON), &h.raw); err != nil {
		h.log.Warn("hook", "raw_parse_failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (h *hookHandler) preToolUse(_ context.Context, event *cchooks.PreToolUseEvent) cchooks.PreToolUseResponseInterface {
	agent := identity.Resolve(h.explicitAgent, h.raw.TranscriptPath, h.log)

	filePath, command := h.actionTarget(event)

	if filePath != "" && editTools[event.ToolName] {
		if d := rules.EvaluateProtection(h.cfg.UneditableFiles, agent, filePath); !d.Allowed {
			h.log.Event("hook", "edit_blocked", map[string]any{
				"agent": agent, "file": filePath, "message": d.Message,
			})
			return cchooks.Block(d.Message)
		}
	}

	if d := rules.EvaluateUsage(h.cfg.ToolUsage, agent, event.ToolName, filePath, command); !d.Allowed {
		h.log.Event("hook", "tool_blocked", map[string]any{
			"agent": agent, "tool": event.ToolName, "message": d.Message,
		})
		return cchooks.Block(d.Message)
	}

	return cchooks.Approve()
}

// actionTarget extracts the file path and command string of the attempted
// action, preferring the typed accessors and falling back to the raw
// envelope for tools cchooks has no accessor for.
func (h *hookHandler) actionTarget(event *cchooks.PreToolUseEvent) (filePath, command string) {
	switch event.ToolName {
	case "Bash":
		if bash, err := event.AsBash(); err == nil {
			command = bash.Command
		}
	case "Edit":
		if edit, err := event.AsEdit(); err == nil {
			filePath = edit.FilePath
		}
	case "Write":
		if write, err := event.AsWrite(); err == nil {
			filePath = write.FilePath
		}
	}
	if filePath == "" {
		filePath = h.raw.ToolInput.FilePath
	}
	if command == "" {
		command = h.raw.ToolInput.Command
	}
	return filePath, command
}

// stopDecision is the response contract for checkpoint hooks: an empty
// object lets the agent stop, a block decision sends it back to work.
type stopDecision struct {
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// runCheckpoint reads the raw event payload itself, since checkpoint
// events carry no tool-call structure worth typed dispatch.
func (h *hookHandler) runCheckpoint(ctx context.Context, in io.Reader, out io.Writer, subagent bool) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read hook payload: %w", err)
	}
	if err := json.Unmarshal(data, &h.raw); err != nil {
		h.log.Warn("hook", "raw_parse_failed", map[string]any{"error": err.Error()})
	}

	root := h.raw.CWD
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
	}

	agent := identity.Resolve(h.explicitAgent, h.raw.TranscriptPath, h.log)
	h.log.Event("hook", "checkpoint_started", map[string]any{"agent": agent, "root": root})

	runner := &pipeline.Runner{Root: root, Log: h.log, Notifier: h.notifier}
	result, err := runner.Run(ctx, h.cfg.CheckpointFor(subagent))
	if err != nil {
		return err
	}

	for _, c := range result.Commands {
		for _, line := range c.Output {
			fmt.Fprintln(os.Stderr, line)
		}
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	decision := stopDecision{}
	if result.Blocked {
		decision.Decision = "block"
		decision.Reason = result.Message
	}
	enc := json.NewEncoder(out)
	if err := enc.Encode(decision); err != nil {
		return fmt.Errorf("write hook response: %w", err)
	}

	h.log.Event("hook", "checkpoint_finished", map[string]any{
		"blocked":  result.Blocked,
		"warnings": len(result.Warnings),
	})
	return nil
}
