package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/hookgate/hookgate/internal/config"
	"github.com/hookgate/hookgate/internal/notify"
	"github.com/hookgate/hookgate/internal/pipeline"
)

// NewCheckCmd runs checkpoint commands directly from the terminal, which
// is how configs get iterated on without replaying a whole session.
func NewCheckCmd() *cli.Command {
	flags := append(commonFlags(),
		&cli.StringFlag{
			Name:  "root",
			Usage: "Directory to run against (default: working directory)",
		},
		&cli.BoolFlag{
			Name:  "subagent",
			Usage: "Run the subagentCheckpoint list instead of checkpoint",
		},
		&cli.BoolFlag{
			Name:  "notify",
			Usage: "Enable desktop notifications for commands that request them",
		},
	)
	return &cli.Command{
		Name:      "check",
		Usage:     "Run checkpoint commands against the workspace",
		ArgsUsage: "[command names...]",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd)
			defer logger.Close()

			root := cmd.String("root")
			if root == "" {
				if root, err = os.Getwd(); err != nil {
					return err
				}
			}

			cmds := cfg.CheckpointFor(cmd.Bool("subagent"))
			if names := cmd.Args().Slice(); len(names) > 0 {
				cmds = filterByName(cmds, names)
				if len(cmds) == 0 {
					return fmt.Errorf("no checkpoint commands match %v", names)
				}
			}

			runner := &pipeline.Runner{Root: root, Log: logger}
			if cmd.Bool("notify") {
				runner.Notifier = notify.Desktop{Title: "hookgate"}
			}
			result, err := runner.Run(ctx, cmds)
			if err != nil {
				return err
			}

			for _, c := range result.Commands {
				status := "PASS"
				if !c.Passed {
					status = "FAIL"
				}
				if c.Count != nil {
					fmt.Printf("%s  %s (%d matches)\n", status, c.Name, *c.Count)
				} else {
					fmt.Printf("%s  %s\n", status, c.Name)
				}
				for _, line := range c.Output {
					fmt.Printf("      %s\n", line)
				}
				if !c.Passed {
					fmt.Printf("      %s\n", c.Message)
				}
			}
			for _, w := range result.Warnings {
				fmt.Printf("warning: %s\n", w)
			}
			if result.Blocked {
				return cli.Exit(fmt.Sprintf("blocked: %s", result.Message), 1)
			}
			return nil
		},
	}
}

func filterByName(cmds []config.CommandSpec, names []string) []config.CommandSpec {
	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}
	var out []config.CommandSpec
	for _, c := range cmds {
		if want[c.Name] {
			out = append(out, c)
		}
	}
	return out
}
