package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// NewValidateCmd loads and fully validates the configuration, surfacing
// pattern, regex, and query errors before a hook ever fires.
func NewValidateCmd() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate the hookgate configuration",
		Flags: commonFlags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Printf("configuration OK: %d protection rules, %d usage rules, %d checkpoint commands",
				len(cfg.UneditableFiles), len(cfg.ToolUsage), len(cfg.Checkpoint))
			if n := len(cfg.SubagentCheckpoint); n > 0 {
				fmt.Printf(", %d subagent checkpoint commands", n)
			}
			fmt.Println()
			return nil
		},
	}
}
