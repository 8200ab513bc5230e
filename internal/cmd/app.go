// Package cmd wires the CLI surface: the hook entry point Claude Code
// invokes, plus maintenance commands for validating and exercising
// configuration from a terminal.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/hookgate/hookgate/internal/config"
	"github.com/hookgate/hookgate/internal/logging"
)

// NewApp assembles the root command.
func NewApp(info VersionInfo) *cli.Command {
	return &cli.Command{
		Name:  "hookgate",
		Usage: "Hook policy and checkpoint validation for Claude Code sessions",
		Commands: []*cli.Command{
			NewHookCmd(),
			NewCheckCmd(),
			NewValidateCmd(),
			NewVersionCmd(info),
		},
	}
}

// commonFlags are shared by every command that loads configuration.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file path (default: .claude/hookgate.yml, then ~/.claude/hookgate.yml)",
		},
		&cli.BoolFlag{
			Name:    "log",
			Aliases: []string{"l"},
			Usage:   "Enable JSONL logging to .claude/hookgate/hookgate.log",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Value: "jsonl",
			Usage: "Log output format: jsonl or pretty",
		},
	}
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	if path := cmd.String("config"); path != "" {
		return config.Load(path)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return config.LoadDefault(cwd)
}

func newLogger(cmd *cli.Command) *logging.Logger {
	if !cmd.Bool("log") {
		return logging.Nop()
	}
	cwd, err := os.Getwd()
	if err != nil {
		return logging.Nop()
	}
	path := filepath.Join(cwd, ".claude", "hookgate", "hookgate.log")
	logger, err := logging.New(path, logging.DefaultRotation(), cmd.String("log-format") == "pretty")
	if err != nil {
		fmt.Fprintf(os.Stderr, "hookgate: logging disabled: %v\n", err)
		return logging.Nop()
	}
	return logger
}
