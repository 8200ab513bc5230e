package config

import (
	"fmt"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v3"
)

// Config file names probed in each scope, first hit wins.
var configFileNames = []string{"hookgate.yml", "hookgate.yaml"}

// DefaultMaxOutputLines bounds per-command captured output when a command
// does not set its own limit.
const DefaultMaxOutputLines = 50

// Discover returns the active config path: project scope
// (.claude/hookgate.yml under the working directory) before global scope
// (~/.claude/hookgate.yml). The project file, when present, is used whole;
// rule lists are ordered and merging them across scopes would make
// first-match precedence depend on file layout.
func Discover(cwd string) (string, error) {
	var candidates []string
	if cwd != "" {
		for _, name := range configFileNames {
			candidates = append(candidates, filepath.Join(cwd, ".claude", name))
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		for _, name := range configFileNames {
			candidates = append(candidates, filepath.Join(home, ".claude", name))
		}
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: no config file found (looked for %s under .claude/)", ErrConfig, configFileNames[0])
}

// Load reads, decodes, and fully validates one config file. Every pattern,
// regex, and pinned structural query is compiled here; a Config that Load
// returns never fails on syntax later.
func Load(path string) (*Config, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from config discovery under .claude dirs
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrConfig, path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
	}
	if err := cfg.compile(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault discovers and loads the active config for cwd.
func LoadDefault(cwd string) (*Config, error) {
	path, err := Discover(cwd)
	if err != nil {
		return nil, err
	}
	return Load(path)
}
