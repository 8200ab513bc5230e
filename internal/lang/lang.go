// Package lang maps file extensions to tree-sitter grammars for the
// structural search backend.
package lang

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language pairs a grammar with its canonical name.
type Language struct {
	Name    string
	Grammar *sitter.Language
}

var byName = map[string]*Language{
	"go":         {Name: "go", Grammar: golang.GetLanguage()},
	"javascript": {Name: "javascript", Grammar: javascript.GetLanguage()},
	"typescript": {Name: "typescript", Grammar: typescript.GetLanguage()},
	"tsx":        {Name: "tsx", Grammar: tsx.GetLanguage()},
	"python":     {Name: "python", Grammar: python.GetLanguage()},
	"rust":       {Name: "rust", Grammar: rust.GetLanguage()},
	"java":       {Name: "java", Grammar: java.GetLanguage()},
	"ruby":       {Name: "ruby", Grammar: ruby.GetLanguage()},
	"c":          {Name: "c", Grammar: c.GetLanguage()},
	"cpp":        {Name: "cpp", Grammar: cpp.GetLanguage()},
	"bash":       {Name: "bash", Grammar: bash.GetLanguage()},
}

var byExtension = map[string]string{
	".go":   "go",
	".js":   "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".mts":  "typescript",
	".cts":  "typescript",
	".tsx":  "tsx",
	".py":   "python",
	".pyi":  "python",
	".rs":   "rust",
	".java": "java",
	".rb":   "ruby",
	".c":    "c",
	".h":    "c",
	".cc":   "cpp",
	".cpp":  "cpp",
	".cxx":  "cpp",
	".hpp":  "cpp",
	".hh":   "cpp",
	".sh":   "bash",
	".bash": "bash",
}

var aliases = map[string]string{
	"golang": "go",
	"js":     "javascript",
	"ts":     "typescript",
	"py":     "python",
	"rs":     "rust",
	"rb":     "ruby",
	"c++":    "cpp",
	"sh":     "bash",
	"shell":  "bash",
}

// ByName resolves an explicit language override. Overrides take precedence
// over extension inference.
func ByName(name string) (*Language, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	if l, ok := byName[key]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("unknown language %q (supported: %s)", name, strings.Join(Names(), ", "))
}

// ForFile infers a grammar from a file's extension. The boolean reports
// whether the extension is recognized; unrecognized files are skipped by the
// caller with a warning, never an error.
func ForFile(path string) (*Language, bool) {
	name, ok := byExtension[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, false
	}
	return byName[name], true
}

// Names returns the supported language names, sorted.
func Names() []string {
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
