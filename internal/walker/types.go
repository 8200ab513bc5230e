package walker

import (
	"fmt"
	"sort"
	"strings"
)

// typeTable is the built-in file-type filter table, keyed by the names a
// command's walk options may reference.
var typeTable = map[string][]string{
	"go":       {".go"},
	"js":       {".js", ".mjs", ".cjs", ".jsx"},
	"ts":       {".ts", ".mts", ".cts", ".tsx"},
	"py":       {".py", ".pyi"},
	"rust":     {".rs"},
	"java":     {".java"},
	"ruby":     {".rb", ".rake", ".gemspec"},
	"c":        {".c", ".h"},
	"cpp":      {".cc", ".cpp", ".cxx", ".hpp", ".hh"},
	"sh":       {".sh", ".bash", ".zsh"},
	"html":     {".html", ".htm"},
	"css":      {".css", ".scss", ".sass", ".less"},
	"json":     {".json", ".jsonc"},
	"yaml":     {".yml", ".yaml"},
	"toml":     {".toml"},
	"md":       {".md", ".markdown"},
	"sql":      {".sql"},
	"proto":    {".proto"},
	"txt":      {".txt"},
	"xml":      {".xml"},
	"docker":   {".dockerfile"},
	"makefile": {".mk"},
}

// extensionsForTypes resolves a type filter list into one extension set.
// Unknown type names are configuration errors.
func extensionsForTypes(types []string) (map[string]bool, error) {
	exts := map[string]bool{}
	for _, t := range types {
		list, ok := typeTable[strings.ToLower(strings.TrimSpace(t))]
		if !ok {
			return nil, fmt.Errorf("unknown file type %q (known types: %s)", t, strings.Join(TypeNames(), ", "))
		}
		for _, e := range list {
			exts[e] = true
		}
	}
	return exts, nil
}

// TypeNames returns the known file-type filter names, sorted.
func TypeNames() []string {
	names := make([]string, 0, len(typeTable))
	for n := range typeTable {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
