// Package walker enumerates candidate files for the search backends. It
// respects ignore files, depth and size limits, and produces an
// order-stable, deduplicated path list.
package walker

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/hookgate/hookgate/internal/pattern"
)

// ErrNoFiles is returned when a file glob matches nothing. Callers treat it
// as a configuration error (likely a typo in the glob), never as a
// satisfied zero-match constraint.
var ErrNoFiles = errors.New("no files matched")

// binarySniffLen is how much of a file the binary check reads.
const binarySniffLen = 8192

// Options control traversal. The zero value gives the defaults: unlimited
// depth, hidden files excluded, symlinks not followed, no size limit,
// ignore files respected with parent inheritance, all filesystems, thread
// count from available parallelism, no type filter.
type Options struct {
	MaxDepth       int      `yaml:"maxDepth,omitempty"`
	Hidden         bool     `yaml:"hidden,omitempty"`
	FollowSymlinks bool     `yaml:"followSymlinks,omitempty"`
	MaxFileSize    int64    `yaml:"maxFileSize,omitempty"`
	NoIgnore       bool     `yaml:"noIgnore,omitempty"`
	NoIgnoreParent bool     `yaml:"noIgnoreParent,omitempty"`
	SameFileSystem bool     `yaml:"sameFileSystem,omitempty"`
	Threads        int      `yaml:"threads,omitempty"`
	Types          []string `yaml:"types,omitempty"`
}

// ThreadCount resolves the worker pool size for content scanning.
func (o Options) ThreadCount() int {
	if o.Threads > 0 {
		return o.Threads
	}
	return runtime.NumCPU()
}

// scopedIgnore is an ignore file anchored at the directory that contains
// it; its patterns apply only to paths under that directory.
type scopedIgnore struct {
	base    string
	matcher *ignore.GitIgnore
}

// Walker enumerates files under a single root.
type Walker struct {
	root    string
	opts    Options
	exts    map[string]bool // non-nil when a type filter is active
	rootDev uint64
	ignores []scopedIgnore // parent-directory ignore files, outermost first
}

// New validates the options and prepares a walker. Unknown file-type names
// are configuration errors.
func New(root string, opts Options) (*Walker, error) {
	w := &Walker{root: filepath.Clean(root), opts: opts}

	if len(opts.Types) > 0 {
		exts, err := extensionsForTypes(opts.Types)
		if err != nil {
			return nil, err
		}
		w.exts = exts
	}

	if opts.SameFileSystem {
		dev, err := deviceID(w.root)
		if err != nil {
			return nil, fmt.Errorf("stat root %s: %w", w.root, err)
		}
		w.rootDev = dev
	}

	if !opts.NoIgnore && !opts.NoIgnoreParent {
		w.ignores = parentIgnores(w.root)
	}
	return w, nil
}

// Walk returns the sorted, deduplicated, root-relative paths of files
// matching glob. A glob that matches nothing yields ErrNoFiles.
func (w *Walker) Walk(glob string) ([]string, error) {
	if err := pattern.Validate(glob); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var out []string
	if err := w.walkDir(w.root, 0, w.ignores, func(rel string) {
		if !seen[rel] {
			seen[rel] = true
			out = append(out, rel)
		}
	}, glob); err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: pattern %q (check for typos)", ErrNoFiles, glob)
	}
	sort.Strings(out)
	return out, nil
}

func (w *Walker) walkDir(dir string, depth int, ignores []scopedIgnore, emit func(string), glob string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Unreadable directories are skipped, not fatal; the root itself
		// failing to read is a real error.
		if dir == w.root {
			return fmt.Errorf("read dir %s: %w", dir, err)
		}
		return nil
	}

	if !w.opts.NoIgnore {
		for _, name := range []string{".gitignore", ".ignore"} {
			if m, err := ignore.CompileIgnoreFile(filepath.Join(dir, name)); err == nil && m != nil {
				ignores = append(ignores, scopedIgnore{base: dir, matcher: m})
			}
		}
	}

	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(dir, name)

		if !w.opts.Hidden && strings.HasPrefix(name, ".") {
			continue
		}
		if entry.IsDir() && name == ".git" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		isLink := info.Mode()&os.ModeSymlink != 0
		if isLink {
			if !w.opts.FollowSymlinks {
				continue
			}
			if info, err = os.Stat(full); err != nil {
				continue
			}
		}

		if w.ignored(full, info.IsDir(), ignores) {
			continue
		}

		if info.IsDir() {
			if w.opts.MaxDepth > 0 && depth+1 >= w.opts.MaxDepth {
				continue
			}
			if w.opts.SameFileSystem {
				if dev, err := deviceID(full); err != nil || dev != w.rootDev {
					continue
				}
			}
			if err := w.walkDir(full, depth+1, ignores, emit, glob); err != nil {
				return err
			}
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if w.opts.MaxFileSize > 0 && info.Size() > w.opts.MaxFileSize {
			continue
		}

		rel, err := filepath.Rel(w.root, full)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)

		if w.exts != nil && !w.exts[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		if pattern.MatchPath(glob, rel) {
			emit(rel)
		}
	}
	return nil
}

func (w *Walker) ignored(full string, isDir bool, ignores []scopedIgnore) bool {
	for _, si := range ignores {
		rel, err := filepath.Rel(si.base, full)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)
		if isDir {
			rel += "/"
		}
		if si.matcher.MatchesPath(rel) {
			return true
		}
	}
	return false
}

// parentIgnores collects ignore files from the root's ancestors, outermost
// first, so nested files take precedence by being consulted last.
func parentIgnores(root string) []scopedIgnore {
	var chain []string
	for dir := filepath.Dir(root); ; dir = filepath.Dir(dir) {
		chain = append(chain, dir)
		if dir == filepath.Dir(dir) {
			break
		}
	}
	var out []scopedIgnore
	for i := len(chain) - 1; i >= 0; i-- {
		for _, name := range []string{".gitignore", ".ignore"} {
			if m, err := ignore.CompileIgnoreFile(filepath.Join(chain[i], name)); err == nil && m != nil {
				out = append(out, scopedIgnore{base: chain[i], matcher: m})
			}
		}
	}
	return out
}

// IsBinary reports whether content looks binary: a NUL byte within the
// first sniffed chunk. Binary files are skipped during content search.
func IsBinary(content []byte) bool {
	n := len(content)
	if n > binarySniffLen {
		n = binarySniffLen
	}
	return bytes.IndexByte(content[:n], 0) >= 0
}

// Root returns the directory this walker enumerates under.
func (w *Walker) Root() string { return w.root }
