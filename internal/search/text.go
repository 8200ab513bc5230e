package search

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/hookgate/hookgate/internal/config"
	"github.com/hookgate/hookgate/internal/logging"
	"github.com/hookgate/hookgate/internal/walker"
)

// fileResult keeps one file's partial outcome so the merged total is
// order-independent in value but records stay in walk order.
type fileResult struct {
	count   uint64
	records []Record
}

// RunText walks the configured files and streams each through the compiled
// regex. Lines mode counts each line containing a match once; occurrences
// mode counts every match. Binary files are skipped without error;
// unreadable files are skipped with a warning.
func RunText(ctx context.Context, root string, spec *config.TextSearchSpec, mode config.CountMode, log *logging.Logger) (*Result, error) {
	w, err := walker.New(root, spec.Walk)
	if err != nil {
		return nil, err
	}
	files, err := w.Walk(spec.Files)
	if err != nil {
		return nil, err
	}

	results := make([]fileResult, len(files))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for n := 0; n < spec.Walk.ThreadCount(); n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = scanFile(root, files[idx], spec, mode, log)
			}
		}()
	}

feed:
	for i := range files {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &Result{}
	for _, fr := range results {
		out.Count += fr.count
		out.Records = append(out.Records, fr.records...)
	}
	return out, nil
}

func scanFile(root, rel string, spec *config.TextSearchSpec, mode config.CountMode, log *logging.Logger) fileResult {
	content, err := os.ReadFile(filepath.Join(root, rel)) // #nosec G304 -- paths come from the walker under the hook root
	if err != nil {
		log.Warn("textSearch", "file_unreadable", map[string]any{"file": rel, "error": err.Error()})
		return fileResult{}
	}
	if walker.IsBinary(content) {
		return fileResult{}
	}

	re := spec.Regexp()
	before, after := spec.ContextLines()
	lines := strings.Split(string(content), "\n")

	if spec.MultiLine || spec.DotAll {
		// Dot-matches-newline and multi-line anchors only mean anything
		// against the whole file, so these modes match the full content
		// and map offsets back to line positions.
		return scanWhole(string(content), lines, re, rel, mode, before, after)
	}

	var fr fileResult
	for i, line := range lines {
		locs := re.FindAllStringIndex(line, -1)
		if len(locs) == 0 {
			continue
		}
		text := line
		if before > 0 || after > 0 {
			text = contextWindow(lines, i, before, after)
		}
		switch mode {
		case config.CountOccurrences:
			fr.count += uint64(len(locs))
			for _, loc := range locs {
				fr.records = append(fr.records, Record{
					File:   rel,
					Line:   uint32(i + 1),
					Column: uint32(loc[0] + 1),
					Label:  line[loc[0]:loc[1]],
					Text:   text,
				})
			}
		default: // lines
			fr.count++
			fr.records = append(fr.records, Record{
				File:   rel,
				Line:   uint32(i + 1),
				Column: uint32(locs[0][0] + 1),
				Label:  line[locs[0][0]:locs[0][1]],
				Text:   text,
			})
		}
	}
	return fr
}

// scanWhole runs the regex over the entire file text. A match is
// attributed to the line its first byte sits on; lines mode counts each
// such line once even when several matches start there.
func scanWhole(content string, lines []string, re *regexp.Regexp, rel string, mode config.CountMode, before, after int) fileResult {
	locs := re.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		return fileResult{}
	}

	starts := lineStarts(content)
	var fr fileResult
	counted := map[int]bool{}
	for _, loc := range locs {
		idx, col := locateLine(starts, loc[0])
		if mode != config.CountOccurrences {
			if counted[idx] {
				continue
			}
			counted[idx] = true
		}
		text := lines[idx]
		if before > 0 || after > 0 {
			text = contextWindow(lines, idx, before, after)
		}
		fr.count++
		fr.records = append(fr.records, Record{
			File:   rel,
			Line:   uint32(idx + 1),
			Column: uint32(col + 1),
			Label:  content[loc[0]:loc[1]],
			Text:   text,
		})
	}
	return fr
}

// lineStarts returns the byte offset of each line's first byte.
func lineStarts(content string) []int {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// locateLine maps a byte offset to its 0-based line index and column.
func locateLine(starts []int, offset int) (line, col int) {
	line = sort.SearchInts(starts, offset+1) - 1
	return line, offset - starts[line]
}

// contextWindow joins the lines around idx. A match near the file boundary
// simply gets a shorter window.
func contextWindow(lines []string, idx, before, after int) string {
	lo := idx - before
	if lo < 0 {
		lo = 0
	}
	hi := idx + after + 1
	if hi > len(lines) {
		hi = len(lines)
	}
	return strings.Join(lines[lo:hi], "\n")
}
