package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hookgate/hookgate/internal/config"
	"github.com/hookgate/hookgate/internal/lang"
	"github.com/hookgate/hookgate/internal/logging"
	"github.com/hookgate/hookgate/internal/walker"
)

// nodeTextLimit is the single-line budget for a match record's text.
const nodeTextLimit = 100

// RunStructural queries the AST of every walked file and counts the nodes
// bound to the configured capture. The second return value is the
// effective capture name, for the constraint failure message.
//
// Files with an unrecognized extension and no language override are
// skipped with a warning, as are files whose parse yields an unusable
// tree. Predicate evaluation (#eq?, #match?, #any-of?) is delegated to the
// query engine; this layer only selects and counts captures.
func RunStructural(ctx context.Context, root string, spec *config.StructuralSearchSpec, log *logging.Logger) (*Result, string, error) {
	w, err := walker.New(root, spec.Walk)
	if err != nil {
		return nil, "", err
	}
	files, err := w.Walk(spec.Files)
	if err != nil {
		return nil, "", err
	}

	queries := map[*sitter.Language]*sitter.Query{}
	if q := spec.CompiledQuery(); q != nil {
		queries[spec.LanguageOverride().Grammar] = q
	}

	parser := sitter.NewParser()
	capture := spec.Capture

	out := &Result{}
	for _, rel := range files {
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		default:
		}

		l := spec.LanguageOverride()
		if l == nil {
			var known bool
			if l, known = lang.ForFile(rel); !known {
				log.Warn("structuralSearch", "unknown_extension", map[string]any{"file": rel})
				continue
			}
		}

		q, ok := queries[l.Grammar]
		if !ok {
			q, err = sitter.NewQuery([]byte(spec.Query), l.Grammar)
			if err != nil {
				// Grammar-specific query validity is only knowable here.
				return nil, "", fmt.Errorf("%w: invalid query for language %s: %v", config.ErrConfig, l.Name, err)
			}
			queries[l.Grammar] = q
		}
		if capture == "" {
			// Default to the first capture name appearing in the query.
			capture = q.CaptureNameForId(0)
		}

		content, err := os.ReadFile(filepath.Join(root, rel)) // #nosec G304 -- paths come from the walker under the hook root
		if err != nil {
			log.Warn("structuralSearch", "file_unreadable", map[string]any{"file": rel, "error": err.Error()})
			continue
		}

		parser.SetLanguage(l.Grammar)
		tree, err := parser.ParseCtx(ctx, nil, content)
		if err != nil || tree == nil {
			log.Warn("structuralSearch", "parse_failed", map[string]any{"file": rel})
			continue
		}
		rootNode := tree.RootNode()
		if !usable(rootNode) {
			// Diagnostics alone do not disqualify a tree; only an
			// empty or invalid root does.
			log.Warn("structuralSearch", "unusable_tree", map[string]any{"file": rel})
			continue
		}

		collectCaptures(q, rootNode, content, rel, capture, out)
	}
	return out, capture, nil
}

// usable reports whether a best-effort tree can be queried at all.
func usable(root *sitter.Node) bool {
	if root == nil {
		return false
	}
	if root.ChildCount() == 0 && root.HasError() {
		return false
	}
	return true
}

func collectCaptures(q *sitter.Query, root *sitter.Node, content []byte, rel, capture string, out *Result) {
	qc := sitter.NewQueryCursor()
	qc.Exec(q, root)
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		m = qc.FilterPredicates(m, content)
		for _, c := range m.Captures {
			if q.CaptureNameForId(c.Index) != capture {
				continue
			}
			start := c.Node.StartPoint()
			out.Count++
			out.Records = append(out.Records, Record{
				File:   rel,
				Line:   start.Row + 1,
				Column: start.Column + 1,
				Label:  c.Node.Type(),
				Text:   truncateNodeText(c.Node.Content(content)),
			})
		}
	}
}

// truncateNodeText folds node source text into one bounded line. Longer
// lines are cut with an ellipsis; additional lines collapse to a marker.
func truncateNodeText(s string) string {
	lines := strings.Split(s, "\n")
	first := lines[0]
	if runes := []rune(first); len(runes) > nodeTextLimit {
		first = string(runes[:nodeTextLimit]) + "…"
	}
	if len(lines) > 1 {
		first += fmt.Sprintf(" [+%d lines]", len(lines)-1)
	}
	return first
}

// CaptureSubject names what a structural constraint counted, for the
// failure message.
func CaptureSubject(capture string) string {
	return fmt.Sprintf("captures of %s", capture)
}
