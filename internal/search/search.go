// Package search implements the three checkpoint command backends: shell
// execution, regex search, and structural AST query. All backends report
// through the same Result shape so output formatting and constraint
// evaluation stay backend-agnostic.
package search

import (
	"fmt"
	"strings"
)

// Record is one located match. Both search backends produce the same
// shape; the shell backend produces none.
type Record struct {
	File   string
	Line   uint32 // 1-based
	Column uint32 // 1-based
	Label  string
	Text   string
}

// Result is a backend's raw outcome before constraint evaluation.
type Result struct {
	Count   uint64
	Records []Record
}

// FormatRecords renders match records one per line for captured output,
// bounded by maxLines with an explicit omission count.
func FormatRecords(records []Record, maxLines int) []string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("%s:%d:%d: %s", r.File, r.Line, r.Column, r.Text))
	}
	return BoundLines(lines, maxLines)
}

// BoundLines truncates output to maxLines, appending how many lines were
// dropped. maxLines <= 0 means unbounded.
func BoundLines(lines []string, maxLines int) []string {
	if maxLines <= 0 || len(lines) <= maxLines {
		return lines
	}
	omitted := len(lines) - maxLines
	out := append([]string(nil), lines[:maxLines]...)
	return append(out, fmt.Sprintf("... (%d more lines omitted)", omitted))
}

// SplitOutputLines turns captured process output into bounded lines,
// dropping a trailing newline artifact.
func SplitOutputLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
