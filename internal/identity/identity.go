// Package identity resolves which agent is performing the current action:
// the main session or a named subagent spawned via the Task tool.
package identity

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/hookgate/hookgate/internal/logging"
)

// Main is the reserved identity of the orchestrating session.
const Main = "main"

// transcriptLine is the slice of a transcript JSONL entry the resolver
// cares about. Everything else in the entry is ignored.
type transcriptLine struct {
	IsSidechain bool `json:"isSidechain"`
	Message     struct {
		Content []struct {
			Type  string `json:"type"`
			Name  string `json:"name"`
			Input struct {
				SubagentType string `json:"subagent_type"`
			} `json:"input"`
		} `json:"content"`
	} `json:"message"`
}

// Resolve produces exactly one identity and never fails. An explicit
// identity from the caller wins outright. Otherwise the session transcript
// is consulted; any read or parse trouble logs a warning and falls back to
// Main, because a missing identity must not block unrelated operations.
func Resolve(explicit, transcriptPath string, log *logging.Logger) string {
	if explicit != "" {
		return explicit
	}
	if transcriptPath == "" {
		return Main
	}
	id, err := fromTranscript(transcriptPath)
	if err != nil {
		log.Warn("identity", "transcript_unreadable", map[string]any{
			"path":  transcriptPath,
			"error": err.Error(),
		})
		return Main
	}
	return id
}

// fromTranscript scans the transcript in order. The most recent Task tool
// invocation names the subagent type; when the transcript tail is a
// sidechain, that subagent is the current actor, otherwise the main
// session is.
func fromTranscript(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from the hook event payload
	if err != nil {
		return "", err
	}
	defer f.Close()

	lastAgent := ""
	tailSidechain := false

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var line transcriptLine
		if err := json.Unmarshal(raw, &line); err != nil {
			// A single garbled line does not invalidate the transcript.
			continue
		}
		tailSidechain = line.IsSidechain
		for _, c := range line.Message.Content {
			if c.Type == "tool_use" && c.Name == "Task" && c.Input.SubagentType != "" {
				lastAgent = c.Input.SubagentType
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if tailSidechain && lastAgent != "" {
		return lastAgent, nil
	}
	return Main, nil
}
