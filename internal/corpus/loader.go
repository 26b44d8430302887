package corpus

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirSource loads the corpus from a directory of JSONL transcript dumps.
type DirSource struct {
	Dir string
}

// Load reads the directory into a fresh index.
func (d DirSource) Load(_ context.Context) (*Index, error) {
	transcripts, turns, err := LoadDir(d.Dir)
	if err != nil {
		return nil, err
	}
	return NewIndex(transcripts, turns), nil
}

// transcriptLine is a single line from a transcript JSONL dump.
type transcriptLine struct {
	TranscriptID string         `json:"transcript_id"`
	Domain       string         `json:"domain"`
	Intent       string         `json:"intent"`
	Escalated    *bool          `json:"escalated"`
	Disposition  string         `json:"disposition"`
	Conversation []conversation `json:"conversation"`
}

type conversation struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// LoadDir loads every .jsonl file in dir (one transcript per line) and
// returns the transcripts plus their flattened turns. Malformed lines and
// lines without a transcript_id are skipped rather than failing the load.
func LoadDir(dir string) ([]Transcript, []Turn, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read corpus dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)

	var transcripts []Transcript
	var turns []Turn
	for _, path := range files {
		ts, tns, err := loadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", path, err)
		}
		transcripts = append(transcripts, ts...)
		turns = append(turns, tns...)
	}
	return transcripts, turns, nil
}

func loadFile(path string) ([]Transcript, []Turn, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var transcripts []Transcript
	var turns []Turn

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024) // 10MB line buffer
	for scanner.Scan() {
		var line transcriptLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue // skip malformed lines
		}
		if line.TranscriptID == "" {
			continue
		}

		transcripts = append(transcripts, Transcript{
			ID:      line.TranscriptID,
			Domain:  line.Domain,
			Intent:  line.Intent,
			Outcome: labelOutcome(line),
		})
		for i, c := range line.Conversation {
			turns = append(turns, Turn{
				TranscriptID: line.TranscriptID,
				TurnIndex:    i + 1,
				Speaker:      c.Speaker,
				Text:         c.Text,
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan: %w", err)
	}
	return transcripts, turns, nil
}

// labelOutcome derives the terminal outcome label from the raw fields.
// An explicit escalated flag wins over the disposition string.
func labelOutcome(line transcriptLine) string {
	if line.Escalated != nil && *line.Escalated {
		return "escalated"
	}
	switch strings.ToLower(line.Disposition) {
	case "escalated":
		return "escalated"
	case "resolved", "solved", "closed":
		return "resolved"
	}
	return "unresolved"
}
