package corpus

import "sort"

// Transcript is a single labeled conversation from the corpus.
type Transcript struct {
	ID      string
	Domain  string
	Intent  string
	Outcome string // "escalated", "resolved" or "unresolved"
}

// Turn is one utterance within a transcript.
type Turn struct {
	TranscriptID string
	TurnIndex    int
	Speaker      string // "customer" or "agent"
	Text         string
}

// Index holds the loaded corpus with per-transcript turn lookup.
type Index struct {
	transcripts map[string]Transcript
	order       []string
	turns       map[string][]Turn
}

// NewIndex builds an index from transcripts and their turns. Turns are
// grouped by transcript and sorted by turn index (stable, so ties keep
// their original encounter order).
func NewIndex(transcripts []Transcript, turns []Turn) *Index {
	idx := &Index{
		transcripts: make(map[string]Transcript, len(transcripts)),
		turns:       make(map[string][]Turn),
	}
	for _, t := range transcripts {
		if _, seen := idx.transcripts[t.ID]; seen {
			continue
		}
		idx.transcripts[t.ID] = t
		idx.order = append(idx.order, t.ID)
	}
	for _, turn := range turns {
		idx.turns[turn.TranscriptID] = append(idx.turns[turn.TranscriptID], turn)
	}
	for id := range idx.turns {
		ts := idx.turns[id]
		sort.SliceStable(ts, func(i, j int) bool { return ts[i].TurnIndex < ts[j].TurnIndex })
	}
	return idx
}

// Transcript returns the transcript with the given id.
func (idx *Index) Transcript(id string) (Transcript, bool) {
	t, ok := idx.transcripts[id]
	return t, ok
}

// Turns returns the ordered turns for a transcript. A transcript with no
// recorded turns yields an empty slice.
func (idx *Index) Turns(id string) []Turn {
	return idx.turns[id]
}

// IDs returns all transcript ids in load order.
func (idx *Index) IDs() []string {
	return idx.order
}

// Len returns the number of transcripts in the corpus.
func (idx *Index) Len() int {
	return len(idx.order)
}

// CountByOutcome tallies transcripts per outcome label.
func (idx *Index) CountByOutcome() map[string]int {
	counts := make(map[string]int)
	for _, id := range idx.order {
		counts[idx.transcripts[id].Outcome]++
	}
	return counts
}
