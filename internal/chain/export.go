package chain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// labelSep joins signal types in exported chain labels.
const labelSep = " → "

// ExportedStat is the serialized form of one chain's statistics.
type ExportedStat struct {
	Occurrences        int        `json:"occurrences"`
	EscalatedCount     int        `json:"escalated_count"`
	ResolvedCount      int        `json:"resolved_count"`
	Confidence         float64    `json:"confidence"`
	ConfidenceInterval [2]float64 `json:"confidence_interval"`
	Examples           []string   `json:"examples"`
	Valid              bool       `json:"valid"`
}

// Export serializes the current table keyed by human-readable chain labels.
// Confidence and interval bounds are rounded to 3 decimals.
func (s *Stats) Export() map[string]ExportedStat {
	out := make(map[string]ExportedStat, s.Len())
	t := s.table.Load()
	if t == nil {
		return out
	}
	for _, stat := range *t {
		out[strings.Join(stat.Signals, labelSep)] = ExportedStat{
			Occurrences:        stat.Occurrences,
			EscalatedCount:     stat.EscalatedCount,
			ResolvedCount:      stat.ResolvedCount,
			Confidence:         round3(stat.Confidence),
			ConfidenceInterval: [2]float64{round3(stat.CILower), round3(stat.CIUpper)},
			Examples:           stat.Examples,
			Valid:              true,
		}
	}
	return out
}

// ExportJSON renders Export as indented JSON.
func (s *Stats) ExportJSON() ([]byte, error) {
	data, err := json.MarshalIndent(s.Export(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal chain export: %w", err)
	}
	return data, nil
}

// ParseExport reads a serialized table back into keyed statistics. The
// inverse of Export at the documented rounding precision.
func ParseExport(data []byte) (map[Key]*Stat, error) {
	var raw map[string]ExportedStat
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse chain export: %w", err)
	}
	out := make(map[Key]*Stat, len(raw))
	for label, es := range raw {
		types := strings.Split(label, labelSep)
		out[MakeKey(types)] = &Stat{
			Signals:        types,
			Occurrences:    es.Occurrences,
			EscalatedCount: es.EscalatedCount,
			ResolvedCount:  es.ResolvedCount,
			Confidence:     es.Confidence,
			CILower:        es.ConfidenceInterval[0],
			CIUpper:        es.ConfidenceInterval[1],
			Examples:       es.Examples,
		}
	}
	return out, nil
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
