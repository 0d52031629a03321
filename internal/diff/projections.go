package diff

import (
	"sort"

	"github.com/sprite-ai/revisor/internal/model"
)

// SortByComplexity returns the changes ordered by descending complexity.
// Ties keep their original order. The input slice is not modified.
func SortByComplexity(changes []ParsedFileChange) []ParsedFileChange {
	out := make([]ParsedFileChange, len(changes))
	copy(out, changes)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Complexity > out[j].Complexity
	})
	return out
}

// GroupByExtension groups changes by file extension (without the dot).
func GroupByExtension(changes []ParsedFileChange) map[string][]ParsedFileChange {
	groups := make(map[string][]ParsedFileChange)
	for _, c := range changes {
		groups[c.Extension] = append(groups[c.Extension], c)
	}
	return groups
}

// FilterByChangeType returns only changes of the given type.
func FilterByChangeType(changes []ParsedFileChange, ct model.ChangeType) []ParsedFileChange {
	var out []ParsedFileChange
	for _, c := range changes {
		if c.ChangeType == ct {
			out = append(out, c)
		}
	}
	return out
}

// FilterByExtension returns only changes with the given extension.
func FilterByExtension(changes []ParsedFileChange, ext string) []ParsedFileChange {
	var out []ParsedFileChange
	for _, c := range changes {
		if c.Extension == ext {
			out = append(out, c)
		}
	}
	return out
}

// Summary aggregates a parsed change set.
type Summary struct {
	TotalFiles      int                      `json:"totalFiles"`
	TotalAdditions  int                      `json:"totalAdditions"`
	TotalDeletions  int                      `json:"totalDeletions"`
	ByChangeType    map[model.ChangeType]int `json:"byChangeType"`
	ByExtension     map[string]int           `json:"byExtension"`
	MostComplexFile string                   `json:"mostComplexFile,omitempty"`
	MaxComplexity   int                      `json:"maxComplexity"`
}

// CreateSummary computes aggregate counts over a parsed change set,
// including the single most complex file.
func CreateSummary(changes []ParsedFileChange) Summary {
	s := Summary{
		TotalFiles:   len(changes),
		ByChangeType: make(map[model.ChangeType]int),
		ByExtension:  make(map[string]int),
	}
	for _, c := range changes {
		s.TotalAdditions += c.Additions
		s.TotalDeletions += c.Deletions
		s.ByChangeType[c.ChangeType]++
		s.ByExtension[c.Extension]++
		if c.Complexity > s.MaxComplexity {
			s.MaxComplexity = c.Complexity
			s.MostComplexFile = c.File
		}
	}
	return s
}
