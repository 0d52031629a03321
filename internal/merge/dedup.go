package merge

import (
	"fmt"
	"strings"

	"github.com/sprite-ai/revisor/internal/model"
)

// Strategy selects how near-duplicate issues are detected.
type Strategy string

const (
	// StrategyExact collapses issues with identical file, line, and
	// normalized message.
	StrategyExact Strategy = "exact"
	// StrategyLocation collapses any two issues at the same file and line.
	StrategyLocation Strategy = "location"
	// StrategyFuzzy collapses issues at the same file and line whose
	// messages are similar by edit distance.
	StrategyFuzzy Strategy = "fuzzy"
)

// deduplicate merges the two source sets. The preferred source's issues
// are scanned first so its version survives a collision; the losing
// issue's existence is recorded on the kept one as a duplicate-of tag.
func (s *Service) deduplicate(sonarIssues, aiIssues []model.CodeIssue) []model.CodeIssue {
	first, second := sonarIssues, aiIssues
	if !s.cfg.PreferSonarQube {
		first, second = aiIssues, sonarIssues
	}

	switch s.cfg.Strategy {
	case StrategyExact:
		return dedupeByKey(first, second, func(i model.CodeIssue) string {
			return fmt.Sprintf("%s:%d:%s", i.File, i.Line, normalize(i.Message))
		})
	case StrategyLocation:
		return dedupeByKey(first, second, func(i model.CodeIssue) string {
			return fmt.Sprintf("%s:%d", i.File, i.Line)
		})
	default:
		return s.dedupeFuzzy(first, second)
	}
}

// dedupeByKey keeps the first issue seen per key, scanning the preferred
// set first.
func dedupeByKey(first, second []model.CodeIssue, keyOf func(model.CodeIssue) string) []model.CodeIssue {
	kept := make([]model.CodeIssue, 0, len(first)+len(second))
	index := make(map[string]int, len(first)+len(second))

	for _, issue := range append(append([]model.CodeIssue{}, first...), second...) {
		key := keyOf(issue)
		if at, ok := index[key]; ok {
			markDuplicate(&kept[at], issue.Source)
			continue
		}
		index[key] = len(kept)
		kept = append(kept, issue)
	}
	return kept
}

// dedupeFuzzy keeps every preferred issue unconditionally, then drops a
// second-source issue when an already-kept issue at the same file and
// line has a message similarity at or above the threshold.
func (s *Service) dedupeFuzzy(first, second []model.CodeIssue) []model.CodeIssue {
	kept := make([]model.CodeIssue, 0, len(first)+len(second))
	kept = append(kept, first...)

	for _, candidate := range second {
		duplicate := false
		for i := range kept {
			if kept[i].File != candidate.File || kept[i].Line != candidate.Line {
				continue
			}
			if Similarity(kept[i].Message, candidate.Message) >= s.cfg.FuzzyThreshold {
				markDuplicate(&kept[i], candidate.Source)
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// markDuplicate records that a near-duplicate from the given source was
// dropped in favor of the kept issue.
func markDuplicate(kept *model.CodeIssue, droppedSource model.IssueSource) {
	tag := "duplicate-of:" + string(droppedSource)
	for _, t := range kept.Tags {
		if t == tag {
			return
		}
	}
	kept.Tags = append(kept.Tags, tag)
}

// Similarity scores two messages in [0,1]: 1 − editDistance/maxLen over
// normalized strings. Identical strings score 1; either empty scores 0.
func Similarity(a, b string) float64 {
	a, b = normalize(a), normalize(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1 - float64(levenshtein(a, b))/float64(maxLen)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// levenshtein computes edit distance with a two-row matrix.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
