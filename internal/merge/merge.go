// Package merge combines AI-sourced and static-analysis-sourced issue
// sets into one deduplicated, prioritized report. Pure transformation:
// no state beyond the configuration fixed at construction.
package merge

import (
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sprite-ai/revisor/internal/model"
	"github.com/sprite-ai/revisor/internal/sonar"
)

// Config fixes the merge behavior.
type Config struct {
	Strategy        Strategy
	PreferSonarQube bool
	FuzzyThreshold  float64
}

// DefaultConfig is fuzzy dedup at 0.8, preferring static analysis.
func DefaultConfig() Config {
	return Config{
		Strategy:        StrategyFuzzy,
		PreferSonarQube: true,
		FuzzyThreshold:  0.8,
	}
}

// Service merges analysis results.
type Service struct {
	cfg Config
	log *slog.Logger
}

// New creates a merge Service. Out-of-range thresholds and unknown
// strategies fall back to defaults.
func New(cfg Config, log *slog.Logger) *Service {
	if cfg.Strategy != StrategyExact && cfg.Strategy != StrategyLocation && cfg.Strategy != StrategyFuzzy {
		cfg.Strategy = StrategyFuzzy
	}
	if cfg.FuzzyThreshold <= 0 || cfg.FuzzyThreshold > 1 {
		cfg.FuzzyThreshold = 0.8
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{cfg: cfg, log: log}
}

// Merge combines the AI result with an optional static-analysis result.
// Every issue's file ends up with a FileAnalysis entry: files only the
// static side flagged get a new entry, and files the AI described keep
// theirs even when all their issues were deduplicated away.
func (s *Service) Merge(aiResult *model.AIAnalysisResult, staticResult *sonar.AnalysisResult, baseSummary string) *model.MergedAnalysisResult {
	var aiIssues, sonarIssues []model.CodeIssue

	if aiResult != nil {
		for _, fa := range aiResult.FileAnalyses {
			for _, issue := range fa.Issues {
				if issue.Source == "" {
					issue.Source = model.SourceAI
				}
				if issue.File == "" {
					issue.File = fa.File
				}
				aiIssues = append(aiIssues, issue)
			}
		}
	}
	if staticResult != nil {
		sonarIssues = s.translateIssues(staticResult.Issues)
	}

	total := len(aiIssues) + len(sonarIssues)
	unique := s.deduplicate(sonarIssues, aiIssues)

	result := &model.MergedAnalysisResult{
		Summary:      baseSummary,
		FileAnalyses: s.buildFileAnalyses(aiResult, unique),
		Deduplication: &model.DeduplicationInfo{
			TotalIssues:       total,
			DuplicatesRemoved: total - len(unique),
			UniqueIssues:      len(unique),
		},
		Timestamp: time.Now(),
	}

	var metrics *sonar.Metrics
	if staticResult != nil {
		metrics = &staticResult.Metrics
	}
	result.Impact = s.recomputeImpact(aiResult, unique, metrics)

	s.log.Debug("merged analysis results",
		"total", total, "unique", len(unique), "files", len(result.FileAnalyses))
	return result
}

// buildFileAnalyses distributes the final issues over per-file entries,
// preserving the AI pass's per-file context where it exists.
func (s *Service) buildFileAnalyses(aiResult *model.AIAnalysisResult, issues []model.CodeIssue) []model.FileAnalysis {
	byFile := make(map[string][]model.CodeIssue)
	for _, issue := range issues {
		byFile[issue.File] = append(byFile[issue.File], issue)
	}

	var analyses []model.FileAnalysis
	described := make(map[string]bool)

	if aiResult != nil {
		for _, fa := range aiResult.FileAnalyses {
			if described[fa.File] {
				continue
			}
			described[fa.File] = true
			fa.Issues = byFile[fa.File]
			if fa.Issues == nil {
				fa.Issues = []model.CodeIssue{}
			}
			delete(byFile, fa.File)
			analyses = append(analyses, fa)
		}
	}

	// Files with issues the AI pass never described (static-only hits).
	var leftover []string
	for file := range byFile {
		leftover = append(leftover, file)
	}
	sort.Strings(leftover)
	for _, file := range leftover {
		analyses = append(analyses, model.FileAnalysis{
			File:       file,
			ChangeType: model.ChangeModified,
			Issues:     byFile[file],
			Summary:    "Flagged by static analysis",
		})
	}

	for i := range analyses {
		SortByPriority(analyses[i].Issues)
	}
	sort.SliceStable(analyses, func(i, j int) bool {
		return analyses[i].File < analyses[j].File
	})
	return analyses
}

var severityTable = map[string]model.Severity{
	"BLOCKER":  model.SeverityCritical,
	"CRITICAL": model.SeverityCritical,
	"MAJOR":    model.SeverityHigh,
	"MINOR":    model.SeverityMedium,
	"INFO":     model.SeverityInfo,
}

var typeTable = map[string]model.IssueType{
	"BUG":              model.TypeBug,
	"VULNERABILITY":    model.TypeVulnerability,
	"CODE_SMELL":       model.TypeCodeSmell,
	"SECURITY_HOTSPOT": model.TypeSecurityHotspot,
}

// translateIssues maps SonarQube findings onto the shared issue model.
func (s *Service) translateIssues(issues []sonar.Issue) []model.CodeIssue {
	out := make([]model.CodeIssue, 0, len(issues))
	for _, si := range issues {
		severity, ok := severityTable[strings.ToUpper(si.Severity)]
		if !ok {
			severity = model.SeverityMedium
		}
		issueType, ok := typeTable[strings.ToUpper(si.Type)]
		if !ok {
			issueType = model.TypeCodeSmell
		}
		out = append(out, model.CodeIssue{
			Source:        model.SourceSonarQube,
			Severity:      severity,
			Type:          issueType,
			File:          componentPath(si.Component),
			Line:          si.Line,
			Message:       si.Message,
			Rule:          si.Rule,
			EffortMinutes: parseEffort(si.Effort),
			Tags:          si.Tags,
			IssueKey:      si.Key,
		})
	}
	return out
}

// componentPath strips the "<projectKey>:" prefix from a component
// identifier, leaving the repository-relative path.
func componentPath(component string) string {
	if _, path, ok := strings.Cut(component, ":"); ok {
		return path
	}
	return component
}

var effortPattern = regexp.MustCompile(`^(\d+)(min|h|d)$`)

// parseEffort converts "<N>min|h|d" to minutes; a day is 480 minutes.
// Anything unparseable is 0.
func parseEffort(effort string) int {
	m := effortPattern.FindStringSubmatch(strings.TrimSpace(effort))
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	switch m[2] {
	case "h":
		return n * 60
	case "d":
		return n * 480
	default:
		return n
	}
}
