package merge

import (
	"math"
	"sort"

	"github.com/sprite-ai/revisor/internal/model"
	"github.com/sprite-ai/revisor/internal/sonar"
)

// SortByPriority orders issues most-actionable first: severity, then
// issue type, then file path, then line.
func SortByPriority(issues []model.CodeIssue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() < b.Severity.Rank()
		}
		if a.Type.Rank() != b.Type.Rank() {
			return a.Type.Rank() < b.Type.Rank()
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
}

var qualityPenalties = map[model.Severity]int{
	model.SeverityCritical: 15,
	model.SeverityHigh:     10,
	model.SeverityMedium:   5,
	model.SeverityLow:      2,
	model.SeverityInfo:     1,
}

// recomputeImpact derives risk and quality from the final issue set.
// The descriptive fields (modules, breaking changes, recommendations)
// come from the AI pass; risk and score are never merged field-by-field.
func (s *Service) recomputeImpact(aiResult *model.AIAnalysisResult, issues []model.CodeIssue, metrics *sonar.Metrics) model.ImpactAnalysis {
	impact := model.ImpactAnalysis{}
	if aiResult != nil {
		impact = aiResult.Impact
	}
	impact.RiskLevel = ComputeRiskLevel(issues)
	impact.QualityScore = ComputeQualityScore(issues, metrics)
	return impact
}

// ComputeRiskLevel escalates with issue severity: any critical issue is
// critical risk; four or more highs is high; any high or more than ten
// issues total is medium; otherwise low.
func ComputeRiskLevel(issues []model.CodeIssue) model.RiskLevel {
	criticals, highs := 0, 0
	for _, i := range issues {
		switch i.Severity {
		case model.SeverityCritical:
			criticals++
		case model.SeverityHigh:
			highs++
		}
	}
	switch {
	case criticals > 0:
		return model.RiskCritical
	case highs >= 4:
		return model.RiskHigh
	case highs > 0 || len(issues) > 10:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// ComputeQualityScore starts at 100, subtracts severity-weighted
// penalties per issue, then static-analysis metric penalties when
// present, clamped to [0,100].
func ComputeQualityScore(issues []model.CodeIssue, metrics *sonar.Metrics) int {
	score := 100.0
	for _, i := range issues {
		score -= float64(qualityPenalties[i.Severity])
	}
	if metrics != nil {
		score -= float64(metrics.Bugs) * 5
		score -= float64(metrics.Vulnerabilities) * 10
		score -= math.Min(float64(metrics.CodeSmells)*0.5, 20)
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score)
}

// Statistics is the read-side aggregation over a merged result.
type Statistics struct {
	TotalIssues   int                       `json:"totalIssues"`
	BySeverity    map[model.Severity]int    `json:"bySeverity"`
	ByType        map[model.IssueType]int   `json:"byType"`
	BySource      map[model.IssueSource]int `json:"bySource"`
	FilesAnalyzed int                       `json:"filesAnalyzed"`
	QualityScore  int                       `json:"qualityScore"`
	RiskLevel     model.RiskLevel           `json:"riskLevel"`
}

// GetStatistics aggregates counts for reporting. Pure read; the result
// is not modified.
func (s *Service) GetStatistics(result *model.MergedAnalysisResult) Statistics {
	stats := Statistics{
		BySeverity:    make(map[model.Severity]int),
		ByType:        make(map[model.IssueType]int),
		BySource:      make(map[model.IssueSource]int),
		FilesAnalyzed: len(result.FileAnalyses),
		QualityScore:  result.Impact.QualityScore,
		RiskLevel:     result.Impact.RiskLevel,
	}
	for _, fa := range result.FileAnalyses {
		for _, issue := range fa.Issues {
			stats.TotalIssues++
			stats.BySeverity[issue.Severity]++
			stats.ByType[issue.Type]++
			stats.BySource[issue.Source]++
		}
	}
	return stats
}
