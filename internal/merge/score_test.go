package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprite-ai/revisor/internal/model"
	"github.com/sprite-ai/revisor/internal/sonar"
)

func issuesOf(severities ...model.Severity) []model.CodeIssue {
	out := make([]model.CodeIssue, len(severities))
	for i, s := range severities {
		out[i] = model.CodeIssue{Severity: s, Type: model.TypeCodeSmell}
	}
	return out
}

func TestComputeRiskLevel(t *testing.T) {
	assert.Equal(t, model.RiskLow, ComputeRiskLevel(nil))
	assert.Equal(t, model.RiskLow, ComputeRiskLevel(issuesOf(model.SeverityLow, model.SeverityMedium)))

	assert.Equal(t, model.RiskMedium, ComputeRiskLevel(issuesOf(model.SeverityHigh)))

	// more than ten issues escalates even without highs
	many := issuesOf(
		model.SeverityLow, model.SeverityLow, model.SeverityLow, model.SeverityLow,
		model.SeverityLow, model.SeverityLow, model.SeverityLow, model.SeverityLow,
		model.SeverityLow, model.SeverityLow, model.SeverityLow,
	)
	assert.Equal(t, model.RiskMedium, ComputeRiskLevel(many))

	assert.Equal(t, model.RiskHigh, ComputeRiskLevel(issuesOf(
		model.SeverityHigh, model.SeverityHigh, model.SeverityHigh, model.SeverityHigh)))

	// a single critical dominates everything
	assert.Equal(t, model.RiskCritical, ComputeRiskLevel(issuesOf(model.SeverityCritical)))
	assert.Equal(t, model.RiskCritical, ComputeRiskLevel(issuesOf(
		model.SeverityCritical, model.SeverityHigh, model.SeverityHigh,
		model.SeverityHigh, model.SeverityHigh)))
}

func TestComputeQualityScore(t *testing.T) {
	assert.Equal(t, 100, ComputeQualityScore(nil, nil))

	assert.Equal(t, 85, ComputeQualityScore(issuesOf(model.SeverityCritical), nil))
	assert.Equal(t, 90, ComputeQualityScore(issuesOf(model.SeverityHigh), nil))
	assert.Equal(t, 95, ComputeQualityScore(issuesOf(model.SeverityMedium), nil))
	assert.Equal(t, 98, ComputeQualityScore(issuesOf(model.SeverityLow), nil))
	assert.Equal(t, 99, ComputeQualityScore(issuesOf(model.SeverityInfo), nil))
}

func TestComputeQualityScoreMetrics(t *testing.T) {
	metrics := &sonar.Metrics{Bugs: 2, Vulnerabilities: 1, CodeSmells: 10}
	// 100 - 2*5 - 1*10 - min(10*0.5, 20) = 75
	assert.Equal(t, 75, ComputeQualityScore(nil, metrics))

	// code smell penalty is capped at 20
	capped := &sonar.Metrics{CodeSmells: 1000}
	assert.Equal(t, 80, ComputeQualityScore(nil, capped))
}

func TestComputeQualityScoreClamped(t *testing.T) {
	var pile []model.CodeIssue
	for i := 0; i < 20; i++ {
		pile = append(pile, model.CodeIssue{Severity: model.SeverityCritical})
	}
	assert.Equal(t, 0, ComputeQualityScore(pile, nil))
}

func TestComputeQualityScoreMonotonic(t *testing.T) {
	// adding an issue never raises the score
	issues := issuesOf(
		model.SeverityInfo, model.SeverityLow, model.SeverityMedium,
		model.SeverityHigh, model.SeverityCritical,
	)
	prev := ComputeQualityScore(nil, nil)
	for i := 1; i <= len(issues); i++ {
		score := ComputeQualityScore(issues[:i], nil)
		assert.LessOrEqual(t, score, prev, "score rose after adding issue %d", i)
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
		prev = score
	}
}

func TestSortByPriority(t *testing.T) {
	issues := []model.CodeIssue{
		{Severity: model.SeverityMedium, Type: model.TypeCodeSmell, File: "b.go", Line: 5},
		{Severity: model.SeverityCritical, Type: model.TypeVulnerability, File: "z.go", Line: 100},
		{Severity: model.SeverityMedium, Type: model.TypeBug, File: "a.go", Line: 1},
		{Severity: model.SeverityMedium, Type: model.TypeBug, File: "a.go", Line: 50},
		{Severity: model.SeverityMedium, Type: model.TypeVulnerability, File: "c.go", Line: 9},
	}
	SortByPriority(issues)

	assert.Equal(t, model.SeverityCritical, issues[0].Severity)
	assert.Equal(t, model.TypeVulnerability, issues[1].Type, "type breaks severity ties")
	assert.Equal(t, "a.go", issues[2].File, "file breaks type ties")
	assert.Equal(t, 1, issues[2].Line)
	assert.Equal(t, 50, issues[3].Line, "line breaks file ties")
	assert.Equal(t, model.TypeCodeSmell, issues[4].Type)
}

func TestGetStatistics(t *testing.T) {
	svc := newTestService()
	result := &model.MergedAnalysisResult{
		FileAnalyses: []model.FileAnalysis{
			{File: "a.go", Issues: []model.CodeIssue{
				{Severity: model.SeverityHigh, Type: model.TypeBug, Source: model.SourceSonarQube},
				{Severity: model.SeverityLow, Type: model.TypeCodeSmell, Source: model.SourceAI},
			}},
			{File: "b.go", Issues: []model.CodeIssue{
				{Severity: model.SeverityHigh, Type: model.TypeBug, Source: model.SourceAI},
			}},
		},
		Impact: model.ImpactAnalysis{RiskLevel: model.RiskMedium, QualityScore: 78},
	}

	stats := svc.GetStatistics(result)
	require.Equal(t, 3, stats.TotalIssues)
	assert.Equal(t, 2, stats.FilesAnalyzed)
	assert.Equal(t, 2, stats.BySeverity[model.SeverityHigh])
	assert.Equal(t, 2, stats.ByType[model.TypeBug])
	assert.Equal(t, 2, stats.BySource[model.SourceAI])
	assert.Equal(t, 78, stats.QualityScore)
	assert.Equal(t, model.RiskMedium, stats.RiskLevel)
}
