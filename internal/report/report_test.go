package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sprite-ai/revisor/internal/diff"
	"github.com/sprite-ai/revisor/internal/merge"
	"github.com/sprite-ai/revisor/internal/model"
)

func sampleResult() *model.MergedAnalysisResult {
	return &model.MergedAnalysisResult{
		RunID:      "run-1",
		ChangeType: "working-directory",
		Summary:    "2 file(s) changed, +12 -3",
		FileAnalyses: []model.FileAnalysis{
			{
				File:       "internal/auth/token.go",
				ChangeType: model.ChangeModified,
				Summary:    "Reworks token validation",
				Issues: []model.CodeIssue{
					{
						Source: model.SourceSonarQube, Severity: model.SeverityCritical,
						Type: model.TypeVulnerability, File: "internal/auth/token.go", Line: 42,
						Message:    "Hardcoded secret in comparison",
						Suggestion: "Load the secret from the environment",
					},
					{
						Source: model.SourceAI, Severity: model.SeverityLow,
						Type: model.TypeCodeSmell, File: "internal/auth/token.go",
						Message: "Function exceeds 80 lines",
					},
				},
			},
			{File: "README.md", ChangeType: model.ChangeModified, Issues: []model.CodeIssue{}},
		},
		Impact: model.ImpactAnalysis{
			RiskLevel:       model.RiskCritical,
			QualityScore:    63,
			BreakingChanges: []string{"token format changed"},
		},
		Deduplication: &model.DeduplicationInfo{TotalIssues: 3, DuplicatesRemoved: 1, UniqueIssues: 2},
	}
}

func sampleStats(result *model.MergedAnalysisResult) merge.Statistics {
	return merge.New(merge.DefaultConfig(), nil).GetStatistics(result)
}

func TestRenderText(t *testing.T) {
	result := sampleResult()
	out := RenderText(result, sampleStats(result), Options{})

	for _, want := range []string{
		"internal/auth/token.go",
		"Hardcoded secret in comparison",
		"internal/auth/token.go:42",
		"suggestion: Load the secret from the environment",
		"63/100",
		"1 duplicates removed",
		"token format changed",
	} {
		assert.Contains(t, out, want)
	}
	// whole-file issue renders without a line suffix
	assert.NotContains(t, out, "token.go:0")
}

func TestRenderTextPerFileStats(t *testing.T) {
	result := sampleResult()
	out := RenderText(result, sampleStats(result), Options{
		Changes: []diff.ParsedFileChange{
			{File: "internal/auth/token.go", Additions: 12, Deletions: 3},
		},
	})
	assert.Contains(t, out, "+12 -3")
}

func TestRenderMarkdown(t *testing.T) {
	result := sampleResult()
	out := RenderMarkdown(result, sampleStats(result))

	assert.True(t, strings.HasPrefix(out, "## Analysis Report"))
	assert.Contains(t, out, "| Severity | Type | Source | Location | Message |")
	assert.Contains(t, out, "`internal/auth/token.go:42`")
	assert.Contains(t, out, "**Risk:** critical")
	assert.Contains(t, out, "### Impact")
}

func TestRenderMarkdownNoIssues(t *testing.T) {
	result := &model.MergedAnalysisResult{
		Summary: "1 file(s) changed, +1 -0",
		Impact:  model.ImpactAnalysis{RiskLevel: model.RiskLow, QualityScore: 100},
	}
	out := RenderMarkdown(result, sampleStats(result))
	assert.Contains(t, out, "No issues found.")
	assert.NotContains(t, out, "| Severity |")
}

func TestEscapePipes(t *testing.T) {
	assert.Equal(t, "a \\| b", escapePipes("a | b"))
}

func TestIndent(t *testing.T) {
	got := indent("one\n\ntwo\n", "  ")
	assert.Equal(t, "  one\n\n  two\n", got)
}
