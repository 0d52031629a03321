package analyzer

import (
	"github.com/sprite-ai/revisor/internal/model"
)

// batchAnalysis is the unit of combination: the per-file analyses from
// one batch (or one whole dimension once combined) plus any impact data
// the model reported.
type batchAnalysis struct {
	Files     []model.FileAnalysis `json:"files"`
	Impact    model.ImpactAnalysis `json:"impact"`
	HasImpact bool                 `json:"hasImpact"`
}

// combineBatches folds the settled batch results of one dimension.
// File analyses concatenate; impact lists union; risk is the maximum
// seen; the quality score is the floored average of reporting batches,
// defaulting when none reported.
func combineBatches(results []batchAnalysis) batchAnalysis {
	out := batchAnalysis{Impact: model.ImpactAnalysis{RiskLevel: model.RiskLow}}

	scoreSum, scoreCount := 0, 0
	for _, r := range results {
		out.Files = append(out.Files, r.Files...)
		if !r.HasImpact {
			continue
		}
		out.HasImpact = true
		out.Impact.RiskLevel = model.MaxRisk(out.Impact.RiskLevel, r.Impact.RiskLevel)
		out.Impact.AffectedModules = unionStrings(out.Impact.AffectedModules, r.Impact.AffectedModules)
		out.Impact.BreakingChanges = unionStrings(out.Impact.BreakingChanges, r.Impact.BreakingChanges)
		out.Impact.TestingRecommendations = unionStrings(out.Impact.TestingRecommendations, r.Impact.TestingRecommendations)
		out.Impact.DeploymentRisks = unionStrings(out.Impact.DeploymentRisks, r.Impact.DeploymentRisks)
		scoreSum += r.Impact.QualityScore
		scoreCount++
	}

	if scoreCount > 0 {
		out.Impact.QualityScore = scoreSum / scoreCount
	} else {
		out.Impact.QualityScore = DefaultQualityScore
	}
	return out
}

// combineDimensions merges dimension results in run order into the final
// AI analysis. Issues for a file accumulate across dimensions; when two
// dimensions both scored a file, the merged score is the floored average.
func combineDimensions(dims []batchAnalysis) model.AIAnalysisResult {
	result := model.AIAnalysisResult{
		FileAnalyses: []model.FileAnalysis{},
		Impact: model.ImpactAnalysis{
			RiskLevel:    model.RiskLow,
			QualityScore: DefaultQualityScore,
		},
	}

	index := make(map[string]int)
	for _, dim := range dims {
		for _, fa := range dim.Files {
			at, ok := index[fa.File]
			if !ok {
				index[fa.File] = len(result.FileAnalyses)
				if fa.Issues == nil {
					fa.Issues = []model.CodeIssue{}
				}
				result.FileAnalyses = append(result.FileAnalyses, fa)
				continue
			}
			existing := &result.FileAnalyses[at]
			existing.Issues = append(existing.Issues, fa.Issues...)
			switch {
			case existing.QualityScore > 0 && fa.QualityScore > 0:
				existing.QualityScore = (existing.QualityScore + fa.QualityScore) / 2
			case fa.QualityScore > 0:
				existing.QualityScore = fa.QualityScore
			}
			if existing.Summary == "" || existing.Summary == "Analysis unavailable" {
				existing.Summary = fa.Summary
			}
		}
	}

	// Impact data: union across dimensions, the impact dimension being
	// the usual (and last) contributor.
	reported := false
	scoreSum, scoreCount := 0, 0
	for _, dim := range dims {
		if !dim.HasImpact {
			continue
		}
		reported = true
		result.Impact.RiskLevel = model.MaxRisk(result.Impact.RiskLevel, dim.Impact.RiskLevel)
		result.Impact.AffectedModules = unionStrings(result.Impact.AffectedModules, dim.Impact.AffectedModules)
		result.Impact.BreakingChanges = unionStrings(result.Impact.BreakingChanges, dim.Impact.BreakingChanges)
		result.Impact.TestingRecommendations = unionStrings(result.Impact.TestingRecommendations, dim.Impact.TestingRecommendations)
		result.Impact.DeploymentRisks = unionStrings(result.Impact.DeploymentRisks, dim.Impact.DeploymentRisks)
		scoreSum += dim.Impact.QualityScore
		scoreCount++
	}
	if reported {
		result.Impact.QualityScore = scoreSum / scoreCount
	}
	return result
}

// unionStrings appends the values of add not already in base, keeping
// first-seen order.
func unionStrings(base, add []string) []string {
	seen := make(map[string]bool, len(base))
	for _, s := range base {
		seen[s] = true
	}
	for _, s := range add {
		if !seen[s] {
			seen[s] = true
			base = append(base, s)
		}
	}
	return base
}
