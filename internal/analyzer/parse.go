package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sprite-ai/revisor/internal/diff"
	"github.com/sprite-ai/revisor/internal/model"
)

// rawResponse is the JSON shape requested from the model.
type rawResponse struct {
	FileAnalyses []rawFile  `json:"fileAnalyses"`
	Impact       *rawImpact `json:"impact"`
}

type rawFile struct {
	File         string     `json:"file"`
	Summary      string     `json:"summary"`
	QualityScore int        `json:"qualityScore"`
	Issues       []rawIssue `json:"issues"`
}

type rawIssue struct {
	Severity    string `json:"severity"`
	Type        string `json:"type"`
	Line        int    `json:"line"`
	Message     string `json:"message"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

type rawImpact struct {
	RiskLevel              string   `json:"riskLevel"`
	AffectedModules        []string `json:"affectedModules"`
	BreakingChanges        []string `json:"breakingChanges"`
	TestingRecommendations []string `json:"testingRecommendations"`
	DeploymentRisks        []string `json:"deploymentRisks"`
	QualityScore           int      `json:"qualityScore"`
}

// dimensionDefaultType labels issues whose type the model omitted or
// invented, per the dimension that asked for them.
var dimensionDefaultType = map[Dimension]model.IssueType{
	DimensionQuality:      model.TypeCodeSmell,
	DimensionSecurity:     model.TypeVulnerability,
	DimensionArchitecture: model.TypeArchitecture,
	DimensionImpact:       model.TypeBreakingChange,
}

var knownSeverities = map[model.Severity]bool{
	model.SeverityCritical: true,
	model.SeverityHigh:     true,
	model.SeverityMedium:   true,
	model.SeverityLow:      true,
	model.SeverityInfo:     true,
}

var knownTypes = map[model.IssueType]bool{
	model.TypeBug:             true,
	model.TypeVulnerability:   true,
	model.TypeCodeSmell:       true,
	model.TypeSecurityHotspot: true,
	model.TypeBreakingChange:  true,
	model.TypePerformance:     true,
	model.TypeArchitecture:    true,
	model.TypeTesting:         true,
}

var knownRisks = map[model.RiskLevel]bool{
	model.RiskLow:      true,
	model.RiskMedium:   true,
	model.RiskHigh:     true,
	model.RiskCritical: true,
}

// parseResponse decodes a model response into a batch analysis. Every
// file in the batch is guaranteed an entry; files the model mentioned
// beyond the batch are kept too. Malformed responses return an error so
// the caller can substitute the default analysis.
func parseResponse(raw string, dim Dimension, items []diff.ParsedFileChange) (batchAnalysis, error) {
	var resp rawResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &resp); err != nil {
		return batchAnalysis{}, fmt.Errorf("invalid JSON response: %w", err)
	}

	byPath := make(map[string]diff.ParsedFileChange, len(items))
	for _, item := range items {
		byPath[item.File] = item
	}

	ba := batchAnalysis{}
	covered := make(map[string]bool, len(resp.FileAnalyses))

	for _, rf := range resp.FileAnalyses {
		if rf.File == "" || covered[rf.File] {
			continue
		}
		covered[rf.File] = true

		fa := model.FileAnalysis{
			File:         rf.File,
			ChangeType:   model.ChangeModified,
			Issues:       []model.CodeIssue{},
			Summary:      rf.Summary,
			QualityScore: clampScore(rf.QualityScore),
		}
		if item, ok := byPath[rf.File]; ok {
			fa.ChangeType = item.ChangeType
			fa.LinesChanged = item.Complexity
		}
		for _, ri := range rf.Issues {
			if strings.TrimSpace(ri.Message) == "" {
				continue
			}
			fa.Issues = append(fa.Issues, model.CodeIssue{
				Source:      model.SourceAI,
				Severity:    parseSeverity(ri.Severity),
				Type:        parseType(ri.Type, dim),
				File:        rf.File,
				Line:        max(ri.Line, 0),
				Message:     ri.Message,
				Description: ri.Description,
				Suggestion:  ri.Suggestion,
			})
		}
		ba.Files = append(ba.Files, fa)
	}

	// Batch files the model skipped still get an entry.
	for _, item := range items {
		if covered[item.File] {
			continue
		}
		ba.Files = append(ba.Files, model.FileAnalysis{
			File:         item.File,
			ChangeType:   item.ChangeType,
			Issues:       []model.CodeIssue{},
			LinesChanged: item.Complexity,
			QualityScore: DefaultQualityScore,
		})
	}

	if resp.Impact != nil {
		ba.HasImpact = true
		ba.Impact = model.ImpactAnalysis{
			RiskLevel:              parseRisk(resp.Impact.RiskLevel),
			AffectedModules:        resp.Impact.AffectedModules,
			BreakingChanges:        resp.Impact.BreakingChanges,
			TestingRecommendations: resp.Impact.TestingRecommendations,
			DeploymentRisks:        resp.Impact.DeploymentRisks,
			QualityScore:           clampScore(resp.Impact.QualityScore),
		}
		if ba.Impact.QualityScore == 0 {
			ba.Impact.QualityScore = DefaultQualityScore
		}
	}

	return ba, nil
}

// stripFences removes a wrapping markdown code fence, which models emit
// despite instructions.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return content
	}
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.Join(lines[1:end], "\n")
}

func parseSeverity(s string) model.Severity {
	sev := model.Severity(strings.ToLower(strings.TrimSpace(s)))
	if knownSeverities[sev] {
		return sev
	}
	return model.SeverityMedium
}

func parseType(s string, dim Dimension) model.IssueType {
	t := model.IssueType(strings.ToLower(strings.TrimSpace(s)))
	if knownTypes[t] {
		return t
	}
	return dimensionDefaultType[dim]
}

func parseRisk(s string) model.RiskLevel {
	r := model.RiskLevel(strings.ToLower(strings.TrimSpace(s)))
	if knownRisks[r] {
		return r
	}
	return model.RiskLow
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
