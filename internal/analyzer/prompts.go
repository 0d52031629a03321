package analyzer

import (
	"fmt"
	"strings"

	"github.com/sprite-ai/revisor/internal/diff"
)

var dimensionInstructions = map[Dimension]string{
	DimensionQuality: "Review the following changes for code quality problems: " +
		"readability, duplication, error handling, dead code, and maintainability. " +
		"Score each file's quality from 0 (unmaintainable) to 100 (excellent).",
	DimensionSecurity: "Review the following changes for security problems: " +
		"injection, unsafe deserialization, secrets in code, missing validation, " +
		"authentication and authorization gaps.",
	DimensionArchitecture: "Review the following changes for architectural problems: " +
		"layering violations, circular dependencies, leaky abstractions, and " +
		"responsibilities in the wrong module.",
	DimensionImpact: "Assess the blast radius of the following changes: which modules " +
		"are affected, what could break for callers, what should be tested before " +
		"release, and what the deployment risks are.",
}

const responseSchema = `Respond with a single JSON object of this exact shape:
{
  "fileAnalyses": [
    {
      "file": "path/to/file",
      "summary": "one sentence",
      "qualityScore": 0-100,
      "issues": [
        {
          "severity": "critical|high|medium|low|info",
          "type": "bug|vulnerability|code-smell|security-hotspot|breaking-change|performance|architecture|testing",
          "line": 0,
          "message": "short finding",
          "description": "optional detail",
          "suggestion": "optional fix"
        }
      ]
    }
  ],
  "impact": {
    "riskLevel": "low|medium|high|critical",
    "affectedModules": [],
    "breakingChanges": [],
    "testingRecommendations": [],
    "deploymentRisks": [],
    "qualityScore": 0-100
  }
}
Use line 0 for file-level issues. Omit "impact" unless you assessed it.`

// buildPrompt renders one dimension-specific prompt for a batch of
// parsed file changes.
func buildPrompt(dim Dimension, items []diff.ParsedFileChange) string {
	var b strings.Builder
	b.WriteString(dimensionInstructions[dim])
	b.WriteString("\n\n")
	b.WriteString(responseSchema)
	b.WriteString("\n\nChanged files:\n")

	for _, item := range items {
		fmt.Fprintf(&b, "\n--- %s (%s, +%d -%d) ---\n",
			item.File, item.ChangeType, item.Additions, item.Deletions)
		if item.DiffText == "" {
			b.WriteString("(no textual diff; metadata-only change)\n")
			continue
		}
		b.WriteString(item.DiffText)
		if !strings.HasSuffix(item.DiffText, "\n") {
			b.WriteString("\n")
		}
	}
	return b.String()
}
