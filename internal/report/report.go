// Package report renders a merged analysis result for terminals and
// markdown consumers.
package report

import (
	"fmt"
	"strings"

	"github.com/sprite-ai/revisor/internal/diff"
	"github.com/sprite-ai/revisor/internal/merge"
	"github.com/sprite-ai/revisor/internal/model"
)

// Options controls rendering.
type Options struct {
	// Verbose includes each file's highlighted diff segment.
	Verbose bool
	// Changes supplies diff text for verbose rendering; keyed lookup is
	// done per file.
	Changes []diff.ParsedFileChange
}

// RenderText renders the terminal report.
func RenderText(result *model.MergedAnalysisResult, stats merge.Statistics, opts Options) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Analysis report") + dimStyle.Render("  ("+result.ChangeType+")") + "\n")
	b.WriteString(result.Summary + "\n")

	risk := riskStyles[result.Impact.RiskLevel].Render(string(result.Impact.RiskLevel))
	fmt.Fprintf(&b, "Risk: %s   Quality: %d/100   Issues: %d", risk, result.Impact.QualityScore, stats.TotalIssues)
	if n := stats.BySource[model.SourceSonarQube]; n > 0 {
		fmt.Fprintf(&b, " (%d sonarqube, %d ai)", n, stats.BySource[model.SourceAI])
	}
	b.WriteString("\n")
	if d := result.Deduplication; d != nil && d.DuplicatesRemoved > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("Deduplication: %d reported, %d duplicates removed", d.TotalIssues, d.DuplicatesRemoved)) + "\n")
	}
	b.WriteString("\n")

	diffByFile := make(map[string]string, len(opts.Changes))
	statByFile := make(map[string]string, len(opts.Changes))
	for _, c := range opts.Changes {
		diffByFile[c.File] = c.DiffText
		statByFile[c.File] = fmt.Sprintf("+%d -%d", c.Additions, c.Deletions)
	}

	for _, fa := range result.FileAnalyses {
		meta := string(fa.ChangeType)
		if stat, ok := statByFile[fa.File]; ok {
			meta += ", " + stat
		}
		fmt.Fprintf(&b, "  %s %s\n", fileStyle.Render(fa.File), dimStyle.Render("("+meta+")"))
		if fa.Summary != "" {
			b.WriteString("    " + dimStyle.Render(fa.Summary) + "\n")
		}
		for _, issue := range fa.Issues {
			loc := fa.File
			if issue.Line > 0 {
				loc = fmt.Sprintf("%s:%d", fa.File, issue.Line)
			}
			sev := severityStyles[issue.Severity].Render(string(issue.Severity))
			fmt.Fprintf(&b, "    %s [%s/%s] %s — %s %s\n",
				severityIcon(issue.Severity), sev, issue.Type, loc, issue.Message,
				sourceStyle.Render("("+string(issue.Source)+")"))
			if issue.Suggestion != "" {
				b.WriteString("       " + dimStyle.Render("suggestion: "+issue.Suggestion) + "\n")
			}
		}
		if opts.Verbose {
			if text := diffByFile[fa.File]; text != "" {
				b.WriteString(indent(highlightDiff(fa.File, text), "    "))
			}
		}
		b.WriteString("\n")
	}

	if impact := describeImpact(result.Impact); impact != "" {
		b.WriteString(headerStyle.Render("Impact") + "\n" + impact)
	}
	return b.String()
}

func describeImpact(impact model.ImpactAnalysis) string {
	var b strings.Builder
	writeList := func(label string, items []string) {
		if len(items) == 0 {
			return
		}
		b.WriteString("  " + label + ":\n")
		for _, item := range items {
			b.WriteString("    - " + item + "\n")
		}
	}
	writeList("Affected modules", impact.AffectedModules)
	writeList("Breaking changes", impact.BreakingChanges)
	writeList("Testing recommendations", impact.TestingRecommendations)
	writeList("Deployment risks", impact.DeploymentRisks)
	return b.String()
}

// RenderMarkdown renders the report as a markdown document.
func RenderMarkdown(result *model.MergedAnalysisResult, stats merge.Statistics) string {
	var b strings.Builder

	b.WriteString("## Analysis Report\n\n")
	fmt.Fprintf(&b, "%s\n\n", result.Summary)
	fmt.Fprintf(&b, "**Risk:** %s | **Quality:** %d/100 | **Issues:** %d\n\n",
		result.Impact.RiskLevel, result.Impact.QualityScore, stats.TotalIssues)
	if d := result.Deduplication; d != nil {
		fmt.Fprintf(&b, "_%d issues reported, %d duplicates removed_\n\n", d.TotalIssues, d.DuplicatesRemoved)
	}

	if stats.TotalIssues == 0 {
		b.WriteString("No issues found.\n")
		return b.String()
	}

	b.WriteString("| Severity | Type | Source | Location | Message |\n")
	b.WriteString("|----------|------|--------|----------|--------|\n")
	for _, fa := range result.FileAnalyses {
		for _, issue := range fa.Issues {
			loc := fa.File
			if issue.Line > 0 {
				loc = fmt.Sprintf("%s:%d", fa.File, issue.Line)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | `%s` | %s |\n",
				issue.Severity, issue.Type, issue.Source, loc, escapePipes(issue.Message))
		}
	}

	if impact := describeImpact(result.Impact); impact != "" {
		b.WriteString("\n### Impact\n\n" + impact)
	}
	return b.String()
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
