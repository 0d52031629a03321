// Package model defines the core data types shared across revisor.
package model

import "time"

// IssueSource identifies which analyzer produced an issue.
type IssueSource string

const (
	SourceSonarQube IssueSource = "sonarqube"
	SourceAI        IssueSource = "ai"
)

// Severity of a single issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// severityRanks orders severities for sorting; lower rank sorts first.
var severityRanks = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
	SeverityInfo:     4,
}

// Rank returns the sort rank of a severity. Unknown severities rank last.
func (s Severity) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return len(severityRanks)
}

// IssueType categorizes an issue.
type IssueType string

const (
	TypeBug             IssueType = "bug"
	TypeVulnerability   IssueType = "vulnerability"
	TypeCodeSmell       IssueType = "code-smell"
	TypeSecurityHotspot IssueType = "security-hotspot"
	TypeBreakingChange  IssueType = "breaking-change"
	TypePerformance     IssueType = "performance"
	TypeArchitecture    IssueType = "architecture"
	TypeTesting         IssueType = "testing"
)

var typeRanks = map[IssueType]int{
	TypeVulnerability:   0,
	TypeBug:             1,
	TypeSecurityHotspot: 2,
	TypeBreakingChange:  3,
	TypePerformance:     4,
	TypeCodeSmell:       5,
	TypeArchitecture:    6,
	TypeTesting:         7,
}

// Rank returns the sort rank of an issue type. Unknown types rank last.
func (t IssueType) Rank() int {
	if r, ok := typeRanks[t]; ok {
		return r
	}
	return len(typeRanks)
}

// RiskLevel categorizes the overall risk of a change.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskRanks = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// Rank returns the escalation rank of a risk level (low=0 .. critical=3).
func (r RiskLevel) Rank() int {
	return riskRanks[r]
}

// MaxRisk returns the more severe of two risk levels.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// ChangeType describes how a file changed.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
	ChangeRenamed  ChangeType = "renamed"
)

// CodeIssue is a single finding from either analysis source.
// Line 0 means the issue applies to the whole file.
type CodeIssue struct {
	Source        IssueSource `json:"source"`
	Severity      Severity    `json:"severity"`
	Type          IssueType   `json:"type"`
	File          string      `json:"file"`
	Line          int         `json:"line"`
	Message       string      `json:"message"`
	Description   string      `json:"description,omitempty"`
	Suggestion    string      `json:"suggestion,omitempty"`
	Rule          string      `json:"rule,omitempty"`
	EffortMinutes int         `json:"effortMinutes,omitempty"`
	Tags          []string    `json:"tags,omitempty"`
	IssueKey      string      `json:"issueKey,omitempty"`
}

// FileAnalysis groups the issues for one changed file.
// QualityScore 0 means the analyzer did not report one.
type FileAnalysis struct {
	File         string      `json:"file"`
	ChangeType   ChangeType  `json:"changeType"`
	Issues       []CodeIssue `json:"issues"`
	Summary      string      `json:"summary,omitempty"`
	LinesChanged int         `json:"linesChanged"`
	QualityScore int         `json:"qualityScore,omitempty"`
}

// ImpactAnalysis is the aggregate view over a whole change set.
type ImpactAnalysis struct {
	RiskLevel              RiskLevel `json:"riskLevel"`
	AffectedModules        []string  `json:"affectedModules,omitempty"`
	BreakingChanges        []string  `json:"breakingChanges,omitempty"`
	TestingRecommendations []string  `json:"testingRecommendations,omitempty"`
	DeploymentRisks        []string  `json:"deploymentRisks,omitempty"`
	QualityScore           int       `json:"qualityScore"`
}

// AIAnalysisResult is the combined output of the AI analysis dimensions,
// before merging with static-analysis findings.
type AIAnalysisResult struct {
	FileAnalyses []FileAnalysis `json:"fileAnalyses"`
	Impact       ImpactAnalysis `json:"impactAnalysis"`
}

// DeduplicationInfo records what the merge step removed.
type DeduplicationInfo struct {
	TotalIssues       int `json:"totalIssues"`
	DuplicatesRemoved int `json:"duplicatesRemoved"`
	UniqueIssues      int `json:"uniqueIssues"`
}

// MergedAnalysisResult is the terminal artifact of an analysis run.
type MergedAnalysisResult struct {
	RunID         string             `json:"runId"`
	ChangeType    string             `json:"changeType"`
	Summary       string             `json:"summary"`
	FileAnalyses  []FileAnalysis     `json:"fileAnalyses"`
	Impact        ImpactAnalysis     `json:"impactAnalysis"`
	Deduplication *DeduplicationInfo `json:"deduplicationInfo,omitempty"`
	Timestamp     time.Time          `json:"timestamp"`
	Duration      time.Duration      `json:"duration"`
}

// TotalIssues counts issues across all file analyses.
func (m *MergedAnalysisResult) TotalIssues() int {
	n := 0
	for _, fa := range m.FileAnalyses {
		n += len(fa.Issues)
	}
	return n
}

// GitFile is one entry from the git collaborator's change listing.
type GitFile struct {
	Path         string `json:"path"`
	Status       string `json:"status"`
	LinesAdded   int    `json:"linesAdded"`
	LinesDeleted int    `json:"linesDeleted"`
}

// GitSummary aggregates a change set.
type GitSummary struct {
	FilesChanged int `json:"filesChanged"`
	Insertions   int `json:"insertions"`
	Deletions    int `json:"deletions"`
}

// GitChanges is the payload supplied by the git collaborator for one
// working-directory or branch-range comparison.
type GitChanges struct {
	Files   []GitFile  `json:"files"`
	Diff    string     `json:"diff"`
	Summary GitSummary `json:"summary"`
}
