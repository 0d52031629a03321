package model

import (
	"testing"
)

func TestSeverityRank(t *testing.T) {
	ordered := []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Rank() >= ordered[i].Rank() {
			t.Errorf("%s should rank before %s", ordered[i-1], ordered[i])
		}
	}
	if Severity("bogus").Rank() <= SeverityInfo.Rank() {
		t.Error("unknown severity should rank last")
	}
}

func TestTypeRank(t *testing.T) {
	if TypeVulnerability.Rank() >= TypeBug.Rank() {
		t.Error("vulnerability should rank before bug")
	}
	if TypeCodeSmell.Rank() >= TypeTesting.Rank() {
		t.Error("code smell should rank before testing")
	}
	if IssueType("bogus").Rank() <= TypeTesting.Rank() {
		t.Error("unknown type should rank last")
	}
}

func TestMaxRisk(t *testing.T) {
	tests := []struct {
		a, b, want RiskLevel
	}{
		{RiskLow, RiskLow, RiskLow},
		{RiskLow, RiskHigh, RiskHigh},
		{RiskCritical, RiskMedium, RiskCritical},
		{RiskMedium, RiskCritical, RiskCritical},
	}
	for _, tt := range tests {
		if got := MaxRisk(tt.a, tt.b); got != tt.want {
			t.Errorf("MaxRisk(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestTotalIssues(t *testing.T) {
	result := &MergedAnalysisResult{
		FileAnalyses: []FileAnalysis{
			{File: "a.go", Issues: []CodeIssue{{Message: "x"}, {Message: "y"}}},
			{File: "b.go", Issues: []CodeIssue{}},
			{File: "c.go", Issues: []CodeIssue{{Message: "z"}}},
		},
	}
	if got := result.TotalIssues(); got != 3 {
		t.Errorf("TotalIssues() = %d, want 3", got)
	}
}
