// Package sonar is the static-analysis collaborator: a client for a
// SonarQube server plus the scanner CLI that feeds it.
package sonar

import (
	"context"
	"errors"
	"time"
)

// ErrScanFailed reports a failed scanner execution.
var ErrScanFailed = errors.New("sonarqube scan failed")

// ErrAnalysisTimeout reports that the server-side task did not finish in
// time. Fatal for the run: a still-running task cannot be queried for
// final results.
var ErrAnalysisTimeout = errors.New("sonarqube analysis timed out")

// Issue is one finding from the server.
type Issue struct {
	Key       string   `json:"key"`
	Rule      string   `json:"rule"`
	Severity  string   `json:"severity"`
	Component string   `json:"component"`
	Line      int      `json:"line"`
	Message   string   `json:"message"`
	Type      string   `json:"type"`
	Effort    string   `json:"effort"`
	Tags      []string `json:"tags,omitempty"`
}

// Metrics are the project-level measures relevant to scoring.
type Metrics struct {
	Bugs            int     `json:"bugs"`
	Vulnerabilities int     `json:"vulnerabilities"`
	CodeSmells      int     `json:"codeSmells"`
	Coverage        float64 `json:"coverage"`
	Duplications    float64 `json:"duplications"`
}

// QualityGate is the server's pass/fail verdict.
type QualityGate struct {
	Status string `json:"status"`
}

// AnalysisResult is everything fetched after a completed scan.
type AnalysisResult struct {
	Issues      []Issue     `json:"issues"`
	Metrics     Metrics     `json:"metrics"`
	QualityGate QualityGate `json:"qualityGate"`
}

// ConnectionResult is the outcome of a connectivity probe.
type ConnectionResult struct {
	Success      bool          `json:"success"`
	Version      string        `json:"version,omitempty"`
	ResponseTime time.Duration `json:"responseTime"`
	Error        string        `json:"error,omitempty"`
}

// ScanResult is the outcome of a scanner execution.
type ScanResult struct {
	Success       bool          `json:"success"`
	TaskID        string        `json:"taskId,omitempty"`
	DashboardURL  string        `json:"dashboardUrl,omitempty"`
	ExecutionTime time.Duration `json:"executionTime"`
	Error         string        `json:"error,omitempty"`
}

// Service is the capability surface the pipeline consumes. *Client is
// the production implementation; tests substitute fakes.
type Service interface {
	TestConnection(ctx context.Context) ConnectionResult
	ExecuteScan(ctx context.Context, workingDir string) ScanResult
	WaitForAnalysis(ctx context.Context, taskID string, timeout time.Duration) (bool, error)
	GetAnalysisResult(ctx context.Context) (*AnalysisResult, error)
	ServerURL() string
	ProjectKey() string
}
