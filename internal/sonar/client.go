package sonar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// pollInterval is how often WaitForAnalysis re-checks the server task.
const pollInterval = 2 * time.Second

// Client talks to one SonarQube server for one project.
type Client struct {
	serverURL  string
	token      string
	projectKey string
	scannerBin string
	http       *http.Client
	log        *slog.Logger
}

// NewClient builds a Client. scannerBin defaults to "sonar-scanner".
func NewClient(serverURL, token, projectKey, scannerBin string, log *slog.Logger) *Client {
	if scannerBin == "" {
		scannerBin = "sonar-scanner"
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Client{
		serverURL:  strings.TrimRight(serverURL, "/"),
		token:      token,
		projectKey: projectKey,
		scannerBin: scannerBin,
		http:       &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// ServerURL returns the configured server address.
func (c *Client) ServerURL() string { return c.serverURL }

// ProjectKey returns the configured project key.
func (c *Client) ProjectKey() string { return c.projectKey }

// TestConnection probes /api/system/status and reports version and
// round-trip time. Never returns an error; failure is in the result.
func (c *Client) TestConnection(ctx context.Context) ConnectionResult {
	start := time.Now()
	var status struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := c.getJSON(ctx, "/api/system/status", nil, &status); err != nil {
		return ConnectionResult{
			ResponseTime: time.Since(start),
			Error:        err.Error(),
		}
	}
	res := ConnectionResult{
		Success:      status.Status == "UP",
		Version:      status.Version,
		ResponseTime: time.Since(start),
	}
	if !res.Success {
		res.Error = fmt.Sprintf("server status %q", status.Status)
	}
	return res
}

// ExecuteScan runs the scanner CLI in workingDir and extracts the
// compute-engine task ID from the scanner's report file.
func (c *Client) ExecuteScan(ctx context.Context, workingDir string) ScanResult {
	start := time.Now()

	args := []string{
		"-Dsonar.host.url=" + c.serverURL,
		"-Dsonar.projectKey=" + c.projectKey,
	}
	if c.token != "" {
		args = append(args, "-Dsonar.token="+c.token)
	}

	cmd := exec.CommandContext(ctx, c.scannerBin, args...)
	cmd.Dir = workingDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		c.log.Error("scanner execution failed", "error", err)
		return ScanResult{
			ExecutionTime: time.Since(start),
			Error:         fmt.Sprintf("%v: %s", err, tail(string(out), 400)),
		}
	}

	taskID, err := readTaskID(filepath.Join(workingDir, ".scannerwork", "report-task.txt"))
	if err != nil {
		return ScanResult{
			ExecutionTime: time.Since(start),
			Error:         err.Error(),
		}
	}

	return ScanResult{
		Success:       true,
		TaskID:        taskID,
		DashboardURL:  fmt.Sprintf("%s/dashboard?id=%s", c.serverURL, url.QueryEscape(c.projectKey)),
		ExecutionTime: time.Since(start),
	}
}

// WaitForAnalysis polls the compute-engine task every two seconds until
// it settles or timeout elapses. Repeated polls rather than a blocking
// wait keep cancellation responsive.
func (c *Client) WaitForAnalysis(ctx context.Context, taskID string, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		var task struct {
			Task struct {
				Status string `json:"status"`
			} `json:"task"`
		}
		err := c.getJSON(ctx, "/api/ce/task", url.Values{"id": {taskID}}, &task)
		if err == nil {
			switch task.Task.Status {
			case "SUCCESS":
				return true, nil
			case "FAILED", "CANCELED":
				return false, fmt.Errorf("%w: task %s status %s", ErrScanFailed, taskID, task.Task.Status)
			}
		} else {
			c.log.Debug("task poll failed", "taskId", taskID, "error", err)
		}

		if time.Now().After(deadline) {
			return false, fmt.Errorf("%w: task %s not complete after %s", ErrAnalysisTimeout, taskID, timeout)
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}
	}
}

// GetAnalysisResult fetches unresolved issues, project measures, and the
// quality gate status for the configured project.
func (c *Client) GetAnalysisResult(ctx context.Context) (*AnalysisResult, error) {
	result := &AnalysisResult{}

	var issues struct {
		Issues []struct {
			Key       string   `json:"key"`
			Rule      string   `json:"rule"`
			Severity  string   `json:"severity"`
			Component string   `json:"component"`
			Line      int      `json:"line"`
			Message   string   `json:"message"`
			Type      string   `json:"type"`
			Effort    string   `json:"effort"`
			Tags      []string `json:"tags"`
		} `json:"issues"`
	}
	err := c.getJSON(ctx, "/api/issues/search", url.Values{
		"componentKeys": {c.projectKey},
		"resolved":      {"false"},
		"ps":            {"500"},
	}, &issues)
	if err != nil {
		return nil, fmt.Errorf("fetching issues: %w", err)
	}
	for _, i := range issues.Issues {
		result.Issues = append(result.Issues, Issue(i))
	}

	var measures struct {
		Component struct {
			Measures []struct {
				Metric string `json:"metric"`
				Value  string `json:"value"`
			} `json:"measures"`
		} `json:"component"`
	}
	err = c.getJSON(ctx, "/api/measures/component", url.Values{
		"component":  {c.projectKey},
		"metricKeys": {"bugs,vulnerabilities,code_smells,coverage,duplicated_lines_density"},
	}, &measures)
	if err != nil {
		return nil, fmt.Errorf("fetching measures: %w", err)
	}
	for _, m := range measures.Component.Measures {
		switch m.Metric {
		case "bugs":
			result.Metrics.Bugs, _ = strconv.Atoi(m.Value)
		case "vulnerabilities":
			result.Metrics.Vulnerabilities, _ = strconv.Atoi(m.Value)
		case "code_smells":
			result.Metrics.CodeSmells, _ = strconv.Atoi(m.Value)
		case "coverage":
			result.Metrics.Coverage, _ = strconv.ParseFloat(m.Value, 64)
		case "duplicated_lines_density":
			result.Metrics.Duplications, _ = strconv.ParseFloat(m.Value, 64)
		}
	}

	var gate struct {
		ProjectStatus struct {
			Status string `json:"status"`
		} `json:"projectStatus"`
	}
	err = c.getJSON(ctx, "/api/qualitygates/project_status", url.Values{
		"projectKey": {c.projectKey},
	}, &gate)
	if err != nil {
		return nil, fmt.Errorf("fetching quality gate: %w", err)
	}
	result.QualityGate.Status = gate.ProjectStatus.Status

	return result, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	u := c.serverURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.SetBasicAuth(c.token, "")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// readTaskID extracts ceTaskId from the scanner's report-task.txt.
func readTaskID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", ErrScanFailed, path, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if id, ok := strings.CutPrefix(strings.TrimSpace(line), "ceTaskId="); ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: no ceTaskId in %s", ErrScanFailed, path)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
