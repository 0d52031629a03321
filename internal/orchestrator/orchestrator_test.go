package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprite-ai/revisor/internal/sonar"
)

type fakeSonar struct {
	connection sonar.ConnectionResult
}

func (f *fakeSonar) TestConnection(ctx context.Context) sonar.ConnectionResult {
	return f.connection
}

func (f *fakeSonar) ExecuteScan(ctx context.Context, workingDir string) sonar.ScanResult {
	return sonar.ScanResult{}
}

func (f *fakeSonar) WaitForAnalysis(ctx context.Context, taskID string, timeout time.Duration) (bool, error) {
	return true, nil
}

func (f *fakeSonar) GetAnalysisResult(ctx context.Context) (*sonar.AnalysisResult, error) {
	return &sonar.AnalysisResult{}, nil
}

func (f *fakeSonar) ServerURL() string  { return "http://sonar.test:9000" }
func (f *fakeSonar) ProjectKey() string { return "proj" }

func reachable() *fakeSonar {
	return &fakeSonar{connection: sonar.ConnectionResult{
		Success: true, Version: "10.4", ResponseTime: 12 * time.Millisecond,
	}}
}

func unreachable() *fakeSonar {
	return &fakeSonar{connection: sonar.ConnectionResult{
		Success: false, Error: "connection refused",
	}}
}

func TestDetectModeHybrid(t *testing.T) {
	o := New(reachable(), true, nil)

	mode, err := o.DetectMode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeHybrid, mode)
	assert.Equal(t, ModeHybrid, o.Mode())

	summary := o.GetSummary()
	assert.True(t, summary.SonarAvailable)
	assert.True(t, summary.AIAvailable)
	assert.Equal(t, "10.4", summary.SonarVersion)
	assert.NotEmpty(t, summary.Notes)
}

func TestDetectModeAIOnly(t *testing.T) {
	t.Run("no server configured", func(t *testing.T) {
		o := New(nil, true, nil)
		mode, err := o.DetectMode(context.Background())
		require.NoError(t, err)
		assert.Equal(t, ModeAIOnly, mode)
	})

	t.Run("server unreachable", func(t *testing.T) {
		o := New(unreachable(), true, nil)
		mode, err := o.DetectMode(context.Background())
		require.NoError(t, err)
		assert.Equal(t, ModeAIOnly, mode)
		assert.False(t, o.GetSummary().SonarAvailable)
	})
}

func TestDetectModeSonarOnly(t *testing.T) {
	o := New(reachable(), false, nil)

	mode, err := o.DetectMode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeSonarOnly, mode)
}

func TestDetectModeNoProvider(t *testing.T) {
	o := New(unreachable(), false, nil)

	mode, err := o.DetectMode(context.Background())
	assert.ErrorIs(t, err, ErrNoProvider)
	assert.Equal(t, ModeUndetected, mode)
	assert.Equal(t, ModeUndetected, o.Mode())
}

func TestDetectModeReprobes(t *testing.T) {
	svc := unreachable()
	o := New(svc, true, nil)

	mode, err := o.DetectMode(context.Background())
	require.NoError(t, err)
	require.Equal(t, ModeAIOnly, mode)
	firstNotes := len(o.GetSummary().Notes)

	// server comes back up between runs
	svc.connection = sonar.ConnectionResult{Success: true, Version: "10.4"}
	mode, err = o.DetectMode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ModeHybrid, mode)

	notes := o.GetSummary().Notes
	assert.Greater(t, len(notes), firstNotes, "notes accumulate across probes")
	joined := strings.Join(notes, "\n")
	assert.Contains(t, joined, "unreachable", "first probe's diagnostics are retained")
	assert.Contains(t, joined, "reachable at", "second probe's diagnostics are present")
}

func TestModeBeforeDetection(t *testing.T) {
	o := New(nil, true, nil)
	assert.Equal(t, ModeUndetected, o.Mode())
}
