// Package orchestrator decides which analysis providers drive a run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sprite-ai/revisor/internal/sonar"
)

// Mode is the set of providers active for a run.
type Mode string

const (
	ModeUndetected Mode = ""
	ModeHybrid     Mode = "hybrid"
	ModeAIOnly     Mode = "ai-only"
	ModeSonarOnly  Mode = "sonarqube-only"
)

// ErrNoProvider means neither static analysis nor AI is usable. Fatal:
// there is nothing to orchestrate.
var ErrNoProvider = errors.New("no analysis provider available")

// Orchestrator probes provider availability and derives the operating
// mode. It starts undetected; DetectMode is the only transition and may
// be called repeatedly, re-probing each time.
type Orchestrator struct {
	sonarSvc    sonar.Service // nil when no server is configured
	aiAvailable bool
	log         *slog.Logger

	mode           Mode
	sonarAvailable bool
	sonarVersion   string
	sonarLatency   time.Duration
	notes          []string
}

// New creates an Orchestrator. sonarSvc may be nil.
func New(sonarSvc sonar.Service, aiAvailable bool, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{sonarSvc: sonarSvc, aiAvailable: aiAvailable, log: log}
}

// DetectMode probes the static-analysis server (when configured) and
// applies the decision table. Returns ErrNoProvider when neither
// provider is usable. Probe notes accumulate across detections so
// GetSummary keeps the full diagnostic history.
func (o *Orchestrator) DetectMode(ctx context.Context) (Mode, error) {
	o.sonarAvailable = false
	o.sonarVersion = ""
	o.sonarLatency = 0

	if o.sonarSvc == nil {
		o.note("no SonarQube server configured")
	} else {
		res := o.sonarSvc.TestConnection(ctx)
		if res.Success {
			o.sonarAvailable = true
			o.sonarVersion = res.Version
			o.sonarLatency = res.ResponseTime
			o.note(fmt.Sprintf("SonarQube %s reachable at %s (%s)",
				res.Version, o.sonarSvc.ServerURL(), res.ResponseTime.Round(time.Millisecond)))
		} else {
			o.note(fmt.Sprintf("SonarQube unreachable: %s; falling back to AI-only analysis", res.Error))
		}
	}

	if o.aiAvailable {
		o.note("AI provider configured")
	} else {
		o.note("no AI provider configured")
	}

	switch {
	case o.sonarAvailable && o.aiAvailable:
		o.mode = ModeHybrid
	case o.sonarAvailable:
		o.mode = ModeSonarOnly
	case o.aiAvailable:
		o.mode = ModeAIOnly
	default:
		o.mode = ModeUndetected
		return ModeUndetected, fmt.Errorf("%w: SonarQube unreachable and no AI provider configured", ErrNoProvider)
	}

	o.log.Info("analysis mode detected", "mode", o.mode)
	return o.mode, nil
}

// Mode returns the last detected mode (ModeUndetected before DetectMode).
func (o *Orchestrator) Mode() Mode {
	return o.mode
}

// Summary is the diagnostic view of the last detection.
type Summary struct {
	Mode           Mode          `json:"mode"`
	SonarAvailable bool          `json:"sonarQubeAvailable"`
	SonarVersion   string        `json:"sonarQubeVersion,omitempty"`
	SonarLatency   time.Duration `json:"sonarQubeResponseTime,omitempty"`
	AIAvailable    bool          `json:"aiAvailable"`
	Notes          []string      `json:"notes,omitempty"`
}

// GetSummary returns the retained probe diagnostics; Notes spans every
// detection run so far.
func (o *Orchestrator) GetSummary() Summary {
	notes := make([]string, len(o.notes))
	copy(notes, o.notes)
	return Summary{
		Mode:           o.mode,
		SonarAvailable: o.sonarAvailable,
		SonarVersion:   o.sonarVersion,
		SonarLatency:   o.sonarLatency,
		AIAvailable:    o.aiAvailable,
		Notes:          notes,
	}
}

func (o *Orchestrator) note(msg string) {
	o.notes = append(o.notes, msg)
	o.log.Debug(msg)
}
