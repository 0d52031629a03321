// Package analyzer drives the AI side of the pipeline: it turns a git
// change set into token-bounded batches, fans them out to the AI
// capability with bounded parallelism, and folds the partial results
// into one AI analysis result.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sprite-ai/revisor/internal/ai"
	"github.com/sprite-ai/revisor/internal/cache"
	"github.com/sprite-ai/revisor/internal/diff"
	"github.com/sprite-ai/revisor/internal/model"
	"github.com/sprite-ai/revisor/internal/token"
)

// DefaultQualityScore is reported when no batch produced impact data,
// and for files whose batch failed.
const DefaultQualityScore = 70

// Dimension is one analysis angle; each gets its own prompts and batches.
type Dimension string

const (
	DimensionQuality      Dimension = "quality"
	DimensionSecurity     Dimension = "security"
	DimensionArchitecture Dimension = "architecture"
	DimensionImpact       Dimension = "impact"
)

// Options selects which dimensions run. Impact always runs; quality and
// security run unless disabled; architecture is opt-in.
type Options struct {
	SkipQuality  bool
	SkipSecurity bool
	Architecture bool
}

// dimensions returns the run order. Impact is last so its defaults never
// overwrite issues already accumulated by earlier dimensions.
func (o Options) dimensions() []Dimension {
	var dims []Dimension
	if !o.SkipQuality {
		dims = append(dims, DimensionQuality)
	}
	if !o.SkipSecurity {
		dims = append(dims, DimensionSecurity)
	}
	if o.Architecture {
		dims = append(dims, DimensionArchitecture)
	}
	return append(dims, DimensionImpact)
}

// GitSource supplies change sets. *diff.Collector is the production
// implementation.
type GitSource interface {
	WorkingDirectory(ctx context.Context) (*model.GitChanges, error)
	BranchComparison(ctx context.Context, base, compare string) (*model.GitChanges, error)
}

// Result is the outcome of one AI-side analysis invocation. Diff keeps
// the raw diff text around so callers can derive cache keys from it.
type Result struct {
	RunID      string                  `json:"runId"`
	ChangeType string                  `json:"changeType"`
	Summary    string                  `json:"summary"`
	Changes    []diff.ParsedFileChange `json:"changes"`
	AI         model.AIAnalysisResult  `json:"ai"`
	Duration   time.Duration           `json:"duration"`
	Diff       string                  `json:"-"`
}

// ChangeAnalyzer coordinates parsing, batching, and AI dispatch.
type ChangeAnalyzer struct {
	git         GitSource
	ai          ai.Analyzer // nil when no provider is deployed
	counter     *token.Counter
	cache       *cache.Service
	maxParallel int
	log         *slog.Logger
}

// New creates a ChangeAnalyzer. aiCap may be nil: every batch then
// yields its default analysis without any calls. cacheSvc may be nil to
// disable caching.
func New(git GitSource, aiCap ai.Analyzer, counter *token.Counter, cacheSvc *cache.Service, maxParallel int, log *slog.Logger) *ChangeAnalyzer {
	if maxParallel <= 0 {
		maxParallel = 3
	}
	if cacheSvc == nil {
		cacheSvc = cache.New(nil, 0, false, nil)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &ChangeAnalyzer{
		git:         git,
		ai:          aiCap,
		counter:     counter,
		cache:       cacheSvc,
		maxParallel: maxParallel,
		log:         log,
	}
}

// AnalyzeWorkingDirectory analyzes uncommitted changes against HEAD.
func (a *ChangeAnalyzer) AnalyzeWorkingDirectory(ctx context.Context, opts Options) (*Result, error) {
	changes, err := a.git.WorkingDirectory(ctx)
	if err != nil {
		return nil, fmt.Errorf("collecting working directory changes: %w", err)
	}
	return a.analyze(ctx, changes, "working-directory", opts)
}

// AnalyzeBranchComparison analyzes compare (default: current HEAD)
// against base.
func (a *ChangeAnalyzer) AnalyzeBranchComparison(ctx context.Context, base, compare string, opts Options) (*Result, error) {
	changes, err := a.git.BranchComparison(ctx, base, compare)
	if err != nil {
		return nil, fmt.Errorf("collecting branch comparison changes: %w", err)
	}
	return a.analyze(ctx, changes, "branch-comparison", opts)
}

func (a *ChangeAnalyzer) analyze(ctx context.Context, changes *model.GitChanges, changeType string, opts Options) (*Result, error) {
	start := time.Now()
	result := &Result{
		RunID:      uuid.NewString(),
		ChangeType: changeType,
	}

	// No changes: return the empty low-risk default without touching
	// the AI capability at all.
	if changes == nil || len(changes.Files) == 0 {
		result.Summary = "No changes detected"
		result.AI = model.AIAnalysisResult{
			FileAnalyses: []model.FileAnalysis{},
			Impact: model.ImpactAnalysis{
				RiskLevel:    model.RiskLow,
				QualityScore: DefaultQualityScore,
			},
		}
		result.Duration = time.Since(start)
		return result, nil
	}

	result.Diff = changes.Diff

	parsed, err := diff.Parse(changes.Diff, changes.Files)
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}

	summary := diff.CreateSummary(parsed)
	result.Changes = parsed
	result.Summary = fmt.Sprintf("%d file(s) changed, +%d -%d",
		summary.TotalFiles, summary.TotalAdditions, summary.TotalDeletions)

	ordered := diff.SortByComplexity(parsed)
	batches := token.CreateBatches(a.counter, ordered, func(c diff.ParsedFileChange) string {
		return c.DiffText
	})

	var dims []batchAnalysis
	for _, dim := range opts.dimensions() {
		dims = append(dims, a.runDimension(ctx, dim, changes.Diff, batches))
	}

	result.AI = combineDimensions(dims)
	result.Duration = time.Since(start)
	return result, nil
}

// runDimension executes all batches for one dimension, consulting the
// cache first. Batches are dispatched in windows of maxParallel; window
// k+1 waits for window k to settle. A failed batch contributes its
// default analysis instead of aborting the dimension.
func (a *ChangeAnalyzer) runDimension(ctx context.Context, dim Dimension, rawDiff string, batches []token.Batch[diff.ParsedFileChange]) batchAnalysis {
	key := cache.GenerateKey(rawDiff, "ai:"+string(dim))
	var cached batchAnalysis
	if a.cache.Get(key, &cached) {
		a.log.Debug("dimension served from cache", "dimension", dim)
		return cached
	}

	results := make([]batchAnalysis, len(batches))
	for windowStart := 0; windowStart < len(batches); windowStart += a.maxParallel {
		windowEnd := min(windowStart+a.maxParallel, len(batches))

		var g errgroup.Group
		for i := windowStart; i < windowEnd; i++ {
			g.Go(func() error {
				results[i] = a.runBatch(ctx, dim, batches[i])
				return nil // batch failures are absorbed, never propagated
			})
		}
		_ = g.Wait()
	}

	combined := combineBatches(results)
	a.cache.Set(key, combined, map[string]string{"dimension": string(dim)})
	return combined
}

// runBatch produces the analysis for one batch. Any failure — missing
// capability, call error, unparseable response — degrades to the
// default empty-issue analysis for the batch's files.
func (a *ChangeAnalyzer) runBatch(ctx context.Context, dim Dimension, batch token.Batch[diff.ParsedFileChange]) batchAnalysis {
	if a.ai == nil {
		return defaultAnalysis(batch.Items)
	}

	prompt := buildPrompt(dim, batch.Items)
	raw, err := a.ai.Analyze(ctx, prompt)
	if err != nil {
		a.log.Warn("batch analysis failed",
			"dimension", dim, "batch", batch.Index, "files", len(batch.Items), "error", err)
		return defaultAnalysis(batch.Items)
	}

	parsed, err := parseResponse(raw, dim, batch.Items)
	if err != nil {
		a.log.Warn("batch response unparseable",
			"dimension", dim, "batch", batch.Index, "error", err)
		return defaultAnalysis(batch.Items)
	}
	return parsed
}

// defaultAnalysis is the fallback for a failed or skipped batch: one
// empty-issue FileAnalysis per file at the default quality score.
func defaultAnalysis(items []diff.ParsedFileChange) batchAnalysis {
	ba := batchAnalysis{}
	for _, item := range items {
		ba.Files = append(ba.Files, model.FileAnalysis{
			File:         item.File,
			ChangeType:   item.ChangeType,
			Issues:       []model.CodeIssue{},
			Summary:      "Analysis unavailable",
			LinesChanged: item.Complexity,
			QualityScore: DefaultQualityScore,
		})
	}
	return ba
}
