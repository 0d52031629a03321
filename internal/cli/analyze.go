package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/revisor/internal/analyzer"
	"github.com/sprite-ai/revisor/internal/cache"
	"github.com/sprite-ai/revisor/internal/model"
	"github.com/sprite-ai/revisor/internal/orchestrator"
	"github.com/sprite-ai/revisor/internal/report"
	"github.com/sprite-ai/revisor/internal/sonar"
)

// latestResultKey addresses the most recent merged result in the cache,
// where the serve command picks it up.
var latestResultKey = cache.GenerateKey("latest-result", "report")

var analyzeCmd = &cobra.Command{
	Use:   "analyze [base [compare]]",
	Short: "Analyze changes and produce a merged review report",
	Long: `Analyze uncommitted changes against HEAD, or compare two refs.

With no arguments the working directory is analyzed. With one argument
the current branch is compared against the given base ref. With two
arguments the second ref is compared against the first.

Exit codes: 0 no issues, 1 issues found, 2 critical issues found.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("format", "text", "output format: text, json, or markdown")
	analyzeCmd.Flags().Bool("show-diff", false, "include highlighted diffs in text output")
	analyzeCmd.Flags().Bool("no-quality", false, "skip the quality dimension")
	analyzeCmd.Flags().Bool("no-security", false, "skip the security dimension")
	analyzeCmd.Flags().Bool("architecture", false, "include the architecture dimension")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "text", "json", "markdown":
	default:
		return fmt.Errorf("unknown format %q (want text, json, or markdown)", format)
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.repoDir == "" {
		return fmt.Errorf("not inside a git repository")
	}

	ctx := cmd.Context()
	mode, err := s.orch.DetectMode(ctx)
	if err != nil {
		return err
	}

	opts := analyzer.Options{}
	opts.SkipQuality, _ = cmd.Flags().GetBool("no-quality")
	opts.SkipSecurity, _ = cmd.Flags().GetBool("no-security")
	opts.Architecture, _ = cmd.Flags().GetBool("architecture")

	var res *analyzer.Result
	switch len(args) {
	case 0:
		res, err = s.analyzer.AnalyzeWorkingDirectory(ctx, opts)
	case 1:
		res, err = s.analyzer.AnalyzeBranchComparison(ctx, args[0], "", opts)
	case 2:
		res, err = s.analyzer.AnalyzeBranchComparison(ctx, args[0], args[1], opts)
	}
	if err != nil {
		return err
	}

	var static *sonar.AnalysisResult
	if mode == orchestrator.ModeHybrid || mode == orchestrator.ModeSonarOnly {
		static, err = s.runSonar(ctx, res.Diff)
		if err != nil {
			return err
		}
	}

	merged := s.mergeSvc.Merge(&res.AI, static, res.Summary)
	merged.RunID = res.RunID
	merged.ChangeType = res.ChangeType
	merged.Duration = res.Duration
	s.cache.Set(latestResultKey, merged, map[string]string{"kind": "latest-result"})

	stats := s.mergeSvc.GetStatistics(merged)

	switch format {
	case "json":
		out, err := json.MarshalIndent(merged, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	case "markdown":
		fmt.Fprint(cmd.OutOrStdout(), report.RenderMarkdown(merged, stats))
	default:
		showDiff, _ := cmd.Flags().GetBool("show-diff")
		fmt.Fprint(cmd.OutOrStdout(), report.RenderText(merged, stats, report.Options{
			Verbose: showDiff,
			Changes: res.Changes,
		}))
	}

	if code := exitCode(merged); code != 0 {
		s.Close()
		os.Exit(code)
	}
	return nil
}

// runSonar executes the scan-wait-fetch sequence, consulting the cache
// first. Scan failure, wait timeout, and fetch errors are fatal for the
// run: partial static results would be misleading.
func (s *session) runSonar(ctx context.Context, rawDiff string) (*sonar.AnalysisResult, error) {
	key := cache.GenerateKey(rawDiff, "sonar")
	var cached sonar.AnalysisResult
	if s.cache.Get(key, &cached) {
		s.log.Debug("static analysis served from cache")
		return &cached, nil
	}

	scan := s.sonarSvc.ExecuteScan(ctx, s.repoDir)
	if !scan.Success {
		return nil, fmt.Errorf("%w: %s", sonar.ErrScanFailed, scan.Error)
	}

	timeout := time.Duration(s.cfg.Sonar.TimeoutSeconds) * time.Second
	ok, err := s.sonarSvc.WaitForAnalysis(ctx, scan.TaskID, timeout)
	if err != nil {
		return nil, fmt.Errorf("waiting for sonarqube analysis: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: task %s did not succeed", sonar.ErrScanFailed, scan.TaskID)
	}

	result, err := s.sonarSvc.GetAnalysisResult(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching sonarqube results: %w", err)
	}
	s.cache.Set(key, result, map[string]string{"kind": "sonar"})
	return result, nil
}

// exitCode maps the merged result to the process exit status.
func exitCode(result *model.MergedAnalysisResult) int {
	critical := false
	total := 0
	for _, fa := range result.FileAnalyses {
		for _, issue := range fa.Issues {
			total++
			if issue.Severity == model.SeverityCritical {
				critical = true
			}
		}
	}
	switch {
	case critical:
		return 2
	case total > 0:
		return 1
	default:
		return 0
	}
}
