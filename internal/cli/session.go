package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/revisor/internal/ai"
	"github.com/sprite-ai/revisor/internal/analyzer"
	"github.com/sprite-ai/revisor/internal/cache"
	"github.com/sprite-ai/revisor/internal/config"
	"github.com/sprite-ai/revisor/internal/diff"
	"github.com/sprite-ai/revisor/internal/merge"
	"github.com/sprite-ai/revisor/internal/orchestrator"
	"github.com/sprite-ai/revisor/internal/sonar"
	"github.com/sprite-ai/revisor/internal/token"
)

// session owns the wired components and the logger for one command
// invocation. Close releases the cache backend; it is safe to call more
// than once, so commands that exit with a status code can close
// explicitly before os.Exit while keeping the deferred call.
type session struct {
	cfg       config.Config
	log       *slog.Logger
	repoDir   string
	cache     *cache.Service
	collector *diff.Collector
	analyzer  *analyzer.ChangeAnalyzer
	mergeSvc  *merge.Service
	orch      *orchestrator.Orchestrator
	sonarSvc  sonar.Service

	closeStore func() error
}

func newSession(cmd *cobra.Command) (*session, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, log: log}

	// Commands that only touch the cache or the API still work outside
	// a repository.
	if repoDir, err := diff.RepoRoot("."); err == nil {
		s.repoDir = repoDir
	}
	s.collector = diff.NewCollector(s.repoDir, 3)

	s.cache = buildCache(s, cfg.Cache, log)

	counter, err := tokenCounter(cfg, log)
	if err != nil {
		return nil, err
	}

	var aiCap ai.Analyzer
	if cfg.AI.Available() {
		client, err := ai.NewClient(ai.Options{
			APIKey:         cfg.AI.APIKey,
			Model:          cfg.AI.Model,
			BaseURL:        cfg.AI.BaseURL,
			MaxTokens:      cfg.AI.MaxTokens,
			Temperature:    float32(cfg.AI.Temperature),
			TimeoutSeconds: cfg.AI.TimeoutSeconds,
			MaxRetries:     cfg.AI.MaxRetries,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("configuring AI provider: %w", err)
		}
		aiCap = client
	}

	if cfg.Sonar.ServerURL != "" {
		s.sonarSvc = sonar.NewClient(cfg.Sonar.ServerURL, cfg.Sonar.Token, cfg.Sonar.ProjectKey, cfg.Sonar.ScannerBin, log)
	}

	s.analyzer = analyzer.New(s.collector, aiCap, counter, s.cache, cfg.Batching.MaxParallelRequests, log)
	s.mergeSvc = merge.New(merge.Config{
		Strategy:        merge.Strategy(cfg.Merge.Strategy),
		PreferSonarQube: cfg.Merge.PreferSonarQube,
		FuzzyThreshold:  cfg.Merge.FuzzyThreshold,
	}, log)
	s.orch = orchestrator.New(s.sonarSvc, aiCap != nil, log)

	return s, nil
}

func (s *session) Close() {
	if s.closeStore == nil {
		return
	}
	closeStore := s.closeStore
	s.closeStore = nil
	if err := closeStore(); err != nil {
		s.log.Debug("closing cache store failed", "error", err)
	}
}

func tokenCounter(cfg config.Config, log *slog.Logger) (*token.Counter, error) {
	counter, err := token.NewCounter(cfg.Batching.MaxTokensPerBatch, cfg.Batching.SafetyMargin, log)
	if err != nil {
		return nil, fmt.Errorf("configuring batching: %w", err)
	}
	return counter, nil
}

// buildCache opens the configured backend. Store failures degrade to a
// disabled cache; the analysis must proceed uncached.
func buildCache(s *session, cfg config.CacheConfig, log *slog.Logger) *cache.Service {
	if !cfg.Enabled {
		return cache.New(nil, 0, false, log)
	}

	dir := cfg.Dir
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			log.Warn("cannot determine cache directory, caching disabled", "error", err)
			return cache.New(nil, 0, false, log)
		}
		dir = filepath.Join(base, "revisor")
	}

	var store cache.Store
	var err error
	if cfg.Backend == "badger" {
		bs, berr := cache.NewBadgerStore(dir)
		if berr == nil {
			s.closeStore = bs.Close
			store = bs
		}
		err = berr
	} else {
		store, err = cache.NewFSStore(dir)
	}
	if err != nil {
		log.Warn("opening cache store failed, caching disabled", "dir", dir, "error", err)
		return cache.New(nil, 0, false, log)
	}
	return cache.New(store, cfg.TTLSeconds, true, log)
}
