package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/revisor/internal/api"
	"github.com/sprite-ai/revisor/internal/model"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve analysis results over HTTP",
	Long: `Serve exposes the latest merged analysis result, cache statistics,
provider diagnostics, and a diff-parsing endpoint over HTTP.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8750", "listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	// Mode detection failures are not fatal here: the server can still
	// report diagnostics and serve cached results.
	if _, err := s.orch.DetectMode(cmd.Context()); err != nil {
		s.log.Warn("no analysis provider available", "error", err)
	}

	addr, _ := cmd.Flags().GetString("addr")
	server := api.New(addr, api.Deps{
		Latest:     s.latestResult,
		CacheStats: s.cache.Stats,
		Mode:       s.orch.GetSummary,
	}, s.log)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// latestResult loads the most recent merged result from the cache, nil
// when no analysis has been stored.
func (s *session) latestResult() *model.MergedAnalysisResult {
	var result model.MergedAnalysisResult
	if !s.cache.Get(latestResultKey, &result) {
		return nil
	}
	return &result
}
