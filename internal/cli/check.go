package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe analysis providers and report the operating mode",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	mode, detectErr := s.orch.DetectMode(cmd.Context())
	summary := s.orch.GetSummary()

	out := cmd.OutOrStdout()
	for _, note := range summary.Notes {
		fmt.Fprintf(out, "  - %s\n", note)
	}
	if summary.SonarAvailable {
		fmt.Fprintf(out, "SonarQube: %s (%s, %s)\n",
			s.sonarSvc.ServerURL(), summary.SonarVersion, summary.SonarLatency.Round(time.Millisecond))
	}
	if detectErr != nil {
		return detectErr
	}
	fmt.Fprintf(out, "Mode: %s\n", mode)
	return nil
}
