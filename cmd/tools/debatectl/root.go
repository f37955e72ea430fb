package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/agora/backend/internal/analysis/timeline"
	"github.com/zhouzirui/agora/backend/internal/analysis/vote"
	"github.com/zhouzirui/agora/backend/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "debatectl",
	Short: "Follow live debates and replay finished ones from the terminal",
	Long: `debatectl talks to the debate API directly.

watch   follows a live debate, printing each event and the running tally
replay  fetches a finished debate and plays it back at a fixed pace`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

var (
	baseURL   string  // overrides DEBATE_API_BASE_URL
	threshold float64 // overrides DEBATE_VOTE_THRESHOLD

	cliConfig *config.Config
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "debate API base URL (default from DEBATE_API_BASE_URL)")
	rootCmd.PersistentFlags().Float64Var(&threshold, "threshold", 0, "aye threshold for score verdicts (default from DEBATE_VOTE_THRESHOLD)")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if baseURL != "" {
		cfg.Debate.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Debate.VoteThreshold = threshold
	}
	cliConfig = cfg
	return nil
}

func formatEntry(e timeline.Entry) string {
	switch e.Layout {
	case timeline.LayoutSeat, timeline.LayoutScribe:
		speaker := e.Speaker
		if e.Stance != "" {
			speaker = fmt.Sprintf("%s (%s)", speaker, e.Stance)
		}
		return fmt.Sprintf("#%d [R%d] %s: %s", e.Index, e.Round, speaker, e.Text)
	case timeline.LayoutVerdict:
		if e.Speaker == "" {
			return fmt.Sprintf("#%d verdict: %s", e.Index, e.Text)
		}
		return fmt.Sprintf("#%d verdict by %s: %s", e.Index, e.Speaker, e.Text)
	case timeline.LayoutNotice:
		if e.Speaker == "" {
			return fmt.Sprintf("#%d notice: %s", e.Index, e.Text)
		}
		return fmt.Sprintf("#%d notice [%s]: %s", e.Index, e.Speaker, e.Text)
	default:
		return fmt.Sprintf("#%d %s", e.Index, e.Text)
	}
}

func printTally(w io.Writer, result vote.Result) {
	fmt.Fprintf(w, "tally [%s] aye=%d nay=%d", result.Basis, result.Stats.Aye, result.Stats.Nay)
	if result.Basis == vote.BasisThreshold {
		fmt.Fprintf(w, " threshold=%g", result.Stats.Threshold)
	}
	fmt.Fprintln(w)
	for _, s := range result.Standings {
		fmt.Fprintf(w, "  %-20s %d aye / %d nay\n", s.Persona, s.Aye, s.Nay)
	}
}
