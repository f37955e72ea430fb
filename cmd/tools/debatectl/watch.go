package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/agora/backend/internal/analysis/timeline"
	"github.com/zhouzirui/agora/backend/internal/analysis/vote"
	"github.com/zhouzirui/agora/backend/internal/config"
	"github.com/zhouzirui/agora/backend/internal/model/debate"
	"github.com/zhouzirui/agora/backend/internal/service/session"
	"github.com/zhouzirui/agora/backend/internal/service/transport"
	"github.com/zhouzirui/agora/backend/internal/source"
)

var watchCmd = &cobra.Command{
	Use:   "watch <debate-id>",
	Short: "Follow a live debate",
	Long: `Open the live feed of a debate and print every event as it arrives.

The running tally is printed after each verdict and once more when the feed
ends. The command exits non-zero if the feed fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchTransport string // sse or ws
	watchJSON      bool   // raw events as JSON lines
)

func init() {
	watchCmd.Flags().StringVar(&watchTransport, "transport", "", "live transport: sse or ws (default from DEBATE_TRANSPORT)")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "print raw events as JSON lines")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	debateID := args[0]
	out := cmd.OutOrStdout()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mode := cliConfig.Debate.Transport
	if watchTransport != "" {
		mode = config.Transport(watchTransport)
	}
	var subscriber transport.Subscriber
	switch mode {
	case config.TransportSSE:
		subscriber = source.NewSSESubscriber(cliConfig.Debate.BaseURL, nil)
	case config.TransportWebSocket:
		subscriber = source.NewWebSocketSubscriber(cliConfig.Debate.BaseURL)
	default:
		return fmt.Errorf("%w: %q", config.ErrInvalidTransport, mode)
	}

	store := session.NewStore()
	changed := make(chan struct{}, 1)
	unsubscribe := store.Subscribe(func(debate.SessionState) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	tracker := transport.NewTracker(store, subscriber)
	defer tracker.Close()

	store.SetActiveDebate(&debateID)
	if err := tracker.Open(ctx, debateID); err != nil {
		return err
	}

	aggregator := vote.NewAggregator(cliConfig.Debate.VoteThreshold)
	printed := 0

	for {
		select {
		case <-ctx.Done():
			printTally(out, aggregator.Tally(store.Events(), nil))
			return nil
		case <-changed:
		}

		state := store.Snapshot()
		for ; printed < len(state.Events); printed++ {
			event := state.Events[printed]
			if round := roundOf(event); round > state.CurrentRound {
				store.SetRound(round)
			}

			if watchJSON {
				line, err := json.Marshal(event)
				if err != nil {
					return fmt.Errorf("encode event: %w", err)
				}
				fmt.Fprintln(out, string(line))
				continue
			}

			entry := timeline.Describe(event)
			entry.Index = printed
			fmt.Fprintln(out, formatEntry(entry))
			if entry.Layout == timeline.LayoutVerdict {
				printTally(out, aggregator.Tally(state.Events[:printed+1], nil))
			}
		}

		switch state.ConnectionStatus {
		case debate.StatusError:
			printTally(out, aggregator.Tally(state.Events, nil))
			return fmt.Errorf("live feed for %s failed", debateID)
		case debate.StatusClosed:
			return nil
		}
	}
}

func roundOf(event debate.Event) int {
	switch e := event.(type) {
	case debate.SeatMessage:
		return e.Round
	case debate.ConversationSummary:
		return e.Round
	default:
		return 0
	}
}
