package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/agora/backend/internal/analysis/timeline"
	"github.com/zhouzirui/agora/backend/internal/analysis/vote"
	"github.com/zhouzirui/agora/backend/internal/service/replay"
	"github.com/zhouzirui/agora/backend/internal/source"
)

var replayCmd = &cobra.Command{
	Use:   "replay <debate-id>",
	Short: "Play back a finished debate",
	Long: `Fetch the full event list of a finished debate and print it one event per
tick, with the tally as it stood after each verdict.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

var (
	replayTick  time.Duration // auto-advance interval
	replayFrom  int           // start index
	replayScrub bool          // start before the first event
)

func init() {
	replayCmd.Flags().DurationVar(&replayTick, "tick", 0, "auto-advance interval (default from REPLAY_TICK_MS)")
	replayCmd.Flags().IntVar(&replayFrom, "from", 0, "start at this event index")
	replayCmd.Flags().BoolVar(&replayScrub, "scrub", false, "start before the first event")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	debateID := args[0]
	out := cmd.OutOrStdout()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tick := cliConfig.Replay.Tick
	if replayTick > 0 {
		tick = replayTick
	}
	opts := []replay.Option{replay.WithPeriod(tick)}
	if replayScrub || cliConfig.Replay.ScrubFromStart {
		opts = append(opts, replay.WithScrubFromStart())
	}

	engine := replay.New(opts...)
	defer engine.Close()

	fetcher := source.NewHTTPFetcher(cliConfig.Debate.BaseURL, cliConfig.Debate.FetchTimeout)
	if err := engine.Load(ctx, fetcher, debateID); err != nil {
		return fmt.Errorf("load %s: %w", debateID, err)
	}

	events := engine.State().Events
	if len(events) == 0 {
		fmt.Fprintf(out, "debate %s has no events\n", debateID)
		return nil
	}

	states := make(chan replay.State, 1)
	remove := engine.OnChange(func(s replay.State) {
		select {
		case <-states:
		default:
		}
		states <- s
	})
	defer remove()

	if replayFrom != 0 {
		engine.SetIndex(replayFrom)
	}
	printed := max(engine.State().Index, 0) - 1
	aggregator := vote.NewAggregator(cliConfig.Debate.VoteThreshold)
	engine.Play()

	for {
		var state replay.State
		select {
		case <-ctx.Done():
			return nil
		case state = <-states:
		}

		for printed < state.Index {
			printed++
			entry := timeline.Describe(state.Events[printed])
			entry.Index = printed
			fmt.Fprintln(out, formatEntry(entry))
			if entry.Layout == timeline.LayoutVerdict {
				printTally(out, aggregator.Tally(state.Events[:printed+1], nil))
			}
		}

		if printed >= len(state.Events)-1 {
			fmt.Fprintln(out, "-- end of debate --")
			printTally(out, aggregator.Tally(state.Events, nil))
			return nil
		}
	}
}
