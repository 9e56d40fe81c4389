package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"gamekit/core"
	"gamekit/engine"
)

func newScoresCommand(opts *options) *cobra.Command {
	var (
		from, count int
		timeScope   string
		userScope   string
	)
	cmd := &cobra.Command{
		Use:   "scores <leaderboard>",
		Short: "Load scores from a leaderboard",
		Long: `Load scores from a leaderboard through the score request queue.

Without --from the server's default window is loaded: scores around you, all
time, global. With --from a ranged query loads --count scores starting at that
1-based rank.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := core.ParseTimeScope(timeScope)
			if err != nil {
				return err
			}
			us, err := core.ParseUserScope(userScope)
			if err != nil {
				return err
			}
			s, err := openSession(cmd, opts, args, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			lb, ok := s.catalog.LeaderboardByName(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", core.ErrUnknownLeaderboard, args[0])
			}
			q := core.DefaultQuery(lb)
			if cmd.Flags().Changed("from") {
				q = core.RangedQuery(lb, from, count, ts, us)
			} else {
				q.TimeScope, q.UserScope = ts, us
			}
			res, err := loadResult(cmd.Context(), s.gs, q)
			if err != nil {
				return err
			}
			return printScores(cmd.OutOrStdout(), opts.jsonOut, res.Scores)
		},
	}
	cmd.Flags().IntVar(&from, "from", 1, "first rank of a ranged query (1-based)")
	cmd.Flags().IntVar(&count, "count", core.DefaultScoreCount, "number of scores in a ranged query")
	cmd.Flags().StringVar(&timeScope, "time", "all_time", "time scope: all_time, week, today")
	cmd.Flags().StringVar(&userScope, "scope", "global", "user scope: global, friends")
	return cmd
}

func newLocalScoreCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "local-score <leaderboard>",
		Short: "Show your own score on a leaderboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, opts, args, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			lb, ok := s.catalog.LeaderboardByName(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", core.ErrUnknownLeaderboard, args[0])
			}
			res, err := loadResult(cmd.Context(), s.gs, core.LocalUserQuery(lb))
			if err != nil {
				return err
			}
			if len(res.Scores) == 0 {
				if opts.jsonOut {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "null")
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "no score on %s\n", args[0])
				return err
			}
			return printScores(cmd.OutOrStdout(), opts.jsonOut, res.Scores)
		},
	}
}

// loadResult submits q and waits for its callback. Backend failures surface as errors
// here even though the plain callbacks only see an empty list.
func loadResult(ctx context.Context, gs *engine.GameServices, q core.ScoreQuery) (engine.ScoreResult, error) {
	r := gs.FetchScores(ctx, q)
	return r, r.Err
}

func printScores(w io.Writer, asJSON bool, scores []core.Score) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(scores)
	}
	if len(scores) == 0 {
		_, err := fmt.Fprintln(w, "no scores")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tPLAYER\tSCORE\tDATE")
	for _, sc := range scores {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			strconv.Itoa(sc.Rank), sc.UserID, sc.FormattedValue, sc.Date.Format(time.DateOnly))
	}
	return tw.Flush()
}
