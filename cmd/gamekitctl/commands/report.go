package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newReportCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "report <leaderboard> <value>",
		Short: "Report a score",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid score %q: %w", args[1], err)
			}
			s, err := openSession(cmd, opts, args[:1], nil)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.gs.ReportScore(cmd.Context(), value, args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "reported %d to %s\n", value, args[0])
			return err
		},
	}
}

func newUnlockCommand(opts *options) *cobra.Command {
	var (
		progress float64
		reveal   bool
	)
	cmd := &cobra.Command{
		Use:   "unlock <achievement>",
		Short: "Unlock, reveal or advance an achievement",
		Long: `Unlock an achievement. With --progress the given percentage is reported
instead; with --reveal the achievement is only revealed (0%).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reveal && cmd.Flags().Changed("progress") {
				return fmt.Errorf("--reveal and --progress are mutually exclusive")
			}
			s, err := openSession(cmd, opts, nil, args)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, name := cmd.Context(), args[0]
			switch {
			case reveal:
				err = s.gs.RevealAchievement(ctx, name)
			case cmd.Flags().Changed("progress"):
				err = s.gs.ReportAchievementProgress(ctx, name, progress)
			default:
				err = s.gs.UnlockAchievement(ctx, name)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", name)
			return err
		},
	}
	cmd.Flags().Float64Var(&progress, "progress", 100, "progress percentage in [0, 100]")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "reveal without unlocking")
	return cmd
}
