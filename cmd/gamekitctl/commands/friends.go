package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gamekit/core"
)

func newFriendsCommand(opts *options) *cobra.Command {
	var add []string
	cmd := &cobra.Command{
		Use:   "friends",
		Short: "List your friends, optionally adding some first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, opts, nil, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			for _, friend := range add {
				if err := s.client.AddFriend(ctx, core.UserID(opts.user), core.UserID(friend)); err != nil {
					return fmt.Errorf("add friend %s: %w", friend, err)
				}
			}
			friends, err := s.gs.LoadFriends(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if opts.jsonOut {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(friends)
			}
			if len(friends) == 0 {
				_, err := fmt.Fprintln(w, "no friends")
				return err
			}
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, f := range friends {
				fmt.Fprintf(tw, "%s\t%s\n", f.ID, f.Name)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringSliceVar(&add, "add", nil, "befriend these players before listing")
	return cmd
}
