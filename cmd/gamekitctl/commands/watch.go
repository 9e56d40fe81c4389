package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"gamekit/core"
	"gamekit/metrics"
)

func newWatchCommand(opts *options) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch <leaderboard>",
		Short: "Reload a leaderboard whenever someone reports a score",
		Long: `Print the default window of a leaderboard, then reload it each time the
server streams a score report for it. Reloads queue behind each other; bursts
of reports are served one query at a time.

With --metrics-addr the score queue is exposed for Prometheus while watching.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if metricsAddr != "" {
				opts.metrics = metrics.New("gamekitctl")
				stop, err := serveMetrics(metricsAddr, opts.metrics)
				if err != nil {
					return err
				}
				defer stop()
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
			events, err := s.client.SubscribeEvents(ctx, "", core.EventScoreReported)
			if err != nil {
				return fmt.Errorf("subscribe: %w", err)
			}

			w := cmd.OutOrStdout()
			reload := func() {
				s.gs.LoadScores(ctx, lb.Name, func(_ string, scores []core.Score) {
					fmt.Fprintf(w, "-- %s %s\n", lb.Name, time.Now().Format(time.TimeOnly))
					if err := printScores(w, opts.jsonOut, scores); err != nil {
						slog.Warn("print scores", "error", err)
					}
				})
			}
			reload()
			for {
				select {
				case <-ctx.Done():
					return nil
				case ev, ok := <-events:
					if !ok {
						if ctx.Err() != nil {
							return nil
						}
						return errors.New("event stream closed")
					}
					if ev.Leaderboard == lb.ID {
						reload()
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address while watching")
	return cmd
}

func serveMetrics(addr string, m *metrics.Metrics) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server", "error", err)
		}
	}()
	slog.Info("serving metrics", "address", ln.Addr().String())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
