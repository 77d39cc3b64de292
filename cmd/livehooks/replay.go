package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/livehooks/internal/scenario"
	"github.com/vango-dev/livehooks/pkg/channel"
	"github.com/vango-dev/livehooks/pkg/hooks/standard"
	"github.com/vango-dev/livehooks/pkg/upload"
)

func replayCmd(c *cli) *cobra.Command {
	var (
		live    bool
		url     string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>...",
		Short: "Replay interaction scenarios",
		Long: `Replay scripted interactions against the standard hook bundle.

Without --live each scenario runs against an in-memory channel that answers
pushes from the scenario's responses table. With --live the scenarios talk
to a running sync server at --url (default client.url).

Examples:
  livehooks replay testdata/reorder.yaml
  livehooks replay --live scenarios/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			logger, err := c.logger(cmd, cfg)
			if err != nil {
				return err
			}
			if url == "" {
				url = cfg.Client.URL
			}

			opts := standard.Options{MobileBreakpoint: float64(cfg.Client.MobileBreakpoint)}
			if cfg.Client.UploadURL != "" {
				opts.Uploader = upload.NewClient(cfg.Client.UploadURL)
			}
			runner := &scenario.Runner{Registry: standard.Hooks(opts), Logger: logger}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			failed := 0
			for _, path := range args {
				sc, err := scenario.Load(path)
				if err != nil {
					return err
				}

				var sock *channel.Socket
				if live {
					sock, err = channel.Dial(ctx, url, channel.SocketConfig{
						HeartbeatInterval: cfg.Server.HeartbeatInterval,
						Logger:            logger,
					})
					if err != nil {
						return err
					}
					runner.Channel = sock
				}

				res, err := runner.Run(ctx, sc)
				if sock != nil {
					sock.Close()
				}
				name := sc.Name
				if name == "" {
					name = path
				}
				if err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "\033[31m✗\033[0m %s: %v\n", name, err)
					continue
				}
				success(cmd, "%s (%d steps)", name, res.Steps)
				if verbose {
					for _, m := range res.Pushed {
						info(cmd, "→ %s %v", m.Event, m.Payload)
					}
					for _, m := range res.Received {
						info(cmd, "← %s %v", m.Event, m.Payload)
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&live, "live", false, "Run against a live sync server")
	cmd.Flags().StringVar(&url, "url", "", "WebSocket URL for --live (overrides client.url)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print pushed and received events")

	return cmd
}
