package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/gauthierbraillon/viraldaily/internal/aggregator"
	"github.com/gauthierbraillon/viraldaily/internal/display"
	"github.com/gauthierbraillon/viraldaily/internal/publish"
	"github.com/gauthierbraillon/viraldaily/internal/video"
	"github.com/gauthierbraillon/viraldaily/pkg/browser"
)

// newRunCmd creates the run subcommand.
func newRunCmd(a *app) *cobra.Command {
	var platform string
	var open bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collect viral videos and publish the ranked list",
		Long: "Query every configured platform concurrently, rank the videos by their metric and " +
			"write the result atomically as JSON, YAML or HTML. Use --out - for stdout and " +
			"--format text for a terminal listing.",
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return a.bind(cmd.Flags(), map[string]string{
				"limit":            "limit",
				"per-source-limit": "per_source_limit",
				"out":              "output",
				"format":           "format",
				"timeout":          "timeout",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(cmd)
			if err != nil {
				return err
			}

			opts := aggregator.FeedOptions{Limit: cfg.Limit}
			if platform != "" {
				p, err := video.ParsePlatform(platform)
				if err != nil {
					return err
				}
				opts.Platform = p
			}

			agg := newAggregator(cfg, slog.Default())
			videos, err := agg.Run(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("aggregation failed: %w", err)
			}

			formatter := display.NewStyledFormatter()
			fmt.Fprint(cmd.ErrOrStderr(), formatter.FormatSummary(agg.Summary()))

			if cfg.Format == "text" {
				fmt.Fprint(cmd.OutOrStdout(), formatter.FormatFeed(videos))
				return nil
			}

			format, err := publish.ParseFormat(cfg.Format)
			if err != nil {
				return err
			}
			pub := publish.New(format, publish.WithStdout(cmd.OutOrStdout()))
			if err := pub.Publish(videos, cfg.Output); err != nil {
				slog.Error("Publish failed", "output", cfg.Output, "error", err)
				return err
			}
			if cfg.Output != publish.Stdout {
				slog.Info("Published", "output", cfg.Output, "format", format, "count", len(videos))
			}

			if open && format == publish.FormatHTML && cfg.Output != publish.Stdout {
				if err := browser.OpenFile(cfg.Output); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser. Report written to:\n%s\n", cfg.Output)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&platform, "platform", "p", "", "Restrict the run to one platform (youtube, tiktok, x, instagram)")
	cmd.Flags().IntP("limit", "l", 0, "Maximum number of videos in the result (0 for all)")
	cmd.Flags().Int("per-source-limit", 10, "Maximum number of videos requested from each platform (1-10)")
	cmd.Flags().StringP("out", "o", "public/videos.json", "Output file, or - for stdout")
	cmd.Flags().StringP("format", "f", "json", "Output format (json, yaml, html, text)")
	cmd.Flags().Duration("timeout", 30*time.Second, "Per-platform timeout including retries")
	cmd.Flags().BoolVar(&open, "open", false, "Open the HTML report in the browser after writing it")

	return cmd
}
