package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gauthierbraillon/viraldaily/internal/cache"
	"github.com/gauthierbraillon/viraldaily/internal/config"
	"github.com/gauthierbraillon/viraldaily/internal/server"
	"github.com/gauthierbraillon/viraldaily/internal/subscription"
)

// newServeCmd creates the serve subcommand.
func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ranked videos and subscription intake over HTTP",
		Long: "Start the HTTP API: GET /api/videos, GET /api/videos/page and POST /api/subscribe. " +
			"Results are cached in Redis when redis.url is set, in memory otherwise. " +
			"Subscriptions are published to NATS when nats.url is set, logged otherwise.",
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return a.bind(cmd.Flags(), map[string]string{
				"addr":      "server.addr",
				"cache-ttl": "server.cache_ttl",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load(cmd)
			if err != nil {
				return err
			}
			logger := slog.Default()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			resultCache, closeCache, err := openCache(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeCache()

			sink, closeSink, err := openSink(cfg, logger)
			if err != nil {
				return err
			}
			defer closeSink()

			srv := server.New(newAggregator(cfg, logger),
				server.WithCache(resultCache, cfg.Server.CacheTTL),
				server.WithSink(sink),
				server.WithLogger(logger),
			)
			return srv.ListenAndServe(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().String("addr", ":8080", "Listen address")
	cmd.Flags().Duration("cache-ttl", 15*time.Minute, "How long a result is served from cache")

	return cmd
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, func(), error) {
	if cfg.Redis.URL == "" {
		return cache.NewMemory(), func() {}, nil
	}

	rc, err := cache.OpenRedis(cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		_ = rc.Close()
		return nil, nil, fmt.Errorf("redis unreachable: %w", err)
	}
	return rc, func() { _ = rc.Close() }, nil
}

func openSink(cfg *config.Config, logger *slog.Logger) (subscription.Sink, func(), error) {
	if cfg.NATS.URL == "" {
		return subscription.LogSink{Logger: logger}, func() {}, nil
	}

	sink, nc, err := subscription.ConnectNATS(cfg.NATS.URL, cfg.NATS.Subject)
	if err != nil {
		return nil, nil, err
	}
	return sink, func() { _ = nc.Drain() }, nil
}
