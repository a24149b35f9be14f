package main

import (
	"log/slog"
	"net/http"

	"github.com/gauthierbraillon/viraldaily/internal/aggregator"
	"github.com/gauthierbraillon/viraldaily/internal/config"
	"github.com/gauthierbraillon/viraldaily/internal/instagram"
	"github.com/gauthierbraillon/viraldaily/internal/ratelimit"
	"github.com/gauthierbraillon/viraldaily/internal/retry"
	"github.com/gauthierbraillon/viraldaily/internal/source"
	"github.com/gauthierbraillon/viraldaily/internal/tiktok"
	"github.com/gauthierbraillon/viraldaily/internal/twitter"
	"github.com/gauthierbraillon/viraldaily/internal/video"
	"github.com/gauthierbraillon/viraldaily/internal/youtube"
)

// newAggregator builds one adapter per enabled platform, in configured order.
func newAggregator(cfg *config.Config, logger *slog.Logger) *aggregator.Aggregator {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	policy := retry.Policy{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: cfg.Retry.InitialDelay,
		MaxDelay:     cfg.Retry.MaxDelay,
		Logger:       logger,
	}
	opts := source.Options{
		PerSourceLimit: cfg.PerSourceLimit,
		Timeout:        cfg.Timeout,
		Logger:         logger,
	}

	var adapters []*source.Adapter
	for _, p := range cfg.EnabledPlatforms() {
		if f := newFetcher(cfg, p, httpClient, policy); f != nil {
			adapters = append(adapters, source.New(f, opts))
		}
	}
	return aggregator.New(adapters...).WithLogger(logger)
}

func newFetcher(cfg *config.Config, p video.Platform, httpClient *http.Client, policy retry.Policy) source.Fetcher {
	limiter := ratelimit.New(string(p), cfg.Rate.RequestsPerSecond)
	baseURL := cfg.BaseURL(p)

	switch p {
	case video.PlatformYouTube:
		opts := []youtube.ClientOption{
			youtube.WithHTTPClient(httpClient),
			youtube.WithRetryPolicy(policy),
			youtube.WithLimiter(limiter),
			youtube.WithRegion(cfg.YouTube.Region),
		}
		if baseURL != "" {
			opts = append(opts, youtube.WithBaseURL(baseURL))
		}
		return youtube.NewClient(cfg.YouTube.APIKey, opts...)

	case video.PlatformTikTok:
		opts := []tiktok.ClientOption{
			tiktok.WithHTTPClient(httpClient),
			tiktok.WithRetryPolicy(policy),
			tiktok.WithLimiter(limiter),
			tiktok.WithKeyword(cfg.TikTok.Keyword),
			tiktok.WithRegion(cfg.TikTok.Region),
		}
		if baseURL != "" {
			opts = append(opts, tiktok.WithBaseURL(baseURL))
		}
		return tiktok.NewClient(cfg.TikTok.AccessToken, opts...)

	case video.PlatformX:
		opts := []twitter.ClientOption{
			twitter.WithHTTPClient(httpClient),
			twitter.WithRetryPolicy(policy),
			twitter.WithLimiter(limiter),
			twitter.WithQuery(cfg.X.Query),
		}
		if baseURL != "" {
			opts = append(opts, twitter.WithBaseURL(baseURL))
		}
		return twitter.NewClient(cfg.X.BearerToken, opts...)

	case video.PlatformInstagram:
		opts := []instagram.ClientOption{
			instagram.WithHTTPClient(httpClient),
			instagram.WithRetryPolicy(policy),
			instagram.WithLimiter(limiter),
			instagram.WithHashtag(cfg.Instagram.Hashtag),
		}
		if baseURL != "" {
			opts = append(opts, instagram.WithBaseURL(baseURL))
		}
		return instagram.NewClient(cfg.Instagram.AccessToken, cfg.Instagram.UserID, opts...)
	}
	return nil
}
