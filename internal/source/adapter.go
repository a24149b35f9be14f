// Package source turns a platform client into an adapter that always yields a ranked list.
//
// An Adapter never fails: when its client errors, times out or is not configured,
// it substitutes the platform's deterministic fallback list and logs the cause.
package source

import (
	"context"
	"log/slog"
	"time"

	"github.com/gauthierbraillon/viraldaily/internal/video"
)

// MaxPerSource is the largest number of records one adapter contributes to a run.
const MaxPerSource = 10

// Fetcher is implemented by every platform client.
type Fetcher interface {
	Platform() video.Platform
	FetchTrending(ctx context.Context, limit int) ([]video.Video, error)
}

// FetcherFunc adapts fn to a Fetcher producing records for platform p.
func FetcherFunc(p video.Platform, fn func(ctx context.Context, limit int) ([]video.Video, error)) Fetcher {
	return funcFetcher{platform: p, fn: fn}
}

type funcFetcher struct {
	platform video.Platform
	fn       func(ctx context.Context, limit int) ([]video.Video, error)
}

func (f funcFetcher) Platform() video.Platform { return f.platform }

func (f funcFetcher) FetchTrending(ctx context.Context, limit int) ([]video.Video, error) {
	return f.fn(ctx, limit)
}

// Options tunes one adapter.
type Options struct {
	// PerSourceLimit is clamped to 1..MaxPerSource. Zero means MaxPerSource.
	PerSourceLimit int
	// Timeout bounds the whole client call including retries. Zero means none.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Result is the outcome of one adapter invocation.
type Result struct {
	Platform video.Platform
	Videos   []video.Video
	// Fallback is true when Videos is the synthetic list.
	Fallback bool
	// Err is the cause of the fallback, if any.
	Err error
}

// Adapter wraps a Fetcher with the per-source limit and the fallback policy.
type Adapter struct {
	fetcher Fetcher
	opts    Options
}

// New creates an Adapter.
func New(f Fetcher, opts Options) *Adapter {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Adapter{fetcher: f, opts: opts}
}

// Platform returns the platform of the wrapped client.
func (a *Adapter) Platform() video.Platform {
	return a.fetcher.Platform()
}

// Limit returns the effective per-source limit.
func (a *Adapter) Limit() int {
	return clampLimit(a.opts.PerSourceLimit)
}

// Fetch returns at most Limit records sorted by metric, or the fallback list.
func (a *Adapter) Fetch(ctx context.Context) []video.Video {
	return a.FetchResult(ctx).Videos
}

// FetchResult is Fetch with the live/fallback status attached.
func (a *Adapter) FetchResult(ctx context.Context) Result {
	return a.FetchLimit(ctx, a.Limit())
}

// FetchLimit is FetchResult with a per-call limit override, clamped like PerSourceLimit.
func (a *Adapter) FetchLimit(ctx context.Context, limit int) Result {
	limit = clampLimit(limit)
	platform := a.fetcher.Platform()
	logger := a.opts.Logger.With("platform", platform)

	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	videos, err := a.fetcher.FetchTrending(ctx, limit)
	if err != nil {
		logger.Error("Fetch failed, using fallback list", "error", err)
		return Result{
			Platform: platform,
			Videos:   video.Top(video.Fallback(platform), limit),
			Fallback: true,
			Err:      err,
		}
	}

	ranked := make([]video.Video, len(videos))
	copy(ranked, videos)
	video.SortByMetric(ranked)
	ranked = video.Top(ranked, limit)

	logger.Debug("Fetched videos", "count", len(ranked))
	return Result{Platform: platform, Videos: ranked}
}

func clampLimit(n int) int {
	if n <= 0 || n > MaxPerSource {
		return MaxPerSource
	}
	return n
}
