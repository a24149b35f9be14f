package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gauthierbraillon/viraldaily/internal/source"
	"github.com/gauthierbraillon/viraldaily/internal/video"
)

// Aggregator fans out to its adapters and merges what they return.
type Aggregator struct {
	adapters []*source.Adapter
	logger   *slog.Logger

	mu      sync.Mutex
	summary []SourceSummary
}

// New creates an Aggregator over adapters. Their order is the tie-break order of the merge.
func New(adapters ...*source.Adapter) *Aggregator {
	return &Aggregator{
		adapters: adapters,
		logger:   slog.Default(),
	}
}

// WithLogger sets the logger used for run summaries.
func (a *Aggregator) WithLogger(l *slog.Logger) *Aggregator {
	if l != nil {
		a.logger = l
	}
	return a
}

// Platforms returns the configured platforms in order.
func (a *Aggregator) Platforms() []video.Platform {
	out := make([]video.Platform, len(a.adapters))
	for i, ad := range a.adapters {
		out[i] = ad.Platform()
	}
	return out
}

type indexedResult struct {
	index  int
	result source.Result
	panic  error
}

// Run invokes the selected adapters concurrently and returns the ranked collection.
// Adapter failures are absorbed as fallback lists; only a panic inside an adapter fails the run.
func (a *Aggregator) Run(ctx context.Context, opts FeedOptions) ([]video.Video, error) {
	adapters := a.adapters
	if opts.Platform != "" {
		selected, err := a.find(opts.Platform)
		if err != nil {
			return nil, err
		}
		adapters = []*source.Adapter{selected}
	}

	results := make(chan indexedResult, len(adapters))
	for i, ad := range adapters {
		go func(i int, ad *source.Adapter) {
			defer func() {
				if r := recover(); r != nil {
					results <- indexedResult{
						index: i,
						panic: fmt.Errorf("%s adapter panicked: %v", ad.Platform(), r),
					}
				}
			}()
			limit := opts.PerSourceLimit
			if limit <= 0 {
				limit = ad.Limit()
			}
			results <- indexedResult{index: i, result: ad.FetchLimit(ctx, limit)}
		}(i, ad)
	}

	ordered := make([]source.Result, len(adapters))
	var runErr error
	for range adapters {
		r := <-results
		if r.panic != nil {
			if runErr == nil {
				runErr = r.panic
			}
			continue
		}
		ordered[r.index] = r.result
	}
	if runErr != nil {
		return nil, runErr
	}

	a.record(ordered)

	if opts.Platform != "" {
		return video.Top(ordered[0].Videos, opts.Limit), nil
	}

	lists := make([][]video.Video, len(ordered))
	for i, r := range ordered {
		lists[i] = r.Videos
	}
	return Merge(lists, opts.Limit), nil
}

// Merge concatenates lists in order, sorts by descending metric and applies limit.
// Records with equal metrics keep list order, then position within the list.
func Merge(lists [][]video.Video, limit int) []video.Video {
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	merged := make([]video.Video, 0, total)
	for _, l := range lists {
		merged = append(merged, l...)
	}
	video.SortByMetric(merged)
	return video.Top(merged, limit)
}

// Summary returns the per-platform outcome of the most recent run.
func (a *Aggregator) Summary() []SourceSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]SourceSummary, len(a.summary))
	copy(out, a.summary)
	return out
}

func (a *Aggregator) find(p video.Platform) (*source.Adapter, error) {
	for _, ad := range a.adapters {
		if ad.Platform() == p {
			return ad, nil
		}
	}
	return nil, fmt.Errorf("%w: %q is not configured", video.ErrUnknownPlatform, p)
}

func (a *Aggregator) record(results []source.Result) {
	summary := make([]SourceSummary, len(results))
	for i, r := range results {
		s := SourceSummary{Platform: r.Platform, Count: len(r.Videos), Fallback: r.Fallback}
		if r.Err != nil {
			s.Error = r.Err.Error()
		}
		summary[i] = s
		a.logger.Info("Source finished", "platform", s.Platform, "count", s.Count, "fallback", s.Fallback)
	}

	a.mu.Lock()
	a.summary = summary
	a.mu.Unlock()
}
