// Package aggregator combines the lists of every source adapter into one ranked collection.
//
// This package enables viraldaily to:
// - Query every configured platform concurrently
// - Merge the results into a single list ranked by metric
// - Restrict a run to one platform or to a global number of records
package aggregator

import "github.com/gauthierbraillon/viraldaily/internal/video"

// FeedOptions configures one aggregation run.
type FeedOptions struct {
	// PerSourceLimit overrides each adapter's limit when positive.
	PerSourceLimit int
	// Limit caps the merged collection. Zero means no limit.
	Limit int
	// Platform restricts the run to one adapter. Empty means all of them.
	Platform video.Platform
}

// SourceSummary reports how one platform behaved during the last run.
type SourceSummary struct {
	Platform video.Platform `json:"platform"`
	Count    int            `json:"count"`
	Fallback bool           `json:"fallback"`
	Error    string         `json:"error,omitempty"`
}
