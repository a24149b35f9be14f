package video

import "sort"

// SortByMetric orders videos by descending metric in place.
// Equal metrics keep their relative order.
func SortByMetric(videos []Video) {
	sort.SliceStable(videos, func(i, j int) bool {
		return videos[i].Metric > videos[j].Metric
	})
}

// Top returns the first n videos, or all of them when n <= 0.
func Top(videos []Video, n int) []Video {
	if n > 0 && len(videos) > n {
		return videos[:n]
	}
	return videos
}
