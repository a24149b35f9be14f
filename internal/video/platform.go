package video

import (
	"fmt"
	"strconv"
)

// UnknownAuthor is used when an upstream omits the poster of a record.
const UnknownAuthor = "@unknown"

// FallbackSize is the number of entries in a synthetic fallback list.
const FallbackSize = 10

// Info describes the fixed per-platform normalization rules.
type Info struct {
	Name string
	// Code prefixes placeholder thumbnails and fallback titles.
	Code string
	// MetricName is how the metric is named in published documents.
	MetricName string
	// TitlePlaceholder replaces a missing title. Empty for author-centric platforms.
	TitlePlaceholder string
	HomeURL          string
	// FallbackMultiplier scales fallback metrics: multiplier * (11 - index).
	FallbackMultiplier int64
}

var platformInfo = map[Platform]Info{
	PlatformYouTube: {
		Name:               "YouTube",
		Code:               "YT",
		MetricName:         "views",
		TitlePlaceholder:   "YouTube Viral",
		HomeURL:            "https://youtube.com",
		FallbackMultiplier: 1000000,
	},
	PlatformTikTok: {
		Name:               "TikTok",
		Code:               "TT",
		MetricName:         "likes",
		TitlePlaceholder:   "TikTok Viral",
		HomeURL:            "https://tiktok.com",
		FallbackMultiplier: 30000,
	},
	PlatformX: {
		Name:               "X",
		Code:               "X",
		MetricName:         "likes",
		HomeURL:            "https://x.com",
		FallbackMultiplier: 20000,
	},
	PlatformInstagram: {
		Name:               "Instagram",
		Code:               "IG",
		MetricName:         "likes",
		TitlePlaceholder:   "Instagram Viral Reel",
		HomeURL:            "https://instagram.com",
		FallbackMultiplier: 50000,
	},
}

// InfoFor returns the normalization rules for p.
// Unknown platforms get a generic rule set so rendering never fails.
func InfoFor(p Platform) Info {
	if info, ok := platformInfo[p]; ok {
		return info
	}
	return Info{
		Name:             string(p),
		Code:             "V",
		MetricName:       "metric",
		TitlePlaceholder: "Viral video",
		HomeURL:          "https://placehold.co",
	}
}

// PlaceholderThumbnail returns the deterministic thumbnail for position index (1-based).
func PlaceholderThumbnail(p Platform, index int) string {
	return "https://placehold.co/150?text=" + InfoFor(p).Code + strconv.Itoa(index)
}

// Normalize fills the missing fields of v with the placeholders of its platform.
// index is the 1-based position of the item in the upstream page.
func Normalize(v Video, index int) Video {
	info := InfoFor(v.Platform)
	if v.Title == "" && info.TitlePlaceholder != "" {
		v.Title = info.TitlePlaceholder
	}
	if v.Title == "" && v.Author == "" {
		v.Author = UnknownAuthor
	}
	if v.Thumbnail == "" {
		v.Thumbnail = PlaceholderThumbnail(v.Platform, index)
	}
	if v.Link == "" {
		v.Link = info.HomeURL
	}
	if v.Metric < 0 {
		v.Metric = 0
	}
	return v
}

// Fallback returns the synthetic list substituted when p cannot be reached.
// The list is identical on every call.
func Fallback(p Platform) []Video {
	info := InfoFor(p)
	videos := make([]Video, 0, FallbackSize)
	for i := 1; i <= FallbackSize; i++ {
		v := Video{
			Metric:    info.FallbackMultiplier * int64(FallbackSize+1-i),
			Thumbnail: PlaceholderThumbnail(p, i),
			Link:      info.HomeURL,
			Platform:  p,
		}
		if info.TitlePlaceholder == "" {
			v.Author = fmt.Sprintf("@user%d", i)
		} else {
			v.Title = fmt.Sprintf("%s Viral %d", info.Code, i)
		}
		videos = append(videos, v)
	}
	return videos
}
