// Package video defines the normalized record every platform adapter produces.
//
// This package enables viraldaily to:
// - Rank content from YouTube, TikTok, X and Instagram on one metric
// - Substitute deterministic placeholders for fields an upstream omits
// - Produce reproducible fallback lists when a platform is unreachable
package video

import (
	"errors"
	"fmt"
)

// Platform identifies the source adapter that produced a record.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformX         Platform = "x"
	PlatformInstagram Platform = "instagram"
)

// Platforms lists every supported platform in default configuration order.
var Platforms = []Platform{PlatformYouTube, PlatformTikTok, PlatformX, PlatformInstagram}

// ErrUnknownPlatform is returned when a platform tag is not supported.
var ErrUnknownPlatform = errors.New("unknown platform")

// ParsePlatform converts a tag such as "youtube" into a Platform.
// "twitter" is accepted as an alias for X.
func ParsePlatform(s string) (Platform, error) {
	switch s {
	case string(PlatformYouTube):
		return PlatformYouTube, nil
	case string(PlatformTikTok):
		return PlatformTikTok, nil
	case string(PlatformX), "twitter":
		return PlatformX, nil
	case string(PlatformInstagram):
		return PlatformInstagram, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
}

// Video is one ranked piece of content after normalization.
type Video struct {
	Title     string   `json:"title"`
	Author    string   `json:"author,omitempty"`
	Metric    int64    `json:"metric"`
	Thumbnail string   `json:"thumbnail"`
	Link      string   `json:"link"`
	Platform  Platform `json:"platform"`
}

// Validate reports whether v satisfies the record invariants.
func (v Video) Validate() error {
	switch {
	case v.Title == "" && v.Author == "":
		return fmt.Errorf("%s video has neither title nor author", v.Platform)
	case v.Thumbnail == "":
		return fmt.Errorf("%s video %q has no thumbnail", v.Platform, v.Title)
	case v.Link == "":
		return fmt.Errorf("%s video %q has no link", v.Platform, v.Title)
	case v.Metric < 0:
		return fmt.Errorf("%s video %q has negative metric %d", v.Platform, v.Title, v.Metric)
	}
	return nil
}

// Label returns the author for poster-centric platforms, otherwise the title.
func (v Video) Label() string {
	if v.Title == "" {
		return v.Author
	}
	if v.Author != "" && v.Platform == PlatformX {
		return v.Author
	}
	return v.Title
}
