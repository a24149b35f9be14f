// Package contracts pins the upstream response shapes the platform clients parse and
// the shape of the records viraldaily publishes.
//
// The upstream fixtures follow the public API references of each platform. Downstream
// consumers of videos.json and /api/videos can rely on ValidateRecord and ValidateEnvelope.
package contracts

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ErrContract wraps every contract violation.
var ErrContract = errors.New("contract violation")

// YouTubeVideosContract is a videos.list response for chart=mostPopular.
const YouTubeVideosContract = `{
  "kind": "youtube#videoListResponse",
  "etag": "abc",
  "items": [
    {
      "kind": "youtube#video",
      "id": "dQw4w9WgXcQ",
      "snippet": {
        "publishedAt": "2026-10-13T18:00:00Z",
        "channelId": "UC123",
        "title": "Cat learns to skateboard",
        "channelTitle": "Daily Cats",
        "thumbnails": {
          "default": {"url": "https://i.ytimg.com/vi/dQw4w9WgXcQ/default.jpg", "width": 120, "height": 90},
          "medium": {"url": "https://i.ytimg.com/vi/dQw4w9WgXcQ/mqdefault.jpg", "width": 320, "height": 180}
        }
      },
      "statistics": {"viewCount": "1500000", "likeCount": "42000", "commentCount": "900"}
    }
  ],
  "pageInfo": {"totalResults": 1, "resultsPerPage": 1}
}`

// TikTokQueryContract is a Research API video query response.
const TikTokQueryContract = `{
  "data": {
    "videos": [
      {
        "id": 7290000000000000001,
        "video_description": "Unexpected dance challenge #viral",
        "like_count": 830000,
        "view_count": 9100000,
        "username": "dancer",
        "cover_image_url": "https://p16.tiktokcdn.com/cover.jpeg"
      }
    ],
    "cursor": 1,
    "has_more": false,
    "search_id": "7290000000000000000"
  },
  "error": {"code": "ok", "message": "", "log_id": "20261014"}
}`

// XSearchContract is a v2 recent search response with user and media expansions.
const XSearchContract = `{
  "data": [
    {
      "id": "1790000000000000001",
      "text": "This goal is unreal",
      "author_id": "2244994945",
      "edit_history_tweet_ids": ["1790000000000000001"],
      "public_metrics": {"retweet_count": 1200, "reply_count": 300, "like_count": 64000, "quote_count": 40},
      "attachments": {"media_keys": ["7_1790000000000000001"]}
    }
  ],
  "includes": {
    "users": [{"id": "2244994945", "name": "Football Clips", "username": "footyclips"}],
    "media": [{"media_key": "7_1790000000000000001", "type": "video", "preview_image_url": "https://pbs.twimg.com/preview.jpg"}]
  },
  "meta": {"newest_id": "1790000000000000001", "oldest_id": "1790000000000000001", "result_count": 1}
}`

// InstagramHashtagContract is an ig_hashtag_search response.
const InstagramHashtagContract = `{"data": [{"id": "17843857450040591"}]}`

// InstagramTopMediaContract is a hashtag top_media response.
const InstagramTopMediaContract = `{
  "data": [
    {
      "id": "17900000000000001",
      "media_type": "VIDEO",
      "media_url": "https://scontent.cdninstagram.com/video.mp4",
      "thumbnail_url": "https://scontent.cdninstagram.com/thumb.jpg",
      "permalink": "https://www.instagram.com/reel/Cabc123/",
      "like_count": 51000,
      "caption": "Sunset from the plane\n#travel #viral"
    }
  ],
  "paging": {"cursors": {"after": "QVFIU"}}
}`

// metricKeys maps each platform to the single metric key its records carry.
var metricKeys = map[string]string{
	"youtube":   "views",
	"tiktok":    "likes",
	"x":         "likes",
	"instagram": "likes",
}

// ValidateRecord checks one published record, decoded as a generic JSON object.
func ValidateRecord(r map[string]interface{}) error {
	platform, _ := r["platform"].(string)
	metricKey, ok := metricKeys[platform]
	if !ok {
		return fmt.Errorf("%w: unknown platform %q", ErrContract, platform)
	}

	title, _ := r["title"].(string)
	author, _ := r["author"].(string)
	if title == "" && author == "" {
		return fmt.Errorf("%w: %s record has neither title nor author", ErrContract, platform)
	}

	for _, key := range []string{"thumbnail", "link"} {
		raw, _ := r[key].(string)
		u, err := url.Parse(raw)
		if raw == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("%w: %s record has invalid %s %q", ErrContract, platform, key, raw)
		}
	}

	metric, ok := r[metricKey].(float64)
	if !ok {
		return fmt.Errorf("%w: %s record is missing %q", ErrContract, platform, metricKey)
	}
	if metric < 0 || metric != float64(int64(metric)) {
		return fmt.Errorf("%w: %s must be a non-negative integer, got %v", ErrContract, metricKey, metric)
	}
	for other := range map[string]bool{"views": true, "likes": true, "metric": true} {
		if other == metricKey {
			continue
		}
		if _, present := r[other]; present {
			return fmt.Errorf("%w: %s record carries %q", ErrContract, platform, other)
		}
	}
	return nil
}

// ValidateCollection checks every record and the descending metric order.
func ValidateCollection(records []map[string]interface{}) error {
	prev := -1.0
	for i, r := range records {
		if err := ValidateRecord(r); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		metric := r[metricKeys[r["platform"].(string)]].(float64)
		if prev >= 0 && metric > prev {
			return fmt.Errorf("%w: record %d ranks above its predecessor", ErrContract, i)
		}
		prev = metric
	}
	return nil
}

// ValidateEnvelope checks a /api/videos response body decoded as a generic JSON object.
func ValidateEnvelope(env map[string]interface{}) error {
	raw, ok := env["videos"].([]interface{})
	if !ok {
		return fmt.Errorf("%w: videos must be an array", ErrContract)
	}
	records := make([]map[string]interface{}, len(raw))
	for i, item := range raw {
		r, ok := item.(map[string]interface{})
		if !ok {
			return fmt.Errorf("%w: video %d is not an object", ErrContract, i)
		}
		records[i] = r
	}
	if err := ValidateCollection(records); err != nil {
		return err
	}

	total, ok := env["total"].(float64)
	if !ok || int(total) != len(records) {
		return fmt.Errorf("%w: total %v does not match %d videos", ErrContract, env["total"], len(records))
	}

	platform, present := env["platform"]
	if !present {
		return fmt.Errorf("%w: platform must be present, null when unfiltered", ErrContract)
	}
	if platform != nil {
		name, _ := platform.(string)
		if _, ok := metricKeys[name]; !ok {
			return fmt.Errorf("%w: unknown platform filter %v", ErrContract, platform)
		}
		for i, r := range records {
			if r["platform"] != name {
				return fmt.Errorf("%w: video %d is not from %s", ErrContract, i, name)
			}
		}
	}

	date, _ := env["date"].(string)
	if _, err := time.Parse(time.RFC3339, date); err != nil {
		return fmt.Errorf("%w: date %q is not RFC 3339", ErrContract, date)
	}
	return nil
}
