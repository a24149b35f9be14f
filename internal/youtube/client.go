// Package youtube provides a client for the YouTube Data API v3 most-popular chart.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gauthierbraillon/viraldaily/internal/ratelimit"
	"github.com/gauthierbraillon/viraldaily/internal/retry"
	"github.com/gauthierbraillon/viraldaily/internal/video"
)

const defaultBaseURL = "https://www.googleapis.com"

// ErrMissingCredential is returned when no API key is configured.
var ErrMissingCredential = errors.New("youtube: missing API key")

// HTTPClient interface for making HTTP requests (allows injection for testing).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithRegion restricts the chart to a region code such as "US" or "ES".
func WithRegion(region string) ClientOption {
	return func(c *Client) {
		c.region = region
	}
}

// WithRetryPolicy sets how rate-limited calls are retried.
func WithRetryPolicy(p retry.Policy) ClientOption {
	return func(c *Client) {
		c.retry = p
	}
}

// WithLimiter paces requests before every attempt.
func WithLimiter(l *ratelimit.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = l
	}
}

// Client is a YouTube Data API client.
type Client struct {
	apiKey     string
	region     string
	baseURL    string
	httpClient HTTPClient
	retry      retry.Policy
	limiter    *ratelimit.Limiter
}

// NewClient creates a new YouTube API client with the given API key.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
		retry:      retry.DefaultPolicy,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Platform identifies the records this client produces.
func (c *Client) Platform() video.Platform {
	return video.PlatformYouTube
}

// FetchTrending retrieves the most popular videos, ranked by view count.
func (c *Client) FetchTrending(ctx context.Context, limit int) ([]video.Video, error) {
	if c.apiKey == "" {
		return nil, ErrMissingCredential
	}

	params := url.Values{}
	params.Set("part", "snippet,statistics")
	params.Set("chart", "mostPopular")
	params.Set("maxResults", strconv.Itoa(limit))
	params.Set("key", c.apiKey)
	if c.region != "" {
		params.Set("regionCode", c.region)
	}
	endpoint := fmt.Sprintf("%s/youtube/v3/videos?%s", c.baseURL, params.Encode())

	body, err := retry.Do(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.doRequest(ctx, endpoint)
	})
	if err != nil {
		return nil, err
	}

	var response videosResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse YouTube videos response: %w", err)
	}

	videos := make([]video.Video, 0, len(response.Items))
	for i, item := range response.Items {
		views, _ := strconv.ParseInt(item.Statistics.ViewCount, 10, 64)
		thumbnail := item.Snippet.Thumbnails.Default.URL
		if thumbnail == "" {
			thumbnail = item.Snippet.Thumbnails.Medium.URL
		}
		link := ""
		if item.ID != "" {
			link = "https://www.youtube.com/watch?v=" + item.ID
		}

		videos = append(videos, video.Normalize(video.Video{
			Title:     item.Snippet.Title,
			Author:    item.Snippet.ChannelTitle,
			Metric:    views,
			Thumbnail: thumbnail,
			Link:      link,
			Platform:  video.PlatformYouTube,
		}, i+1))
	}

	return videos, nil
}

func (c *Client) doRequest(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("YouTube API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleAPIError(resp)
	}

	return body, nil
}

// API response types (private - implementation detail)

type videosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			Thumbnails   struct {
				Default struct {
					URL string `json:"url"`
				} `json:"default"`
				Medium struct {
					URL string `json:"url"`
				} `json:"medium"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
			LikeCount string `json:"likeCount"`
		} `json:"statistics"`
	} `json:"items"`
}

func (c *Client) handleAPIError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return &retry.RateLimitError{
			Platform:   "YouTube",
			StatusCode: resp.StatusCode,
			RetryAfter: resp.Header.Get("Retry-After"),
		}
	case http.StatusUnauthorized, http.StatusBadRequest:
		return fmt.Errorf("YouTube API authentication failed - check the configured API key (status %d)", resp.StatusCode)
	case http.StatusForbidden:
		return fmt.Errorf("YouTube API access denied - quota exhausted or key not allowed")
	case http.StatusServiceUnavailable:
		return fmt.Errorf("YouTube API temporarily unavailable")
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusGatewayTimeout:
		return fmt.Errorf("YouTube API server error (status %d)", resp.StatusCode)
	default:
		return fmt.Errorf("YouTube API error (status %d)", resp.StatusCode)
	}
}
