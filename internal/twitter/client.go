// Package twitter provides a client for the X (formerly Twitter) API v2 recent search.
package twitter

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

const (
	defaultBaseURL = "https://api.x.com"
	defaultQuery   = "viral has:videos -is:retweet"
	// X rejects max_results outside 10..100.
	minResults = 10
	maxResults = 100
)

// ErrMissingCredential is returned when no bearer token is configured.
var ErrMissingCredential = errors.New("x: missing bearer token")

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

// WithQuery sets the recent-search query.
func WithQuery(q string) ClientOption {
	return func(c *Client) {
		if q != "" {
			c.query = q
		}
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

// Client is an X API v2 client.
type Client struct {
	bearerToken string
	query       string
	baseURL     string
	httpClient  HTTPClient
	retry       retry.Policy
	limiter     *ratelimit.Limiter
}

// NewClient creates a new X API client with the given app bearer token.
func NewClient(bearerToken string, opts ...ClientOption) *Client {
	c := &Client{
		bearerToken: bearerToken,
		query:       defaultQuery,
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{},
		retry:       retry.DefaultPolicy,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Platform identifies the records this client produces.
func (c *Client) Platform() video.Platform {
	return video.PlatformX
}

// FetchTrending searches recent posts matching the query, ranked by like count.
// Posts are labelled by their author's handle.
func (c *Client) FetchTrending(ctx context.Context, limit int) ([]video.Video, error) {
	if c.bearerToken == "" {
		return nil, ErrMissingCredential
	}

	params := url.Values{}
	params.Set("query", c.query)
	params.Set("max_results", strconv.Itoa(clampResults(limit)))
	params.Set("tweet.fields", "public_metrics,attachments,author_id")
	params.Set("expansions", "attachments.media_keys,author_id")
	params.Set("media.fields", "preview_image_url,url")
	params.Set("user.fields", "username")
	endpoint := fmt.Sprintf("%s/2/tweets/search/recent?%s", c.baseURL, params.Encode())

	body, err := retry.Do(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.doRequest(ctx, endpoint)
	})
	if err != nil {
		return nil, err
	}

	var response searchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse X search response: %w", err)
	}

	users := make(map[string]string, len(response.Includes.Users))
	for _, u := range response.Includes.Users {
		users[u.ID] = u.Username
	}
	previews := make(map[string]string, len(response.Includes.Media))
	for _, m := range response.Includes.Media {
		preview := m.PreviewImageURL
		if preview == "" {
			preview = m.URL
		}
		previews[m.MediaKey] = preview
	}

	videos := make([]video.Video, 0, len(response.Data))
	for i, tweet := range response.Data {
		author := video.UnknownAuthor
		if name := users[tweet.AuthorID]; name != "" {
			author = "@" + name
		}
		thumbnail := ""
		for _, key := range tweet.Attachments.MediaKeys {
			if p := previews[key]; p != "" {
				thumbnail = p
				break
			}
		}
		link := ""
		if tweet.ID != "" {
			link = "https://x.com/i/status/" + tweet.ID
		}

		videos = append(videos, video.Normalize(video.Video{
			Title:     tweet.Text,
			Author:    author,
			Metric:    tweet.PublicMetrics.LikeCount,
			Thumbnail: thumbnail,
			Link:      link,
			Platform:  video.PlatformX,
		}, i+1))
	}

	return videos, nil
}

func clampResults(limit int) int {
	if limit < minResults {
		return minResults
	}
	if limit > maxResults {
		return maxResults
	}
	return limit
}

func (c *Client) doRequest(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("X API request failed: %w", err)
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

type searchResponse struct {
	Data []struct {
		ID            string `json:"id"`
		Text          string `json:"text"`
		AuthorID      string `json:"author_id"`
		PublicMetrics struct {
			LikeCount    int64 `json:"like_count"`
			RetweetCount int64 `json:"retweet_count"`
		} `json:"public_metrics"`
		Attachments struct {
			MediaKeys []string `json:"media_keys"`
		} `json:"attachments"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
		Media []struct {
			MediaKey        string `json:"media_key"`
			PreviewImageURL string `json:"preview_image_url"`
			URL             string `json:"url"`
		} `json:"media"`
	} `json:"includes"`
}

func (c *Client) handleAPIError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return &retry.RateLimitError{
			Platform:   "X",
			StatusCode: resp.StatusCode,
			RetryAfter: resp.Header.Get("x-rate-limit-reset"),
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("X API authentication failed - check the configured bearer token (status %d)", resp.StatusCode)
	default:
		return fmt.Errorf("X API error (status %d)", resp.StatusCode)
	}
}
