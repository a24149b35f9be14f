// Package tiktok provides a client for the TikTok Research API video query.
package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gauthierbraillon/viraldaily/internal/ratelimit"
	"github.com/gauthierbraillon/viraldaily/internal/retry"
	"github.com/gauthierbraillon/viraldaily/internal/video"
)

const (
	defaultBaseURL = "https://open.tiktokapis.com"
	defaultKeyword = "viral"
	// queryWindow is how far back the query searches. The API accepts at most 30 days.
	queryWindow = 7 * 24 * time.Hour
	dateLayout  = "20060102"
	maxCount    = 100
)

var queryFields = []string{
	"id",
	"video_description",
	"like_count",
	"view_count",
	"username",
	"cover_image_url",
}

// ErrMissingCredential is returned when no access token is configured.
var ErrMissingCredential = errors.New("tiktok: missing access token")

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

// WithKeyword sets the keyword the query matches. Defaults to "viral".
func WithKeyword(keyword string) ClientOption {
	return func(c *Client) {
		if keyword != "" {
			c.keyword = keyword
		}
	}
}

// WithRegion adds a region_code condition such as "US".
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

// WithClock sets the time source used to compute the query date window.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// Client is a TikTok Research API client.
type Client struct {
	accessToken string
	keyword     string
	region      string
	baseURL     string
	httpClient  HTTPClient
	retry       retry.Policy
	limiter     *ratelimit.Limiter
	now         func() time.Time
}

// NewClient creates a new TikTok client with the given access token.
func NewClient(accessToken string, opts ...ClientOption) *Client {
	c := &Client{
		accessToken: accessToken,
		keyword:     defaultKeyword,
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{},
		retry:       retry.DefaultPolicy,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Platform identifies the records this client produces.
func (c *Client) Platform() video.Platform {
	return video.PlatformTikTok
}

// FetchTrending queries recent videos matching the keyword, ranked by like count.
func (c *Client) FetchTrending(ctx context.Context, limit int) ([]video.Video, error) {
	if c.accessToken == "" {
		return nil, ErrMissingCredential
	}
	if limit > maxCount {
		limit = maxCount
	}

	payload, err := json.Marshal(c.buildQuery(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to encode TikTok query: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v2/research/video/query/?fields=%s", c.baseURL, strings.Join(queryFields, ","))

	body, err := retry.Do(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.doRequest(ctx, endpoint, payload)
	})
	if err != nil {
		return nil, err
	}

	var response queryResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse TikTok query response: %w", err)
	}
	if response.Error.Code != "" && response.Error.Code != "ok" {
		return nil, fmt.Errorf("TikTok API error %s: %s", response.Error.Code, response.Error.Message)
	}

	videos := make([]video.Video, 0, len(response.Data.Videos))
	for i, item := range response.Data.Videos {
		link := ""
		if item.ID != "" && item.Username != "" {
			link = fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", item.Username, item.ID)
		}

		videos = append(videos, video.Normalize(video.Video{
			Title:     item.VideoDescription,
			Metric:    item.LikeCount,
			Thumbnail: item.CoverImageURL,
			Link:      link,
			Platform:  video.PlatformTikTok,
		}, i+1))
	}

	return videos, nil
}

func (c *Client) buildQuery(limit int) queryRequest {
	conditions := []condition{{
		Operation:   "IN",
		FieldName:   "keyword",
		FieldValues: []string{c.keyword},
	}}
	if c.region != "" {
		conditions = append(conditions, condition{
			Operation:   "IN",
			FieldName:   "region_code",
			FieldValues: []string{c.region},
		})
	}

	end := c.now().UTC()
	return queryRequest{
		Query:     query{And: conditions},
		MaxCount:  limit,
		StartDate: end.Add(-queryWindow).Format(dateLayout),
		EndDate:   end.Format(dateLayout),
	}
}

func (c *Client) doRequest(ctx context.Context, url string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TikTok API request failed: %w", err)
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

// API request and response types (private - implementation detail)

type condition struct {
	Operation   string   `json:"operation"`
	FieldName   string   `json:"field_name"`
	FieldValues []string `json:"field_values"`
}

type query struct {
	And []condition `json:"and"`
}

type queryRequest struct {
	Query     query  `json:"query"`
	MaxCount  int    `json:"max_count"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type queryResponse struct {
	Data struct {
		Videos []struct {
			// IDs arrive as JSON numbers beyond float64 precision.
			ID               json.Number `json:"id"`
			VideoDescription string      `json:"video_description"`
			LikeCount        int64       `json:"like_count"`
			ViewCount        int64       `json:"view_count"`
			Username         string      `json:"username"`
			CoverImageURL    string      `json:"cover_image_url"`
		} `json:"videos"`
		HasMore bool `json:"has_more"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) handleAPIError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return &retry.RateLimitError{
			Platform:   "TikTok",
			StatusCode: resp.StatusCode,
			RetryAfter: resp.Header.Get("Retry-After"),
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("TikTok API authentication failed - check the configured access token (status %d)", resp.StatusCode)
	case http.StatusBadRequest:
		return fmt.Errorf("TikTok API rejected the query (status %d)", resp.StatusCode)
	default:
		return fmt.Errorf("TikTok API error (status %d)", resp.StatusCode)
	}
}
