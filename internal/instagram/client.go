// Package instagram provides a client for the Instagram Graph API hashtag top media.
package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gauthierbraillon/viraldaily/internal/ratelimit"
	"github.com/gauthierbraillon/viraldaily/internal/retry"
	"github.com/gauthierbraillon/viraldaily/internal/video"
)

const (
	defaultBaseURL = "https://graph.facebook.com"
	defaultHashtag = "viral"
	apiVersion     = "v20.0"
	mediaFields    = "id,media_type,media_url,thumbnail_url,permalink,like_count,caption"
)

var (
	// ErrMissingCredential is returned when the access token or user id is not configured.
	ErrMissingCredential = errors.New("instagram: missing access token or user id")
	// ErrHashtagNotFound is returned when the hashtag search yields no id.
	ErrHashtagNotFound = errors.New("instagram: hashtag not found")
)

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

// WithHashtag sets the hashtag whose top media is fetched, without the leading '#'.
func WithHashtag(tag string) ClientOption {
	return func(c *Client) {
		if tag = strings.TrimPrefix(tag, "#"); tag != "" {
			c.hashtag = tag
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

// Client is an Instagram Graph API client.
type Client struct {
	accessToken string
	userID      string
	hashtag     string
	baseURL     string
	httpClient  HTTPClient
	retry       retry.Policy
	limiter     *ratelimit.Limiter
}

// NewClient creates a new Instagram client for the given business account.
func NewClient(accessToken, userID string, opts ...ClientOption) *Client {
	c := &Client{
		accessToken: accessToken,
		userID:      userID,
		hashtag:     defaultHashtag,
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
	return video.PlatformInstagram
}

// FetchTrending returns the top media of the hashtag, ranked by like count.
func (c *Client) FetchTrending(ctx context.Context, limit int) ([]video.Video, error) {
	if c.accessToken == "" || c.userID == "" {
		return nil, ErrMissingCredential
	}

	hashtagID, err := c.lookupHashtag(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("user_id", c.userID)
	params.Set("fields", mediaFields)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("access_token", c.accessToken)
	endpoint := fmt.Sprintf("%s/%s/%s/top_media?%s", c.baseURL, apiVersion, url.PathEscape(hashtagID), params.Encode())

	body, err := retry.Do(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.doRequest(ctx, endpoint)
	})
	if err != nil {
		return nil, err
	}

	var response mediaResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse Instagram media response: %w", err)
	}

	videos := make([]video.Video, 0, len(response.Data))
	for i, m := range response.Data {
		thumbnail := m.ThumbnailURL
		if thumbnail == "" && m.MediaType != "VIDEO" {
			thumbnail = m.MediaURL
		}

		videos = append(videos, video.Normalize(video.Video{
			Title:     firstLine(m.Caption),
			Metric:    m.LikeCount,
			Thumbnail: thumbnail,
			Link:      m.Permalink,
			Platform:  video.PlatformInstagram,
		}, i+1))
	}

	return videos, nil
}

func (c *Client) lookupHashtag(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("user_id", c.userID)
	params.Set("q", c.hashtag)
	params.Set("access_token", c.accessToken)
	endpoint := fmt.Sprintf("%s/%s/ig_hashtag_search?%s", c.baseURL, apiVersion, params.Encode())

	body, err := retry.Do(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.doRequest(ctx, endpoint)
	})
	if err != nil {
		return "", err
	}

	var response hashtagResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse Instagram hashtag response: %w", err)
	}
	if len(response.Data) == 0 || response.Data[0].ID == "" {
		return "", fmt.Errorf("%w: #%s", ErrHashtagNotFound, c.hashtag)
	}
	return response.Data[0].ID, nil
}

func firstLine(caption string) string {
	if i := strings.IndexByte(caption, '\n'); i >= 0 {
		caption = caption[:i]
	}
	return strings.TrimSpace(caption)
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
		return nil, fmt.Errorf("Instagram API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleAPIError(resp, body)
	}

	return body, nil
}

// API response types (private - implementation detail)

type hashtagResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

type mediaResponse struct {
	Data []struct {
		ID           string `json:"id"`
		MediaType    string `json:"media_type"`
		MediaURL     string `json:"media_url"`
		ThumbnailURL string `json:"thumbnail_url"`
		Permalink    string `json:"permalink"`
		LikeCount    int64  `json:"like_count"`
		Caption      string `json:"caption"`
	} `json:"data"`
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Graph API throttling codes, reported with status 400 or 403.
var throttleCodes = map[int]bool{4: true, 17: true, 32: true, 613: true}

func (c *Client) handleAPIError(resp *http.Response, body []byte) error {
	var ge graphError
	_ = json.Unmarshal(body, &ge)

	if resp.StatusCode == http.StatusTooManyRequests || throttleCodes[ge.Error.Code] {
		return &retry.RateLimitError{
			Platform:   "Instagram",
			StatusCode: resp.StatusCode,
			RetryAfter: resp.Header.Get("Retry-After"),
		}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("Instagram API authentication failed - check the configured access token (status %d)", resp.StatusCode)
	default:
		if ge.Error.Message != "" {
			return fmt.Errorf("Instagram API error (status %d): %s", resp.StatusCode, ge.Error.Message)
		}
		return fmt.Errorf("Instagram API error (status %d)", resp.StatusCode)
	}
}
