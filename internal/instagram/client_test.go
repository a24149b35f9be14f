package instagram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gauthierbraillon/viraldaily/internal/retry"
)

func graphServer(t *testing.T, topMedia http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v20.0/ig_hashtag_search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("user_id") != "17841" || q.Get("access_token") != "ig-token" {
			t.Errorf("hashtag search missing user id or token: %v", q)
		}
		if q.Get("q") == "nothing" {
			_, _ = w.Write([]byte(`{"data":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"1789"}]}`))
	})
	mux.HandleFunc("/v20.0/1789/top_media", topMedia)
	return httptest.NewServer(mux)
}

func TestClient_FetchTrending_HashtagTopMedia(t *testing.T) {
	server := graphServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("limit") != "10" {
			t.Errorf("expected limit=10, got %q", q.Get("limit"))
		}
		if !strings.Contains(q.Get("fields"), "like_count") {
			t.Errorf("fields should include like_count, got %q", q.Get("fields"))
		}
		_, _ = w.Write([]byte(`{"data":[
			{"id":"a","media_type":"VIDEO","media_url":"https://cdn/a.mp4","thumbnail_url":"https://cdn/a.jpg","permalink":"https://www.instagram.com/reel/a/","like_count":88000,"caption":"Best reel\n#viral #fun"},
			{"id":"b","media_type":"IMAGE","media_url":"https://cdn/b.jpg","like_count":-5},
			{"id":"c","media_type":"VIDEO","media_url":"https://cdn/c.mp4"}
		]}`))
	})
	defer server.Close()

	videos, err := NewClient("ig-token", "17841", WithBaseURL(server.URL), WithHashtag("#viral")).
		FetchTrending(context.Background(), 10)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(videos) != 3 {
		t.Fatalf("expected 3 videos, got %d", len(videos))
	}
	if videos[0].Title != "Best reel" {
		t.Errorf("title should be the first caption line, got %q", videos[0].Title)
	}
	if videos[0].Thumbnail != "https://cdn/a.jpg" || videos[0].Metric != 88000 {
		t.Errorf("unexpected first video %+v", videos[0])
	}
	if videos[1].Title != "Instagram Viral Reel" {
		t.Errorf("missing caption should use the placeholder, got %q", videos[1].Title)
	}
	if videos[1].Thumbnail != "https://cdn/b.jpg" {
		t.Errorf("image media should use media_url as thumbnail, got %q", videos[1].Thumbnail)
	}
	if videos[1].Metric != 0 {
		t.Errorf("negative like count should clamp to zero, got %d", videos[1].Metric)
	}
	if videos[1].Link != "https://instagram.com" {
		t.Errorf("missing permalink should link home, got %q", videos[1].Link)
	}
	if videos[2].Thumbnail != "https://placehold.co/150?text=IG3" {
		t.Errorf("video without thumbnail should use the placeholder, got %q", videos[2].Thumbnail)
	}
}

func TestClient_FetchTrending_UnknownHashtag(t *testing.T) {
	server := graphServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("top media should not be requested without a hashtag id")
	})
	defer server.Close()

	_, err := NewClient("ig-token", "17841", WithBaseURL(server.URL), WithHashtag("nothing")).
		FetchTrending(context.Background(), 10)

	if !errors.Is(err, ErrHashtagNotFound) {
		t.Fatalf("expected ErrHashtagNotFound, got %v", err)
	}
}

func TestClient_FetchTrending_RequiresCredentials(t *testing.T) {
	for _, c := range []*Client{NewClient("", "17841"), NewClient("ig-token", "")} {
		if _, err := c.FetchTrending(context.Background(), 10); !errors.Is(err, ErrMissingCredential) {
			t.Errorf("expected ErrMissingCredential, got %v", err)
		}
	}
}

func TestClient_FetchTrending_GraphThrottlingIsRetried(t *testing.T) {
	calls := 0
	server := graphServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"message":"Application request limit reached","code":4}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	defer server.Close()

	var slept []time.Duration
	policy := retry.Policy{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Millisecond,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		OnRetry:      func(_ int, d time.Duration) { slept = append(slept, d) },
	}

	videos, err := NewClient("ig-token", "17841", WithBaseURL(server.URL), WithRetryPolicy(policy)).
		FetchTrending(context.Background(), 10)

	if err != nil {
		t.Fatalf("throttled call should be retried, got %v", err)
	}
	if len(videos) != 0 {
		t.Errorf("expected empty result, got %d", len(videos))
	}
	if len(slept) != 1 || slept[0] != 2*time.Millisecond {
		t.Errorf("expected a single 2ms backoff, got %v", slept)
	}
}

func TestClient_FetchTrending_ReportsGraphErrorMessage(t *testing.T) {
	server := graphServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid parameter","code":100}}`))
	})
	defer server.Close()

	_, err := NewClient("ig-token", "17841", WithBaseURL(server.URL)).FetchTrending(context.Background(), 10)

	if err == nil || !strings.Contains(err.Error(), "Invalid parameter") {
		t.Fatalf("expected Graph API message in error, got %v", err)
	}
	if retry.IsRateLimited(err) {
		t.Error("parameter errors must not be classified as rate limits")
	}
}
