package youtube

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAC400_YouTubeAPI_IgnoresUnexpectedFields(t *testing.T) {
	mockResponse := map[string]interface{}{
		"kind": "youtube#videoListResponse",
		"items": []map[string]interface{}{
			{
				"id": "abc",
				"snippet": map[string]interface{}{
					"title":              "Test Video",
					"newFieldFromGoogle": "surprise feature!",
					"anotherNewField":    []string{"we", "added", "this"},
				},
				"statistics": map[string]interface{}{"viewCount": "10", "favoriteCount": "0"},
			},
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(mockResponse)
	}))
	defer server.Close()

	videos, err := NewClient("k", WithBaseURL(server.URL)).FetchTrending(context.Background(), 10)

	if err != nil {
		t.Fatalf("user should see videos even when YouTube adds new fields, got error: %v", err)
	}
	if len(videos) != 1 || videos[0].Title != "Test Video" {
		t.Fatalf("user should see the video with unexpected fields present, got %+v", videos)
	}
}

func TestAC401_YouTubeAPI_EmptyChartIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"items": []interface{}{}})
	}))
	defer server.Close()

	videos, err := NewClient("k", WithBaseURL(server.URL)).FetchTrending(context.Background(), 10)

	if err != nil {
		t.Fatalf("empty chart should not be an error: %v", err)
	}
	if videos == nil {
		t.Fatal("should return empty slice, not nil")
	}
	if len(videos) != 0 {
		t.Errorf("expected 0 videos, got %d", len(videos))
	}
}

func TestAC402_YouTubeAPI_SubstitutesPlaceholdersForMissingFields(t *testing.T) {
	mockResponse := map[string]interface{}{
		"items": []map[string]interface{}{
			{"snippet": map[string]interface{}{}},
			{"id": "x2", "snippet": map[string]interface{}{"title": nil, "thumbnails": nil}, "statistics": nil},
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(mockResponse)
	}))
	defer server.Close()

	videos, err := NewClient("k", WithBaseURL(server.URL)).FetchTrending(context.Background(), 10)

	if err != nil {
		t.Fatalf("user should see videos even with missing fields, got error: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("expected 2 videos, got %d", len(videos))
	}
	if videos[0].Title != "YouTube Viral" {
		t.Errorf("missing title should be replaced, got %q", videos[0].Title)
	}
	if videos[0].Link != "https://youtube.com" {
		t.Errorf("missing ID should link to the YouTube home page, got %q", videos[0].Link)
	}
	if videos[1].Thumbnail != "https://placehold.co/150?text=YT2" {
		t.Errorf("missing thumbnail should be keyed by position, got %q", videos[1].Thumbnail)
	}
	for _, v := range videos {
		if err := v.Validate(); err != nil {
			t.Errorf("normalized video should be valid: %v", err)
		}
	}
}

func TestAC403_YouTubeAPI_ReturnsUserFriendlyErrorOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("Service temporarily unavailable"))
	}))
	defer server.Close()

	_, err := NewClient("k", WithBaseURL(server.URL)).FetchTrending(context.Background(), 10)

	if err == nil {
		t.Fatal("user should see error message when YouTube API is down")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "youtube") {
		t.Errorf("error should mention YouTube for clarity, got: %v", err)
	}
}

func TestAC404_YouTubeAPI_ReturnsAuthErrorOnRejectedKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewClient("bad-key", WithBaseURL(server.URL)).FetchTrending(context.Background(), 10)

	if err == nil {
		t.Fatal("user should see error when the API key is rejected")
	}
	errMsg := strings.ToLower(err.Error())
	if !strings.Contains(errMsg, "auth") && !strings.Contains(errMsg, "key") {
		t.Errorf("error should indicate a credential issue, got: %v", err)
	}
}

func TestAC406_YouTubeAPI_HandlesMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"invalid": json}`))
	}))
	defer server.Close()

	_, err := NewClient("k", WithBaseURL(server.URL)).FetchTrending(context.Background(), 10)

	if err == nil {
		t.Fatal("user should see error when YouTube returns malformed response")
	}
	if strings.Contains(err.Error(), "panic") {
		t.Error("error should be handled gracefully, not panic")
	}
}

func TestAC408_YouTubeAPI_HandlesTruncatedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items": [{"id": "abc", "snippet": {"title": "Test`))
	}))
	defer server.Close()

	_, err := NewClient("k", WithBaseURL(server.URL)).FetchTrending(context.Background(), 10)

	if err == nil {
		t.Fatal("user should see error when response is incomplete")
	}
}
