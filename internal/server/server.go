// Package server exposes the aggregated collection and subscription intake over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gauthierbraillon/viraldaily/internal/aggregator"
	"github.com/gauthierbraillon/viraldaily/internal/cache"
	"github.com/gauthierbraillon/viraldaily/internal/publish"
	"github.com/gauthierbraillon/viraldaily/internal/subscription"
	"github.com/gauthierbraillon/viraldaily/internal/video"
)

const (
	defaultLimit    = 10
	maxLimit        = 100
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// Runner produces a ranked collection. *aggregator.Aggregator implements it.
type Runner interface {
	Run(ctx context.Context, opts aggregator.FeedOptions) ([]video.Video, error)
}

// Option configures a Server.
type Option func(*Server)

// WithCache serves repeated queries from c for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Server) {
		s.cache = c
		s.ttl = ttl
	}
}

// WithSink sets where accepted subscriptions go.
func WithSink(sink subscription.Sink) Option {
	return func(s *Server) {
		s.sink = sink
	}
}

// WithClock sets the time source for response dates and subscription timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// Server holds the handlers' dependencies.
type Server struct {
	runner Runner
	cache  cache.Cache
	ttl    time.Duration
	sink   subscription.Sink
	now    func() time.Time
	logger *slog.Logger
}

// New creates a Server over runner. Without options it uses an in-memory cache with a
// 15 minute ttl and logs subscriptions.
func New(runner Runner, opts ...Option) *Server {
	s := &Server{
		runner: runner,
		cache:  cache.NewMemory(),
		ttl:    15 * time.Minute,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sink == nil {
		s.sink = subscription.LogSink{Logger: s.logger}
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/{$}", s.handleRoot)
	mux.HandleFunc("GET /api/videos", s.handleVideos)
	mux.HandleFunc("GET /api/videos/page", s.handlePage)
	mux.HandleFunc("POST /api/subscribe", s.handleSubscribe)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "viraldaily API: GET /api/videos for today's viral videos"})
}

type videosResponse struct {
	Videos   []publish.Record `json:"videos"`
	Total    int              `json:"total"`
	Platform *video.Platform  `json:"platform"`
	Date     string           `json:"date"`
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	opts, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := fmt.Sprintf("videos:%s:%d", platformKey(opts.Platform), opts.Limit)
	body, err := s.cached(r.Context(), key, func(ctx context.Context) ([]byte, error) {
		videos, err := s.runner.Run(ctx, opts)
		if err != nil {
			return nil, err
		}
		resp := videosResponse{
			Videos: publish.Records(videos),
			Total:  len(videos),
			Date:   s.now().UTC().Format(time.RFC3339),
		}
		if opts.Platform != "" {
			p := opts.Platform
			resp.Platform = &p
		}
		return json.Marshal(resp)
	})
	if err != nil {
		s.runError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	opts, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if r.URL.Query().Get("limit") == "" {
		opts.Limit = 0
	}

	page := publish.New(publish.FormatHTML, publish.WithClock(s.now))
	key := fmt.Sprintf("page:%s:%d", platformKey(opts.Platform), opts.Limit)
	body, err := s.cached(r.Context(), key, func(ctx context.Context) ([]byte, error) {
		videos, err := s.runner.Run(ctx, opts)
		if err != nil {
			return nil, err
		}
		return page.Render(videos)
	})
	if err != nil {
		s.runError(w, err)
		return
	}

	w.Header().Set("Content-Type", page.ContentType())
	_, _ = w.Write(body)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscription.Create
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON subscription")
		return
	}

	sub, err := subscription.New(req, s.now())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.sink.Deliver(r.Context(), sub); err != nil {
		s.logger.Error("Subscription sink failed", "id", sub.ID, "error", err)
		writeError(w, http.StatusBadGateway, "subscription could not be recorded")
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

// cached returns the value under key, computing and storing it on a miss.
// Cache failures degrade to computing the value. Values computed after ctx is
// done are returned but not stored.
func (s *Server) cached(ctx context.Context, key string, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	if s.cache != nil {
		body, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("Cache read failed", "key", key, "error", err)
		} else if ok {
			return body, nil
		}
	}

	body, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	// A cancelled request only saw fallback lists.
	if ctx.Err() != nil {
		s.logger.Debug("Request ended before the run finished, not caching", "key", key, "error", ctx.Err())
		return body, nil
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, body, s.ttl); err != nil {
			s.logger.Warn("Cache write failed", "key", key, "error", err)
		}
	}
	return body, nil
}

func (s *Server) runError(w http.ResponseWriter, err error) {
	if errors.Is(err, video.ErrUnknownPlatform) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error("Aggregation failed", "error", err)
	writeError(w, http.StatusInternalServerError, "aggregation failed")
}

func parseQuery(r *http.Request) (aggregator.FeedOptions, error) {
	q := r.URL.Query()
	opts := aggregator.FeedOptions{Limit: defaultLimit}

	if raw := q.Get("platform"); raw != "" {
		p, err := video.ParsePlatform(raw)
		if err != nil {
			return opts, err
		}
		opts.Platform = p
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			return opts, fmt.Errorf("limit must be an integer between 1 and %d", maxLimit)
		}
		opts.Limit = n
	}
	return opts, nil
}

func platformKey(p video.Platform) string {
	if p == "" {
		return "all"
	}
	return string(p)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
