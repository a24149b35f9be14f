// Package publish renders a ranked collection and persists it as a static artifact.
package publish

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gauthierbraillon/viraldaily/internal/video"
)

// Format selects the artifact encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHTML Format = "html"
)

// Stdout is the target that writes to standard output instead of a file.
const Stdout = "-"

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat converts a name such as "json" into a Format. "yml" is accepted for YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Record is the published shape of a video. Exactly one of Views, Likes or Metric is set,
// chosen by the platform's metric name.
type Record struct {
	Title     string         `json:"title" yaml:"title"`
	Author    string         `json:"author,omitempty" yaml:"author,omitempty"`
	Views     *int64         `json:"views,omitempty" yaml:"views,omitempty"`
	Likes     *int64         `json:"likes,omitempty" yaml:"likes,omitempty"`
	Metric    *int64         `json:"metric,omitempty" yaml:"metric,omitempty"`
	Thumbnail string         `json:"thumbnail" yaml:"thumbnail"`
	Link      string         `json:"link" yaml:"link"`
	Platform  video.Platform `json:"platform" yaml:"platform"`
}

// NewRecord converts v into its published shape.
func NewRecord(v video.Video) Record {
	r := Record{
		Title:     v.Title,
		Author:    v.Author,
		Thumbnail: v.Thumbnail,
		Link:      v.Link,
		Platform:  v.Platform,
	}
	metric := v.Metric
	switch video.InfoFor(v.Platform).MetricName {
	case "views":
		r.Views = &metric
	case "likes":
		r.Likes = &metric
	default:
		r.Metric = &metric
	}
	return r
}

// Records converts a collection, preserving order. The result is never nil.
func Records(videos []video.Video) []Record {
	out := make([]Record, 0, len(videos))
	for _, v := range videos {
		out = append(out, NewRecord(v))
	}
	return out
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithClock sets the time source for the HTML date header.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

// WithStdout sets the writer used for the "-" target.
func WithStdout(w io.Writer) Option {
	return func(p *Publisher) {
		p.stdout = w
	}
}

// Publisher renders collections in one format.
type Publisher struct {
	format Format
	now    func() time.Time
	stdout io.Writer
}

// New creates a Publisher for format.
func New(format Format, opts ...Option) *Publisher {
	p := &Publisher{
		format: format,
		now:    time.Now,
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Format returns the publisher's format.
func (p *Publisher) Format() Format {
	return p.format
}

// ContentType returns the media type of rendered artifacts.
func (p *Publisher) ContentType() string {
	switch p.format {
	case FormatYAML:
		return "application/yaml"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/json"
	}
}

// Render encodes videos fully in memory.
func (p *Publisher) Render(videos []video.Video) ([]byte, error) {
	switch p.format {
	case FormatJSON:
		data, err := json.MarshalIndent(Records(videos), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode JSON: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(Records(videos)); err != nil {
			return nil, fmt.Errorf("failed to encode YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to encode YAML: %w", err)
		}
		return buf.Bytes(), nil
	case FormatHTML:
		return renderHTML(videos, p.now())
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, p.format)
}

// Write renders videos to w. Nothing is written when rendering fails.
func (p *Publisher) Write(w io.Writer, videos []video.Video) error {
	data, err := p.Render(videos)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// Publish renders videos and replaces target atomically. Target "-" writes to stdout.
func (p *Publisher) Publish(videos []video.Video, target string) error {
	if target == Stdout {
		return p.Write(p.stdout, videos)
	}
	data, err := p.Render(videos)
	if err != nil {
		return err
	}
	return WriteFileAtomic(target, data, 0o644)
}
