package publish

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/gauthierbraillon/viraldaily/internal/video"
)

func sample() []video.Video {
	return []video.Video{
		{Title: "Dance", Metric: 300, Thumbnail: "https://t/1", Link: "https://tiktok.com/1", Platform: video.PlatformTikTok},
		{Title: "Cats", Metric: 200, Thumbnail: "https://t/2", Link: "https://youtube.com/2", Platform: video.PlatformYouTube},
		{Title: "Thread", Author: "@clipper", Metric: 0, Thumbnail: "https://t/3", Link: "https://x.com/3", Platform: video.PlatformX},
	}
}

func fixedNow() time.Time { return time.Date(2026, 10, 14, 8, 30, 0, 0, time.UTC) }

func TestPublishJSON_RecordShape(t *testing.T) {
	data, err := New(FormatJSON).Render(sample())
	require.NoError(t, err)

	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 3)

	assert.Equal(t, float64(300), raw[0]["likes"])
	assert.NotContains(t, raw[0], "views")
	assert.NotContains(t, raw[0], "author")
	assert.Equal(t, float64(200), raw[1]["views"])
	assert.Equal(t, "youtube", raw[1]["platform"])
	assert.Equal(t, "@clipper", raw[2]["author"])
	assert.Equal(t, float64(0), raw[2]["likes"], "zero metric must still be published")
}

func TestPublishJSON_KeyOrder(t *testing.T) {
	data, err := New(FormatJSON).Render(sample()[1:2])
	require.NoError(t, err)

	s := string(data)
	order := []string{`"title"`, `"views"`, `"thumbnail"`, `"link"`, `"platform"`}
	last := -1
	for _, key := range order {
		i := strings.Index(s, key)
		require.Greater(t, i, last, "key %s out of order in %s", key, s)
		last = i
	}
}

func TestPublishJSON_EmptyCollectionIsArray(t *testing.T) {
	data, err := New(FormatJSON).Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestPublishYAML_Records(t *testing.T) {
	data, err := New(FormatYAML).Render(sample())
	require.NoError(t, err)

	var records []Record
	require.NoError(t, yaml.Unmarshal(data, &records))
	require.Len(t, records, 3)
	require.NotNil(t, records[1].Views)
	assert.Equal(t, int64(200), *records[1].Views)
	assert.Equal(t, "@clipper", records[2].Author)
}

func TestPublishHTML_TablesPerPlatformInFixedOrder(t *testing.T) {
	data, err := New(FormatHTML, WithClock(fixedNow)).Render(sample())
	require.NoError(t, err)
	s := string(data)

	assert.Contains(t, s, "Viral videos for 2026-10-14")
	assert.Equal(t, 3, strings.Count(s, "<table>"))
	yt := strings.Index(s, "<h2>YouTube</h2>")
	tt := strings.Index(s, "<h2>TikTok</h2>")
	x := strings.Index(s, "<h2>X</h2>")
	require.True(t, yt >= 0 && tt >= 0 && x >= 0, "every platform should have a section")
	assert.True(t, yt < tt && tt < x, "sections should follow platform order")
	assert.Contains(t, s, "@clipper")
	assert.NotContains(t, s, "<h2>Instagram</h2>")
}

func TestPublishHTML_EscapesContent(t *testing.T) {
	videos := []video.Video{{Title: "<script>alert(1)</script>", Metric: 1, Thumbnail: "https://t", Link: "https://l", Platform: video.PlatformYouTube}}

	data, err := New(FormatHTML, WithClock(fixedNow)).Render(videos)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "<script>alert(1)</script>")
}

func TestPublish_IsDeterministic(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []Format{FormatJSON, FormatYAML, FormatHTML} {
		p := New(f, WithClock(fixedNow))
		a := filepath.Join(dir, "a."+string(f))
		b := filepath.Join(dir, "b."+string(f))

		require.NoError(t, p.Publish(sample(), a))
		require.NoError(t, p.Publish(sample(), b))

		first, err := os.ReadFile(a)
		require.NoError(t, err)
		second, err := os.ReadFile(b)
		require.NoError(t, err)
		assert.Equal(t, first, second, "%s output should be byte-identical across runs", f)
	}
}

func TestPublish_CreatesDirectoryAndOverwrites(t *testing.T) {
	target := filepath.Join(t.TempDir(), "public", "videos.json")
	p := New(FormatJSON)

	require.NoError(t, p.Publish(sample(), target))
	require.NoError(t, p.Publish(sample()[:1], target))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw, 1)
}

func TestPublish_FailedRenderLeavesPreviousArtifact(t *testing.T) {
	target := filepath.Join(t.TempDir(), "videos.json")
	require.NoError(t, os.WriteFile(target, []byte("previous"), 0o644))

	err := New(Format("xml")).Publish(sample(), target)

	require.ErrorIs(t, err, ErrUnknownFormat)
	data, readErr := os.ReadFile(target)
	require.NoError(t, readErr)
	assert.Equal(t, "previous", string(data))
}

func TestPublish_FailedRenameLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "occupied")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "child"), 0o755))

	err := New(FormatJSON).Publish(sample(), target)

	require.Error(t, err)
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	require.Len(t, entries, 1, "temp file should be removed after a failed rename")
	assert.Equal(t, "occupied", entries[0].Name())
}

func TestPublish_DashWritesToStdout(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, New(FormatJSON, WithStdout(&buf)).Publish(sample(), Stdout))

	assert.True(t, strings.HasPrefix(buf.String(), "["))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWrite_ReportsWriterErrors(t *testing.T) {
	err := New(FormatJSON).Write(failingWriter{}, sample())
	assert.ErrorContains(t, err, "disk full")
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"json": FormatJSON, "YAML": FormatYAML, "yml": FormatYAML, "html": FormatHTML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("csv")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
