package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_LevelFollowsVerbose(t *testing.T) {
	var buf bytes.Buffer

	quiet := New(&buf, false)
	assert.False(t, quiet.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, quiet.Enabled(context.Background(), slog.LevelInfo))

	verbose := New(&buf, true)
	assert.True(t, verbose.Enabled(context.Background(), slog.LevelDebug))
}

func TestNew_WritesMessageAndAttrs(t *testing.T) {
	var buf bytes.Buffer

	New(&buf, false).Warn("Rate limit hit, retrying", "platform", "tiktok")

	assert.Contains(t, buf.String(), "Rate limit hit, retrying")
	assert.Contains(t, buf.String(), "tiktok")
}
