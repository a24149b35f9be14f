// Package display provides terminal output formatting for viraldaily.
package display

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gauthierbraillon/viraldaily/internal/aggregator"
	"github.com/gauthierbraillon/viraldaily/internal/video"
)

const (
	separator     = " • "
	maxTitleWidth = 80
)

type styles struct {
	platform lipgloss.Style
	title    lipgloss.Style
	metric   lipgloss.Style
	meta     lipgloss.Style
	warn     lipgloss.Style
}

func plainStyles() styles {
	s := lipgloss.NewStyle()
	return styles{platform: s, title: s, metric: s, meta: s, warn: s}
}

func colorStyles() styles {
	return styles{
		platform: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("110")),
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("254")),
		metric:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		meta:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		warn:     lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
}

// TerminalFormatter formats ranked videos for terminal display.
type TerminalFormatter struct {
	styles styles
}

// NewTerminalFormatter creates a formatter that emits plain text.
func NewTerminalFormatter() *TerminalFormatter {
	return &TerminalFormatter{styles: plainStyles()}
}

// NewStyledFormatter creates a formatter that colours its output with lipgloss.
func NewStyledFormatter() *TerminalFormatter {
	return &TerminalFormatter{styles: colorStyles()}
}

// FormatItem formats a single video for display.
func (f *TerminalFormatter) FormatItem(rank int, v video.Video) string {
	var lines []string
	info := video.InfoFor(v.Platform)

	// Header: 1. [YOUTUBE] Title
	header := fmt.Sprintf("%d. %s %s",
		rank,
		f.styles.platform.Render("["+strings.ToUpper(info.Name)+"]"),
		f.styles.title.Render(f.TruncateText(v.Label(), maxTitleWidth)),
	)
	lines = append(lines, header)

	meta := "  " + f.styles.metric.Render(FormatCount(v.Metric)+" "+info.MetricName)
	if v.Author != "" && v.Author != v.Label() {
		meta += separator + "by " + v.Author
	}
	lines = append(lines, meta)

	if v.Link != "" {
		lines = append(lines, "  "+f.styles.meta.Render(v.Link))
	}

	return strings.Join(lines, "\n") + "\n"
}

// FormatFeed formats a ranked collection for display.
func (f *TerminalFormatter) FormatFeed(videos []video.Video) string {
	if len(videos) == 0 {
		return "No videos to display.\n"
	}

	formatted := make([]string, 0, len(videos))
	for i, v := range videos {
		formatted = append(formatted, f.FormatItem(i+1, v))
	}

	return strings.Join(formatted, "\n")
}

// FormatSummary formats the per-platform outcome of a run, one line per platform.
func (f *TerminalFormatter) FormatSummary(summary []aggregator.SourceSummary) string {
	var b strings.Builder
	for _, s := range summary {
		line := fmt.Sprintf("%-10s %2d videos", video.InfoFor(s.Platform).Name, s.Count)
		if s.Fallback {
			line += separator + f.styles.warn.Render("fallback")
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// FormatCount renders n with thousands separators, e.g. 1,500,000.
func FormatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// TruncateText truncates text to maxLen runes, adding "..." if truncated.
func (f *TerminalFormatter) TruncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(runes[:maxLen-3]) + "..."
}
