package publish

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/gauthierbraillon/viraldaily/internal/video"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Viral videos for {{.Date}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 2em; width: 100%; }
th, td { border: 1px solid #ddd; padding: 6px; text-align: left; }
th { background: #f4f4f4; }
td.metric { text-align: right; }
</style>
</head>
<body>
<h1>Viral videos for {{.Date}}</h1>
{{- range .Sections}}
<h2>{{.Name}}</h2>
<table>
<thead><tr><th>Title</th><th>{{.MetricName}}</th><th>Thumbnail</th><th>Link</th></tr></thead>
<tbody>
{{- range .Videos}}
<tr><td>{{.Label}}</td><td class="metric">{{.Metric}}</td><td><img src="{{.Thumbnail}}" alt="" width="150"></td><td><a href="{{.Link}}">Watch</a></td></tr>
{{- end}}
</tbody>
</table>
{{- else}}
<p>No videos today.</p>
{{- end}}
</body>
</html>
`))

type section struct {
	Name       string
	MetricName string
	Videos     []video.Video
}

type page struct {
	Date     string
	Sections []section
}

// sections groups videos by platform in the fixed platform order, keeping collection
// order inside each group. Platforms outside the known set follow in order of appearance.
func sections(videos []video.Video) []section {
	groups := make(map[video.Platform][]video.Video)
	var extra []video.Platform
	known := make(map[video.Platform]bool, len(video.Platforms))
	for _, p := range video.Platforms {
		known[p] = true
	}
	for _, v := range videos {
		if !known[v.Platform] {
			if _, seen := groups[v.Platform]; !seen {
				extra = append(extra, v.Platform)
			}
		}
		groups[v.Platform] = append(groups[v.Platform], v)
	}

	var out []section
	for _, p := range append(append([]video.Platform{}, video.Platforms...), extra...) {
		if len(groups[p]) == 0 {
			continue
		}
		info := video.InfoFor(p)
		out = append(out, section{Name: info.Name, MetricName: info.MetricName, Videos: groups[p]})
	}
	return out
}

func renderHTML(videos []video.Video, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, page{
		Date:     now.Format("2006-01-02"),
		Sections: sections(videos),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render HTML: %w", err)
	}
	return buf.Bytes(), nil
}
