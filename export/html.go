package export

import (
	"fmt"
	"html/template"
	"io"

	"listen-history/models"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"day": func(i int) string { return models.DayNames[i][:3] },
	"date": func(r *models.InsightReport) string {
		return r.GeneratedAt.Format("January 02, 2006 15:04")
	},
	"shade": heatShade,
	"width": barWidth,
	"inc":   func(i int) int { return i + 1 },
}).Parse(reportHTML))

type heatCell struct {
	Count int
	Max   int
}

type reportView struct {
	*models.InsightReport
	DayMax  int
	TimeMax int
	Heat    [24][7]heatCell
}

// WriteHTML renders r as a self-contained HTML page.
func WriteHTML(w io.Writer, r *models.InsightReport) error {
	view := reportView{InsightReport: r}
	for _, b := range r.DayOfWeek {
		view.DayMax = max(view.DayMax, b.Count)
	}
	for _, b := range r.TimeOfDay {
		view.TimeMax = max(view.TimeMax, b.Count)
	}
	heatMax := 0
	for _, days := range r.Heatmap {
		for _, n := range days {
			heatMax = max(heatMax, n)
		}
	}
	for h, days := range r.Heatmap {
		for d, n := range days {
			view.Heat[h][d] = heatCell{Count: n, Max: heatMax}
		}
	}

	if err := reportTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("html: render report: %w", err)
	}
	return nil
}

// heatShade maps a count to a background colour between white and purple.
func heatShade(c heatCell) template.CSS {
	if c.Max == 0 || c.Count == 0 {
		return "#ffffff"
	}
	alpha := 0.15 + 0.85*float64(c.Count)/float64(c.Max)
	return template.CSS(fmt.Sprintf("rgba(128,0,128,%.2f)", alpha))
}

func barWidth(count, maxCount int) int {
	if maxCount == 0 {
		return 0
	}
	return count * 100 / maxCount
}

const reportHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Listening insights ({{.Period}})</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; margin: 2rem; color: #222; }
h1 { color: #800080; }
.metrics { display: flex; gap: 1rem; }
.metric { border: 1px solid #ddd; border-radius: 6px; padding: .75rem 1rem; min-width: 8rem; }
.metric b { display: block; font-size: 1.5rem; }
table { border-collapse: collapse; margin-bottom: 1.5rem; }
td, th { padding: .25rem .5rem; text-align: left; }
.bar { background: #800080; height: .8rem; }
.heat td { width: 2.2rem; text-align: center; font-size: .75rem; }
</style>
</head>
<body>
<h1>Listening insights</h1>
<p>Period: {{.Period}} &middot; generated {{date .InsightReport}}</p>
{{if eq .Metrics.TotalListens 0}}
<p>No data available for the selected time period.</p>
{{else}}
<div class="metrics">
  <div class="metric">Total listens<b>{{.Metrics.TotalListens}}</b></div>
  <div class="metric">Artists<b>{{.Metrics.UniqueArtists}}</b></div>
  <div class="metric">Songs<b>{{.Metrics.UniqueSongs}}</b></div>
  <div class="metric">Per day<b>{{printf "%.1f" .Metrics.AvgPerDay}}</b></div>
</div>
{{with .Highlights}}
<h2>Highlights</h2>
<ul>
  <li>Top artist: {{.TopArtist}} ({{.TopArtistCount}} listens)</li>
  <li>Top song: {{.TopSong}} by {{.TopSongArtist}} ({{.TopSongCount}} plays)</li>
  <li>Peak day: {{.PeakDay.Format "January 02, 2006"}} ({{.PeakDayCount}} listens)</li>
  <li>Favorite time: {{.FavoriteTime}} ({{.FavoriteTimeCnt}} listens)</li>
</ul>
{{end}}
<h2>Top artists</h2>
<table>
{{range $i, $e := .TopArtists}}<tr><td>{{inc $i}}.</td><td>{{$e.Label}}</td><td>{{$e.Count}}</td></tr>
{{end}}</table>
<h2>Top songs</h2>
<table>
{{range $i, $e := .TopSongs}}<tr><td>{{inc $i}}.</td><td>{{$e.Label}}</td><td>{{$e.Artist}}</td><td>{{$e.Count}}</td></tr>
{{end}}</table>
<h2>Listens by day of week</h2>
<table>
{{range .DayOfWeek}}<tr><td>{{.Label}}</td><td><div class="bar" style="width: {{width .Count $.DayMax}}px"></div></td><td>{{.Count}}</td></tr>
{{end}}</table>
<h2>Listens by time of day</h2>
<table>
{{range .TimeOfDay}}<tr><td>{{.Label}}</td><td><div class="bar" style="width: {{width .Count $.TimeMax}}px"></div></td><td>{{.Count}}</td></tr>
{{end}}</table>
<h2>Hour by day</h2>
<table class="heat">
<tr><th></th>{{range $d, $_ := index .Heat 0}}<th>{{day $d}}</th>{{end}}</tr>
{{range $h, $days := .Heat}}<tr><th>{{printf "%02d" $h}}</th>{{range $days}}<td style="background: {{shade .}}">{{if .Count}}{{.Count}}{{end}}</td>{{end}}</tr>
{{end}}</table>
<h2>Artist diversity</h2>
<p>Simpson index {{printf "%.2f" .Diversity.Score}} ({{.Diversity.Interpretation}}),
{{.Diversity.UniqueArtists}} unique artists, top artist {{printf "%.1f" .Diversity.TopArtistPct}}% of listens.</p>
{{end}}
</body>
</html>
`
