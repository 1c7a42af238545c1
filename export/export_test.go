package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"listen-history/models"
	"listen-history/utils"
)

func sampleReport() *models.InsightReport {
	r := &models.InsightReport{
		Period:  "all time",
		Metrics: models.MetricsStrip{TotalListens: 4, UniqueArtists: 2, UniqueSongs: 3, AvgPerDay: 2},
		Highlights: &models.Highlights{
			TopArtist: "Artist <X>", TopArtistCount: 3,
			TopSong: "Song A", TopSongArtist: "Artist <X>", TopSongCount: 2,
			PeakDay: time.Date(2024, 12, 8, 0, 0, 0, 0, time.UTC), PeakDayCount: 3,
			FavoriteTime: models.Evening, FavoriteTimeCnt: 3,
		},
		TopArtists: []models.CountEntry{{Label: "Artist <X>", Count: 3}, {Label: "Artist Y", Count: 1}},
		TopSongs:   []models.CountEntry{{Label: "Song A", Artist: "Artist <X>", Count: 2}},
		DayOfWeek: []models.Bucket{
			{Label: "Monday", Count: 1}, {Label: "Tuesday"}, {Label: "Wednesday"}, {Label: "Thursday"},
			{Label: "Friday"}, {Label: "Saturday"}, {Label: "Sunday", Count: 3},
		},
		TimeOfDay: []models.Bucket{
			{Label: "Morning", Count: 1}, {Label: "Afternoon"}, {Label: "Evening", Count: 3}, {Label: "Night"},
		},
		Timeline: []models.DayCount{
			{Day: time.Date(2024, 12, 8, 0, 0, 0, 0, time.UTC), Count: 3},
			{Day: time.Date(2024, 12, 9, 0, 0, 0, 0, time.UTC), Count: 1},
		},
		Diversity:    models.DiversityReport{Score: 0.38, UniqueArtists: 2, TopArtistPct: 75, Interpretation: "Focused"},
		GeneratedAt:  time.Date(2024, 12, 10, 9, 30, 0, 0, time.UTC),
		DatasetTotal: 4,
	}
	r.Heatmap[19][6] = 3
	r.Heatmap[8][0] = 1
	return r
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Top Artists", "Top Songs", "Day of Week", "Time of Day", "Heatmap", "Timeline"}, f.GetSheetList())

	total, err := f.GetCellValue("Summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "4", total)

	artist, err := f.GetCellValue("Top Artists", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Artist <X>", artist)

	songArtist, err := f.GetCellValue("Top Songs", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Artist <X>", songArtist)

	// Row 21 is hour 19, column H is Sunday.
	heat, err := f.GetCellValue("Heatmap", "H21")
	require.NoError(t, err)
	assert.Equal(t, "3", heat)

	day, err := f.GetCellValue("Timeline", "A2")
	require.NoError(t, err)
	assert.Equal(t, "2024-12-08", day)
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "Listening insights (all time)")
	assert.Contains(t, out, "Artist &lt;X&gt;", "names must be escaped")
	assert.NotContains(t, out, "Artist <X>")
	assert.Contains(t, out, "December 08, 2024")
	assert.Contains(t, out, "Simpson index 0.38 (Focused)")
	assert.Contains(t, out, "rgba(128,0,128,1.00)")
}

func TestWriteHTMLEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, &models.InsightReport{Period: "this month"}))

	out := buf.String()
	assert.Contains(t, out, "No data available for the selected time period.")
	assert.False(t, strings.Contains(out, "Top artists"))
}

func TestFindChromeBinaryPrefersExplicit(t *testing.T) {
	assert.Equal(t, "/custom/chrome", FindChromeBinary("/custom/chrome"))

	t.Setenv("CHROME_BIN", "/env/chrome")
	assert.Equal(t, "/env/chrome", FindChromeBinary(""))
}

func TestPDFRenderer(t *testing.T) {
	if FindChromeBinary("") == "" {
		t.Skip("no Chrome/Chromium binary available")
	}
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}

	pdf, err := NewPDFRenderer("", utils.NewNopLogger()).Render(context.Background(), sampleReport())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}
