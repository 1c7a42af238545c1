package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listen-history/models"
)

func listensBy(artists ...string) models.Dataset {
	base := time.Date(2024, 12, 9, 10, 0, 0, 0, time.UTC)
	ds := make(models.Dataset, 0, len(artists))
	for i, a := range artists {
		ds = append(ds, NewListen(base.Add(time.Duration(i)*time.Hour), "Song "+a, a, "id-"+a, ""))
	}
	return ds
}

func TestDiversitySingleArtist(t *testing.T) {
	d := Diversity(listensBy("A", "A", "A", "A"))

	assert.Equal(t, 0.0, d.Score)
	assert.Equal(t, "Focused", d.Interpretation)
	assert.Equal(t, 100.0, d.TopArtistPct)
	assert.Equal(t, 1, d.UniqueArtists)
}

func TestDiversityEvenSplit(t *testing.T) {
	d := Diversity(listensBy("A", "B", "C", "D"))

	assert.Equal(t, 0.75, d.Score)
	assert.Equal(t, "Diverse", d.Interpretation)
	assert.Equal(t, 25.0, d.TopArtistPct)
	assert.Equal(t, 4, d.UniqueArtists)
}

func TestDiversityBands(t *testing.T) {
	tests := []struct {
		name    string
		artists []string
		want    string
	}{
		{"ten even", []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}, "Very Diverse"},
		{"two even", []string{"A", "B"}, "Moderate"},
		{"skewed", []string{"A", "A", "A", "B"}, "Focused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Diversity(listensBy(tt.artists...)).Interpretation)
		})
	}
}

func TestDiversityEmpty(t *testing.T) {
	assert.Equal(t, models.DiversityReport{}, Diversity(nil))
}

func TestTopArtistsTruncatesToPresent(t *testing.T) {
	got := TopArtists(listensBy("A", "B", "A"), 10)
	require.Len(t, got, 2)
	assert.Equal(t, models.CountEntry{Label: "A", Count: 2}, got[0])
	assert.Equal(t, models.CountEntry{Label: "B", Count: 1}, got[1])
}

func TestTopArtistsStableTies(t *testing.T) {
	got := TopArtists(listensBy("C", "A", "B", "A", "B", "C", "D"), 3)
	require.Len(t, got, 3)
	assert.Equal(t, "C", got[0].Label)
	assert.Equal(t, "A", got[1].Label)
	assert.Equal(t, "B", got[2].Label)
}

func TestTopSongsGroupsByTitleAndArtist(t *testing.T) {
	base := time.Date(2024, 12, 9, 10, 0, 0, 0, time.UTC)
	ds := models.Dataset{
		NewListen(base, "Intro", "Band One", "same-id", ""),
		NewListen(base, "Intro", "Band Two", "same-id", ""),
		NewListen(base, "Intro", "Band One", "same-id", ""),
	}

	got := TopSongs(ds, 5)
	require.Len(t, got, 2)
	assert.Equal(t, models.CountEntry{Label: "Intro", Artist: "Band One", Count: 2}, got[0])
	assert.Equal(t, models.CountEntry{Label: "Intro", Artist: "Band Two", Count: 1}, got[1])
}

func TestTopNEmpty(t *testing.T) {
	assert.Empty(t, TopArtists(nil, 5))
	assert.Empty(t, TopSongs(models.Dataset{}, 5))
}

func TestHistogramsKeepAllBuckets(t *testing.T) {
	// 2024-12-09 is a Monday; one Monday morning listen.
	ds := models.Dataset{NewListen(time.Date(2024, 12, 9, 9, 0, 0, 0, time.UTC), "s", "a", "1", "")}

	days := DayOfWeekHistogram(ds)
	require.Len(t, days, 7)
	assert.Equal(t, "Monday", days[0].Label)
	assert.Equal(t, 1, days[0].Count)
	assert.Equal(t, "Sunday", days[6].Label)
	assert.Equal(t, 0, days[6].Count)

	tod := TimeOfDayHistogram(ds)
	require.Len(t, tod, 4)
	labels := []string{tod[0].Label, tod[1].Label, tod[2].Label, tod[3].Label}
	assert.Equal(t, []string{"Morning", "Afternoon", "Evening", "Night"}, labels)
	assert.Equal(t, 1, tod[0].Count)

	heat := HourDayHeatmap(ds)
	assert.Equal(t, 1, heat[9][0])
	assert.Equal(t, 0, heat[9][1])
}

func TestHistogramsEmpty(t *testing.T) {
	for _, b := range DayOfWeekHistogram(nil) {
		assert.Zero(t, b.Count)
	}
	for _, b := range TimeOfDayHistogram(nil) {
		assert.Zero(t, b.Count)
	}
	assert.Equal(t, models.Heatmap{}, HourDayHeatmap(nil))
	assert.Empty(t, ListensPerDay(nil))
	assert.Equal(t, models.MetricsStrip{}, MetricsStrip(nil))
	assert.Nil(t, Highlights(nil))
}
