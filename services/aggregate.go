package services

import (
	"sort"
	"strconv"
	"time"

	"listen-history/models"
)

// Diversity interpretation thresholds, checked from the top down.
var diversityBands = []struct {
	min   float64
	label string
}{
	{0.8, "Very Diverse"},
	{0.6, "Diverse"},
	{0.4, "Moderate"},
}

type groupKey struct {
	label  string
	artist string
}

// topN counts listens per key, sorts descending by count and keeps the first
// n. Ties keep the order in which keys were first seen. n <= 0 keeps all.
func topN(ds models.Dataset, n int, key func(l *models.Listen) groupKey) []models.CountEntry {
	index := make(map[groupKey]int)
	entries := make([]models.CountEntry, 0)

	for _, l := range ds {
		k := key(l)
		i, ok := index[k]
		if !ok {
			i = len(entries)
			index[k] = i
			entries = append(entries, models.CountEntry{Label: k.label, Artist: k.artist})
		}
		entries[i].Count++
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})

	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// countBuckets fills a fixed set of buckets; every bucket is always present.
func countBuckets(ds models.Dataset, labels []string, bucket func(l *models.Listen) int) []models.Bucket {
	out := make([]models.Bucket, len(labels))
	for i, label := range labels {
		out[i].Label = label
	}
	for _, l := range ds {
		if i := bucket(l); i >= 0 && i < len(out) {
			out[i].Count++
		}
	}
	return out
}

// TopArtists returns the n most played artists.
func TopArtists(ds models.Dataset, n int) []models.CountEntry {
	return topN(ds, n, func(l *models.Listen) groupKey {
		return groupKey{label: l.Artist}
	})
}

// TopSongs returns the n most played (title, artist) pairs.
func TopSongs(ds models.Dataset, n int) []models.CountEntry {
	return topN(ds, n, func(l *models.Listen) groupKey {
		return groupKey{label: l.Title, artist: l.Artist}
	})
}

// DayOfWeekHistogram counts listens Monday through Sunday.
func DayOfWeekHistogram(ds models.Dataset) []models.Bucket {
	return countBuckets(ds, models.DayNames[:], func(l *models.Listen) int {
		return l.DayOfWeek
	})
}

// TimeOfDayHistogram counts listens per part of the day in display order.
func TimeOfDayHistogram(ds models.Dataset) []models.Bucket {
	labels := make([]string, len(models.TimesOfDay))
	pos := make(map[models.TimeOfDay]int, len(models.TimesOfDay))
	for i, tod := range models.TimesOfDay {
		labels[i] = string(tod)
		pos[tod] = i
	}
	return countBuckets(ds, labels, func(l *models.Listen) int {
		if i, ok := pos[l.TimeOfDay]; ok {
			return i
		}
		return -1
	})
}

// HourDayHeatmap counts listens per (hour, day of week).
func HourDayHeatmap(ds models.Dataset) models.Heatmap {
	var labels [24 * 7]string
	for i := range labels {
		labels[i] = strconv.Itoa(i)
	}
	flat := countBuckets(ds, labels[:], func(l *models.Listen) int {
		return l.Hour()*7 + l.DayOfWeek
	})

	var grid models.Heatmap
	for i, b := range flat {
		grid[i/7][i%7] = b.Count
	}
	return grid
}

// Diversity computes Simpson's diversity index D = 1 - Σ p_i² over the
// artist listen share. An empty subset yields the zero report.
func Diversity(ds models.Dataset) models.DiversityReport {
	if len(ds) == 0 {
		return models.DiversityReport{}
	}

	artists := TopArtists(ds, 0)
	total := float64(len(ds))

	var sumSquares float64
	for _, a := range artists {
		p := float64(a.Count) / total
		sumSquares += p * p
	}

	score := 1 - sumSquares
	report := models.DiversityReport{
		Score:          score,
		UniqueArtists:  len(artists),
		TopArtistPct:   float64(artists[0].Count) / total * 100,
		Interpretation: "Focused",
	}
	for _, band := range diversityBands {
		if score >= band.min {
			report.Interpretation = band.label
			break
		}
	}
	return report
}

// ListensPerDay returns the number of listens per calendar day, oldest first.
func ListensPerDay(ds models.Dataset) []models.DayCount {
	counts := make(map[time.Time]int)
	for _, l := range ds {
		counts[calendarDay(l.Date)]++
	}

	out := make([]models.DayCount, 0, len(counts))
	for day, n := range counts {
		out = append(out, models.DayCount{Day: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Day.Before(out[j].Day)
	})
	return out
}

// MetricsStrip computes total listens, distinct artists, distinct song ids
// and the average listens per day that had at least one listen.
func MetricsStrip(ds models.Dataset) models.MetricsStrip {
	if len(ds) == 0 {
		return models.MetricsStrip{}
	}

	artists := make(map[string]struct{})
	songs := make(map[string]struct{})
	days := make(map[time.Time]struct{})
	for _, l := range ds {
		artists[l.Artist] = struct{}{}
		songs[l.SongID] = struct{}{}
		days[calendarDay(l.Date)] = struct{}{}
	}

	return models.MetricsStrip{
		TotalListens:  len(ds),
		UniqueArtists: len(artists),
		UniqueSongs:   len(songs),
		AvgPerDay:     float64(len(ds)) / float64(len(days)),
	}
}

// Highlights picks the overview facts. It returns nil for an empty subset.
// Peak-day ties go to the earliest day, time-of-day ties to the earlier part
// of the day.
func Highlights(ds models.Dataset) *models.Highlights {
	if len(ds) == 0 {
		return nil
	}

	h := &models.Highlights{}

	if a := TopArtists(ds, 1); len(a) == 1 {
		h.TopArtist, h.TopArtistCount = a[0].Label, a[0].Count
	}
	if s := TopSongs(ds, 1); len(s) == 1 {
		h.TopSong, h.TopSongArtist, h.TopSongCount = s[0].Label, s[0].Artist, s[0].Count
	}
	for _, d := range ListensPerDay(ds) {
		if d.Count > h.PeakDayCount {
			h.PeakDay, h.PeakDayCount = d.Day, d.Count
		}
	}
	for _, b := range TimeOfDayHistogram(ds) {
		if b.Count > h.FavoriteTimeCnt {
			h.FavoriteTime, h.FavoriteTimeCnt = models.TimeOfDay(b.Label), b.Count
		}
	}
	return h
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
