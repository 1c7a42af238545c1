package models

import "time"

// CountEntry is one row of a top-N table.
type CountEntry struct {
	Label  string `json:"label"`
	Artist string `json:"artist,omitempty"`
	Count  int    `json:"count"`
}

// Bucket is one fixed histogram bucket.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Heatmap counts listens per hour (rows, 0-23) and day of week (columns, Monday=0).
type Heatmap [24][7]int

// DayCount is the number of listens on one calendar day.
type DayCount struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

// DiversityReport is Simpson's diversity index over artist listen share.
type DiversityReport struct {
	Score          float64 `json:"score"`
	UniqueArtists  int     `json:"unique_artists"`
	TopArtistPct   float64 `json:"top_artist_pct"`
	Interpretation string  `json:"interpretation"`
}

// MetricsStrip holds the four scalar statistics shown above every view.
type MetricsStrip struct {
	TotalListens  int     `json:"total_listens"`
	UniqueArtists int     `json:"unique_artists"`
	UniqueSongs   int     `json:"unique_songs"`
	AvgPerDay     float64 `json:"avg_per_day"`
}

// Highlights are the single-value facts of the overview page.
type Highlights struct {
	TopArtist       string    `json:"top_artist"`
	TopArtistCount  int       `json:"top_artist_count"`
	TopSong         string    `json:"top_song"`
	TopSongArtist   string    `json:"top_song_artist"`
	TopSongCount    int       `json:"top_song_count"`
	PeakDay         time.Time `json:"peak_day"`
	PeakDayCount    int       `json:"peak_day_count"`
	FavoriteTime    TimeOfDay `json:"favorite_time"`
	FavoriteTimeCnt int       `json:"favorite_time_count"`
}

// InsightReport holds the computed analytics over a period subset.
type InsightReport struct {
	Period       string          `json:"period"`
	Metrics      MetricsStrip    `json:"metrics"`
	Highlights   *Highlights     `json:"highlights,omitempty"`
	TopArtists   []CountEntry    `json:"top_artists"`
	TopSongs     []CountEntry    `json:"top_songs"`
	DayOfWeek    []Bucket        `json:"day_of_week"`
	TimeOfDay    []Bucket        `json:"time_of_day"`
	Heatmap      Heatmap         `json:"heatmap"`
	Timeline     []DayCount      `json:"timeline"`
	Diversity    DiversityReport `json:"diversity"`
	GeneratedAt  time.Time       `json:"generated_at"`
	DatasetTotal int             `json:"dataset_total"`
}
