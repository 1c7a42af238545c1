package models

import "time"

// TimeOfDay is the coarse part of the day a listen happened in.
type TimeOfDay string

const (
	Morning   TimeOfDay = "Morning"
	Afternoon TimeOfDay = "Afternoon"
	Evening   TimeOfDay = "Evening"
	Night     TimeOfDay = "Night"
)

// TimesOfDay lists every TimeOfDay in display order.
var TimesOfDay = []TimeOfDay{Morning, Afternoon, Evening, Night}

// DayNames maps DayOfWeek (Monday=0) to its English name.
var DayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// RawRecord is one headerless row exactly as the sheet export delivers it.
// This is written to the raw backup file before any parsing.
type RawRecord struct {
	DateText string
	Title    string
	Artist   string
	SongID   string
	Link     string
}

// RawTable is the concatenation of every fetched source, in source order.
type RawTable struct {
	// Columns is the width of the narrowest non-blank row across all exports.
	Columns int
	Records []RawRecord
	// SourceRows holds the row count contributed by each source id.
	SourceRows map[string]int
}

// Len returns the number of raw rows.
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// RefreshStats describes the refresh that produced the canonical dataset.
// It is stored next to the dataset so it survives restarts.
type RefreshStats struct {
	RawRows     int            `json:"raw_rows"`
	Dropped     int            `json:"dropped_rows"`
	SourceRows  map[string]int `json:"source_rows"`
	RefreshedAt time.Time      `json:"refreshed_at"`
}

// Listen is one canonical listening event.
type Listen struct {
	Date      time.Time
	Title     string
	Artist    string
	SongID    string
	Link      string
	DayOfWeek int
	TimeOfDay TimeOfDay
}

// Hour returns the hour of day the listen started in.
func (l *Listen) Hour() int {
	return l.Date.Hour()
}

// Dataset is the ordered canonical table every view reads from.
type Dataset []*Listen
