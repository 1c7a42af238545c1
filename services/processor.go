package services

import (
	"fmt"
	"strings"
	"time"

	"listen-history/models"
	"listen-history/utils"
)

const (
	// SourceDateLayout matches exports like "December 8, 2024 at 07:02PM".
	SourceDateLayout = "January 2, 2006 at 3:04PM"
	// CanonicalDateLayout is how dates are stored in the canonical file.
	CanonicalDateLayout = "2006-01-02 15:04"
)

// ColumnNames is the positional layout assigned to raw exports.
var ColumnNames = []string{"date", "title", "artist", "song_id", "link"}

// RequiredColumns must be present after positional assignment.
var RequiredColumns = []string{"date", "title", "artist", "song_id"}

// ProcessResult is the canonical dataset plus the number of raw rows that
// were dropped because their date did not parse.
type ProcessResult struct {
	Dataset models.Dataset
	Dropped int
}

// Processor transforms raw sheet rows into canonical listens.
type Processor struct {
	logger *utils.Logger
}

// NewProcessor creates a Processor with the given logger.
func NewProcessor(logger *utils.Logger) *Processor {
	return &Processor{logger: logger}
}

// Process assigns column names, parses dates, drops rows whose date does not
// parse and derives day_of_week and time_of_day. Row order is preserved.
func (p *Processor) Process(raw *models.RawTable) (*ProcessResult, error) {
	if raw == nil {
		return nil, &models.ValidationError{Message: "raw table is nil"}
	}
	if err := validateColumns(raw.Columns); err != nil {
		return nil, err
	}

	result := &ProcessResult{Dataset: make(models.Dataset, 0, len(raw.Records))}

	for _, r := range raw.Records {
		date, ok := ParseSourceDate(r.DateText)
		if !ok {
			p.logger.Debug("[processor] Dropping row with unparseable date %q (%s)", r.DateText, r.Title)
			result.Dropped++
			continue
		}
		result.Dataset = append(result.Dataset, NewListen(date, r.Title, r.Artist, r.SongID, r.Link))
	}

	p.logger.Info("[processor] Processed %d → %d listens (dropped %d)",
		len(raw.Records), len(result.Dataset), result.Dropped)
	return result, nil
}

// NewListen builds a canonical listen, deriving its calendar attributes from date.
func NewListen(date time.Time, title, artist, songID, link string) *models.Listen {
	date = date.Truncate(time.Minute)
	return &models.Listen{
		Date:      date,
		Title:     title,
		Artist:    artist,
		SongID:    songID,
		Link:      link,
		DayOfWeek: DayOfWeek(date),
		TimeOfDay: ClassifyHour(date.Hour()),
	}
}

// DayOfWeek returns the weekday with Monday=0 … Sunday=6.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ParseSourceDate parses the export date format. Surrounding whitespace is
// ignored and the AM/PM marker may be lower case. It never panics; ok is
// false when the text does not match.
func ParseSourceDate(text string) (time.Time, bool) {
	s := strings.TrimSpace(text)
	if len(s) < 2 {
		return time.Time{}, false
	}
	s = s[:len(s)-2] + strings.ToUpper(s[len(s)-2:])

	t, err := time.Parse(SourceDateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func validateColumns(columns int) error {
	if columns >= len(RequiredColumns) {
		return nil
	}
	present := ColumnNames[:max(columns, 0)]
	return &models.ValidationError{
		Message: fmt.Sprintf("data is missing required columns %v (got %v)", RequiredColumns, present),
	}
}
