// Package export renders insight reports to files: an Excel workbook, a
// standalone HTML page and a PDF snapshot of that page.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"listen-history/models"
)

const summarySheet = "Summary"

// WriteXLSX writes r as a workbook with one sheet per table.
func WriteXLSX(w io.Writer, r *models.InsightReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx: create style: %w", err)
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{summarySheet, summaryRows(r)},
		{"Top Artists", rankingRows("Artist", r.TopArtists, false)},
		{"Top Songs", rankingRows("Song", r.TopSongs, true)},
		{"Day of Week", bucketRows("Day", r.DayOfWeek)},
		{"Time of Day", bucketRows("Time of Day", r.TimeOfDay)},
		{"Heatmap", heatmapRows(r.Heatmap)},
		{"Timeline", timelineRows(r.Timeline)},
	}

	for i, s := range sheets {
		if i > 0 {
			if _, err := f.NewSheet(s.name); err != nil {
				return fmt.Errorf("xlsx: create sheet %q: %w", s.name, err)
			}
		}
		if err := writeRows(f, s.name, s.rows); err != nil {
			return err
		}
		if err := f.SetRowStyle(s.name, 1, 1, bold); err != nil {
			return fmt.Errorf("xlsx: style header of %q: %w", s.name, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx: write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("xlsx: cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx: write %q row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func summaryRows(r *models.InsightReport) [][]any {
	rows := [][]any{
		{"Metric", "Value"},
		{"Period", r.Period},
		{"Total listens", r.Metrics.TotalListens},
		{"Unique artists", r.Metrics.UniqueArtists},
		{"Unique songs", r.Metrics.UniqueSongs},
		{"Average per day", r.Metrics.AvgPerDay},
		{"Diversity score", r.Diversity.Score},
		{"Diversity", r.Diversity.Interpretation},
		{"Top artist share (%)", r.Diversity.TopArtistPct},
		{"Listens in dataset", r.DatasetTotal},
		{"Generated at", r.GeneratedAt.Format("2006-01-02 15:04")},
	}
	if h := r.Highlights; h != nil {
		rows = append(rows,
			[]any{"Top artist", fmt.Sprintf("%s (%d)", h.TopArtist, h.TopArtistCount)},
			[]any{"Top song", fmt.Sprintf("%s by %s (%d)", h.TopSong, h.TopSongArtist, h.TopSongCount)},
			[]any{"Peak day", fmt.Sprintf("%s (%d)", h.PeakDay.Format("2006-01-02"), h.PeakDayCount)},
			[]any{"Favorite time", fmt.Sprintf("%s (%d)", h.FavoriteTime, h.FavoriteTimeCnt)},
		)
	}
	return rows
}

func rankingRows(label string, entries []models.CountEntry, withArtist bool) [][]any {
	header := []any{"Rank", label}
	if withArtist {
		header = append(header, "Artist")
	}
	header = append(header, "Listens")

	rows := [][]any{header}
	for i, e := range entries {
		row := []any{i + 1, e.Label}
		if withArtist {
			row = append(row, e.Artist)
		}
		rows = append(rows, append(row, e.Count))
	}
	return rows
}

func bucketRows(label string, buckets []models.Bucket) [][]any {
	rows := [][]any{{label, "Listens"}}
	for _, b := range buckets {
		rows = append(rows, []any{b.Label, b.Count})
	}
	return rows
}

func heatmapRows(h models.Heatmap) [][]any {
	header := []any{"Hour"}
	for _, d := range models.DayNames {
		header = append(header, d)
	}
	rows := [][]any{header}
	for hour, days := range h {
		row := []any{fmt.Sprintf("%02d:00", hour)}
		for _, n := range days {
			row = append(row, n)
		}
		rows = append(rows, row)
	}
	return rows
}

func timelineRows(days []models.DayCount) [][]any {
	rows := [][]any{{"Date", "Listens"}}
	for _, d := range days {
		rows = append(rows, []any{d.Day.Format("2006-01-02"), d.Count})
	}
	return rows
}
