package services

import (
	"fmt"
	"strings"
	"time"

	"listen-history/models"
	"listen-history/utils"
)

// ReportOptions controls what Generate includes.
type ReportOptions struct {
	Period PeriodSelector
	TopN   int
	Now    time.Time
}

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate filters the full dataset to the requested period and computes
// every summary table over that subset.
func (s *InsightService) Generate(full models.Dataset, opts ReportOptions) *models.InsightReport {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	subset := FilterByPeriod(full, opts.Period, opts.Now)

	report := &models.InsightReport{
		Period:       opts.Period.String(),
		Metrics:      MetricsStrip(subset),
		Highlights:   Highlights(subset),
		TopArtists:   TopArtists(subset, opts.TopN),
		TopSongs:     TopSongs(subset, opts.TopN),
		DayOfWeek:    DayOfWeekHistogram(subset),
		TimeOfDay:    TimeOfDayHistogram(subset),
		Heatmap:      HourDayHeatmap(subset),
		Timeline:     ListensPerDay(subset),
		Diversity:    Diversity(subset),
		GeneratedAt:  opts.Now,
		DatasetTotal: len(full),
	}

	s.logger.Debug("[insights] %s: %d of %d listens", report.Period, len(subset), len(full))
	return report
}

func (s *InsightService) Print(r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  🎵 LISTENING INSIGHTS (%s)\033[0m\n", r.Period)
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.Metrics.TotalListens == 0 {
		fmt.Printf("  No data available for the selected time period.\n")
		fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
		return
	}
	fmt.Printf("  Total listens  : \033[1m%d\033[0m\n", r.Metrics.TotalListens)
	fmt.Printf("  Artists        : \033[1m%d\033[0m\n", r.Metrics.UniqueArtists)
	fmt.Printf("  Songs          : \033[1m%d\033[0m\n", r.Metrics.UniqueSongs)
	fmt.Printf("  Per day        : \033[1m%.1f\033[0m\n", r.Metrics.AvgPerDay)
	fmt.Println()

	if h := r.Highlights; h != nil {
		fmt.Printf("\033[1;33m  Highlights\033[0m\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  Top artist     : %s (%d listens)\n", truncate(h.TopArtist, 30), h.TopArtistCount)
		fmt.Printf("  Top song       : %s by %s (%d plays)\n",
			truncate(h.TopSong, 24), truncate(h.TopSongArtist, 16), h.TopSongCount)
		fmt.Printf("  Peak day       : %s (%d listens)\n", h.PeakDay.Format("January 02, 2006"), h.PeakDayCount)
		fmt.Printf("  Favorite time  : %s (%d listens)\n", h.FavoriteTime, h.FavoriteTimeCnt)
		fmt.Println()
	}

	printRanking("Top Artists", thin, r.TopArtists)
	printRanking("Top Songs", thin, r.TopSongs)

	printBars("Listens by Day of Week", thin, r.DayOfWeek)
	printBars("Listens by Time of Day", thin, r.TimeOfDay)

	// Diversity
	fmt.Printf("\033[1;33m  Artist Diversity\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Simpson index  : \033[1;32m%.2f\033[0m (%s)\n", r.Diversity.Score, r.Diversity.Interpretation)
	fmt.Printf("  Unique artists : %d\n", r.Diversity.UniqueArtists)
	fmt.Printf("  Top artist     : %.1f%% of listens\n", round2(r.Diversity.TopArtistPct))

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func printRanking(title, thin string, entries []models.CountEntry) {
	fmt.Printf("\033[1;33m  %s\033[0m\n", title)
	fmt.Printf("  %s\n", thin)
	for i, e := range entries {
		label := e.Label
		if e.Artist != "" {
			label += " · " + e.Artist
		}
		fmt.Printf("  \033[1m%2d.\033[0m %-42s %5d\n", i+1, truncate(label, 40), e.Count)
	}
	fmt.Println()
}

func printBars(title, thin string, buckets []models.Bucket) {
	maxCount := 0
	for _, b := range buckets {
		maxCount = max(maxCount, b.Count)
	}

	fmt.Printf("\033[1;33m  %s\033[0m\n", title)
	fmt.Printf("  %s\n", thin)
	for _, b := range buckets {
		width := 0
		if maxCount > 0 {
			width = b.Count * 30 / maxCount
		}
		fmt.Printf("  %-10s %s (%d)\n", b.Label, strings.Repeat("█", width), b.Count)
	}
	fmt.Println()
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}
