package services

import (
	"context"
	"fmt"
	"time"

	"listen-history/models"
	"listen-history/storage"
	"listen-history/utils"
)

// DatasetLoader yields the canonical dataset. *CacheManager implements it.
type DatasetLoader interface {
	Load(ctx context.Context, force bool) (*LoadResult, error)
}

// Summary is a generated report together with the load it was computed from.
type Summary struct {
	Report *models.InsightReport
	Load   *LoadResult
}

// SummaryService loads the dataset and generates reports, memoising them in
// an optional ReportCache keyed by dataset version and request.
type SummaryService struct {
	loader   DatasetLoader
	insights *InsightService
	cache    storage.ReportCache
	onLookup func(hit bool)
	clock    func() time.Time
	logger   *utils.Logger
}

// SummaryOption customises a SummaryService.
type SummaryOption func(*SummaryService)

// WithReportCache memoises generated reports.
func WithReportCache(c storage.ReportCache) SummaryOption {
	return func(s *SummaryService) { s.cache = c }
}

// WithCacheObserver is called with the outcome of every memo lookup.
func WithCacheObserver(fn func(hit bool)) SummaryOption {
	return func(s *SummaryService) { s.onLookup = fn }
}

// WithSummaryClock replaces time.Now for period filtering.
func WithSummaryClock(clock func() time.Time) SummaryOption {
	return func(s *SummaryService) { s.clock = clock }
}

func NewSummaryService(loader DatasetLoader, logger *utils.Logger, opts ...SummaryOption) *SummaryService {
	s := &SummaryService{
		loader:   loader,
		insights: NewInsightService(logger),
		clock:    time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary returns the report for period over the current dataset.
func (s *SummaryService) Summary(ctx context.Context, period PeriodSelector, top int) (*Summary, error) {
	load, err := s.loader.Load(ctx, false)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	key := summaryKey(load.Version(), period, top, now)

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("[summary] Cache lookup failed: %v", err)
		}
		s.lookup(ok)
		if ok {
			return &Summary{Report: cached, Load: load}, nil
		}
	}

	report := s.insights.Generate(load.Dataset, ReportOptions{Period: period, TopN: top, Now: now})

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, report); err != nil {
			s.logger.Warn("[summary] Cache store failed: %v", err)
		}
	}
	return &Summary{Report: report, Load: load}, nil
}

func (s *SummaryService) lookup(hit bool) {
	if s.onLookup != nil {
		s.onLookup(hit)
	}
}

// summaryKey identifies a report. Relative periods include the current
// month or year so the key rolls over with the calendar.
func summaryKey(version string, p PeriodSelector, top int, now time.Time) string {
	scope := ""
	switch p.Kind {
	case CurrentMonth:
		scope = now.Format("2006-01")
	case CurrentYear:
		scope = now.Format("2006")
	case CustomRange:
		scope = p.String()
	}
	return fmt.Sprintf("%s:%s:%s:%d", version, p.Kind, scope, top)
}
