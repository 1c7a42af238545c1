package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"listen-history/models"
	"listen-history/storage"
	"listen-history/utils"
)

// DefaultTTL is how long a canonical dataset stays fresh.
const DefaultTTL = 24 * time.Hour

// SheetSource retrieves the raw export for a list of sheet ids.
type SheetSource interface {
	Fetch(ctx context.Context, ids []string) (*models.RawTable, error)
}

// RefreshObserver is told about every refresh attempt.
type RefreshObserver interface {
	ObserveRefresh(outcome string, duration time.Duration, rows, dropped int)
}

// Refresh outcomes reported to a RefreshObserver.
const (
	OutcomeRefreshed = "refreshed"
	OutcomeDegraded  = "degraded"
	OutcomeFailed    = "failed"
)

// LoadResult is what Load hands back to the caller.
type LoadResult struct {
	Dataset models.Dataset
	// Refreshed is true when the dataset was fetched during this call.
	Refreshed bool
	// Degraded is true when a refresh failed and the previous file is served.
	Degraded bool
	// Warning carries the refresh failure when Degraded is set.
	Warning error
	// Dropped counts rows discarded for unparseable dates by the refresh
	// that produced the dataset, plus any skipped when reading it back.
	Dropped int
	// SourceRows holds the raw row count each sheet contributed.
	SourceRows map[string]int
	UpdatedAt  time.Time
}

// Version identifies the dataset generation; it changes on every write.
func (r *LoadResult) Version() string {
	return strconv.FormatInt(r.UpdatedAt.UnixNano(), 36)
}

// CacheManager owns the on-disk canonical dataset. It decides when to
// refresh, runs fetch and process, and falls back to the previous file
// when a refresh fails.
type CacheManager struct {
	store     storage.DatasetStore
	source    SheetSource
	processor *Processor
	sheetIDs  func() ([]string, error)
	ttl       time.Duration
	logger    *utils.Logger

	lock     storage.Locker
	mirror   storage.ListenWriter
	observer RefreshObserver
	clock    func() time.Time

	mu          sync.Mutex
	invalidated bool
	memo        models.Dataset
	memoMod     time.Time
	memoStats   models.RefreshStats
}

// CacheOption customises a CacheManager.
type CacheOption func(*CacheManager)

// WithClock replaces time.Now for staleness decisions.
func WithClock(clock func() time.Time) CacheOption {
	return func(m *CacheManager) { m.clock = clock }
}

// WithTTL sets the freshness window.
func WithTTL(ttl time.Duration) CacheOption {
	return func(m *CacheManager) { m.ttl = ttl }
}

// WithLocker guards refresh-and-write with an inter-process lock.
func WithLocker(l storage.Locker) CacheOption {
	return func(m *CacheManager) { m.lock = l }
}

// WithMirror copies every refreshed dataset to a secondary store.
func WithMirror(w storage.ListenWriter) CacheOption {
	return func(m *CacheManager) { m.mirror = w }
}

// WithObserver reports refresh attempts, e.g. to metrics.
func WithObserver(o RefreshObserver) CacheOption {
	return func(m *CacheManager) { m.observer = o }
}

// NewCacheManager wires the cache around a store, a sheet source and the
// function that yields the configured sheet ids.
func NewCacheManager(
	store storage.DatasetStore,
	source SheetSource,
	sheetIDs func() ([]string, error),
	logger *utils.Logger,
	opts ...CacheOption,
) *CacheManager {
	m := &CacheManager{
		store:     store,
		source:    source,
		processor: NewProcessor(logger),
		sheetIDs:  sheetIDs,
		ttl:       DefaultTTL,
		logger:    logger,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Invalidate makes the next Load refresh regardless of age.
func (m *CacheManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = true
}

// Staleness returns the age of the canonical file. exists is false when
// there is no file yet.
func (m *CacheManager) Staleness() (age time.Duration, exists bool, err error) {
	modTime, exists, err := m.store.ModTime()
	if err != nil || !exists {
		return 0, exists, err
	}
	return m.clock().Sub(modTime), true, nil
}

// Load returns the canonical dataset, refreshing it first when it is
// missing, older than the TTL, invalidated or force is set. A failed refresh
// falls back to the file on disk with Degraded set; only when there is no
// file at all does Load fail, with a DataUnavailableError.
func (m *CacheManager) Load(ctx context.Context, force bool) (*LoadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	age, exists, err := m.Staleness()
	if err != nil {
		m.logger.Warn("[cache] Could not stat canonical file: %v", err)
		exists = false
	}

	forced := force || m.invalidated
	if exists && !forced && age <= m.ttl {
		res, err := m.readCurrent()
		if err == nil {
			m.logger.Debug("[cache] Serving fresh dataset (age %s)", age.Round(time.Second))
			return res, nil
		}
		m.logger.Warn("[cache] Fresh dataset unreadable, refreshing: %v", err)
		exists = false
	}

	if exists {
		m.logger.Info("[cache] Dataset is stale or refresh requested (age %s, force=%v)", age.Round(time.Second), forced)
	} else {
		m.logger.Info("[cache] No usable dataset on disk, refreshing")
	}

	start := m.clock()
	res, refreshErr := m.refresh(ctx, forced)
	if refreshErr == nil {
		m.invalidated = false
		m.observe(OutcomeRefreshed, start, len(res.Dataset), res.Dropped)
		return res, nil
	}

	if _, stillExists, _ := m.store.ModTime(); stillExists {
		prior, err := m.readCurrent()
		if err == nil {
			m.logger.Warn("[cache] Refresh failed, serving possibly stale data: %v", refreshErr)
			prior.Degraded = true
			prior.Warning = refreshErr
			m.observe(OutcomeDegraded, start, len(prior.Dataset), prior.Dropped)
			return prior, nil
		}
		m.logger.Error("[cache] Refresh failed and previous dataset is unreadable: %v", err)
		refreshErr = errors.Join(refreshErr, err)
	}

	m.observe(OutcomeFailed, start, 0, 0)
	m.logger.Error("[cache] No data available: %v", refreshErr)
	return nil, &models.DataUnavailableError{Cause: refreshErr}
}

// refresh runs fetch → process → write under the refresh lock.
func (m *CacheManager) refresh(ctx context.Context, forced bool) (*LoadResult, error) {
	log := m.logger.With("run_id", uuid.NewString())

	ids, err := m.sheetIDs()
	if err != nil {
		return nil, err
	}

	if m.lock != nil {
		if err := m.lock.Lock(ctx); err != nil {
			return nil, fmt.Errorf("cache: acquire refresh lock: %w", err)
		}
		defer func() {
			if err := m.lock.Unlock(); err != nil {
				log.Warn("[cache] Release refresh lock: %v", err)
			}
		}()

		// Another process may have refreshed while we waited.
		if !forced {
			if age, exists, err := m.Staleness(); err == nil && exists && age <= m.ttl {
				if res, err := m.readCurrent(); err == nil {
					log.Info("[cache] Dataset refreshed by another process, reusing it")
					return res, nil
				}
			}
		}
	}

	raw, err := m.source.Fetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	if err := m.store.WriteRaw(raw); err != nil {
		log.Warn("[cache] Could not write raw backup: %v", err)
	}

	processed, err := m.processor.Process(raw)
	if err != nil {
		return nil, err
	}

	if err := m.store.Write(processed.Dataset); err != nil {
		return nil, fmt.Errorf("cache: write canonical dataset: %w", err)
	}

	if m.mirror != nil {
		if err := m.mirror.Write(ctx, processed.Dataset); err != nil {
			log.Warn("[cache] Mirror write failed: %v", err)
		}
	}

	stats := models.RefreshStats{
		RawRows:     raw.Len(),
		Dropped:     processed.Dropped,
		SourceRows:  raw.SourceRows,
		RefreshedAt: m.clock(),
	}
	if err := m.store.WriteStats(stats); err != nil {
		log.Warn("[cache] Could not write refresh stats: %v", err)
	}

	updatedAt, _, err := m.store.ModTime()
	if err != nil {
		updatedAt = m.clock()
	}
	m.memo, m.memoMod, m.memoStats = processed.Dataset, updatedAt, stats

	for _, id := range ids {
		log.Info("[cache] Sheet %s: %d rows", id, raw.SourceRows[id])
	}
	log.Info("[cache] Refreshed dataset: %d listens (%d dropped)", len(processed.Dataset), processed.Dropped)
	return &LoadResult{
		Dataset:    processed.Dataset,
		Refreshed:  true,
		Dropped:    processed.Dropped,
		SourceRows: raw.SourceRows,
		UpdatedAt:  updatedAt,
	}, nil
}

// readCurrent loads the canonical file, reusing the in-memory copy when the
// file has not changed. Derived columns are always recomputed.
func (m *CacheManager) readCurrent() (*LoadResult, error) {
	modTime, exists, err := m.store.ModTime()
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("cache: canonical dataset missing")
	}

	if m.memo != nil && modTime.Equal(m.memoMod) {
		return m.memoResult(), nil
	}

	stored, skipped, err := m.store.Read()
	if err != nil {
		return nil, err
	}

	ds := make(models.Dataset, 0, len(stored))
	for _, l := range stored {
		ds = append(ds, NewListen(l.Date, l.Title, l.Artist, l.SongID, l.Link))
	}
	if skipped > 0 {
		m.logger.Warn("[cache] Skipped %d rows with unreadable dates in the canonical file", skipped)
	}

	stats, _, err := m.store.ReadStats()
	if err != nil {
		m.logger.Warn("[cache] Could not read refresh stats: %v", err)
		stats = models.RefreshStats{}
	}
	stats.Dropped += skipped

	m.memo, m.memoMod, m.memoStats = ds, modTime, stats
	return m.memoResult(), nil
}

func (m *CacheManager) memoResult() *LoadResult {
	return &LoadResult{
		Dataset:    m.memo,
		Dropped:    m.memoStats.Dropped,
		SourceRows: m.memoStats.SourceRows,
		UpdatedAt:  m.memoMod,
	}
}

func (m *CacheManager) observe(outcome string, start time.Time, rows, dropped int) {
	if m.observer == nil {
		return
	}
	m.observer.ObserveRefresh(outcome, m.clock().Sub(start), rows, dropped)
}
