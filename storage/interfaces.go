package storage

import (
	"context"
	"time"

	"listen-history/models"
)

// DatasetStore is the persistence boundary for the canonical dataset.
type DatasetStore interface {
	Read() (models.Dataset, int, error)
	Write(ds models.Dataset) error
	WriteRaw(table *models.RawTable) error
	ModTime() (time.Time, bool, error)
	WriteStats(stats models.RefreshStats) error
	ReadStats() (models.RefreshStats, bool, error)
}

// ListenWriter is the interface any secondary copy of the dataset must satisfy.
type ListenWriter interface {
	Write(ctx context.Context, ds models.Dataset) error
	Close() error
}

// Locker serialises refreshes.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock() error
}

// ReportCache memoises generated reports by key.
type ReportCache interface {
	Get(ctx context.Context, key string) (*models.InsightReport, bool, error)
	Set(ctx context.Context, key string, r *models.InsightReport) error
}
