package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"listen-history/config"
	"listen-history/metrics"
	"listen-history/models"
	"listen-history/scraper/sheets"
	"listen-history/services"
	"listen-history/storage"
	"listen-history/utils"
)

// app bundles the components every command needs.
type app struct {
	cfg       *config.Config
	logger    *utils.Logger
	metrics   *metrics.Metrics
	store     *storage.CSVStore
	cache     *services.CacheManager
	summaries *services.SummaryService
	mirror    *storage.PostgresWriter
	redis     *redis.Client
}

// newApp wires storage, fetcher, cache and optional backends from cfg.
// Optional backends that cannot be reached are logged and skipped.
func newApp(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*app, error) {
	store, err := storage.NewCSVStore(cfg.ProcessedPath(), cfg.RawPath())
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(prometheus.NewRegistry()),
		store:   store,
	}

	cacheOpts := []services.CacheOption{
		services.WithTTL(cfg.CacheTTL),
		services.WithLocker(storage.NewFileLock(cfg.ProcessedPath() + ".lock")),
		services.WithObserver(a.metrics),
	}

	if cfg.PostgresEnabled {
		pw, err := storage.NewPostgresWriter(ctx, cfg.DSN())
		if err != nil {
			logger.Warn("[app] PostgreSQL mirror disabled: %v", err)
		} else {
			a.mirror = pw
			cacheOpts = append(cacheOpts, services.WithMirror(pw))
			logger.Info("[app] Mirroring dataset to PostgreSQL (table: listens)")
		}
	}

	fetcher := sheets.New(cfg, logger)
	a.cache = services.NewCacheManager(store, fetcher, cfg.SheetIDList, logger, cacheOpts...)

	summaryOpts := []services.SummaryOption{
		services.WithCacheObserver(a.metrics.ObserveSummaryCache),
	}
	if cfg.RedisEnabled {
		client, err := storage.NewRedisClient(cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("[app] Redis summary cache disabled: %v", err)
		} else {
			a.redis = client
			summaryOpts = append(summaryOpts,
				services.WithReportCache(storage.NewRedisSummaryCache(client, cfg.SummaryCacheTTL)))
			logger.Info("[app] Caching summaries in Redis at %s", cfg.RedisAddress)
		}
	}
	a.summaries = services.NewSummaryService(a.cache, logger, summaryOpts...)

	return a, nil
}

func (a *app) Close() {
	if a.mirror != nil {
		if err := a.mirror.Close(); err != nil {
			a.logger.Warn("[app] Close PostgreSQL: %v", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("[app] Close Redis: %v", err)
		}
	}
	_ = a.logger.Sync()
}

// describeError turns the typed errors into a message for the terminal.
func describeError(err error) string {
	var cfgErr *models.ConfigError
	var unavailable *models.DataUnavailableError
	var fetchErr *models.FetchError
	var validation *models.ValidationError

	switch {
	case errors.As(err, &unavailable) && errors.As(err, &cfgErr):
		return fmt.Sprintf("No data available: %s.", cfgErr.Message)
	case errors.As(err, &unavailable) && errors.As(err, &fetchErr):
		return fmt.Sprintf("No data available: could not download sheet %s (%v). Check the sheet is shared and try again.",
			fetchErr.SourceID, fetchErr.Err)
	case errors.As(err, &unavailable):
		return fmt.Sprintf("No data available: %v", unavailable.Cause)
	case errors.As(err, &cfgErr):
		return "Configuration error: " + cfgErr.Message
	case errors.As(err, &fetchErr):
		return fmt.Sprintf("Could not download sheet %s: %v", fetchErr.SourceID, fetchErr.Err)
	case errors.As(err, &validation):
		return "Unexpected sheet layout: " + validation.Message
	default:
		return err.Error()
	}
}
