// Package api serves listening summaries over HTTP as JSON.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"listen-history/models"
	"listen-history/services"
	"listen-history/utils"
)

const maxTopN = 100

// SummaryProvider generates reports over the current dataset.
type SummaryProvider interface {
	Summary(ctx context.Context, period services.PeriodSelector, top int) (*services.Summary, error)
}

// DatasetCache is the part of the cache manager the API drives directly.
type DatasetCache interface {
	Load(ctx context.Context, force bool) (*services.LoadResult, error)
	Staleness() (time.Duration, bool, error)
}

// Handler holds the HTTP handlers.
type Handler struct {
	summaries  SummaryProvider
	cache      DatasetCache
	defaultTop int
	ttl        time.Duration
	logger     *utils.Logger
}

// NewHandler creates the handlers. defaultTop is used when a request has no
// top parameter; ttl is only reported by the status endpoint.
func NewHandler(summaries SummaryProvider, cache DatasetCache, defaultTop int, ttl time.Duration, logger *utils.Logger) *Handler {
	if defaultTop <= 0 {
		defaultTop = 10
	}
	return &Handler{summaries: summaries, cache: cache, defaultTop: defaultTop, ttl: ttl, logger: logger}
}

// DatasetStatus describes the dataset a response was computed from.
type DatasetStatus struct {
	UpdatedAt time.Time `json:"updated_at"`
	Version   string    `json:"version"`
	Refreshed bool      `json:"refreshed"`
	Degraded  bool      `json:"degraded"`
	Warning   string    `json:"warning,omitempty"`
	Dropped   int       `json:"dropped_rows"`
	Rows      int       `json:"rows"`

	// SourceRows is the raw row count per sheet id.
	SourceRows map[string]int `json:"source_rows,omitempty"`
}

// SummaryResponse is the body of GET /api/summary.
type SummaryResponse struct {
	Report  *models.InsightReport `json:"report"`
	Dataset DatasetStatus         `json:"dataset"`
}

// MetricsStripResponse is the body of GET /api/metrics-strip.
type MetricsStripResponse struct {
	Period  string              `json:"period"`
	Metrics models.MetricsStrip `json:"metrics"`
	Dataset DatasetStatus       `json:"dataset"`
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Exists     bool    `json:"exists"`
	AgeSeconds float64 `json:"age_seconds"`
	TTLSeconds float64 `json:"ttl_seconds"`
	Stale      bool    `json:"stale"`
}

// GetSummary handles GET /api/summary.
func (h *Handler) GetSummary(c *gin.Context) {
	period, top, ok := h.parseQuery(c)
	if !ok {
		return
	}

	summary, err := h.summaries.Summary(c.Request.Context(), period, top)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SummaryResponse{
		Report:  summary.Report,
		Dataset: datasetStatus(summary.Load),
	})
}

// GetMetricsStrip handles GET /api/metrics-strip.
func (h *Handler) GetMetricsStrip(c *gin.Context) {
	period, top, ok := h.parseQuery(c)
	if !ok {
		return
	}

	summary, err := h.summaries.Summary(c.Request.Context(), period, top)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, MetricsStripResponse{
		Period:  summary.Report.Period,
		Metrics: summary.Report.Metrics,
		Dataset: datasetStatus(summary.Load),
	})
}

// GetStatus handles GET /api/status.
func (h *Handler) GetStatus(c *gin.Context) {
	age, exists, err := h.cache.Staleness()
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		Exists:     exists,
		AgeSeconds: age.Seconds(),
		TTLSeconds: h.ttl.Seconds(),
		Stale:      !exists || age > h.ttl,
	})
}

// PostRefresh handles POST /api/refresh. It forces a refresh and reports
// whether it succeeded or fell back to the previous dataset. The refresh
// runs to completion even if the client goes away.
func (h *Handler) PostRefresh(c *gin.Context) {
	ctx := context.WithoutCancel(c.Request.Context())
	res, err := h.cache.Load(ctx, true)
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusOK
	if res.Degraded {
		status = http.StatusAccepted
	}
	c.JSON(status, datasetStatus(res))
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) parseQuery(c *gin.Context) (services.PeriodSelector, int, bool) {
	period, err := services.ParsePeriod(c.DefaultQuery("period", "all"), c.Query("start"), c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_PERIOD"})
		return period, 0, false
	}

	top := h.defaultTop
	if raw := c.Query("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxTopN {
			c.JSON(http.StatusBadRequest, gin.H{"error": "top must be an integer between 1 and 100", "code": "INVALID_TOP"})
			return period, 0, false
		}
		top = n
	}
	return period, top, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var unavailable *models.DataUnavailableError
	var cfgErr *models.ConfigError
	switch {
	case errors.As(err, &unavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "code": "DATA_UNAVAILABLE"})
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": "CONFIG_ERROR"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error(), "code": "TIMEOUT"})
	default:
		h.logger.Error("[api] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL_ERROR"})
	}
}

func datasetStatus(res *services.LoadResult) DatasetStatus {
	if res == nil {
		return DatasetStatus{}
	}
	s := DatasetStatus{
		UpdatedAt:  res.UpdatedAt,
		Version:    res.Version(),
		Refreshed:  res.Refreshed,
		Degraded:   res.Degraded,
		Dropped:    res.Dropped,
		Rows:       len(res.Dataset),
		SourceRows: res.SourceRows,
	}
	if res.Warning != nil {
		s.Warning = res.Warning.Error()
	}
	return s
}
