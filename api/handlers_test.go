package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listen-history/models"
	"listen-history/services"
	"listen-history/utils"
)

type mockSummaries struct {
	gotPeriod services.PeriodSelector
	gotTop    int
	err       error
}

func (m *mockSummaries) Summary(_ context.Context, period services.PeriodSelector, top int) (*services.Summary, error) {
	m.gotPeriod, m.gotTop = period, top
	if m.err != nil {
		return nil, m.err
	}
	return &services.Summary{
		Report: &models.InsightReport{
			Period:  period.String(),
			Metrics: models.MetricsStrip{TotalListens: 4, UniqueArtists: 2, UniqueSongs: 3, AvgPerDay: 2},
		},
		Load: &services.LoadResult{UpdatedAt: time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)},
	}, nil
}

type mockCache struct {
	res    *services.LoadResult
	err    error
	age    time.Duration
	exists bool
	forced bool
	ctxErr error
}

func (m *mockCache) Load(ctx context.Context, force bool) (*services.LoadResult, error) {
	m.forced = force
	m.ctxErr = ctx.Err()
	return m.res, m.err
}

func (m *mockCache) Staleness() (time.Duration, bool, error) {
	return m.age, m.exists, nil
}

type countingObserver struct {
	routes []string
}

func (o *countingObserver) ObserveRequest(route string, _ int, _ time.Duration) {
	o.routes = append(o.routes, route)
}

func setupRouter(t *testing.T, s SummaryProvider, c DatasetCache, obs RequestObserver) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := utils.NewNopLogger()
	router := gin.New()
	router.Use(RecoveryMiddleware(logger), RequestIDMiddleware(), LoggerMiddleware(logger, obs))
	SetupRoutes(router, NewHandler(s, c, 10, 24*time.Hour, logger), nil)
	return router
}

func do(t *testing.T, router *gin.Engine, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, target, http.NoBody)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetSummary(t *testing.T) {
	summaries := &mockSummaries{}
	obs := &countingObserver{}
	router := setupRouter(t, summaries, &mockCache{}, obs)

	w := do(t, router, http.MethodGet, "/api/summary?period=custom&start=2024-12-01&end=2024-12-31&top=5")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp SummaryResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "2024-12-01 to 2024-12-31", resp.Report.Period)
	assert.Equal(t, 4, resp.Report.Metrics.TotalListens)
	assert.Equal(t, 5, summaries.gotTop)
	assert.Equal(t, services.CustomRange, summaries.gotPeriod.Kind)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
	assert.Equal(t, []string{"/api/summary"}, obs.routes)
}

func TestGetSummaryDefaults(t *testing.T) {
	summaries := &mockSummaries{}
	router := setupRouter(t, summaries, &mockCache{}, nil)

	w := do(t, router, http.MethodGet, "/api/summary")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, services.AllTime, summaries.gotPeriod.Kind)
	assert.Equal(t, 10, summaries.gotTop)
}

func TestGetSummaryBadInput(t *testing.T) {
	router := setupRouter(t, &mockSummaries{}, &mockCache{}, nil)

	tests := []struct {
		name   string
		target string
	}{
		{"unknown period", "/api/summary?period=decade"},
		{"bad date", "/api/summary?period=custom&start=12/01/2024"},
		{"bad top", "/api/summary?top=abc"},
		{"top too large", "/api/summary?top=1000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodGet, tt.target)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetSummaryDataUnavailable(t *testing.T) {
	summaries := &mockSummaries{err: &models.DataUnavailableError{Cause: errors.New("offline")}}
	router := setupRouter(t, summaries, &mockCache{}, nil)

	w := do(t, router, http.MethodGet, "/api/summary")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "DATA_UNAVAILABLE")
}

func TestGetMetricsStrip(t *testing.T) {
	router := setupRouter(t, &mockSummaries{}, &mockCache{}, nil)

	w := do(t, router, http.MethodGet, "/api/metrics-strip?period=month")
	require.Equal(t, http.StatusOK, w.Code)

	var resp MetricsStripResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "this month", resp.Period)
	assert.Equal(t, 2.0, resp.Metrics.AvgPerDay)
}

func TestGetStatus(t *testing.T) {
	router := setupRouter(t, &mockSummaries{}, &mockCache{age: 25 * time.Hour, exists: true}, nil)

	w := do(t, router, http.MethodGet, "/api/status")
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Exists)
	assert.True(t, resp.Stale)
	assert.Equal(t, (24 * time.Hour).Seconds(), resp.TTLSeconds)
}

func TestPostRefresh(t *testing.T) {
	cache := &mockCache{res: &services.LoadResult{
		Refreshed:  true,
		Dataset:    models.Dataset{{Artist: "A"}},
		SourceRows: map[string]int{"sheetAAAAAAAAAA": 2},
	}}
	router := setupRouter(t, &mockSummaries{}, cache, nil)

	w := do(t, router, http.MethodPost, "/api/refresh")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, cache.forced)

	var resp DatasetStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Refreshed)
	assert.Equal(t, 1, resp.Rows)
	assert.Equal(t, map[string]int{"sheetAAAAAAAAAA": 2}, resp.SourceRows)
}

func TestPostRefreshSurvivesClientDisconnect(t *testing.T) {
	cache := &mockCache{res: &services.LoadResult{Refreshed: true}}
	router := setupRouter(t, &mockSummaries{}, cache, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/api/refresh", http.NoBody)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, cache.forced)
	assert.NoError(t, cache.ctxErr, "refresh must not inherit the request cancellation")
}

func TestPostRefreshDegraded(t *testing.T) {
	cache := &mockCache{res: &services.LoadResult{Degraded: true, Warning: errors.New("fetch failed")}}
	router := setupRouter(t, &mockSummaries{}, cache, nil)

	w := do(t, router, http.MethodPost, "/api/refresh")
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "fetch failed")
}

func TestHealth(t *testing.T) {
	router := setupRouter(t, &mockSummaries{}, &mockCache{}, nil)

	w := do(t, router, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
}
