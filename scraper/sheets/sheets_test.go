package sheets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listen-history/config"
	"listen-history/models"
	"listen-history/services"
	"listen-history/utils"
)

const (
	sheetA = "sheetAAAAAAAAAA"
	sheetB = "sheetBBBBBBBBBB"
)

func newTestFetcher(t *testing.T, srv *httptest.Server) *Fetcher {
	t.Helper()
	cfg := &config.Config{
		SheetURLTemplate: srv.URL + "/d/%s/export",
		MaxConcurrency:   2,
		MaxRetries:       2,
		RetryDelay:       time.Millisecond,
		FetchTimeout:     time.Second,
	}
	return New(cfg, utils.NewNopLogger(), WithHTTPClient(srv.Client()))
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"abcdefghij", true},
		{"1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms", true},
		{"with_under-score99", true},
		{"short", false},
		{strings.Repeat("a", 51), false},
		{"abc/def/ghij", false},
		{"abcdefghij?x=1", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidateID(tt.id), "ValidateID(%q)", tt.id)
	}
}

func TestFetchConcatenatesInIDOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, sheetA):
			// Slow first source must still come first.
			time.Sleep(20 * time.Millisecond)
			_, _ = w.Write([]byte("\"December 8, 2024 at 07:02PM\",Song A,Artist X,id1,http://x\n" +
				"\"December 9, 2024 at 08:15AM\",Song B,Artist Y,id2,http://y\n"))
		case strings.Contains(r.URL.Path, sheetB):
			_, _ = w.Write([]byte("\"January 1, 2025 at 12:00AM\",Song C,Artist Z,id3\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	table, err := newTestFetcher(t, srv).Fetch(context.Background(), []string{sheetA, sheetB})
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())

	assert.Equal(t, "Song A", table.Records[0].Title)
	assert.Equal(t, "Song B", table.Records[1].Title)
	assert.Equal(t, "Song C", table.Records[2].Title)
	assert.Equal(t, "", table.Records[2].Link, "short rows are padded")
	assert.Equal(t, 2, table.SourceRows[sheetA])
	assert.Equal(t, 1, table.SourceRows[sheetB])
	assert.Equal(t, 4, table.Columns, "narrowest row decides the width")
}

func TestFetchInvalidIDFailsBeforeNetwork(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	_, err := newTestFetcher(t, srv).Fetch(context.Background(), []string{sheetA, "bad id!"})

	var cfgErr *models.ConfigError
	require.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %v", err)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestFetchEmptyIDList(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newTestFetcher(t, srv).Fetch(context.Background(), nil)
	var cfgErr *models.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestFetchOneFailingSourceFailsBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, sheetB) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("\"December 8, 2024 at 07:02PM\",Song A,Artist X,id1,http://x\n"))
	}))
	defer srv.Close()

	table, err := newTestFetcher(t, srv).Fetch(context.Background(), []string{sheetA, sheetB})
	assert.Nil(t, table)

	var fetchErr *models.FetchError
	require.True(t, errors.As(err, &fetchErr), "expected FetchError, got %v", err)
	assert.Equal(t, sheetB, fetchErr.SourceID)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("\"December 8, 2024 at 07:02PM\",Song A,Artist X,id1,http://x\n"))
	}))
	defer srv.Close()

	table, err := newTestFetcher(t, srv).Fetch(context.Background(), []string{sheetA})
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchTimeoutMapsToFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv)
	f.timeout = 20 * time.Millisecond

	_, err := f.Fetch(context.Background(), []string{sheetA})
	var fetchErr *models.FetchError
	require.True(t, errors.As(err, &fetchErr), "expected FetchError, got %v", err)
	assert.Equal(t, sheetA, fetchErr.SourceID)
}

func TestParseExportSkipsBlankRows(t *testing.T) {
	exp, err := parseExport(strings.NewReader("a,b,c,d,e,extra\n,,,,\n\nf,g,h,i,j\n"))
	require.NoError(t, err)
	require.Len(t, exp.records, 2)
	assert.Equal(t, "a", exp.records[0].DateText)
	assert.Equal(t, "e", exp.records[0].Link)
	assert.Equal(t, "f", exp.records[1].DateText)
	assert.Equal(t, 5, exp.width, "surplus cells do not widen the export")
}

func TestParseExportReportsNarrowestRow(t *testing.T) {
	exp, err := parseExport(strings.NewReader("a,b,c,d,e\nf,g\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, exp.width)

	exp, err = parseExport(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, exp.records)
	assert.Equal(t, 5, exp.width)
}

func TestShrunkExportFailsValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"two columns", "\"December 8, 2024 at 07:02PM\",Song A\n\"December 9, 2024 at 08:15AM\",Song B\n"},
		{"three columns", "\"December 8, 2024 at 07:02PM\",Song A,Artist X\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			table, err := newTestFetcher(t, srv).Fetch(context.Background(), []string{sheetA})
			require.NoError(t, err)
			assert.Less(t, table.Columns, len(services.RequiredColumns))

			_, err = services.NewProcessor(utils.NewNopLogger()).Process(table)
			var vErr *models.ValidationError
			assert.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
		})
	}
}
