package sheets

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"listen-history/config"
	"listen-history/models"
	"listen-history/utils"
)

// rawColumns is the positional layout of every export:
// date, title, artist, song_id, link.
const rawColumns = 5

// idPattern guards the URL template against anything that is not a sheet id.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{10,50}$`)

// ValidateID reports whether id looks like a spreadsheet identifier.
func ValidateID(id string) bool {
	return idPattern.MatchString(id)
}

// Fetcher downloads headerless CSV exports for a list of sheet ids.
type Fetcher struct {
	client      *http.Client
	urlTemplate string
	concurrency int
	timeout     time.Duration
	logger      *utils.Logger
	retry       *utils.RetryConfig
}

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithURLTemplate sets the export URL; %s is replaced by the sheet id.
func WithURLTemplate(tmpl string) Option {
	return func(f *Fetcher) { f.urlTemplate = tmpl }
}

// New creates a ready-to-use Fetcher from configuration.
func New(cfg *config.Config, logger *utils.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{},
		urlTemplate: cfg.SheetURLTemplate,
		concurrency: cfg.MaxConcurrency,
		timeout:     cfg.FetchTimeout,
		logger:      logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryDelay,
			Logger:      logger,
		},
	}
	if f.urlTemplate == "" {
		f.urlTemplate = config.DefaultSheetURLTemplate
	}
	if f.concurrency < 1 {
		f.concurrency = 1
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch validates every id, downloads each export and concatenates the
// rows in id order. Any invalid id aborts before network access with a
// ConfigError; any failed source fails the whole batch with a FetchError.
func (f *Fetcher) Fetch(ctx context.Context, ids []string) (*models.RawTable, error) {
	if len(ids) == 0 {
		return nil, &models.ConfigError{Message: "no sheet ids configured"}
	}
	for _, id := range ids {
		if !ValidateID(id) {
			return nil, &models.ConfigError{Message: fmt.Sprintf("invalid sheet ID format: %q", id)}
		}
	}

	f.logger.Info("[sheets] Fetching %d sheet(s)", len(ids))

	results := make([]*export, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, id := range ids {
		g.Go(func() error {
			exp, err := f.fetchOne(gctx, id)
			if err != nil {
				return &models.FetchError{SourceID: id, Err: err}
			}
			results[i] = exp
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	table := &models.RawTable{
		Columns:    rawColumns,
		SourceRows: make(map[string]int, len(ids)),
	}
	for i, id := range ids {
		exp := results[i]
		table.Records = append(table.Records, exp.records...)
		table.SourceRows[id] += len(exp.records)
		if len(exp.records) > 0 && exp.width < rawColumns {
			f.logger.Warn("[sheets] Sheet %s has rows with only %d of %d columns", id, exp.width, rawColumns)
			table.Columns = min(table.Columns, exp.width)
		}
	}

	f.logger.Info("[sheets] Fetch complete: %d raw rows from %d sheet(s)", table.Len(), len(ids))
	return table, nil
}

// export is one parsed sheet. width is the narrowest non-blank row, capped
// at rawColumns.
type export struct {
	records []models.RawRecord
	width   int
}

func (f *Fetcher) fetchOne(ctx context.Context, id string) (*export, error) {
	url := fmt.Sprintf(f.urlTemplate, id)
	var exp *export

	err := f.retry.Do(ctx, "fetch-sheet-"+id, func(ctx context.Context) error {
		if f.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, f.timeout)
			defer cancel()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return utils.Permanent(fmt.Errorf("build request: %w", err))
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("get export: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("export returned status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return utils.Permanent(fmt.Errorf("export returned status %d", resp.StatusCode))
		}

		parsed, err := parseExport(resp.Body)
		if err != nil {
			return utils.Permanent(err)
		}
		exp = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.logger.Debug("[sheets] Sheet %s: %d rows, %d columns", id, len(exp.records), exp.width)
	return exp, nil
}

// parseExport reads a headerless CSV export. Surplus cells are ignored.
// Rows narrower than rawColumns are padded so they fit RawRecord, and the
// narrowest width is reported so the shape can be validated downstream.
func parseExport(r io.Reader) (*export, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	exp := &export{width: rawColumns}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse export csv: %w", err)
		}
		if isBlank(row) {
			continue
		}
		exp.width = min(exp.width, len(row))

		cells := make([]string, rawColumns)
		copy(cells, row)
		exp.records = append(exp.records, models.RawRecord{
			DateText: cells[0],
			Title:    cells[1],
			Artist:   cells[2],
			SongID:   cells[3],
			Link:     cells[4],
		})
	}
	return exp, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
