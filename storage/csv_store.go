package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"listen-history/models"
)

// DateLayout is how listen timestamps are written to the canonical file.
const DateLayout = "2006-01-02 15:04"

// CanonicalHeader is the header row of the canonical dataset file.
var CanonicalHeader = []string{"date", "title", "artist", "song_id", "link", "day_of_week", "time_of_day"}

// CSVStore owns the canonical dataset file and the raw export backup.
// It is safe for concurrent use within one process.
type CSVStore struct {
	mu        sync.Mutex
	path      string
	rawPath   string
	statsPath string
}

// NewCSVStore creates a store for the given canonical and raw file paths.
// Intermediate directories are created automatically.
func NewCSVStore(path, rawPath string) (*CSVStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create data dir: %w", err)
	}
	if rawPath != "" {
		if err := os.MkdirAll(filepath.Dir(rawPath), 0755); err != nil {
			return nil, fmt.Errorf("csv: create raw dir: %w", err)
		}
	}
	statsPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".stats.json"
	return &CSVStore{path: path, rawPath: rawPath, statsPath: statsPath}, nil
}

// Path returns the canonical file path.
func (c *CSVStore) Path() string {
	return c.path
}

// ModTime returns the last write time of the canonical file. exists is
// false when the file is missing.
func (c *CSVStore) ModTime() (modTime time.Time, exists bool, err error) {
	info, err := os.Stat(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("csv: stat %q: %w", c.path, err)
	}
	return info.ModTime(), true, nil
}

// Write replaces the canonical file with ds. The file is written to a
// temporary sibling and renamed so readers never see a partial file.
func (c *CSVStore) Write(ds models.Dataset) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return writeAtomic(c.path, func(w *csv.Writer) error {
		if err := w.Write(CanonicalHeader); err != nil {
			return fmt.Errorf("csv: write header: %w", err)
		}
		for _, l := range ds {
			row := []string{
				l.Date.Format(DateLayout),
				l.Title,
				l.Artist,
				l.SongID,
				l.Link,
				strconv.Itoa(l.DayOfWeek),
				string(l.TimeOfDay),
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("csv: write row: %w", err)
			}
		}
		return nil
	})
}

// WriteRaw replaces the raw backup with the unprocessed, headerless rows.
func (c *CSVStore) WriteRaw(table *models.RawTable) error {
	if c.rawPath == "" || table == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return writeAtomic(c.rawPath, func(w *csv.Writer) error {
		for _, r := range table.Records {
			if err := w.Write([]string{r.DateText, r.Title, r.Artist, r.SongID, r.Link}); err != nil {
				return fmt.Errorf("csv: write raw row: %w", err)
			}
		}
		return nil
	})
}

// Read loads the canonical file. Only the base columns are returned:
// DayOfWeek and TimeOfDay are left for the caller to derive again. Rows
// whose date does not parse are skipped and counted in skipped.
func (c *CSVStore) Read() (ds models.Dataset, skipped int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.path)
	if err != nil {
		return nil, 0, fmt.Errorf("csv: open %q: %w", c.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("csv: read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, name := range []string{"date", "title", "artist", "song_id"} {
		if _, ok := cols[name]; !ok {
			return nil, 0, &models.ValidationError{Message: fmt.Sprintf("canonical file %s has no %q column", c.path, name)}
		}
	}

	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	ds = make(models.Dataset, 0)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("csv: read row: %w", err)
		}

		date, perr := time.Parse(DateLayout, cell(row, "date"))
		if perr != nil {
			skipped++
			continue
		}
		ds = append(ds, &models.Listen{
			Date:   date,
			Title:  cell(row, "title"),
			Artist: cell(row, "artist"),
			SongID: cell(row, "song_id"),
			Link:   cell(row, "link"),
		})
	}
	return ds, skipped, nil
}

// WriteStats stores the refresh statistics next to the canonical file.
func (c *CSVStore) WriteStats(stats models.RefreshStats) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("csv: encode stats: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.statsPath), filepath.Base(c.statsPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("csv: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("csv: write stats: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csv: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.statsPath); err != nil {
		return fmt.Errorf("csv: replace %q: %w", c.statsPath, err)
	}
	return nil
}

// ReadStats loads the statistics of the last refresh. ok is false when none
// were recorded, e.g. for a dataset written by an older build.
func (c *CSVStore) ReadStats() (stats models.RefreshStats, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.statsPath)
	if errors.Is(err, os.ErrNotExist) {
		return stats, false, nil
	}
	if err != nil {
		return stats, false, fmt.Errorf("csv: read stats: %w", err)
	}
	if err := json.Unmarshal(data, &stats); err != nil {
		return stats, false, fmt.Errorf("csv: decode stats %q: %w", c.statsPath, err)
	}
	return stats, true, nil
}

func writeAtomic(path string, fill func(w *csv.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("csv: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := fill(w); err != nil {
		_ = tmp.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("csv: flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csv: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("csv: replace %q: %w", path, err)
	}
	return nil
}
