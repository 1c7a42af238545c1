package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"listen-history/models"
	"listen-history/utils"
)

// ErrNoBrowser is returned when no Chrome or Chromium binary can be found.
var ErrNoBrowser = errors.New("pdf: no Chrome/Chromium binary found (set CHROME_BIN)")

// PDFRenderer prints the HTML report with a headless browser.
type PDFRenderer struct {
	chromeBin string
	timeout   time.Duration
	logger    *utils.Logger
}

// NewPDFRenderer creates a renderer. chromeBin may be empty, in which case
// the usual install locations are searched.
func NewPDFRenderer(chromeBin string, logger *utils.Logger) *PDFRenderer {
	return &PDFRenderer{chromeBin: chromeBin, timeout: 60 * time.Second, logger: logger}
}

// Render returns r as a PDF document.
func (p *PDFRenderer) Render(ctx context.Context, r *models.InsightReport) ([]byte, error) {
	chromeBin := FindChromeBinary(p.chromeBin)
	if chromeBin == "" {
		return nil, ErrNoBrowser
	}
	p.logger.Info("[pdf] Using browser binary: %s", chromeBin)

	var html bytes.Buffer
	if err := WriteHTML(&html, r); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "listen-history-report-*")
	if err != nil {
		return nil, fmt.Errorf("pdf: create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	htmlPath := filepath.Join(dir, "report.html")
	if err := os.WriteFile(htmlPath, html.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("pdf: write html: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.ExecPath(chromeBin),
	)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("file://"+htmlPath),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("pdf: print report: %w", err)
	}

	p.logger.Info("[pdf] Rendered %d bytes", len(pdf))
	return pdf, nil
}

// FindChromeBinary locates a Chrome/Chromium binary. An explicit path wins,
// then CHROME_BIN, then PATH and the common install locations.
func FindChromeBinary(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
