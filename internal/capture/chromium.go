package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	appLog "fastcal/internal/log"
)

// Default capture parameters. The viewport fits the /calendar table at
// its widest.
const (
	DefaultWidth      = 1024
	DefaultHeight     = 1400
	DefaultTimeoutSec = 30
)

// Format selects the output encoding.
type Format string

const (
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

// FormatFromPath picks PDF for ".pdf" paths and PNG otherwise.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return FormatPDF
	}
	return FormatPNG
}

// Options defines one Chromium capture of the calendar page.
type Options struct {
	// URL to capture, e.g. "http://127.0.0.1:8080/calendar".
	URL string

	// OutputPath receives the PNG or PDF bytes.
	OutputPath string

	// Format defaults to FormatFromPath(OutputPath).
	Format Format

	// Width and Height are the viewport in pixels.
	Width  int
	Height int

	// Timeout bounds the whole capture.
	Timeout time.Duration
}

// Calendar navigates headless Chromium to opts.URL, waits for
// `[data-ready="true"]` and writes a full-page PNG or a printed PDF.
func Calendar(parentCtx context.Context, opts Options) error {
	if opts.URL == "" {
		return fmt.Errorf("capture: URL is required")
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: OutputPath is required")
	}
	if opts.Format == "" {
		opts.Format = FormatFromPath(opts.OutputPath)
	}
	if opts.Format != FormatPNG && opts.Format != FormatPDF {
		return fmt.Errorf("capture: unsupported format %q", opts.Format)
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var out []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		// let the last paint land
		chromedp.Sleep(300 * time.Millisecond),
	}
	switch opts.Format {
	case FormatPNG:
		tasks = append(tasks, chromedp.FullScreenshot(&out, 100))
	case FormatPDF:
		tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			out = buf
			return nil
		}))
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if dir := filepath.Dir(opts.OutputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("capture: create output dir: %w", err)
		}
	}
	if err := os.WriteFile(opts.OutputPath, out, 0o644); err != nil {
		return fmt.Errorf("capture: failed to write %s: %w", opts.Format, err)
	}

	appLog.Info("calendar captured", "url", opts.URL, "path", opts.OutputPath, "format", string(opts.Format), "bytes", len(out))
	return nil
}
