// Package shot turns a tweet's DOM snapshot into an image: it renders
// the TweetData into a themed off-screen card, rasterizes it, and
// offers PNG save, PDF export and clipboard copy.
package shot

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/tweetlens/tweetlens/pkg/locator"
)

// CardWidth is the rasterized card width in pixels.
const CardWidth = 560

// Rasterizer renders an HTML document into a PNG. The playwright
// driver provides the real implementation; tests stub it.
type Rasterizer interface {
	Rasterize(ctx context.Context, html string, width int) ([]byte, error)
}

// Options configure one capture.
type Options struct {
	Theme     Theme
	Watermark string

	// PageBackground and OSPrefersDark feed ThemeAuto resolution.
	PageBackground string
	OSPrefersDark  bool
}

// Generator produces tweet screenshots.
type Generator struct {
	rasterizer Rasterizer
}

// NewGenerator creates a screenshot generator.
func NewGenerator(rasterizer Rasterizer) *Generator {
	return &Generator{rasterizer: rasterizer}
}

// Capture renders the tweet into a themed card and rasterizes it to
// PNG bytes.
func (g *Generator) Capture(ctx context.Context, data *locator.TweetData, opts Options) ([]byte, error) {
	theme := ResolveTheme(opts.Theme, opts.PageBackground, opts.OSPrefersDark)
	card, err := RenderCard(data, theme, opts.Watermark)
	if err != nil {
		return nil, err
	}
	png, err := g.rasterizer.Rasterize(ctx, card, CardWidth)
	if err != nil {
		return nil, fmt.Errorf("rasterize tweet card: %w", err)
	}
	return png, nil
}

// SavePNG writes the image to path.
func SavePNG(png []byte, path string) error {
	if err := os.WriteFile(path, png, 0644); err != nil {
		return fmt.Errorf("save screenshot: %w", err)
	}
	return nil
}

// CopyToClipboard places the image on the clipboard as a PNG data URL.
// The clipboard boundary is text-based, and a data URL pastes usably
// into anything that accepts one.
func CopyToClipboard(png []byte) error {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	if err := clipboard.WriteAll(dataURL); err != nil {
		return fmt.Errorf("copy screenshot to clipboard: %w", err)
	}
	return nil
}

// ExportPDF wraps the PNG into a single-page PDF at outPath.
func ExportPDF(png []byte, outPath string) error {
	tmp, err := os.CreateTemp("", "tweetlens-shot-*.png")
	if err != nil {
		return fmt.Errorf("stage screenshot for PDF export: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(png); err != nil {
		tmp.Close()
		return fmt.Errorf("stage screenshot for PDF export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("stage screenshot for PDF export: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0750); err != nil {
		return fmt.Errorf("create PDF output directory: %w", err)
	}
	if err := api.ImportImagesFile([]string{tmpPath}, outPath, nil, nil); err != nil {
		return fmt.Errorf("export screenshot as PDF: %w", err)
	}
	return nil
}
