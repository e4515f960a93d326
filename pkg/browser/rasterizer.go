package browser

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// Rasterize renders markup in a scratch page and screenshots the card
// element, satisfying the screenshot generator's Rasterizer interface.
// The scratch page shares the browser context but never touches the
// observed page.
func (d *Driver) Rasterize(ctx context.Context, markup string, width int) ([]byte, error) {
	d.mu.Lock()
	browserCtx := d.browserCtx
	d.mu.Unlock()
	if browserCtx == nil {
		return nil, fmt.Errorf("session not started")
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open rasterizer page: %w", err)
	}
	defer page.Close()

	if err := page.SetViewportSize(width, d.opts.ViewportHeight); err != nil {
		return nil, fmt.Errorf("failed to size rasterizer page: %w", err)
	}
	if err := page.SetContent(markup, playwright.PageSetContentOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	}); err != nil {
		return nil, fmt.Errorf("failed to load card markup: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	card := page.Locator(".card")
	png, err := card.Screenshot(playwright.LocatorScreenshotOptions{
		Type: playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to screenshot card: %w", err)
	}
	return png, nil
}
