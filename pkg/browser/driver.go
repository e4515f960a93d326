// Package browser drives a live page through Playwright: it attaches
// to the host site, observes DOM mutations, and rasterizes screenshot
// cards. Everything above this package works on parsed snapshots; the
// driver is the only code that talks to a real browser.
package browser

import (
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/net/html"

	"github.com/tweetlens/tweetlens/pkg/dom"
	"github.com/tweetlens/tweetlens/pkg/logging"
)

const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 900
	DefaultTimeoutMillis  = 30000
)

// Options configures the browser session.
type Options struct {
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
	TimeoutMillis  float64
}

// Driver owns one Playwright browser session against the host site.
// It keeps one persistent document tree across mutation events so the
// engines' markers and injected controls survive between sweeps;
// treeMu serializes the driver's tree edits with the reconciler's
// sweeps (share it via TreeLock).
type Driver struct {
	log  *logging.Logger
	opts Options

	mu          sync.Mutex
	pw          *playwright.Playwright
	browser     playwright.Browser
	browserCtx  playwright.BrowserContext
	page        playwright.Page
	initialized bool

	treeMu sync.Mutex
	doc    *html.Node
}

// NewDriver creates an unstarted driver.
func NewDriver(opts Options, log *logging.Logger) *Driver {
	if opts.ViewportWidth == 0 {
		opts.ViewportWidth = DefaultViewportWidth
	}
	if opts.ViewportHeight == 0 {
		opts.ViewportHeight = DefaultViewportHeight
	}
	if opts.TimeoutMillis == 0 {
		opts.TimeoutMillis = DefaultTimeoutMillis
	}
	return &Driver{log: log, opts: opts}
}

// Initialize installs and starts Playwright. Must be called before
// Start. Output is discarded so the installer cannot interleave with
// the TUI dialogs.
func (d *Driver) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return nil
	}

	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	d.pw = pw
	d.initialized = true
	return nil
}

// Start launches Chromium and navigates to url.
func (d *Driver) Start(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return fmt.Errorf("driver not initialized")
	}
	if d.page != nil {
		return fmt.Errorf("session already started")
	}

	browser, err := d.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &d.opts.Headless,
	})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  d.opts.ViewportWidth,
			Height: d.opts.ViewportHeight,
		},
	})
	if err != nil {
		browser.Close()
		return fmt.Errorf("failed to create context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		return fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(d.opts.TimeoutMillis)

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		browserCtx.Close()
		browser.Close()
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}

	content, err := page.Content()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		return fmt.Errorf("failed to read page content: %w", err)
	}
	doc, err := dom.Parse(content)
	if err != nil {
		browserCtx.Close()
		browser.Close()
		return fmt.Errorf("failed to parse page content: %w", err)
	}

	d.browser = browser
	d.browserCtx = browserCtx
	d.page = page
	d.doc = doc
	return nil
}

// Document returns the persistent document tree. The reconciler and
// the mediator operate on this tree for the whole session; mutation
// events graft fresh page content into it rather than replacing it.
func (d *Driver) Document() *html.Node {
	d.treeMu.Lock()
	defer d.treeMu.Unlock()
	return d.doc
}

// TreeLock returns the lock guarding the persistent document. Hand it
// to the reconciler so sweeps and the driver's grafts never overlap.
func (d *Driver) TreeLock() sync.Locker {
	return &d.treeMu
}

// Snapshot parses the page's current markup into a fresh, detached
// document tree. Mutation handling grafts its subtrees into the
// persistent document; callers that only read may use it directly.
func (d *Driver) Snapshot() (*html.Node, error) {
	page, err := d.currentPage()
	if err != nil {
		return nil, err
	}
	content, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}
	doc, err := dom.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page content: %w", err)
	}
	return doc, nil
}

// PageBackground returns the computed background color of the page
// body, used to resolve the automatic screenshot theme.
func (d *Driver) PageBackground() (string, error) {
	page, err := d.currentPage()
	if err != nil {
		return "", err
	}
	result, err := page.Evaluate("getComputedStyle(document.body).backgroundColor")
	if err != nil {
		return "", fmt.Errorf("failed to read page background: %w", err)
	}
	background, _ := result.(string)
	return background, nil
}

// URL returns the page's current location.
func (d *Driver) URL() (string, error) {
	page, err := d.currentPage()
	if err != nil {
		return "", err
	}
	return page.URL(), nil
}

func (d *Driver) currentPage() (playwright.Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.page == nil {
		return nil, fmt.Errorf("session not started")
	}
	return d.page, nil
}

// Close tears down the session and the Playwright runtime.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.browserCtx != nil {
		keep(d.browserCtx.Close())
		d.browserCtx = nil
		d.page = nil
	}
	if d.browser != nil {
		keep(d.browser.Close())
		d.browser = nil
	}
	if d.pw != nil {
		keep(d.pw.Stop())
		d.pw = nil
		d.initialized = false
	}

	if firstErr != nil {
		return fmt.Errorf("failed to close browser session: %w", firstErr)
	}
	return nil
}
