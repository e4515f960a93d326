package shot

import (
	"context"
	"sync"
	"time"

	"github.com/tweetlens/tweetlens/pkg/locator"
)

// DefaultPreviewDebounce is how long the previewer waits after the
// last option change before rasterizing, so editing watermark text
// does not rasterize on every keystroke.
const DefaultPreviewDebounce = 300 * time.Millisecond

// Previewer generates debounced screenshot previews. A superseded
// request is not cancelled: it resolves and is overwritten by whatever
// finishes last. A fast edit followed by a slow-resolving earlier
// request can therefore briefly flash stale content.
type Previewer struct {
	generator *Generator
	debounce  time.Duration
	deliver   func(png []byte, err error)

	mu    sync.Mutex
	timer *time.Timer
}

// NewPreviewer creates a previewer delivering results to deliver. A
// zero debounce uses DefaultPreviewDebounce.
func NewPreviewer(generator *Generator, debounce time.Duration, deliver func(png []byte, err error)) *Previewer {
	if debounce == 0 {
		debounce = DefaultPreviewDebounce
	}
	return &Previewer{generator: generator, debounce: debounce, deliver: deliver}
}

// Request schedules a preview for the given tweet and options,
// resetting the debounce window. Only the last request inside one
// window is rasterized.
func (p *Previewer) Request(ctx context.Context, data *locator.TweetData, opts Options) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.debounce, func() {
		png, err := p.generator.Capture(ctx, data, opts)
		p.deliver(png, err)
	})
}

// Stop cancels a pending (not yet started) preview.
func (p *Previewer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
	}
}
