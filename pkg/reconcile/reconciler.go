// Package reconcile drives the engines from a stream of observed page
// mutations. It is the module's event loop: a full sweep at startup,
// then delta-scoped sweeps per mutation batch, then one delayed full
// sweep after each client-side navigation.
package reconcile

import (
	"context"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/tweetlens/tweetlens/pkg/annotate"
	"github.com/tweetlens/tweetlens/pkg/dom"
	"github.com/tweetlens/tweetlens/pkg/inject"
	"github.com/tweetlens/tweetlens/pkg/locator"
	"github.com/tweetlens/tweetlens/pkg/logging"
	"github.com/tweetlens/tweetlens/pkg/settings"
)

// State is the reconciler's lifecycle phase.
type State string

const (
	StateIdle        State = "idle"
	StateObserving   State = "observing"
	StateReconciling State = "reconciling"
)

// DefaultNavigationDelay is how long after a navigation signal the
// full-page sweep runs, giving the new view time to render.
const DefaultNavigationDelay = 500 * time.Millisecond

// mediaAttrs are the attribute mutations worth re-probing a tweet for.
// Late-loading media flips an image src, which is the one escape hatch
// from the injection engine's single-probe policy.
var mediaAttrs = map[string]bool{"src": true}

// Reconciler wires the settings cache and the two engines to a
// mutation stream over one page document.
type Reconciler struct {
	doc         *html.Node
	cache       *settings.Cache
	annotations *annotate.Engine
	buttons     *inject.Engine
	log         *logging.Logger

	navDelay time.Duration
	// schedule defers the navigation sweep; replaced in tests.
	schedule func(d time.Duration, fn func())

	// treeLock, when set, is held for the duration of any sweep so
	// tree edits from the mutation producer and reads here never
	// interleave. Nil when the document has a single owner.
	treeLock sync.Locker

	mu    sync.Mutex
	state State
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithNavigationDelay overrides the delay before the post-navigation
// full sweep.
func WithNavigationDelay(d time.Duration) Option {
	return func(r *Reconciler) { r.navDelay = d }
}

// WithScheduler replaces the timer used for the navigation sweep.
func WithScheduler(fn func(d time.Duration, fn func())) Option {
	return func(r *Reconciler) { r.schedule = fn }
}

// WithLocker makes the reconciler hold l across every sweep. Pass the
// same locker the mutation producer holds while editing the document.
func WithLocker(l sync.Locker) Option {
	return func(r *Reconciler) { r.treeLock = l }
}

// New creates a reconciler over the given document.
func New(doc *html.Node, cache *settings.Cache, annotations *annotate.Engine, buttons *inject.Engine, log *logging.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		doc:         doc,
		cache:       cache,
		annotations: annotations,
		buttons:     buttons,
		log:         log,
		navDelay:    DefaultNavigationDelay,
		state:       StateIdle,
	}
	r.schedule = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current lifecycle phase.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reconciler) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Run performs the initial full sweep and then consumes mutations
// until the stream closes or the context is canceled. There is no
// terminal state of its own; the loop's lifetime matches the page's.
func (r *Reconciler) Run(ctx context.Context, mutations <-chan Mutation) error {
	r.FullSweep(ctx)
	r.setState(StateObserving)
	defer r.setState(StateIdle)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-mutations:
			if !ok {
				return nil
			}
			r.Apply(ctx, m)
		}
	}
}

func (r *Reconciler) lockTree() {
	if r.treeLock != nil {
		r.treeLock.Lock()
	}
}

func (r *Reconciler) unlockTree() {
	if r.treeLock != nil {
		r.treeLock.Unlock()
	}
}

// Apply reconciles one mutation batch synchronously.
func (r *Reconciler) Apply(ctx context.Context, m Mutation) {
	r.lockTree()
	defer r.unlockTree()
	r.apply(ctx, m)
}

func (r *Reconciler) apply(ctx context.Context, m Mutation) {
	r.setState(StateReconciling)
	defer r.setState(StateObserving)

	switch m.Type {
	case MutationChildList:
		values, ok := r.loadValues(ctx)
		if !ok {
			return
		}
		for _, added := range m.Added {
			r.sweep(added, values)
		}
	case MutationAttributes:
		r.applyAttribute(ctx, m)
	case MutationNavigation:
		// One delayed full sweep per navigation, so the new view has
		// rendered by the time we scan it.
		r.schedule(r.navDelay, func() { r.FullSweep(ctx) })
	case MutationSettingsChanged:
		r.cache.Invalidate()
		r.applySettings(ctx)
	}
}

// FullSweep reconciles the whole document against current settings.
func (r *Reconciler) FullSweep(ctx context.Context) {
	r.lockTree()
	defer r.unlockTree()
	r.fullSweep(ctx)
}

func (r *Reconciler) fullSweep(ctx context.Context) {
	values, ok := r.loadValues(ctx)
	if !ok {
		return
	}
	r.sweep(r.doc, values)
}

// sweep runs the engines over one subtree. Annotation application
// always precedes button injection so a freshly injected remark button
// already carries the correct label.
func (r *Reconciler) sweep(root *html.Node, values settings.Values) {
	if values.RemarkEnabled {
		r.annotations.ApplyAll(root, values.Remarks)
		r.buttons.InjectRemarkControls(root, values)
	}
	if values.VideoDownload {
		r.buttons.InjectDownloadControls(root, values)
	}
}

// applyAttribute handles attribute mutations. Only media-relevant
// attributes are interesting: an img src appearing late means a tweet
// that probed media-less may now have a downloadable player, so the
// enclosing tweet is re-probed if it has not been marked yet.
func (r *Reconciler) applyAttribute(ctx context.Context, m Mutation) {
	if m.Target == nil || !mediaAttrs[m.Attribute] {
		return
	}
	tweet := locator.TweetContainer(m.Target)
	if tweet == nil || dom.HasAttr(tweet, inject.DownloadMarkerAttr) {
		return
	}
	values, ok := r.loadValues(ctx)
	if !ok || !values.VideoDownload {
		return
	}
	r.buttons.InjectDownloadControls(tweet, values)
}

// ApplySettings re-synchronizes injected state with current settings:
// features turned off are torn down, features turned on are swept in.
func (r *Reconciler) ApplySettings(ctx context.Context) {
	r.lockTree()
	defer r.unlockTree()
	r.applySettings(ctx)
}

func (r *Reconciler) applySettings(ctx context.Context) {
	values, ok := r.loadValues(ctx)
	if !ok {
		return
	}

	if values.RemarkEnabled {
		r.annotations.ApplyAll(r.doc, values.Remarks)
		r.buttons.InjectRemarkControls(r.doc, values)
	} else {
		r.annotations.RevertAll(r.doc)
		r.buttons.RemoveAll(r.doc, inject.KindRemark)
	}

	if values.VideoDownload {
		r.buttons.InjectDownloadControls(r.doc, values)
	} else {
		r.buttons.RemoveAll(r.doc, inject.KindDownload)
	}
}

func (r *Reconciler) loadValues(ctx context.Context) (settings.Values, bool) {
	values, err := r.cache.Load(ctx)
	if err != nil {
		if r.log != nil {
			r.log.Errorf("reconcile: settings load failed, skipping sweep: %v", err)
		}
		return settings.Values{}, false
	}
	return values, true
}
