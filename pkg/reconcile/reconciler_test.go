package reconcile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/tweetlens/tweetlens/pkg/annotate"
	"github.com/tweetlens/tweetlens/pkg/dom"
	"github.com/tweetlens/tweetlens/pkg/i18n"
	"github.com/tweetlens/tweetlens/pkg/inject"
	"github.com/tweetlens/tweetlens/pkg/locator"
	"github.com/tweetlens/tweetlens/pkg/settings"
)

type memStore struct {
	data map[string]any
}

func (s *memStore) Get(_ context.Context, keys []string) (map[string]any, error) {
	out := make(map[string]any)
	for _, k := range keys {
		if v, ok := s.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (s *memStore) Set(_ context.Context, values map[string]any) error {
	for k, v := range values {
		s.data[k] = v
	}
	return nil
}

func tweetHTML(username, id, media string) string {
	return fmt.Sprintf(`<article data-testid="tweet">
		<div data-testid="User-Name">
			<a href="/%[1]s"><span>%[1]s</span></a>
			<a href="/%[1]s"><span>@%[1]s</span></a>
			<a href="/%[1]s/status/%[2]s"><time>May 1</time></a>
		</div>
		%[3]s
		<div role="group"></div>
	</article>`, username, id, media)
}

const videoMedia = `<div data-testid="videoPlayer"><img src="https://img.example/thumb.jpg"></div>`

type harness struct {
	doc        *html.Node
	store      *memStore
	cache      *settings.Cache
	reconciler *Reconciler
	scheduled  []func()
}

func newHarness(t *testing.T, body string, opts ...Option) *harness {
	t.Helper()
	doc, err := dom.ParseFragment(body)
	require.NoError(t, err)

	store := &memStore{data: make(map[string]any)}
	cache := settings.NewCache(store)
	msgs, err := i18n.NewProvider("en")
	require.NoError(t, err)

	h := &harness{doc: doc, store: store, cache: cache}
	opts = append(opts, WithScheduler(func(_ time.Duration, fn func()) {
		h.scheduled = append(h.scheduled, fn)
	}))
	h.reconciler = New(doc, cache, annotate.NewEngine(nil), inject.NewEngine(msgs, nil), nil, opts...)
	return h
}

func controls(root *html.Node, kind inject.Kind) []*html.Node {
	return dom.FindAll(root, func(n *html.Node) bool {
		return dom.AttrValue(n, inject.ControlAttr) == string(kind)
	})
}

func TestFullSweepInjectsAndAnnotates(t *testing.T) {
	h := newHarness(t, tweetHTML("jane", "1", videoMedia))
	h.store.data[settings.KeyUserRemarks] = []settings.Annotation{{Username: "jane", Remark: "work friend"}}

	h.reconciler.FullSweep(context.Background())

	assert.Len(t, controls(h.doc, inject.KindRemark), 1)
	assert.Len(t, controls(h.doc, inject.KindDownload), 1)

	// Annotation ran before injection: the button label already says
	// the remark exists.
	assert.Equal(t, "Edit remark", dom.TextContent(controls(h.doc, inject.KindRemark)[0]))
	marked := dom.FindAll(h.doc, func(n *html.Node) bool { return dom.HasAttr(n, annotate.MarkerAttr) })
	assert.NotEmpty(t, marked)
}

func TestChildListScopedSweep(t *testing.T) {
	h := newHarness(t, tweetHTML("jane", "1", ""))
	h.reconciler.FullSweep(context.Background())
	require.Len(t, controls(h.doc, inject.KindRemark), 1)

	// A new tweet arrives as a mutation delta.
	added, err := dom.ParseFragment(tweetHTML("bob", "2", videoMedia))
	require.NoError(t, err)
	h.doc.AppendChild(added)

	h.reconciler.Apply(context.Background(), Mutation{Type: MutationChildList, Added: []*html.Node{added}})

	assert.Len(t, controls(h.doc, inject.KindRemark), 2)
	assert.Len(t, controls(h.doc, inject.KindDownload), 1)
}

func TestAttributeMutationReProbesUnmarkedTweet(t *testing.T) {
	h := newHarness(t, tweetHTML("jane", "1", videoMedia))

	// The tweet was never probed (no childList sweep touched it), and
	// now its preview image src flips.
	img := dom.FindFirst(h.doc, func(n *html.Node) bool { return dom.IsElement(n, "img") })
	require.NotNil(t, img)

	h.reconciler.Apply(context.Background(), Mutation{
		Type:      MutationAttributes,
		Target:    img,
		Attribute: "src",
	})

	assert.Len(t, controls(h.doc, inject.KindDownload), 1)
}

func TestAttributeMutationIgnoresMarkedTweet(t *testing.T) {
	h := newHarness(t, tweetHTML("jane", "1", ""))
	// Probe marks the media-less tweet.
	h.reconciler.FullSweep(context.Background())

	// Media loads late; the attribute fires on an element inside the
	// already-marked tweet, so no re-probe happens. Explicit tradeoff
	// carried over from the single-probe policy.
	tweet := locator.Tweets(h.doc)[0]
	frag, err := dom.ParseFragment(videoMedia)
	require.NoError(t, err)
	player := frag.FirstChild
	frag.RemoveChild(player)
	tweet.AppendChild(player)

	img := dom.FindFirst(player, func(n *html.Node) bool { return dom.IsElement(n, "img") })
	h.reconciler.Apply(context.Background(), Mutation{Type: MutationAttributes, Target: img, Attribute: "src"})

	assert.Empty(t, controls(h.doc, inject.KindDownload))
}

func TestAttributeMutationIrrelevantAttr(t *testing.T) {
	h := newHarness(t, tweetHTML("jane", "1", videoMedia))
	img := dom.FindFirst(h.doc, func(n *html.Node) bool { return dom.IsElement(n, "img") })

	h.reconciler.Apply(context.Background(), Mutation{Type: MutationAttributes, Target: img, Attribute: "class"})
	assert.Empty(t, controls(h.doc, inject.KindDownload))
}

func TestNavigationSchedulesDelayedSweep(t *testing.T) {
	h := newHarness(t, tweetHTML("jane", "1", ""))

	h.reconciler.Apply(context.Background(), Mutation{Type: MutationNavigation, URL: "https://x.com/home"})
	assert.Empty(t, controls(h.doc, inject.KindRemark), "sweep must not run before the delay")
	require.Len(t, h.scheduled, 1)

	h.scheduled[0]()
	assert.Len(t, controls(h.doc, inject.KindRemark), 1)
}

func TestSettingsChangedTearsDownDisabledFeature(t *testing.T) {
	h := newHarness(t, tweetHTML("jane", "1", videoMedia))
	h.store.data[settings.KeyUserRemarks] = []settings.Annotation{{Username: "jane", Remark: "work friend"}}
	h.reconciler.FullSweep(context.Background())
	require.Len(t, controls(h.doc, inject.KindRemark), 1)

	// Another surface disables the remark feature.
	h.store.data[settings.KeyRemarkEnabled] = false
	h.reconciler.Apply(context.Background(), Mutation{Type: MutationSettingsChanged})

	assert.Empty(t, controls(h.doc, inject.KindRemark))
	assert.Empty(t, dom.FindAll(h.doc, func(n *html.Node) bool { return dom.HasAttr(n, annotate.MarkerAttr) }))
	assert.Len(t, controls(h.doc, inject.KindDownload), 1, "download feature stays")
}

func TestRunConsumesStreamUntilClosed(t *testing.T) {
	h := newHarness(t, tweetHTML("jane", "1", ""))
	events := make(chan Mutation)

	done := make(chan error, 1)
	go func() { done <- h.reconciler.Run(context.Background(), events) }()

	added, err := dom.ParseFragment(tweetHTML("bob", "2", ""))
	require.NoError(t, err)
	events <- Mutation{Type: MutationChildList, Added: []*html.Node{added}}
	close(events)

	require.NoError(t, <-done)
	assert.Equal(t, StateIdle, h.reconciler.State())
	assert.Len(t, controls(added, inject.KindRemark), 1)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	h := newHarness(t, tweetHTML("jane", "1", ""))
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Mutation)

	done := make(chan error, 1)
	go func() { done <- h.reconciler.Run(ctx, events) }()
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
}

type recordingLocker struct {
	locks   int
	unlocks int
}

func (l *recordingLocker) Lock()   { l.locks++ }
func (l *recordingLocker) Unlock() { l.unlocks++ }

func TestSweepsHoldSharedLock(t *testing.T) {
	lock := &recordingLocker{}
	h := newHarness(t, tweetHTML("jane", "1", videoMedia), WithLocker(lock))
	ctx := context.Background()

	h.reconciler.FullSweep(ctx)
	assert.Equal(t, 1, lock.locks)
	assert.Equal(t, 1, lock.unlocks)

	added, err := dom.ParseFragment(tweetHTML("bob", "2", ""))
	require.NoError(t, err)
	h.reconciler.Apply(ctx, Mutation{Type: MutationChildList, Added: []*html.Node{added}})
	assert.Equal(t, 2, lock.locks)
	assert.Equal(t, 2, lock.unlocks, "lock released after each batch")

	// A settings mutation reuses the already-held lock rather than
	// re-acquiring it for the nested settings pass.
	h.reconciler.Apply(ctx, Mutation{Type: MutationSettingsChanged})
	assert.Equal(t, 3, lock.locks)
	assert.Equal(t, 3, lock.unlocks)
	assert.Len(t, controls(added, inject.KindRemark), 1, "sweep ran under the lock")
}
