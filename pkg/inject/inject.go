// Package inject adds and removes the extension's controls in the
// page: the per-user remark button in tweet headers and the download
// button in tweet action bars.
//
// Every container that has been examined carries a marker attribute so
// a repeated sweep over the same subtree is a no-op. Click dispatch is
// a callback boundary: the engine never talks to storage or the
// network itself.
package inject

import (
	"golang.org/x/net/html"

	"github.com/tweetlens/tweetlens/pkg/dom"
	"github.com/tweetlens/tweetlens/pkg/i18n"
	"github.com/tweetlens/tweetlens/pkg/locator"
	"github.com/tweetlens/tweetlens/pkg/logging"
	"github.com/tweetlens/tweetlens/pkg/settings"
)

// Kind identifies one family of injected controls.
type Kind string

const (
	KindRemark   Kind = "remark"
	KindDownload Kind = "download"
)

// Marker attributes. The container marker means "already processed by
// this engine"; the control attribute identifies injected buttons.
const (
	RemarkMarkerAttr   = "data-tweetlens-remark-processed"
	DownloadMarkerAttr = "data-tweetlens-download-processed"
	ControlAttr        = "data-tweetlens-control"
	UsernameAttr       = "data-tweetlens-username"
	StateAttr          = "data-tweetlens-state"
)

// Download button visual states.
const (
	StateIdle    = "idle"
	StateLoading = "loading"
)

// RemarkHandler is invoked when a remark control is clicked.
type RemarkHandler func(username string, button *html.Node)

// DownloadHandler is invoked when a download control is clicked. The
// tweet is the enclosing tweet container; the button is handed along
// so the handler can toggle its loading state.
type DownloadHandler func(tweet, button *html.Node)

// Engine injects and removes controls. Handlers may be nil; clicks on
// controls without a handler are dropped.
type Engine struct {
	msgs       *i18n.Provider
	log        *logging.Logger
	onRemark   RemarkHandler
	onDownload DownloadHandler
}

// NewEngine creates a button injection engine.
func NewEngine(msgs *i18n.Provider, log *logging.Logger) *Engine {
	return &Engine{msgs: msgs, log: log}
}

// OnRemark sets the click handler for remark controls.
func (e *Engine) OnRemark(fn RemarkHandler) { e.onRemark = fn }

// OnDownload sets the click handler for download controls.
func (e *Engine) OnDownload(fn DownloadHandler) { e.onDownload = fn }

// InjectRemarkControls adds a remark button to every user-header
// container under root that has not been processed yet. The label
// reflects whether an annotation already exists for the derived
// username. Headers whose username cannot be derived are left
// unmarked so a later, more complete render can still receive a
// button. Returns the number of buttons added.
func (e *Engine) InjectRemarkControls(root *html.Node, values settings.Values) int {
	if root == nil {
		return 0
	}
	added := 0
	for _, header := range locator.UserHeaders(root) {
		e.safely(func() {
			if dom.HasAttr(header, RemarkMarkerAttr) {
				return
			}
			username := locator.Username(header)
			if username == "" {
				return
			}
			_, hasRemark := values.Remark(username)
			header.AppendChild(e.newRemarkButton(username, hasRemark))
			dom.SetAttr(header, RemarkMarkerAttr, "1")
			added++
		})
	}
	return added
}

// InjectDownloadControls adds a download button to every unprocessed
// tweet container under root that holds video, GIF or photo media and
// has an action bar. The tweet is marked processed even when no button
// is added, so media-less tweets are not re-probed on every mutation
// tick. A tweet whose media loads after this probe therefore never
// gets a button from a childList sweep alone; the reconciler's
// attribute path covers that case. Returns the number of buttons
// added.
func (e *Engine) InjectDownloadControls(root *html.Node, values settings.Values) int {
	if root == nil {
		return 0
	}
	added := 0
	for _, tweet := range locator.Tweets(root) {
		e.safely(func() {
			if dom.HasAttr(tweet, DownloadMarkerAttr) {
				return
			}
			dom.SetAttr(tweet, DownloadMarkerAttr, "1")

			if locator.Media(tweet) == locator.MediaNone {
				return
			}
			bar := locator.ActionBar(tweet)
			if bar == nil || findControl(bar, KindDownload) != nil {
				return
			}
			bar.AppendChild(e.newDownloadButton())
			added++
		})
	}
	return added
}

// Click dispatches a click on an injected control to the registered
// handler. Clicks on anything else are ignored.
func (e *Engine) Click(button *html.Node) {
	switch Kind(dom.AttrValue(button, ControlAttr)) {
	case KindRemark:
		if e.onRemark != nil {
			e.onRemark(dom.AttrValue(button, UsernameAttr), button)
		}
	case KindDownload:
		if e.onDownload != nil {
			if tweet := locator.TweetContainer(button); tweet != nil {
				e.onDownload(tweet, button)
			}
		}
	}
}

// UpdateRemarkLabels refreshes the wording of every remark control
// bound to username under root, walking from each control up to its
// header container and re-deriving the username from the header. Used
// right after a save or delete so the button reflects the new state
// without a full sweep.
func (e *Engine) UpdateRemarkLabels(root *html.Node, username string, hasRemark bool) {
	if root == nil {
		return
	}
	for _, button := range findControls(root, KindRemark) {
		header := dom.Closest(button, func(n *html.Node) bool {
			return dom.HasAttr(n, RemarkMarkerAttr)
		})
		if header == nil || locator.Username(header) != username {
			continue
		}
		dom.SetText(button, e.remarkLabel(hasRemark))
	}
}

// RemoveAll strips every control of the given kind under root and
// clears the corresponding container markers. Used when the feature
// flag flips off; a later re-enable starts from a clean page.
// Returns the number of controls removed.
func (e *Engine) RemoveAll(root *html.Node, kind Kind) int {
	if root == nil {
		return 0
	}
	removed := 0
	for _, button := range findControls(root, kind) {
		if button.Parent != nil {
			button.Parent.RemoveChild(button)
			removed++
		}
	}
	marker := RemarkMarkerAttr
	if kind == KindDownload {
		marker = DownloadMarkerAttr
	}
	for _, n := range dom.FindAll(root, func(n *html.Node) bool { return dom.HasAttr(n, marker) }) {
		dom.RemoveAttr(n, marker)
	}
	return removed
}

// SetLoading toggles a download button between its idle and loading
// visual states. The state is scoped to that button element only.
func (e *Engine) SetLoading(button *html.Node, loading bool) {
	state := StateIdle
	label := e.msgs.GetMessage("download")
	if loading {
		state = StateLoading
		label = e.msgs.GetMessage("download_loading")
	}
	dom.SetAttr(button, StateAttr, state)
	dom.SetText(button, label)
}

// IsLoading reports whether the button is in its loading state.
func IsLoading(button *html.Node) bool {
	return dom.AttrValue(button, StateAttr) == StateLoading
}

func (e *Engine) remarkLabel(hasRemark bool) string {
	if hasRemark {
		return e.msgs.GetMessage("remark_edit")
	}
	return e.msgs.GetMessage("remark_add")
}

func (e *Engine) newRemarkButton(username string, hasRemark bool) *html.Node {
	button := dom.Element("button",
		ControlAttr, string(KindRemark),
		UsernameAttr, username,
	)
	button.AppendChild(dom.Text(e.remarkLabel(hasRemark)))
	return button
}

func (e *Engine) newDownloadButton() *html.Node {
	button := dom.Element("button",
		ControlAttr, string(KindDownload),
		StateAttr, StateIdle,
	)
	button.AppendChild(dom.Text(e.msgs.GetMessage("download")))
	return button
}

func findControl(root *html.Node, kind Kind) *html.Node {
	return dom.FindFirst(root, func(n *html.Node) bool {
		return dom.AttrValue(n, ControlAttr) == string(kind)
	})
}

func findControls(root *html.Node, kind Kind) []*html.Node {
	return dom.FindAll(root, func(n *html.Node) bool {
		return dom.AttrValue(n, ControlAttr) == string(kind)
	})
}

// safely isolates one container's processing so a malformed tweet
// cannot abort the rest of the sweep.
func (e *Engine) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil && e.log != nil {
			e.log.Errorf("injection sweep: container skipped after panic: %v", r)
		}
	}()
	fn()
}
