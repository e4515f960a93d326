// Package annotate applies and reverts per-username remark
// substitutions across the page.
//
// Substitution state lives in the DOM itself: every rewritten element
// carries a marker attribute, and the original username is never
// cached because the element's href path segment is always the
// canonical username. Restoration derives it from the link.
package annotate

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/tweetlens/tweetlens/pkg/dom"
	"github.com/tweetlens/tweetlens/pkg/locator"
	"github.com/tweetlens/tweetlens/pkg/logging"
	"github.com/tweetlens/tweetlens/pkg/settings"
)

// MarkerAttr flags an element whose visible text has been replaced by
// a remark. Presence of the attribute is the O(1) "already processed"
// test; its value is unused.
const MarkerAttr = "data-tweetlens-remark"

// Engine performs remark substitution sweeps. A sweep tolerates
// malformed elements: one element's failure never stops the rest.
type Engine struct {
	log *logging.Logger
}

// NewEngine creates an annotation engine.
func NewEngine(log *logging.Logger) *Engine {
	return &Engine{log: log}
}

// ApplyAll substitutes every annotation in the list across all
// matching elements under root. Matching is per-element: a username
// appearing as both mention and tweet author is substituted in both
// places. Excluded are the profile page's own name widget and the
// author handle line (the @-prefixed span inside a user header).
// Already-marked elements are refreshed in place, so re-running the
// sweep on an unchanged subtree is idempotent.
//
// Returns the number of elements substituted or refreshed.
func (e *Engine) ApplyAll(root *html.Node, remarks []settings.Annotation) int {
	if root == nil {
		return 0
	}
	applied := 0
	for _, a := range remarks {
		for _, anchor := range locator.ProfileAnchors(root, a.Username) {
			e.safely(func() {
				if e.apply(anchor, a) {
					applied++
				}
			})
		}
	}
	return applied
}

func (e *Engine) apply(anchor *html.Node, a settings.Annotation) bool {
	if locator.IsProfileHeader(anchor) {
		return false
	}
	if dom.HasAttr(anchor, MarkerAttr) {
		// Re-application after a remark edit: refresh the text only.
		setVisibleText(anchor, a.Remark)
		return true
	}
	// Leave the author's own handle line intact. Mentions in the tweet
	// body also start with "@" but live outside the user header and
	// are substituted.
	text := strings.TrimSpace(dom.TextContent(anchor))
	if strings.HasPrefix(text, "@") && insideUserHeader(anchor) {
		return false
	}

	setVisibleText(anchor, a.Remark)
	dom.SetAttr(anchor, "title", "@"+a.Username)
	dom.SetAttr(anchor, MarkerAttr, "1")
	return true
}

// RevertAll restores every marked element under root: visible text
// becomes the username derived from the element's href, and the marker
// and tooltip attributes are stripped. Returns the number of elements
// restored.
func (e *Engine) RevertAll(root *html.Node) int {
	if root == nil {
		return 0
	}
	reverted := 0
	marked := dom.FindAll(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && dom.HasAttr(n, MarkerAttr)
	})
	for _, n := range marked {
		e.safely(func() {
			username := locator.UsernameFromHref(dom.AttrValue(n, "href"))
			if username == "" {
				// Marker without a recoverable link. Strip the marker
				// anyway so the element is not re-processed forever.
				dom.RemoveAttr(n, MarkerAttr)
				dom.RemoveAttr(n, "title")
				return
			}
			setVisibleText(n, username)
			dom.RemoveAttr(n, MarkerAttr)
			dom.RemoveAttr(n, "title")
			reverted++
		})
	}
	return reverted
}

// setVisibleText rewrites the element's display text. When the anchor
// wraps a span (the host's usual structure) the innermost span keeps
// its styling and only its text changes; bare anchors are rewritten
// directly.
func setVisibleText(anchor *html.Node, text string) {
	target := anchor
	for {
		span := dom.FindFirst(target, func(n *html.Node) bool {
			return n != target && dom.IsElement(n, "span")
		})
		if span == nil {
			break
		}
		target = span
	}
	dom.SetText(target, text)
}

func insideUserHeader(n *html.Node) bool {
	return dom.Closest(n, func(p *html.Node) bool {
		return p.Type == html.ElementNode &&
			dom.AttrValue(p, "data-testid") == locator.TestIDUserHeader
	}) != nil
}

// safely isolates one element's processing so a malformed subtree
// cannot abort the rest of the sweep.
func (e *Engine) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil && e.log != nil {
			e.log.Errorf("annotation sweep: element skipped after panic: %v", r)
		}
	}()
	fn()
}
