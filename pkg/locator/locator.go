// Package locator translates the host page's vendor DOM conventions
// into semantic elements. Every function here is a pure query: absence
// of structure is an expected outcome and is reported as nil or the
// zero value, never as an error.
package locator

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/tweetlens/tweetlens/pkg/dom"
)

// Vendor test-id markers the host page stamps on timeline structure.
const (
	TestIDTweet         = "tweet"
	TestIDUserHeader    = "User-Name"
	TestIDProfileHeader = "UserName"
	TestIDTweetText     = "tweetText"
	TestIDTweetPhoto    = "tweetPhoto"
	TestIDVideoPlayer   = "videoPlayer"
	TestIDVideoComp     = "videoComponent"
	TestIDVerifiedBadge = "icon-verified"
	TestIDSocialContext = "socialContext"
	TestIDAvatar        = "Tweet-User-Avatar"
)

var statusPathRe = regexp.MustCompile(`/status/(\d+)(?:$|[/?#])`)

// testID matches nodes whose data-testid equals id.
func testID(id string) dom.Predicate {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && dom.AttrValue(n, "data-testid") == id
	}
}

// IsTweet reports whether n is a tweet article container.
func IsTweet(n *html.Node) bool {
	return dom.IsElement(n, "article") && dom.AttrValue(n, "data-testid") == TestIDTweet
}

// Tweets returns all tweet containers under root.
func Tweets(root *html.Node) []*html.Node {
	return dom.FindAll(root, IsTweet)
}

// TweetContainer walks up from n to the enclosing tweet container, or
// nil when n is not inside a tweet.
func TweetContainer(n *html.Node) *html.Node {
	return dom.Closest(n, IsTweet)
}

// UserHeaders returns all user-header containers under root. A header
// holds the author's display name, handle and badge for one tweet.
func UserHeaders(root *html.Node) []*html.Node {
	return dom.FindAll(root, testID(TestIDUserHeader))
}

// UserHeader returns the user-header container inside tweet, or nil.
func UserHeader(tweet *html.Node) *html.Node {
	return dom.FindFirst(tweet, testID(TestIDUserHeader))
}

// IsProfileHeader reports whether n sits inside the profile page's own
// name widget, which must never be annotated.
func IsProfileHeader(n *html.Node) bool {
	return dom.Closest(n, testID(TestIDProfileHeader)) != nil
}

// StatusAnchor returns the first anchor under root whose href carries a
// numeric status path segment, or nil.
func StatusAnchor(root *html.Node) *html.Node {
	return dom.FindFirst(root, func(n *html.Node) bool {
		if !dom.IsElement(n, "a") {
			return false
		}
		return statusPathRe.MatchString(dom.AttrValue(n, "href"))
	})
}

// TweetID extracts the numeric tweet id from the first status anchor
// under root. Returns "" when no anchor matches or the id segment is
// not numeric.
func TweetID(root *html.Node) string {
	a := StatusAnchor(root)
	if a == nil {
		return ""
	}
	m := statusPathRe.FindStringSubmatch(dom.AttrValue(a, "href"))
	if m == nil {
		return ""
	}
	return m[1]
}

// userSpans returns the spans inside anchors under the header, in
// document order. The host renders both the display name and the
// @-handle as anchor-wrapped spans.
func userSpans(header *html.Node) []*html.Node {
	anchors := dom.FindAll(header, func(n *html.Node) bool { return dom.IsElement(n, "a") })
	var spans []*html.Node
	for _, a := range anchors {
		spans = append(spans, dom.FindAll(a, func(n *html.Node) bool { return dom.IsElement(n, "span") })...)
	}
	return spans
}

// Username derives the author's handle from a user-header container:
// the first anchor span whose trimmed text starts with "@", with the
// marker character stripped. Returns "" when no such span exists.
func Username(header *html.Node) string {
	for _, s := range userSpans(header) {
		text := strings.TrimSpace(dom.TextContent(s))
		if strings.HasPrefix(text, "@") {
			return strings.TrimPrefix(text, "@")
		}
	}
	return ""
}

// DisplayName derives the author's display name from a user-header
// container: the first non-empty anchor span that does not start with
// "@". Returns "" when absent.
func DisplayName(header *html.Node) string {
	for _, s := range userSpans(header) {
		// Skip nested spans so a <span><span>Jane</span></span> pair
		// does not yield the wrapper and the leaf twice.
		if dom.FindFirst(s, func(n *html.Node) bool { return n != s && dom.IsElement(n, "span") }) != nil {
			continue
		}
		text := strings.TrimSpace(dom.TextContent(s))
		if text != "" && !strings.HasPrefix(text, "@") {
			return text
		}
	}
	return ""
}

// IsVerified reports whether the header carries the verified badge.
func IsVerified(header *html.Node) bool {
	return dom.FindFirst(header, testID(TestIDVerifiedBadge)) != nil
}

// AvatarURL returns the author's avatar image URL inside tweet, or "".
func AvatarURL(tweet *html.Node) string {
	container := dom.FindFirst(tweet, func(n *html.Node) bool {
		return n.Type == html.ElementNode &&
			strings.HasPrefix(dom.AttrValue(n, "data-testid"), TestIDAvatar)
	})
	if container == nil {
		return ""
	}
	img := dom.FindFirst(container, func(n *html.Node) bool { return dom.IsElement(n, "img") })
	if img == nil {
		return ""
	}
	return dom.AttrValue(img, "src")
}

// ActionBar returns the tweet's row of interactive controls, or nil.
func ActionBar(tweet *html.Node) *html.Node {
	return dom.FindFirst(tweet, func(n *html.Node) bool {
		return n.Type == html.ElementNode && dom.AttrValue(n, "role") == "group"
	})
}

// Content returns the tweet's text body, or "" for media-only tweets.
func Content(tweet *html.Node) string {
	text := dom.FindFirst(tweet, testID(TestIDTweetText))
	if text == nil {
		return ""
	}
	return strings.TrimSpace(dom.TextContent(text))
}

// IsRetweet reports whether the tweet carries a social-context line
// ("X reposted"), the marker the host uses for retweets.
func IsRetweet(tweet *html.Node) bool {
	return dom.FindFirst(tweet, testID(TestIDSocialContext)) != nil
}

// Timestamp returns the tweet's human-readable time text and the
// machine datetime attribute. Both are "" when the tweet has no time
// element (e.g. a quoted-tweet preview).
func Timestamp(tweet *html.Node) (text, datetime string) {
	el := dom.FindFirst(tweet, func(n *html.Node) bool { return dom.IsElement(n, "time") })
	if el == nil {
		return "", ""
	}
	return strings.TrimSpace(dom.TextContent(el)), dom.AttrValue(el, "datetime")
}

// ProfileAnchors returns every anchor under root that links to the
// given username's profile path. Matching is per-element: mentions and
// the author line both qualify.
func ProfileAnchors(root *html.Node, username string) []*html.Node {
	want := "/" + username
	return dom.FindAll(root, func(n *html.Node) bool {
		if !dom.IsElement(n, "a") {
			return false
		}
		href := dom.AttrValue(n, "href")
		return href == want || strings.HasPrefix(href, want+"?")
	})
}

// UsernameFromHref derives the canonical username from a profile
// anchor's href path segment. The link's first path segment is always
// the canonical username; this is what restoration relies on instead
// of caching original text. Returns "" for non-profile hrefs.
func UsernameFromHref(href string) string {
	href = strings.TrimPrefix(href, "/")
	if href == "" {
		return ""
	}
	if i := strings.IndexAny(href, "/?#"); i >= 0 {
		href = href[:i]
	}
	return href
}
