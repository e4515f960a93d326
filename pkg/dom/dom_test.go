package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func mustFragment(t *testing.T, src string) *html.Node {
	t.Helper()
	n, err := ParseFragment(src)
	require.NoError(t, err)
	return n
}

func TestAttrHelpers(t *testing.T) {
	n := Element("a", "href", "/jane", "data-testid", "link")

	v, ok := Attr(n, "href")
	assert.True(t, ok)
	assert.Equal(t, "/jane", v)

	assert.Equal(t, "link", AttrValue(n, "data-testid"))
	assert.False(t, HasAttr(n, "title"))

	SetAttr(n, "title", "@jane")
	assert.Equal(t, "@jane", AttrValue(n, "title"))

	SetAttr(n, "title", "@joan")
	assert.Equal(t, "@joan", AttrValue(n, "title"))

	RemoveAttr(n, "title")
	assert.False(t, HasAttr(n, "title"))
}

func TestFindFirstAndAll(t *testing.T) {
	root := mustFragment(t, `<div><span class="x">a</span><p><span class="x">b</span></p><span>c</span></div>`)

	isX := func(n *html.Node) bool {
		return IsElement(n, "span") && AttrValue(n, "class") == "x"
	}

	first := FindFirst(root, isX)
	require.NotNil(t, first)
	assert.Equal(t, "a", TextContent(first))

	all := FindAll(root, isX)
	assert.Len(t, all, 2)
}

func TestFindAllNeverNil(t *testing.T) {
	all := FindAll(nil, func(*html.Node) bool { return true })
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestClosest(t *testing.T) {
	root := mustFragment(t, `<article data-testid="tweet"><div><span id="leaf">x</span></div></article>`)
	leaf := FindFirst(root, func(n *html.Node) bool { return AttrValue(n, "id") == "leaf" })
	require.NotNil(t, leaf)

	tweet := Closest(leaf, func(n *html.Node) bool { return AttrValue(n, "data-testid") == "tweet" })
	require.NotNil(t, tweet)
	assert.Equal(t, "article", tweet.Data)

	assert.Nil(t, Closest(leaf, func(n *html.Node) bool { return IsElement(n, "table") }))
	assert.True(t, Contains(tweet, leaf))
	assert.False(t, Contains(leaf, tweet))
}

func TestSetTextReplacesChildren(t *testing.T) {
	root := mustFragment(t, `<span><b>Jane</b> Doe</span>`)
	span := FindFirst(root, func(n *html.Node) bool { return IsElement(n, "span") })
	require.NotNil(t, span)

	SetText(span, "work friend")
	assert.Equal(t, "work friend", TextContent(span))
	// A second SetText must not accumulate text nodes.
	SetText(span, "friend")
	assert.Equal(t, "friend", TextContent(span))
}

func TestRenderRoundTrip(t *testing.T) {
	root := mustFragment(t, `<div><a href="/alice/status/998877">link</a></div>`)
	out, err := Render(root)
	require.NoError(t, err)
	assert.Contains(t, out, `href="/alice/status/998877"`)
}
