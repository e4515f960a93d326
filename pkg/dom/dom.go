// Package dom provides small helpers over golang.org/x/net/html nodes.
//
// The engines in this module treat the parsed page as a mutable tree:
// they query it, rewrite text, and attach marker attributes. These
// helpers keep that code free of raw node-pointer walking.
package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Predicate decides whether a node matches a query.
type Predicate func(*html.Node) bool

// Attr returns the value of the named attribute and whether it is set.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// AttrValue returns the attribute value, or "" when unset.
func AttrValue(n *html.Node, key string) string {
	v, _ := Attr(n, key)
	return v
}

// HasAttr reports whether the attribute is present, regardless of value.
func HasAttr(n *html.Node, key string) bool {
	_, ok := Attr(n, key)
	return ok
}

// SetAttr sets or replaces an attribute on the node.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute if present.
func RemoveAttr(n *html.Node, key string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// IsElement reports whether n is an element node with the given tag.
func IsElement(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == tag
}

// FindFirst returns the first node under root (depth-first, root
// included) matching the predicate, or nil.
func FindFirst(root *html.Node, match Predicate) *html.Node {
	if root == nil {
		return nil
	}
	if match(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := FindFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every node under root (depth-first, root included)
// matching the predicate. The result is never nil.
func FindAll(root *html.Node, match Predicate) []*html.Node {
	found := []*html.Node{}
	if root == nil {
		return found
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			found = append(found, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

// Closest walks up from n (n included) and returns the first ancestor
// matching the predicate, or nil when the walk reaches the root.
func Closest(n *html.Node, match Predicate) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if match(cur) {
			return cur
		}
	}
	return nil
}

// Contains reports whether inner is root or a descendant of root.
func Contains(root, inner *html.Node) bool {
	for cur := inner; cur != nil; cur = cur.Parent {
		if cur == root {
			return true
		}
	}
	return false
}

// TextContent returns the concatenated text of the node's subtree.
func TextContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return b.String()
}

// SetText replaces the node's children with a single text node.
func SetText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// Element creates a detached element node with optional attributes
// given as alternating key, value pairs.
func Element(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: 0}
	for i := 0; i+1 < len(attrs); i += 2 {
		SetAttr(n, attrs[i], attrs[i+1])
	}
	return n
}

// Text creates a detached text node.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
