package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse parses a full HTML document and returns its root node.
func Parse(src string) (*html.Node, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// ParseFragment parses an HTML fragment in a body context and returns
// a detached container div holding the fragment's top-level nodes.
// Mutation batches arrive as fragments, so the container stands in for
// the insertion point they were observed under.
func ParseFragment(src string) (*html.Node, error) {
	body := Element("body")
	body.DataAtom = atom.Body
	nodes, err := html.ParseFragment(strings.NewReader(src), body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML fragment: %w", err)
	}
	container := Element("div")
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, nil
}

// Render serializes the node back to HTML.
func Render(n *html.Node) (string, error) {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}
	return b.String(), nil
}
