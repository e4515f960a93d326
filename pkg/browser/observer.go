package browser

import (
	"context"
	"fmt"

	"golang.org/x/net/html"

	"github.com/tweetlens/tweetlens/pkg/dom"
	"github.com/tweetlens/tweetlens/pkg/reconcile"
)

// observerScript installs the in-page bridge: a MutationObserver for
// structural and media-attribute changes, plus history API wrappers
// for single-page navigations. Every event funnels through the
// exposed __tweetlensEmit binding. Element references cannot cross
// the bridge, so nodes travel as child-index paths rooted at the
// document element.
const observerScript = `(() => {
  if (window.__tweetlensObserving) { return; }
  window.__tweetlensObserving = true;

  const emit = (event) => {
    try { window.__tweetlensEmit(event); } catch (e) {}
  };

  const pathTo = (el) => {
    const path = [];
    let node = el;
    while (node && node !== document.documentElement) {
      const parent = node.parentElement;
      if (!parent) { return null; }
      path.unshift(Array.prototype.indexOf.call(parent.children, node));
      node = parent;
    }
    return path;
  };

  const observer = new MutationObserver((records) => {
    const added = [];
    for (const record of records) {
      if (record.type === 'childList') {
        for (const node of record.addedNodes) {
          if (node instanceof Element) {
            const path = pathTo(node);
            if (path) { added.push(path); }
          }
        }
      } else if (record.type === 'attributes' && record.target instanceof Element) {
        const path = pathTo(record.target);
        if (path) {
          emit({type: 'attributes', attribute: record.attributeName, path: path});
        }
      }
    }
    if (added.length > 0) {
      emit({type: 'child_list', paths: added});
    }
  });
  observer.observe(document.documentElement, {
    childList: true,
    subtree: true,
    attributes: true,
    attributeFilter: ['src'],
  });

  const navigate = () => emit({type: 'navigation', url: location.href});
  const pushState = history.pushState.bind(history);
  history.pushState = function(...args) { pushState(...args); navigate(); };
  const replaceState = history.replaceState.bind(history);
  history.replaceState = function(...args) { replaceState(...args); navigate(); };
  window.addEventListener('popstate', navigate);
})();`

// observerEvent is the wire shape of one bridge event.
type observerEvent struct {
	Type      string
	Attribute string
	URL       string
	Path      []int
	Paths     [][]int
}

// Observe installs the mutation bridge and returns the resulting
// event stream. The channel closes when ctx is cancelled. Events that
// arrive faster than the reconciler drains them are dropped; the next
// full sweep picks the changes up anyway.
func (d *Driver) Observe(ctx context.Context) (<-chan reconcile.Mutation, error) {
	page, err := d.currentPage()
	if err != nil {
		return nil, err
	}

	events := make(chan reconcile.Mutation, 64)
	deliver := func(m reconcile.Mutation) {
		select {
		case events <- m:
		case <-ctx.Done():
		default:
			d.logf("mutation event dropped, reconciler is behind")
		}
	}

	err = page.ExposeFunction("__tweetlensEmit", func(args ...interface{}) interface{} {
		if len(args) == 0 {
			return nil
		}
		event, ok := decodeEvent(args[0])
		if !ok {
			return nil
		}
		mutation, err := d.toMutation(event)
		if err != nil {
			d.logf("failed to map %s event: %v", event.Type, err)
			return nil
		}
		deliver(mutation)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to expose mutation binding: %w", err)
	}

	if _, err := page.Evaluate(observerScript); err != nil {
		return nil, fmt.Errorf("failed to install mutation observer: %w", err)
	}

	go func() {
		<-ctx.Done()
		close(events)
	}()

	return events, nil
}

// toMutation turns a bridge event into an engine-facing mutation over
// the persistent document. Added subtrees and changed attributes are
// read from a fresh page snapshot and grafted in, so the markers and
// controls the engines placed on the tree survive from batch to
// batch.
func (d *Driver) toMutation(event observerEvent) (reconcile.Mutation, error) {
	switch event.Type {
	case "navigation":
		// The old view is about to be torn down; take whatever the
		// page holds now and let the delayed full sweep rescan it.
		if fresh, err := d.Snapshot(); err == nil {
			d.treeMu.Lock()
			adopt(d.doc, fresh)
			d.treeMu.Unlock()
		}
		return reconcile.Mutation{Type: reconcile.MutationNavigation, URL: event.URL}, nil

	case "child_list":
		fresh, err := d.Snapshot()
		if err != nil {
			return reconcile.Mutation{}, err
		}
		d.treeMu.Lock()
		defer d.treeMu.Unlock()
		if d.doc == nil {
			return reconcile.Mutation{}, fmt.Errorf("no document attached")
		}
		var added []*html.Node
		for _, path := range event.Paths {
			if node := graft(d.doc, fresh, path); node != nil {
				added = append(added, node)
			}
		}
		if len(added) == 0 {
			// The trees diverged past the point where paths resolve;
			// adopt the snapshot wholesale and resweep everything.
			adopt(d.doc, fresh)
			added = []*html.Node{d.doc}
		}
		return reconcile.Mutation{Type: reconcile.MutationChildList, Added: added}, nil

	case "attributes":
		fresh, err := d.Snapshot()
		if err != nil {
			return reconcile.Mutation{}, err
		}
		d.treeMu.Lock()
		defer d.treeMu.Unlock()
		src := resolvePath(fresh, event.Path)
		dst := resolvePath(d.doc, event.Path)
		if src == nil || dst == nil {
			return reconcile.Mutation{}, fmt.Errorf("attribute target path %v not found", event.Path)
		}
		dom.SetAttr(dst, event.Attribute, dom.AttrValue(src, event.Attribute))
		return reconcile.Mutation{
			Type:      reconcile.MutationAttributes,
			Target:    dst,
			Attribute: event.Attribute,
		}, nil
	}
	return reconcile.Mutation{}, fmt.Errorf("unknown event type %q", event.Type)
}

func decodeEvent(raw interface{}) (observerEvent, bool) {
	fields, ok := raw.(map[string]interface{})
	if !ok {
		return observerEvent{}, false
	}
	event := observerEvent{}
	event.Type, _ = fields["type"].(string)
	event.Attribute, _ = fields["attribute"].(string)
	event.URL, _ = fields["url"].(string)
	if rawPath, ok := fields["path"].([]interface{}); ok {
		path, ok := decodePath(rawPath)
		if !ok {
			return observerEvent{}, false
		}
		event.Path = path
	}
	if rawPaths, ok := fields["paths"].([]interface{}); ok {
		for _, rawPath := range rawPaths {
			entries, ok := rawPath.([]interface{})
			if !ok {
				return observerEvent{}, false
			}
			path, ok := decodePath(entries)
			if !ok {
				return observerEvent{}, false
			}
			event.Paths = append(event.Paths, path)
		}
	}
	return event, event.Type != ""
}

func decodePath(raw []interface{}) ([]int, bool) {
	path := make([]int, 0, len(raw))
	for _, v := range raw {
		idx, ok := v.(float64)
		if !ok || idx < 0 {
			return nil, false
		}
		path = append(path, int(idx))
	}
	return path, true
}

// graft moves the node at path in the snapshot into the persistent
// document at the same position, returning the grafted node. A nil
// return means the path no longer lines up between the two trees.
func graft(dst, src *html.Node, path []int) *html.Node {
	if len(path) == 0 {
		return nil
	}
	node := resolvePath(src, path)
	if node == nil {
		return nil
	}
	parent := resolvePath(dst, path[:len(path)-1])
	if parent == nil {
		return nil
	}
	if node.Parent != nil {
		node.Parent.RemoveChild(node)
	}
	if sibling := elementChild(parent, path[len(path)-1]); sibling != nil {
		parent.InsertBefore(node, sibling)
	} else {
		parent.AppendChild(node)
	}
	return node
}

// adopt replaces dst's children with src's, keeping dst itself (and
// every outstanding reference to it) alive.
func adopt(dst, src *html.Node) {
	if dst == nil || src == nil {
		return
	}
	for dst.FirstChild != nil {
		dst.RemoveChild(dst.FirstChild)
	}
	for src.FirstChild != nil {
		child := src.FirstChild
		src.RemoveChild(child)
		dst.AppendChild(child)
	}
}

// resolvePath walks a child-index path from the document element down
// to the addressed element. Indices count element children only,
// matching the Element.children collection the script indexes into.
func resolvePath(doc *html.Node, path []int) *html.Node {
	node := documentElement(doc)
	for _, idx := range path {
		node = elementChild(node, idx)
		if node == nil {
			return nil
		}
	}
	return node
}

func documentElement(doc *html.Node) *html.Node {
	if doc == nil {
		return nil
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

func elementChild(parent *html.Node, idx int) *html.Node {
	if parent == nil {
		return nil
	}
	i := 0
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if i == idx {
			return c
		}
		i++
	}
	return nil
}

func (d *Driver) logf(format string, args ...interface{}) {
	if d.log != nil {
		d.log.Debugf(format, args...)
	}
}
