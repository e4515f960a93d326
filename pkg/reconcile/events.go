package reconcile

import "golang.org/x/net/html"

// MutationType defines the kind of page change delivered to the
// reconciler.
type MutationType string

const (
	// MutationChildList reports subtrees inserted into the page.
	MutationChildList MutationType = "child_list"
	// MutationAttributes reports an attribute change on one element.
	MutationAttributes MutationType = "attributes"
	// MutationNavigation reports a client-side navigation. The host is
	// a single-page app, so this is a history-API signal, not a real
	// document load.
	MutationNavigation MutationType = "navigation"
	// MutationSettingsChanged reports that another extension surface
	// changed the persisted settings.
	MutationSettingsChanged MutationType = "settings_changed"
)

// Mutation is one observed page change. Batching is the producer's
// concern: a childList mutation may carry several added subtrees.
type Mutation struct {
	Type MutationType

	// Added holds the inserted subtrees for childList mutations.
	Added []*html.Node

	// Target and Attribute describe an attribute mutation.
	Target    *html.Node
	Attribute string

	// URL is the destination of a navigation event.
	URL string
}
