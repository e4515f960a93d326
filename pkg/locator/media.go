package locator

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/tweetlens/tweetlens/pkg/dom"
)

// MediaKind classifies the downloadable media found in a tweet.
type MediaKind string

const (
	MediaNone  MediaKind = "none"
	MediaVideo MediaKind = "video"
	MediaGIF   MediaKind = "gif"
	MediaPhoto MediaKind = "photo"
)

// gifExtensions are the image suffixes treated as GIF previews.
var gifExtensions = []string{".gif", ".gifv"}

func isVideoContainer(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	id := dom.AttrValue(n, "data-testid")
	return id == TestIDVideoPlayer || id == TestIDVideoComp
}

func isPhotoContainer(n *html.Node) bool {
	return n.Type == html.ElementNode && dom.AttrValue(n, "data-testid") == TestIDTweetPhoto
}

func hasGIFPreview(container *html.Node) bool {
	img := dom.FindFirst(container, func(n *html.Node) bool { return dom.IsElement(n, "img") })
	if img == nil {
		return false
	}
	src := dom.AttrValue(img, "src")
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	src = strings.ToLower(src)
	for _, ext := range gifExtensions {
		if strings.HasSuffix(src, ext) {
			return true
		}
	}
	return false
}

// Media classifies the tweet's media. Video and GIF share the player
// container marker; a GIF is a player whose preview image carries a
// GIF-like extension. Photos use a distinct marker. MediaNone is the
// expected result for text-only tweets.
func Media(tweet *html.Node) MediaKind {
	if player := dom.FindFirst(tweet, isVideoContainer); player != nil {
		if hasGIFPreview(player) {
			return MediaGIF
		}
		return MediaVideo
	}
	if dom.FindFirst(tweet, isPhotoContainer) != nil {
		return MediaPhoto
	}
	return MediaNone
}

// PhotoURLs returns the static photo image URLs in document order.
func PhotoURLs(tweet *html.Node) []string {
	var urls []string
	for _, photo := range dom.FindAll(tweet, isPhotoContainer) {
		img := dom.FindFirst(photo, func(n *html.Node) bool { return dom.IsElement(n, "img") })
		if img == nil {
			continue
		}
		if src := dom.AttrValue(img, "src"); src != "" {
			urls = append(urls, src)
		}
	}
	return urls
}
