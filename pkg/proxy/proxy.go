// Package proxy is the client for the privileged background service
// that talks to the host site's private API. The page context lacks
// the cookies and headers that API needs, so every video-info lookup
// goes through this boundary.
package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gobwas/glob"
)

// VideoInfo describes one downloadable media item in a tweet.
type VideoInfo struct {
	VideoURL     string `json:"video_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	TweetURL     string `json:"tweet_url"`
	TweetText    string `json:"tweet_text"`
	MediaID      string `json:"media_id"`
}

// Client resolves a tweet id to its downloadable media. A nil slice
// with a nil error means the tweet has no video; that is an expected
// outcome, not a failure.
type Client interface {
	GetVideoInfo(ctx context.Context, tweetID, domainHint string) ([]VideoInfo, error)
}

// DefaultAllowedHosts are the domain-hint patterns accepted by the
// HTTP client when none are configured.
var DefaultAllowedHosts = []string{"x.com", "*.x.com", "twitter.com", "*.twitter.com"}

const defaultTimeout = 15 * time.Second

// HTTPClient implements Client against the background service's local
// HTTP endpoint.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	allowed []glob.Glob
}

// NewHTTPClient creates a client for the background service at
// baseURL. allowedHosts are glob patterns for acceptable domain hints;
// empty means DefaultAllowedHosts.
func NewHTTPClient(baseURL string, allowedHosts []string) (*HTTPClient, error) {
	if len(allowedHosts) == 0 {
		allowedHosts = DefaultAllowedHosts
	}
	globs := make([]glob.Glob, 0, len(allowedHosts))
	for _, pattern := range allowedHosts {
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, fmt.Errorf("invalid allowed host pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		allowed: globs,
	}, nil
}

// GetVideoInfo implements Client. The domain hint tells the background
// service which host API flavor to use; hints outside the allowlist
// are rejected before any request is made.
func (c *HTTPClient) GetVideoInfo(ctx context.Context, tweetID, domainHint string) ([]VideoInfo, error) {
	if tweetID == "" {
		return nil, fmt.Errorf("tweet id is required")
	}
	if !c.hostAllowed(domainHint) {
		return nil, fmt.Errorf("domain hint %q is not an allowed host", domainHint)
	}

	endpoint := fmt.Sprintf("%s/videos/%s?domain=%s", c.baseURL, url.PathEscape(tweetID), url.QueryEscape(domainHint))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build video info request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("video info request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var infos []VideoInfo
		if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
			return nil, fmt.Errorf("decode video info response: %w", err)
		}
		return infos, nil
	case http.StatusNotFound:
		// No video in this tweet.
		return nil, nil
	default:
		return nil, fmt.Errorf("video info request returned status %d", resp.StatusCode)
	}
}

func (c *HTTPClient) hostAllowed(host string) bool {
	if host == "" {
		return true
	}
	for _, g := range c.allowed {
		if g.Match(host) {
			return true
		}
	}
	return false
}
