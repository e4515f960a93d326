// Package analytics sends fire-and-forget usage beacons. Calls never
// block the caller and failures are swallowed: a beacon outage must
// never degrade the page.
package analytics

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tweetlens/tweetlens/pkg/logging"
)

// Beacon is the event-reporting boundary.
type Beacon interface {
	LogEvent(name string, params map[string]string)
	LogError(message string, params map[string]string)
	LogPageView(title, location string, params map[string]string)
}

// HTTPBeacon posts events to a collection endpoint. Every send runs on
// its own goroutine; Close waits for in-flight sends, which tests rely
// on.
type HTTPBeacon struct {
	endpoint string
	clientID string
	client   *http.Client
	log      *logging.Logger
	wg       sync.WaitGroup
}

// NewHTTPBeacon creates a beacon for the given collection endpoint. A
// random client id is generated per page session.
func NewHTTPBeacon(endpoint string, log *logging.Logger) *HTTPBeacon {
	return &HTTPBeacon{
		endpoint: endpoint,
		clientID: uuid.New().String(),
		client:   &http.Client{Timeout: 5 * time.Second},
		log:      log,
	}
}

// LogEvent implements Beacon.
func (b *HTTPBeacon) LogEvent(name string, params map[string]string) {
	b.send("event", name, params)
}

// LogError implements Beacon.
func (b *HTTPBeacon) LogError(message string, params map[string]string) {
	b.send("error", message, params)
}

// LogPageView implements Beacon.
func (b *HTTPBeacon) LogPageView(title, location string, params map[string]string) {
	merged := map[string]string{"location": location}
	for k, v := range params {
		merged[k] = v
	}
	b.send("page_view", title, merged)
}

// Close waits for all in-flight sends to finish.
func (b *HTTPBeacon) Close() {
	b.wg.Wait()
}

func (b *HTTPBeacon) send(kind, name string, params map[string]string) {
	values := url.Values{}
	values.Set("type", kind)
	values.Set("name", name)
	values.Set("cid", b.clientID)
	for k, v := range params {
		values.Set("p."+k, v)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		resp, err := b.client.Post(b.endpoint, "application/x-www-form-urlencoded",
			strings.NewReader(values.Encode()))
		if err != nil {
			if b.log != nil {
				b.log.Debugf("analytics: beacon send failed: %v", err)
			}
			return
		}
		resp.Body.Close()
	}()
}

// Nop is a Beacon that records nothing. Used when analytics is
// disabled and as the default in tests.
type Nop struct{}

func (Nop) LogEvent(string, map[string]string)            {}
func (Nop) LogError(string, map[string]string)            {}
func (Nop) LogPageView(string, string, map[string]string) {}
