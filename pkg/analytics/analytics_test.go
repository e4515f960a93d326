package analytics

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeaconSendsEvents(t *testing.T) {
	var mu sync.Mutex
	var hits []map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		mu.Lock()
		hits = append(hits, r.PostForm)
		mu.Unlock()
	}))
	defer srv.Close()

	beacon := NewHTTPBeacon(srv.URL, nil)
	beacon.LogEvent("download_clicked", map[string]string{"media": "video"})
	beacon.LogError("save failed", nil)
	beacon.LogPageView("Home", "https://x.com/home", nil)
	beacon.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, hits, 3)

	kinds := map[string]bool{}
	for _, hit := range hits {
		kinds[hit["type"][0]] = true
		assert.NotEmpty(t, hit["cid"][0])
	}
	assert.True(t, kinds["event"] && kinds["error"] && kinds["page_view"])
}

func TestBeaconSwallowsFailures(t *testing.T) {
	// Nothing listens here; the send must fail silently and Close must
	// still return.
	beacon := NewHTTPBeacon("http://127.0.0.1:0", nil)
	beacon.LogEvent("x", nil)
	beacon.Close()
}
