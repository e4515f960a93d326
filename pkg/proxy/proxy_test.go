package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetVideoInfo(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/videos/998877", r.URL.Path)
		assert.Equal(t, "x.com", r.URL.Query().Get("domain"))
		json.NewEncoder(w).Encode([]VideoInfo{
			{VideoURL: "https://video.example/a.mp4", MediaID: "m1"},
			{VideoURL: "https://video.example/b.mp4", MediaID: "m2"},
		})
	})

	client, err := NewHTTPClient(srv.URL, nil)
	require.NoError(t, err)

	infos, err := client.GetVideoInfo(context.Background(), "998877", "x.com")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "m1", infos[0].MediaID)
}

func TestGetVideoInfoNotFoundMeansNoVideo(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client, err := NewHTTPClient(srv.URL, nil)
	require.NoError(t, err)

	infos, err := client.GetVideoInfo(context.Background(), "998877", "x.com")
	require.NoError(t, err)
	assert.Nil(t, infos)
}

func TestGetVideoInfoServerError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	client, err := NewHTTPClient(srv.URL, nil)
	require.NoError(t, err)

	_, err = client.GetVideoInfo(context.Background(), "998877", "x.com")
	assert.Error(t, err)
}

func TestGetVideoInfoHostAllowlist(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]VideoInfo{})
	})

	client, err := NewHTTPClient(srv.URL, nil)
	require.NoError(t, err)
	ctx := context.Background()

	for _, host := range []string{"x.com", "mobile.x.com", "twitter.com", ""} {
		_, err := client.GetVideoInfo(ctx, "1", host)
		assert.NoError(t, err, "host %q should be allowed", host)
	}

	_, err = client.GetVideoInfo(ctx, "1", "evil.example")
	assert.Error(t, err)
}

func TestGetVideoInfoRequiresTweetID(t *testing.T) {
	client, err := NewHTTPClient("http://localhost:0", nil)
	require.NoError(t, err)

	_, err = client.GetVideoInfo(context.Background(), "", "x.com")
	assert.Error(t, err)
}

func TestNewHTTPClientInvalidPattern(t *testing.T) {
	_, err := NewHTTPClient("http://localhost:0", []string{"[bad"})
	assert.Error(t, err)
}
