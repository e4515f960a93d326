package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadWritesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("video-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	mgr, err := NewLocalManager(dir, nil)
	require.NoError(t, err)

	id, err := mgr.Download(context.Background(), Request{URL: srv.URL, Filename: "jane-998877.mp4"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mgr.LastError())

	data, err := os.ReadFile(filepath.Join(dir, "jane-998877.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))
}

func TestDownloadSubdirectory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	mgr, err := NewLocalManager(dir, nil)
	require.NoError(t, err)

	_, err = mgr.Download(context.Background(), Request{URL: srv.URL, Filename: "jane/clip.mp4"})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "jane", "clip.mp4"))
}

func TestDownloadRejectsEscapingFilenames(t *testing.T) {
	mgr, err := NewLocalManager(t.TempDir(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	for _, filename := range []string{"../evil.mp4", "a/../../evil.mp4", "/tmp/evil.mp4", ""} {
		_, err := mgr.Download(ctx, Request{URL: "http://unused.example", Filename: filename})
		assert.Error(t, err, "filename %q must be rejected", filename)
	}
}

func TestDownloadHTTPFailureSetsLastError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	mgr, err := NewLocalManager(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = mgr.Download(context.Background(), Request{URL: srv.URL, Filename: "clip.mp4"})
	assert.Error(t, err)
	assert.Error(t, mgr.LastError())
}

func TestLastErrorClearsOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	mgr, err := NewLocalManager(t.TempDir(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = mgr.Download(ctx, Request{URL: srv.URL, Filename: "../nope"})
	require.Error(t, err)

	_, err = mgr.Download(ctx, Request{URL: srv.URL, Filename: "fine.mp4"})
	require.NoError(t, err)
	assert.NoError(t, mgr.LastError())
}
