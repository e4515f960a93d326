// Package download is the boundary to the download manager. The
// mediator hands it a URL and a relative filename; the local
// implementation fetches into the configured download directory and
// reports the failure, if any, through a last-error channel the way
// browser download APIs do, rather than panicking the caller.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tweetlens/tweetlens/pkg/logging"
)

// Request names one file to download.
type Request struct {
	URL      string
	Filename string
}

// Manager starts downloads. Download returns an opaque download id;
// errors from the transfer itself surface through LastError, matching
// the download API this wraps.
type Manager interface {
	Download(ctx context.Context, req Request) (string, error)
	LastError() error
}

// LocalManager implements Manager by fetching over HTTP into a
// directory, with every target path confined to that directory.
type LocalManager struct {
	dir    string
	client *http.Client
	log    *logging.Logger

	mu      sync.Mutex
	lastErr error
}

// NewLocalManager creates a manager rooted at dir. The directory is
// created if missing.
func NewLocalManager(dir string, log *logging.Logger) (*LocalManager, error) {
	if dir == "" {
		return nil, fmt.Errorf("download directory cannot be empty")
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve download directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}
	return &LocalManager{
		dir:    absDir,
		client: &http.Client{Timeout: 5 * time.Minute},
		log:    log,
	}, nil
}

// Dir returns the absolute download directory.
func (m *LocalManager) Dir() string {
	return m.dir
}

// Download fetches the URL into the directory under the requested
// filename and returns a download id. Transfer and filesystem errors
// are recorded as the last error and also returned.
func (m *LocalManager) Download(ctx context.Context, req Request) (string, error) {
	target, err := m.resolveTarget(req.Filename)
	if err != nil {
		return "", m.fail(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return "", m.fail(fmt.Errorf("build download request: %w", err))
	}
	resp, err := m.client.Do(httpReq)
	if err != nil {
		return "", m.fail(fmt.Errorf("download request failed: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", m.fail(fmt.Errorf("download returned status %d", resp.StatusCode))
	}

	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return "", m.fail(fmt.Errorf("create download subdirectory: %w", err))
	}
	file, err := os.Create(target)
	if err != nil {
		return "", m.fail(fmt.Errorf("create download file: %w", err))
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(target)
		return "", m.fail(fmt.Errorf("write download file: %w", err))
	}
	if err := file.Close(); err != nil {
		return "", m.fail(fmt.Errorf("close download file: %w", err))
	}

	id := uuid.New().String()
	if m.log != nil {
		m.log.Infof("download %s finished: %s", id, target)
	}
	m.setLastError(nil)
	return id, nil
}

// LastError returns the error from the most recent Download, or nil.
func (m *LocalManager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// resolveTarget confines the requested filename to the download
// directory. Absolute paths and traversal segments are rejected rather
// than silently rewritten.
func (m *LocalManager) resolveTarget(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}
	if filepath.IsAbs(filename) {
		return "", fmt.Errorf("filename %q must be relative to the download directory", filename)
	}
	target := filepath.Join(m.dir, filepath.Clean(filename))
	rel, err := filepath.Rel(m.dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("filename %q escapes the download directory", filename)
	}
	return target, nil
}

func (m *LocalManager) fail(err error) error {
	if m.log != nil {
		m.log.Errorf("download failed: %v", err)
	}
	m.setLastError(err)
	return err
}

func (m *LocalManager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
