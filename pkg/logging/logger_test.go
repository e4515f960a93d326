package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFileNamedAfterSession(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLogger("browser", WithDirectory(dir), WithSessionID("abc123"))
	require.NoError(t, err)
	defer log.Close()

	assert.Equal(t, "abc123", log.SessionID())
	assert.Equal(t, filepath.Join(dir, "abc123-tweetlens.log"), log.Path())

	log.Infof("starting up")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(log.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "starting up")
}

func TestLineCarriesComponentAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger("reconcile", WithWriter(&buf))
	require.NoError(t, err)

	log.Warnf("sweep skipped: %s", "settings unavailable")

	line := buf.String()
	assert.Contains(t, line, "[reconcile]")
	assert.Contains(t, line, "[WARN]")
	assert.Contains(t, line, "sweep skipped: settings unavailable")
}

func TestComponentLoggersShareOneFile(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLogger("main", WithDirectory(dir))
	require.NoError(t, err)

	browser := log.Component("browser")
	assert.Equal(t, log.SessionID(), browser.SessionID())

	log.Infof("from main")
	browser.Debugf("from browser")
	require.NoError(t, log.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "one session, one file")

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[main] [INFO] from main")
	assert.Contains(t, string(data), "[browser] [DEBUG] from browser")
}

func TestGeneratedSessionIDsDiffer(t *testing.T) {
	var buf bytes.Buffer
	first, err := NewLogger("a", WithWriter(&buf))
	require.NoError(t, err)
	second, err := NewLogger("b", WithWriter(&buf))
	require.NoError(t, err)

	assert.NotEmpty(t, first.SessionID())
	assert.NotEqual(t, first.SessionID(), second.SessionID())
}

func TestUnwritableDirectoryFallsBack(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	log, err := NewLogger("main", WithDirectory(filepath.Join(blocker, "logs")))
	assert.Error(t, err)
	require.NotNil(t, log, "logger still usable")
	assert.Empty(t, log.Path())

	// Must not panic; the fallback writes to stderr.
	log.Errorf("still alive")
}

func TestCloseIsIdempotent(t *testing.T) {
	log, err := NewLogger("main", WithDirectory(t.TempDir()))
	require.NoError(t, err)

	require.NoError(t, log.Close())
	require.NoError(t, log.Close())

	// Logging after close drops the line instead of hitting a closed
	// file handle.
	log.Infof("after close")
}

func TestCloseFromDerivedLogger(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLogger("main", WithDirectory(dir))
	require.NoError(t, err)

	require.NoError(t, log.Component("browser").Close())
	log.Infof("dropped")

	data, err := os.ReadFile(log.Path())
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "dropped"))
}

func TestWriterSkipsFilesystem(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger("main", WithWriter(&buf), WithSessionID("mem"))
	require.NoError(t, err)

	log.Debugf("in memory")
	assert.Empty(t, log.Path())
	assert.Contains(t, buf.String(), "in memory")
	require.NoError(t, log.Close(), "nothing to close")
}
