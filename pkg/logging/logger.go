// Package logging writes leveled, component-tagged log lines to one
// file per session. Loggers for different components can share a
// session so the whole run lands in a single file, and the directory,
// session id and destination are all injectable for tests.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level tags a log line.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// session is the shared sink behind one or more component loggers.
type session struct {
	id   string
	path string

	mu   sync.Mutex
	out  io.Writer
	file *os.File

	closeOnce sync.Once
}

// Logger emits lines for one component into its session's sink.
type Logger struct {
	component string
	session   *session
}

type config struct {
	directory string
	sessionID string
	writer    io.Writer
}

// Option adjusts where and how a new logger writes.
type Option func(*config)

// WithDirectory places the session log file under dir instead of the
// default ~/.tweetlens/logs.
func WithDirectory(dir string) Option {
	return func(c *config) { c.directory = dir }
}

// WithSessionID fixes the session id instead of generating one.
func WithSessionID(id string) Option {
	return func(c *config) { c.sessionID = id }
}

// WithWriter sends log lines to w and skips the log file entirely.
func WithWriter(w io.Writer) Option {
	return func(c *config) { c.writer = w }
}

// NewLogger opens a session sink and returns a logger for component.
// When the log file cannot be opened the returned logger still works,
// falling back to stderr, and the error says why.
func NewLogger(component string, opts ...Option) (*Logger, error) {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sessionID == "" {
		cfg.sessionID = uuid.New().String()
	}

	s := &session{id: cfg.sessionID}
	logger := &Logger{component: component, session: s}

	if cfg.writer != nil {
		s.out = cfg.writer
		return logger, nil
	}

	dir := cfg.directory
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			s.out = os.Stderr
			return logger, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".tweetlens", "logs")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		s.out = os.Stderr
		return logger, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, s.id+"-tweetlens.log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		s.out = os.Stderr
		return logger, fmt.Errorf("failed to open log file: %w", err)
	}

	s.path = path
	s.file = file
	s.out = file
	return logger, nil
}

// Component returns a logger tagged with name that writes into the
// same session file as l.
func (l *Logger) Component(name string) *Logger {
	return &Logger{component: name, session: l.session}
}

// SessionID returns the id shared by every logger in this session.
func (l *Logger) SessionID() string {
	return l.session.id
}

// Path returns the session log file, or "" when writing elsewhere.
func (l *Logger) Path() string {
	return l.session.path
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.logf(LevelError, format, args...) }

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	line := fmt.Sprintf("[%s] [%s] [%s] %s\n",
		time.Now().Format(time.RFC3339),
		l.component,
		level,
		fmt.Sprintf(format, args...),
	)

	l.session.mu.Lock()
	defer l.session.mu.Unlock()
	if l.session.out != nil {
		fmt.Fprint(l.session.out, line)
	}
}

// Close flushes and closes the session file. Safe to call more than
// once, and from any of the session's loggers.
func (l *Logger) Close() error {
	var err error
	l.session.closeOnce.Do(func() {
		l.session.mu.Lock()
		defer l.session.mu.Unlock()
		if l.session.file != nil {
			err = l.session.file.Close()
			l.session.file = nil
			l.session.out = nil
		}
	})
	return err
}
