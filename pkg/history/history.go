// Package history persists download records in a local SQLite
// database. The mediator uses it for two things only: deduplicating
// downloads by tweet id and letting the user navigate back to a past
// download.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Record is one completed (or initiated) download.
type Record struct {
	ID           string
	TweetID      string
	Filename     string
	DownloadDate time.Time
	DownloadID   string
	TweetURL     string
	TweetText    string
}

// Store defines the download-history operations.
type Store interface {
	Add(ctx context.Context, rec Record) (string, error)
	GetByTweetID(ctx context.Context, tweetID string) (*Record, error)
	Remove(ctx context.Context, id string) error
	GetAll(ctx context.Context) ([]Record, error)
	Clear(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database file.
type SQLiteStore struct {
	db *sql.DB

	insertRecord *sql.Stmt
	getByTweetID *sql.Stmt
	deleteRecord *sql.Stmt
}

// Open opens (or creates) the history database at path and applies the
// schema.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	store, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore wraps an already-opened database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate history schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS downloads (
			id            TEXT PRIMARY KEY,
			tweet_id      TEXT NOT NULL UNIQUE,
			filename      TEXT NOT NULL,
			download_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			download_id   TEXT NOT NULL DEFAULT '',
			tweet_url     TEXT NOT NULL DEFAULT '',
			tweet_text    TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("create downloads table: %w", err)
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_downloads_date ON downloads(download_date DESC)`)
	if err != nil {
		return fmt.Errorf("create date index: %w", err)
	}
	return nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.insertRecord, err = s.db.Prepare(`
		INSERT INTO downloads (id, tweet_id, filename, download_date, download_id, tweet_url, tweet_text)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.getByTweetID, err = s.db.Prepare(`
		SELECT id, tweet_id, filename, download_date, download_id, tweet_url, tweet_text
		FROM downloads WHERE tweet_id = ?
	`)
	if err != nil {
		return err
	}

	s.deleteRecord, err = s.db.Prepare(`DELETE FROM downloads WHERE id = ?`)
	return err
}

// Add inserts a record and returns its generated id. A zero
// DownloadDate is stamped with the current time.
func (s *SQLiteStore) Add(ctx context.Context, rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.DownloadDate.IsZero() {
		rec.DownloadDate = time.Now().UTC()
	}

	_, err := s.insertRecord.ExecContext(ctx,
		rec.ID, rec.TweetID, rec.Filename, rec.DownloadDate,
		rec.DownloadID, rec.TweetURL, rec.TweetText)
	if err != nil {
		return "", fmt.Errorf("insert download record: %w", err)
	}
	return rec.ID, nil
}

// GetByTweetID returns the record for a tweet id, or nil when none
// exists. Absence is the common case and not an error.
func (s *SQLiteStore) GetByTweetID(ctx context.Context, tweetID string) (*Record, error) {
	row := s.getByTweetID.QueryRowContext(ctx, tweetID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query download by tweet id: %w", err)
	}
	return rec, nil
}

// Remove deletes the record with the given id. Removing an unknown id
// is a no-op.
func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	if _, err := s.deleteRecord.ExecContext(ctx, id); err != nil {
		return fmt.Errorf("delete download record: %w", err)
	}
	return nil
}

// GetAll returns every record, newest first.
func (s *SQLiteStore) GetAll(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tweet_id, filename, download_date, download_id, tweet_url, tweet_text
		FROM downloads ORDER BY download_date DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query download records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan download record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate download records: %w", err)
	}
	return records, nil
}

// Clear removes every record.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM downloads`); err != nil {
		return fmt.Errorf("clear download records: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	if err := row.Scan(&rec.ID, &rec.TweetID, &rec.Filename, &rec.DownloadDate,
		&rec.DownloadID, &rec.TweetURL, &rec.TweetText); err != nil {
		return nil, err
	}
	return &rec, nil
}
