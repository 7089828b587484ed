package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"go.uber.org/zap"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
    key         TEXT PRIMARY KEY,
    body        BLOB NOT NULL,
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// SQLiteStore keeps documents in a single SQLite table.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ Store = (*SQLiteStore)(nil)

// sqliteBusyTimeout is how long a statement waits on another connection's
// lock before failing with SQLITE_BUSY.
const sqliteBusyTimeout = 5 * time.Second

// NewSQLiteStore opens (or creates) the database file at path.
func NewSQLiteStore(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	return openSQLiteStore(ctx, path, sqliteBusyTimeout, logger)
}

func openSQLiteStore(ctx context.Context, path string, busyTimeout time.Duration, logger *zap.Logger) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(FULL)",
		path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger.Named("sqlite-store")}, nil
}

func (s *SQLiteStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("read document %q: %w", key, err)
	}
	return body, nil
}

func (s *SQLiteStore) Write(ctx context.Context, key string, doc []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if doc == nil {
		doc = []byte{}
	}

	// A locked database fails the write once the busy timeout has passed.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (key, body, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at`,
		key, doc)
	if err != nil {
		return fmt.Errorf("write document %q: %w", key, err)
	}

	s.logger.Debug("Document written", zap.String("key", key), zap.Int("bytes", len(doc)))
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
