package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

var documentsBucket = []byte("documents")

// BoltStore keeps all documents in a single bolt bucket.
type BoltStore struct {
	db     *bolt.DB
	logger *zap.Logger
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore opens (or creates) the bolt database at path.
func NewBoltStore(path string, logger *zap.Logger) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(documentsBucket); err != nil {
			return fmt.Errorf("create bucket: %s", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, logger: logger.Named("bolt-store")}, nil
}

func (s *BoltStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(documentsBucket).Get([]byte(key))
		if v != nil {
			// bolt values are only valid inside the transaction
			value = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read document %q: %w", key, err)
	}
	if value == nil {
		return nil, notFound(key)
	}
	return value, nil
}

func (s *BoltStore) Write(ctx context.Context, key string, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateKey(key); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(documentsBucket).Put([]byte(key), doc)
	})
	if err != nil {
		return fmt.Errorf("write document %q: %w", key, err)
	}

	s.logger.Debug("Document written", zap.String("key", key), zap.Int("bytes", len(doc)))
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
