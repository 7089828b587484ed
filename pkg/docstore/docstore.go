// Package docstore provides the key-addressable document stores the data
// model and annotation stores persist through. Every write replaces the whole
// document stored under a key.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/immarkus/immarkus-engine/pkg/apperrors"
)

// Store reads and writes whole documents by key.
type Store interface {
	// Read returns the document stored under key, or an error wrapping
	// apperrors.ErrNotFound when there is none.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write replaces the document stored under key.
	Write(ctx context.Context, key string, doc []byte) error

	Close() error
}

// ErrInvalidKey is returned for keys that are empty or escape the store root.
var ErrInvalidKey = errors.New("invalid document key")

// ValidateKey checks that key is a clean, relative, slash-separated path.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if path.Clean(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// ReadJSON decodes the document under key into v. It reports false, with a
// nil error, when the document does not exist.
func ReadJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	data, err := s.Read(ctx, key)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode document %q: %w", key, err)
	}
	return true, nil
}

// WriteJSON encodes v and writes it under key.
func WriteJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document %q: %w", key, err)
	}
	return s.Write(ctx, key, data)
}

func notFound(key string) error {
	return fmt.Errorf("document %q: %w", key, apperrors.ErrNotFound)
}
