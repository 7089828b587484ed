package docstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/immarkus/immarkus-engine/pkg/apperrors"
	"github.com/immarkus/immarkus-engine/pkg/config"
)

// storeFactories builds every store that runs without external services.
func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"file": func(t *testing.T) Store {
			s, err := NewFileStore(t.TempDir(), zap.NewNop())
			require.NoError(t, err)
			return s
		},
		"bolt": func(t *testing.T) Store {
			s, err := NewBoltStore(filepath.Join(t.TempDir(), "immarkus.db"), zap.NewNop())
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "immarkus.sqlite"), zap.NewNop())
			require.NoError(t, err)
			return s
		},
	}
}

func TestStores_RoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()

			_, err := s.Read(ctx, "annotations/missing.json")
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrNotFound))

			require.NoError(t, s.Write(ctx, "annotations/img-1.json", []byte(`[{"id":"a1"}]`)))
			got, err := s.Read(ctx, "annotations/img-1.json")
			require.NoError(t, err)
			assert.JSONEq(t, `[{"id":"a1"}]`, string(got))

			// Writes replace the whole document
			require.NoError(t, s.Write(ctx, "annotations/img-1.json", []byte(`[]`)))
			got, err = s.Read(ctx, "annotations/img-1.json")
			require.NoError(t, err)
			assert.JSONEq(t, `[]`, string(got))
		})
	}
}

func TestStores_RejectInvalidKeys(t *testing.T) {
	ctx := context.Background()

	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()

			err := s.Write(ctx, "../escape.json", []byte(`{}`))
			assert.True(t, errors.Is(err, ErrInvalidKey))

			_, err = s.Read(ctx, "/etc/passwd")
			assert.True(t, errors.Is(err, ErrInvalidKey))
		})
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{"_immarkus.model.json", true},
		{"annotations/img-1.json", true},
		{"", false},
		{"/abs.json", false},
		{"a/../b.json", false},
		{"./a.json", false},
		{"a//b.json", false},
		{"a\\b.json", false},
		{"..", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidKey)
			}
		})
	}
}

func TestReadJSON_MissingAndEmpty(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewFileStore(root, zap.NewNop())
	require.NoError(t, err)

	var v map[string]any
	found, err := ReadJSON(ctx, s, "nothing.json", &v)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, os.WriteFile(filepath.Join(root, "blank.json"), []byte("  \n"), 0o644))
	found, err = ReadJSON(ctx, s, "blank.json", &v)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.json"), []byte("{"), 0o644))
	_, err = ReadJSON(ctx, s, "broken.json", &v)
	assert.Error(t, err)
}

func TestWriteJSON_ReadJSON(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	in := map[string]any{"entityTypes": []any{map[string]any{"id": "person"}}}
	require.NoError(t, WriteJSON(ctx, s, "_immarkus.model.json", in))

	var out map[string]any
	found, err := ReadJSON(ctx, s, "_immarkus.model.json", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "person", out["entityTypes"].([]any)[0].(map[string]any)["id"])
}

func TestFileStore_WriteLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewFileStore(root, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Write(ctx, "annotations/img.json", []byte(`[]`)))

	entries, err := os.ReadDir(filepath.Join(root, "annotations"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "img.json", entries[0].Name())
}

func TestStores_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	assert.ErrorIs(t, s.Write(ctx, "a.json", []byte(`{}`)), context.Canceled)
	_, err = s.Read(ctx, "a.json")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.StorageConfig
		wantErr bool
	}{
		{"file", config.StorageConfig{Driver: config.DriverFile, Path: filepath.Join(dir, "docs")}, false},
		{"bolt", config.StorageConfig{Driver: config.DriverBolt, Path: filepath.Join(dir, "immarkus.db")}, false},
		{"sqlite", config.StorageConfig{Driver: config.DriverSQLite, Path: filepath.Join(dir, "immarkus.sqlite")}, false},
		{"unknown", config.StorageConfig{Driver: "redis"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(ctx, tt.cfg, zap.NewNop())
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, s)
			assert.NoError(t, s.Close())
		})
	}
}
