package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	for _, name := range []string{"model.json", "model.msgpack"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "models", name)
			s, err := NewFileStore(path, "auto")
			require.NoError(t, err)
			defer s.Close()

			m := trainedModel(t, 3)
			require.NoError(t, s.Save(context.Background(), m))

			loaded, err := s.Load(context.Background())
			require.NoError(t, err)
			assertSameSuggestions(t, m, loaded)
		})
	}
}

func TestFileStoreSaveReplacesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	s, err := NewFileStore(path, "json")
	require.NoError(t, err)

	require.NoError(t, s.Save(context.Background(), trainedModel(t, 2)))
	second := trainedModel(t, 3)
	require.NoError(t, s.Save(context.Background(), second))

	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Order())

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "model.json", files[0].Name())
}

func TestFileStoreLoadMissing(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "absent.json"), "auto")
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrCorrupt)
}

func TestFileStoreLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"format":"mailtype/ngram","version":1,`), 0644))

	s, err := NewFileStore(path, "auto")
	require.NoError(t, err)

	m, err := s.Load(context.Background())
	assert.Nil(t, m)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestFileStoreHonoursCancelledContext(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "model.json"), "auto")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Save(ctx, trainedModel(t, 3)), context.Canceled)
}

func TestNewFileStoreValidates(t *testing.T) {
	_, err := NewFileStore("", "json")
	assert.Error(t, err)

	_, err = NewFileStore("model.json", "yaml")
	assert.Error(t, err)
}
