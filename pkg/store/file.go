package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zpam/mailtype/pkg/ngram"
)

// FileStore keeps the model as a single artifact file.
type FileStore struct {
	path  string
	codec Codec
}

// NewFileStore creates a file store. format is json, msgpack or auto.
func NewFileStore(path, format string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("model path cannot be empty")
	}
	codec, err := CodecFor(format, path)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, codec: codec}, nil
}

// Path returns the artifact location.
func (s *FileStore) Path() string { return s.path }

// Codec returns the codec in use.
func (s *FileStore) Codec() Codec { return s.codec }

// Save writes the artifact to a temporary file next to the destination and
// renames it into place. Readers see either the previous artifact or the new one.
func (s *FileStore) Save(ctx context.Context, m *ngram.Model) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(m, s.codec)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write model file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close model file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set model file mode: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace model file: %w", err)
	}
	return nil
}

// Load reads and validates the artifact.
func (s *FileStore) Load(ctx context.Context) (*ngram.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return Decode(data, s.codec)
}

// Close is a no-op; files are closed by Save and Load.
func (s *FileStore) Close() error { return nil }
