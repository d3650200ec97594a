package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// Spool writes captured messages into a corpus directory as .eml files.
type Spool struct {
	dir     string
	counter atomic.Uint64
	now     func() time.Time
}

// NewSpool creates the spool directory if needed.
func NewSpool(dir string) (*Spool, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}
	return &Spool{dir: dir, now: time.Now}, nil
}

// Dir returns the spool directory.
func (s *Spool) Dir() string { return s.dir }

// Write stores raw as a new message file and returns its path. The file
// appears under its final name only once it is complete.
func (s *Spool) Write(raw []byte) (string, error) {
	n := s.counter.Add(1)
	name := fmt.Sprintf("%s-%d-%06d.eml", s.now().UTC().Format("20060102T150405"), os.Getpid(), n)
	path := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create spool file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write spool file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close spool file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("failed to move spool file: %w", err)
	}
	return path, nil
}
