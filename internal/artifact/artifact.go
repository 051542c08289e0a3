// Package artifact writes the publishable registry package to disk.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
)

// Sink writes documents under a fully-rewritten output directory. It
// implements the decision engine's FileSink.
type Sink struct{}

// NewSink creates a Sink.
func NewSink() *Sink {
	return &Sink{}
}

// ClearDirectory removes path and recreates it empty, so no partial state
// from a previous run survives into this one.
func (s *Sink) ClearDirectory(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("clearing %s: %w", path, err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	return nil
}

// WriteDocument writes content to path, creating parent directories as
// needed.
func (s *Sink) WriteDocument(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating parent of %s: %w", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
