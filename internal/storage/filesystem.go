// Package storage persists run artifacts under a sandboxed base
// directory.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store is what the reporting layer needs from persistence.
type Store interface {
	Save(ctx context.Context, path string, data []byte) error
	Load(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) bool
}

// RunStore writes artifacts for one run, each run under its own
// subdirectory of the base. Paths are relative to the run directory and
// may not escape it.
type RunStore struct {
	baseDir string
	runID   string
}

// NewRunStore roots a store at baseDir/runID.
func NewRunStore(baseDir, runID string) (*RunStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("creating run store: empty base directory")
	}
	if strings.ContainsAny(runID, `/\`) || runID == "" {
		return nil, fmt.Errorf("creating run store: invalid run ID %q", runID)
	}
	return &RunStore{baseDir: baseDir, runID: runID}, nil
}

// Dir is the absolute directory this store writes into.
func (s *RunStore) Dir() string {
	return filepath.Join(s.baseDir, s.runID)
}

// resolve validates a relative artifact path and anchors it under the
// run directory. Parent references and absolute paths are refused.
func (s *RunStore) resolve(path string) (string, error) {
	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid path %q: parent directory reference", path)
	}
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid path %q: absolute paths not allowed", path)
	}

	root := s.Dir()
	full := filepath.Join(root, cleaned)
	if !strings.HasPrefix(full, root+string(filepath.Separator)) && full != root {
		return "", fmt.Errorf("invalid path %q: outside run directory", path)
	}
	return full, nil
}

// Save writes an artifact, creating directories as needed.
func (s *RunStore) Save(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Load reads an artifact back.
func (s *RunStore) Load(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Exists reports whether the artifact is present.
func (s *RunStore) Exists(ctx context.Context, path string) bool {
	full, err := s.resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}
