package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *RunStore {
	t.Helper()
	s, err := NewRunStore(t.TempDir(), "run-123")
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "metrics.json", []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !s.Exists(ctx, "metrics.json") {
		t.Fatal("artifact missing after save")
	}
	data, err := s.Load(ctx, "metrics.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("data = %s", data)
	}
}

func TestSaveCreatesNestedDirs(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save(context.Background(), "scenes/scene_001.md", []byte("prose")); err != nil {
		t.Fatalf("Save nested: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), "scenes", "scene_001.md")); err != nil {
		t.Errorf("nested file not on disk: %v", err)
	}
}

func TestPathSandbox(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, path := range []string{"../escape.txt", "a/../../escape.txt", "/etc/passwd"} {
		if err := s.Save(ctx, path, []byte("x")); err == nil {
			t.Errorf("Save(%q) accepted an escaping path", path)
		}
		if s.Exists(ctx, path) {
			t.Errorf("Exists(%q) = true for escaping path", path)
		}
	}
}

func TestNewRunStoreValidation(t *testing.T) {
	if _, err := NewRunStore("", "run"); err == nil {
		t.Error("expected error for empty base dir")
	}
	if _, err := NewRunStore(t.TempDir(), "a/b"); err == nil {
		t.Error("expected error for run ID with separator")
	}
	if _, err := NewRunStore(t.TempDir(), ""); err == nil {
		t.Error("expected error for empty run ID")
	}
}

func TestLoadMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Load(context.Background(), "absent.json"); err == nil {
		t.Error("expected error for missing artifact")
	}
}
