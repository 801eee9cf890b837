package fsstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazama-dev/mediaforge/internal/domain/repository"
)

func TestNew(t *testing.T) {
	t.Run("creates the base directory", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "derivatives")
		store, err := New(base)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if store.BasePath() != base {
			t.Errorf("got base %q", store.BasePath())
		}
		if info, err := os.Stat(base); err != nil || !info.IsDir() {
			t.Error("base directory not created")
		}
	})

	t.Run("empty base path is rejected", func(t *testing.T) {
		if _, err := New(""); err == nil {
			t.Error("expected error for empty base path")
		}
	})
}

func TestStore_Put(t *testing.T) {
	ctx := context.Background()

	t.Run("writes nested paths with the artifact mode", func(t *testing.T) {
		store, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("setup: %v", err)
		}

		artifact, err := store.Put(ctx, "square/215/abc.jpg", strings.NewReader("thumb bytes"), 11)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if artifact.RelativePath != "square/215/abc.jpg" {
			t.Errorf("relative path: got %q", artifact.RelativePath)
		}
		if artifact.ByteSize != 11 {
			t.Errorf("byte size: got %d, expected 11", artifact.ByteSize)
		}

		info, err := os.Stat(store.LocalPath("square/215/abc.jpg"))
		if err != nil {
			t.Fatalf("artifact missing: %v", err)
		}
		if info.Mode().Perm() != 0o644 {
			t.Errorf("mode: got %v, expected 0644", info.Mode().Perm())
		}
	})

	t.Run("replaces an existing artifact", func(t *testing.T) {
		store, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("setup: %v", err)
		}

		if _, err := store.Put(ctx, "large/abc.jpg", strings.NewReader("old"), 3); err != nil {
			t.Fatalf("first put: %v", err)
		}
		if _, err := store.Put(ctx, "large/abc.jpg", strings.NewReader("new bytes"), 9); err != nil {
			t.Fatalf("second put: %v", err)
		}

		b, err := os.ReadFile(store.LocalPath("large/abc.jpg"))
		if err != nil {
			t.Fatalf("read back: %v", err)
		}
		if string(b) != "new bytes" {
			t.Errorf("got %q, expected replacement to win", b)
		}
	})

	t.Run("leaves no temp files behind", func(t *testing.T) {
		base := t.TempDir()
		store, err := New(base)
		if err != nil {
			t.Fatalf("setup: %v", err)
		}

		if _, err := store.Put(ctx, "large/abc.jpg", strings.NewReader("bytes"), 5); err != nil {
			t.Fatalf("put: %v", err)
		}

		entries, err := os.ReadDir(filepath.Join(base, "large"))
		if err != nil {
			t.Fatalf("readdir: %v", err)
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".put-") {
				t.Errorf("stale temp file %q", e.Name())
			}
		}
	})

	t.Run("cancelled context writes nothing", func(t *testing.T) {
		store, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("setup: %v", err)
		}

		cancelledCtx, cancel := context.WithCancel(ctx)
		cancel()

		if _, err := store.Put(cancelledCtx, "large/abc.jpg", strings.NewReader("bytes"), 5); err == nil {
			t.Error("expected error for cancelled context")
		}
		if _, statErr := os.Stat(store.LocalPath("large/abc.jpg")); !os.IsNotExist(statErr) {
			t.Error("artifact must not exist after a cancelled put")
		}
	})
}

func TestStore_ExistsAndSize(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	if _, err := store.Put(ctx, "medium/abc.jpg", strings.NewReader("12345"), 5); err != nil {
		t.Fatalf("put: %v", err)
	}

	t.Run("present artifact", func(t *testing.T) {
		ok, err := store.Exists(ctx, "medium/abc.jpg")
		if err != nil || !ok {
			t.Errorf("got (%v, %v), expected (true, nil)", ok, err)
		}
		size, err := store.Size(ctx, "medium/abc.jpg")
		if err != nil || size != 5 {
			t.Errorf("got (%d, %v), expected (5, nil)", size, err)
		}
	})

	t.Run("absent artifact", func(t *testing.T) {
		ok, err := store.Exists(ctx, "medium/missing.jpg")
		if err != nil || ok {
			t.Errorf("got (%v, %v), expected (false, nil)", ok, err)
		}
		_, err = store.Size(ctx, "medium/missing.jpg")
		if !errors.Is(err, repository.ErrArtifactNotFound) {
			t.Errorf("got %v, expected ErrArtifactNotFound", err)
		}
	})
}
