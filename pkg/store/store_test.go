package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFile_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.yaml")

	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set(ctx, KeyAuthToken, "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "carFormData", `{"title":"a: b"}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}

	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok, err := reopened.Get(ctx, "carFormData")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got != `{"title":"a: b"}` {
		t.Fatalf("value changed on disk round trip: %q", got)
	}

	keys, _ := reopened.Keys(ctx)
	if diff := cmp.Diff([]string{KeyAuthToken, "carFormData"}, keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
}

func TestFile_DeleteRemovesKey(t *testing.T) {
	ctx := context.Background()
	s, err := OpenFile(filepath.Join(t.TempDir(), "state.yaml"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = s.Set(ctx, KeyTheme, "dark")
	if err := s.Delete(ctx, KeyTheme); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, KeyTheme); ok {
		t.Fatalf("expected key removed")
	}
}

func TestMemory_ClosedStoreRejectsWrites(t *testing.T) {
	m := NewMemory(map[string]string{"a": "1"})
	if v, ok, _ := m.Get(context.Background(), "a"); !ok || v != "1" {
		t.Fatalf("seed not applied")
	}
	_ = m.Close()
	if err := m.Set(context.Background(), "b", "2"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestMemory_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewMemory(nil).Set(ctx, "a", "1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
