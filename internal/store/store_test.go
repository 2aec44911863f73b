package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "session.db"), 0)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_GetOrCreateClientID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id1, err := s.GetOrCreateClientID(ctx)
	if err != nil {
		t.Fatalf("GetOrCreateClientID failed: %v", err)
	}
	if !strings.HasPrefix(id1, "client-") {
		t.Errorf("client ID = %q, want client- prefix", id1)
	}

	id2, err := s.GetOrCreateClientID(ctx)
	if err != nil {
		t.Fatalf("second GetOrCreateClientID failed: %v", err)
	}
	if id1 != id2 {
		t.Errorf("identity not stable: %q != %q", id1, id2)
	}
}

func TestStore_IdentitySurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.db")
	ctx := context.Background()

	s1, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	id1, err := s1.GetOrCreateClientID(ctx)
	if err != nil {
		t.Fatalf("GetOrCreateClientID failed: %v", err)
	}
	_ = s1.Close()

	s2, err := Open(path, 0)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	id2, err := s2.GetOrCreateClientID(ctx)
	if err != nil {
		t.Fatalf("GetOrCreateClientID after reopen failed: %v", err)
	}
	if id1 != id2 {
		t.Errorf("identity not durable across reopen: %q != %q", id1, id2)
	}
}

func TestStore_ReadCursors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.ReadCursor(ctx, "ch-1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadCursor of unknown channel: err = %v, want ErrNotFound", err)
	}

	if err := s.SetReadCursor(ctx, "ch-1", "msg-5"); err != nil {
		t.Fatalf("SetReadCursor failed: %v", err)
	}

	got, err := s.ReadCursor(ctx, "ch-1")
	if err != nil {
		t.Fatalf("ReadCursor failed: %v", err)
	}
	if got != "msg-5" {
		t.Errorf("cursor = %q, want %q", got, "msg-5")
	}

	// Upsert moves the cursor forward
	if err := s.SetReadCursor(ctx, "ch-1", "msg-9"); err != nil {
		t.Fatalf("SetReadCursor upsert failed: %v", err)
	}
	got, err = s.ReadCursor(ctx, "ch-1")
	if err != nil {
		t.Fatalf("ReadCursor after upsert failed: %v", err)
	}
	if got != "msg-9" {
		t.Errorf("cursor = %q, want %q", got, "msg-9")
	}
}

func TestStore_SetReadCursorRequiresChannel(t *testing.T) {
	s := openTestStore(t)
	if err := s.SetReadCursor(context.Background(), "", "msg-1"); err == nil {
		t.Error("expected error for empty channel ID")
	}
}
