package identity

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/chancore/chancore/internal/store"
)

func TestEphemeralProvider_Stable(t *testing.T) {
	p := NewEphemeralProvider()
	ctx := context.Background()

	id1, err := p.GetOrCreate(ctx)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if id1 == "" {
		t.Fatal("expected non-empty identity")
	}

	id2, _ := p.GetOrCreate(ctx)
	if id1 != id2 {
		t.Errorf("identity not stable within process: %q != %q", id1, id2)
	}
}

func TestEphemeralProvider_DistinctAcrossProviders(t *testing.T) {
	ctx := context.Background()
	id1, _ := NewEphemeralProvider().GetOrCreate(ctx)
	id2, _ := NewEphemeralProvider().GetOrCreate(ctx)
	if id1 == id2 {
		t.Error("expected distinct identities for distinct providers")
	}
}

func TestStoreProvider_CachesAndPersists(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(filepath.Join(t.TempDir(), "session.db"), 0)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	defer s.Close()

	p := NewStoreProvider(s)
	id1, err := p.GetOrCreate(ctx)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	// A second provider over the same store sees the same identity.
	p2 := NewStoreProvider(s)
	id2, err := p2.GetOrCreate(ctx)
	if err != nil {
		t.Fatalf("GetOrCreate via second provider failed: %v", err)
	}
	if id1 != id2 {
		t.Errorf("identity differs across providers: %q != %q", id1, id2)
	}
}

func TestStatic(t *testing.T) {
	id, err := Static("client-fixed").GetOrCreate(context.Background())
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if id != "client-fixed" {
		t.Errorf("id = %q, want %q", id, "client-fixed")
	}
}
