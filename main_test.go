package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/sprout/storage"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		kind    string
		loadRun string
		wantNil bool
		wantErr bool
	}{
		{name: "memory", kind: "memory", wantNil: true},
		{name: "empty kind", kind: "", wantNil: true},
		{name: "memory with load-run", kind: "memory", loadRun: "run-1", wantErr: true},
		{name: "unknown kind", kind: "postgres", wantErr: true},
		{name: "sqlite", kind: "sqlite"},
		{name: "sqlite with load-run", kind: "sqlite", loadRun: "run-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "runs.db")
			store, err := openStore(ctx, tt.kind, path, tt.loadRun)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for kind %q load-run %q", tt.kind, tt.loadRun)
				}
				return
			}
			if err != nil {
				t.Fatalf("openStore: %v", err)
			}
			if tt.wantNil {
				if store != nil {
					t.Fatalf("expected no store for kind %q, got %T", tt.kind, store)
				}
				return
			}
			if store == nil {
				t.Fatal("expected a store")
			}
			defer storage.CloseIfSupported(store)
			if _, ok, err := store.LatestSnapshot(ctx, "missing"); err != nil || ok {
				t.Fatalf("LatestSnapshot on empty store: ok=%v err=%v", ok, err)
			}
		})
	}
}
