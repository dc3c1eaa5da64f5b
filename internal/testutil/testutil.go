// Package testutil provides shared test helpers for setting up stores and engines.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/starford/notestore/internal/docstore"
	"github.com/starford/notestore/internal/notedb"
	"github.com/starford/notestore/internal/storage"
)

// TestStore creates a temporary SQLite document store that is automatically cleaned up.
func TestStore(t *testing.T) *docstore.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "notestore-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() {
		os.Remove(dbFile.Name())
		os.Remove(dbFile.Name() + "-wal")
		os.Remove(dbFile.Name() + "-shm")
	})

	s, err := docstore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestNoteDB opens an initialized engine over a fresh temporary store.
func TestNoteDB(t *testing.T, opts ...notedb.Option) (*notedb.DB, *docstore.Store) {
	t.Helper()
	s := TestStore(t)
	db, err := notedb.Open(context.Background(), s, opts...)
	if err != nil {
		t.Fatalf("notedb.Open: %v", err)
	}
	return db, s
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}
