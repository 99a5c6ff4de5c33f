package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func exerciseDatabase(t *testing.T, db Database) {
	t.Helper()
	if _, err := db.Get([]byte("missing")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := db.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	ok, err := db.Has([]byte("a"))
	if err != nil || !ok {
		t.Fatalf("has: ok=%v err=%v", ok, err)
	}

	batch := NewBatch()
	batch.Put([]byte("b"), []byte("2"))
	batch.Put([]byte("c"), []byte("3"))
	batch.Delete([]byte("a"))
	if batch.Len() != 3 {
		t.Fatalf("unexpected batch len %d", batch.Len())
	}
	if err := db.Write(batch); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := db.Get([]byte("a")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected a deleted, got %v", err)
	}
	value, err := db.Get([]byte("c"))
	if err != nil {
		t.Fatalf("get c: %v", err)
	}
	if string(value) != "3" {
		t.Fatalf("unexpected value %q", value)
	}
	if err := db.Delete([]byte("b")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := db.Has([]byte("b")); ok {
		t.Fatalf("expected b removed")
	}
}

func TestMemDB(t *testing.T) {
	db := NewMemDB()
	defer db.Close()
	exerciseDatabase(t, db)
	if db.Len() != 1 {
		t.Fatalf("expected a single key left, got %d", db.Len())
	}
}

func TestLevelDB(t *testing.T) {
	db, err := NewLevelDB(filepath.Join(t.TempDir(), "ldb"))
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	defer db.Close()
	exerciseDatabase(t, db)
}

func TestBoltDB(t *testing.T) {
	db, err := NewBoltDB(filepath.Join(t.TempDir(), "state.bolt"))
	if err != nil {
		t.Fatalf("open bolt: %v", err)
	}
	defer db.Close()
	exerciseDatabase(t, db)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	if _, err := Open("rocksdb", t.TempDir()); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	db, err := Open(BackendMemory, "")
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	db.Close()
}
