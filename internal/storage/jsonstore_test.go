package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/unilert/unilert/pkg/Logger"
)

func newTestStore(t *testing.T) *JSONStore {
	t.Helper()
	store, err := NewJSONStore(t.TempDir(), Logger.New(true))
	if err != nil {
		t.Fatalf("NewJSONStore failed: %v", err)
	}
	return store
}

func TestJSONStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	saved := []record{{Name: "a", Count: 1}, {Name: "b", Count: 2}}
	if err := store.Save("test_key", saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var loaded []record
	if err := store.Load("test_key", &loaded); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 2 || loaded[0].Name != "a" || loaded[1].Count != 2 {
		t.Errorf("Round trip mismatch: %+v", loaded)
	}
}

func TestJSONStoreMissingKey(t *testing.T) {
	store := newTestStore(t)

	loaded := []string{"sentinel"}
	if err := store.Load("never_saved", &loaded); err != nil {
		t.Errorf("Missing key should not error, got %v", err)
	}
	if len(loaded) != 1 || loaded[0] != "sentinel" {
		t.Error("Missing key must leave the destination untouched")
	}
}

func TestJSONStoreMalformedFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir, Logger.New(true))
	if err != nil {
		t.Fatalf("NewJSONStore failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "bad_key.json"), []byte("{truncated"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	var loaded []string
	if err := store.Load("bad_key", &loaded); err != nil {
		t.Errorf("Malformed file should degrade to empty, got %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("Expected empty result from malformed file, got %v", loaded)
	}
}

func TestJSONStoreOverwrite(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save("key", []int{1, 2, 3}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save("key", []int{4}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var loaded []int
	if err := store.Load("key", &loaded); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0] != 4 {
		t.Errorf("Expected overwritten value, got %v", loaded)
	}
}

func TestJSONStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir, Logger.New(true))
	if err != nil {
		t.Fatalf("NewJSONStore failed: %v", err)
	}
	if err := store.Save("key", map[string]int{"a": 1}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("Temp file left behind: %s", e.Name())
		}
	}
}
