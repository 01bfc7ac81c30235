package kvstore

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestStoreGetMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	var out payload
	ok, err := store.Get("note:1", &out)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("expected missing slot")
	}
}

func TestStoreSetGetRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	want := payload{Name: "clip", Count: 3}
	if err := store.Set("note:1", want); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got payload
	ok, err := store.Get("note:1", &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("expected slot to exist")
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestStoreDelete(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Set("session", payload{Name: "s"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Delete("session"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var out payload
	ok, err := store.Get("session", &out)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("expected slot to be gone")
	}
	if err := store.Delete("session"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestStoreSanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Set("note:42/../evil", payload{}); err != nil {
		t.Fatalf("set: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, entry := range entries {
		if filepath.Dir(filepath.Join(dir, entry.Name())) != dir {
			t.Fatalf("slot escaped state dir: %s", entry.Name())
		}
	}
	var out payload
	ok, err := store.Get("note:42/../evil", &out)
	if err != nil || !ok {
		t.Fatalf("get after sanitize: ok=%v err=%v", ok, err)
	}
}
