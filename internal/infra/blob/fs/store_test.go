package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"caseboard/internal/blob/core"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestStorePutGetListDelete(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	info, err := store.Put(ctx, "snapshots/a.json", bytes.NewReader([]byte(`{"v":1}`)), "application/json")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "snapshots/a.json" || info.Size != 7 {
		t.Fatalf("unexpected info %+v", info)
	}
	g, rc, err := store.Get(ctx, "snapshots/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	if err := rc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if string(b) != `{"v":1}` || g.Size != 7 {
		t.Fatalf("unexpected content %q %+v", b, g)
	}
	list, err := store.List(ctx, "snapshots/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != "snapshots/a.json" {
		t.Fatalf("unexpected list %+v", list)
	}
	ok, err := store.Delete(ctx, "snapshots/a.json")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, "snapshots/a.json")
	if err != nil || ok {
		t.Fatalf("second delete should be false")
	}
}

func TestStorePutOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "k.json", bytes.NewReader([]byte("first")), ""); err != nil {
		t.Fatalf("put1: %v", err)
	}
	if _, err := store.Put(ctx, "k.json", bytes.NewReader([]byte("second")), ""); err != nil {
		t.Fatalf("put2: %v", err)
	}
	_, rc, err := store.Get(ctx, "k.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "second" {
		t.Fatalf("expected overwrite, got %q", b)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := newTempStore(t)
	if _, _, err := store.Get(context.Background(), "absent.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type errorReader struct{}

func (errorReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestStorePutReaderError(t *testing.T) {
	store := newTempStore(t)
	if _, err := store.Put(context.Background(), "bad.bin", errorReader{}, ""); err == nil {
		t.Fatalf("expected copy error")
	}
}

func TestSanitizeKeyErrors(t *testing.T) {
	for _, key := range []string{"", "  ", "../escape", "/abs", "../../x"} {
		if _, err := sanitizeKey(key); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestStoreListSortedAndPrefixed(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	for _, key := range []string{"b/2.json", "a/1.json", "a/0.json"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte("x")), ""); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	list, err := store.List(ctx, "")
	if err != nil || len(list) != 3 {
		t.Fatalf("list: %v len=%d", err, len(list))
	}
	if list[0].Key != "a/0.json" || list[2].Key != "b/2.json" {
		t.Fatalf("expected sorted order: %+v", list)
	}
	scoped, err := store.List(ctx, "a/")
	if err != nil || len(scoped) != 2 {
		t.Fatalf("prefixed list: %v len=%d", err, len(scoped))
	}
}
