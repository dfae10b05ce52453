package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"caseboard/internal/blob/core"
)

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
}

func TestOpenFromEnvRequiresBucket(t *testing.T) {
	t.Setenv("CASEBOARD_BLOB_S3_BUCKET", "")
	if _, err := OpenFromEnv(context.Background()); err == nil {
		t.Fatalf("expected error for missing bucket env")
	}
}

func TestMockStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	if store.Driver() != core.DriverS3 {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	info, err := store.Put(ctx, "snapshots/latest.json", bytes.NewReader([]byte(`{"v":1}`)), "application/json")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "snapshots/latest.json" || info.Size != 7 {
		t.Fatalf("unexpected info %+v", info)
	}
	g, rc, err := store.Get(ctx, "snapshots/latest.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != `{"v":1}` || g.ContentType != "application/json" {
		t.Fatalf("unexpected content %q info %+v", b, g)
	}
	if _, err := store.Put(ctx, "snapshots/latest.json", bytes.NewReader([]byte(`{"v":1,"n":2}`)), "application/json"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	_, rc, _ = store.Get(ctx, "snapshots/latest.json")
	b, _ = io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != `{"v":1,"n":2}` {
		t.Fatalf("expected overwrite, got %q", b)
	}
}

func TestMockStoreListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMockForTests()
	for _, key := range []string{"snapshots/b.json", "snapshots/a.json", "exports/c.csv"} {
		if _, err := store.Put(ctx, key, bytes.NewReader([]byte("x")), ""); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	list, err := store.List(ctx, "snapshots/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "snapshots/a.json" || list[1].Key != "snapshots/b.json" {
		t.Fatalf("unexpected list %+v", list)
	}
	ok, err := store.Delete(ctx, "snapshots/a.json")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, "snapshots/a.json"); err != nil || ok {
		t.Fatalf("second delete should be false: %v %v", ok, err)
	}
	if _, _, err := store.Get(ctx, "snapshots/a.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
