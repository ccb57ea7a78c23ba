package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLayeredCacheReadsThrough(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache(WithMemoryCleanup(0))
	lc := NewLayeredCache(remote, WithLayeredMemoryTTL(time.Minute))
	defer lc.Close()

	// Written behind the layered cache's back: only L2 has it.
	_ = remote.Set(ctx, "k", sample{Symbol: "BANKNIFTY", Price: 2}, time.Hour)

	var got sample
	if err := lc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Symbol != "BANKNIFTY" {
		t.Fatalf("unexpected %+v", got)
	}
	if ok, _ := lc.mem.Exists(ctx, "k"); !ok {
		t.Fatal("expected L1 to be populated after a remote hit")
	}
}

func TestLayeredCacheWriteThroughAndDelete(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache(WithMemoryCleanup(0))
	lc := NewLayeredCache(remote)
	defer lc.Close()

	if err := lc.Set(ctx, "k", "v", time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ok, _ := remote.Exists(ctx, "k"); !ok {
		t.Fatal("expected remote write")
	}

	got, err := lc.MGet(ctx, "k", "missing")
	if err != nil || got["k"] != "v" || len(got) != 1 {
		t.Fatalf("unexpected mget %v (%v)", got, err)
	}

	_ = lc.Delete(ctx, "k")
	var v string
	if err := lc.Get(ctx, "k", &v); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}
