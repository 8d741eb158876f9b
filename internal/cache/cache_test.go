package cache

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"
)

func openCache(t *testing.T, cfg Config) *Cache {
	t.Helper()
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	c, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open cache: %v", err)
	}
	return c
}

func TestCache_GetPut(t *testing.T) {
	c := openCache(t, Config{})

	key := Key("pages/index.html", "<h1>hi</h1>")
	module := []byte("export default function render() {}")
	if err := c.Put(key, module, "pages/index.html"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, found := c.Get(key)
	if !found {
		t.Fatal("module not found in cache")
	}
	if !bytes.Equal(got, module) {
		t.Errorf("Get = %s, want %s", got, module)
	}
	if _, found := c.Get(Key("missing")); found {
		t.Error("found a key that was never stored")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Entries != 1 {
		t.Errorf("Stats = %+v", stats)
	}
}

func TestCache_KeyDistinguishesInputs(t *testing.T) {
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("Key must not collide on shifted input boundaries")
	}
	if Key("x") != Key("x") {
		t.Error("Key is not deterministic")
	}
}

func TestCache_PutReplacesStaleVersions(t *testing.T) {
	c := openCache(t, Config{})

	old := Key("pages/a.html", "v1")
	c.Put(old, []byte("one"), "pages/a.html")
	c.Put(Key("pages/b.html", "v1"), []byte("other"), "pages/b.html")

	cur := Key("pages/a.html", "v2")
	c.Put(cur, []byte("two"), "pages/a.html")

	if _, found := c.Get(old); found {
		t.Error("stale module of pages/a.html survived")
	}
	if data, found := c.Get(cur); !found || string(data) != "two" {
		t.Errorf("Get(current) = %q, %v", data, found)
	}
	if c.Stats().Entries != 2 {
		t.Errorf("Entries = %d, want 2", c.Stats().Entries)
	}
}

func TestCache_Invalidate(t *testing.T) {
	c := openCache(t, Config{})
	c.Put(Key("1"), []byte("1"), "pages/blog/a.html")
	c.Put(Key("2"), []byte("2"), "pages/blog/b.html")
	c.Put(Key("3"), []byte("3"), "pages/index.html")

	tests := []struct {
		template string
		want     int
	}{
		{"pages/index.html", 1},
		{"pages/index.html", 0},
		{"pages/blog", 2},
	}
	for _, tt := range tests {
		if got := c.Invalidate(tt.template); got != tt.want {
			t.Errorf("Invalidate(%q) = %d, want %d", tt.template, got, tt.want)
		}
	}
	if c.Stats().Entries != 0 {
		t.Errorf("Entries = %d after invalidation", c.Stats().Entries)
	}
}

func TestCache_EvictionLRU(t *testing.T) {
	c := openCache(t, Config{MaxSize: 100})

	c.Put("key1", bytes.Repeat([]byte("a"), 40), "t1")
	time.Sleep(10 * time.Millisecond)
	c.Put("key2", bytes.Repeat([]byte("b"), 40), "t2")
	time.Sleep(10 * time.Millisecond)
	c.Get("key1")
	time.Sleep(10 * time.Millisecond)
	c.Put("key3", bytes.Repeat([]byte("c"), 40), "t3")

	_, found1 := c.Get("key1")
	_, found2 := c.Get("key2")
	_, found3 := c.Get("key3")
	if !found1 || found2 || !found3 {
		t.Errorf("found key1=%v key2=%v key3=%v, want key2 evicted", found1, found2, found3)
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", c.Stats().Evictions)
	}
}

func TestCache_Expiration(t *testing.T) {
	c := openCache(t, Config{MaxAge: 50 * time.Millisecond})
	c.Put("k", []byte("m"), "t")
	if _, found := c.Get("k"); !found {
		t.Fatal("module not found right after Put")
	}
	time.Sleep(60 * time.Millisecond)
	if _, found := c.Get("k"); found {
		t.Error("expired module was still found")
	}
}

func TestCache_Reopen(t *testing.T) {
	dir := t.TempDir()
	c := openCache(t, Config{Dir: dir})
	c.Put("k", []byte("module"), "pages/a.html")
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := openCache(t, Config{Dir: dir})
	if data, found := reopened.Get("k"); !found || string(data) != "module" {
		t.Errorf("Get after reopen = %q, %v", data, found)
	}

	if err := reopened.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, found := reopened.Get("k"); found {
		t.Error("module found after Clear")
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := openCache(t, Config{MaxSize: 10 << 20})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tmpl := fmt.Sprintf("pages/%d/%d.html", id, j)
				key := Key(tmpl)
				data := []byte(tmpl)
				if err := c.Put(key, data, tmpl); err != nil {
					t.Errorf("Put failed: %v", err)
				}
				if got, found := c.Get(key); !found || !bytes.Equal(got, data) {
					t.Errorf("Get(%s) = %q, %v", tmpl, got, found)
				}
			}
		}(i)
	}
	wg.Wait()
	if c.Stats().Entries != 400 {
		t.Errorf("Entries = %d, want 400", c.Stats().Entries)
	}
}
