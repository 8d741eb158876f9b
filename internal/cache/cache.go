// Package cache stores compiled modules on disk so unchanged templates are not
// recompiled. Entries are keyed by a hash of the template source and remember
// which template produced them, so a template's stale versions can be dropped.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const indexVersion = "1"

// Cache is an on-disk module cache with least-recently-used eviction.
type Cache struct {
	mu      sync.Mutex
	dir     string
	maxSize int64
	maxAge  time.Duration
	index   *Index
	stats   Stats
}

// Index lists every cached module.
type Index struct {
	Version string            `json:"version"`
	Entries map[string]*Entry `json:"entries"`
	Updated time.Time         `json:"updated"`
}

// Entry is one cached module.
type Entry struct {
	Key        string    `json:"key"`
	Template   string    `json:"template"`
	File       string    `json:"file"`
	Size       int64     `json:"size"`
	Created    time.Time `json:"created"`
	LastAccess time.Time `json:"last_access"`
}

// Stats counts cache activity since Open.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	TotalSize int64 `json:"total_size"`
	Entries   int   `json:"entries"`
}

// Config configures a Cache.
type Config struct {
	Dir     string        // cache directory
	MaxSize int64         // bytes; 0 means unbounded
	MaxAge  time.Duration // 0 means entries never expire
}

// DefaultConfig returns the cache configuration for a project rooted at root.
func DefaultConfig(root string) Config {
	return Config{
		Dir:     filepath.Join(root, ".lumen", "cache"),
		MaxSize: 64 << 20,
		MaxAge:  7 * 24 * time.Hour,
	}
}

// Open opens the cache in cfg.Dir, creating it if needed. A missing or
// unreadable index starts an empty cache.
func Open(cfg Config) (*Cache, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(filepath.Join(cfg.Dir, "modules"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	c := &Cache{dir: cfg.Dir, maxSize: cfg.MaxSize, maxAge: cfg.MaxAge}
	if err := c.loadIndex(); err != nil {
		c.index = newIndex()
	}
	return c, nil
}

func newIndex() *Index {
	return &Index{Version: indexVersion, Entries: make(map[string]*Entry), Updated: time.Now()}
}

// Key hashes inputs into a cache key.
func Key(inputs ...string) string {
	h := sha256.New()
	for _, in := range inputs {
		fmt.Fprintf(h, "%d:%s", len(in), in)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the module cached under key.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.index.Entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if c.expired(e) {
		c.remove(key)
		c.stats.Misses++
		return nil, false
	}
	data, err := os.ReadFile(e.File)
	if err != nil {
		c.remove(key)
		c.stats.Misses++
		return nil, false
	}
	e.LastAccess = time.Now()
	c.stats.Hits++
	return data, true
}

// Put stores module under key as compiled from template. Older modules of
// the same template are replaced.
func (c *Cache) Put(key string, module []byte, template string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.index.Entries {
		if e.Template == template && k != key {
			c.remove(k)
		}
	}
	size := int64(len(module))
	c.evict(size)

	file := filepath.Join(c.dir, "modules", key[:min(len(key), 32)]+".lumen")
	if err := os.WriteFile(file, module, 0644); err != nil {
		return fmt.Errorf("failed to write cached module: %w", err)
	}
	if old, ok := c.index.Entries[key]; ok {
		c.stats.TotalSize -= old.Size
	}
	now := time.Now()
	c.index.Entries[key] = &Entry{
		Key:        key,
		Template:   template,
		File:       file,
		Size:       size,
		Created:    now,
		LastAccess: now,
	}
	c.stats.TotalSize += size
	return c.saveIndex()
}

// Invalidate drops every module compiled from template and returns how many
// were removed.
func (c *Cache) Invalidate(template string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.index.Entries {
		if e.Template == template || strings.HasPrefix(e.Template, strings.TrimSuffix(template, "/")+"/") {
			c.remove(k)
			n++
		}
	}
	if n > 0 {
		c.saveIndex()
	}
	return n
}

// Clear removes every cached module.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dir := filepath.Join(c.dir, "modules")
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	c.index = newIndex()
	c.stats = Stats{}
	return c.saveIndex()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.index.Entries)
	return s
}

// Close writes the index.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveIndex()
}

// evict removes least recently used entries until needed more bytes fit.
func (c *Cache) evict(needed int64) {
	if c.maxSize <= 0 {
		return
	}
	entries := make([]*Entry, 0, len(c.index.Entries))
	for _, e := range c.index.Entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].LastAccess.Before(entries[j].LastAccess) })
	for _, e := range entries {
		if c.stats.TotalSize+needed <= c.maxSize {
			return
		}
		c.remove(e.Key)
		c.stats.Evictions++
	}
}

func (c *Cache) expired(e *Entry) bool {
	return c.maxAge > 0 && time.Since(e.Created) > c.maxAge
}

// remove deletes an entry and its file. The caller holds c.mu.
func (c *Cache) remove(key string) {
	e, ok := c.index.Entries[key]
	if !ok {
		return
	}
	if err := os.Remove(e.File); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to remove cached module %s: %v\n", e.File, err)
	}
	delete(c.index.Entries, key)
	c.stats.TotalSize -= e.Size
}

func (c *Cache) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(c.dir, "index.json"))
	if err != nil {
		return err
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return err
	}
	if idx.Version != indexVersion || idx.Entries == nil {
		return fmt.Errorf("unsupported cache index version %q", idx.Version)
	}
	c.index = &idx
	for _, e := range idx.Entries {
		c.stats.TotalSize += e.Size
	}
	return nil
}

// saveIndex writes the index. The caller holds c.mu.
func (c *Cache) saveIndex() error {
	c.index.Updated = time.Now()
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, "index.json"), data, 0644)
}
