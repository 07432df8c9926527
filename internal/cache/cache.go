// Package cache stores per-file lint results on disk, keyed by path and
// validated by a content hash.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// Cache is a directory of JSON entries sharded by key hash. The zero
// value, and any cache created disabled, misses on every lookup.
type Cache struct {
	dir  string
	ttl  time.Duration
	now  func() time.Time
	hits atomic.Int64
	miss atomic.Int64
}

// Entry is the on-disk envelope around a cached payload.
type Entry struct {
	Hash    string          `json:"hash"`
	Written time.Time       `json:"written"`
	Data    json.RawMessage `json:"data"`
}

// New opens a cache in dir. ttlHours of 0 keeps entries forever.
func New(dir string, ttlHours int, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{}, nil
	}
	if dir == "" {
		return nil, errors.New("cache directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &Cache{
		dir: dir,
		ttl: time.Duration(ttlHours) * time.Hour,
		now: time.Now,
	}, nil
}

// Enabled reports whether the cache reads and writes entries.
func (c *Cache) Enabled() bool {
	return c != nil && c.dir != ""
}

// HashBytes returns the hex BLAKE3 digest of data.
func HashBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Get returns the payload stored for key if it was written for the same
// content hash and has not expired. Expired entries are deleted.
func (c *Cache) Get(key, hash string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}

	path := c.entryPath(key)
	entry, err := readEntry(path)
	if err != nil || entry.Hash != hash {
		c.miss.Add(1)
		return nil, false
	}
	if c.expired(entry) {
		_ = os.Remove(path)
		c.miss.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return entry.Data, true
}

// Put stores a JSON payload for key. The entry is written to a temporary
// file and renamed into place so readers never see a partial entry.
func (c *Cache) Put(key, hash string, data []byte) error {
	if !c.Enabled() {
		return nil
	}

	raw, err := json.Marshal(Entry{Hash: hash, Written: c.now(), Data: data})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	path := c.entryPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes the entry for key, if any.
func (c *Cache) Delete(key string) error {
	if !c.Enabled() {
		return nil
	}
	err := os.Remove(c.entryPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Prune deletes expired and unreadable entries and returns how many were
// removed.
func (c *Cache) Prune() (int, error) {
	if !c.Enabled() {
		return 0, nil
	}

	removed := 0
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		entry, err := readEntry(path)
		if err == nil && !c.expired(entry) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		removed++
		return nil
	})
	return removed, err
}

// Clear removes the whole cache directory.
func (c *Cache) Clear() error {
	if !c.Enabled() {
		return nil
	}
	return os.RemoveAll(c.dir)
}

// Stats returns the hit and miss counts since the cache was opened.
func (c *Cache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.miss.Load()
}

func (c *Cache) expired(e *Entry) bool {
	return c.ttl > 0 && c.now().Sub(e.Written) > c.ttl
}

// entryPath places a key under a two-character shard directory.
func (c *Cache) entryPath(key string) string {
	name := fmt.Sprintf("%016x", xxhash.Sum64String(key))
	return filepath.Join(c.dir, name[:2], name+".json")
}

func readEntry(path string) (*Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
