package filecache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Cache is a TTL-bounded JSON file cache. One file per key, expiry judged
// by file mtime. The afero filesystem lets tests run fully in memory.
type Cache struct {
	fs  afero.Fs
	dir string
	ttl time.Duration
}

// New returns a cache rooted at dir on the given filesystem.
func New(fsys afero.Fs, dir string, ttl time.Duration) *Cache {
	return &Cache{fs: fsys, dir: dir, ttl: ttl}
}

// NewOS returns a cache backed by the real filesystem.
func NewOS(dir string, ttl time.Duration) *Cache {
	return New(afero.NewOsFs(), dir, ttl)
}

// Key builds a stable cache key from its parts.
func Key(parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get unmarshals the cached value for key into v. It returns false when the
// key is missing or past its TTL; expired entries are removed.
func (c *Cache) Get(key string, v any) (bool, error) {
	p := c.path(key)
	info, err := c.fs.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if c.ttl > 0 && time.Since(info.ModTime()) > c.ttl {
		_ = c.fs.Remove(p)
		return false, nil
	}
	data, err := afero.ReadFile(c.fs, p)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		// Corrupt entry, drop it and treat as a miss.
		_ = c.fs.Remove(p)
		return false, nil
	}
	return true, nil
}

// Set stores v under key, creating the cache directory as needed.
func (c *Cache) Set(key string, v any) error {
	if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := c.path(key) + ".tmp"
	if err := afero.WriteFile(c.fs, tmp, data, 0o644); err != nil {
		return err
	}
	return c.fs.Rename(tmp, c.path(key))
}

// Clear removes every cached entry.
func (c *Cache) Clear() error {
	entries, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := c.fs.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
