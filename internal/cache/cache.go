// Package cache implements the transformer content cache (spec.md §4.4):
// a content-addressed key-value store keyed by SHA-256, sharded across
// two-hex-character subdirectories to keep any one directory small.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Meta accompanies each cached entry, recording when it was written, its TTL,
// and which transformer produced it (spec.md §6 "Cache layout").
type Meta struct {
	CreatedAt   time.Time `json:"created_at"`
	TTLSeconds  int64     `json:"ttl_seconds"`
	Transformer string    `json:"transformer"`
}

// Cache is a filesystem-backed content-addressed store rooted at Dir.
type Cache struct {
	dir string
}

// New creates a Cache rooted at dir. The directory is created on first Put if
// it does not already exist.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Key derives the cache key for a transformer's output from the transformer
// name and its input content. Keys are content-addressed: identical
// (transformer, content) pairs always produce the same key.
func Key(transformer, content string) string {
	h := sha256.New()
	h.Write([]byte(transformer))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) shardPath(key string) (dir, binPath, metaPath string) {
	shard := key[:2]
	dir = filepath.Join(c.dir, shard)
	binPath = filepath.Join(dir, key+".bin")
	metaPath = filepath.Join(dir, key+".meta")
	return
}

// Get returns the cached value for key, or ok==false if absent, unreadable,
// or expired per its TTL. A zero TTL never expires; a negative TTL is
// already expired.
func (c *Cache) Get(key string) (value string, ok bool) {
	_, binPath, metaPath := c.shardPath(key)

	metaBytes, err := os.ReadFile(metaPath)
	if err != nil {
		return "", false
	}
	var m Meta
	if err := json.Unmarshal(metaBytes, &m); err != nil {
		return "", false
	}
	if m.TTLSeconds < 0 || (m.TTLSeconds > 0 && time.Since(m.CreatedAt) > time.Duration(m.TTLSeconds)*time.Second) {
		return "", false
	}

	data, err := os.ReadFile(binPath)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Put writes value under key, along with its Meta sidecar, using a
// write-temp-then-rename sequence so a concurrent Get never observes a
// partially written entry.
func (c *Cache) Put(key, transformer, value string, ttl time.Duration) error {
	dir, binPath, metaPath := c.shardPath(key)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache shard %s: %w", dir, err)
	}

	if err := atomicWrite(binPath, []byte(value)); err != nil {
		return fmt.Errorf("writing cache entry %s: %w", key, err)
	}

	meta := Meta{
		CreatedAt:   time.Now(),
		TTLSeconds:  int64(ttl / time.Second),
		Transformer: transformer,
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling cache meta for %s: %w", key, err)
	}
	if err := atomicWrite(metaPath, metaBytes); err != nil {
		return fmt.Errorf("writing cache meta %s: %w", key, err)
	}

	return nil
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// Clear removes every entry whose Meta.Transformer matches transformer, or
// every entry if transformer is empty. Used by `cache:clear --transformations`.
func (c *Cache) Clear(transformer string) (removed int, err error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	for _, shard := range entries {
		if !shard.IsDir() {
			continue
		}
		shardDir := filepath.Join(c.dir, shard.Name())
		files, err := os.ReadDir(shardDir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if filepath.Ext(f.Name()) != ".meta" {
				continue
			}
			metaPath := filepath.Join(shardDir, f.Name())
			if transformer != "" {
				data, err := os.ReadFile(metaPath)
				if err != nil {
					continue
				}
				var m Meta
				if err := json.Unmarshal(data, &m); err != nil || m.Transformer != transformer {
					continue
				}
			}
			key := f.Name()[:len(f.Name())-len(".meta")]
			binPath := filepath.Join(shardDir, key+".bin")
			os.Remove(binPath)
			os.Remove(metaPath)
			removed++
		}
	}
	return removed, nil
}

// GC removes every entry whose TTL has elapsed. Used by `cache:clear --gc`.
func (c *Cache) GC() (removed int, err error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	for _, shard := range entries {
		if !shard.IsDir() {
			continue
		}
		shardDir := filepath.Join(c.dir, shard.Name())
		files, err := os.ReadDir(shardDir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if filepath.Ext(f.Name()) != ".meta" {
				continue
			}
			metaPath := filepath.Join(shardDir, f.Name())
			data, err := os.ReadFile(metaPath)
			if err != nil {
				continue
			}
			var m Meta
			if err := json.Unmarshal(data, &m); err != nil {
				continue
			}
			if m.TTLSeconds == 0 || (m.TTLSeconds > 0 && time.Since(m.CreatedAt) <= time.Duration(m.TTLSeconds)*time.Second) {
				continue
			}
			key := f.Name()[:len(f.Name())-len(".meta")]
			binPath := filepath.Join(shardDir, key+".bin")
			os.Remove(binPath)
			os.Remove(metaPath)
			removed++
		}
	}
	return removed, nil
}
