package nus

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Cache is an on-disk cache of NUS downloads, keyed by an opaque string
// (typically "<titleID>/<what>"), stored zstd-compressed so repeat
// downloads of the same title/content avoid a CDN round-trip. Grounded
// on formats/validation.go and formats/NSZ/block_decompressor.go's use
// of klauspost/compress/zstd for on-disk compressed payloads.
type Cache struct {
	dir string
}

// NewCache creates (if needed) a cache rooted at dir.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, filepath.FromSlash(key)+".zst")
}

// Get returns the cached bytes for key, or ok=false if nothing is
// cached.
func (c *Cache) Get(key string) (data []byte, ok bool) {
	raw, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	dec, err := zstd.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, false
	}
	defer dec.Close()
	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, false
	}
	return out, true
}

// Put compresses and stores data under key.
func (c *Cache) Put(key string, data []byte) error {
	p := c.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return err
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return os.WriteFile(p, buf.Bytes(), 0o644)
}
