package repositories

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/emilykay2/tbuie/config"
)

// FileResultCache keeps snapshots as <digest>.json and <digest>.q in a directory
type FileResultCache struct {
	dir string
}

// NewFileResultCache creates a file-based result cache
func NewFileResultCache(dir string) *FileResultCache {
	return &FileResultCache{dir: dir}
}

func (c *FileResultCache) Name() string { return config.CacheFile }

func (c *FileResultCache) paths(key config.CacheKey) (meta, q string) {
	base := filepath.Join(c.dir, key.Digest())
	return base + ".json", base + ".q"
}

// Load reads the snapshot stored under key
func (c *FileResultCache) Load(ctx context.Context, key config.CacheKey) (*Snapshot, error) {
	metaPath, qPath := c.paths(key)

	meta, err := os.ReadFile(metaPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, NewCacheError("load_snapshot", key, err, "")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q, err := os.ReadFile(qPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, NewCacheError("load_snapshot", key, err, "")
	}

	snap, err := decodeSnapshot(key, meta, q)
	if err != nil {
		return nil, NewCacheError("decode_snapshot", key, err, "")
	}
	return snap, nil
}

// Save writes the snapshot. Each file is written to a temporary name and
// renamed into place; the matrix lands before the metadata, so a reader that
// finds the metadata also finds the matrix.
func (c *FileResultCache) Save(ctx context.Context, key config.CacheKey, snap *Snapshot) error {
	meta, q, err := encodeSnapshot(snap)
	if err != nil {
		return NewCacheError("encode_snapshot", key, err, "")
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return NewCacheError("save_snapshot", key, err, "")
	}

	metaPath, qPath := c.paths(key)
	if err := writeFileAtomic(qPath, q); err != nil {
		return NewCacheError("save_snapshot", key, err, "")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeFileAtomic(metaPath, meta); err != nil {
		return NewCacheError("save_snapshot", key, err, "")
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
