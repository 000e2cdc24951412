package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shivamkjha23-afk/ATR2026/internal/models"
)

// Fixed cache slot names. The cache is a snapshot, not a source of truth: if
// a reachable cloud document exists it always wins at startup.
const (
	snapshotFile   = "runtime_db.json"
	syncStatusFile = "sync_status.json"
)

// Cache persists full runtime database snapshots to disk so the service
// always has something to serve before any network round trip completes.
type Cache struct {
	dir string
	mu  sync.Mutex // protects concurrent writes to the filesystem
}

// NewCache initializes the cache directory.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// SaveSnapshot writes the full database snapshot atomically.
func (c *Cache) SaveSnapshot(db models.DB) error {
	return c.writeJSON(snapshotFile, db)
}

// LoadSnapshot reads the last saved snapshot. The boolean is false when no
// snapshot exists yet.
func (c *Cache) LoadSnapshot() (models.DB, bool, error) {
	var db models.DB
	ok, err := c.readJSON(snapshotFile, &db)
	db.Normalize()
	return db, ok, err
}

// SaveSyncStatus persists the last replication outcome.
func (c *Cache) SaveSyncStatus(status models.SyncStatus) error {
	return c.writeJSON(syncStatusFile, status)
}

// LoadSyncStatus reads the last persisted replication outcome.
func (c *Cache) LoadSyncStatus() (models.SyncStatus, bool, error) {
	var status models.SyncStatus
	ok, err := c.readJSON(syncStatusFile, &status)
	return status, ok, err
}

// writeJSON marshals v and renames a temp file over the slot so readers
// never observe a partial write.
func (c *Cache) writeJSON(name string, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	path := filepath.Join(c.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func (c *Cache) readJSON(name string, v any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := os.ReadFile(filepath.Join(c.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}
