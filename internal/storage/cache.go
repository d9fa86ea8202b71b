package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"weatherapp/internal/models"
)

// FileCache keeps the favorite set as one JSON array on disk.
type FileCache struct {
	path string
}

func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// LoadSnapshot reads the whole snapshot. A missing file is an empty set, not
// an error.
func (c *FileCache) LoadSnapshot() ([]models.Place, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", models.ErrPersistence, c.path, err)
	}
	return decodeSnapshot(data)
}

// SaveSnapshot replaces the snapshot. The data goes to a temporary file in the
// same directory first and is renamed over the old one, so readers never see
// a partial write.
func (c *FileCache) SaveSnapshot(places []models.Place) error {
	data, err := encodeSnapshot(places)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", models.ErrPersistence, dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", models.ErrPersistence, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write snapshot: %w", models.ErrPersistence, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: sync snapshot: %w", models.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close snapshot: %w", models.ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("%w: replace %s: %w", models.ErrPersistence, c.path, err)
	}
	return nil
}

func encodeSnapshot(places []models.Place) ([]byte, error) {
	if places == nil {
		places = []models.Place{}
	}
	data, err := json.Marshal(places)
	if err != nil {
		return nil, fmt.Errorf("%w: encode snapshot: %w", models.ErrPersistence, err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) ([]models.Place, error) {
	var places []models.Place
	if err := json.Unmarshal(data, &places); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot: %w", models.ErrPersistence, err)
	}
	return places, nil
}
