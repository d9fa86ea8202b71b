package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"weatherapp/internal/models"
)

type snapshotCache interface {
	LoadSnapshot() ([]models.Place, error)
	SaveSnapshot([]models.Place) error
}

func mustPlace(t *testing.T, name string, lat, lon float64) models.Place {
	t.Helper()
	p, err := models.NewPlace(name, lat, lon)
	if err != nil {
		t.Fatalf("NewPlace(%q): %v", name, err)
	}
	return p
}

func TestCachesSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	bolt, err := NewBoltCache(filepath.Join(dir, "favorites.bolt"))
	if err != nil {
		t.Fatalf("NewBoltCache failed: %v", err)
	}
	defer bolt.Close()

	caches := map[string]snapshotCache{
		"file": NewFileCache(filepath.Join(dir, "nested", "favorites.json")),
		"bolt": bolt,
	}

	for name, cache := range caches {
		t.Run(name, func(t *testing.T) {
			got, err := cache.LoadSnapshot()
			if err != nil || len(got) != 0 {
				t.Fatalf("empty LoadSnapshot = %v, %v; want empty, nil", got, err)
			}

			first := []models.Place{mustPlace(t, "NYC", 40.71, -74), mustPlace(t, "Austin", 30.27, -97.74)}
			if err := cache.SaveSnapshot(first); err != nil {
				t.Fatalf("SaveSnapshot failed: %v", err)
			}
			second := first[:1]
			if err := cache.SaveSnapshot(second); err != nil {
				t.Fatalf("SaveSnapshot failed: %v", err)
			}

			got, err = cache.LoadSnapshot()
			if err != nil {
				t.Fatalf("LoadSnapshot failed: %v", err)
			}
			if !reflect.DeepEqual(got, second) {
				t.Fatalf("LoadSnapshot = %+v; want %+v", got, second)
			}
		})
	}
}

func TestFileCacheSavesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favorites.json")
	if err := NewFileCache(path).SaveSnapshot(nil); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Fatalf("snapshot = %s; want []", data)
	}
}

func TestFileCacheCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favorites.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewFileCache(path).LoadSnapshot()
	if !errors.Is(err, models.ErrPersistence) {
		t.Fatalf("LoadSnapshot error = %v; want ErrPersistence", err)
	}
}

func TestFileCacheLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	cache := NewFileCache(filepath.Join(dir, "favorites.json"))
	for i := 0; i < 3; i++ {
		if err := cache.SaveSnapshot([]models.Place{mustPlace(t, "x", 0, 0)}); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("found %d entries in cache dir; want 1", len(entries))
	}
}
