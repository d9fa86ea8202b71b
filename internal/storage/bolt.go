package storage

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"weatherapp/internal/models"
)

const (
	boltBucketFavorites = "favorites"
	boltKeySnapshot     = "snapshot"
)

// BoltCache stores the snapshot under a single key; each save is one
// read-write transaction.
type BoltCache struct {
	db *bbolt.DB
}

func NewBoltCache(path string) (*BoltCache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", models.ErrPersistence, path, err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucketFavorites))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create bucket: %w", models.ErrPersistence, err)
	}

	return &BoltCache{db: db}, nil
}

func (b *BoltCache) LoadSnapshot() ([]models.Place, error) {
	var data []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket([]byte(boltBucketFavorites)).Get([]byte(boltKeySnapshot)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: read snapshot: %w", models.ErrPersistence, err)
	}
	if data == nil {
		return nil, nil
	}
	return decodeSnapshot(data)
}

func (b *BoltCache) SaveSnapshot(places []models.Place) error {
	data, err := encodeSnapshot(places)
	if err != nil {
		return err
	}
	err = b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucketFavorites)).Put([]byte(boltKeySnapshot), data)
	})
	if err != nil {
		return fmt.Errorf("%w: write snapshot: %w", models.ErrPersistence, err)
	}
	return nil
}

func (b *BoltCache) Close() error {
	return b.db.Close()
}
