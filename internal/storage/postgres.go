package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"weatherapp/internal/models"
)

const favoritesSchema = `CREATE TABLE IF NOT EXISTS favorites (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	name       TEXT NOT NULL,
	latitude   DOUBLE PRECISION NOT NULL,
	longitude  DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS favorites_owner_created ON favorites (owner_id, created_at);`

// PostgresStore keeps one row per favorite. created_at is assigned by the
// server on insert and never updated; a row never changes owner.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if _, err := pool.Exec(ctx, favoritesSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply favorites schema: %w", err)
	}
	log.Println("Connected to postgres favorites store")
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) FetchAll(ctx context.Context, ownerID string) ([]models.Place, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, name, latitude, longitude, created_at
		   FROM favorites
		  WHERE owner_id = $1
		  ORDER BY created_at ASC, id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: query favorites: %w", models.ErrSyncFailure, err)
	}

	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Document, error) {
		var d Document
		err := row.Scan(&d.ID, &d.OwnerID, &d.Name, &d.Latitude, &d.Longitude, &d.CreatedAt)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan favorites: %w", models.ErrSyncFailure, err)
	}
	return placesFromDocuments(docs), nil
}

func (s *PostgresStore) Upsert(ctx context.Context, p models.Place, ownerID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO favorites (id, owner_id, name, latitude, longitude)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		    SET name = EXCLUDED.name,
		        latitude = EXCLUDED.latitude,
		        longitude = EXCLUDED.longitude
		  WHERE favorites.owner_id = EXCLUDED.owner_id`,
		p.ID.String(), ownerID, p.Name, p.Latitude, p.Longitude)
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %w", models.ErrSyncFailure, p.ID, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID, ownerID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM favorites WHERE id = $1 AND owner_id = $2`, id.String(), ownerID)
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", models.ErrSyncFailure, id, err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
