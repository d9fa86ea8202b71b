package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"

	"weatherapp/internal/keys"
	"weatherapp/internal/models"
)

var (
	errObjectNotFound = errors.New("object not found")
	// errMalformed marks a stored object that does not decode as a Document.
	errMalformed = errors.New("malformed favorite document")
)

// S3Config holds the connection settings for an S3-compatible endpoint.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
}

// objectStore is the slice of the object API the favorites store needs. It
// lets tests run the store against an in-memory bucket.
type objectStore interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Remove(ctx context.Context, key string) error
}

// S3Store keeps one JSON document per favorite under
// favorites/<ownerId>/<placeId>.json.
type S3Store struct {
	objects     objectStore
	now         func() time.Time
	concurrency int
}

// NewS3Store connects to the endpoint and makes sure the bucket exists.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("missing one or more required settings: endpoint, access key, secret key, bucket")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	objects := &minioObjects{client: client, bucket: cfg.Bucket}
	if err := objects.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}

	log.Println("Connected to object store endpoint:", cfg.Endpoint)
	return newS3Store(objects), nil
}

func newS3Store(objects objectStore) *S3Store {
	return &S3Store{objects: objects, now: time.Now, concurrency: 8}
}

// FetchAll loads every document owned by ownerID, oldest first.
func (s *S3Store) FetchAll(ctx context.Context, ownerID string) ([]models.Place, error) {
	objectKeys, err := s.objects.List(ctx, keys.OwnerPrefix(ownerID))
	if err != nil {
		return nil, fmt.Errorf("%w: list favorites: %w", models.ErrSyncFailure, err)
	}

	docs := make([]*Document, len(objectKeys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, key := range objectKeys {
		g.Go(func() error {
			doc, err := s.getDocument(gctx, key)
			if errors.Is(err, errObjectNotFound) {
				// Deleted between list and get.
				return nil
			}
			if isMalformed(err) {
				log.Printf("Skipping malformed favorite document %s: %v", key, err)
				return nil
			}
			if err != nil {
				return err
			}
			if doc.OwnerID != ownerID {
				log.Printf("Skipping favorite %s owned by %q", key, doc.OwnerID)
				return nil
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: load favorites: %w", models.ErrSyncFailure, err)
	}

	found := make([]Document, 0, len(docs))
	for _, d := range docs {
		if d != nil {
			found = append(found, *d)
		}
	}
	return placesFromDocuments(found), nil
}

// Upsert writes the document for p. An existing createdAt survives the write.
func (s *S3Store) Upsert(ctx context.Context, p models.Place, ownerID string) error {
	key := keys.Favorite(ownerID, p.ID)

	createdAt := s.now().UTC()
	existing, err := s.getDocument(ctx, key)
	switch {
	case err == nil && !existing.CreatedAt.IsZero():
		createdAt = existing.CreatedAt
	case err == nil, errors.Is(err, errObjectNotFound):
	case isMalformed(err):
		log.Printf("Replacing malformed favorite document %s", key)
	default:
		return fmt.Errorf("%w: read %s: %w", models.ErrSyncFailure, key, err)
	}

	data, err := json.Marshal(newDocument(p, ownerID, createdAt))
	if err != nil {
		return fmt.Errorf("failed to marshal favorite to JSON: %w", err)
	}
	if err := s.objects.Put(ctx, key, data); err != nil {
		return fmt.Errorf("%w: store %s: %w", models.ErrSyncFailure, key, err)
	}
	return nil
}

// Delete removes the document; a missing one is not an error.
func (s *S3Store) Delete(ctx context.Context, id uuid.UUID, ownerID string) error {
	key := keys.Favorite(ownerID, id)
	if err := s.objects.Remove(ctx, key); err != nil && !errors.Is(err, errObjectNotFound) {
		return fmt.Errorf("%w: delete %s: %w", models.ErrSyncFailure, key, err)
	}
	return nil
}

func (s *S3Store) getDocument(ctx context.Context, key string) (*Document, error) {
	data, err := s.objects.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformed, err)
	}
	return &doc, nil
}

// minioObjects adapts a MinIO client bound to one bucket.
type minioObjects struct {
	client *minio.Client
	bucket string
}

func (m *minioObjects) ensureBucket(ctx context.Context, region string) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("error checking bucket existence: %w", err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return fmt.Errorf("error creating bucket %s: %w", m.bucket, err)
		}
		log.Printf("Created bucket %s", m.bucket)
	}
	return nil
}

func (m *minioObjects) List(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		out = append(out, obj.Key)
	}
	return out, nil
}

func (m *minioObjects) Get(ctx context.Context, key string) ([]byte, error) {
	object, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapNotFound(err)
	}
	defer object.Close()

	if _, err := object.Stat(); err != nil {
		return nil, mapNotFound(err)
	}
	data, err := io.ReadAll(object)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return data, nil
}

func (m *minioObjects) Put(ctx context.Context, key string, data []byte) error {
	_, err := m.client.PutObject(
		ctx,
		m.bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	return err
}

func (m *minioObjects) Remove(ctx context.Context, key string) error {
	return mapNotFound(m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}))
}

func mapNotFound(err error) error {
	if err != nil && minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return errObjectNotFound
	}
	return err
}

func isMalformed(err error) bool {
	return errors.Is(err, errMalformed)
}

func placesFromDocuments(docs []Document) []models.Place {
	sortByCreation(docs)
	places := make([]models.Place, 0, len(docs))
	for _, d := range docs {
		p, err := d.Place()
		if err != nil {
			log.Printf("Skipping favorite document %q: %v", d.ID, err)
			continue
		}
		places = append(places, p)
	}
	return places
}
