package favorites

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"weatherapp/internal/models"
)

type memCache struct {
	mu      sync.Mutex
	places  []models.Place
	loadErr error
	saveErr error
	saves   int
}

func (c *memCache) LoadSnapshot() ([]models.Place, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	return append([]models.Place(nil), c.places...), nil
}

func (c *memCache) SaveSnapshot(places []models.Place) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	if c.saveErr != nil {
		return c.saveErr
	}
	c.places = append([]models.Place(nil), places...)
	return nil
}

func (c *memCache) snapshot() []models.Place {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Place(nil), c.places...)
}

type fakeRemote struct {
	mu      sync.Mutex
	docs    []models.Place
	fetch   func(ctx context.Context, ownerID string) ([]models.Place, error)
	fails   error
	calls   []string
	owners  []string
	deleted []uuid.UUID
}

func (r *fakeRemote) record(call, ownerID string) {
	r.calls = append(r.calls, call)
	r.owners = append(r.owners, ownerID)
}

func (r *fakeRemote) FetchAll(ctx context.Context, ownerID string) ([]models.Place, error) {
	r.mu.Lock()
	r.record("fetch", ownerID)
	fetch, docs, fails := r.fetch, append([]models.Place(nil), r.docs...), r.fails
	r.mu.Unlock()

	if fetch != nil {
		return fetch(ctx, ownerID)
	}
	if fails != nil {
		return nil, fails
	}
	return docs, nil
}

func (r *fakeRemote) Upsert(_ context.Context, p models.Place, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("upsert", ownerID)
	if r.fails != nil {
		return r.fails
	}
	if i := models.IndexOf(r.docs, p.ID); i >= 0 {
		r.docs[i] = p
	} else {
		r.docs = append(r.docs, p)
	}
	return nil
}

func (r *fakeRemote) Delete(_ context.Context, id uuid.UUID, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("delete", ownerID)
	if r.fails != nil {
		return r.fails
	}
	r.deleted = append(r.deleted, id)
	if i := models.IndexOf(r.docs, id); i >= 0 {
		r.docs = append(r.docs[:i], r.docs[i+1:]...)
	}
	return nil
}

func (r *fakeRemote) callLog() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeIdentity struct {
	id  string
	err error
}

func (f fakeIdentity) EnsureIdentity(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

var errOffline = errors.New("offline")

func place(id int, name string) models.Place {
	return models.Place{
		ID:        uuid.MustParse("00000000-0000-0000-0000-" + padID(id)),
		Name:      name,
		Latitude:  float64(id),
		Longitude: float64(id),
	}
}

func padID(id int) string {
	const digits = "000000000000"
	s := []byte(digits)
	for i := len(s) - 1; id > 0 && i >= 0; i-- {
		s[i] = byte('0' + id%10)
		id /= 10
	}
	return string(s)
}
