package storage

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"weatherapp/internal/models"
)

// Document is the remote representation of one favorite.
type Document struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"createdAt"`
}

func newDocument(p models.Place, ownerID string, createdAt time.Time) Document {
	return Document{
		ID:        p.ID.String(),
		OwnerID:   ownerID,
		Name:      p.Name,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		CreatedAt: createdAt,
	}
}

// Place converts the document back, rejecting ids that are not uuids and
// coordinates that would not pass local validation.
func (d Document) Place() (models.Place, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return models.Place{}, err
	}
	p := models.Place{ID: id, Name: d.Name, Latitude: d.Latitude, Longitude: d.Longitude}
	if err := p.Validate(); err != nil {
		return models.Place{}, err
	}
	return p, nil
}

// sortByCreation orders documents oldest first; ids break ties so the order
// is stable across fetches.
func sortByCreation(docs []Document) {
	slices.SortFunc(docs, func(a, b Document) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(strings.ToLower(a.ID), strings.ToLower(b.ID))
	})
}
