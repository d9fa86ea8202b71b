package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"weatherapp/pkg/geo"
)

// Place is a favorite location. ID is the only key used for merge and dedup;
// two places may share a name or a position.
type Place struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

// ValidationError is returned for a place that must never be persisted.
type ValidationError struct {
	Field string
	Value float64
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Is lets callers test with errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewPlace creates a place with a fresh identifier. An empty name falls back
// to the formatted coordinates.
func NewPlace(name string, lat, lon float64) (Place, error) {
	p := Place{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		Latitude:  lat,
		Longitude: lon,
	}
	if err := p.Validate(); err != nil {
		return Place{}, err
	}
	if p.Name == "" {
		p.Name = p.Coordinates().String()
	}
	return p, nil
}

func (p Place) Coordinates() geo.Coordinates {
	return geo.Coordinates{Lat: p.Latitude, Lon: p.Longitude}
}

// Validate checks the coordinate ranges.
func (p Place) Validate() error {
	if err := p.Coordinates().Validate(); err != nil {
		rangeErr := err.(*geo.RangeError)
		return &ValidationError{Field: rangeErr.Field, Value: rangeErr.Value, Err: err}
	}
	return nil
}

// IndexOf returns the position of id in places, or -1.
func IndexOf(places []Place, id uuid.UUID) int {
	for i, p := range places {
		if p.ID == id {
			return i
		}
	}
	return -1
}
