package location

import (
	"context"
	"errors"
	"log"

	"weatherapp/pkg/geo"
)

var ErrDenied = errors.New("location permission denied")

// Provider supplies the device position.
type Provider interface {
	Authorized() bool
	Coordinate(ctx context.Context) (geo.Coordinates, error)
}

// Reverser turns a position into a place.
type Reverser interface {
	Reverse(ctx context.Context, c geo.Coordinates) (*Location, error)
}

// StaticProvider reports a fixed, configured position. A nil position means
// the user never granted access.
type StaticProvider struct {
	position *geo.Coordinates
}

func NewStaticProvider(position *geo.Coordinates) *StaticProvider {
	return &StaticProvider{position: position}
}

func (p *StaticProvider) Authorized() bool { return p.position != nil }

func (p *StaticProvider) Coordinate(context.Context) (geo.Coordinates, error) {
	if p.position == nil {
		return geo.Coordinates{}, ErrDenied
	}
	return *p.position, nil
}

// Fix is one device reading with its place name.
type Fix struct {
	Coordinates geo.Coordinates
	Placename   string
}

// Locate reads the device position and names it. A failed reverse lookup
// leaves Placename empty.
func Locate(ctx context.Context, p Provider, r Reverser) (Fix, error) {
	if !p.Authorized() {
		return Fix{}, ErrDenied
	}
	c, err := p.Coordinate(ctx)
	if err != nil {
		return Fix{}, err
	}

	fix := Fix{Coordinates: c}
	if r == nil {
		return fix, nil
	}
	loc, err := r.Reverse(ctx, c)
	if err != nil {
		log.Printf("Reverse geocoding %s failed: %v", c, err)
		return fix, nil
	}
	fix.Placename = loc.Placename()
	return fix, nil
}
