// Package session tracks which favorite, if any, drives the forecast. The
// selection is never persisted; no selection means the device location.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"weatherapp/internal/favorites"
	"weatherapp/internal/models"
	"weatherapp/internal/writequeue"
	"weatherapp/pkg/geo"
	"weatherapp/pkg/location"
)

const CurrentLocationTitle = "Current Location"

var ErrNotFavorite = errors.New("place is not a favorite")

// Favorites is the part of the synchronizer a session needs.
type Favorites interface {
	Contains(id uuid.UUID) bool
	Remove(p models.Place) *writequeue.Task
	Subscribe() (<-chan favorites.Snapshot, func())
}

// Session holds the active selection. The selected id is always one of the
// current favorites.
type Session struct {
	favorites Favorites

	// mu guards selected; Select and Remove call into favorites while holding it.
	mu       sync.Mutex
	selected *models.Place
}

func New(favs Favorites) *Session {
	return &Session{favorites: favs}
}

// Select makes p the forecast source. The membership check and the
// assignment happen under the same lock Remove takes.
func (s *Session) Select(p models.Place) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.favorites.Contains(p.ID) {
		return ErrNotFavorite
	}
	s.selected = &p
	return nil
}

// Clear falls back to the device location.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
}

func (s *Session) Current() (models.Place, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return models.Place{}, false
	}
	return *s.selected, true
}

// Remove deletes p from the favorites and clears the selection when p was it.
func (s *Session) Remove(p models.Place) *writequeue.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := s.favorites.Remove(p)
	if s.selected != nil && s.selected.ID == p.ID {
		s.selected = nil
	}
	return task
}

// Reconcile clears the selection when its id is missing from places and
// reports whether it did.
func (s *Session) Reconcile(places []models.Place) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil || models.IndexOf(places, s.selected.ID) >= 0 {
		return false
	}
	s.selected = nil
	return true
}

// Watch reconciles the selection against every published set until ctx ends.
// Snapshots taken before the local cache is loaded are ignored.
func (s *Session) Watch(ctx context.Context) {
	updates, cancel := s.favorites.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if snap.State == favorites.Idle || snap.State == favorites.LoadingLocal {
				continue
			}
			s.Reconcile(snap.Places)
		}
	}
}

// ActiveCoordinates returns the selected favorite's position, or the device
// position when nothing is selected.
func (s *Session) ActiveCoordinates(ctx context.Context, provider location.Provider) (geo.Coordinates, error) {
	if p, ok := s.Current(); ok {
		return p.Coordinates(), nil
	}
	if !provider.Authorized() {
		return geo.Coordinates{}, location.ErrDenied
	}
	return provider.Coordinate(ctx)
}

// Title is the header for the forecast: the favorite's name, else the
// reverse-geocoded place name, else a generic label.
func (s *Session) Title(placename string) string {
	if p, ok := s.Current(); ok {
		return p.Name
	}
	if placename != "" {
		return placename
	}
	return CurrentLocationTitle
}

// NeedsRefresh reports whether a forecast fetched at last is stale for next.
// Device jitter below geo.JitterDegrees does not count as movement.
func NeedsRefresh(last *geo.Coordinates, next geo.Coordinates) bool {
	return last == nil || !geo.Near(*last, next, geo.JitterDegrees)
}
