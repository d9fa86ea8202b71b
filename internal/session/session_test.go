package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherapp/internal/favorites"
	"weatherapp/internal/models"
	"weatherapp/pkg/geo"
	"weatherapp/pkg/location"
)

type memCache struct{ places []models.Place }

func (c *memCache) LoadSnapshot() ([]models.Place, error) { return c.places, nil }

func (c *memCache) SaveSnapshot(p []models.Place) error {
	c.places = append([]models.Place(nil), p...)
	return nil
}

func newPlace(t *testing.T, name string, lat, lon float64) models.Place {
	t.Helper()
	p, err := models.NewPlace(name, lat, lon)
	require.NoError(t, err)
	return p
}

func setup(t *testing.T) (*Session, *favorites.Synchronizer, models.Place, models.Place) {
	t.Helper()
	nyc := newPlace(t, "NYC", 40.71, -74.0)
	austin := newPlace(t, "Austin", 30.27, -97.74)
	sync := favorites.NewSynchronizer(&memCache{places: []models.Place{nyc, austin}}, nil, nil, nil)
	sync.Start(context.Background())
	return New(sync), sync, nyc, austin
}

func TestRemoveSelectedClearsSelection(t *testing.T) {
	s, _, nyc, _ := setup(t)
	require.NoError(t, s.Select(nyc))

	s.Remove(nyc)

	_, ok := s.Current()
	assert.False(t, ok)
	assert.Equal(t, CurrentLocationTitle, s.Title(""))
}

func TestRemoveOtherKeepsSelection(t *testing.T) {
	s, _, nyc, austin := setup(t)
	require.NoError(t, s.Select(nyc))

	s.Remove(austin)

	got, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, nyc.ID, got.ID)
}

func TestSelectRequiresFavorite(t *testing.T) {
	s, _, _, _ := setup(t)
	stranger := models.Place{ID: uuid.New(), Name: "Elsewhere"}

	assert.ErrorIs(t, s.Select(stranger), ErrNotFavorite)
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestWatchClearsSelectionRemovedElsewhere(t *testing.T) {
	s, sync, nyc, _ := setup(t)
	require.NoError(t, s.Select(nyc))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Watch(ctx)

	// Removal straight through the synchronizer, bypassing the session.
	sync.Remove(nyc)

	require.Eventually(t, func() bool {
		_, ok := s.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestReconcile(t *testing.T) {
	s, _, nyc, austin := setup(t)
	require.NoError(t, s.Select(nyc))

	assert.False(t, s.Reconcile([]models.Place{nyc, austin}))
	assert.True(t, s.Reconcile([]models.Place{austin}))
	assert.False(t, s.Reconcile(nil), "nothing selected any more")
}

func TestActiveCoordinates(t *testing.T) {
	s, _, nyc, _ := setup(t)
	device := geo.Coordinates{Lat: 1, Lon: 2}

	got, err := s.ActiveCoordinates(context.Background(), location.NewStaticProvider(&device))
	require.NoError(t, err)
	assert.Equal(t, device, got)

	_, err = s.ActiveCoordinates(context.Background(), location.NewStaticProvider(nil))
	assert.ErrorIs(t, err, location.ErrDenied)

	require.NoError(t, s.Select(nyc))
	got, err = s.ActiveCoordinates(context.Background(), location.NewStaticProvider(nil))
	require.NoError(t, err)
	assert.Equal(t, nyc.Coordinates(), got)
}

func TestTitle(t *testing.T) {
	s, _, nyc, _ := setup(t)

	assert.Equal(t, CurrentLocationTitle, s.Title(""))
	assert.Equal(t, "Brooklyn", s.Title("Brooklyn"))

	require.NoError(t, s.Select(nyc))
	assert.Equal(t, "NYC", s.Title("Brooklyn"))
}

func TestNeedsRefresh(t *testing.T) {
	last := geo.Coordinates{Lat: 40.7128, Lon: -74.006}

	assert.True(t, NeedsRefresh(nil, last))
	assert.False(t, NeedsRefresh(&last, geo.Coordinates{Lat: 40.7131, Lon: -74.0058}))
	assert.True(t, NeedsRefresh(&last, geo.Coordinates{Lat: 40.72, Lon: -74.006}))
}

// racingFavorites removes the place from under a Select that is still
// checking membership.
type racingFavorites struct {
	*favorites.Synchronizer
	session *Session
	removed chan struct{}
}

func (r *racingFavorites) Contains(id uuid.UUID) bool {
	ok := r.Synchronizer.Contains(id)
	go func() {
		defer close(r.removed)
		r.session.Remove(models.Place{ID: id})
	}()
	time.Sleep(20 * time.Millisecond)
	return ok
}

func TestSelectRacingRemoveLeavesNoSelection(t *testing.T) {
	nyc := newPlace(t, "NYC", 40.71, -74.0)
	sync := favorites.NewSynchronizer(&memCache{places: []models.Place{nyc}}, nil, nil, nil)
	sync.Start(context.Background())

	favs := &racingFavorites{Synchronizer: sync, removed: make(chan struct{})}
	s := New(favs)
	favs.session = s

	require.NoError(t, s.Select(nyc))
	select {
	case <-favs.removed:
	case <-time.After(time.Second):
		t.Fatal("remove did not finish")
	}

	_, selected := s.Current()
	assert.False(t, selected)
	assert.False(t, sync.Contains(nyc.ID))
}
