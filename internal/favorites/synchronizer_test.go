package favorites

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherapp/internal/models"
	"weatherapp/internal/storage"
	"weatherapp/internal/writequeue"
)

func newQueue(t *testing.T) *writequeue.Queue {
	t.Helper()
	cfg := writequeue.DefaultConfig()
	cfg.Timeout = time.Second
	q := writequeue.New(cfg)
	t.Cleanup(q.Close)
	return q
}

func waitTask(t *testing.T, task *writequeue.Task) error {
	t.Helper()
	require.NotNil(t, task)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return task.Wait(ctx)
}

func TestStartMergesLocalAndRemote(t *testing.T) {
	cache := &memCache{places: []models.Place{place(1, "NYC")}}
	remote := &fakeRemote{docs: []models.Place{place(2, "Austin")}}
	s := NewSynchronizer(cache, remote, fakeIdentity{id: "owner-1"}, newQueue(t))

	s.Start(context.Background())

	want := []models.Place{place(2, "Austin"), place(1, "NYC")}
	assert.Equal(t, want, s.Places())
	assert.Equal(t, want, cache.snapshot(), "merged set is persisted locally")
	assert.Equal(t, ReadyMerged, s.State())
	assert.Equal(t, []string{"fetch"}, remote.callLog(), "merge never pushes local-only records")
}

func TestStartRunsOnce(t *testing.T) {
	remote := &fakeRemote{}
	s := NewSynchronizer(&memCache{}, remote, fakeIdentity{id: "owner-1"}, newQueue(t))

	s.Start(context.Background())
	s.Start(context.Background())
	assert.Len(t, remote.callLog(), 1)

	s.Sync(context.Background())
	assert.Len(t, remote.callLog(), 2)
}

func TestStartIdentityFailureStaysLocal(t *testing.T) {
	local := []models.Place{place(1, "NYC"), place(3, "Boston")}
	cache := &memCache{places: local}
	remote := &fakeRemote{docs: []models.Place{place(2, "Austin")}}
	s := NewSynchronizer(cache, remote, fakeIdentity{err: models.ErrIdentityUnavailable}, newQueue(t))

	s.Start(context.Background())

	assert.Equal(t, local, s.Places())
	assert.Equal(t, ReadyLocal, s.State())
	assert.Empty(t, remote.callLog(), "no remote calls without an identity")
}

func TestSyncFailureFallsBackToLocal(t *testing.T) {
	local := []models.Place{place(1, "NYC")}
	remote := &fakeRemote{fails: errOffline}
	s := NewSynchronizer(&memCache{places: local}, remote, fakeIdentity{id: "owner-1"}, newQueue(t))

	state := s.Sync(context.Background())

	assert.Equal(t, ReadyLocal, state)
	assert.Equal(t, ReadyLocal, s.State())
	assert.Equal(t, local, s.Places())
}

func TestLocalLoadFailureStartsEmpty(t *testing.T) {
	cache := &memCache{loadErr: models.ErrPersistence}
	s := NewSynchronizer(cache, nil, nil, nil)

	s.Start(context.Background())

	assert.Empty(t, s.Places())
	assert.Equal(t, ReadyLocal, s.State())
}

func TestRemoteWinsForSharedIDs(t *testing.T) {
	localCopy := place(1, "Old Name")
	localCopy.Latitude = 50
	remoteCopy := place(1, "New Name")
	s := NewSynchronizer(
		&memCache{places: []models.Place{localCopy, place(2, "Kept")}},
		&fakeRemote{docs: []models.Place{remoteCopy}},
		fakeIdentity{id: "owner-1"},
		newQueue(t),
	)

	s.Sync(context.Background())

	got := s.Places()
	require.Len(t, got, 2)
	assert.Equal(t, place(2, "Kept"), got[0])
	assert.Equal(t, remoteCopy, got[1])
}

func TestAddPersistsThenUpserts(t *testing.T) {
	cache := &memCache{}
	remote := &fakeRemote{}
	s := NewSynchronizer(cache, remote, fakeIdentity{id: "owner-1"}, newQueue(t))

	p, err := models.NewPlace("Paris", 48.85, 2.35)
	require.NoError(t, err)

	task, err := s.Add(p)
	require.NoError(t, err)
	assert.Equal(t, []models.Place{p}, cache.snapshot(), "saved locally before Add returns")

	require.NoError(t, waitTask(t, task))
	assert.Equal(t, []string{"upsert"}, remote.callLog())
	assert.Equal(t, []string{"owner-1"}, remote.owners)
}

func TestAddThenReloadContainsPlaceOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favorites.json")
	s := NewSynchronizer(storage.NewFileCache(path), nil, nil, nil)

	p, err := models.NewPlace("Lisbon", 38.72, -9.14)
	require.NoError(t, err)
	_, err = s.Add(p)
	require.NoError(t, err)
	_, err = s.Add(p)
	require.NoError(t, err)

	reloaded, err := storage.NewFileCache(path).LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, []models.Place{p}, reloaded)
}

func TestAddReplacesExistingID(t *testing.T) {
	s := NewSynchronizer(&memCache{places: []models.Place{place(1, "Old")}}, nil, nil, nil)

	_, err := s.Add(place(1, "New"))
	require.NoError(t, err)

	assert.Equal(t, []models.Place{place(1, "New")}, s.Places())
}

func TestAddValidation(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
	}{
		{"latitude 91", 91, 0},
		{"longitude -181", 0, -181},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := &memCache{places: []models.Place{place(1, "NYC")}}
			remote := &fakeRemote{}
			s := NewSynchronizer(cache, remote, fakeIdentity{id: "owner-1"}, newQueue(t))
			before := s.Places()

			bad := place(2, "Bad")
			bad.Latitude, bad.Longitude = tt.lat, tt.lon
			task, err := s.Add(bad)

			require.ErrorIs(t, err, models.ErrValidation)
			var vErr *models.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Nil(t, task)
			assert.Equal(t, before, s.Places())
			assert.Zero(t, cache.saves)
			assert.Empty(t, remote.callLog())
		})
	}
}

func TestAddRemoteFailureIsNotSurfaced(t *testing.T) {
	remote := &fakeRemote{fails: errOffline}
	s := NewSynchronizer(&memCache{}, remote, fakeIdentity{id: "owner-1"}, newQueue(t))

	p := place(1, "Orphan")
	task, err := s.Add(p)
	require.NoError(t, err)

	assert.ErrorIs(t, waitTask(t, task), errOffline)
	assert.True(t, s.Contains(p.ID), "local copy stays")
}

func TestAddWithoutIdentityKeepsLocal(t *testing.T) {
	remote := &fakeRemote{}
	s := NewSynchronizer(&memCache{}, remote, fakeIdentity{err: models.ErrIdentityUnavailable}, newQueue(t))

	task, err := s.Add(place(1, "NYC"))
	require.NoError(t, err)
	assert.ErrorIs(t, waitTask(t, task), models.ErrIdentityUnavailable)
	assert.Empty(t, remote.callLog())
	assert.Len(t, s.Places(), 1)
}

func TestRemove(t *testing.T) {
	cache := &memCache{places: []models.Place{place(1, "NYC"), place(2, "Austin")}}
	remote := &fakeRemote{}
	s := NewSynchronizer(cache, remote, fakeIdentity{id: "owner-1"}, newQueue(t))

	task := s.Remove(place(1, ""))
	require.NoError(t, waitTask(t, task))

	assert.Equal(t, []models.Place{place(2, "Austin")}, s.Places())
	assert.Equal(t, []models.Place{place(2, "Austin")}, cache.snapshot())
	assert.Equal(t, []string{"delete"}, remote.callLog())
	assert.Equal(t, place(1, "").ID, remote.deleted[0])
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	cache := &memCache{places: []models.Place{place(1, "NYC")}}
	remote := &fakeRemote{}
	s := NewSynchronizer(cache, remote, fakeIdentity{id: "owner-1"}, newQueue(t))

	task := s.Remove(place(9, "Nowhere"))

	assert.Nil(t, task)
	assert.Equal(t, []models.Place{place(1, "NYC")}, s.Places())
	assert.Zero(t, cache.saves)
	assert.Empty(t, remote.callLog())
}

func TestAddRemoveSameIDLastWriteWins(t *testing.T) {
	remote := &fakeRemote{}
	s := NewSynchronizer(&memCache{}, remote, fakeIdentity{id: "owner-1"}, newQueue(t))

	p := place(1, "Flip")
	_, err := s.Add(p)
	require.NoError(t, err)
	require.NoError(t, waitTask(t, s.Remove(p)))

	assert.Equal(t, []string{"upsert", "delete"}, remote.callLog())
	assert.Empty(t, remote.docs)
	assert.Empty(t, s.Places())
}

func TestMutationBeforeStartKeepsCache(t *testing.T) {
	cache := &memCache{places: []models.Place{place(1, "NYC")}}
	s := NewSynchronizer(cache, nil, nil, nil)

	_, err := s.Add(place(2, "Austin"))
	require.NoError(t, err)
	s.Start(context.Background())

	assert.Equal(t, []models.Place{place(1, "NYC"), place(2, "Austin")}, cache.snapshot())
}

func TestStaleFetchIsDropped(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0
	remote := &fakeRemote{}
	remote.fetch = func(ctx context.Context, _ string) ([]models.Place, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			<-release
			return []models.Place{place(1, "Stale")}, nil
		}
		return []models.Place{place(2, "Fresh")}, nil
	}
	s := NewSynchronizer(&memCache{}, remote, fakeIdentity{id: "owner-1"}, newQueue(t))

	done := make(chan State)
	go func() { done <- s.Sync(context.Background()) }()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, ReadyMerged, s.Sync(context.Background()))
	close(release)
	<-done

	assert.Equal(t, []models.Place{place(2, "Fresh")}, s.Places())
}

func TestSubscribeReceivesLatestSnapshot(t *testing.T) {
	s := NewSynchronizer(&memCache{}, nil, nil, nil)
	updates, cancel := s.Subscribe()
	defer cancel()

	initial := <-updates
	assert.Equal(t, Idle, initial.State)

	_, err := s.Add(place(1, "NYC"))
	require.NoError(t, err)
	_, err = s.Add(place(2, "Austin"))
	require.NoError(t, err)

	latest := <-updates
	assert.Equal(t, ReadyLocal, latest.State)
	assert.Len(t, latest.Places, 2)

	select {
	case extra := <-updates:
		t.Fatalf("unexpected extra snapshot %+v", extra)
	default:
	}

	cancel()
	_, open := <-updates
	assert.False(t, open)
}

func TestLocalOnlyWithoutRemote(t *testing.T) {
	s := NewSynchronizer(&memCache{}, nil, nil, nil)

	task, err := s.Add(place(1, "NYC"))
	require.NoError(t, err)
	assert.Nil(t, task)
	assert.Equal(t, ReadyLocal, s.Sync(context.Background()))
}

type stalledRemote struct{ fakeRemote }

func (r *stalledRemote) Upsert(ctx context.Context, _ models.Place, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestReadsDoNotWaitForRemoteWrites(t *testing.T) {
	cfg := writequeue.DefaultConfig()
	cfg.Timeout = 200 * time.Millisecond
	q := writequeue.New(cfg)
	t.Cleanup(q.Close)

	s := NewSynchronizer(&memCache{}, &stalledRemote{}, fakeIdentity{id: "owner-1"}, q)
	s.Start(context.Background())

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Add(place(i, "P"))
			assert.NoError(t, err)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Add waited on the remote store")
	}

	start := time.Now()
	assert.Len(t, s.Places(), 10)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}
