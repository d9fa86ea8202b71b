// Package favorites owns the in-memory favorite set and keeps it in step with
// the local snapshot and the remote store.
//
// The set is guarded by one mutex; every mutation, merge and local save runs
// under it, so the snapshot on disk is written in mutation order. Identity
// resolution and remote fetches run outside the lock and their results are
// applied back under it. Remote writes go through a write queue in the order
// the mutations happened.
package favorites

import (
	"context"
	"log"
	"slices"
	"sync"

	"github.com/google/uuid"

	"weatherapp/internal/models"
	"weatherapp/internal/writequeue"
)

// LocalCache persists whole snapshots of the set.
type LocalCache interface {
	LoadSnapshot() ([]models.Place, error)
	SaveSnapshot(places []models.Place) error
}

// RemoteStore is the per-owner document collection.
type RemoteStore interface {
	FetchAll(ctx context.Context, ownerID string) ([]models.Place, error)
	Upsert(ctx context.Context, p models.Place, ownerID string) error
	Delete(ctx context.Context, id uuid.UUID, ownerID string) error
}

type IdentityProvider interface {
	EnsureIdentity(ctx context.Context) (string, error)
}

// WriteQueue runs remote writes in submission order. Submit is called with
// the set's lock held and must not block.
type WriteQueue interface {
	Submit(name string, op writequeue.Op) *writequeue.Task
}

// Snapshot is what subscribers receive after every change.
type Snapshot struct {
	Places []models.Place
	State  State
}

type Synchronizer struct {
	cache    LocalCache
	remote   RemoteStore
	identity IdentityProvider
	queue    WriteQueue

	startOnce sync.Once

	mu         sync.Mutex
	loaded     bool
	places     []models.Place
	state      State
	syncGen    uint64
	appliedGen uint64
	subs       map[int]chan Snapshot
	nextSub    int
}

// NewSynchronizer wires the collaborators. remote, identity and queue may all
// be nil, in which case the set is local-only.
func NewSynchronizer(cache LocalCache, remote RemoteStore, identity IdentityProvider, queue WriteQueue) *Synchronizer {
	return &Synchronizer{
		cache:    cache,
		remote:   remote,
		identity: identity,
		queue:    queue,
		subs:     make(map[int]chan Snapshot),
	}
}

// Start loads the local snapshot, publishes it, then syncs with the remote
// store. Only the first call does anything; use Sync to run again.
func (s *Synchronizer) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.mu.Lock()
		s.loadLocked()
		s.mu.Unlock()

		s.Sync(ctx)
	})
}

// Sync fetches the remote list and merges it into the set. Failures are
// logged and leave the set as it was, in ReadyLocal. The returned state is the
// one this run ended in.
func (s *Synchronizer) Sync(ctx context.Context) State {
	s.mu.Lock()
	s.loadLocked()
	if !s.remoteEnabled() {
		s.mu.Unlock()
		return ReadyLocal
	}
	s.syncGen++
	gen := s.syncGen
	s.setStateLocked(Authenticating)
	s.mu.Unlock()

	ownerID, err := s.identity.EnsureIdentity(ctx)
	if err != nil {
		log.Printf("Favorites staying local-only, identity unavailable: %v", err)
		return s.fallback(gen)
	}

	s.mu.Lock()
	if gen == s.syncGen {
		s.setStateLocked(SyncingRemote)
	}
	s.mu.Unlock()

	remote, err := s.remote.FetchAll(ctx, ownerID)
	if err != nil {
		log.Printf("Remote favorites fetch failed: %v", err)
		return s.fallback(gen)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen < s.appliedGen {
		log.Printf("Dropping favorites fetch #%d, superseded by #%d", gen, s.appliedGen)
		return s.state
	}
	s.appliedGen = gen
	s.places = Merge(remote, s.places)
	s.persistLocked()
	s.setStateLocked(ReadyMerged)
	log.Printf("Merged %d remote favorites, %d total", len(remote), len(s.places))
	return ReadyMerged
}

// Add validates p and stores it. The local snapshot is saved before the
// remote upsert is queued; the returned task reports the remote outcome and is
// nil when there is no remote store.
func (s *Synchronizer) Add(p models.Place) (*writequeue.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()

	places := slices.Clone(s.places)
	if i := models.IndexOf(places, p.ID); i >= 0 {
		places[i] = p
	} else {
		places = append(places, p)
	}
	s.places = places
	s.persistLocked()
	s.publishLocked()

	return s.submitLocked("upsert "+p.ID.String(), func(ctx context.Context, ownerID string) error {
		return s.remote.Upsert(ctx, p, ownerID)
	}), nil
}

// Remove deletes p by id. An id that is not in the set is a no-op and returns
// a nil task.
func (s *Synchronizer) Remove(p models.Place) *writequeue.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()

	i := models.IndexOf(s.places, p.ID)
	if i < 0 {
		return nil
	}
	s.places = slices.Delete(slices.Clone(s.places), i, i+1)
	s.persistLocked()
	s.publishLocked()

	id := p.ID
	return s.submitLocked("delete "+id.String(), func(ctx context.Context, ownerID string) error {
		return s.remote.Delete(ctx, id, ownerID)
	})
}

// Places returns a copy of the current set.
func (s *Synchronizer) Places() []models.Place {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	return slices.Clone(s.places)
}

func (s *Synchronizer) Contains(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	return models.IndexOf(s.places, id) >= 0
}

func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel that always holds the latest snapshot, starting
// with the current one. Slow readers miss intermediate snapshots, never the
// last. Call the returned func to unsubscribe; it closes the channel.
func (s *Synchronizer) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

func (s *Synchronizer) remoteEnabled() bool {
	return s.remote != nil && s.identity != nil && s.queue != nil
}

// loadLocked reads the local snapshot the first time the set is touched, so
// early mutations never overwrite an unread cache.
func (s *Synchronizer) loadLocked() {
	if s.loaded {
		return
	}
	s.loaded = true
	s.setStateLocked(LoadingLocal)

	places, err := s.cache.LoadSnapshot()
	if err != nil {
		log.Printf("Loading local favorites failed, starting empty: %v", err)
		places = nil
	}
	s.places = dedupe(places)
	s.setStateLocked(ReadyLocal)
}

func (s *Synchronizer) persistLocked() {
	if err := s.cache.SaveSnapshot(s.places); err != nil {
		log.Printf("Saving local favorites failed: %v", err)
	}
}

func (s *Synchronizer) fallback(gen uint64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.syncGen {
		s.setStateLocked(ReadyLocal)
	}
	return ReadyLocal
}

func (s *Synchronizer) submitLocked(name string, write func(ctx context.Context, ownerID string) error) *writequeue.Task {
	if !s.remoteEnabled() {
		return nil
	}
	return s.queue.Submit(name, func(ctx context.Context) error {
		ownerID, err := s.identity.EnsureIdentity(ctx)
		if err != nil {
			return err
		}
		return write(ctx, ownerID)
	})
}

func (s *Synchronizer) setStateLocked(state State) {
	s.state = state
	s.publishLocked()
}

func (s *Synchronizer) snapshotLocked() Snapshot {
	return Snapshot{Places: slices.Clone(s.places), State: s.state}
}

func (s *Synchronizer) publishLocked() {
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
