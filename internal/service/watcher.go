// Package service reacts to favorites changed by other installs: MinIO
// publishes bucket notifications to Kafka, and every change that belongs to
// the current identity triggers a re-sync.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"

	"github.com/minio/minio-go/v7/pkg/notification"

	"weatherapp/internal/keys"
)

var errNoRecords = errors.New("notification has no records")

type Watcher struct {
	msgIterator MessageIterator
	identity    IdentityProvider
	syncer      Syncer
}

func NewWatcher(msgs MessageIterator, identity IdentityProvider, syncer Syncer) *Watcher {
	return &Watcher{
		msgIterator: msgs,
		identity:    identity,
		syncer:      syncer,
	}
}

// Run handles messages until the iterator closes or ctx ends. Each message
// that names one of the owner's favorites triggers at most one Sync. Offsets
// are committed after handling; undecodable messages are skipped.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-w.msgIterator.Messages():
			if !ok {
				return nil
			}

			changes, err := DecodeChanges(msg.Value)
			if err != nil {
				log.Printf("Skipping message at offset %d: %v", msg.Offset, err)
				continue
			}

			w.handle(ctx, changes)

			if err := w.msgIterator.CommitOffset(ctx, msg); err != nil {
				log.Printf("Failed to commit offset: %v", err)
			}
		}
	}
}

func (w *Watcher) handle(ctx context.Context, changes []Change) {
	if len(changes) == 0 {
		return
	}
	owner, err := w.identity.EnsureIdentity(ctx)
	if err != nil {
		log.Printf("Ignoring %d change(s), identity unavailable: %v", len(changes), err)
		return
	}

	for _, c := range changes {
		if keys.OwnerPrefix(c.Owner) != keys.OwnerPrefix(owner) {
			continue
		}
		log.Printf("Favorite %s changed remotely (%s), syncing", c.PlaceID, c.EventName)
		state := w.syncer.Sync(ctx)
		log.Printf("Sync after remote change finished in state %s", state)
		return
	}
}

// DecodeChanges parses a MinIO notification and keeps the records whose key
// names a favorite object. Other keys in the bucket are ignored.
func DecodeChanges(value []byte) ([]Change, error) {
	var info notification.Info
	if err := json.Unmarshal(value, &info); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}
	if len(info.Records) == 0 {
		return nil, errNoRecords
	}

	var changes []Change
	for _, record := range info.Records {
		objectKey, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			log.Printf("Error decoding key %q: %v", record.S3.Object.Key, err)
			continue
		}
		owner, id, err := keys.ParseFavorite(objectKey)
		if err != nil {
			continue
		}
		changes = append(changes, Change{
			EventName: record.EventName,
			Bucket:    record.S3.Bucket.Name,
			Owner:     owner,
			PlaceID:   id,
		})
	}
	return changes, nil
}
