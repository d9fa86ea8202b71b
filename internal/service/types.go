package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"weatherapp/internal/favorites"
)

// MessageIterator is the consumer side of a Kafka topic. The channel closes
// when the consumer stops.
type MessageIterator interface {
	Messages() <-chan kafka.Message
	CommitOffset(ctx context.Context, msg kafka.Message) error
}

type IdentityProvider interface {
	EnsureIdentity(ctx context.Context) (string, error)
}

type Syncer interface {
	Sync(ctx context.Context) favorites.State
}

// Change is one favorite object touched in the bucket.
type Change struct {
	EventName string
	Bucket    string
	Owner     string
	PlaceID   uuid.UUID
}
