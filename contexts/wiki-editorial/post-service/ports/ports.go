package ports

import (
	"context"
	"time"

	"quill/contexts/wiki-editorial/post-service/domain/entities"
	contractsv1 "quill/contracts/gen/events/v1"
)

type PostRepository interface {
	SavePost(ctx context.Context, post entities.Post) error
	GetPost(ctx context.Context, postID string) (entities.Post, error)
	// ListPosts returns posts ordered by creation time descending. Deleted
	// posts are excluded unless includeDeleted is set.
	ListPosts(ctx context.Context, includeDeleted bool) ([]entities.Post, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = contractsv1.Envelope

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(ctx context.Context, event EventEnvelope) error,
	) error
}

// EventDedupStore gates at-least-once deliveries. ReserveEvent returns true
// when the event was already processed with the same payload hash.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}
