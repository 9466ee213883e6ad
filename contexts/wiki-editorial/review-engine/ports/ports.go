package ports

import (
	"context"
	"time"

	"quill/contexts/wiki-editorial/review-engine/domain/entities"
	contractsv1 "quill/contracts/gen/events/v1"
)

type ReviewRepository interface {
	SaveReview(ctx context.Context, review entities.Review) error
	GetReview(ctx context.Context, reviewID string) (entities.Review, error)
	GetActiveReviewByPost(ctx context.Context, postID string) (entities.Review, bool, error)
	// ListReviewsByPost returns all reviews for the post, newest start time
	// first. Unknown posts yield an empty slice, not an error.
	ListReviewsByPost(ctx context.Context, postID string) ([]entities.Review, error)
	// ListExpiredInReview returns a bounded batch of in_review reviews whose
	// deadline is at or before now, for the sweeper.
	ListExpiredInReview(ctx context.Context, now time.Time, limit int) ([]entities.Review, error)
}

type RevisionRepository interface {
	SaveRevision(ctx context.Context, revision entities.Revision) error
	GetRevision(ctx context.Context, revisionID string) (entities.Revision, error)
	// ListRevisionsByReview returns revisions ordered by submission time
	// ascending, then revision ID ascending.
	ListRevisionsByReview(ctx context.Context, reviewID string) ([]entities.Revision, error)
	// IncrementVoteCount adds exactly 1 to the revision's vote counter.
	IncrementVoteCount(ctx context.Context, revisionID string) error
}

type VoteRepository interface {
	SaveVote(ctx context.Context, vote entities.Vote) error
	VoteExists(ctx context.Context, revisionID string, voterUserID string) (bool, error)
}

// PostProjection is the read-only slice of post state the review engine needs.
type PostProjection struct {
	PostID string
	Status string
}

// PostDirectory exposes post state owned by the post service. SetPostStatus
// is the review-start side effect that flips the post to in_review.
type PostDirectory interface {
	GetPost(ctx context.Context, postID string) (PostProjection, error)
	SetPostStatus(ctx context.Context, postID string, status string, updatedAt time.Time) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// LockCoordinator serializes read-check-write sequences under a named key.
// Acquisition blocks up to waitTime and fails with the domain lock-timeout
// error; the lock is held at most leaseTime. fn runs while the lock is held.
type LockCoordinator interface {
	WithLock(
		ctx context.Context,
		key string,
		waitTime time.Duration,
		leaseTime time.Duration,
		fn func(ctx context.Context) error,
	) error
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
