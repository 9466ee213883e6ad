package queries

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"quill/contexts/wiki-editorial/review-engine/application/commands"
	"quill/contexts/wiki-editorial/review-engine/domain/entities"
	domainerrors "quill/contexts/wiki-editorial/review-engine/domain/errors"
	"quill/contexts/wiki-editorial/review-engine/ports"
)

// ReviewQueries serves the read side of the review workflow. Reads of an
// in_review review past its deadline finalize it first (lazy finalization) so
// callers never observe a stale in_review state.
type ReviewQueries struct {
	Reviews   ports.ReviewRepository
	Revisions ports.RevisionRepository
	Finalizer commands.FinalizeReviewUseCase
	Clock     ports.Clock
	Logger    *slog.Logger
}

func (q ReviewQueries) GetReview(ctx context.Context, reviewID string) (entities.Review, error) {
	reviewID = strings.TrimSpace(reviewID)
	if reviewID == "" {
		return entities.Review{}, domainerrors.ErrReviewNotFound
	}
	review, err := q.Reviews.GetReview(ctx, reviewID)
	if err != nil {
		return entities.Review{}, err
	}
	if review.Status == entities.ReviewStatusInReview && review.Expired(q.now()) {
		return q.Finalizer.Execute(ctx, reviewID)
	}
	return review, nil
}

// ListReviewsByPost returns the full review history for a post, newest first.
// The history is an audit trail: it stays retrievable for deleted posts and
// yields an empty slice for unknown post IDs.
func (q ReviewQueries) ListReviewsByPost(ctx context.Context, postID string) ([]entities.Review, error) {
	return q.Reviews.ListReviewsByPost(ctx, strings.TrimSpace(postID))
}

func (q ReviewQueries) ListRevisionsByReview(ctx context.Context, reviewID string) ([]entities.Revision, error) {
	reviewID = strings.TrimSpace(reviewID)
	if reviewID == "" {
		return nil, domainerrors.ErrReviewNotFound
	}
	if _, err := q.Reviews.GetReview(ctx, reviewID); err != nil {
		return nil, err
	}
	return q.Revisions.ListRevisionsByReview(ctx, reviewID)
}

func (q ReviewQueries) now() time.Time {
	if q.Clock != nil {
		return q.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
