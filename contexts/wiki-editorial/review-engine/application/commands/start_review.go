package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "quill/contexts/wiki-editorial/review-engine/application"
	"quill/contexts/wiki-editorial/review-engine/domain/entities"
	domainerrors "quill/contexts/wiki-editorial/review-engine/domain/errors"
	"quill/contexts/wiki-editorial/review-engine/ports"
)

// Post status values mirror the canonical states owned by the post service.
const (
	postStatusDraft    = "draft"
	postStatusInReview = "in_review"
	postStatusReviewed = "reviewed"
	postStatusDeleted  = "deleted"
)

// StartReviewCommand opens a review cycle on a post. RequestedByUserID may be
// empty: starting a review is permitted anonymously.
type StartReviewCommand struct {
	PostID            string
	RequestedByUserID string
}

// StartReviewUseCase creates the single active review for a post. The
// read-check-write sequence runs under a per-post lock so two concurrent
// callers cannot both observe "no active review" and create two reviews.
type StartReviewUseCase struct {
	Reviews      ports.ReviewRepository
	Posts        ports.PostDirectory
	Locks        ports.LockCoordinator
	Outbox       ports.OutboxWriter
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	ReviewWindow time.Duration
	LockWait     time.Duration
	LockLease    time.Duration
	Logger       *slog.Logger
}

func (uc StartReviewUseCase) Execute(ctx context.Context, cmd StartReviewCommand) (entities.Review, error) {
	logger := application.ResolveLogger(uc.Logger)
	postID := strings.TrimSpace(cmd.PostID)
	if postID == "" {
		return entities.Review{}, domainerrors.ErrPostNotFound
	}

	post, err := uc.Posts.GetPost(ctx, postID)
	if err != nil {
		return entities.Review{}, err
	}
	switch strings.TrimSpace(post.Status) {
	case postStatusDraft, postStatusInReview, postStatusReviewed:
	case postStatusDeleted:
		// Deleted posts stay readable elsewhere but are excluded from the
		// review workflow as if absent.
		return entities.Review{}, domainerrors.ErrPostNotFound
	default:
		return entities.Review{}, domainerrors.ErrPostNotReviewable
	}

	var review entities.Review
	err = uc.Locks.WithLock(
		ctx,
		startLockPrefix+postID,
		resolveLockWait(uc.LockWait),
		resolveLockLease(uc.LockLease),
		func(ctx context.Context) error {
			if _, found, err := uc.Reviews.GetActiveReviewByPost(ctx, postID); err != nil {
				return err
			} else if found {
				return domainerrors.ErrReviewAlreadyActive
			}

			reviewID, err := uc.IDGen.NewID(ctx)
			if err != nil {
				return err
			}
			now := uc.now()
			review = entities.Review{
				ReviewID:        reviewID,
				PostID:          postID,
				StartedByUserID: strings.TrimSpace(cmd.RequestedByUserID),
				StartedAt:       now,
				Deadline:        now.Add(uc.resolveReviewWindow()),
				Status:          entities.ReviewStatusInReview,
			}
			if err := uc.Reviews.SaveReview(ctx, review); err != nil {
				return err
			}
			if err := uc.Posts.SetPostStatus(ctx, postID, postStatusInReview, now); err != nil {
				return err
			}
			return uc.appendReviewEvent(ctx, "review.started", review, now, nil)
		},
	)
	if err != nil {
		if errors.Is(err, domainerrors.ErrReviewAlreadyActive) || errors.Is(err, domainerrors.ErrLockTimeout) {
			logger.Warn("review start rejected",
				"event", "review_start_rejected",
				"module", "wiki-editorial/review-engine",
				"layer", "application",
				"post_id", postID,
				"error", err.Error(),
			)
		}
		return entities.Review{}, err
	}

	logger.Info("review started",
		"event", "review_started",
		"module", "wiki-editorial/review-engine",
		"layer", "application",
		"review_id", review.ReviewID,
		"post_id", review.PostID,
		"deadline", review.Deadline.Format(time.RFC3339),
		"anonymous", review.StartedByUserID == "",
	)
	return review, nil
}

func (uc StartReviewUseCase) resolveReviewWindow() time.Duration {
	if uc.ReviewWindow <= 0 {
		return entities.ReviewWindow
	}
	return uc.ReviewWindow
}

func (uc StartReviewUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc StartReviewUseCase) appendReviewEvent(
	ctx context.Context,
	eventType string,
	review entities.Review,
	occurredAt time.Time,
	extra map[string]any,
) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data := map[string]any{
		"review_id":   review.ReviewID,
		"post_id":     review.PostID,
		"status":      string(review.Status),
		"started_at":  review.StartedAt.Format(time.RFC3339),
		"deadline":    review.Deadline.Format(time.RFC3339),
		"occurred_at": occurredAt.Format(time.RFC3339),
	}
	for key, value := range extra {
		data[key] = value
	}
	envelope, err := newReviewEnvelope(eventID, eventType, "post_id", review.PostID, occurredAt, data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}
