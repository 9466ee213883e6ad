package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "quill/contexts/wiki-editorial/review-engine/application"
	"quill/contexts/wiki-editorial/review-engine/domain/entities"
	domainerrors "quill/contexts/wiki-editorial/review-engine/domain/errors"
	"quill/contexts/wiki-editorial/review-engine/ports"
)

// FinalizeReviewUseCase transitions an expired in_review review to its
// terminal state: completed with the most-voted revision as winner, or
// cancelled when no revisions were submitted. Finalization runs under a
// per-review lock so concurrent lazy-read triggers and the scheduler sweep
// resolve to exactly one transition; reruns return the terminal review
// unchanged.
type FinalizeReviewUseCase struct {
	Reviews   ports.ReviewRepository
	Revisions ports.RevisionRepository
	Locks     ports.LockCoordinator
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	LockWait  time.Duration
	LockLease time.Duration
	Logger    *slog.Logger
}

func (uc FinalizeReviewUseCase) Execute(ctx context.Context, reviewID string) (entities.Review, error) {
	logger := application.ResolveLogger(uc.Logger)
	reviewID = strings.TrimSpace(reviewID)
	if reviewID == "" {
		return entities.Review{}, domainerrors.ErrReviewNotFound
	}

	review, err := uc.Reviews.GetReview(ctx, reviewID)
	if err != nil {
		return entities.Review{}, err
	}
	if review.Status != entities.ReviewStatusInReview || !review.Expired(uc.now()) {
		return review, nil
	}

	var finalized entities.Review
	transitioned := false
	err = uc.Locks.WithLock(
		ctx,
		finalizeLockPrefix+reviewID,
		resolveLockWait(uc.LockWait),
		resolveLockLease(uc.LockLease),
		func(ctx context.Context) error {
			current, err := uc.Reviews.GetReview(ctx, reviewID)
			if err != nil {
				return err
			}
			// A concurrent finalizer may have won the lock first.
			if current.Status != entities.ReviewStatusInReview {
				finalized = current
				return nil
			}

			revisions, err := uc.Revisions.ListRevisionsByReview(ctx, reviewID)
			if err != nil {
				return err
			}

			now := uc.now()
			completedAt := now
			current.CompletedAt = &completedAt
			if len(revisions) == 0 {
				current.Status = entities.ReviewStatusCancelled
				current.WinningRevisionID = ""
				if err := uc.Reviews.SaveReview(ctx, current); err != nil {
					return err
				}
				finalized = current
				transitioned = true
				return uc.appendOutcomeEvent(ctx, current, entities.Revision{}, now)
			}

			winner := pickWinner(revisions)
			current.Status = entities.ReviewStatusCompleted
			current.WinningRevisionID = winner.RevisionID
			if err := uc.Reviews.SaveReview(ctx, current); err != nil {
				return err
			}
			finalized = current
			transitioned = true
			return uc.appendOutcomeEvent(ctx, current, winner, now)
		},
	)
	if err != nil {
		return entities.Review{}, err
	}

	// A rerun that lost the race to another finalizer returns the terminal
	// review without claiming the transition.
	if transitioned {
		logger.Info("review finalized",
			"event", "review_finalized",
			"module", "wiki-editorial/review-engine",
			"layer", "application",
			"review_id", finalized.ReviewID,
			"post_id", finalized.PostID,
			"status", string(finalized.Status),
			"winning_revision_id", finalized.WinningRevisionID,
		)
	}
	return finalized, nil
}

// pickWinner selects the revision with the highest vote count, breaking ties
// by earliest submission, then by lowest revision ID for determinism.
func pickWinner(revisions []entities.Revision) entities.Revision {
	winner := revisions[0]
	for _, candidate := range revisions[1:] {
		switch {
		case candidate.VoteCount > winner.VoteCount:
			winner = candidate
		case candidate.VoteCount < winner.VoteCount:
		case candidate.SubmittedAt.Before(winner.SubmittedAt):
			winner = candidate
		case candidate.SubmittedAt.Equal(winner.SubmittedAt) && candidate.RevisionID < winner.RevisionID:
			winner = candidate
		}
	}
	return winner
}

func (uc FinalizeReviewUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

// appendOutcomeEvent emits review.completed with the winning content inlined
// so downstream consumers (post content apply) need no cross-context read.
func (uc FinalizeReviewUseCase) appendOutcomeEvent(
	ctx context.Context,
	review entities.Review,
	winner entities.Revision,
	occurredAt time.Time,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	eventType := "review.cancelled"
	data := map[string]any{
		"review_id":   review.ReviewID,
		"post_id":     review.PostID,
		"status":      string(review.Status),
		"occurred_at": occurredAt.Format(time.RFC3339),
	}
	if review.Status == entities.ReviewStatusCompleted {
		eventType = "review.completed"
		data["winning_revision_id"] = winner.RevisionID
		data["winning_title"] = winner.Title
		data["winning_body"] = winner.Body
		data["winning_vote_count"] = winner.VoteCount
	}
	envelope, err := newReviewEnvelope(eventID, eventType, "post_id", review.PostID, occurredAt, data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}
