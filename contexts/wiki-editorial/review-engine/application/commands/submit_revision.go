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

// SubmitRevisionCommand proposes a replacement title/body for the post under
// review. AuthorUserID may be empty: anonymous submissions are permitted.
type SubmitRevisionCommand struct {
	ReviewID     string
	Title        string
	Body         string
	AuthorUserID string
	Comments     []entities.ReviewComment
}

type SubmitRevisionUseCase struct {
	Reviews   ports.ReviewRepository
	Revisions ports.RevisionRepository
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func (uc SubmitRevisionUseCase) Execute(ctx context.Context, cmd SubmitRevisionCommand) (entities.Revision, error) {
	logger := application.ResolveLogger(uc.Logger)
	reviewID := strings.TrimSpace(cmd.ReviewID)
	if reviewID == "" {
		return entities.Revision{}, domainerrors.ErrReviewNotFound
	}
	if err := validateRevisionContent(cmd.Title, cmd.Body); err != nil {
		return entities.Revision{}, err
	}
	if err := validateComments(cmd.Comments); err != nil {
		return entities.Revision{}, err
	}

	review, err := uc.Reviews.GetReview(ctx, reviewID)
	if err != nil {
		return entities.Revision{}, err
	}
	now := uc.now()
	// A review past its deadline no longer accepts revisions even if no
	// finalize call has run yet.
	if review.Status != entities.ReviewStatusInReview || review.Expired(now) {
		logger.Warn("revision rejected for inactive review",
			"event", "revision_rejected_review_not_active",
			"module", "wiki-editorial/review-engine",
			"layer", "application",
			"review_id", reviewID,
			"review_status", string(review.Status),
		)
		return entities.Revision{}, domainerrors.ErrReviewNotActive
	}

	revisionID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Revision{}, err
	}
	revision := entities.Revision{
		RevisionID:   revisionID,
		ReviewID:     reviewID,
		Title:        strings.TrimSpace(cmd.Title),
		Body:         strings.TrimSpace(cmd.Body),
		AuthorUserID: strings.TrimSpace(cmd.AuthorUserID),
		SubmittedAt:  now,
		VoteCount:    0,
		Comments:     cmd.Comments,
	}
	if err := uc.Revisions.SaveRevision(ctx, revision); err != nil {
		return entities.Revision{}, err
	}
	if err := uc.appendRevisionEvent(ctx, revision, review.PostID, now); err != nil {
		return entities.Revision{}, err
	}

	logger.Info("revision submitted",
		"event", "revision_submitted",
		"module", "wiki-editorial/review-engine",
		"layer", "application",
		"revision_id", revision.RevisionID,
		"review_id", revision.ReviewID,
		"comment_count", len(revision.Comments),
		"anonymous", revision.AuthorUserID == "",
	)
	return revision, nil
}

func (uc SubmitRevisionUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc SubmitRevisionUseCase) appendRevisionEvent(
	ctx context.Context,
	revision entities.Revision,
	postID string,
	occurredAt time.Time,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data := map[string]any{
		"revision_id":  revision.RevisionID,
		"review_id":    revision.ReviewID,
		"post_id":      postID,
		"submitted_at": revision.SubmittedAt.Format(time.RFC3339),
		"occurred_at":  occurredAt.Format(time.RFC3339),
	}
	envelope, err := newReviewEnvelope(eventID, "revision.submitted", "post_id", postID, occurredAt, data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}
