package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "quill/contexts/wiki-editorial/post-service/application"
	"quill/contexts/wiki-editorial/post-service/domain/entities"
	domainerrors "quill/contexts/wiki-editorial/post-service/domain/errors"
	"quill/contexts/wiki-editorial/post-service/ports"
)

// ReviewOutcome carries the terminal result of a review cycle as consumed
// from the review engine's events.
type ReviewOutcome struct {
	PostID       string
	ReviewID     string
	Completed    bool
	WinningTitle string
	WinningBody  string
}

// ApplyReviewOutcomeUseCase advances post state when a review finishes. A
// completed review installs the winning revision's content and marks the post
// reviewed; a cancelled review returns the post to draft. Outcomes for posts
// no longer in_review are ignored so event replays stay harmless.
type ApplyReviewOutcomeUseCase struct {
	Posts  ports.PostRepository
	Clock  ports.Clock
	Logger *slog.Logger
}

func (uc ApplyReviewOutcomeUseCase) Execute(ctx context.Context, outcome ReviewOutcome) error {
	logger := application.ResolveLogger(uc.Logger)
	postID := strings.TrimSpace(outcome.PostID)
	if postID == "" {
		return domainerrors.ErrPostNotFound
	}
	post, err := uc.Posts.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.Status != entities.PostStatusInReview {
		logger.Warn("review outcome skipped for post not in review",
			"event", "post_review_outcome_skipped",
			"module", "wiki-editorial/post-service",
			"layer", "application",
			"post_id", postID,
			"review_id", outcome.ReviewID,
			"post_status", string(post.Status),
		)
		return nil
	}

	if outcome.Completed {
		post.Title = outcome.WinningTitle
		post.Body = outcome.WinningBody
		post.Status = entities.PostStatusReviewed
	} else {
		post.Status = entities.PostStatusDraft
	}
	post.UpdatedAt = uc.now()
	if err := uc.Posts.SavePost(ctx, post); err != nil {
		return err
	}

	logger.Info("review outcome applied",
		"event", "post_review_outcome_applied",
		"module", "wiki-editorial/post-service",
		"layer", "application",
		"post_id", postID,
		"review_id", outcome.ReviewID,
		"post_status", string(post.Status),
	)
	return nil
}

func (uc ApplyReviewOutcomeUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
