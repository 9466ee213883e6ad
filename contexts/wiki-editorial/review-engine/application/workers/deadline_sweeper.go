package workers

import (
	"context"
	"log/slog"
	"time"

	application "quill/contexts/wiki-editorial/review-engine/application"
	"quill/contexts/wiki-editorial/review-engine/application/commands"
	"quill/contexts/wiki-editorial/review-engine/ports"
)

// DeadlineSweeper finalizes in_review reviews that crossed their deadline.
// It shares the per-review finalize lock with lazy read-side finalization,
// so racing with reads is safe.
type DeadlineSweeper struct {
	Reviews   ports.ReviewRepository
	Finalizer commands.FinalizeReviewUseCase
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (j DeadlineSweeper) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	now := time.Now().UTC()
	if j.Clock != nil {
		now = j.Clock.Now().UTC()
	}

	limit := j.BatchSize
	if limit <= 0 {
		limit = 100
	}

	expired, err := j.Reviews.ListExpiredInReview(ctx, now, limit)
	if err != nil {
		logger.Error("deadline sweep listing failed",
			"event", "review_deadline_sweep_list_failed",
			"module", "wiki-editorial/review-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(expired) == 0 {
		return nil
	}

	finalized := 0
	for _, review := range expired {
		if _, err := j.Finalizer.Execute(ctx, review.ReviewID); err != nil {
			// Keep sweeping; the review stays expired and the next cycle
			// or a lazy read retries it.
			logger.Error("deadline sweep finalize failed",
				"event", "review_deadline_sweep_finalize_failed",
				"module", "wiki-editorial/review-engine",
				"layer", "worker",
				"review_id", review.ReviewID,
				"error", err.Error(),
			)
			continue
		}
		finalized++
	}

	logger.Info("deadline sweep completed",
		"event", "review_deadline_sweep_completed",
		"module", "wiki-editorial/review-engine",
		"layer", "worker",
		"expired_count", len(expired),
		"finalized_count", finalized,
	)
	return nil
}
