package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "quill/contexts/wiki-editorial/post-service/application"
	"quill/contexts/wiki-editorial/post-service/application/commands"
	"quill/contexts/wiki-editorial/post-service/ports"
)

const (
	reviewCompletedTopic = "review.completed"
	reviewCancelledTopic = "review.cancelled"
	defaultReviewCG      = "post-service-review-cg"
)

// ReviewOutcomeConsumer reacts to terminal review events and advances the
// owning post: completed installs the winning content, cancelled returns the
// post to draft.
type ReviewOutcomeConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	ApplyOutcome  commands.ApplyReviewOutcomeUseCase
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Disabled      bool
	Logger        *slog.Logger
}

func (c ReviewOutcomeConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	if c.Disabled {
		logger.Info("review outcome consumer disabled by feature flag",
			"event", "post_review_consumer_disabled",
			"module", "wiki-editorial/post-service",
			"layer", "worker",
		)
		return nil
	}
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultReviewCG
	}
	for _, topic := range []string{reviewCompletedTopic, reviewCancelledTopic} {
		if err := c.Subscriber.Subscribe(ctx, topic, group, c.handleReviewOutcome); err != nil {
			logger.Error("review outcome consumer subscribe failed",
				"event", "post_review_consumer_subscribe_failed",
				"module", "wiki-editorial/post-service",
				"layer", "worker",
				"topic", topic,
				"consumer_group", group,
				"error", err.Error(),
			)
			return err
		}
	}
	logger.Info("review outcome consumer subscriptions active",
		"event", "post_review_consumer_started",
		"module", "wiki-editorial/post-service",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c ReviewOutcomeConsumer) handleReviewOutcome(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	if alreadyProcessed, err := c.reserveEvent(ctx, event); err != nil {
		return err
	} else if alreadyProcessed {
		logger.Debug("review outcome replay skipped",
			"event", "post_review_outcome_replayed",
			"module", "wiki-editorial/post-service",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	var payload struct {
		ReviewID          string `json:"review_id"`
		PostID            string `json:"post_id"`
		Status            string `json:"status"`
		WinningRevisionID string `json:"winning_revision_id"`
		WinningTitle      string `json:"winning_title"`
		WinningBody       string `json:"winning_body"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("review outcome payload decode failed",
			"event", "post_review_outcome_decode_failed",
			"module", "wiki-editorial/post-service",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}

	err := c.ApplyOutcome.Execute(ctx, commands.ReviewOutcome{
		PostID:       payload.PostID,
		ReviewID:     payload.ReviewID,
		Completed:    event.EventType == reviewCompletedTopic,
		WinningTitle: payload.WinningTitle,
		WinningBody:  payload.WinningBody,
	})
	if err != nil {
		logger.Error("review outcome apply failed",
			"event", "post_review_outcome_apply_failed",
			"module", "wiki-editorial/post-service",
			"layer", "worker",
			"event_id", event.EventID,
			"post_id", strings.TrimSpace(payload.PostID),
			"error", err.Error(),
		)
		return err
	}

	logger.Info("review outcome consumed",
		"event", "post_review_outcome_consumed",
		"module", "wiki-editorial/post-service",
		"layer", "worker",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"post_id", strings.TrimSpace(payload.PostID),
	)
	return nil
}

func (c ReviewOutcomeConsumer) reserveEvent(ctx context.Context, event ports.EventEnvelope) (bool, error) {
	logger := application.ResolveLogger(c.Logger)
	alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), c.now().Add(c.dedupTTL()))
	if err != nil {
		logger.Error("review outcome dedupe failed",
			"event", "post_review_outcome_dedupe_failed",
			"module", "wiki-editorial/post-service",
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"error", err.Error(),
		)
		return false, err
	}
	return alreadyProcessed, nil
}

func (c ReviewOutcomeConsumer) now() time.Time {
	if c.Clock != nil {
		return c.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (c ReviewOutcomeConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}
