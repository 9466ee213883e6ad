package postservice_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	postservice "quill/contexts/wiki-editorial/post-service"
	"quill/contexts/wiki-editorial/post-service/application/commands"
	"quill/contexts/wiki-editorial/post-service/domain/entities"
	domainerrors "quill/contexts/wiki-editorial/post-service/domain/errors"
	httptransport "quill/contexts/wiki-editorial/post-service/transport/http"
	contractsv1 "quill/contracts/gen/events/v1"
	"quill/internal/platform/messaging"
)

const testBody = "This body is comfortably long enough to pass validation."

func TestCreatePostStartsAsDraft(t *testing.T) {
	module := postservice.NewInMemoryModule(nil, nil)
	createdAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	module.Store.SetNow(func() time.Time { return createdAt })

	post, err := module.Handler.CreatePostHandler(context.Background(), "author-1",
		httptransport.CreatePostRequest{Title: "  Go Concurrency  ", Body: testBody})
	if err != nil {
		t.Fatalf("create post failed: %v", err)
	}
	if post.Status != string(entities.PostStatusDraft) {
		t.Fatalf("expected draft, got %s", post.Status)
	}
	if post.Title != "Go Concurrency" {
		t.Fatalf("expected trimmed title, got %q", post.Title)
	}
	if !post.CreatedAt.Equal(createdAt) {
		t.Fatalf("expected created_at %s, got %s", createdAt, post.CreatedAt)
	}
}

func TestCreatePostValidation(t *testing.T) {
	module := postservice.NewInMemoryModule(nil, nil)

	cases := []struct {
		name string
		req  httptransport.CreatePostRequest
		want error
	}{
		{"blank title", httptransport.CreatePostRequest{Title: " ", Body: testBody}, domainerrors.ErrTitleRequired},
		{"short body", httptransport.CreatePostRequest{Title: "Title", Body: "short"}, domainerrors.ErrBodyTooShort},
	}
	for _, tc := range cases {
		if _, err := module.Handler.CreatePostHandler(context.Background(), "author-1", tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestDeletedPostStaysReadableButUnlisted(t *testing.T) {
	module := postservice.NewInMemoryModule(nil, nil)
	post, err := module.Handler.CreatePostHandler(context.Background(), "author-1",
		httptransport.CreatePostRequest{Title: "Title", Body: testBody})
	if err != nil {
		t.Fatalf("create post failed: %v", err)
	}

	if err := module.Handler.DeletePostHandler(context.Background(), post.PostID); err != nil {
		t.Fatalf("delete post failed: %v", err)
	}

	got, err := module.Handler.GetPostHandler(context.Background(), post.PostID)
	if err != nil {
		t.Fatalf("expected deleted post readable by ID, got %v", err)
	}
	if got.Status != string(entities.PostStatusDeleted) {
		t.Fatalf("expected deleted status, got %s", got.Status)
	}

	if err := module.Handler.DeletePostHandler(context.Background(), post.PostID); !errors.Is(err, domainerrors.ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound on second delete, got %v", err)
	}

	list, err := module.Handler.ListPostsHandler(context.Background())
	if err != nil {
		t.Fatalf("list posts failed: %v", err)
	}
	if len(list.Items) != 0 {
		t.Fatalf("expected deleted post excluded from listing, got %d items", len(list.Items))
	}
}

func TestApplyCompletedOutcomeInstallsWinningContent(t *testing.T) {
	module := postservice.NewInMemoryModule(nil, nil)
	module.Store.SeedPost(entities.Post{
		PostID:       "post-1",
		Title:        "Original",
		Body:         testBody,
		AuthorUserID: "author-1",
		Status:       entities.PostStatusInReview,
	})

	err := module.Consumer.ApplyOutcome.Execute(context.Background(), commands.ReviewOutcome{
		PostID:       "post-1",
		ReviewID:     "review-1",
		Completed:    true,
		WinningTitle: "Improved",
		WinningBody:  testBody + " Revised for clarity.",
	})
	if err != nil {
		t.Fatalf("apply outcome failed: %v", err)
	}

	post, err := module.Handler.GetPostHandler(context.Background(), "post-1")
	if err != nil {
		t.Fatalf("get post failed: %v", err)
	}
	if post.Status != string(entities.PostStatusReviewed) {
		t.Fatalf("expected reviewed, got %s", post.Status)
	}
	if post.Title != "Improved" {
		t.Fatalf("expected winning title installed, got %q", post.Title)
	}
}

func TestApplyCancelledOutcomeReturnsPostToDraft(t *testing.T) {
	module := postservice.NewInMemoryModule(nil, nil)
	module.Store.SeedPost(entities.Post{
		PostID: "post-1",
		Title:  "Original",
		Body:   testBody,
		Status: entities.PostStatusInReview,
	})

	err := module.Consumer.ApplyOutcome.Execute(context.Background(), commands.ReviewOutcome{
		PostID:    "post-1",
		ReviewID:  "review-1",
		Completed: false,
	})
	if err != nil {
		t.Fatalf("apply outcome failed: %v", err)
	}

	post, err := module.Handler.GetPostHandler(context.Background(), "post-1")
	if err != nil {
		t.Fatalf("get post failed: %v", err)
	}
	if post.Status != string(entities.PostStatusDraft) {
		t.Fatalf("expected draft, got %s", post.Status)
	}
	if post.Title != "Original" {
		t.Fatalf("expected original title kept, got %q", post.Title)
	}
}

func TestApplyOutcomeSkipsPostNotInReview(t *testing.T) {
	module := postservice.NewInMemoryModule(nil, nil)
	module.Store.SeedPost(entities.Post{
		PostID: "post-1",
		Title:  "Original",
		Body:   testBody,
		Status: entities.PostStatusReviewed,
	})

	err := module.Consumer.ApplyOutcome.Execute(context.Background(), commands.ReviewOutcome{
		PostID:       "post-1",
		ReviewID:     "review-2",
		Completed:    true,
		WinningTitle: "Should Not Apply",
		WinningBody:  testBody,
	})
	if err != nil {
		t.Fatalf("expected replayed outcome to be ignored, got %v", err)
	}

	post, err := module.Handler.GetPostHandler(context.Background(), "post-1")
	if err != nil {
		t.Fatalf("get post failed: %v", err)
	}
	if post.Title != "Original" {
		t.Fatalf("expected content untouched, got %q", post.Title)
	}
}

func TestConsumerAppliesPublishedOutcome(t *testing.T) {
	bus, err := messaging.NewKafka(nil, nil)
	if err != nil {
		t.Fatalf("bus init failed: %v", err)
	}
	module := postservice.NewInMemoryModule(bus, nil)
	module.Store.SeedPost(entities.Post{
		PostID: "post-1",
		Title:  "Original",
		Body:   testBody,
		Status: entities.PostStatusInReview,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := module.Consumer.Start(ctx); err != nil {
		t.Fatalf("consumer start failed: %v", err)
	}

	payload, err := json.Marshal(map[string]string{
		"review_id":           "review-1",
		"post_id":             "post-1",
		"status":              "completed",
		"winning_revision_id": "revision-1",
		"winning_title":       "Improved",
		"winning_body":        testBody,
	})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	event := contractsv1.Envelope{
		EventID:       "event-1",
		EventType:     "review.completed",
		OccurredAt:    time.Now().UTC(),
		SourceService: "review-engine",
		SchemaVersion: 1,
		PartitionKey:  "post-1",
		Data:          payload,
	}
	if err := bus.Publish(ctx, "review.completed", event); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		post, err := module.Handler.GetPostHandler(context.Background(), "post-1")
		if err != nil {
			t.Fatalf("get post failed: %v", err)
		}
		if post.Status == string(entities.PostStatusReviewed) {
			if post.Title != "Improved" {
				t.Fatalf("expected winning title installed, got %q", post.Title)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("post never left in_review, status=%s", post.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Replaying the same event is a no-op thanks to dedup.
	if err := bus.Publish(ctx, "review.completed", event); err != nil {
		t.Fatalf("republish failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	post, err := module.Handler.GetPostHandler(context.Background(), "post-1")
	if err != nil {
		t.Fatalf("get post failed: %v", err)
	}
	if post.Status != string(entities.PostStatusReviewed) {
		t.Fatalf("expected reviewed after replay, got %s", post.Status)
	}
}
