package reviewengine_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	reviewengine "quill/contexts/wiki-editorial/review-engine"
	"quill/contexts/wiki-editorial/review-engine/domain/entities"
	domainerrors "quill/contexts/wiki-editorial/review-engine/domain/errors"
	"quill/contexts/wiki-editorial/review-engine/ports"
	httptransport "quill/contexts/wiki-editorial/review-engine/transport/http"
)

const testBody = "This body is comfortably long enough to pass validation."

type capturePublisher struct {
	mu     sync.Mutex
	events []ports.EventEnvelope
}

func (p *capturePublisher) Publish(_ context.Context, _ string, event ports.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	items := make([]string, 0, len(p.events))
	for _, event := range p.events {
		items = append(items, event.EventType)
	}
	return items
}

func newTestModule(t *testing.T) reviewengine.Module {
	t.Helper()
	module := reviewengine.NewInMemoryModule(&capturePublisher{}, nil)
	module.Store.SetPost(ports.PostProjection{PostID: "post-1", Status: "draft"})
	return module
}

func TestStartReviewOpensTimedCycle(t *testing.T) {
	module := newTestModule(t)
	startedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	module.Store.SetNow(func() time.Time { return startedAt })

	review, err := module.Handler.StartReviewHandler(context.Background(), "post-1", "")
	if err != nil {
		t.Fatalf("start review failed: %v", err)
	}
	if review.Status != string(entities.ReviewStatusInReview) {
		t.Fatalf("expected in_review, got %s", review.Status)
	}
	if !review.Deadline.Equal(startedAt.Add(72 * time.Hour)) {
		t.Fatalf("expected deadline 72h after start, got %s", review.Deadline)
	}
	if review.StartedByUserID != "" {
		t.Fatalf("expected anonymous start, got %q", review.StartedByUserID)
	}

	post, err := module.Store.GetPost(context.Background(), "post-1")
	if err != nil {
		t.Fatalf("get post failed: %v", err)
	}
	if post.Status != "in_review" {
		t.Fatalf("expected post in_review, got %s", post.Status)
	}
}

func TestStartReviewRejectsSecondActiveCycle(t *testing.T) {
	module := newTestModule(t)

	if _, err := module.Handler.StartReviewHandler(context.Background(), "post-1", "user-1"); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	_, err := module.Handler.StartReviewHandler(context.Background(), "post-1", "user-2")
	if !errors.Is(err, domainerrors.ErrReviewAlreadyActive) {
		t.Fatalf("expected ErrReviewAlreadyActive, got %v", err)
	}
}

func TestStartReviewTreatsDeletedPostAsAbsent(t *testing.T) {
	module := newTestModule(t)
	module.Store.SetPost(ports.PostProjection{PostID: "post-gone", Status: "deleted"})

	_, err := module.Handler.StartReviewHandler(context.Background(), "post-gone", "user-1")
	if !errors.Is(err, domainerrors.ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestConcurrentStartsCreateExactlyOneReview(t *testing.T) {
	module := newTestModule(t)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = module.Handler.StartReviewHandler(context.Background(), "post-1", "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, domainerrors.ErrReviewAlreadyActive) {
			t.Fatalf("unexpected start error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one successful start, got %d", succeeded)
	}
}

func TestSubmitRevisionValidation(t *testing.T) {
	module := newTestModule(t)
	review, err := module.Handler.StartReviewHandler(context.Background(), "post-1", "")
	if err != nil {
		t.Fatalf("start review failed: %v", err)
	}

	cases := []struct {
		name string
		req  httptransport.SubmitRevisionRequest
		want error
	}{
		{
			name: "blank title",
			req:  httptransport.SubmitRevisionRequest{Title: "   ", Body: testBody},
			want: domainerrors.ErrTitleRequired,
		},
		{
			name: "short body",
			req:  httptransport.SubmitRevisionRequest{Title: "Title", Body: "short"},
			want: domainerrors.ErrBodyTooShort,
		},
		{
			name: "bad comment line",
			req: httptransport.SubmitRevisionRequest{
				Title: "Title",
				Body:  testBody,
				Comments: []httptransport.CommentPayload{
					{LineNumber: 0, Text: "fix this", Type: "inaccuracy"},
				},
			},
			want: domainerrors.ErrInvalidCommentLine,
		},
		{
			name: "bad comment type",
			req: httptransport.SubmitRevisionRequest{
				Title: "Title",
				Body:  testBody,
				Comments: []httptransport.CommentPayload{
					{LineNumber: 3, Text: "fix this", Type: "praise"},
				},
			},
			want: domainerrors.ErrInvalidCommentType,
		},
	}
	for _, tc := range cases {
		if _, err := module.Handler.SubmitRevisionHandler(
			context.Background(), review.ReviewID, "author-1", tc.req,
		); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestSubmitRevisionAfterDeadlineIsRejected(t *testing.T) {
	module := newTestModule(t)
	startedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	module.Store.SetNow(func() time.Time { return startedAt })

	review, err := module.Handler.StartReviewHandler(context.Background(), "post-1", "")
	if err != nil {
		t.Fatalf("start review failed: %v", err)
	}

	// The deadline instant itself is already closed.
	module.Store.SetNow(func() time.Time { return startedAt.Add(72 * time.Hour) })
	_, err = module.Handler.SubmitRevisionHandler(context.Background(), review.ReviewID, "author-1",
		httptransport.SubmitRevisionRequest{Title: "Late", Body: testBody})
	if !errors.Is(err, domainerrors.ErrReviewNotActive) {
		t.Fatalf("expected ErrReviewNotActive, got %v", err)
	}
}

func TestCastVoteEnforcesOneVotePerVoter(t *testing.T) {
	module := newTestModule(t)
	review, err := module.Handler.StartReviewHandler(context.Background(), "post-1", "")
	if err != nil {
		t.Fatalf("start review failed: %v", err)
	}
	revision, err := module.Handler.SubmitRevisionHandler(context.Background(), review.ReviewID, "author-1",
		httptransport.SubmitRevisionRequest{Title: "Better", Body: testBody})
	if err != nil {
		t.Fatalf("submit revision failed: %v", err)
	}

	if _, err := module.Handler.CastVoteHandler(context.Background(), revision.RevisionID, "voter-1"); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	_, err = module.Handler.CastVoteHandler(context.Background(), revision.RevisionID, "voter-1")
	if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}

	got, err := module.Store.GetRevision(context.Background(), revision.RevisionID)
	if err != nil {
		t.Fatalf("get revision failed: %v", err)
	}
	if got.VoteCount != 1 {
		t.Fatalf("expected vote count 1, got %d", got.VoteCount)
	}
}

func TestConcurrentVotesFromDistinctVotersAllCount(t *testing.T) {
	module := newTestModule(t)
	review, err := module.Handler.StartReviewHandler(context.Background(), "post-1", "")
	if err != nil {
		t.Fatalf("start review failed: %v", err)
	}
	revision, err := module.Handler.SubmitRevisionHandler(context.Background(), review.ReviewID, "author-1",
		httptransport.SubmitRevisionRequest{Title: "Better", Body: testBody})
	if err != nil {
		t.Fatalf("submit revision failed: %v", err)
	}

	const voters = 20
	var wg sync.WaitGroup
	errs := make([]error, voters)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			voterID := "voter-" + string(rune('a'+slot))
			_, errs[slot] = module.Handler.CastVoteHandler(context.Background(), revision.RevisionID, voterID)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			t.Fatalf("unexpected vote error: %v", err)
		}
	}
	got, err := module.Store.GetRevision(context.Background(), revision.RevisionID)
	if err != nil {
		t.Fatalf("get revision failed: %v", err)
	}
	if got.VoteCount != voters {
		t.Fatalf("expected vote count %d, got %d", voters, got.VoteCount)
	}
}

func TestConcurrentDuplicateVotesCountOnce(t *testing.T) {
	module := newTestModule(t)
	review, err := module.Handler.StartReviewHandler(context.Background(), "post-1", "")
	if err != nil {
		t.Fatalf("start review failed: %v", err)
	}
	revision, err := module.Handler.SubmitRevisionHandler(context.Background(), review.ReviewID, "author-1",
		httptransport.SubmitRevisionRequest{Title: "Better", Body: testBody})
	if err != nil {
		t.Fatalf("submit revision failed: %v", err)
	}

	const attempts = 12
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = module.Handler.CastVoteHandler(context.Background(), revision.RevisionID, "voter-1")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, domainerrors.ErrAlreadyVoted) {
			t.Fatalf("unexpected vote error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one accepted vote, got %d", succeeded)
	}
	got, err := module.Store.GetRevision(context.Background(), revision.RevisionID)
	if err != nil {
		t.Fatalf("get revision failed: %v", err)
	}
	if got.VoteCount != 1 {
		t.Fatalf("expected vote count 1, got %d", got.VoteCount)
	}
}

func TestVoteRequiresIdentity(t *testing.T) {
	module := newTestModule(t)
	_, err := module.Handler.CastVoteHandler(context.Background(), "revision-1", "  ")
	if !errors.Is(err, domainerrors.ErrVoterRequired) {
		t.Fatalf("expected ErrVoterRequired, got %v", err)
	}
}

func TestGetReviewLazilyFinalizesExpiredCycle(t *testing.T) {
	module := newTestModule(t)
	startedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	module.Store.SetNow(func() time.Time { return startedAt })

	review, err := module.Handler.StartReviewHandler(context.Background(), "post-1", "")
	if err != nil {
		t.Fatalf("start review failed: %v", err)
	}
	loser, err := module.Handler.SubmitRevisionHandler(context.Background(), review.ReviewID, "author-1",
		httptransport.SubmitRevisionRequest{Title: "First", Body: testBody})
	if err != nil {
		t.Fatalf("submit first revision failed: %v", err)
	}
	module.Store.SetNow(func() time.Time { return startedAt.Add(time.Hour) })
	winner, err := module.Handler.SubmitRevisionHandler(context.Background(), review.ReviewID, "author-2",
		httptransport.SubmitRevisionRequest{Title: "Second", Body: testBody})
	if err != nil {
		t.Fatalf("submit second revision failed: %v", err)
	}

	if _, err := module.Handler.CastVoteHandler(context.Background(), winner.RevisionID, "voter-1"); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if _, err := module.Handler.CastVoteHandler(context.Background(), winner.RevisionID, "voter-2"); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if _, err := module.Handler.CastVoteHandler(context.Background(), loser.RevisionID, "voter-3"); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	module.Store.SetNow(func() time.Time { return startedAt.Add(73 * time.Hour) })
	got, err := module.Handler.GetReviewHandler(context.Background(), review.ReviewID)
	if err != nil {
		t.Fatalf("get review failed: %v", err)
	}
	if got.Status != string(entities.ReviewStatusCompleted) {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if got.WinningRevisionID != winner.RevisionID {
		t.Fatalf("expected winner %s, got %s", winner.RevisionID, got.WinningRevisionID)
	}
	if got.CompletedAt == nil {
		t.Fatalf("expected completed_at to be set")
	}
}

func TestTieBreaksOnEarlierSubmission(t *testing.T) {
	module := newTestModule(t)
	startedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	module.Store.SetNow(func() time.Time { return startedAt })

	review, err := module.Handler.StartReviewHandler(context.Background(), "post-1", "")
	if err != nil {
		t.Fatalf("start review failed: %v", err)
	}
	first, err := module.Handler.SubmitRevisionHandler(context.Background(), review.ReviewID, "author-1",
		httptransport.SubmitRevisionRequest{Title: "First", Body: testBody})
	if err != nil {
		t.Fatalf("submit first revision failed: %v", err)
	}
	module.Store.SetNow(func() time.Time { return startedAt.Add(time.Minute) })
	second, err := module.Handler.SubmitRevisionHandler(context.Background(), review.ReviewID, "author-2",
		httptransport.SubmitRevisionRequest{Title: "Second", Body: testBody})
	if err != nil {
		t.Fatalf("submit second revision failed: %v", err)
	}

	if _, err := module.Handler.CastVoteHandler(context.Background(), first.RevisionID, "voter-1"); err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if _, err := module.Handler.CastVoteHandler(context.Background(), second.RevisionID, "voter-2"); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	module.Store.SetNow(func() time.Time { return startedAt.Add(80 * time.Hour) })
	got, err := module.Handler.GetReviewHandler(context.Background(), review.ReviewID)
	if err != nil {
		t.Fatalf("get review failed: %v", err)
	}
	if got.WinningRevisionID != first.RevisionID {
		t.Fatalf("expected earlier revision %s to win tie, got %s", first.RevisionID, got.WinningRevisionID)
	}
}

func TestReviewWithoutRevisionsIsCancelled(t *testing.T) {
	module := newTestModule(t)
	startedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	module.Store.SetNow(func() time.Time { return startedAt })

	review, err := module.Handler.StartReviewHandler(context.Background(), "post-1", "")
	if err != nil {
		t.Fatalf("start review failed: %v", err)
	}

	module.Store.SetNow(func() time.Time { return startedAt.Add(73 * time.Hour) })
	got, err := module.Handler.GetReviewHandler(context.Background(), review.ReviewID)
	if err != nil {
		t.Fatalf("get review failed: %v", err)
	}
	if got.Status != string(entities.ReviewStatusCancelled) {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
	if got.WinningRevisionID != "" {
		t.Fatalf("expected no winner, got %s", got.WinningRevisionID)
	}
}

type logEventCapture struct {
	mu     sync.Mutex
	events []string
}

func (c *logEventCapture) Enabled(context.Context, slog.Level) bool { return true }

func (c *logEventCapture) Handle(_ context.Context, record slog.Record) error {
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == "event" {
			c.mu.Lock()
			c.events = append(c.events, attr.Value.String())
			c.mu.Unlock()
		}
		return true
	})
	return nil
}

func (c *logEventCapture) WithAttrs([]slog.Attr) slog.Handler { return c }

func (c *logEventCapture) WithGroup(string) slog.Handler { return c }

func (c *logEventCapture) count(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, item := range c.events {
		if item == event {
			total++
		}
	}
	return total
}

func TestFinalizeLogsTransitionOnce(t *testing.T) {
	capture := &logEventCapture{}
	module := reviewengine.NewInMemoryModule(&capturePublisher{}, slog.New(capture))
	module.Store.SetPost(ports.PostProjection{PostID: "post-1", Status: "draft"})
	startedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	module.Store.SetNow(func() time.Time { return startedAt })

	review, err := module.Handler.StartReviewHandler(context.Background(), "post-1", "")
	if err != nil {
		t.Fatalf("start review failed: %v", err)
	}
	module.Store.SetNow(func() time.Time { return startedAt.Add(73 * time.Hour) })

	if _, err := module.Finalizer.Execute(context.Background(), review.ReviewID); err != nil {
		t.Fatalf("first finalize failed: %v", err)
	}
	if _, err := module.Finalizer.Execute(context.Background(), review.ReviewID); err != nil {
		t.Fatalf("second finalize failed: %v", err)
	}

	if got := capture.count("review_finalized"); got != 1 {
		t.Fatalf("expected one review_finalized log, got %d", got)
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	module := newTestModule(t)
	startedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	module.Store.SetNow(func() time.Time { return startedAt })

	review, err := module.Handler.StartReviewHandler(context.Background(), "post-1", "")
	if err != nil {
		t.Fatalf("start review failed: %v", err)
	}
	module.Store.SetNow(func() time.Time { return startedAt.Add(73 * time.Hour) })

	first, err := module.Finalizer.Execute(context.Background(), review.ReviewID)
	if err != nil {
		t.Fatalf("first finalize failed: %v", err)
	}
	second, err := module.Finalizer.Execute(context.Background(), review.ReviewID)
	if err != nil {
		t.Fatalf("second finalize failed: %v", err)
	}
	if first.Status != second.Status || !first.CompletedAt.Equal(*second.CompletedAt) {
		t.Fatalf("expected identical terminal review, got %+v and %+v", first, second)
	}
}

func TestDeadlineSweeperFinalizesExpiredReviews(t *testing.T) {
	module := newTestModule(t)
	startedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	module.Store.SetNow(func() time.Time { return startedAt })

	review, err := module.Handler.StartReviewHandler(context.Background(), "post-1", "")
	if err != nil {
		t.Fatalf("start review failed: %v", err)
	}
	module.Store.SetNow(func() time.Time { return startedAt.Add(73 * time.Hour) })

	if err := module.Sweeper.RunOnce(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	got, err := module.Store.GetReview(context.Background(), review.ReviewID)
	if err != nil {
		t.Fatalf("get review failed: %v", err)
	}
	if !got.Terminal() {
		t.Fatalf("expected terminal review after sweep, got %s", got.Status)
	}
}

func TestOutboxRelayPublishesPendingEvents(t *testing.T) {
	publisher := &capturePublisher{}
	module := reviewengine.NewInMemoryModule(publisher, nil)
	module.Store.SetPost(ports.PostProjection{PostID: "post-1", Status: "draft"})

	if _, err := module.Handler.StartReviewHandler(context.Background(), "post-1", ""); err != nil {
		t.Fatalf("start review failed: %v", err)
	}
	if err := module.Relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay failed: %v", err)
	}

	types := publisher.types()
	if len(types) != 1 || types[0] != "review.started" {
		t.Fatalf("expected one review.started event, got %v", types)
	}

	// A second cycle finds nothing pending.
	if err := module.Relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("second relay cycle failed: %v", err)
	}
	if got := publisher.types(); len(got) != 1 {
		t.Fatalf("expected no republish, got %v", got)
	}
}

func TestListRevisionsUnknownReviewFails(t *testing.T) {
	module := newTestModule(t)
	_, err := module.Handler.ListRevisionsHandler(context.Background(), "missing-review")
	if !errors.Is(err, domainerrors.ErrReviewNotFound) {
		t.Fatalf("expected ErrReviewNotFound, got %v", err)
	}
}

func TestReviewHistoryIsNewestFirst(t *testing.T) {
	module := newTestModule(t)
	startedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	module.Store.SetNow(func() time.Time { return startedAt })

	first, err := module.Handler.StartReviewHandler(context.Background(), "post-1", "")
	if err != nil {
		t.Fatalf("start review failed: %v", err)
	}
	module.Store.SetNow(func() time.Time { return startedAt.Add(73 * time.Hour) })
	if _, err := module.Finalizer.Execute(context.Background(), first.ReviewID); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	module.Store.SetNow(func() time.Time { return startedAt.Add(74 * time.Hour) })
	second, err := module.Handler.StartReviewHandler(context.Background(), "post-1", "")
	if err != nil {
		t.Fatalf("second start failed: %v", err)
	}

	history, err := module.Handler.ListReviewsByPostHandler(context.Background(), "post-1")
	if err != nil {
		t.Fatalf("list reviews failed: %v", err)
	}
	if len(history.Items) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(history.Items))
	}
	if history.Items[0].ReviewID != second.ReviewID {
		t.Fatalf("expected newest review first, got %s", history.Items[0].ReviewID)
	}
}
