package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"quill/contexts/wiki-editorial/review-engine/domain/entities"
	domainerrors "quill/contexts/wiki-editorial/review-engine/domain/errors"
	"quill/contexts/wiki-editorial/review-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store backs every review-engine port with process-local maps. It doubles as
// Clock and IDGenerator so in-memory wiring needs a single dependency.
type Store struct {
	mu sync.RWMutex

	reviews   map[string]entities.Review
	revisions map[string]entities.Revision
	votes     map[string]entities.Vote
	posts     map[string]ports.PostProjection
	outbox    map[string]outboxRecord

	nowFn func() time.Time
}

func NewStore() *Store {
	return &Store{
		reviews:   make(map[string]entities.Review),
		revisions: make(map[string]entities.Revision),
		votes:     make(map[string]entities.Vote),
		posts:     make(map[string]ports.PostProjection),
		outbox:    make(map[string]outboxRecord),
	}
}

// SetNow pins the store clock for deterministic deadline tests. Passing nil
// restores the wall clock.
func (s *Store) SetNow(nowFn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = nowFn
}

func (s *Store) SetPost(post ports.PostProjection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[strings.TrimSpace(post.PostID)] = ports.PostProjection{
		PostID: strings.TrimSpace(post.PostID),
		Status: strings.TrimSpace(post.Status),
	}
}

func (s *Store) SeedReview(review entities.Review) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[strings.TrimSpace(review.ReviewID)] = review
}

func (s *Store) SeedRevision(revision entities.Revision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revisions[strings.TrimSpace(revision.RevisionID)] = revision
}

func (s *Store) SeedVote(vote entities.Vote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes[strings.TrimSpace(vote.VoteID)] = vote
}

func (s *Store) SaveReview(_ context.Context, review entities.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[strings.TrimSpace(review.ReviewID)] = review
	return nil
}

func (s *Store) GetReview(_ context.Context, reviewID string) (entities.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	review, ok := s.reviews[strings.TrimSpace(reviewID)]
	if !ok {
		return entities.Review{}, domainerrors.ErrReviewNotFound
	}
	return review, nil
}

func (s *Store) GetActiveReviewByPost(_ context.Context, postID string) (entities.Review, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	postID = strings.TrimSpace(postID)
	for _, review := range s.reviews {
		if review.PostID != postID {
			continue
		}
		if review.Status != entities.ReviewStatusInReview {
			continue
		}
		return review, true, nil
	}
	return entities.Review{}, false, nil
}

func (s *Store) ListReviewsByPost(_ context.Context, postID string) ([]entities.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	postID = strings.TrimSpace(postID)
	items := make([]entities.Review, 0)
	for _, review := range s.reviews {
		if review.PostID == postID {
			items = append(items, review)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].StartedAt.Equal(items[j].StartedAt) {
			return items[i].StartedAt.After(items[j].StartedAt)
		}
		return items[i].ReviewID < items[j].ReviewID
	})
	return items, nil
}

func (s *Store) ListExpiredInReview(_ context.Context, now time.Time, limit int) ([]entities.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]entities.Review, 0)
	for _, review := range s.reviews {
		if review.Status != entities.ReviewStatusInReview {
			continue
		}
		if !review.Expired(now) {
			continue
		}
		items = append(items, review)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Deadline.Before(items[j].Deadline)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) SaveRevision(_ context.Context, revision entities.Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revisions[strings.TrimSpace(revision.RevisionID)] = revision
	return nil
}

func (s *Store) GetRevision(_ context.Context, revisionID string) (entities.Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	revision, ok := s.revisions[strings.TrimSpace(revisionID)]
	if !ok {
		return entities.Revision{}, domainerrors.ErrRevisionNotFound
	}
	return revision, nil
}

func (s *Store) ListRevisionsByReview(_ context.Context, reviewID string) ([]entities.Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reviewID = strings.TrimSpace(reviewID)
	items := make([]entities.Revision, 0)
	for _, revision := range s.revisions {
		if revision.ReviewID == reviewID {
			items = append(items, revision)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].SubmittedAt.Equal(items[j].SubmittedAt) {
			return items[i].SubmittedAt.Before(items[j].SubmittedAt)
		}
		return items[i].RevisionID < items[j].RevisionID
	})
	return items, nil
}

func (s *Store) IncrementVoteCount(_ context.Context, revisionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(revisionID)
	revision, ok := s.revisions[key]
	if !ok {
		return domainerrors.ErrRevisionNotFound
	}
	revision.VoteCount++
	s.revisions[key] = revision
	return nil
}

func (s *Store) SaveVote(_ context.Context, vote entities.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.votes {
		if existing.RevisionID == vote.RevisionID && existing.VoterUserID == vote.VoterUserID {
			return domainerrors.ErrAlreadyVoted
		}
	}
	s.votes[strings.TrimSpace(vote.VoteID)] = vote
	return nil
}

func (s *Store) VoteExists(_ context.Context, revisionID string, voterUserID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	revisionID = strings.TrimSpace(revisionID)
	voterUserID = strings.TrimSpace(voterUserID)
	for _, vote := range s.votes {
		if vote.RevisionID == revisionID && vote.VoterUserID == voterUserID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) GetPost(_ context.Context, postID string) (ports.PostProjection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	post, ok := s.posts[strings.TrimSpace(postID)]
	if !ok {
		return ports.PostProjection{}, domainerrors.ErrPostNotFound
	}
	return post, nil
}

func (s *Store) SetPostStatus(_ context.Context, postID string, status string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.TrimSpace(postID)
	post, ok := s.posts[key]
	if !ok {
		return domainerrors.ErrPostNotFound
	}
	post.Status = strings.TrimSpace(status)
	s.posts[key] = post
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	nowFn := s.nowFn
	s.mu.RUnlock()
	if nowFn != nil {
		return nowFn().UTC()
	}
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
