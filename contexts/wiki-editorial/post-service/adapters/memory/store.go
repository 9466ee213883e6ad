package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"quill/contexts/wiki-editorial/post-service/domain/entities"
	domainerrors "quill/contexts/wiki-editorial/post-service/domain/errors"

	"github.com/google/uuid"
)

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

// Store backs the post-service ports with process-local maps. It doubles as
// Clock, IDGenerator and EventDedupStore for in-memory wiring.
type Store struct {
	mu sync.RWMutex

	posts      map[string]entities.Post
	eventDedup map[string]dedupRecord

	nowFn func() time.Time
}

func NewStore() *Store {
	return &Store{
		posts:      make(map[string]entities.Post),
		eventDedup: make(map[string]dedupRecord),
	}
}

func (s *Store) SetNow(nowFn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = nowFn
}

func (s *Store) SeedPost(post entities.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[strings.TrimSpace(post.PostID)] = post
}

func (s *Store) SavePost(_ context.Context, post entities.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[strings.TrimSpace(post.PostID)] = post
	return nil
}

func (s *Store) GetPost(_ context.Context, postID string) (entities.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	post, ok := s.posts[strings.TrimSpace(postID)]
	if !ok {
		return entities.Post{}, domainerrors.ErrPostNotFound
	}
	return post, nil
}

func (s *Store) ListPosts(_ context.Context, includeDeleted bool) ([]entities.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Post, 0, len(s.posts))
	for _, post := range s.posts {
		if post.Deleted() && !includeDeleted {
			continue
		}
		items = append(items, post)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].PostID < items[j].PostID
	})
	return items, nil
}

func (s *Store) ReserveEvent(
	_ context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	existing, ok := s.eventDedup[key]
	if ok {
		if !existing.expiresAt.IsZero() && time.Now().UTC().After(existing.expiresAt.UTC()) {
			delete(s.eventDedup, key)
		} else {
			if existing.payloadHash != strings.TrimSpace(payloadHash) {
				return false, domainerrors.ErrConflict
			}
			return true, nil
		}
	}

	s.eventDedup[key] = dedupRecord{
		payloadHash: strings.TrimSpace(payloadHash),
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
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
