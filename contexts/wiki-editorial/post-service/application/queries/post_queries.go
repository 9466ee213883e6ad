package queries

import (
	"context"
	"strings"

	"quill/contexts/wiki-editorial/post-service/domain/entities"
	domainerrors "quill/contexts/wiki-editorial/post-service/domain/errors"
	"quill/contexts/wiki-editorial/post-service/ports"
)

type PostQueries struct {
	Posts ports.PostRepository
}

// GetPost returns the post regardless of status. Soft-deleted posts stay
// readable by direct ID; only listings and the review workflow exclude them.
func (q PostQueries) GetPost(ctx context.Context, postID string) (entities.Post, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return entities.Post{}, domainerrors.ErrPostNotFound
	}
	return q.Posts.GetPost(ctx, postID)
}

func (q PostQueries) ListPosts(ctx context.Context) ([]entities.Post, error) {
	return q.Posts.ListPosts(ctx, false)
}
