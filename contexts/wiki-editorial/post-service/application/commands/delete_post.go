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

type DeletePostCommand struct {
	PostID string
}

// DeletePostUseCase soft-deletes a post. The row stays in place so historical
// reviews keep resolving; reads treat the post as absent.
type DeletePostUseCase struct {
	Posts  ports.PostRepository
	Clock  ports.Clock
	Logger *slog.Logger
}

func (uc DeletePostUseCase) Execute(ctx context.Context, cmd DeletePostCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	postID := strings.TrimSpace(cmd.PostID)
	if postID == "" {
		return domainerrors.ErrPostNotFound
	}
	post, err := uc.Posts.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.Deleted() {
		return domainerrors.ErrPostNotFound
	}
	post.Status = entities.PostStatusDeleted
	post.UpdatedAt = uc.now()
	if err := uc.Posts.SavePost(ctx, post); err != nil {
		return err
	}

	logger.Info("post deleted",
		"event", "post_deleted",
		"module", "wiki-editorial/post-service",
		"layer", "application",
		"post_id", postID,
	)
	return nil
}

func (uc DeletePostUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
