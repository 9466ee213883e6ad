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

const (
	maxTitleLength = 200
	minBodyLength  = 10
	maxBodyLength  = 50000
)

type CreatePostCommand struct {
	Title        string
	Body         string
	AuthorUserID string
}

type CreatePostUseCase struct {
	Posts  ports.PostRepository
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

func (uc CreatePostUseCase) Execute(ctx context.Context, cmd CreatePostCommand) (entities.Post, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := validateContent(cmd.Title, cmd.Body); err != nil {
		return entities.Post{}, err
	}

	postID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Post{}, err
	}
	now := uc.now()
	post := entities.Post{
		PostID:       postID,
		Title:        strings.TrimSpace(cmd.Title),
		Body:         strings.TrimSpace(cmd.Body),
		AuthorUserID: strings.TrimSpace(cmd.AuthorUserID),
		Status:       entities.PostStatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.Posts.SavePost(ctx, post); err != nil {
		return entities.Post{}, err
	}

	logger.Info("post created",
		"event", "post_created",
		"module", "wiki-editorial/post-service",
		"layer", "application",
		"post_id", post.PostID,
		"author_user_id", post.AuthorUserID,
	)
	return post, nil
}

func (uc CreatePostUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func validateContent(title string, body string) error {
	if strings.TrimSpace(title) == "" {
		return domainerrors.ErrTitleRequired
	}
	if len(title) > maxTitleLength {
		return domainerrors.ErrTitleTooLong
	}
	if len(body) < minBodyLength {
		return domainerrors.ErrBodyTooShort
	}
	if len(body) > maxBodyLength {
		return domainerrors.ErrBodyTooLong
	}
	return nil
}
