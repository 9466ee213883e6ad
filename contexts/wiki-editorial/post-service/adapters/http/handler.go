package httpadapter

import (
	"context"
	"log/slog"

	"quill/contexts/wiki-editorial/post-service/application/commands"
	"quill/contexts/wiki-editorial/post-service/application/queries"
	"quill/contexts/wiki-editorial/post-service/domain/entities"
	httptransport "quill/contexts/wiki-editorial/post-service/transport/http"
)

type Handler struct {
	CreatePost commands.CreatePostUseCase
	DeletePost commands.DeletePostUseCase
	Queries    queries.PostQueries
	Logger     *slog.Logger
}

func (h Handler) CreatePostHandler(
	ctx context.Context,
	userID string,
	req httptransport.CreatePostRequest,
) (httptransport.PostResponse, error) {
	post, err := h.CreatePost.Execute(ctx, commands.CreatePostCommand{
		Title:        req.Title,
		Body:         req.Body,
		AuthorUserID: userID,
	})
	if err != nil {
		return httptransport.PostResponse{}, err
	}
	return toPostResponse(post), nil
}

func (h Handler) GetPostHandler(ctx context.Context, postID string) (httptransport.PostResponse, error) {
	post, err := h.Queries.GetPost(ctx, postID)
	if err != nil {
		return httptransport.PostResponse{}, err
	}
	return toPostResponse(post), nil
}

func (h Handler) ListPostsHandler(ctx context.Context) (httptransport.PostListResponse, error) {
	posts, err := h.Queries.ListPosts(ctx)
	if err != nil {
		return httptransport.PostListResponse{}, err
	}
	items := make([]httptransport.PostResponse, 0, len(posts))
	for _, post := range posts {
		items = append(items, toPostResponse(post))
	}
	return httptransport.PostListResponse{Items: items}, nil
}

func (h Handler) DeletePostHandler(ctx context.Context, postID string) error {
	return h.DeletePost.Execute(ctx, commands.DeletePostCommand{PostID: postID})
}

func toPostResponse(post entities.Post) httptransport.PostResponse {
	return httptransport.PostResponse{
		PostID:       post.PostID,
		Title:        post.Title,
		Body:         post.Body,
		AuthorUserID: post.AuthorUserID,
		Status:       string(post.Status),
		CreatedAt:    post.CreatedAt,
		UpdatedAt:    post.UpdatedAt,
	}
}
