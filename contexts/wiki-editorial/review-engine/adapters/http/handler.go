package httpadapter

import (
	"context"
	"log/slog"

	"quill/contexts/wiki-editorial/review-engine/application/commands"
	"quill/contexts/wiki-editorial/review-engine/application/queries"
	"quill/contexts/wiki-editorial/review-engine/domain/entities"
	httptransport "quill/contexts/wiki-editorial/review-engine/transport/http"
)

type Handler struct {
	StartReview    commands.StartReviewUseCase
	SubmitRevision commands.SubmitRevisionUseCase
	CastVote       commands.CastVoteUseCase
	Queries        queries.ReviewQueries
	Logger         *slog.Logger
}

func (h Handler) StartReviewHandler(
	ctx context.Context,
	postID string,
	userID string,
) (httptransport.ReviewResponse, error) {
	review, err := h.StartReview.Execute(ctx, commands.StartReviewCommand{
		PostID:            postID,
		RequestedByUserID: userID,
	})
	if err != nil {
		return httptransport.ReviewResponse{}, err
	}
	return toReviewResponse(review), nil
}

func (h Handler) GetReviewHandler(ctx context.Context, reviewID string) (httptransport.ReviewResponse, error) {
	review, err := h.Queries.GetReview(ctx, reviewID)
	if err != nil {
		return httptransport.ReviewResponse{}, err
	}
	return toReviewResponse(review), nil
}

func (h Handler) ListReviewsByPostHandler(ctx context.Context, postID string) (httptransport.ReviewListResponse, error) {
	reviews, err := h.Queries.ListReviewsByPost(ctx, postID)
	if err != nil {
		return httptransport.ReviewListResponse{}, err
	}
	items := make([]httptransport.ReviewResponse, 0, len(reviews))
	for _, review := range reviews {
		items = append(items, toReviewResponse(review))
	}
	return httptransport.ReviewListResponse{Items: items}, nil
}

func (h Handler) SubmitRevisionHandler(
	ctx context.Context,
	reviewID string,
	userID string,
	req httptransport.SubmitRevisionRequest,
) (httptransport.RevisionResponse, error) {
	comments := make([]entities.ReviewComment, 0, len(req.Comments))
	for _, comment := range req.Comments {
		comments = append(comments, entities.ReviewComment{
			LineNumber: comment.LineNumber,
			Text:       comment.Text,
			Type:       entities.CommentType(comment.Type),
		})
	}
	revision, err := h.SubmitRevision.Execute(ctx, commands.SubmitRevisionCommand{
		ReviewID:     reviewID,
		AuthorUserID: userID,
		Title:        req.Title,
		Body:         req.Body,
		Comments:     comments,
	})
	if err != nil {
		return httptransport.RevisionResponse{}, err
	}
	return toRevisionResponse(revision), nil
}

func (h Handler) ListRevisionsHandler(ctx context.Context, reviewID string) (httptransport.RevisionListResponse, error) {
	revisions, err := h.Queries.ListRevisionsByReview(ctx, reviewID)
	if err != nil {
		return httptransport.RevisionListResponse{}, err
	}
	items := make([]httptransport.RevisionResponse, 0, len(revisions))
	for _, revision := range revisions {
		items = append(items, toRevisionResponse(revision))
	}
	return httptransport.RevisionListResponse{Items: items}, nil
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	revisionID string,
	voterUserID string,
) (httptransport.VoteResponse, error) {
	vote, err := h.CastVote.Execute(ctx, commands.CastVoteCommand{
		RevisionID:  revisionID,
		VoterUserID: voterUserID,
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return httptransport.VoteResponse{
		VoteID:      vote.VoteID,
		RevisionID:  vote.RevisionID,
		VoterUserID: vote.VoterUserID,
		VotedAt:     vote.VotedAt,
	}, nil
}

func toReviewResponse(review entities.Review) httptransport.ReviewResponse {
	return httptransport.ReviewResponse{
		ReviewID:          review.ReviewID,
		PostID:            review.PostID,
		StartedByUserID:   review.StartedByUserID,
		StartedAt:         review.StartedAt,
		Deadline:          review.Deadline,
		Status:            string(review.Status),
		WinningRevisionID: review.WinningRevisionID,
		CompletedAt:       review.CompletedAt,
	}
}

func toRevisionResponse(revision entities.Revision) httptransport.RevisionResponse {
	comments := make([]httptransport.CommentPayload, 0, len(revision.Comments))
	for _, comment := range revision.Comments {
		comments = append(comments, httptransport.CommentPayload{
			LineNumber: comment.LineNumber,
			Text:       comment.Text,
			Type:       string(comment.Type),
		})
	}
	return httptransport.RevisionResponse{
		RevisionID:   revision.RevisionID,
		ReviewID:     revision.ReviewID,
		Title:        revision.Title,
		Body:         revision.Body,
		AuthorUserID: revision.AuthorUserID,
		SubmittedAt:  revision.SubmittedAt,
		VoteCount:    revision.VoteCount,
		Comments:     comments,
	}
}
