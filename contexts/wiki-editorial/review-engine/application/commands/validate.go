package commands

import (
	"strings"

	"quill/contexts/wiki-editorial/review-engine/domain/entities"
	domainerrors "quill/contexts/wiki-editorial/review-engine/domain/errors"
)

// Revision content carries the same bounds as post content so a winning
// revision can replace the post verbatim.
const (
	maxTitleLength   = 200
	minBodyLength    = 10
	maxBodyLength    = 50000
	maxCommentLength = 500
)

func validateRevisionContent(title string, body string) error {
	if strings.TrimSpace(title) == "" {
		return domainerrors.ErrTitleRequired
	}
	if len(title) > maxTitleLength {
		return domainerrors.ErrTitleTooLong
	}
	if len(strings.TrimSpace(body)) < minBodyLength {
		return domainerrors.ErrBodyTooShort
	}
	if len(body) > maxBodyLength {
		return domainerrors.ErrBodyTooLong
	}
	return nil
}

func validateComments(comments []entities.ReviewComment) error {
	for _, comment := range comments {
		if comment.LineNumber < 1 {
			return domainerrors.ErrInvalidCommentLine
		}
		if strings.TrimSpace(comment.Text) == "" || len(comment.Text) > maxCommentLength {
			return domainerrors.ErrInvalidCommentText
		}
		switch comment.Type {
		case entities.CommentTypeInaccuracy, entities.CommentTypeNeedsImprovement:
		default:
			return domainerrors.ErrInvalidCommentType
		}
	}
	return nil
}
