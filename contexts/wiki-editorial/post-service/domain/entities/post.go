package entities

import "time"

type PostStatus string

const (
	PostStatusDraft    PostStatus = "draft"
	PostStatusInReview PostStatus = "in_review"
	PostStatusReviewed PostStatus = "reviewed"
	PostStatusDeleted  PostStatus = "deleted"
)

// Post is one wiki article. Deletion is a soft transition so review history
// referencing the post stays resolvable.
type Post struct {
	PostID       string
	Title        string
	Body         string
	AuthorUserID string
	Status       PostStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p Post) Deleted() bool {
	return p.Status == PostStatusDeleted
}
