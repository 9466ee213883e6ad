package entities

import "time"

type CommentType string

const (
	CommentTypeInaccuracy       CommentType = "inaccuracy"
	CommentTypeNeedsImprovement CommentType = "needs_improvement"
)

// ReviewComment is a line-anchored note attached to a revision at submission.
type ReviewComment struct {
	LineNumber int
	Text       string
	Type       CommentType
}

// Revision is a candidate replacement title/body for a post, scoped to one
// review. Immutable after creation except for vote-count increments.
type Revision struct {
	RevisionID   string
	ReviewID     string
	Title        string
	Body         string
	AuthorUserID string // empty when submitted anonymously
	SubmittedAt  time.Time
	VoteCount    int
	Comments     []ReviewComment
}
