package entities

import "time"

type ReviewStatus string

const (
	ReviewStatusInReview  ReviewStatus = "in_review"
	ReviewStatusCompleted ReviewStatus = "completed"
	ReviewStatusCancelled ReviewStatus = "cancelled"
)

// ReviewWindow is the fixed length of a community review cycle.
const ReviewWindow = 72 * time.Hour

// Review is one time-boxed review cycle for exactly one post. At most one
// review per post may be in_review at any instant; terminal reviews are
// immutable and retained for history even after the post is deleted.
type Review struct {
	ReviewID          string
	PostID            string
	StartedByUserID   string // empty when the review was started anonymously
	StartedAt         time.Time
	Deadline          time.Time
	Status            ReviewStatus
	WinningRevisionID string // set only when Status is completed
	CompletedAt       *time.Time
}

func (r Review) Terminal() bool {
	return r.Status == ReviewStatusCompleted || r.Status == ReviewStatusCancelled
}

// Expired reports whether the deadline has passed at the given instant.
// The deadline itself counts as expired.
func (r Review) Expired(now time.Time) bool {
	return !now.Before(r.Deadline)
}
