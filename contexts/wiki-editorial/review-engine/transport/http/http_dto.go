package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StartReviewRequest struct {
	PostID string `json:"post_id"`
}

type ReviewResponse struct {
	ReviewID          string     `json:"review_id"`
	PostID            string     `json:"post_id"`
	StartedByUserID   string     `json:"started_by_user_id,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	Deadline          time.Time  `json:"deadline"`
	Status            string     `json:"status"`
	WinningRevisionID string     `json:"winning_revision_id,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

type ReviewListResponse struct {
	Items []ReviewResponse `json:"items"`
}

type CommentPayload struct {
	LineNumber int    `json:"line_number"`
	Text       string `json:"text"`
	Type       string `json:"type"`
}

type SubmitRevisionRequest struct {
	Title    string           `json:"title"`
	Body     string           `json:"body"`
	Comments []CommentPayload `json:"comments,omitempty"`
}

type RevisionResponse struct {
	RevisionID   string           `json:"revision_id"`
	ReviewID     string           `json:"review_id"`
	Title        string           `json:"title"`
	Body         string           `json:"body"`
	AuthorUserID string           `json:"author_user_id,omitempty"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	VoteCount    int              `json:"vote_count"`
	Comments     []CommentPayload `json:"comments,omitempty"`
}

type RevisionListResponse struct {
	Items []RevisionResponse `json:"items"`
}

type VoteResponse struct {
	VoteID      string    `json:"vote_id"`
	RevisionID  string    `json:"revision_id"`
	VoterUserID string    `json:"voter_user_id"`
	VotedAt     time.Time `json:"voted_at"`
}
