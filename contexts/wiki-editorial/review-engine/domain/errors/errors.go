package errors

import "errors"

var (
	ErrPostNotFound        = errors.New("post not found")
	ErrPostNotReviewable   = errors.New("post cannot be reviewed")
	ErrReviewNotFound      = errors.New("review not found")
	ErrReviewAlreadyActive = errors.New("post already has an active review")
	ErrReviewNotActive     = errors.New("review is not accepting revisions")
	ErrRevisionNotFound    = errors.New("revision not found")
	ErrAlreadyVoted        = errors.New("voter already voted for this revision")
	ErrVoterRequired       = errors.New("voter identity is required")

	ErrTitleRequired      = errors.New("title must not be blank")
	ErrTitleTooLong       = errors.New("title exceeds maximum length")
	ErrBodyTooShort       = errors.New("body is below minimum length")
	ErrBodyTooLong        = errors.New("body exceeds maximum length")
	ErrInvalidCommentLine = errors.New("comment line number must be positive")
	ErrInvalidCommentText = errors.New("comment text must be non-blank and within bounds")
	ErrInvalidCommentType = errors.New("comment type is not recognized")

	ErrLockTimeout = errors.New("lock acquisition timed out")
	ErrConflict    = errors.New("conflicting write detected")
)
