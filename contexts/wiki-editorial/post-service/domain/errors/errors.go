package errors

import "errors"

var (
	ErrPostNotFound  = errors.New("post not found")
	ErrTitleRequired = errors.New("title must not be blank")
	ErrTitleTooLong  = errors.New("title exceeds maximum length")
	ErrBodyTooShort  = errors.New("body is below minimum length")
	ErrBodyTooLong   = errors.New("body exceeds maximum length")
	ErrConflict      = errors.New("conflicting write detected")
)
