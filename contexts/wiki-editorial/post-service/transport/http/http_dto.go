package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreatePostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type PostResponse struct {
	PostID       string    `json:"post_id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	AuthorUserID string    `json:"author_user_id,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type PostListResponse struct {
	Items []PostResponse `json:"items"`
}
