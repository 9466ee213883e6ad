package httpserver

import (
	"encoding/json"
	"net/http"

	posthttp "quill/contexts/wiki-editorial/post-service/transport/http"
)

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req posthttp.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writePostError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	userID := r.Header.Get("X-User-Id")
	resp, err := s.posts.Handler.CreatePostHandler(r.Context(), userID, req)
	if err != nil {
		writePostDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	resp, err := s.posts.Handler.ListPostsHandler(r.Context())
	if err != nil {
		writePostDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	postID := r.PathValue("post_id")
	resp, err := s.posts.Handler.GetPostHandler(r.Context(), postID)
	if err != nil {
		writePostDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	postID := r.PathValue("post_id")
	if err := s.posts.Handler.DeletePostHandler(r.Context(), postID); err != nil {
		writePostDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
