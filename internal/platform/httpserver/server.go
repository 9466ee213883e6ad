package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	postservice "quill/contexts/wiki-editorial/post-service"
	posterrors "quill/contexts/wiki-editorial/post-service/domain/errors"
	posthttp "quill/contexts/wiki-editorial/post-service/transport/http"
	reviewengine "quill/contexts/wiki-editorial/review-engine"
	reviewerrors "quill/contexts/wiki-editorial/review-engine/domain/errors"
	reviewhttp "quill/contexts/wiki-editorial/review-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "quill/internal/platform/httpserver/docs"
)

type Server struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	addr    string
	posts   postservice.Module
	reviews reviewengine.Module
}

func New(
	posts postservice.Module,
	reviews reviewengine.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		posts:   posts,
		reviews: reviews,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/posts", s.handleCreatePost)
	s.mux.HandleFunc("GET /v1/posts", s.handleListPosts)
	s.mux.HandleFunc("GET /v1/posts/{post_id}", s.handleGetPost)
	s.mux.HandleFunc("DELETE /v1/posts/{post_id}", s.handleDeletePost)

	s.mux.HandleFunc("POST /v1/posts/{post_id}/reviews", s.handleStartReview)
	s.mux.HandleFunc("GET /v1/posts/{post_id}/reviews", s.handleListReviews)
	s.mux.HandleFunc("GET /v1/reviews/{review_id}", s.handleGetReview)
	s.mux.HandleFunc("POST /v1/reviews/{review_id}/revisions", s.handleSubmitRevision)
	s.mux.HandleFunc("GET /v1/reviews/{review_id}/revisions", s.handleListRevisions)
	s.mux.HandleFunc("POST /v1/revisions/{revision_id}/votes", s.handleCastVote)
}

func (s *Server) handleStartReview(w http.ResponseWriter, r *http.Request) {
	// Starting a review does not require identity; X-User-Id is recorded
	// when present.
	postID := r.PathValue("post_id")
	userID := r.Header.Get("X-User-Id")

	resp, err := s.reviews.Handler.StartReviewHandler(r.Context(), postID, userID)
	if err != nil {
		writeReviewDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	postID := r.PathValue("post_id")
	resp, err := s.reviews.Handler.ListReviewsByPostHandler(r.Context(), postID)
	if err != nil {
		writeReviewDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	reviewID := r.PathValue("review_id")
	resp, err := s.reviews.Handler.GetReviewHandler(r.Context(), reviewID)
	if err != nil {
		writeReviewDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitRevision(w http.ResponseWriter, r *http.Request) {
	var req reviewhttp.SubmitRevisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeReviewError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	reviewID := r.PathValue("review_id")
	userID := r.Header.Get("X-User-Id")

	resp, err := s.reviews.Handler.SubmitRevisionHandler(r.Context(), reviewID, userID, req)
	if err != nil {
		writeReviewDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListRevisions(w http.ResponseWriter, r *http.Request) {
	reviewID := r.PathValue("review_id")
	resp, err := s.reviews.Handler.ListRevisionsHandler(r.Context(), reviewID)
	if err != nil {
		writeReviewDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeReviewError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	revisionID := r.PathValue("revision_id")
	resp, err := s.reviews.Handler.CastVoteHandler(r.Context(), revisionID, userID)
	if err != nil {
		writeReviewDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func writeReviewDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reviewerrors.ErrPostNotFound):
		writeReviewError(w, http.StatusNotFound, "post_not_found", err.Error())
	case errors.Is(err, reviewerrors.ErrReviewNotFound):
		writeReviewError(w, http.StatusNotFound, "review_not_found", err.Error())
	case errors.Is(err, reviewerrors.ErrRevisionNotFound):
		writeReviewError(w, http.StatusNotFound, "revision_not_found", err.Error())
	case errors.Is(err, reviewerrors.ErrReviewAlreadyActive):
		writeReviewError(w, http.StatusConflict, "review_already_active", err.Error())
	case errors.Is(err, reviewerrors.ErrReviewNotActive):
		writeReviewError(w, http.StatusConflict, "review_not_active", err.Error())
	case errors.Is(err, reviewerrors.ErrAlreadyVoted):
		writeReviewError(w, http.StatusConflict, "already_voted", err.Error())
	case errors.Is(err, reviewerrors.ErrPostNotReviewable):
		writeReviewError(w, http.StatusConflict, "post_not_reviewable", err.Error())
	case errors.Is(err, reviewerrors.ErrVoterRequired):
		writeReviewError(w, http.StatusUnauthorized, "voter_required", err.Error())
	case errors.Is(err, reviewerrors.ErrTitleRequired),
		errors.Is(err, reviewerrors.ErrTitleTooLong),
		errors.Is(err, reviewerrors.ErrBodyTooShort),
		errors.Is(err, reviewerrors.ErrBodyTooLong),
		errors.Is(err, reviewerrors.ErrInvalidCommentLine),
		errors.Is(err, reviewerrors.ErrInvalidCommentText),
		errors.Is(err, reviewerrors.ErrInvalidCommentType):
		writeReviewError(w, http.StatusUnprocessableEntity, "invalid_revision", err.Error())
	case errors.Is(err, reviewerrors.ErrLockTimeout):
		writeReviewError(w, http.StatusServiceUnavailable, "lock_timeout", err.Error())
	default:
		writeReviewError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writePostDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, posterrors.ErrPostNotFound):
		writePostError(w, http.StatusNotFound, "post_not_found", err.Error())
	case errors.Is(err, posterrors.ErrTitleRequired),
		errors.Is(err, posterrors.ErrTitleTooLong),
		errors.Is(err, posterrors.ErrBodyTooShort),
		errors.Is(err, posterrors.ErrBodyTooLong):
		writePostError(w, http.StatusUnprocessableEntity, "invalid_post", err.Error())
	case errors.Is(err, posterrors.ErrConflict):
		writePostError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writePostError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeReviewError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, reviewhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writePostError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, posthttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
