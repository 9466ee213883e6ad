package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"quill/contexts/wiki-editorial/review-engine/domain/entities"
	domainerrors "quill/contexts/wiki-editorial/review-engine/domain/errors"
	"quill/contexts/wiki-editorial/review-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) SaveReview(ctx context.Context, review entities.Review) error {
	row := reviewModelFromEntity(review)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":              row.Status,
			"winning_revision_id": row.WinningRevisionID,
			"completed_at":        row.CompletedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("review_repo_save_review_failed", create.Error,
			"review_id", strings.TrimSpace(review.ReviewID),
			"post_id", strings.TrimSpace(review.PostID),
		)
	}
	return nil
}

func (r *Repository) GetReview(ctx context.Context, reviewID string) (entities.Review, error) {
	var row reviewModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(reviewID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Review{}, domainerrors.ErrReviewNotFound
		}
		return entities.Review{}, r.logError("review_repo_get_review_failed", err,
			"review_id", strings.TrimSpace(reviewID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetActiveReviewByPost(ctx context.Context, postID string) (entities.Review, bool, error) {
	var row reviewModel
	err := r.db.WithContext(ctx).
		Where("post_id = ?", strings.TrimSpace(postID)).
		Where("status = ?", string(entities.ReviewStatusInReview)).
		Order("started_at DESC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Review{}, false, nil
		}
		return entities.Review{}, false, r.logError("review_repo_get_active_review_failed", err,
			"post_id", strings.TrimSpace(postID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListReviewsByPost(ctx context.Context, postID string) ([]entities.Review, error) {
	var rows []reviewModel
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", strings.TrimSpace(postID)).
		Order("started_at DESC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("review_repo_list_reviews_by_post_failed", err,
			"post_id", strings.TrimSpace(postID),
		)
	}
	items := make([]entities.Review, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ListExpiredInReview(ctx context.Context, now time.Time, limit int) ([]entities.Review, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []reviewModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.ReviewStatusInReview)).
		Where("deadline <= ?", now.UTC()).
		Order("deadline ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("review_repo_list_expired_failed", err, "limit", limit)
	}
	items := make([]entities.Review, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) SaveRevision(ctx context.Context, revision entities.Revision) error {
	row, err := revisionModelFromEntity(revision)
	if err != nil {
		return r.logError("review_repo_encode_revision_failed", err,
			"revision_id", strings.TrimSpace(revision.RevisionID),
		)
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("review_repo_save_revision_failed", create.Error,
			"revision_id", strings.TrimSpace(revision.RevisionID),
			"review_id", strings.TrimSpace(revision.ReviewID),
		)
	}
	return nil
}

func (r *Repository) GetRevision(ctx context.Context, revisionID string) (entities.Revision, error) {
	var row revisionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(revisionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Revision{}, domainerrors.ErrRevisionNotFound
		}
		return entities.Revision{}, r.logError("review_repo_get_revision_failed", err,
			"revision_id", strings.TrimSpace(revisionID),
		)
	}
	return row.toEntity()
}

func (r *Repository) ListRevisionsByReview(ctx context.Context, reviewID string) ([]entities.Revision, error) {
	var rows []revisionModel
	if err := r.db.WithContext(ctx).
		Where("review_id = ?", strings.TrimSpace(reviewID)).
		Order("submitted_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("review_repo_list_revisions_failed", err,
			"review_id", strings.TrimSpace(reviewID),
		)
	}
	items := make([]entities.Revision, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, r.logError("review_repo_decode_revision_failed", err, "revision_id", row.ID)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) IncrementVoteCount(ctx context.Context, revisionID string) error {
	result := r.db.WithContext(ctx).
		Model(&revisionModel{}).
		Where("id = ?", strings.TrimSpace(revisionID)).
		UpdateColumn("vote_count", gorm.Expr("vote_count + 1"))
	if result.Error != nil {
		return r.logError("review_repo_increment_vote_count_failed", result.Error,
			"revision_id", strings.TrimSpace(revisionID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRevisionNotFound
	}
	return nil
}

func (r *Repository) SaveVote(ctx context.Context, vote entities.Vote) error {
	row := voteModelFromEntity(vote)
	create := r.db.WithContext(ctx).Create(&row)
	if create.Error != nil {
		// The (revision_id, voter_user_id) unique index backs the one-vote
		// rule even when two writers slip past the lock.
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrAlreadyVoted
		}
		return r.logError("review_repo_save_vote_failed", create.Error,
			"vote_id", strings.TrimSpace(vote.VoteID),
			"revision_id", strings.TrimSpace(vote.RevisionID),
		)
	}
	return nil
}

func (r *Repository) VoteExists(ctx context.Context, revisionID string, voterUserID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Where("revision_id = ?", strings.TrimSpace(revisionID)).
		Where("voter_user_id = ?", strings.TrimSpace(voterUserID)).
		Count(&count).
		Error
	if err != nil {
		return false, r.logError("review_repo_vote_exists_failed", err,
			"revision_id", strings.TrimSpace(revisionID),
			"voter_user_id", strings.TrimSpace(voterUserID),
		)
	}
	return count > 0, nil
}

func (r *Repository) GetPost(ctx context.Context, postID string) (ports.PostProjection, error) {
	var row postProjectionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(postID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.PostProjection{}, domainerrors.ErrPostNotFound
		}
		return ports.PostProjection{}, r.logError("review_repo_get_post_failed", err,
			"post_id", strings.TrimSpace(postID),
		)
	}
	return ports.PostProjection{
		PostID: row.ID,
		Status: row.Status,
	}, nil
}

func (r *Repository) SetPostStatus(ctx context.Context, postID string, status string, updatedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&postProjectionModel{}).
		Where("id = ?", strings.TrimSpace(postID)).
		Updates(map[string]any{
			"status":     strings.TrimSpace(status),
			"updated_at": updatedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("review_repo_set_post_status_failed", result.Error,
			"post_id", strings.TrimSpace(postID),
			"status", strings.TrimSpace(status),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrPostNotFound
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("review_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("review_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("review_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("review_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("review_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "wiki-editorial/review-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("review repository operation failed", fields...)
	return err
}

type reviewModel struct {
	ID                string     `gorm:"column:id;primaryKey"`
	PostID            string     `gorm:"column:post_id"`
	StartedByUserID   string     `gorm:"column:started_by_user_id"`
	StartedAt         time.Time  `gorm:"column:started_at"`
	Deadline          time.Time  `gorm:"column:deadline"`
	Status            string     `gorm:"column:status"`
	WinningRevisionID string     `gorm:"column:winning_revision_id"`
	CompletedAt       *time.Time `gorm:"column:completed_at"`
}

func (reviewModel) TableName() string {
	return "reviews"
}

func reviewModelFromEntity(review entities.Review) reviewModel {
	return reviewModel{
		ID:                strings.TrimSpace(review.ReviewID),
		PostID:            strings.TrimSpace(review.PostID),
		StartedByUserID:   strings.TrimSpace(review.StartedByUserID),
		StartedAt:         review.StartedAt.UTC(),
		Deadline:          review.Deadline.UTC(),
		Status:            string(review.Status),
		WinningRevisionID: strings.TrimSpace(review.WinningRevisionID),
		CompletedAt:       normalizeOptionalTime(review.CompletedAt),
	}
}

func (m reviewModel) toEntity() entities.Review {
	return entities.Review{
		ReviewID:          m.ID,
		PostID:            m.PostID,
		StartedByUserID:   m.StartedByUserID,
		StartedAt:         m.StartedAt.UTC(),
		Deadline:          m.Deadline.UTC(),
		Status:            entities.ReviewStatus(m.Status),
		WinningRevisionID: m.WinningRevisionID,
		CompletedAt:       normalizeOptionalTime(m.CompletedAt),
	}
}

type revisionModel struct {
	ID           string    `gorm:"column:id;primaryKey"`
	ReviewID     string    `gorm:"column:review_id"`
	Title        string    `gorm:"column:title"`
	Body         string    `gorm:"column:body"`
	AuthorUserID string    `gorm:"column:author_user_id"`
	SubmittedAt  time.Time `gorm:"column:submitted_at"`
	VoteCount    int       `gorm:"column:vote_count"`
	Comments     []byte    `gorm:"column:comments;type:jsonb"`
}

func (revisionModel) TableName() string {
	return "revisions"
}

func revisionModelFromEntity(revision entities.Revision) (revisionModel, error) {
	comments, err := json.Marshal(revision.Comments)
	if err != nil {
		return revisionModel{}, err
	}
	return revisionModel{
		ID:           strings.TrimSpace(revision.RevisionID),
		ReviewID:     strings.TrimSpace(revision.ReviewID),
		Title:        revision.Title,
		Body:         revision.Body,
		AuthorUserID: strings.TrimSpace(revision.AuthorUserID),
		SubmittedAt:  revision.SubmittedAt.UTC(),
		VoteCount:    revision.VoteCount,
		Comments:     comments,
	}, nil
}

func (m revisionModel) toEntity() (entities.Revision, error) {
	var comments []entities.ReviewComment
	if len(m.Comments) > 0 {
		if err := json.Unmarshal(m.Comments, &comments); err != nil {
			return entities.Revision{}, err
		}
	}
	return entities.Revision{
		RevisionID:   m.ID,
		ReviewID:     m.ReviewID,
		Title:        m.Title,
		Body:         m.Body,
		AuthorUserID: m.AuthorUserID,
		SubmittedAt:  m.SubmittedAt.UTC(),
		VoteCount:    m.VoteCount,
		Comments:     comments,
	}, nil
}

type voteModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	RevisionID  string    `gorm:"column:revision_id;uniqueIndex:idx_votes_revision_voter"`
	VoterUserID string    `gorm:"column:voter_user_id;uniqueIndex:idx_votes_revision_voter"`
	VotedAt     time.Time `gorm:"column:voted_at"`
}

func (voteModel) TableName() string {
	return "revision_votes"
}

func voteModelFromEntity(vote entities.Vote) voteModel {
	row := voteModel{
		ID:          strings.TrimSpace(vote.VoteID),
		RevisionID:  strings.TrimSpace(vote.RevisionID),
		VoterUserID: strings.TrimSpace(vote.VoterUserID),
		VotedAt:     vote.VotedAt.UTC(),
	}
	if row.VotedAt.IsZero() {
		row.VotedAt = time.Now().UTC()
	}
	return row
}

type postProjectionModel struct {
	ID     string `gorm:"column:id;primaryKey"`
	Status string `gorm:"column:status"`
}

func (postProjectionModel) TableName() string {
	return "posts"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "review_outbox"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.ReviewRepository = (*Repository)(nil)
var _ ports.RevisionRepository = (*Repository)(nil)
var _ ports.VoteRepository = (*Repository)(nil)
var _ ports.PostDirectory = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
