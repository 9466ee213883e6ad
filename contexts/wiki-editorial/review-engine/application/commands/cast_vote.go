package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "quill/contexts/wiki-editorial/review-engine/application"
	"quill/contexts/wiki-editorial/review-engine/domain/entities"
	domainerrors "quill/contexts/wiki-editorial/review-engine/domain/errors"
	"quill/contexts/wiki-editorial/review-engine/ports"
)

// CastVoteCommand records one voter's endorsement of one revision. Unlike
// review starts and revision submissions, voting requires a real identity.
type CastVoteCommand struct {
	RevisionID  string
	VoterUserID string
}

// CastVoteUseCase enforces vote uniqueness per (revision, voter) and keeps the
// revision's vote counter equal to the number of distinct voters. The
// existence check, the vote insert and the counter increment run as one
// critical section under a per-revision-per-voter lock; votes on unrelated
// revisions never contend.
type CastVoteUseCase struct {
	Revisions ports.RevisionRepository
	Votes     ports.VoteRepository
	Locks     ports.LockCoordinator
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	LockWait  time.Duration
	LockLease time.Duration
	Logger    *slog.Logger
}

func (uc CastVoteUseCase) Execute(ctx context.Context, cmd CastVoteCommand) (entities.Vote, error) {
	logger := application.ResolveLogger(uc.Logger)
	revisionID := strings.TrimSpace(cmd.RevisionID)
	voterID := strings.TrimSpace(cmd.VoterUserID)
	if voterID == "" {
		return entities.Vote{}, domainerrors.ErrVoterRequired
	}
	if revisionID == "" {
		return entities.Vote{}, domainerrors.ErrRevisionNotFound
	}

	if _, err := uc.Revisions.GetRevision(ctx, revisionID); err != nil {
		return entities.Vote{}, err
	}

	var vote entities.Vote
	err := uc.Locks.WithLock(
		ctx,
		voteLockPrefix+revisionID+":"+voterID,
		resolveLockWait(uc.LockWait),
		resolveLockLease(uc.LockLease),
		func(ctx context.Context) error {
			exists, err := uc.Votes.VoteExists(ctx, revisionID, voterID)
			if err != nil {
				return err
			}
			if exists {
				return domainerrors.ErrAlreadyVoted
			}

			voteID, err := uc.IDGen.NewID(ctx)
			if err != nil {
				return err
			}
			now := uc.now()
			vote = entities.Vote{
				VoteID:      voteID,
				RevisionID:  revisionID,
				VoterUserID: voterID,
				VotedAt:     now,
			}
			if err := uc.Votes.SaveVote(ctx, vote); err != nil {
				return err
			}
			if err := uc.Revisions.IncrementVoteCount(ctx, revisionID); err != nil {
				return err
			}
			return uc.appendVoteEvent(ctx, vote, now)
		},
	)
	if err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyVoted) {
			logger.Warn("duplicate vote rejected",
				"event", "vote_duplicate_rejected",
				"module", "wiki-editorial/review-engine",
				"layer", "application",
				"revision_id", revisionID,
				"voter_user_id", voterID,
			)
		}
		return entities.Vote{}, err
	}

	logger.Info("vote cast",
		"event", "vote_cast",
		"module", "wiki-editorial/review-engine",
		"layer", "application",
		"vote_id", vote.VoteID,
		"revision_id", vote.RevisionID,
		"voter_user_id", vote.VoterUserID,
	)
	return vote, nil
}

func (uc CastVoteUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (uc CastVoteUseCase) appendVoteEvent(ctx context.Context, vote entities.Vote, occurredAt time.Time) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data := map[string]any{
		"vote_id":       vote.VoteID,
		"revision_id":   vote.RevisionID,
		"voter_user_id": vote.VoterUserID,
		"voted_at":      vote.VotedAt.Format(time.RFC3339),
		"occurred_at":   occurredAt.Format(time.RFC3339),
	}
	envelope, err := newReviewEnvelope(eventID, "vote.cast", "revision_id", vote.RevisionID, occurredAt, data)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}
