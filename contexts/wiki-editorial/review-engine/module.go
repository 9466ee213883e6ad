package reviewengine

import (
	"log/slog"
	"time"

	httpadapter "quill/contexts/wiki-editorial/review-engine/adapters/http"
	"quill/contexts/wiki-editorial/review-engine/adapters/memory"
	"quill/contexts/wiki-editorial/review-engine/application/commands"
	"quill/contexts/wiki-editorial/review-engine/application/queries"
	"quill/contexts/wiki-editorial/review-engine/application/workers"
	"quill/contexts/wiki-editorial/review-engine/ports"
)

type Module struct {
	Handler   httpadapter.Handler
	Sweeper   workers.DeadlineSweeper
	Relay     workers.OutboxRelay
	Finalizer commands.FinalizeReviewUseCase
	Store     *memory.Store
}

type Dependencies struct {
	Reviews      ports.ReviewRepository
	Revisions    ports.RevisionRepository
	Votes        ports.VoteRepository
	Posts        ports.PostDirectory
	Locks        ports.LockCoordinator
	Outbox       ports.OutboxWriter
	OutboxRepo   ports.OutboxRepository
	Publisher    ports.EventPublisher
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	ReviewWindow time.Duration
	LockWait     time.Duration
	LockLease    time.Duration
	Logger       *slog.Logger
}

func NewModule(deps Dependencies) Module {
	finalizer := commands.FinalizeReviewUseCase{
		Reviews:   deps.Reviews,
		Revisions: deps.Revisions,
		Locks:     deps.Locks,
		Outbox:    deps.Outbox,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		LockWait:  deps.LockWait,
		LockLease: deps.LockLease,
		Logger:    deps.Logger,
	}
	startReview := commands.StartReviewUseCase{
		Reviews:      deps.Reviews,
		Posts:        deps.Posts,
		Locks:        deps.Locks,
		Outbox:       deps.Outbox,
		Clock:        deps.Clock,
		IDGen:        deps.IDGen,
		ReviewWindow: deps.ReviewWindow,
		LockWait:     deps.LockWait,
		LockLease:    deps.LockLease,
		Logger:       deps.Logger,
	}
	submitRevision := commands.SubmitRevisionUseCase{
		Reviews:   deps.Reviews,
		Revisions: deps.Revisions,
		Outbox:    deps.Outbox,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	castVote := commands.CastVoteUseCase{
		Revisions: deps.Revisions,
		Votes:     deps.Votes,
		Locks:     deps.Locks,
		Outbox:    deps.Outbox,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		LockWait:  deps.LockWait,
		LockLease: deps.LockLease,
		Logger:    deps.Logger,
	}
	reviewQueries := queries.ReviewQueries{
		Reviews:   deps.Reviews,
		Revisions: deps.Revisions,
		Finalizer: finalizer,
		Clock:     deps.Clock,
		Logger:    deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			StartReview:    startReview,
			SubmitRevision: submitRevision,
			CastVote:       castVote,
			Queries:        reviewQueries,
			Logger:         deps.Logger,
		},
		Sweeper: workers.DeadlineSweeper{
			Reviews:   deps.Reviews,
			Finalizer: finalizer,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
		Relay: workers.OutboxRelay{
			Outbox:    deps.OutboxRepo,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
		Finalizer: finalizer,
	}
}

// NewInMemoryModule wires the module against process-local storage and an
// in-process lock coordinator, for tests and local development.
func NewInMemoryModule(publisher ports.EventPublisher, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Reviews:    store,
		Revisions:  store,
		Votes:      store,
		Posts:      store,
		Locks:      memory.NewLockCoordinator(),
		Outbox:     store,
		OutboxRepo: store,
		Publisher:  publisher,
		Clock:      store,
		IDGen:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}
