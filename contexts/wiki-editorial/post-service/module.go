package postservice

import (
	"log/slog"

	httpadapter "quill/contexts/wiki-editorial/post-service/adapters/http"
	"quill/contexts/wiki-editorial/post-service/adapters/memory"
	"quill/contexts/wiki-editorial/post-service/application/commands"
	"quill/contexts/wiki-editorial/post-service/application/queries"
	"quill/contexts/wiki-editorial/post-service/application/workers"
	"quill/contexts/wiki-editorial/post-service/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Consumer workers.ReviewOutcomeConsumer
	Store    *memory.Store
}

type Dependencies struct {
	Posts      ports.PostRepository
	Dedup      ports.EventDedupStore
	Subscriber ports.EventSubscriber
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	createPost := commands.CreatePostUseCase{
		Posts:  deps.Posts,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Logger: deps.Logger,
	}
	deletePost := commands.DeletePostUseCase{
		Posts:  deps.Posts,
		Clock:  deps.Clock,
		Logger: deps.Logger,
	}
	applyOutcome := commands.ApplyReviewOutcomeUseCase{
		Posts:  deps.Posts,
		Clock:  deps.Clock,
		Logger: deps.Logger,
	}
	postQueries := queries.PostQueries{
		Posts: deps.Posts,
	}
	return Module{
		Handler: httpadapter.Handler{
			CreatePost: createPost,
			DeletePost: deletePost,
			Queries:    postQueries,
			Logger:     deps.Logger,
		},
		Consumer: workers.ReviewOutcomeConsumer{
			Subscriber:   deps.Subscriber,
			Dedup:        deps.Dedup,
			ApplyOutcome: applyOutcome,
			Clock:        deps.Clock,
			Logger:       deps.Logger,
		},
	}
}

// NewInMemoryModule wires the module against process-local storage, for tests
// and local development.
func NewInMemoryModule(subscriber ports.EventSubscriber, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Posts:      store,
		Dedup:      store,
		Subscriber: subscriber,
		Clock:      store,
		IDGen:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}
