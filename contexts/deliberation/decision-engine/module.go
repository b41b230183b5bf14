package decisionengine

import (
	"log/slog"

	httpadapter "quorum/contexts/deliberation/decision-engine/adapters/http"
	"quorum/contexts/deliberation/decision-engine/adapters/memory"
	"quorum/contexts/deliberation/decision-engine/application/commands"
	"quorum/contexts/deliberation/decision-engine/application/queries"
	"quorum/contexts/deliberation/decision-engine/application/workers"
	"quorum/contexts/deliberation/decision-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Sweeper workers.DeadlineSweeper
	Store   *memory.Store
}

type Dependencies struct {
	Decisions ports.DecisionRepository
	Ledger    ports.LedgerRepository
	Registry  ports.ParticipantRegistry
	Cache     ports.TallyCache
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	submissionUseCase := commands.SubmissionUseCase{
		Decisions: deps.Decisions,
		Ledger:    deps.Ledger,
		Registry:  deps.Registry,
		Cache:     deps.Cache,
		Outbox:    deps.Outbox,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	tallyUseCase := queries.TallyUseCase{
		Decisions: deps.Decisions,
		Ledger:    deps.Ledger,
		Registry:  deps.Registry,
		Cache:     deps.Cache,
		Clock:     deps.Clock,
		Logger:    deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Lifecycle:   commands.LifecycleUseCase{SubmissionUseCase: submissionUseCase},
			Submissions: submissionUseCase,
			Consent:     commands.ConsentUseCase{SubmissionUseCase: submissionUseCase},
			Tallies:     tallyUseCase,
			Logger:      deps.Logger,
		},
		Sweeper: workers.DeadlineSweeper{
			Decisions: deps.Decisions,
			Tallies:   tallyUseCase,
			Cache:     deps.Cache,
			Outbox:    deps.Outbox,
			Clock:     deps.Clock,
			IDGen:     deps.IDGen,
			Logger:    deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Decisions: store,
		Ledger:    store,
		Registry:  store,
		Cache:     store,
		Outbox:    store,
		Clock:     store,
		IDGen:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
