package electionledger

import (
	"log/slog"
	"sync"

	httpadapter "electionledger/contexts/governance/election-ledger/adapters/http"
	"electionledger/contexts/governance/election-ledger/adapters/memory"
	"electionledger/contexts/governance/election-ledger/application/commands"
	"electionledger/contexts/governance/election-ledger/application/ledger"
	"electionledger/contexts/governance/election-ledger/application/queries"
	"electionledger/contexts/governance/election-ledger/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Queries queries.ElectionQueries
	Outbox  ledger.Outbox
	Store   *memory.Store
}

type Dependencies struct {
	Records ports.RecordStore
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Metrics ports.Metrics
	Logger  *slog.Logger
}

// NewModule wires one write path per process. All mutations share a single
// serializer.
func NewModule(deps Dependencies) Module {
	electionUseCase := commands.ElectionUseCase{
		Records:    deps.Records,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Metrics:    deps.Metrics,
		Serializer: &sync.Mutex{},
		Logger:     deps.Logger,
	}
	electionQueries := queries.ElectionQueries{
		Records: deps.Records,
		Clock:   deps.Clock,
		Logger:  deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Elections: electionUseCase,
			Queries:   electionQueries,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
		Queries: electionQueries,
		Outbox:  ledger.Outbox{Records: deps.Records},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Records: store,
		Clock:   store,
		IDGen:   store,
		Logger:  logger,
	})
	module.Store = store
	return module
}
