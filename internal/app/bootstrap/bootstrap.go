package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	electionledger "electionledger/contexts/governance/election-ledger"
	"electionledger/contexts/governance/election-ledger/adapters/memory"
	postgresadapter "electionledger/contexts/governance/election-ledger/adapters/postgres"
	redisadapter "electionledger/contexts/governance/election-ledger/adapters/redis"
	"electionledger/contexts/governance/election-ledger/adapters/system"
	"electionledger/contexts/governance/election-ledger/application/commands"
	workerapp "electionledger/contexts/governance/election-ledger/application/workers"
	domainerrors "electionledger/contexts/governance/election-ledger/domain/errors"
	"electionledger/contexts/governance/election-ledger/ports"
	"electionledger/internal/platform/config"
	"electionledger/internal/platform/db"
	"electionledger/internal/platform/httpserver"
	"electionledger/internal/platform/messaging"
	"electionledger/internal/platform/metrics"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server          *httpserver.Server
	closers         []io.Closer
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

type WorkerApp struct {
	closers      []io.Closer
	outboxRelay  workerapp.OutboxRelay
	audit        workerapp.AuditConsumer
	pollInterval time.Duration
	logger       *slog.Logger
}

type storeBundle struct {
	records ports.RecordStore
	clock   ports.Clock
	idGen   ports.IDGenerator
	closers []io.Closer
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	stores, err := openStores(cfg, logger)
	if err != nil {
		return nil, err
	}

	promMetrics := metrics.NewPrometheus()
	module := electionledger.NewModule(electionledger.Dependencies{
		Records: stores.records,
		Clock:   stores.clock,
		IDGen:   stores.idGen,
		Metrics: promMetrics,
		Logger:  logger,
	})
	if err := seedAdmins(context.Background(), module, cfg.Admins, logger); err != nil {
		closeAll(stores.closers)
		return nil, err
	}

	server, err := httpserver.New(module, promMetrics.Handler(), logger, normalizeAddr(cfg.HTTPPort))
	if err != nil {
		closeAll(stores.closers)
		return nil, err
	}
	return &APIApp{
		server:          server,
		closers:         stores.closers,
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	stores, err := openStores(cfg, logger)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		closeAll(stores.closers)
		return nil, err
	}

	module := electionledger.NewModule(electionledger.Dependencies{
		Records: stores.records,
		Clock:   stores.clock,
		IDGen:   stores.idGen,
		Logger:  logger,
	})
	return &WorkerApp{
		closers: stores.closers,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    module.Outbox,
			Publisher: kafka,
			Clock:     stores.clock,
			BatchSize: 100,
			Logger:    logger,
		},
		audit: workerapp.AuditConsumer{
			Subscriber:    kafka,
			Queries:       module.Queries,
			ConsumerGroup: "election-ledger-audit-cg",
			Disabled:      !cfg.EnableAuditConsumer,
			Logger:        logger,
		},
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
	}, nil
}

func openStores(cfg config.Config, logger *slog.Logger) (storeBundle, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		pg, err := db.Connect(cfg.PostgresDSN)
		if err != nil {
			return storeBundle{}, err
		}
		repo := postgresadapter.NewRepository(pg.DB, logger)
		if err := repo.Migrate(context.Background()); err != nil {
			_ = pg.Close()
			return storeBundle{}, err
		}
		return storeBundle{
			records: repo,
			clock:   system.Clock{},
			idGen:   system.UUIDGenerator{},
			closers: []io.Closer{pg},
		}, nil
	case config.StoreBackendRedis:
		client, err := db.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return storeBundle{}, err
		}
		return storeBundle{
			records: redisadapter.NewStore(client.Client, cfg.RedisKeyPrefix, logger),
			clock:   system.Clock{},
			idGen:   system.UUIDGenerator{},
			closers: []io.Closer{client},
		}, nil
	case config.StoreBackendMemory:
		store := memory.NewStore()
		return storeBundle{
			records: store,
			clock:   store,
			idGen:   store,
		}, nil
	default:
		return storeBundle{}, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}

// seedAdmins initializes the ledger from configuration on first start. A
// ledger that already exists keeps its stored admin list.
func seedAdmins(ctx context.Context, module electionledger.Module, admins []string, logger *slog.Logger) error {
	if len(admins) == 0 {
		return nil
	}
	_, err := module.Handler.Elections.InitLedger(ctx, commands.InitLedgerCommand{Admins: admins})
	if errors.Is(err, domainerrors.ErrAlreadyInitialized) {
		logger.Info("election ledger already initialized",
			"event", "bootstrap_ledger_already_initialized",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		return nil
	}
	return err
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *APIApp) Run(ctx context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (a *APIApp) Close() error {
	return closeAll(a.closers)
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.audit.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		// a failed cycle is logged by the relay and retried on the next tick
		if err := w.outboxRelay.RunOnce(ctx); err != nil && ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	return closeAll(w.closers)
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for _, closer := range closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
