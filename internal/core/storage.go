package core

import (
	"context"
	"fmt"

	"mycoledger/internal/config"
	"mycoledger/internal/infra/persistence/memory"
	"mycoledger/internal/infra/persistence/postgres"
	"mycoledger/internal/infra/persistence/sqlite"
	"mycoledger/pkg/domain"
)

// OpenPersistentStore selects a backend from the storage configuration.
// An empty driver selects sqlite.
func OpenPersistentStore(ctx context.Context, cfg config.StorageConfig, engine *domain.RulesEngine) (domain.PersistentStore, error) {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	driver := cfg.Driver
	if driver == "" {
		driver = config.StorageSQLite
	}
	switch driver {
	case config.StorageMemory:
		return memory.NewStore(engine), nil
	case config.StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath, engine)
	case config.StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// CloseStore releases the resources held by durable backends. The in-memory
// store holds none.
func CloseStore(store domain.PersistentStore) error {
	if c, ok := store.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

type snapshotImporter interface {
	ImportSnapshot(ctx context.Context, snapshot domain.Snapshot) error
}

// ImportSnapshot loads a full ledger snapshot, counters included, into a
// store that holds no records yet. Every record is validated first; the store
// checks emptiness and installs the snapshot under its writer lock.
func (s *Service) ImportSnapshot(ctx context.Context, snapshot domain.Snapshot) error {
	return s.run(ctx, OpImportSnapshot, "", func(ctx context.Context) (uint64, domain.Result, error) {
		st, ok := s.store.(snapshotImporter)
		if !ok {
			return 0, domain.Result{}, fmt.Errorf("store %T cannot import snapshots", s.store)
		}
		return 0, domain.Result{}, st.ImportSnapshot(ctx, snapshot)
	})
}
