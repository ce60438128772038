package main

import (
	"context"
	"fmt"
	"log/slog"

	"coipond/internal/catalog"
	"coipond/internal/config"
	"coipond/internal/domain/repositories"
	bpRepo "coipond/internal/domain/repositories/blueprint"
	bpSvc "coipond/internal/domain/services/blueprint"
	"coipond/internal/repository/memory"
	"coipond/internal/repository/postgres"
	postgresBP "coipond/internal/repository/postgres/blueprint"
	"coipond/internal/search/algolia"
	searchMem "coipond/internal/search/memory"
	searchPG "coipond/internal/search/postgres"
	"coipond/internal/storage/gcs"
	storageMem "coipond/internal/storage/memory"
)

// backends holds the storage implementations selected by configuration
type backends struct {
	blueprints bpRepo.BlueprintRepository
	ledgers    bpRepo.LedgerRepository
	txManager  repositories.TransactionManager
	index      bpSvc.SearchIndex
	blobs      bpSvc.BlobStore

	closers []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func setupBackends(ctx context.Context, cfg *config.Config, cat *catalog.Catalog, logger *slog.Logger) (*backends, error) {
	b := &backends{}

	var repoConfig *postgres.RepositoryConfig
	var memStore *memory.Store

	switch cfg.StoreBackend {
	case "postgres":
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		b.closers = append(b.closers, pool.Close)

		tables := postgres.NewTableNames(cfg.TablePrefix)
		if err := postgres.EnsureSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
			b.Close()
			return nil, err
		}

		repoConfig = &postgres.RepositoryConfig{Pool: pool, Tables: tables, Logger: logger}
		b.blueprints = postgresBP.NewBlueprintRepository(repoConfig)
		b.ledgers = postgresBP.NewLedgerRepository(repoConfig)
		b.txManager = postgres.NewTransactionManager(pool, logger)
		logger.Info("database connected", "table_prefix", cfg.TablePrefix)
	case "memory":
		memStore = memory.NewStore()
		b.blueprints = memStore.Blueprints()
		b.ledgers = memStore.Ledgers()
		b.txManager = memStore.TransactionManager()
		logger.Warn("using in-memory document store; data is lost on restart")
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (supported: postgres, memory)", cfg.StoreBackend)
	}

	switch cfg.SearchBackend {
	case "algolia":
		if cfg.AlgoliaAppID == "" || cfg.AlgoliaAPIKey == "" {
			b.Close()
			return nil, fmt.Errorf("ALGOLIA_APP_ID and ALGOLIA_API_KEY are required for the algolia search backend")
		}
		b.index = algolia.NewIndex(cfg.AlgoliaAppID, cfg.AlgoliaAPIKey, logger)
	case "postgres":
		if repoConfig == nil {
			b.Close()
			return nil, fmt.Errorf("postgres search requires STORE_BACKEND=postgres")
		}
		b.index = searchPG.NewIndex(repoConfig, cat)
	case "memory":
		if memStore == nil {
			b.Close()
			return nil, fmt.Errorf("memory search requires STORE_BACKEND=memory")
		}
		b.index = searchMem.NewIndex(memStore.Blueprints(), cat)
	default:
		b.Close()
		return nil, fmt.Errorf("unknown SEARCH_BACKEND %q (supported: algolia, postgres, memory)", cfg.SearchBackend)
	}
	logger.Info("search backend ready", "backend", cfg.SearchBackend, "indices", len(cat.Indices()))

	switch cfg.BlobBackend {
	case "gcs":
		store, err := gcs.New(ctx, gcs.Config{
			Bucket:        cfg.GCSBucket,
			PublicBaseURL: cfg.GCSPublicURL,
			EmulatorHost:  cfg.GCSEmulatorHost,
		}, logger)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = store.Close() })
		b.blobs = store
	case "memory":
		b.blobs = storageMem.New("http://localhost:" + cfg.Port + "/screenshots")
		logger.Warn("using in-memory screenshot store; images are not served")
	default:
		b.Close()
		return nil, fmt.Errorf("unknown BLOB_BACKEND %q (supported: gcs, memory)", cfg.BlobBackend)
	}

	return b, nil
}
