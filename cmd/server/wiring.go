package main

import (
	"context"
	"fmt"
	"time"

	"github.com/journalforest/forest-backend/internal/config"
	"github.com/journalforest/forest-backend/internal/db"
	"github.com/journalforest/forest-backend/internal/db/migrations"
	"github.com/journalforest/forest-backend/internal/journal"
	"github.com/journalforest/forest-backend/internal/llm"
	"github.com/journalforest/forest-backend/internal/logger"
	"github.com/journalforest/forest-backend/internal/semantic"
	"github.com/journalforest/forest-backend/internal/storage"
	"github.com/journalforest/forest-backend/internal/tree"
)

// connectTimeout bounds how long startup waits for the database.
const connectTimeout = 60 * time.Second

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openDatabase connects and refuses to run against an unmigrated schema.
// Migrations run separately via `forest migrate up`.
func openDatabase(ctx context.Context, dsn string) (*db.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	database, err := db.ConnectWithRetry(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := migrations.Check(database.Conn()); err != nil {
		database.Close()
		return nil, fmt.Errorf("schema check failed (run `forest migrate up`): %w", err)
	}
	return database, nil
}

func newObjectStore(cfg *config.Config) (storage.ObjectStore, error) {
	switch cfg.Semantic.Store {
	case config.SemanticStoreS3:
		return storage.NewS3Storage(cfg.S3)
	default:
		logger.Warn("semantic records are kept in memory and lost on restart")
		return storage.NewMemoryStorage(), nil
	}
}

func newIndex(cfg *config.Config) (*semantic.Index, error) {
	objects, err := newObjectStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	embedder, err := llm.NewEmbedder(cfg.Semantic, cfg.LLM)
	if err != nil {
		return nil, err
	}
	return semantic.NewIndex(objects, embedder), nil
}

func newTreeAssigner(path string) (*tree.Assigner, error) {
	if path == "" {
		logger.Debug("using built-in tree catalog")
		return tree.NewAssigner(nil), nil
	}
	catalog, err := tree.LoadCatalogFile(path)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded tree catalog", "path", path, "types", len(catalog.Types))
	return tree.NewAssigner(catalog), nil
}

// buildServices wires the journal flows over database.
func buildServices(cfg *config.Config, database *db.DB) (*journal.Services, error) {
	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, err
	}
	index, err := newIndex(cfg)
	if err != nil {
		return nil, err
	}
	trees, err := newTreeAssigner(cfg.TreeCatalogFile)
	if err != nil {
		return nil, err
	}

	svc := journal.NewServices(journal.Deps{
		Store:          database,
		Index:          index,
		Trees:          trees,
		Now:            time.Now,
		StreakLocation: cfg.Streak,
	}, provider)
	return svc, nil
}
