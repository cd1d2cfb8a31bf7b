package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kozaktomas/missing-persons/internal/config"
	"github.com/kozaktomas/missing-persons/internal/constants"
	"github.com/kozaktomas/missing-persons/internal/database"
	"github.com/kozaktomas/missing-persons/internal/database/memory"
	"github.com/kozaktomas/missing-persons/internal/database/postgres"
	"github.com/kozaktomas/missing-persons/internal/descriptor"
)

var errDatabaseRequired = errors.New("DATABASE_URL environment variable is required")

// initPersonHNSW builds or loads the HNSW index used for face search.
func initPersonHNSW(ctx context.Context, repo *postgres.PersonRepository, indexPath string) {
	if indexPath != "" {
		fmt.Printf("Loading descriptor HNSW index from %s...\n", indexPath)
	} else {
		fmt.Printf("Building in-memory HNSW index for face search...\n")
	}
	if err := repo.EnableHNSW(ctx, indexPath); err != nil {
		fmt.Printf("Warning: Failed to build descriptor HNSW index: %v\n", err)
		fmt.Printf("Face search will use PostgreSQL queries (slower)\n")
	} else if indexPath != "" {
		fmt.Printf("Descriptor HNSW index ready with %d persons (persisted to %s)\n", repo.HNSWCount(), indexPath)
	} else {
		fmt.Printf("Descriptor HNSW index built with %d persons (in-memory only)\n", repo.HNSWCount())
	}
}

// dropHNSWSnapshot removes the persisted HNSW snapshot after a CLI write, so
// the next serve rebuilds it from the registry. It reports whether a
// snapshot was removed.
func dropHNSWSnapshot(path string) bool {
	if path == "" {
		return false
	}
	removed, err := database.RemoveHNSWSnapshot(path)
	if err != nil {
		fmt.Printf("Warning: failed to remove stale HNSW index %s: %v\n", path, err)
	}
	return removed
}

// connectPostgres opens the PostgreSQL registry and registers it as the
// active backend.
func connectPostgres(ctx context.Context, cfg *config.Config, withHNSW bool) (*postgres.PersonRepository, error) {
	fmt.Printf("Connecting to PostgreSQL database...\n")
	if err := postgres.Initialize(ctx, &cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	repo := postgres.NewPersonRepository(postgres.GetGlobalPool())
	if withHNSW && cfg.Database.HNSWEnabled {
		initPersonHNSW(ctx, repo, cfg.Database.HNSWIndexPath)
	}
	postgres.Register(repo)
	return repo, nil
}

// openRegistry registers the backend for a CLI command. Commands other than
// serve need a persistent registry, so the in-memory store is not offered.
func openRegistry(ctx context.Context, cfg *config.Config) (database.PersonRepository, func(), error) {
	if cfg.Database.URL == "" {
		return nil, nil, errDatabaseRequired
	}
	if _, err := connectPostgres(ctx, cfg, false); err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if pool := postgres.GetGlobalPool(); pool != nil {
			pool.Close()
		}
	}

	repo, err := database.GetPersonRepository(ctx)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return repo, closeFn, nil
}

// registerMemory makes a fresh in-memory store the active backend.
func registerMemory() *memory.Store {
	store := memory.NewStore()
	memory.Register(store)
	fmt.Printf("Using in-memory registry (set DATABASE_URL for persistence)\n")
	return store
}

// newExtractor builds the descriptor extractor described by cfg. Results
// are cached by image content.
func newExtractor(cfg *config.Config) *descriptor.CachedExtractor {
	var opts []descriptor.Option
	if cfg.Descriptor.DetectorURL != "" {
		client := &http.Client{Timeout: constants.DetectorTimeout}
		opts = append(opts, descriptor.WithDetector(descriptor.NewDetectorClient(cfg.Descriptor.DetectorURL, client)))
		fmt.Printf("Face detector enabled (%s)\n", cfg.Descriptor.DetectorURL)
	}
	return descriptor.NewCachedExtractor(descriptor.NewExtractor(opts...), cfg.Descriptor.CacheTTL)
}
