package cmd

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/kozaktomas/missing-persons/internal/config"
	"github.com/kozaktomas/missing-persons/internal/constants"
	"github.com/kozaktomas/missing-persons/internal/database"
	"github.com/kozaktomas/missing-persons/internal/descriptor"
	"github.com/kozaktomas/missing-persons/internal/storage"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Recompute face descriptors from stored photos",
	Long: `Recompute face descriptors for registered persons from their stored photos.

By default only persons without a descriptor are processed, so the command
can be stopped and resumed. Use --force to recompute every descriptor, for
example after enabling the face detector.

Examples:
  # Fill in missing descriptors (8 concurrent workers)
  missing-persons reindex

  # Recompute everything with more workers
  missing-persons reindex --force --concurrency 16

  # Give persons without a photo an identity descriptor
  missing-persons reindex --identity`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)

	reindexCmd.Flags().Int("concurrency", constants.WorkerPoolSize, "Number of parallel workers")
	reindexCmd.Flags().Int("limit", 0, "Limit number of persons to process (0 = no limit)")
	reindexCmd.Flags().Bool("force", false, "Recompute descriptors that are already stored")
	reindexCmd.Flags().Bool("identity", false, "Use an identity descriptor for persons without a usable photo")
}

// descriptorExtractor is the part of the extractor reindex needs.
type descriptorExtractor interface {
	Extract(ctx context.Context, imageData []byte) (*descriptor.Result, error)
}

// reindexStats counts reindex outcomes. Safe for concurrent use.
type reindexStats struct {
	updated  atomic.Int64
	identity atomic.Int64
	skipped  atomic.Int64
	failed   atomic.Int64
}

// reindexCandidates returns the persons to process in registry order.
func reindexCandidates(persons []database.StoredPerson, force, identity bool, limit int) []database.StoredPerson {
	var out []database.StoredPerson
	for _, p := range persons {
		if p.HasDescriptor() && !force {
			continue
		}
		if p.ImageURL == "" && !identity {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// loadPhoto reads a stored photo into memory.
func loadPhoto(ctx context.Context, store storage.Store, name string) ([]byte, error) {
	rc, _, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, constants.MaxUploadSize+1))
}

// reindexPerson recomputes the descriptor of one person. Failures are
// counted, not returned, so one bad photo does not stop the run.
func reindexPerson(ctx context.Context, repo database.PersonWriter, store storage.Store, ext descriptorExtractor,
	p database.StoredPerson, identity bool, stats *reindexStats,
) {
	if p.ImageURL != "" && storage.ValidateName(p.ImageURL) == nil {
		data, err := loadPhoto(ctx, store, p.ImageURL)
		if err == nil {
			var result *descriptor.Result
			if result, err = ext.Extract(ctx, data); err == nil {
				if err := repo.SetDescriptor(ctx, p.ID, result.Descriptor, result.Source); err != nil {
					stats.failed.Add(1)
					return
				}
				stats.updated.Add(1)
				return
			}
		}
		if !identity {
			stats.failed.Add(1)
			return
		}
	}

	if !identity {
		stats.skipped.Add(1)
		return
	}
	if err := repo.SetDescriptor(ctx, p.ID, descriptor.FromIdentity(p.ID, p.Age, p.Name), descriptor.SourceIdentity); err != nil {
		stats.failed.Add(1)
		return
	}
	stats.identity.Add(1)
}

func runReindex(cmd *cobra.Command, args []string) error {
	concurrency := mustGetInt(cmd, "concurrency")
	limit := mustGetInt(cmd, "limit")
	force := mustGetBool(cmd, "force")
	identity := mustGetBool(cmd, "identity")

	ctx := context.Background()
	cfg := config.Load()

	repo, closeFn, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	store, err := storage.New(ctx, &cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open photo storage: %w", err)
	}
	extractor := newExtractor(cfg)

	persons, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list persons: %w", err)
	}
	fmt.Printf("Registered persons: %d\n", len(persons))

	toProcess := reindexCandidates(persons, force, identity, limit)
	if len(toProcess) == 0 {
		fmt.Println("Nothing to reindex!")
		return nil
	}
	fmt.Printf("Persons to process: %d (skipping %d)\n\n", len(toProcess), len(persons)-len(toProcess))

	bar := progressbar.NewOptions(len(toProcess),
		progressbar.OptionSetDescription("Computing descriptors"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("persons"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var stats reindexStats
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for _, p := range toProcess {
		g.Go(func() error {
			reindexPerson(gctx, repo, store, extractor, p, identity, &stats)
			bar.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	bar.Finish()

	fmt.Printf("\n\nDone! Updated: %d, identity: %d, skipped: %d, failed: %d\n",
		stats.updated.Load(), stats.identity.Load(), stats.skipped.Load(), stats.failed.Load())

	// A persisted HNSW snapshot still has the old vectors under the same ids.
	if stats.updated.Load()+stats.identity.Load() > 0 && dropHNSWSnapshot(cfg.Database.HNSWIndexPath) {
		fmt.Printf("Removed HNSW index %s, it is rebuilt on the next serve\n", cfg.Database.HNSWIndexPath)
	}
	return nil
}
