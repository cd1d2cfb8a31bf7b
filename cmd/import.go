package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/missing-persons/internal/config"
	"github.com/kozaktomas/missing-persons/internal/database"
	"github.com/kozaktomas/missing-persons/internal/database/mariadb"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import records from other systems",
}

var importLegacyCmd = &cobra.Command{
	Use:   "legacy",
	Short: "Import children from the legacy MariaDB registry",
	Long: `Copy every row of the legacy children table into the registry.

Rows whose identity number is already registered are skipped, so the import
can be repeated. Legacy rows carry no descriptor; run "missing-persons reindex"
afterwards to compute descriptors from the imported photos.

Examples:
  LEGACY_DATABASE_URL='registry:secret@tcp(mariadb:3306)/registry?parseTime=true' \
    missing-persons import legacy

  missing-persons import legacy --table children_archive --dry-run`,
	Args: cobra.NoArgs,
	RunE: runImportLegacy,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importLegacyCmd)

	importLegacyCmd.Flags().String("table", "", "Legacy table name (default from LEGACY_TABLE)")
	importLegacyCmd.Flags().Bool("dry-run", false, "Read and validate rows without writing them")
}

// importResult counts the outcome of a legacy import.
type importResult struct {
	Imported int
	Skipped  int
	Invalid  int
}

// importChildren adds each legacy row to the registry. Duplicates and rows
// failing validation are counted; any other error stops the import.
func importChildren(ctx context.Context, repo database.PersonWriter, children []mariadb.LegacyChild, dryRun bool, progress func()) (importResult, error) {
	var res importResult
	for i := range children {
		p := children[i].ToPerson()
		if progress != nil {
			progress()
		}

		if dryRun {
			if err := p.Normalize(time.Now()); err != nil {
				res.Invalid++
				continue
			}
			res.Imported++
			continue
		}

		err := repo.Add(ctx, &p)
		switch {
		case err == nil:
			res.Imported++
		case errors.Is(err, database.ErrDuplicateNationalID):
			res.Skipped++
		case errors.Is(err, database.ErrInvalidRecord):
			res.Invalid++
		default:
			return res, fmt.Errorf("failed to import %s: %w", p.NationalID, err)
		}
	}
	return res, nil
}

func runImportLegacy(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	if cfg.Legacy.DatabaseURL == "" {
		return errors.New("LEGACY_DATABASE_URL environment variable is required")
	}
	table := mustGetString(cmd, "table")
	if table == "" {
		table = cfg.Legacy.Table
	}
	dryRun := mustGetBool(cmd, "dry-run")

	fmt.Println("Connecting to legacy MariaDB database...")
	legacy, err := mariadb.NewPool(ctx, cfg.Legacy.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to legacy database: %w", err)
	}
	defer legacy.Close()

	children, err := legacy.ReadChildren(ctx, table)
	if err != nil {
		return fmt.Errorf("failed to read legacy children: %w", err)
	}
	fmt.Printf("Legacy rows in %s: %d\n", table, len(children))
	if len(children) == 0 {
		return nil
	}

	var repo database.PersonWriter
	if !dryRun {
		r, closeFn, err := openRegistry(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeFn()
		repo = r
	}

	bar := progressbar.NewOptions(len(children),
		progressbar.OptionSetDescription("Importing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("rows"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	res, err := importChildren(ctx, repo, children, dryRun, func() { bar.Add(1) })
	bar.Finish()
	if !dryRun && res.Imported > 0 {
		dropHNSWSnapshot(cfg.Database.HNSWIndexPath)
	}
	if err != nil {
		return err
	}

	verb := "Imported"
	if dryRun {
		verb = "Valid"
	}
	fmt.Printf("\n\nDone! %s: %d, already registered: %d, invalid: %d\n", verb, res.Imported, res.Skipped, res.Invalid)
	return nil
}
