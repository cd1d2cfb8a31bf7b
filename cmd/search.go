package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/missing-persons/internal/config"
	"github.com/kozaktomas/missing-persons/internal/constants"
	"github.com/kozaktomas/missing-persons/internal/database"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the registry",
}

var searchFaceCmd = &cobra.Command{
	Use:   "face <photo>",
	Short: "Find registered persons whose face resembles a photo",
	Long: `Extract a face descriptor from a photo and rank registered persons by
similarity. Only persons scoring strictly above the threshold are shown.

Examples:
  missing-persons search face found.jpg
  missing-persons search face found.jpg --threshold 0.6 --limit 10`,
	Args: cobra.ExactArgs(1),
	RunE: runSearchFace,
}

var searchFilterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Find registered persons by age, gender, date, location and status",
	Args:  cobra.NoArgs,
	RunE:  runSearchFilter,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.AddCommand(searchFaceCmd, searchFilterCmd)

	searchFaceCmd.Flags().Float64("threshold", -1, "Minimum similarity score, exclusive (default from SEARCH_MATCH_THRESHOLD)")
	searchFaceCmd.Flags().Int("limit", -1, "Maximum number of matches (default from SEARCH_MATCH_LIMIT, 0 = all)")
	searchFaceCmd.Flags().Bool("json", false, "Output as JSON")

	addFilterFlags(searchFilterCmd)
	searchFilterCmd.Flags().Bool("json", false, "Output as JSON")
}

// faceMatchOptions applies flag overrides to the configured search defaults.
func faceMatchOptions(cmd *cobra.Command, cfg *config.Config) (database.MatchOptions, error) {
	opts := database.MatchOptions{
		Threshold:         cfg.Search.Threshold,
		Limit:             cfg.Search.Limit,
		SynthesizeMissing: cfg.Search.SynthesizeMissing,
	}
	if cmd.Flags().Changed("threshold") {
		t := mustGetFloat64(cmd, "threshold")
		if t < 0 || t >= 1 {
			return opts, fmt.Errorf("--threshold must be in [0, 1), got %v", t)
		}
		opts.Threshold = t
	}
	if cmd.Flags().Changed("limit") {
		l := mustGetInt(cmd, "limit")
		if l < 0 {
			return opts, fmt.Errorf("--limit must not be negative, got %d", l)
		}
		opts.Limit = l
	}
	return opts, nil
}

func runSearchFace(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	opts, err := faceMatchOptions(cmd, cfg)
	if err != nil {
		return err
	}
	data, _, err := readPhoto(args[0])
	if err != nil {
		return err
	}
	result, err := newExtractor(cfg).Extract(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to extract descriptor: %w", err)
	}

	repo, closeFn, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	matches, err := repo.FindSimilar(ctx, result.Descriptor, opts)
	if err != nil {
		return fmt.Errorf("failed to search: %w", err)
	}

	if mustGetBool(cmd, "json") {
		if matches == nil {
			matches = []database.Match{}
		}
		return printJSON(matches)
	}

	fmt.Printf("Query descriptor source: %s\n", result.Source)
	if len(matches) == 0 {
		fmt.Printf("No matches above %.2f\n", opts.Threshold)
		return nil
	}
	fmt.Printf("\n%-6s  %-36s  %-24s  %-16s  %s\n", "SCORE", "ID", "NAME", "NATIONAL ID", "LOST")
	for _, m := range matches {
		fmt.Printf("%.4f  %-36s  %-24s  %-16s  %s in %s\n",
			m.Confidence, m.Person.ID, m.Person.Name, m.Person.NationalID,
			m.Person.LostDate.Format(constants.DateLayout), m.Person.LostLocation)
	}
	fmt.Printf("\n%d matches above %.2f\n", len(matches), opts.Threshold)
	return nil
}

func runSearchFilter(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	filters, err := filtersFromFlags(cmd)
	if err != nil {
		return err
	}

	repo, closeFn, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	persons, err := repo.Search(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to search: %w", err)
	}

	if mustGetBool(cmd, "json") {
		if persons == nil {
			persons = []database.StoredPerson{}
		}
		return printJSON(persons)
	}
	if len(persons) == 0 {
		fmt.Println("No persons found")
		return nil
	}
	printPersonTable(persons)
	fmt.Printf("\n%d persons\n", len(persons))
	return nil
}
