package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kozaktomas/missing-persons/internal/config"
	"github.com/kozaktomas/missing-persons/internal/constants"
	"github.com/kozaktomas/missing-persons/internal/database"
	"github.com/kozaktomas/missing-persons/internal/storage"
	"github.com/spf13/cobra"
)

var personCmd = &cobra.Command{
	Use:   "person",
	Short: "Manage registered persons",
}

var personAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a missing person",
	Long: `Register a missing person. With --photo the photo is stored and a face
descriptor is extracted from it.

Examples:
  missing-persons person add --name "Lina" --father-name "Said" \
    --national-id 42 --location "Latakia" --lost-date 2024-01-15 --photo lina.jpg`,
	Args: cobra.NoArgs,
	RunE: runPersonAdd,
}

var personListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered persons",
	Long: `List registered persons, optionally filtered.

Examples:
  missing-persons person list --status missing --min-age 5 --max-age 12
  missing-persons person list --location latakia --json`,
	Args: cobra.NoArgs,
	RunE: runPersonList,
}

var personGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one registered person",
	Args:  cobra.ExactArgs(1),
	RunE:  runPersonGet,
}

var personDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a person and their stored photo",
	Args:  cobra.ExactArgs(1),
	RunE:  runPersonDelete,
}

func init() {
	rootCmd.AddCommand(personCmd)
	personCmd.AddCommand(personAddCmd, personListCmd, personGetCmd, personDeleteCmd)

	personAddCmd.Flags().String("name", "", "Full name (required)")
	personAddCmd.Flags().String("father-name", "", "Father's name (required)")
	personAddCmd.Flags().String("national-id", "", "National id number (required)")
	personAddCmd.Flags().String("location", "", "Place where the person went missing (required)")
	personAddCmd.Flags().String("lost-date", "", "Date the person went missing, YYYY-MM-DD (required)")
	personAddCmd.Flags().String("gender", "", "male or female")
	personAddCmd.Flags().Int("age", 0, "Age in years")
	personAddCmd.Flags().String("status", "", "missing, found or under_investigation (default missing)")
	personAddCmd.Flags().String("contact-phone", "", "Contact phone number")
	personAddCmd.Flags().String("photo", "", "Path to a photo of the person")

	addFilterFlags(personListCmd)
	personListCmd.Flags().Int("limit", 0, "Maximum number of persons to show (0 = all)")
	personListCmd.Flags().Bool("json", false, "Output as JSON")

	personGetCmd.Flags().Bool("json", false, "Output as JSON")
}

// addFilterFlags registers the filter flags shared by list and search filter.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().Int("min-age", -1, "Minimum age, inclusive")
	cmd.Flags().Int("max-age", -1, "Maximum age, inclusive")
	cmd.Flags().String("gender", "", "male or female")
	cmd.Flags().String("from", "", "Lost on or after this date, YYYY-MM-DD")
	cmd.Flags().String("to", "", "Lost on or before this date, YYYY-MM-DD")
	cmd.Flags().String("location", "", "Substring of the lost location")
	cmd.Flags().String("status", "", "missing, found or under_investigation")
}

// filtersFromFlags builds search filters from the flags added by addFilterFlags.
func filtersFromFlags(cmd *cobra.Command) (database.SearchFilters, error) {
	var f database.SearchFilters

	minAge, maxAge := mustGetInt(cmd, "min-age"), mustGetInt(cmd, "max-age")
	if minAge >= 0 || maxAge >= 0 {
		r := &database.AgeRange{Min: max(minAge, 0), Max: maxAge}
		if maxAge < 0 {
			r.Max = constants.MaxPersonAge
		}
		if r.Min > r.Max {
			return f, fmt.Errorf("--min-age %d is greater than --max-age %d", r.Min, r.Max)
		}
		f.AgeRange = r
	}

	from, to := mustGetString(cmd, "from"), mustGetString(cmd, "to")
	if from != "" || to != "" {
		r := &database.DateRange{End: time.Now().UTC()}
		var err error
		if from != "" {
			if r.Start, err = time.Parse(constants.DateLayout, from); err != nil {
				return f, fmt.Errorf("invalid --from: %w", err)
			}
		}
		if to != "" {
			if r.End, err = time.Parse(constants.DateLayout, to); err != nil {
				return f, fmt.Errorf("invalid --to: %w", err)
			}
		}
		if r.End.Before(r.Start) {
			return f, errors.New("--from is after --to")
		}
		f.DateRange = r
	}

	if g := mustGetString(cmd, "gender"); g != "" {
		gender, err := database.ParseGender(g)
		if err != nil {
			return f, err
		}
		f.Gender = gender
	}
	if s := mustGetString(cmd, "status"); s != "" {
		status, err := database.ParseStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = status
	}
	f.Location = strings.TrimSpace(mustGetString(cmd, "location"))
	return f, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPersonTable(persons []database.StoredPerson) {
	fmt.Printf("%-36s  %-24s  %-16s  %-3s  %-10s  %-20s  %s\n", "ID", "NAME", "NATIONAL ID", "AGE", "LOST", "STATUS", "LOCATION")
	for _, p := range persons {
		fmt.Printf("%-36s  %-24s  %-16s  %3d  %-10s  %-20s  %s\n",
			p.ID, p.Name, p.NationalID, p.Age, p.LostDate.Format(constants.DateLayout), p.Status, p.LostLocation)
	}
}

func printPerson(p *database.StoredPerson) {
	fmt.Printf("ID:            %s\n", p.ID)
	fmt.Printf("Name:          %s\n", p.Name)
	fmt.Printf("Father:        %s\n", p.FatherName)
	fmt.Printf("National ID:   %s\n", p.NationalID)
	if p.Gender != "" {
		fmt.Printf("Gender:        %s\n", p.Gender)
	}
	fmt.Printf("Age:           %d\n", p.Age)
	fmt.Printf("Status:        %s\n", p.Status)
	fmt.Printf("Lost:          %s in %s\n", p.LostDate.Format(constants.DateLayout), p.LostLocation)
	fmt.Printf("Last seen:     %s\n", p.LastSeenDate.Format(constants.DateLayout))
	fmt.Printf("Registered:    %s\n", p.RegistrationDate.Format(constants.DateLayout))
	if p.ImageURL != "" {
		fmt.Printf("Photo:         %s\n", p.ImageURL)
	}
	if p.HasDescriptor() {
		fmt.Printf("Descriptor:    %s\n", p.DescriptorSource)
	} else {
		fmt.Printf("Descriptor:    none\n")
	}
	if p.ContactPhone != "" {
		fmt.Printf("Contact:       %s %s\n", p.ContactPerson, p.ContactPhone)
	}
}

// readPhoto reads an image file and checks its media type.
func readPhoto(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read photo: %w", err)
	}
	contentType := http.DetectContentType(data)
	if err := storage.CheckContentType(contentType); err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return data, contentType, nil
}

func runPersonAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	lostDate, err := time.Parse(constants.DateLayout, mustGetString(cmd, "lost-date"))
	if err != nil {
		return fmt.Errorf("invalid --lost-date: %w", err)
	}
	person := database.StoredPerson{
		Name:         mustGetString(cmd, "name"),
		FatherName:   mustGetString(cmd, "father-name"),
		NationalID:   mustGetString(cmd, "national-id"),
		LostLocation: mustGetString(cmd, "location"),
		LostDate:     lostDate,
		Gender:       database.Gender(mustGetString(cmd, "gender")),
		Age:          mustGetInt(cmd, "age"),
		Status:       database.Status(mustGetString(cmd, "status")),
		ContactPhone: mustGetString(cmd, "contact-phone"),
	}

	repo, closeFn, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	var store storage.Store
	if photoPath := mustGetString(cmd, "photo"); photoPath != "" {
		data, contentType, err := readPhoto(photoPath)
		if err != nil {
			return err
		}
		result, err := newExtractor(cfg).Extract(ctx, data)
		if err != nil {
			fmt.Printf("Warning: no descriptor extracted: %v\n", err)
		} else {
			person.Descriptor = result.Descriptor
			person.DescriptorSource = result.Source
		}

		store, err = storage.New(ctx, &cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to open photo storage: %w", err)
		}
		name, err := store.Save(ctx, filepath.Base(photoPath), contentType, data)
		if err != nil {
			return fmt.Errorf("failed to store photo: %w", err)
		}
		person.ImageURL = name
	}

	if err := repo.Add(ctx, &person); err != nil {
		if store != nil {
			_ = store.Delete(ctx, person.ImageURL)
		}
		return fmt.Errorf("failed to register person: %w", err)
	}
	if person.HasDescriptor() {
		dropHNSWSnapshot(cfg.Database.HNSWIndexPath)
	}

	fmt.Printf("Registered %s (%s)\n", person.Name, person.ID)
	if person.HasDescriptor() {
		fmt.Printf("Descriptor source: %s\n", person.DescriptorSource)
	}
	return nil
}

func runPersonList(cmd *cobra.Command, args []string) error {
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
		return fmt.Errorf("failed to list persons: %w", err)
	}
	if limit := mustGetInt(cmd, "limit"); limit > 0 && len(persons) > limit {
		persons = persons[:limit]
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

func runPersonGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	repo, closeFn, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	person, err := repo.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get person: %w", err)
	}
	if person == nil {
		return fmt.Errorf("%s: %w", args[0], database.ErrNotFound)
	}

	if mustGetBool(cmd, "json") {
		return printJSON(person)
	}
	printPerson(person)
	return nil
}

func runPersonDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	repo, closeFn, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	person, err := repo.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get person: %w", err)
	}
	if person == nil {
		return fmt.Errorf("%s: %w", args[0], database.ErrNotFound)
	}
	if err := repo.Delete(ctx, person.ID); err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}
	if person.HasDescriptor() {
		dropHNSWSnapshot(cfg.Database.HNSWIndexPath)
	}

	if person.ImageURL != "" && storage.ValidateName(person.ImageURL) == nil {
		store, err := storage.New(ctx, &cfg.Storage)
		if err == nil {
			err = store.Delete(ctx, person.ImageURL)
		}
		if err != nil {
			fmt.Printf("Warning: failed to remove photo %s: %v\n", person.ImageURL, err)
		}
	}

	fmt.Printf("Deleted %s (%s)\n", person.Name, person.ID)
	return nil
}
