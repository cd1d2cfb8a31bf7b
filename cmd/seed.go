package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/missing-persons/internal/config"
	"github.com/kozaktomas/missing-persons/internal/constants"
	"github.com/kozaktomas/missing-persons/internal/database"
	"github.com/kozaktomas/missing-persons/internal/descriptor"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the sample dataset into the registry",
	Long: `Load the embedded sample persons into the registry.

Samples carry no photo, so each gets an identity descriptor derived from its
id, age and name. Persons whose national id is already registered are skipped.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// samplePerson converts a sample entry into a registry record.
func samplePerson(s config.SamplePerson) (database.StoredPerson, error) {
	lost, err := time.Parse(constants.DateLayout, s.LostDate)
	if err != nil {
		return database.StoredPerson{}, fmt.Errorf("sample %s: invalid lost_date: %w", s.ID, err)
	}
	p := database.StoredPerson{
		ID:                     s.ID,
		Name:                   s.Name,
		FatherName:             s.FatherName,
		NationalID:             s.NationalID,
		LostLocation:           s.LostLocation,
		LostDate:               lost,
		Gender:                 database.Gender(s.Gender),
		Age:                    s.Age,
		Status:                 database.Status(s.Status),
		Height:                 s.Height,
		Weight:                 s.Weight,
		EyeColor:               s.EyeColor,
		HairColor:              s.HairColor,
		DistinguishingFeatures: s.DistinguishingFeatures,
		ContactPerson:          s.ContactPerson,
		ContactPhone:           s.ContactPhone,
		Descriptor:             descriptor.FromIdentity(s.ID, s.Age, s.Name),
		DescriptorSource:       descriptor.SourceIdentity,
	}
	if s.LastSeenDate != "" {
		seen, err := time.Parse(constants.DateLayout, s.LastSeenDate)
		if err != nil {
			return database.StoredPerson{}, fmt.Errorf("sample %s: invalid last_seen_date: %w", s.ID, err)
		}
		p.LastSeenDate = seen
	}
	return p, nil
}

// seedSamples adds every sample not yet registered.
func seedSamples(ctx context.Context, repo database.PersonWriter, samples []config.SamplePerson) (added, skipped int, err error) {
	for _, s := range samples {
		p, err := samplePerson(s)
		if err != nil {
			return added, skipped, err
		}
		if err := repo.Add(ctx, &p); err != nil {
			if errors.Is(err, database.ErrDuplicateNationalID) {
				skipped++
				continue
			}
			return added, skipped, fmt.Errorf("failed to add %s: %w", s.ID, err)
		}
		added++
	}
	return added, skipped, nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	repo, closeFn, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	added, skipped, err := seedSamples(ctx, repo, cfg.Samples.People)
	if added > 0 {
		dropHNSWSnapshot(cfg.Database.HNSWIndexPath)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d persons (%d already registered)\n", added, skipped)
	return nil
}
