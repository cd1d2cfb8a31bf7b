package database

import (
	"context"

	"github.com/kozaktomas/missing-persons/internal/descriptor"
)

// PersonReader provides read-only access to the registry
type PersonReader interface {
	// Get retrieves a person by ID, returns nil if not found
	Get(ctx context.Context, id string) (*StoredPerson, error)
	// GetByNationalID retrieves a person by national id, returns nil if not found
	GetByNationalID(ctx context.Context, nationalID string) (*StoredPerson, error)
	// List returns every registered person in registration order
	List(ctx context.Context) ([]StoredPerson, error)
	// Count returns the number of registered persons
	Count(ctx context.Context) (int, error)
	// Search returns every person matching all configured filters.
	// Empty filters return the whole registry unchanged.
	Search(ctx context.Context, filters SearchFilters) ([]StoredPerson, error)
	// FindSimilar ranks persons by descriptor similarity to query, keeping
	// scores strictly above opts.Threshold, best first
	FindSimilar(ctx context.Context, query []float32, opts MatchOptions) ([]Match, error)
	// Stats summarizes the registry
	Stats(ctx context.Context) (*PersonStats, error)
}

// PersonWriter provides write access to the registry
type PersonWriter interface {
	// Add validates and stores a new person. An empty ID is assigned.
	// Returns ErrDuplicateNationalID if the national id is taken.
	Add(ctx context.Context, person *StoredPerson) error
	// Update replaces a stored person. Returns ErrNotFound for unknown IDs
	// and ErrDuplicateNationalID if the new national id belongs to someone else.
	Update(ctx context.Context, person *StoredPerson) error
	// Delete removes a person. Returns ErrNotFound for unknown IDs.
	Delete(ctx context.Context, id string) error
	// SetDescriptor replaces the descriptor of a person
	SetDescriptor(ctx context.Context, id string, desc []float32, source descriptor.Source) error
	// SetImage replaces the image reference of a person
	SetImage(ctx context.Context, id, imageURL string) error
}

// PersonRepository is a complete registry backend
type PersonRepository interface {
	PersonReader
	PersonWriter
}
