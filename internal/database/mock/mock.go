// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"

	"github.com/kozaktomas/missing-persons/internal/database"
	"github.com/kozaktomas/missing-persons/internal/database/memory"
	"github.com/kozaktomas/missing-persons/internal/descriptor"
)

// MockPersonRepository is an in-memory database.PersonRepository with
// error injection
type MockPersonRepository struct {
	*memory.Store

	// Error injection
	GetError           error
	ListError          error
	CountError         error
	SearchError        error
	FindSimilarError   error
	StatsError         error
	AddError           error
	UpdateError        error
	DeleteError        error
	SetDescriptorError error
	SetImageError      error

	// LastMatchOptions records the options of the latest FindSimilar call
	LastMatchOptions database.MatchOptions
}

// NewMockPersonRepository creates a new mock repository
func NewMockPersonRepository() *MockPersonRepository {
	return &MockPersonRepository{Store: memory.NewStore()}
}

// AddPerson stores a person, panicking on validation errors
func (m *MockPersonRepository) AddPerson(p database.StoredPerson) database.StoredPerson {
	if err := m.Store.Add(context.Background(), &p); err != nil {
		panic(err)
	}
	return p
}

// Get retrieves a person by ID
func (m *MockPersonRepository) Get(ctx context.Context, id string) (*database.StoredPerson, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	return m.Store.Get(ctx, id)
}

// GetByNationalID retrieves a person by national id
func (m *MockPersonRepository) GetByNationalID(ctx context.Context, nationalID string) (*database.StoredPerson, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	return m.Store.GetByNationalID(ctx, nationalID)
}

// List returns every person
func (m *MockPersonRepository) List(ctx context.Context) ([]database.StoredPerson, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.Store.List(ctx)
}

// Count returns the number of persons
func (m *MockPersonRepository) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	return m.Store.Count(ctx)
}

// Search returns persons matching filters
func (m *MockPersonRepository) Search(ctx context.Context, filters database.SearchFilters) ([]database.StoredPerson, error) {
	if m.SearchError != nil {
		return nil, m.SearchError
	}
	return m.Store.Search(ctx, filters)
}

// FindSimilar ranks persons by descriptor similarity
func (m *MockPersonRepository) FindSimilar(ctx context.Context, query []float32, opts database.MatchOptions) ([]database.Match, error) {
	m.LastMatchOptions = opts
	if m.FindSimilarError != nil {
		return nil, m.FindSimilarError
	}
	return m.Store.FindSimilar(ctx, query, opts)
}

// Stats summarizes the registry
func (m *MockPersonRepository) Stats(ctx context.Context) (*database.PersonStats, error) {
	if m.StatsError != nil {
		return nil, m.StatsError
	}
	return m.Store.Stats(ctx)
}

// Add stores a new person
func (m *MockPersonRepository) Add(ctx context.Context, person *database.StoredPerson) error {
	if m.AddError != nil {
		return m.AddError
	}
	return m.Store.Add(ctx, person)
}

// Update replaces a person
func (m *MockPersonRepository) Update(ctx context.Context, person *database.StoredPerson) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	return m.Store.Update(ctx, person)
}

// Delete removes a person
func (m *MockPersonRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	return m.Store.Delete(ctx, id)
}

// SetDescriptor replaces a descriptor
func (m *MockPersonRepository) SetDescriptor(ctx context.Context, id string, desc []float32, source descriptor.Source) error {
	if m.SetDescriptorError != nil {
		return m.SetDescriptorError
	}
	return m.Store.SetDescriptor(ctx, id, desc, source)
}

// SetImage replaces an image reference
func (m *MockPersonRepository) SetImage(ctx context.Context, id, imageURL string) error {
	if m.SetImageError != nil {
		return m.SetImageError
	}
	return m.Store.SetImage(ctx, id, imageURL)
}

// MockHNSWRebuilder is a mock implementation of database.HNSWRebuilder
type MockHNSWRebuilder struct {
	Enabled      bool
	Items        int
	Rebuilds     int
	RebuildError error
	SaveError    error
}

// RebuildHNSW records a rebuild
func (m *MockHNSWRebuilder) RebuildHNSW(_ context.Context) error {
	m.Rebuilds++
	return m.RebuildError
}

// HNSWCount returns the configured item count
func (m *MockHNSWRebuilder) HNSWCount() int { return m.Items }

// IsHNSWEnabled returns whether HNSW is enabled
func (m *MockHNSWRebuilder) IsHNSWEnabled() bool { return m.Enabled }

// SaveHNSWIndex returns the configured save error
func (m *MockHNSWRebuilder) SaveHNSWIndex() error { return m.SaveError }

var (
	_ database.PersonRepository = (*MockPersonRepository)(nil)
	_ database.HNSWRebuilder    = (*MockHNSWRebuilder)(nil)
)
