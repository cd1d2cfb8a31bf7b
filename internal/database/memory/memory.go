// Package memory provides the in-memory registry backend.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/missing-persons/internal/database"
	"github.com/kozaktomas/missing-persons/internal/descriptor"
)

// Store keeps the registry in memory. It is safe for concurrent use and
// hands out copies, so callers never share state with the store.
type Store struct {
	mu          sync.RWMutex
	order       []string // registration order
	persons     map[string]*database.StoredPerson
	nationalIDs map[string]string // national id -> person id
	now         func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		persons:     make(map[string]*database.StoredPerson),
		nationalIDs: make(map[string]string),
		now:         time.Now,
	}
}

// Register makes s the active registry backend.
func Register(s *Store) {
	database.RegisterPersonBackend("memory", func() database.PersonRepository { return s })
}

// Get retrieves a person by ID, returns nil if not found
func (s *Store) Get(_ context.Context, id string) (*database.StoredPerson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[id]
	if !ok {
		return nil, nil
	}
	cp := p.Clone()
	return &cp, nil
}

// GetByNationalID retrieves a person by national id, returns nil if not found
func (s *Store) GetByNationalID(ctx context.Context, nationalID string) (*database.StoredPerson, error) {
	s.mu.RLock()
	id, ok := s.nationalIDs[nationalID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return s.Get(ctx, id)
}

// List returns every person in registration order
func (s *Store) List(_ context.Context) ([]database.StoredPerson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(), nil
}

// snapshot copies all persons. Caller must hold the lock.
func (s *Store) snapshot() []database.StoredPerson {
	out := make([]database.StoredPerson, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.persons[id].Clone())
	}
	return out
}

// Count returns the number of persons
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}

// Search returns the persons matching filters
func (s *Store) Search(ctx context.Context, filters database.SearchFilters) ([]database.StoredPerson, error) {
	persons, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return database.Filter(persons, filters), nil
}

// FindSimilar ranks persons by descriptor similarity
func (s *Store) FindSimilar(ctx context.Context, query []float32, opts database.MatchOptions) ([]database.Match, error) {
	persons, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return database.Rank(query, persons, opts), nil
}

// Stats summarizes the registry
func (s *Store) Stats(ctx context.Context) (*database.PersonStats, error) {
	persons, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return database.ComputeStats(persons), nil
}

// Add validates and stores a new person
func (s *Store) Add(_ context.Context, person *database.StoredPerson) error {
	now := s.now()
	if err := person.Normalize(now); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nationalIDs[person.NationalID]; ok {
		return database.ErrDuplicateNationalID
	}
	if person.ID == "" {
		person.ID = uuid.NewString()
	} else if _, ok := s.persons[person.ID]; ok {
		return fmt.Errorf("person %s already exists", person.ID)
	}

	person.CreatedAt = now
	person.UpdatedAt = now
	stored := person.Clone()
	s.persons[person.ID] = &stored
	s.nationalIDs[person.NationalID] = person.ID
	s.order = append(s.order, person.ID)
	return nil
}

// Update replaces a stored person
func (s *Store) Update(_ context.Context, person *database.StoredPerson) error {
	now := s.now()
	if err := person.Normalize(now); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.persons[person.ID]
	if !ok {
		return database.ErrNotFound
	}
	if owner, ok := s.nationalIDs[person.NationalID]; ok && owner != person.ID {
		return database.ErrDuplicateNationalID
	}

	delete(s.nationalIDs, existing.NationalID)
	s.nationalIDs[person.NationalID] = person.ID

	person.CreatedAt = existing.CreatedAt
	person.UpdatedAt = now
	stored := person.Clone()
	s.persons[person.ID] = &stored
	return nil
}

// Delete removes a person
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.persons[id]
	if !ok {
		return database.ErrNotFound
	}
	delete(s.persons, id)
	delete(s.nationalIDs, p.NationalID)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// SetDescriptor replaces the descriptor of a person
func (s *Store) SetDescriptor(_ context.Context, id string, desc []float32, source descriptor.Source) error {
	if desc != nil {
		if err := descriptor.Validate(desc); err != nil {
			return fmt.Errorf("%w: %w", database.ErrInvalidRecord, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.persons[id]
	if !ok {
		return database.ErrNotFound
	}
	p.Descriptor = append([]float32(nil), desc...)
	if desc == nil {
		p.Descriptor = nil
		source = ""
	}
	p.DescriptorSource = source
	p.UpdatedAt = s.now()
	return nil
}

// SetImage replaces the image reference of a person
func (s *Store) SetImage(_ context.Context, id, imageURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.persons[id]
	if !ok {
		return database.ErrNotFound
	}
	p.ImageURL = imageURL
	p.UpdatedAt = s.now()
	return nil
}

var _ database.PersonRepository = (*Store)(nil)
