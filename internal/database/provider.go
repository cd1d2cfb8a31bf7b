package database

import (
	"context"
	"errors"
	"sync"
)

// HNSWRebuilder is an interface for repositories that support HNSW index rebuilding
type HNSWRebuilder interface {
	// RebuildHNSW rebuilds the in-memory HNSW index
	RebuildHNSW(ctx context.Context) error
	// HNSWCount returns the number of items in the HNSW index
	HNSWCount() int
	// IsHNSWEnabled returns whether HNSW is enabled
	IsHNSWEnabled() bool
	// SaveHNSWIndex saves the current index to disk (if path configured)
	SaveHNSWIndex() error
}

var (
	providerMu       sync.RWMutex
	personRepository func() PersonRepository
	backendName      string
	personHNSW       HNSWRebuilder
)

// RegisterPersonBackend registers the active registry backend.
// This is called by the backend packages to avoid import cycles.
func RegisterPersonBackend(name string, repo func() PersonRepository) {
	providerMu.Lock()
	defer providerMu.Unlock()
	backendName = name
	personRepository = repo
}

// RegisterHNSWRebuilder registers the HNSW rebuilder of the active backend.
// This allows rebuilding the in-memory HNSW index without knowing the concrete type.
func RegisterHNSWRebuilder(rebuilder HNSWRebuilder) {
	providerMu.Lock()
	defer providerMu.Unlock()
	personHNSW = rebuilder
}

// GetHNSWRebuilder returns the registered HNSW rebuilder, or nil if not registered.
func GetHNSWRebuilder() HNSWRebuilder {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return personHNSW
}

// IsInitialized returns whether a registry backend has been registered.
func IsInitialized() bool {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return personRepository != nil
}

// BackendName returns the name of the registered backend.
func BackendName() string {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return backendName
}

// GetPersonRepository returns the registered registry backend.
func GetPersonRepository(_ context.Context) (PersonRepository, error) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	if personRepository == nil {
		return nil, errors.New("registry backend not initialized")
	}
	return personRepository(), nil
}

// ResetBackends clears every registration. Intended for tests.
func ResetBackends() {
	providerMu.Lock()
	defer providerMu.Unlock()
	personRepository = nil
	backendName = ""
	personHNSW = nil
}
