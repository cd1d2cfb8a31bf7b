package database

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/coder/hnsw"
	"github.com/klauspost/compress/zstd"
)

// HNSWIndexMetadata stores metadata for validating cached HNSW indexes.
type HNSWIndexMetadata struct {
	PersonCount int       `json:"person_count"`
	IDs         []string  `json:"ids"`
	BuildTime   time.Time `json:"build_time"`
	Version     int       `json:"version"`
}

const hnswMetadataVersion = 3

// HNSWIndex wraps an HNSW graph of person descriptors keyed by person ID.
//
// The graph is append-only: deleting or changing a descriptor only drops the
// ID from the live set and marks the index dirty until the next rebuild.
type HNSWIndex struct {
	graph *hnsw.Graph[string]
	live  map[string]struct{}
	dirty bool
	mu    sync.RWMutex
}

// NewHNSWIndex creates a new empty HNSW index.
func NewHNSWIndex() *HNSWIndex {
	return &HNSWIndex{
		live: make(map[string]struct{}),
	}
}

func newGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.CosineDistance
	return g
}

// Build replaces the index with the descriptors of persons.
// Persons without a descriptor are skipped.
func (h *HNSWIndex) Build(persons []StoredPerson) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.live = make(map[string]struct{}, len(persons))
	h.dirty = false

	g := newGraph()
	for i := range persons {
		p := &persons[i]
		if !p.HasDescriptor() {
			continue
		}
		g.Add(hnsw.MakeNode(p.ID, append([]float32(nil), p.Descriptor...)))
		h.live[p.ID] = struct{}{}
	}

	if len(h.live) == 0 {
		h.graph = nil
		return
	}
	h.graph = g
}

// Add indexes a new person. Persons already indexed make the index dirty
// instead, since the graph cannot replace a node.
func (h *HNSWIndex) Add(id string, desc []float32) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(desc) == 0 {
		return
	}
	if _, ok := h.live[id]; ok {
		delete(h.live, id)
		h.dirty = true
		return
	}
	if h.graph == nil {
		h.graph = newGraph()
	}
	h.graph.Add(hnsw.MakeNode(id, append([]float32(nil), desc...)))
	h.live[id] = struct{}{}
}

// Invalidate drops id from search results until the next rebuild.
func (h *HNSWIndex) Invalidate(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.live[id]; ok {
		delete(h.live, id)
		h.dirty = true
	}
}

// Search finds the k nearest live neighbors to the query descriptor.
// Returns person IDs and their cosine distances.
func (h *HNSWIndex) Search(query []float32, k int) ([]string, []float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil, nil, errors.New("index not initialized")
	}

	neighbors := h.graph.Search(query, k)
	ids := make([]string, 0, len(neighbors))
	distances := make([]float64, 0, len(neighbors))
	for _, n := range neighbors {
		if _, ok := h.live[n.Key]; !ok {
			continue
		}
		ids = append(ids, n.Key)
		distances = append(distances, CosineDistance(query, n.Value))
	}
	return ids, distances, nil
}

// Count returns the number of live indexed persons.
func (h *HNSWIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.live)
}

// IsEmpty returns true if the index has no graph loaded.
func (h *HNSWIndex) IsEmpty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.graph == nil
}

// IsDirty reports whether entries were invalidated since the last build.
func (h *HNSWIndex) IsDirty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dirty
}

// Save writes the zstd-compressed graph to path and its metadata to
// path+".meta". An empty index removes both files.
func (h *HNSWIndex) Save(path string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil || h.dirty {
		// A dirty graph is rebuilt on startup instead.
		_, err := RemoveHNSWSnapshot(path)
		return err
	}

	f, err := os.Create(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to create HNSW index file: %w", err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if err := h.graph.Export(enc); err != nil {
		enc.Close()
		return fmt.Errorf("failed to export HNSW graph: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush HNSW index: %w", err)
	}

	ids := make([]string, 0, len(h.live))
	for id := range h.live {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	metaData, err := json.Marshal(HNSWIndexMetadata{
		PersonCount: len(h.live),
		IDs:         ids,
		BuildTime:   time.Now(),
		Version:     hnswMetadataVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(path+".meta", metaData, 0600); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// Load reads a graph written by Save. liveIDs are the persons that currently
// have a descriptor; the snapshot is rejected unless it indexed exactly them.
func (h *HNSWIndex) Load(path string, liveIDs []string) error {
	metadata, err := LoadHNSWMetadata(path)
	if err != nil {
		return err
	}
	if metadata.Version != hnswMetadataVersion {
		return fmt.Errorf("unsupported HNSW index version %d", metadata.Version)
	}
	if metadata.PersonCount != len(liveIDs) {
		return fmt.Errorf("HNSW index is stale: %d persons indexed, %d registered", metadata.PersonCount, len(liveIDs))
	}
	if !sameIDs(metadata.IDs, liveIDs) {
		return errors.New("HNSW index is stale: indexed persons differ from the registry")
	}

	f, err := os.Open(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to open HNSW index: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer dec.Close()

	g := newGraph()
	// Import needs an io.ByteReader, which the zstd decoder is not.
	if err := g.Import(bufio.NewReader(dec)); err != nil {
		return fmt.Errorf("failed to load HNSW index: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.graph = g
	h.dirty = false
	h.live = make(map[string]struct{}, len(liveIDs))
	for _, id := range liveIDs {
		h.live[id] = struct{}{}
	}
	return nil
}

// RemoveHNSWSnapshot deletes the snapshot at path and its metadata. Missing
// files are not an error; removed reports whether anything was deleted.
func RemoveHNSWSnapshot(path string) (removed bool, err error) {
	for _, name := range []string{path, path + ".meta"} {
		switch rerr := os.Remove(name); {
		case rerr == nil:
			removed = true
		case !errors.Is(rerr, fs.ErrNotExist):
			err = errors.Join(err, rerr)
		}
	}
	return removed, err
}

func sameIDs(indexed, live []string) bool {
	if len(indexed) != len(live) {
		return false
	}
	sorted := slices.Clone(live)
	slices.Sort(sorted)
	return slices.Equal(slices.Sorted(slices.Values(indexed)), sorted)
}

// LoadHNSWMetadata loads metadata from a separate .meta file.
func LoadHNSWMetadata(path string) (HNSWIndexMetadata, error) {
	var metadata HNSWIndexMetadata

	data, err := os.ReadFile(path + ".meta") //nolint:gosec // path is from trusted config
	if err != nil {
		return metadata, fmt.Errorf("failed to read metadata file: %w", err)
	}

	if err := json.Unmarshal(data, &metadata); err != nil {
		return metadata, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return metadata, nil
}
