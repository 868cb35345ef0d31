package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"pdfsearch/internal/domain"
)

// DefaultTopK is used when a query asks for a non-positive limit.
const DefaultTopK = 3

// Index is an in-memory vector index with named collections and brute-force
// cosine search. It backs tests and fully offline use.
type Index struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	dimension int
	records   map[int]domain.Record
}

// NewIndex creates an empty in-memory index.
func NewIndex() *Index {
	return &Index{collections: make(map[string]*collection)}
}

// CreateCollection creates a named collection with a fixed vector
// dimension. Returns false without error when the collection already
// exists; that is the duplicate-detection signal.
func (x *Index) CreateCollection(_ context.Context, name string, dimension int, _ string) (bool, error) {
	if dimension <= 0 {
		return false, errors.New("invalid dimension")
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.collections[name]; ok {
		return false, nil
	}
	x.collections[name] = &collection{
		dimension: dimension,
		records:   make(map[int]domain.Record),
	}
	return true, nil
}

// Upload inserts records into the collection. Records re-using an id
// replace the previous record with that id.
func (x *Index) Upload(_ context.Context, name string, records []domain.Record) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	col, ok := x.collections[name]
	if !ok {
		return fmt.Errorf("collection %s: %w", name, domain.ErrCollectionNotFound)
	}
	for _, rec := range records {
		if len(rec.Vector) != col.dimension {
			return fmt.Errorf("record %d has dimension %d, collection %s expects %d", rec.ID, len(rec.Vector), name, col.dimension)
		}
	}
	for _, rec := range records {
		col.records[rec.ID] = rec
	}
	return nil
}

// Query returns the top-k records by cosine similarity, highest first.
// Vectors of the wrong dimension are rejected, never truncated or padded.
func (x *Index) Query(_ context.Context, name string, vector []float64, limit int) ([]domain.ScoredChunk, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	col, ok := x.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", name, domain.ErrCollectionNotFound)
	}
	if len(vector) != col.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, collection %s expects %d", len(vector), name, col.dimension)
	}
	if limit <= 0 {
		limit = DefaultTopK
	}
	hits := make([]domain.ScoredChunk, 0, len(col.records))
	for _, rec := range col.records {
		hits = append(hits, domain.ScoredChunk{Payload: rec.Payload, Score: cosine(rec.Vector, vector)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > len(hits) {
		limit = len(hits)
	}
	return hits[:limit], nil
}

// DeleteCollection removes the collection and all of its records.
func (x *Index) DeleteCollection(_ context.Context, name string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.collections[name]; !ok {
		return fmt.Errorf("collection %s: %w", name, domain.ErrCollectionNotFound)
	}
	delete(x.collections, name)
	return nil
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
