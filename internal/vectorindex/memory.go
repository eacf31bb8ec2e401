package vectorindex

import (
	"context"
	"sort"
	"sync"
)

// memoryIndex is a linear cosine scan over an in-memory map, the default
// backend at target catalog scale. A single lock serializes all upserts and
// deletes, whatever their product id; concurrent scans and lookups are safe.
type memoryIndex struct {
	mu   sync.RWMutex
	vecs map[string][]float64
	meta map[string]Metadata
}

func NewMemoryIndex() Index {
	return &memoryIndex{
		vecs: make(map[string][]float64),
		meta: make(map[string]Metadata),
	}
}

func (m *memoryIndex) Upsert(ctx context.Context, productID string, vector []float64, meta Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]float64, len(vector))
	copy(cp, vector)
	m.vecs[productID] = cp
	m.meta[productID] = meta
	return nil
}

func (m *memoryIndex) Lookup(ctx context.Context, productID string) ([]float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vecs[productID]
	if !ok {
		return nil, false, nil
	}
	cp := make([]float64, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (m *memoryIndex) Scan(ctx context.Context, queryVector []float64, filter Filter, k int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, len(m.vecs))
	for id, v := range m.vecs {
		if meta, ok := m.meta[id]; ok && !meta.matches(filter) {
			continue
		}
		matches = append(matches, Match{ProductID: id, Cosine: Cosine(queryVector, v)})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Cosine != matches[j].Cosine {
			return matches[i].Cosine > matches[j].Cosine
		}
		return lessProductID(matches[i].ProductID, matches[j].ProductID)
	})

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (m *memoryIndex) Delete(ctx context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vecs, productID)
	delete(m.meta, productID)
	return nil
}
