package favorite

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Intended for tests and single-instance deployments; production should use PostgresRepository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	owners map[string]*Set
}

// NewInMemoryRepository creates a new in-memory saved route repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		owners: make(map[string]*Set),
	}
}

// Load returns a copy of the owner's saved routes.
func (r *InMemoryRepository) Load(_ context.Context, ownerID string) (*Set, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.owners[ownerID]
	if !ok {
		return &Set{}, nil
	}
	return s.Clone(), nil
}

// Update applies fn to a copy and stores it only if fn succeeds.
func (r *InMemoryRepository) Update(ctx context.Context, ownerID string, fn func(*Set) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := &Set{}
	if s, ok := r.owners[ownerID]; ok {
		working = s.Clone()
	}

	if err := fn(working); err != nil {
		return err
	}

	if working.Len() == 0 {
		delete(r.owners, ownerID)
		return nil
	}
	r.owners[ownerID] = working
	return nil
}

// Clear deletes all of the owner's saved routes.
func (r *InMemoryRepository) Clear(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.owners, ownerID)
	return nil
}

// ListOwnersRoutes returns station pairs ordered by how many owners saved them.
func (r *InMemoryRepository) ListOwnersRoutes(_ context.Context, limit int) ([]Pair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type pairKey struct{ from, to string }
	counts := make(map[pairKey]int)
	for _, s := range r.owners {
		seen := make(map[pairKey]bool)
		for _, f := range s.items {
			k := pairKey{f.From, f.To}
			if seen[k] {
				continue
			}
			seen[k] = true
			counts[k]++
		}
	}

	pairs := make([]Pair, 0, len(counts))
	for k, n := range counts {
		pairs = append(pairs, Pair{From: k.from, To: k.to, Saves: n})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Saves != pairs[j].Saves {
			return pairs[i].Saves > pairs[j].Saves
		}
		if pairs[i].From != pairs[j].From {
			return pairs[i].From < pairs[j].From
		}
		return pairs[i].To < pairs[j].To
	})

	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs, nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
