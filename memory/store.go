package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tessellate-ai/memring/errors"
	"gonum.org/v1/gonum/mat"
)

type (
	// Store is the contract a ring's backing storage must satisfy: a durable
	// keyed collection for exact/filtered lookup paired with a similarity
	// index for semantic lookup. Put must update both sides atomically enough
	// that a reader never observes one without the other for longer than the
	// backend's documented consistency window (<1s; zero for the bundled
	// implementations).
	Store interface {
		// Put upserts the item. Writing an existing id replaces the record.
		Put(ctx context.Context, item *MemoryItem) (uuid.UUID, error)

		// Get returns the item or errors.ErrNotFound, touching its
		// last-accessed timestamp.
		Get(ctx context.Context, id uuid.UUID) (*MemoryItem, error)

		Delete(ctx context.Context, id uuid.UUID) error

		// Query returns items matching the filter ordered by creation time
		// descending.
		Query(ctx context.Context, filter Filter, limit int) ([]*MemoryItem, error)

		// VectorSearch returns the topK most similar items passing the filter,
		// best first, with scores in [0,1].
		VectorSearch(ctx context.Context, embedding []float32, topK int, filter Filter) ([]ScoredItem, error)

		Close() error
	}

	// InMemoryStore keeps everything in a map. Suitable for tests, demos and
	// the in-session ring of short-lived processes.
	InMemoryStore struct {
		mu    sync.RWMutex
		items map[uuid.UUID]*MemoryItem
	}
)

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		items: make(map[uuid.UUID]*MemoryItem),
	}
}

func (s *InMemoryStore) Put(ctx context.Context, item *MemoryItem) (uuid.UUID, error) {
	if item == nil {
		return uuid.Nil, errors.Wrapf(errors.ErrInvalidParams, "item is nil")
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item.Clone()
	return item.ID, nil
}

func (s *InMemoryStore) Get(ctx context.Context, id uuid.UUID) (*MemoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[id]
	if !exists {
		return nil, errors.Wrapf(errors.ErrNotFound, "memory item %s", id)
	}
	item.LastAccessedAt = time.Now()
	return item.Clone(), nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *InMemoryStore) Query(ctx context.Context, filter Filter, limit int) ([]*MemoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*MemoryItem
	for _, item := range s.items {
		if matchesFilter(item, filter) {
			results = append(results, item.Clone())
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *InMemoryStore) VectorSearch(ctx context.Context, embedding []float32, topK int, filter Filter) ([]ScoredItem, error) {
	if len(embedding) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "query embedding is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var candidates []*MemoryItem
	for _, item := range s.items {
		if len(item.Embedding) == len(embedding) && matchesFilter(item, filter) {
			candidates = append(candidates, item)
		}
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	dim := len(embedding)
	queryVec := make([]float64, dim)
	for i, v := range embedding {
		queryVec[i] = float64(v)
	}

	data := make([]float64, len(candidates)*dim)
	for i, item := range candidates {
		for j, v := range item.Embedding {
			data[i*dim+j] = float64(v)
		}
	}

	// Normalized embeddings make the inner product a cosine similarity in
	// [-1,1]; shift it into [0,1].
	queryVector := mat.NewVecDense(dim, queryVec)
	candidateMatrix := mat.NewDense(len(candidates), dim, data)

	var resultVec mat.VecDense
	resultVec.MulVec(candidateMatrix, queryVector)

	now := time.Now()
	scored := make([]ScoredItem, 0, len(candidates))
	for i, item := range candidates {
		item.LastAccessedAt = now
		scored = append(scored, ScoredItem{
			Item:  item.Clone(),
			Score: (resultVec.AtVec(i) + 1.0) * 0.5,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

func matchesFilter(item *MemoryItem, filter Filter) bool {
	if filter.SessionID != nil {
		if item.SessionID == nil || *item.SessionID != *filter.SessionID {
			return false
		}
	}
	if len(filter.Kinds) > 0 {
		found := false
		for _, k := range filter.Kinds {
			if item.Kind == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !filter.Before.IsZero() && !item.CreatedAt.Before(filter.Before) {
		return false
	}
	return true
}
