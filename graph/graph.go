// Package graph defines the entity-store boundary consumed by the retrieval
// pipeline. The store is an optional collaborator: when absent, the relational
// candidate set is simply empty.
package graph

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type (
	// Node is a lightweight representation of a graph entity.
	Node struct {
		ID         uuid.UUID      `json:"id"`
		Label      string         `json:"label"`
		Properties map[string]any `json:"properties,omitempty"`
	}

	// Store is the neighborhood-traversal contract. Seeds are entity labels
	// extracted from turn text; depth bounds the traversal.
	Store interface {
		Neighborhood(ctx context.Context, seeds []string, depth int) ([]*Node, error)
	}

	// InMemoryStore keeps nodes and undirected edges in maps. It exists so the
	// pipeline works end to end without an external graph database.
	InMemoryStore struct {
		mu      sync.RWMutex
		nodes   map[uuid.UUID]*Node
		byLabel map[string]uuid.UUID
		edges   map[uuid.UUID][]uuid.UUID
	}
)

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		nodes:   make(map[uuid.UUID]*Node),
		byLabel: make(map[string]uuid.UUID),
		edges:   make(map[uuid.UUID][]uuid.UUID),
	}
}

// AddNode upserts a node by label and returns its id.
func (s *InMemoryStore) AddNode(label string, properties map[string]any) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeLabel(label)
	if id, ok := s.byLabel[key]; ok {
		if properties != nil {
			s.nodes[id].Properties = properties
		}
		return id
	}

	id := uuid.New()
	s.nodes[id] = &Node{ID: id, Label: label, Properties: properties}
	s.byLabel[key] = id
	return id
}

// AddEdge links two nodes in both directions.
func (s *InMemoryStore) AddEdge(from, to uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.edges[from] = append(s.edges[from], to)
	s.edges[to] = append(s.edges[to], from)
}

// Neighborhood runs a breadth-first traversal from every seed label that
// resolves to a node, bounded by depth hops.
func (s *InMemoryStore) Neighborhood(ctx context.Context, seeds []string, depth int) ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	visited := make(map[uuid.UUID]bool)
	var frontier []uuid.UUID
	for _, seed := range seeds {
		if id, ok := s.byLabel[normalizeLabel(seed)]; ok && !visited[id] {
			visited[id] = true
			frontier = append(frontier, id)
		}
	}

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []uuid.UUID
		for _, id := range frontier {
			for _, neighbor := range s.edges[id] {
				if !visited[neighbor] {
					visited[neighbor] = true
					next = append(next, neighbor)
				}
			}
		}
		frontier = next
	}

	result := make([]*Node, 0, len(visited))
	for id := range visited {
		result = append(result, s.nodes[id])
	}
	return result, nil
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
