// Package business stores the per-business records behind the chat widget:
// catalog, FAQ, hours, contact email and house rules, keyed by slug.
package business

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/vitrineapp/vitrine-ai-platform/internal/knowledge"
)

// Repository defines the interface for business record storage
type Repository interface {
	Upsert(ctx context.Context, b *Business) (*Business, error)
	GetBySlug(ctx context.Context, slug string) (*Business, error)
	List(ctx context.Context) ([]*Business, error)
}

// InMemoryRepository keeps records in memory. It backs local development
// and tests when no database is configured.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Business
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[string]*Business),
	}
}

// Upsert creates or replaces the record for its slug.
func (r *InMemoryRepository) Upsert(ctx context.Context, b *Business) (*Business, error) {
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *b
	if existing, ok := r.records[b.Slug]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.records[b.Slug] = &stored

	out := stored
	return &out, nil
}

// GetBySlug retrieves a record by slug.
func (r *InMemoryRepository) GetBySlug(ctx context.Context, slug string) (*Business, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.records[slug]
	if !ok {
		return nil, ErrBusinessNotFound
	}
	out := *b
	return &out, nil
}

// List returns all records ordered by slug.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Business, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Business, 0, len(r.records))
	for _, b := range r.records {
		copied := *b
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

// KnowledgeSource adapts a Repository to knowledge.Source so the resolver
// can project stored records into knowledge bases.
type KnowledgeSource struct {
	repo Repository
}

// NewKnowledgeSource wraps the repository.
func NewKnowledgeSource(repo Repository) *KnowledgeSource {
	return &KnowledgeSource{repo: repo}
}

// KnowledgeBase looks up the record and projects it.
func (s *KnowledgeSource) KnowledgeBase(ctx context.Context, slug string) (*knowledge.KnowledgeBase, error) {
	b, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrBusinessNotFound) {
			return nil, knowledge.ErrNotFound
		}
		return nil, err
	}
	return b.KnowledgeBase(), nil
}
