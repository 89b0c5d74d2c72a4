// Package registry holds the process-lifetime activity registry.
package registry

import (
	"context"
	"fmt"
	"sync"

	"example.com/extracurricular/internal/domain"
	"example.com/extracurricular/internal/observability"
)

// InMemoryRepository stores activities in memory. Mutations are serialised by
// a single exclusive lock; reads take the shared lock and return copies.
type InMemoryRepository struct {
	mu         sync.RWMutex
	order      []string
	activities map[string]*domain.Activity
}

// NewInMemoryRepository constructs a repository populated with seed. Each seed
// record must satisfy the roster invariants and names must be unique.
func NewInMemoryRepository(seed []domain.Activity) (*InMemoryRepository, error) {
	repo := &InMemoryRepository{
		order:      make([]string, 0, len(seed)),
		activities: make(map[string]*domain.Activity, len(seed)),
	}
	for _, activity := range seed {
		activity = activity.Clone()
		for i, p := range activity.Participants {
			activity.Participants[i] = domain.NormalizeEmail(p)
		}
		if err := activity.Validate(); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
		if _, exists := repo.activities[activity.Name]; exists {
			return nil, fmt.Errorf("seed: duplicate activity %q", activity.Name)
		}
		repo.order = append(repo.order, activity.Name)
		repo.activities[activity.Name] = &activity
		observability.RecordRoster(activity.Name, len(activity.Participants), activity.MaxParticipants)
	}
	return repo, nil
}

// List implements domain.Repository.
func (r *InMemoryRepository) List(ctx context.Context) ([]domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Activity, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.activities[name].Clone())
	}
	return out, nil
}

// Get implements domain.Repository.
func (r *InMemoryRepository) Get(ctx context.Context, name string) (*domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	activity, ok := r.activities[name]
	if !ok {
		return nil, nil
	}
	snapshot := activity.Clone()
	return &snapshot, nil
}

// Update implements domain.Repository. mutate works on a copy which replaces
// the stored record only on success, so a rejected change leaves no trace.
func (r *InMemoryRepository) Update(ctx context.Context, name string, mutate func(*domain.Activity) error) (domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.activities[name]
	if !ok {
		return domain.Activity{}, domain.ErrActivityNotFound
	}

	working := current.Clone()
	if err := mutate(&working); err != nil {
		return domain.Activity{}, err
	}
	if err := working.Validate(); err != nil {
		return domain.Activity{}, fmt.Errorf("update %q: %w", name, err)
	}
	working.Name = current.Name
	*current = working
	return current.Clone(), nil
}

// Len returns the number of activities.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
