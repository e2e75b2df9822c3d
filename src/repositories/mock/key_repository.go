package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/solang-dev/solang-keys/src/models"
	"github.com/solang-dev/solang-keys/src/repositories"
	"github.com/solang-dev/solang-keys/src/services"
)

// KeyRepository is an in-memory implementation of repositories.KeyRepository
// for testing. It mirrors the store's semantics: owner-scoped operations,
// a uniqueness check on key_value at insert, atomic usage increments.
type KeyRepository struct {
	mu     sync.Mutex
	keys   map[uuid.UUID]*models.ApiKey
	values map[string]struct{}

	// InsertErr, when set, is returned by Insert regardless of input.
	InsertErr error
	// ListErr, when set, is returned by ListByOwner.
	ListErr error
}

// NewKeyRepository creates an empty in-memory key repository.
func NewKeyRepository() *KeyRepository {
	return &KeyRepository{
		keys:   make(map[uuid.UUID]*models.ApiKey),
		values: make(map[string]struct{}),
	}
}

var _ repositories.KeyRepository = (*KeyRepository)(nil)

// ListByOwner returns the owner's keys newest-first.
func (r *KeyRepository) ListByOwner(_ context.Context, ownerID string) ([]*models.ApiKey, error) {
	if r.ListErr != nil {
		return nil, r.ListErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var keys []*models.ApiKey
	for _, key := range r.keys {
		if key.OwnerID == ownerID {
			clone := *key
			keys = append(keys, &clone)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].CreatedAt.After(keys[j].CreatedAt)
	})
	return keys, nil
}

// GetByID fetches one key scoped to its owner.
func (r *KeyRepository) GetByID(_ context.Context, id uuid.UUID, ownerID string) (*models.ApiKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.keys[id]
	if !ok || key.OwnerID != ownerID {
		return nil, services.ErrKeyNotFound
	}
	clone := *key
	return &clone, nil
}

// Insert stores a new key, rejecting duplicate values.
func (r *KeyRepository) Insert(_ context.Context, key *models.ApiKey) error {
	if r.InsertErr != nil {
		return r.InsertErr
	}
	if key.OwnerID == "" {
		return services.ErrInvalidOwner
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.values[key.KeyValue]; exists {
		return services.ErrKeyConflict
	}
	clone := *key
	r.keys[key.ID] = &clone
	r.values[key.KeyValue] = struct{}{}
	return nil
}

// Rename updates the display name, subject to the ownership rule.
func (r *KeyRepository) Rename(_ context.Context, id uuid.UUID, ownerID string, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.keys[id]
	if !ok || key.OwnerID != ownerID {
		return services.ErrKeyNotFound
	}
	key.Name = newName
	return nil
}

// Delete removes a key, subject to the ownership rule.
func (r *KeyRepository) Delete(_ context.Context, id uuid.UUID, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.keys[id]
	if !ok || key.OwnerID != ownerID {
		return services.ErrKeyNotFound
	}
	delete(r.values, key.KeyValue)
	delete(r.keys, id)
	return nil
}

// AddUsage increments credits_used and returns the new total.
func (r *KeyRepository) AddUsage(_ context.Context, id uuid.UUID, ownerID string, amount int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.keys[id]
	if !ok || key.OwnerID != ownerID {
		return 0, services.ErrKeyNotFound
	}
	key.CreditsUsed += amount
	return key.CreditsUsed, nil
}

// ListAll returns every stored key, newest-first.
func (r *KeyRepository) ListAll(_ context.Context) ([]*models.ApiKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var keys []*models.ApiKey
	for _, key := range r.keys {
		clone := *key
		keys = append(keys, &clone)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].CreatedAt.After(keys[j].CreatedAt)
	})
	return keys, nil
}
