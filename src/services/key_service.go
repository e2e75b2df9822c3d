package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/solang-dev/solang-keys/src/logging"
	"github.com/solang-dev/solang-keys/src/models"
	"github.com/solang-dev/solang-keys/src/repositories"
)

// maxCreateAttempts bounds the regenerate-and-retry loop on value collision.
const maxCreateAttempts = 5

// KeyService orchestrates the API key lifecycle: create, list, rename,
// delete. Every key belongs to exactly one account and carries a globally
// unique value; both invariants are enforced through the repository.
type KeyService struct {
	repo    repositories.KeyRepository
	catalog *models.TierCatalog
	keygen  KeyGenerator
	logger  zerolog.Logger
}

// NewKeyService creates a new key service.
func NewKeyService(repo repositories.KeyRepository, catalog *models.TierCatalog, keygen KeyGenerator) *KeyService {
	return &KeyService{
		repo:    repo,
		catalog: catalog,
		keygen:  keygen,
		logger:  logging.NewLogger("keys"),
	}
}

// Create generates and persists a new key for the owner. The returned key
// carries the plaintext value; this is the only operation guaranteed to do
// so. On value collision the key is regenerated up to maxCreateAttempts
// times before ErrExhaustedRetries surfaces.
func (ks *KeyService) Create(ctx context.Context, ownerID string, name string, tier models.Tier) (*models.ApiKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if ownerID == "" {
		return nil, ErrInvalidOwner
	}
	if _, err := ks.catalog.QuotaFor(tier); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		value, err := ks.keygen.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate key value: %w", err)
		}

		key := &models.ApiKey{
			ID:          uuid.New(),
			OwnerID:     ownerID,
			Name:        name,
			KeyValue:    value,
			Tier:        tier,
			CreditsUsed: 0,
			CreatedAt:   time.Now(),
		}

		err = ks.repo.Insert(ctx, key)
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, ErrKeyConflict) {
			return nil, fmt.Errorf("failed to create key: %w", err)
		}

		ks.logger.Warn().
			Int("attempt", attempt).
			Str("owner_id", ownerID).
			Msg("key value collision, regenerating")
	}

	return nil, ErrExhaustedRetries
}

// List returns the owner's keys, newest first.
func (ks *KeyService) List(ctx context.Context, ownerID string) ([]*models.ApiKey, error) {
	keys, err := ks.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	if keys == nil {
		keys = []*models.ApiKey{}
	}
	return keys, nil
}

// Get fetches a single key owned by ownerID.
func (ks *KeyService) Get(ctx context.Context, ownerID string, id uuid.UUID) (*models.ApiKey, error) {
	return ks.repo.GetByID(ctx, id, ownerID)
}

// Rename updates a key's display name. The value and usage counter are
// untouched: rename is not rotate.
func (ks *KeyService) Rename(ctx context.Context, ownerID string, id uuid.UUID, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrInvalidName
	}
	return ks.repo.Rename(ctx, id, ownerID, newName)
}

// Delete removes a key permanently.
func (ks *KeyService) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	return ks.repo.Delete(ctx, id, ownerID)
}
