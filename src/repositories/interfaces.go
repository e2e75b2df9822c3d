package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/solang-dev/solang-keys/src/models"
)

// KeyRepository is the store adapter for API keys. Every operation is scoped
// to an owner account server-side; a client-supplied ownership claim is never
// trusted. Global uniqueness of key_value is enforced at this boundary, not
// in application logic.
type KeyRepository interface {
	// ListByOwner returns the owner's keys newest-first. An account with no
	// keys yields an empty slice, not an error.
	ListByOwner(ctx context.Context, ownerID string) ([]*models.ApiKey, error)

	// GetByID fetches one key, subject to the ownership rule.
	GetByID(ctx context.Context, id uuid.UUID, ownerID string) (*models.ApiKey, error)

	// Insert persists a new key. Returns services.ErrKeyConflict when the
	// value already exists and services.ErrInvalidOwner when the key has no
	// owner account.
	Insert(ctx context.Context, key *models.ApiKey) error

	// Rename updates the display name. Returns services.ErrKeyNotFound when
	// no key with that id is owned by ownerID.
	Rename(ctx context.Context, id uuid.UUID, ownerID string, newName string) error

	// Delete removes a key permanently, same ownership rule as Rename.
	Delete(ctx context.Context, id uuid.UUID, ownerID string) error

	// AddUsage atomically increments credits_used and returns the new total.
	AddUsage(ctx context.Context, id uuid.UUID, ownerID string, amount int) (int, error)

	// ListAll returns every key across accounts, newest-first. Admin surface
	// only; callers must redact before serving.
	ListAll(ctx context.Context) ([]*models.ApiKey, error)
}

// AdminRepository is the store adapter for operator accounts.
type AdminRepository interface {
	Create(ctx context.Context, admin *models.AdminUser) error
	GetByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	UpdateLastLogin(ctx context.Context, adminID uuid.UUID) error
	Count(ctx context.Context) (int, error)
}
