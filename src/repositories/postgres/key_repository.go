package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/solang-dev/solang-keys/src/models"
	"github.com/solang-dev/solang-keys/src/repositories"
	"github.com/solang-dev/solang-keys/src/services"
)

// uniqueViolation is the SQLSTATE for a unique constraint violation.
const uniqueViolation = "23505"

// KeyRepository is the Postgres-backed store adapter. Global uniqueness of
// key_value rests on the UNIQUE constraint in schema.sql, so two concurrent
// inserts racing on the same value resolve atomically at the store.
type KeyRepository struct {
	pool *pgxpool.Pool
}

// NewKeyRepository creates a Postgres key repository.
func NewKeyRepository(pool *pgxpool.Pool) *KeyRepository {
	return &KeyRepository{pool: pool}
}

var _ repositories.KeyRepository = (*KeyRepository)(nil)

// ListByOwner returns the owner's keys newest-first.
func (r *KeyRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.ApiKey, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, name, key_value, tier, credits_used, created_at
		FROM api_keys
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer rows.Close()

	return scanKeys(rows)
}

// GetByID fetches one key scoped to its owner.
func (r *KeyRepository) GetByID(ctx context.Context, id uuid.UUID, ownerID string) (*models.ApiKey, error) {
	key := &models.ApiKey{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, key_value, tier, credits_used, created_at
		FROM api_keys
		WHERE id = $1 AND owner_id = $2
	`, id, ownerID).Scan(&key.ID, &key.OwnerID, &key.Name, &key.KeyValue, &key.Tier, &key.CreditsUsed, &key.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, services.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	return key, nil
}

// Insert persists a new key, mapping a unique violation on key_value to
// ErrKeyConflict so the caller's retry loop can regenerate.
func (r *KeyRepository) Insert(ctx context.Context, key *models.ApiKey) error {
	if key.OwnerID == "" {
		return services.ErrInvalidOwner
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO api_keys (id, owner_id, name, key_value, tier, credits_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, key.ID, key.OwnerID, key.Name, key.KeyValue, string(key.Tier), key.CreditsUsed, key.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return services.ErrKeyConflict
		}
		return fmt.Errorf("failed to insert key: %w", err)
	}
	return nil
}

// Rename updates the display name of a key owned by ownerID.
func (r *KeyRepository) Rename(ctx context.Context, id uuid.UUID, ownerID string, newName string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE api_keys SET name = $1 WHERE id = $2 AND owner_id = $3
	`, newName, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to rename key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return services.ErrKeyNotFound
	}
	return nil
}

// Delete removes a key owned by ownerID. Hard removal, no tombstone.
func (r *KeyRepository) Delete(ctx context.Context, id uuid.UUID, ownerID string) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM api_keys WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return services.ErrKeyNotFound
	}
	return nil
}

// AddUsage atomically increments credits_used and returns the new total.
func (r *KeyRepository) AddUsage(ctx context.Context, id uuid.UUID, ownerID string, amount int) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		UPDATE api_keys
		SET credits_used = credits_used + $1
		WHERE id = $2 AND owner_id = $3
		RETURNING credits_used
	`, amount, id, ownerID).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, services.ErrKeyNotFound
		}
		return 0, fmt.Errorf("failed to record usage: %w", err)
	}
	return total, nil
}

// ListAll returns every key across accounts, newest-first.
func (r *KeyRepository) ListAll(ctx context.Context) ([]*models.ApiKey, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, name, key_value, tier, credits_used, created_at
		FROM api_keys
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer rows.Close()

	return scanKeys(rows)
}

func scanKeys(rows pgx.Rows) ([]*models.ApiKey, error) {
	var keys []*models.ApiKey
	for rows.Next() {
		key := &models.ApiKey{}
		if err := rows.Scan(&key.ID, &key.OwnerID, &key.Name, &key.KeyValue, &key.Tier, &key.CreditsUsed, &key.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keys: %w", err)
	}
	return keys, nil
}
