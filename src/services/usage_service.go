package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/solang-dev/solang-keys/src/models"
	"github.com/solang-dev/solang-keys/src/repositories"
)

// UsageStatus is the quota position of a key. Remaining may be negative:
// overage is representable and only the validation policy turns it into a
// failure.
type UsageStatus struct {
	CreditsUsed int  `json:"credits_used"`
	Quota       int  `json:"quota"`
	Remaining   int  `json:"remaining"`
	Exceeded    bool `json:"exceeded"`
}

// UsageService tracks consumed credits per key and derives quota status
// against the tier catalog. The metering trigger (which downstream call
// consumed how many credits) is external; this service only accounts.
type UsageService struct {
	repo    repositories.KeyRepository
	catalog *models.TierCatalog
}

// NewUsageService creates a new usage accountant.
func NewUsageService(repo repositories.KeyRepository, catalog *models.TierCatalog) *UsageService {
	return &UsageService{repo: repo, catalog: catalog}
}

// RecordUsage increments the key's credit counter by amount and returns the
// new total. Amounts are never clamped against the quota.
func (us *UsageService) RecordUsage(ctx context.Context, ownerID string, keyID uuid.UUID, amount int) (int, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}
	total, err := us.repo.AddUsage(ctx, keyID, ownerID, amount)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Status computes the key's quota position. Pure, no side effects.
func (us *UsageService) Status(key *models.ApiKey) (UsageStatus, error) {
	quota, err := us.catalog.QuotaFor(key.Tier)
	if err != nil {
		return UsageStatus{}, fmt.Errorf("failed to resolve quota: %w", err)
	}

	remaining := quota - key.CreditsUsed
	return UsageStatus{
		CreditsUsed: key.CreditsUsed,
		Quota:       quota,
		Remaining:   remaining,
		Exceeded:    remaining < 0,
	}, nil
}
