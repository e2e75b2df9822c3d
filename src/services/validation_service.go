package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/solang-dev/solang-keys/src/models"
	"github.com/solang-dev/solang-keys/src/repositories"
)

// ValidationService turns a bearer-presented key value into an authorization
// decision. The search is a membership check within the authenticated
// account's own keys: a key that objectively exists under another account
// still fails with ErrInvalidKey, indistinguishably from a bogus value.
type ValidationService struct {
	repo         repositories.KeyRepository
	usage        *UsageService
	enforceQuota bool
}

// NewValidationService creates a validation service. When enforceQuota is
// true, a matching key whose credits exceed its tier quota fails with
// ErrQuotaExceeded instead of succeeding; the match steps are identical
// under either policy.
func NewValidationService(repo repositories.KeyRepository, usage *UsageService, enforceQuota bool) *ValidationService {
	return &ValidationService{
		repo:         repo,
		usage:        usage,
		enforceQuota: enforceQuota,
	}
}

// Validate checks a candidate key value for the authenticated owner and
// returns the redacted descriptor on success. ownerID must come from a
// verified session; the empty string means the caller was never
// authenticated and no lookup happens at all.
func (vs *ValidationService) Validate(ctx context.Context, ownerID string, candidate string) (*models.KeyDescriptor, error) {
	if ownerID == "" {
		return nil, ErrInvalidOwner
	}

	// Trim surrounding whitespace only; values are case-sensitive.
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return nil, ErrInvalidKey
	}

	keys, err := vs.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch keys: %w", err)
	}

	var matched *models.ApiKey
	for _, key := range keys {
		if subtle.ConstantTimeCompare([]byte(key.KeyValue), []byte(candidate)) == 1 {
			matched = key
			break
		}
	}
	if matched == nil {
		return nil, ErrInvalidKey
	}

	if vs.enforceQuota {
		status, err := vs.usage.Status(matched)
		if err != nil {
			return nil, err
		}
		if status.Exceeded {
			return nil, ErrQuotaExceeded
		}
	}

	descriptor := matched.Descriptor()
	return &descriptor, nil
}
