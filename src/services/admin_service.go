package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/solang-dev/solang-keys/src/logging"
	"github.com/solang-dev/solang-keys/src/models"
	"github.com/solang-dev/solang-keys/src/repositories"
	"golang.org/x/crypto/bcrypt"
)

// AdminService handles operator accounts and the read-only admin views.
type AdminService struct {
	admins repositories.AdminRepository
	keys   repositories.KeyRepository
	logger zerolog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(admins repositories.AdminRepository, keys repositories.KeyRepository) *AdminService {
	return &AdminService{
		admins: admins,
		keys:   keys,
		logger: logging.NewLogger("admin"),
	}
}

// CreateAdminUser creates a new operator with a bcrypt-hashed password.
func (as *AdminService) CreateAdminUser(ctx context.Context, username, password string) (*models.AdminUser, error) {
	if len(username) < 1 || len(username) > 255 {
		return nil, errors.New("username must be between 1 and 255 characters")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.AdminUser{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
		IsActive:     true,
	}

	if err := as.admins.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}
	return admin, nil
}

// HasAdmins checks if any operator accounts exist.
func (as *AdminService) HasAdmins(ctx context.Context) (bool, error) {
	count, err := as.admins.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check admin users: %w", err)
	}
	return count > 0, nil
}

// AuthenticateAdmin verifies username and password. All failure modes return
// ErrInvalidCredentials so a probe cannot tell an unknown username from a
// wrong password.
func (as *AdminService) AuthenticateAdmin(ctx context.Context, username, password string) (*models.AdminUser, error) {
	admin, err := as.admins.GetByUsername(ctx, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !admin.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := as.admins.UpdateLastLogin(ctx, admin.ID); err != nil {
		as.logger.Warn().Err(err).Str("username", admin.Username).Msg("failed to update last_login")
	}
	admin.LastLogin = &now

	return admin, nil
}

// ListAllKeys returns every key across accounts with plaintext values
// masked. The admin view is read-only and never exposes credentials.
func (as *AdminService) ListAllKeys(ctx context.Context) ([]models.ApiKey, error) {
	keys, err := as.keys.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	redacted := make([]models.ApiKey, 0, len(keys))
	for _, key := range keys {
		redacted = append(redacted, key.Redacted())
	}
	return redacted, nil
}
