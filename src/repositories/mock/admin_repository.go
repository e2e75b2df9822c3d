package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/solang-dev/solang-keys/src/models"
	"github.com/solang-dev/solang-keys/src/repositories"
	"github.com/solang-dev/solang-keys/src/services"
)

// AdminRepository is an in-memory implementation of
// repositories.AdminRepository for testing.
type AdminRepository struct {
	mu     sync.Mutex
	admins map[string]*models.AdminUser
}

// NewAdminRepository creates an empty in-memory admin repository.
func NewAdminRepository() *AdminRepository {
	return &AdminRepository{admins: make(map[string]*models.AdminUser)}
}

var _ repositories.AdminRepository = (*AdminRepository)(nil)

// Create stores a new operator account.
func (r *AdminRepository) Create(_ context.Context, admin *models.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *admin
	r.admins[admin.Username] = &clone
	return nil
}

// GetByUsername fetches an operator account by username.
func (r *AdminRepository) GetByUsername(_ context.Context, username string) (*models.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	admin, ok := r.admins[username]
	if !ok {
		return nil, services.ErrUserNotFound
	}
	clone := *admin
	return &clone, nil
}

// UpdateLastLogin stamps the operator's last login.
func (r *AdminRepository) UpdateLastLogin(_ context.Context, adminID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, admin := range r.admins {
		if admin.ID == adminID {
			admin.LastLogin = &now
			return nil
		}
	}
	return services.ErrUserNotFound
}

// Count returns the number of operator accounts.
func (r *AdminRepository) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.admins), nil
}
