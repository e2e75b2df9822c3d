package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/solang-dev/solang-keys/src/middleware"
	"github.com/solang-dev/solang-keys/src/models"
	"github.com/solang-dev/solang-keys/src/services"
)

// AdminHandler handles operator endpoints
type AdminHandler struct {
	adminService *services.AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// AdminLoginRequest represents the request body for admin login
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLoginResponse represents the response for successful login
type AdminLoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// HandleAdminLogin authenticates an admin user and returns a JWT token
func (ah *AdminHandler) HandleAdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	admin, err := ah.adminService.AuthenticateAdmin(ctx, req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	token, err := middleware.GenerateAdminToken(admin.ID, admin.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	expiresAt := time.Now().Add(24 * time.Hour)
	c.SetCookie(
		"admin_token",
		token,
		int(24*time.Hour.Seconds()),
		"/",
		"",
		true, // Secure
		true, // HttpOnly
	)

	c.JSON(http.StatusOK, AdminLoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
	})
}

// HandleAdminLogout clears the admin token cookie
func (ah *AdminHandler) HandleAdminLogout(c *gin.Context) {
	c.SetCookie(
		"admin_token",
		"",
		-1,
		"/",
		"",
		true, // Secure
		true, // HttpOnly
	)

	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

// AdminStatusResponse represents the response for admin status check
type AdminStatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	AdminID       string `json:"admin_id"`
	Username      string `json:"username"`
}

// HandleAdminStatus returns the current admin authentication status
func (ah *AdminHandler) HandleAdminStatus(c *gin.Context) {
	adminID, _ := c.Get("admin_id")
	username, _ := c.Get("username")

	c.JSON(http.StatusOK, AdminStatusResponse{
		Authenticated: true,
		AdminID:       adminID.(string),
		Username:      username.(string),
	})
}

// adminKeyRow is one row of the admin key listing. Values are already
// masked by the service; owners are shown because this is the operator view.
type adminKeyRow struct {
	ID          string      `json:"id"`
	OwnerID     string      `json:"owner_id"`
	Name        string      `json:"name"`
	KeyValue    string      `json:"key_value"`
	Tier        models.Tier `json:"tier"`
	CreditsUsed int         `json:"credits_used"`
	CreatedAt   time.Time   `json:"created_at"`
}

// HandleListKeys lists every key across accounts, masked (GET /admin/keys)
func (ah *AdminHandler) HandleListKeys(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	keys, err := ah.adminService.ListAllKeys(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list keys"})
		return
	}

	rows := make([]adminKeyRow, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, adminKeyRow{
			ID:          key.ID.String(),
			OwnerID:     key.OwnerID,
			Name:        key.Name,
			KeyValue:    key.KeyValue,
			Tier:        key.Tier,
			CreditsUsed: key.CreditsUsed,
			CreatedAt:   key.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"keys":  rows,
		"total": len(rows),
	})
}
