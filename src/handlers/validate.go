package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/solang-dev/solang-keys/src/middleware"
	"github.com/solang-dev/solang-keys/src/services"
)

// ValidateHandler handles the validation endpoint consumed by downstream
// API gateways
type ValidateHandler struct {
	validationService *services.ValidationService
}

// NewValidateHandler creates a new validation handler
func NewValidateHandler(validationService *services.ValidationService) *ValidateHandler {
	return &ValidateHandler{validationService: validationService}
}

// ValidateKeyRequest is the body of POST /api/validate-key
type ValidateKeyRequest struct {
	APIKey string `json:"apiKey" binding:"required"`
}

// HandleValidateKey turns a bearer session plus a presented key value into
// an authorization decision (POST /api/validate-key). Session auth already
// ran in middleware, so an unauthenticated caller never reaches the lookup.
// A wrong key and a key owned by another account produce the same response.
func (vh *ValidateHandler) HandleValidateKey(c *gin.Context) {
	accountID := middleware.GetAccountID(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req ValidateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	keyInfo, err := vh.validationService.Validate(ctx, accountID, req.APIKey)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidKey):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
		case errors.Is(err, services.ErrQuotaExceeded):
			c.JSON(http.StatusForbidden, gin.H{"error": "API key quota exceeded"})
		case errors.Is(err, services.ErrInvalidOwner):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		default:
			log.Error().
				Err(err).
				Str("request_id", middleware.GetRequestID(c)).
				Msg("key validation failed")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal server error",
				"details": middleware.GetRequestID(c),
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Valid API key",
		"keyInfo": keyInfo,
	})
}
