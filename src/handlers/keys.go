package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/solang-dev/solang-keys/src/middleware"
	"github.com/solang-dev/solang-keys/src/models"
	"github.com/solang-dev/solang-keys/src/services"
)

// storeTimeout bounds every record store round-trip made from a handler.
const storeTimeout = 10 * time.Second

// KeysHandler handles the account-facing key lifecycle API
type KeysHandler struct {
	keyService *services.KeyService
}

// NewKeysHandler creates a new keys handler
func NewKeysHandler(keyService *services.KeyService) *KeysHandler {
	return &KeysHandler{keyService: keyService}
}

// CreateKeyRequest is the body of POST /api/keys
type CreateKeyRequest struct {
	Name string `json:"name" binding:"required"`
	Tier string `json:"tier" binding:"required"`
}

// RenameKeyRequest is the body of PUT /api/keys/:key_id
type RenameKeyRequest struct {
	Name string `json:"name" binding:"required"`
}

// HandleCreateKey creates a new API key (POST /api/keys).
// The response carries the plaintext value; no later endpoint returns it
// except the explicit reveal operation.
func (kh *KeysHandler) HandleCreateKey(c *gin.Context) {
	accountID := middleware.GetAccountID(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and tier are required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	key, err := kh.keyService.Create(ctx, accountID, req.Name, models.Tier(req.Tier))
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"key": key})
}

// HandleListKeys returns the account's keys with values masked
// (GET /api/keys). Plaintext retrieval is a separate, audit-logged call.
func (kh *KeysHandler) HandleListKeys(c *gin.Context) {
	accountID := middleware.GetAccountID(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	keys, err := kh.keyService.List(ctx, accountID)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	redacted := make([]models.ApiKey, 0, len(keys))
	for _, key := range keys {
		redacted = append(redacted, key.Redacted())
	}

	c.JSON(http.StatusOK, gin.H{
		"keys":  redacted,
		"count": len(redacted),
	})
}

// HandleRevealKey returns a single key's plaintext value
// (GET /api/keys/:key_id/reveal). Every call is audit-logged.
func (kh *KeysHandler) HandleRevealKey(c *gin.Context) {
	accountID := middleware.GetAccountID(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	keyID, err := uuid.Parse(c.Param("key_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	key, err := kh.keyService.Get(ctx, accountID, keyID)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	log.Info().
		Str("request_id", middleware.GetRequestID(c)).
		Str("account_id", accountID).
		Str("key_id", keyID.String()).
		Msg("api key plaintext revealed")

	c.JSON(http.StatusOK, gin.H{
		"id":        key.ID,
		"key_value": key.KeyValue,
	})
}

// HandleRenameKey updates a key's display name (PUT /api/keys/:key_id).
// The key value is untouched; rename is not rotate.
func (kh *KeysHandler) HandleRenameKey(c *gin.Context) {
	accountID := middleware.GetAccountID(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	keyID, err := uuid.Parse(c.Param("key_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key id"})
		return
	}

	var req RenameKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	if err := kh.keyService.Rename(ctx, accountID, keyID, req.Name); err != nil {
		respondLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "renamed"})
}

// HandleDeleteKey removes a key permanently (DELETE /api/keys/:key_id).
func (kh *KeysHandler) HandleDeleteKey(c *gin.Context) {
	accountID := middleware.GetAccountID(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	keyID, err := uuid.Parse(c.Param("key_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	if err := kh.keyService.Delete(ctx, accountID, keyID); err != nil {
		respondLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "deleted",
		"key_id": keyID,
	})
}

// respondLifecycleError maps service errors to HTTP responses. Store errors
// stay opaque: the request id is the only detail a client sees.
func respondLifecycleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrKeyNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
	case errors.Is(err, services.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": "key name must not be empty"})
	case errors.Is(err, models.ErrUnknownTier):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown tier"})
	case errors.Is(err, services.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must not be negative"})
	case errors.Is(err, services.ErrInvalidOwner):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	default:
		log.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(c)).
			Str("path", c.Request.URL.Path).
			Msg("key lifecycle operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal server error",
			"details": middleware.GetRequestID(c),
		})
	}
}
