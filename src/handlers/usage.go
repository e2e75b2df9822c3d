package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/solang-dev/solang-keys/src/middleware"
	"github.com/solang-dev/solang-keys/src/models"
	"github.com/solang-dev/solang-keys/src/services"
)

// UsageHandler handles credit accounting endpoints
type UsageHandler struct {
	keyService   *services.KeyService
	usageService *services.UsageService
	catalog      *models.TierCatalog
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(keyService *services.KeyService, usageService *services.UsageService, catalog *models.TierCatalog) *UsageHandler {
	return &UsageHandler{
		keyService:   keyService,
		usageService: usageService,
		catalog:      catalog,
	}
}

// RecordUsageRequest is the body of POST /api/keys/:key_id/usage
type RecordUsageRequest struct {
	Amount *int `json:"amount" binding:"required"`
}

// HandleGetUsage returns a key's quota position
// (GET /api/keys/:key_id/usage).
func (uh *UsageHandler) HandleGetUsage(c *gin.Context) {
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

	key, err := uh.keyService.Get(ctx, accountID, keyID)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	status, err := uh.usageService.Status(key)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// HandleRecordUsage increments a key's credit counter
// (POST /api/keys/:key_id/usage). The metering trigger is the downstream
// service; this endpoint only accounts. Overage is accepted, not clamped.
func (uh *UsageHandler) HandleRecordUsage(c *gin.Context) {
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

	var req RecordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	total, err := uh.usageService.RecordUsage(ctx, accountID, keyID, *req.Amount)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"credits_used": total})
}

// PlanResponse is the current-plan card for the dashboard
type PlanResponse struct {
	Tier             models.Tier `json:"tier"`
	CreditsUsed      int         `json:"credits_used"`
	CreditsLimit     int         `json:"credits_limit"`
	CreditsRemaining int         `json:"credits_remaining"`
}

// HandleGetPlan summarizes the account's plan (GET /api/plan): the highest
// tier among its keys and the total credits consumed across them.
func (uh *UsageHandler) HandleGetPlan(c *gin.Context) {
	accountID := middleware.GetAccountID(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	keys, err := uh.keyService.List(ctx, accountID)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	plan := PlanResponse{Tier: models.TierFree}
	bestQuota := 0
	for _, key := range keys {
		plan.CreditsUsed += key.CreditsUsed
		if quota, err := uh.catalog.QuotaFor(key.Tier); err == nil && quota > bestQuota {
			bestQuota = quota
			plan.Tier = key.Tier
		}
	}
	if bestQuota == 0 {
		// No keys yet; show the entry tier's allotment
		bestQuota, _ = uh.catalog.QuotaFor(models.TierFree)
	}
	plan.CreditsLimit = bestQuota
	plan.CreditsRemaining = bestQuota - plan.CreditsUsed

	c.JSON(http.StatusOK, plan)
}
