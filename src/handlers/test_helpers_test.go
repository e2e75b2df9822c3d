package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/solang-dev/solang-keys/src/middleware"
	"github.com/solang-dev/solang-keys/src/models"
	"github.com/solang-dev/solang-keys/src/repositories/mock"
	"github.com/solang-dev/solang-keys/src/services"
)

// testEnv wires the full handler stack against in-memory repositories.
type testEnv struct {
	router *gin.Engine
	repo   *mock.KeyRepository
	keys   *services.KeyService
	usage  *services.UsageService
}

func newTestEnv(t *testing.T, enforceQuota bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	prev := middleware.JWTSecret
	if err := middleware.SetJWTSecret("handler-test-secret-0123456789abcdef"); err != nil {
		t.Fatalf("SetJWTSecret failed: %v", err)
	}
	t.Cleanup(func() { middleware.JWTSecret = prev })

	repo := mock.NewKeyRepository()
	catalog := models.DefaultTierCatalog()
	keyService := services.NewKeyService(repo, catalog, services.NewKeyGenerator())
	usageService := services.NewUsageService(repo, catalog)
	validationService := services.NewValidationService(repo, usageService, enforceQuota)

	keysHandler := NewKeysHandler(keyService)
	usageHandler := NewUsageHandler(keyService, usageService, catalog)
	validateHandler := NewValidateHandler(validationService)

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())

	sessionAuth := middleware.SessionAuthMiddleware(false)
	router.POST("/api/validate-key", sessionAuth, validateHandler.HandleValidateKey)

	api := router.Group("/api", sessionAuth)
	api.GET("/keys", keysHandler.HandleListKeys)
	api.POST("/keys", keysHandler.HandleCreateKey)
	api.PUT("/keys/:key_id", keysHandler.HandleRenameKey)
	api.DELETE("/keys/:key_id", keysHandler.HandleDeleteKey)
	api.GET("/keys/:key_id/reveal", keysHandler.HandleRevealKey)
	api.GET("/keys/:key_id/usage", usageHandler.HandleGetUsage)
	api.POST("/keys/:key_id/usage", usageHandler.HandleRecordUsage)
	api.GET("/plan", usageHandler.HandleGetPlan)

	return &testEnv{
		router: router,
		repo:   repo,
		keys:   keyService,
		usage:  usageService,
	}
}

// do performs a request as the given account and returns the recorder.
func (env *testEnv) do(t *testing.T, accountID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	if accountID != "" {
		token, err := middleware.GenerateSessionToken(accountID, true)
		if err != nil {
			t.Fatalf("failed to mint session token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// decode unmarshals a JSON response body.
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

// status asserts the response code, dumping the body on mismatch.
func status(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}
