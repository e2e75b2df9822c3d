package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const testSecret = "test-secret-0123456789abcdef0123456789"

func setTestSecret(t *testing.T) {
	t.Helper()
	prev := JWTSecret
	if err := SetJWTSecret(testSecret); err != nil {
		t.Fatalf("SetJWTSecret failed: %v", err)
	}
	t.Cleanup(func() { JWTSecret = prev })
}

func TestSetJWTSecret_RejectsWeakSecrets(t *testing.T) {
	if err := SetJWTSecret(""); err == nil {
		t.Error("expected error for empty secret")
	}
	if err := SetJWTSecret("tooshort"); err == nil {
		t.Error("expected error for short secret")
	}
}

func TestSessionToken_RoundTrip(t *testing.T) {
	setTestSecret(t)

	token, err := GenerateSessionToken("acct_42", true)
	if err != nil {
		t.Fatalf("GenerateSessionToken failed: %v", err)
	}

	claims, err := ValidateSessionToken(token)
	if err != nil {
		t.Fatalf("ValidateSessionToken failed: %v", err)
	}
	if claims.AccountID != "acct_42" {
		t.Errorf("expected account acct_42, got %q", claims.AccountID)
	}
	if !claims.Consent {
		t.Error("expected consent claim to survive the round trip")
	}
}

func TestValidateSessionToken_RejectsGarbage(t *testing.T) {
	setTestSecret(t)

	if _, err := ValidateSessionToken("not.a.token"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestValidateSessionToken_RejectsWrongSecret(t *testing.T) {
	setTestSecret(t)

	token, err := GenerateSessionToken("acct_42", false)
	if err != nil {
		t.Fatalf("GenerateSessionToken failed: %v", err)
	}

	JWTSecret = "different-secret-0123456789abcdef012345"
	if _, err := ValidateSessionToken(token); err == nil {
		t.Error("expected error for token signed with another secret")
	}
}

func newAuthTestRouter(requireConsent bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SessionAuthMiddleware(requireConsent))
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"account_id": GetAccountID(c)})
	})
	return router
}

func TestSessionAuthMiddleware_MissingToken(t *testing.T) {
	setTestSecret(t)
	router := newAuthTestRouter(false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSessionAuthMiddleware_BearerHeader(t *testing.T) {
	setTestSecret(t)
	router := newAuthTestRouter(false)

	token, err := GenerateSessionToken("acct_7", false)
	if err != nil {
		t.Fatalf("GenerateSessionToken failed: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSessionAuthMiddleware_SessionCookie(t *testing.T) {
	setTestSecret(t)
	router := newAuthTestRouter(false)

	token, err := GenerateSessionToken("acct_7", false)
	if err != nil {
		t.Fatalf("GenerateSessionToken failed: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: token})
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSessionAuthMiddleware_InvalidToken(t *testing.T) {
	setTestSecret(t)
	router := newAuthTestRouter(false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSessionAuthMiddleware_ConsentRequired(t *testing.T) {
	setTestSecret(t)
	router := newAuthTestRouter(true)

	withoutConsent, err := GenerateSessionToken("acct_7", false)
	if err != nil {
		t.Fatalf("GenerateSessionToken failed: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+withoutConsent)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 without consent, got %d: %s", w.Code, w.Body.String())
	}

	withConsent, err := GenerateSessionToken("acct_7", true)
	if err != nil {
		t.Fatalf("GenerateSessionToken failed: %v", err)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+withConsent)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with consent, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminToken_RoundTrip(t *testing.T) {
	setTestSecret(t)

	token, err := GenerateAdminToken(uuid.New(), "operator")
	if err != nil {
		t.Fatalf("GenerateAdminToken failed: %v", err)
	}

	claims, err := ValidateAdminToken(token)
	if err != nil {
		t.Fatalf("ValidateAdminToken failed: %v", err)
	}
	if claims.Username != "operator" {
		t.Errorf("expected username operator, got %q", claims.Username)
	}
}

func TestAdminAndSessionTokensNotInterchangeable(t *testing.T) {
	setTestSecret(t)
	router := newAuthTestRouter(false)

	// An admin token carries no account id, so session auth must reject it.
	token, err := GenerateAdminToken(uuid.New(), "operator")
	if err != nil {
		t.Fatalf("GenerateAdminToken failed: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for admin token on session route, got %d", w.Code)
	}
}
