package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/wellpath/medtrack/util"
)

func runServiceAuthRequest(t *testing.T, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	setGinTestMode()
	r := gin.New()
	r.POST("/test", ServiceAuth(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/test", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestServiceAuthDevModePassthrough(t *testing.T) {
	util.SetJWTSecret("")
	w := runServiceAuthRequest(t, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServiceAuthMissingToken(t *testing.T) {
	util.SetJWTSecret("test-secret-123")
	defer util.SetJWTSecret("")

	w := runServiceAuthRequest(t, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServiceAuthMalformedHeader(t *testing.T) {
	util.SetJWTSecret("test-secret-123")
	defer util.SetJWTSecret("")

	w := runServiceAuthRequest(t, "Token abc123")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServiceAuthInvalidToken(t *testing.T) {
	util.SetJWTSecret("test-secret-123")
	defer util.SetJWTSecret("")

	w := runServiceAuthRequest(t, "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServiceAuthWrongSecret(t *testing.T) {
	util.SetJWTSecret("first-secret")
	token, err := util.GenerateServiceToken("dispensary-app", time.Hour)
	assert.NoError(t, err)

	util.SetJWTSecret("second-secret")
	defer util.SetJWTSecret("")

	w := runServiceAuthRequest(t, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServiceAuthValidToken(t *testing.T) {
	util.SetJWTSecret("test-secret-123")
	defer util.SetJWTSecret("")

	token, err := util.GenerateServiceToken("dispensary-app", time.Hour)
	assert.NoError(t, err)

	w := runServiceAuthRequest(t, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}
