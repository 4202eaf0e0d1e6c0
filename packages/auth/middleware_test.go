package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"healthrisk/packages/models"
)

type stubVerifier struct {
	id  *Identity
	err error
}

func (s stubVerifier) Verify(context.Context, string) (*Identity, error) {
	return s.id, s.err
}

func newProtectedRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		id, _ := GetIdentity(c)
		userID, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"id": userID, "source": id.Source})
	})
	r.GET("/private", handlers...)
	return r
}

func doGet(r http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthWithIssuedToken(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	user := testUser()
	token, _, err := m.Issue(user)
	require.NoError(t, err)

	r := newProtectedRouter(JWTAuth(zap.NewNop(), false, m))

	w := doGet(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), user.ID.Hex())

	// Регистр схемы не важен
	w = doGet(r, "bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthRejects(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	r := newProtectedRouter(JWTAuth(zap.NewNop(), false, m))

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing header", "", "missing authorization header"},
		{"basic scheme", "Basic dXNlcjpwYXNz", "invalid authorization format"},
		{"empty token", "Bearer   ", "empty bearer token"},
		{"garbage token", "Bearer abc.def.ghi", "invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(r, tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestJWTAuthFallsBackToNextVerifier(t *testing.T) {
	oidcID := &Identity{UserID: "kc-1", Source: SourceOIDC}
	r := newProtectedRouter(JWTAuth(zap.NewNop(), false,
		NewTokenManager(testSecret, time.Hour),
		stubVerifier{id: oidcID},
	))

	w := doGet(r, "Bearer external-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"source":"oidc"`)
}

func TestJWTAuthProviderUnavailable(t *testing.T) {
	r := newProtectedRouter(JWTAuth(zap.NewNop(), false,
		stubVerifier{err: ErrProviderUnavailable},
	))

	w := doGet(r, "Bearer token")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// Если хотя бы один верификатор отверг токен - это 401
	r = newProtectedRouter(JWTAuth(zap.NewNop(), false,
		stubVerifier{err: ErrInvalidToken},
		stubVerifier{err: ErrProviderUnavailable},
	))
	w = doGet(r, "Bearer token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthDevMode(t *testing.T) {
	r := newProtectedRouter(JWTAuth(zap.NewNop(), true, stubVerifier{err: errors.New("unused")}))

	w := doGet(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"source":"dev"`)

	// С заголовком токен проверяется как обычно
	w = doGet(r, "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)
	log := zap.NewNop()
	r := newProtectedRouter(JWTAuth(log, false, m), RequireRole(log, models.RoleAdmin))

	user := testUser()
	token, _, err := m.Issue(user)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, doGet(r, "Bearer "+token).Code)

	user.Role = models.RoleAdmin
	token, _, err = m.Issue(user)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, doGet(r, "Bearer "+token).Code)
}

func TestRequireAnyRoleWithoutIdentity(t *testing.T) {
	r := newProtectedRouter(RequireAnyRole(zap.NewNop(), models.RoleUser))
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "").Code)
}
