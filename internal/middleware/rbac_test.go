package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkamdem/assoflow-api/internal/models"
	"github.com/mkamdem/assoflow-api/internal/service"
)

const testSecret = "test-secret"

func newTestAuthService() *service.AuthService {
	return service.NewAuthService(nil, service.AuthServiceConfig{Secret: testSecret, Expiration: time.Hour}, nil, nil)
}

func signTestToken(t *testing.T, memberID string, role models.UserRole) string {
	t.Helper()
	claims := models.JWTClaims{
		MemberID: memberID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   memberID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func protectedRouter(guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{}, guards...)
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/members/:memberId", handlers...)
	return r
}

func TestJWTMiddleware(t *testing.T) {
	auth := newTestAuthService()
	r := protectedRouter(JWT(auth))

	t.Run("valid token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/members/mem-1", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, "mem-1", models.RoleMember))
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/members/mem-1", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/members/mem-1", nil)
		req.Header.Set("Authorization", "Token abc")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("tampered token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/members/mem-1", nil)
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, "mem-1", models.RoleMember)+"x")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRBACAdminOrSelf(t *testing.T) {
	auth := newTestAuthService()
	r := protectedRouter(JWT(auth), RBAC("ADMIN", "SELF"))

	cases := []struct {
		name     string
		memberID string
		role     models.UserRole
		path     string
		want     int
	}{
		{"admin reads anyone", "adm-1", models.RoleAdmin, "/members/mem-9", http.StatusOK},
		{"member reads self", "mem-1", models.RoleMember, "/members/mem-1", http.StatusOK},
		{"member reads someone else", "mem-1", models.RoleMember, "/members/mem-9", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.Header.Set("Authorization", "Bearer "+signTestToken(t, tc.memberID, tc.role))
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRequireRoles(t *testing.T) {
	auth := newTestAuthService()
	r := protectedRouter(JWT(auth), RequireRoles(models.RoleAdmin))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/members/mem-1", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "mem-1", models.RoleMember))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
