package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func validClaims(role Role) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: uuid.New(),
		Email:  "ada@example.com",
		Role:   role,
	}
}

func runAuth(token string, handlers ...gin.HandlerFunc) (*httptest.ResponseRecorder, *gin.Context) {
	w := httptest.NewRecorder()

	var captured *gin.Context
	r := gin.New()
	chain := append([]gin.HandlerFunc{Auth(testJWTSecret)}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		captured = c
		c.Status(http.StatusOK)
	})
	r.GET("/protected", chain...)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set(AuthorizationHeader, BearerPrefix+token)
	}
	r.ServeHTTP(w, req)
	return w, captured
}

func TestAuth(t *testing.T) {
	t.Run("valid token sets identity in context", func(t *testing.T) {
		claims := validClaims(RoleCustomer)
		w, c := runAuth(signToken(t, claims))

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, c)
		assert.Equal(t, claims.UserID, GetUserID(c))
		assert.Equal(t, "ada@example.com", GetEmail(c))
		assert.Equal(t, RoleCustomer, GetRole(c))
		assert.True(t, IsAuthenticated(c))
	})

	t.Run("missing header", func(t *testing.T) {
		w, _ := runAuth("")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := validClaims(RoleCustomer)
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

		w, _ := runAuth(signToken(t, claims))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims(RoleCustomer)).
			SignedString([]byte("other-secret"))
		require.NoError(t, err)

		w, _ := runAuth(token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		w, _ := runAuth(signToken(t, validClaims(Role("superuser"))))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing user id is rejected", func(t *testing.T) {
		claims := validClaims(RoleCustomer)
		claims.UserID = uuid.Nil

		w, _ := runAuth(signToken(t, claims))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRoles(t *testing.T) {
	tests := []struct {
		name       string
		role       Role
		middleware gin.HandlerFunc
		expected   int
	}{
		{"staff allows admin", RoleAdmin, RequireStaff(), http.StatusOK},
		{"staff allows sales", RoleSales, RequireStaff(), http.StatusOK},
		{"staff rejects customer", RoleCustomer, RequireStaff(), http.StatusForbidden},
		{"admin allows admin", RoleAdmin, RequireAdmin(), http.StatusOK},
		{"admin rejects sales", RoleSales, RequireAdmin(), http.StatusForbidden},
		{"admin rejects customer", RoleCustomer, RequireAdmin(), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := runAuth(signToken(t, validClaims(tt.role)), tt.middleware)
			assert.Equal(t, tt.expected, w.Code)
		})
	}
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleSales.Valid())
	assert.True(t, RoleCustomer.Valid())
	assert.False(t, Role("").Valid())
	assert.False(t, Role("superuser").Valid())
}
