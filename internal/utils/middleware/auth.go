package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// AuthorizationHeader is the header key for authorization.
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens.
	BearerPrefix = "Bearer "
	// UserIDKey is the context key for user ID.
	UserIDKey = "user_id"
	// EmailKey is the context key for email.
	EmailKey = "email"
	// RoleKey is the context key for the caller's role.
	RoleKey = "role"
)

// Role is a closed set of caller roles carried in the token.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSales    Role = "sales"
	RoleCustomer Role = "customer"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSales, RoleCustomer:
		return true
	}
	return false
}

// Claims are the JWT claims issued to authenticated users.
type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
}

// Auth returns a middleware that validates JWT tokens and sets user_id,
// email and role in the request context. Requests without a valid token
// are rejected with 401. Tokens carrying an unknown role are rejected.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			abortUnauthorized(c, "Authorization header required")
			return
		}

		claims := &Claims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}
		if claims.UserID == uuid.Nil || !claims.Role.Valid() {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(EmailKey, claims.Email)
		c.Set(RoleKey, claims.Role)

		c.Next()
	}
}

// RequireRoles returns a middleware that allows only callers holding one of
// the given roles. Must be installed after Auth.
func RequireRoles(roles ...Role) gin.HandlerFunc {
	allowed := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role := GetRole(c)
		if role == "" {
			abortUnauthorized(c, "User not authenticated")
			return
		}
		if _, ok := allowed[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Insufficient permissions",
				},
			})
			return
		}
		c.Next()
	}
}

// RequireStaff allows admin and sales callers.
func RequireStaff() gin.HandlerFunc {
	return RequireRoles(RoleAdmin, RoleSales)
}

// RequireAdmin allows admin callers only.
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(RoleAdmin)
}

// extractBearerToken extracts the bearer token from the Authorization header.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader(AuthorizationHeader)
	if authHeader == "" {
		return ""
	}

	if strings.HasPrefix(authHeader, BearerPrefix) {
		return strings.TrimPrefix(authHeader, BearerPrefix)
	}

	return ""
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}

// GetUserID returns the user ID from context.
// Returns uuid.Nil if not found.
func GetUserID(c *gin.Context) uuid.UUID {
	if val, exists := c.Get(UserIDKey); exists {
		if userID, ok := val.(uuid.UUID); ok {
			return userID
		}
	}
	return uuid.Nil
}

// GetEmail returns the email from context.
// Returns empty string if not found.
func GetEmail(c *gin.Context) string {
	if val, exists := c.Get(EmailKey); exists {
		if email, ok := val.(string); ok {
			return email
		}
	}
	return ""
}

// GetRole returns the caller role from context.
// Returns empty string if not found.
func GetRole(c *gin.Context) Role {
	if val, exists := c.Get(RoleKey); exists {
		if role, ok := val.(Role); ok {
			return role
		}
	}
	return ""
}

// IsAuthenticated returns true if the user is authenticated.
func IsAuthenticated(c *gin.Context) bool {
	return GetUserID(c) != uuid.Nil
}
