package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tutorbook/internal/api"
)

const (
	ctxUserID    = "user_id"
	ctxUserEmail = "user_email"
	ctxUserRole  = "user_role"
)

func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) != "Bearer" {
			abort(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			abort(c, http.StatusUnauthorized, "Token is empty")
			return
		}

		claims, err := ValidateToken(tokenString, secret)
		if err != nil {
			switch {
			case errors.Is(err, ErrTokenExpired):
				abort(c, http.StatusUnauthorized, "Token expired")
			default:
				abort(c, http.StatusUnauthorized, "Invalid or malformed token")
			}
			return
		}

		if claims.TokenType != tokenTypeAccess {
			abort(c, http.StatusUnauthorized, "Access token required")
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserEmail, claims.Email)
		c.Set(ctxUserRole, claims.Role)

		c.Next()
	}
}

// RequireRole lets the request through when the caller has any of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(ctxUserRole)
		if !ok {
			abort(c, http.StatusUnauthorized, "User role not found")
			return
		}

		roleStr, ok := role.(string)
		if !ok {
			abort(c, http.StatusUnauthorized, "Invalid role type")
			return
		}

		for _, r := range roles {
			if roleStr == r {
				c.Next()
				return
			}
		}

		abort(c, http.StatusForbidden, "Insufficient permissions")
	}
}

func GetUserID(c *gin.Context) (int, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}

	id, ok := userID.(int)
	return id, ok
}

func GetActor(c *gin.Context) (Actor, bool) {
	id, ok := GetUserID(c)
	if !ok {
		return Actor{}, false
	}
	role, _ := c.Get(ctxUserRole)
	roleStr, _ := role.(string)
	return Actor{ID: id, Role: roleStr}, true
}

// SetActor stores an identity on the context the way AuthMiddleware does.
func SetActor(c *gin.Context, a Actor) {
	c.Set(ctxUserID, a.ID)
	c.Set(ctxUserRole, a.Role)
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, api.ErrorResponse{Error: msg})
}
