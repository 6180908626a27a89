// internal/middleware/auth.go
package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ecocart/storefront-api/internal/i18n"
	"github.com/ecocart/storefront-api/internal/models"
	"github.com/ecocart/storefront-api/internal/utils"
)

var errInvalidScheme = errors.New("authorization scheme must be Bearer")

// bearerClaims parses "Bearer <token>" and validates it.
func bearerClaims(c *gin.Context) (*utils.JWTClaims, bool, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, false, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, true, errInvalidScheme
	}

	claims, err := utils.ValidateJWT(strings.TrimSpace(parts[1]))
	return claims, true, err
}

func setClaims(c *gin.Context, claims *utils.JWTClaims) {
	c.Set("user_id", claims.UserID)
	c.Set("email", claims.Email)
	c.Set("role", claims.Role)
}

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, present, err := bearerClaims(c)
		if !present {
			utils.UnauthorizedResponse(c, "")
			c.Abort()
			return
		}
		if err != nil {
			utils.UnauthorizedResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyAuthInvalidToken))
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := utils.GetUserRoleFromContext(c)
		if !exists || role != string(models.UserRoleAdmin) {
			utils.ForbiddenResponse(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth attaches the caller's identity when a valid token is sent
// and otherwise lets the request through anonymously.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, present, err := bearerClaims(c)
		if present && err == nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}
