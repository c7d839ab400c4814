// internal/middleware/auth.go
package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/marketplace-backend/internal/i18n"
	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

// ErrUnknownUser is returned by a RoleResolver when the token's user no
// longer exists.
var ErrUnknownUser = errors.New("user no longer exists")

// RoleResolver returns the current role of userID.
type RoleResolver func(ctx context.Context, userID string) (string, error)

// StoredRole resolves roles from the users table, so role changes and
// deletions apply to tokens that were issued earlier.
func StoredRole(db *gorm.DB) RoleResolver {
	return func(ctx context.Context, userID string) (string, error) {
		var user models.User
		err := db.WithContext(ctx).Select("id", "role").First(&user, "id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUnknownUser
		}
		if err != nil {
			return "", err
		}
		return string(user.Role), nil
	}
}

// AuthRequired validates the bearer token. With a resolver the role claim is
// replaced by the role the resolver reports.
func AuthRequired(resolvers ...RoleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthRequired))
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(strings.TrimSpace(parts[1]))
		if err != nil {
			key := i18n.KeyAuthInvalidToken
			if errors.Is(err, jwt.ErrTokenExpired) {
				key = i18n.KeyAuthTokenExpired
			}
			utils.UnauthorizedResponse(c, i18n.T(lang, key))
			c.Abort()
			return
		}

		role := claims.Role
		for _, resolve := range resolvers {
			current, err := resolve(c.Request.Context(), claims.UserID)
			if errors.Is(err, ErrUnknownUser) {
				utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
				c.Abort()
				return
			}
			if err != nil {
				logrus.WithError(err).WithField("user_id", claims.UserID).Error("Failed to resolve user role")
				utils.InternalErrorResponse(c, "")
				c.Abort()
				return
			}
			role = current
		}

		// Set user info in context
		c.Set(utils.UserIDKey, claims.UserID)
		c.Set(utils.UsernameKey, claims.Username)
		c.Set(utils.RoleKey, role)
		c.Next()
	}
}
