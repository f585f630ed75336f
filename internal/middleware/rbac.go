package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/snapshot-lifecycle-api/pkg/errors"
	"github.com/noah-isme/snapshot-lifecycle-api/pkg/response"
)

// RequireRoles allows the request through only when the caller has one of the roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "insufficient role"))
			return
		}
		c.Next()
	}
}

// LifecycleManagers allows roles that may change policies and holds or trigger enforcement.
func LifecycleManagers() gin.HandlerFunc {
	return RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
}
