package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/middleware"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/snapshot-lifecycle-api/pkg/errors"
	"github.com/noah-isme/snapshot-lifecycle-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// bindQuery binds query parameters, answering 400 on failure.
func bindQuery(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message))
		return false
	}
	return true
}

// bindJSON binds a JSON body, answering 400 on failure.
func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message))
		return false
	}
	return true
}
