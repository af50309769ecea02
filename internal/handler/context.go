package handler

import (
	"errors"
	"net/http"

	"familytasks/internal/model"
	"familytasks/internal/repository"
	"familytasks/internal/service"
	"familytasks/pkg/rbac"
	"familytasks/pkg/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ClaimsKey is where the auth middleware stores *util.Claims on the gin context.
const ClaimsKey = "claims"

func claimsFrom(c *gin.Context) (*util.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*util.Claims)
	return claims, ok && claims != nil
}

// callerFamily returns the caller's family or writes 401 and returns "".
func callerFamily(c *gin.Context) string {
	claims, ok := claimsFrom(c)
	if !ok || claims.FamilyID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return ""
	}
	return claims.FamilyID
}

func statusFor(err error) int {
	var ve *model.ValidationError
	var mismatch *rbac.FamilyMismatchError
	var denied *rbac.PermissionDeniedError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &ve), errors.Is(err, repository.ErrFamilyScope):
		return http.StatusBadRequest
	case errors.As(err, &mismatch), errors.As(err, &denied):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrDuplicateInstance), errors.Is(err, service.ErrCheckInProgress):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError maps domain errors to a status; everything unexpected is a logged 500.
func writeError(c *gin.Context, logger *zap.Logger, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(op+": failed", zap.Error(err))
	} else {
		logger.Warn(op+": rejected", zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
